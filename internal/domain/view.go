package domain

// ScrollSignal is the scroll position reported by the Presentation Layer.
type ScrollSignal struct {
	ScrollOffset   float64 `json:"scroll_offset"`
	ViewportHeight float64 `json:"viewport_height"`
	ContentHeight  float64 `json:"content_height"`
}

// AtEnd reports whether the end of the rendered content is visible.
func (s ScrollSignal) AtEnd() bool {
	return s.ScrollOffset+s.ViewportHeight >= s.ContentHeight
}

// Status is the loading/error flag set shown next to the table.
type Status struct {
	Loading     bool        `json:"loading"`
	Error       string      `json:"error,omitempty"`      // Last refresh/initial fetch failed
	PageLoading bool        `json:"page_loading"`
	PageError   string      `json:"page_error,omitempty"` // Last pagination fetch failed
	Stream      StreamState `json:"stream"`
	Page        int         `json:"page"` // Current pagination cursor
}
