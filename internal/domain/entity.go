package domain

import (
	"time"
)

// CoinInfo is the cached metadata of an asset (name, icon) keyed by provider id.
type CoinInfo struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Symbol       string    `json:"symbol" gorm:"index"`
	Name         string    `json:"name"`
	ImageRef     string    `json:"image"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at"` // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CoinInfoFromAsset builds the metadata row for a snapshot record.
func CoinInfoFromAsset(a AssetRecord) *CoinInfo {
	return &CoinInfo{
		ID:       a.ID,
		Symbol:   a.Symbol,
		Name:     a.Name,
		ImageRef: a.ImageRef,
	}
}
