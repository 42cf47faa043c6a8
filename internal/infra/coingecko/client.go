package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

const (
	maxAttempts    = 3
	defaultTimeout = 10 * time.Second
	apiKeyHeader   = "x-cg-demo-api-key"
)

// Client is the CoinGecko REST client (Snapshot Fetcher). It holds no dashboard state.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
	metrics    *infra.Metrics
	logger     *slog.Logger
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records fetch latency and errors.
func WithMetrics(m *infra.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetryDelay sets the base delay between attempts (doubles per attempt).
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a client for baseURL (e.g. https://api.coingecko.com/api/v3).
func NewClient(baseURL, apiKey, currency string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		currency: currency,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:     slog.Default().With("module", "coingecko"),
		retryDelay: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig wires the client from the application config.
func NewClientFromConfig(cfg *infra.Config, metrics *infra.Metrics) *Client {
	opts := []Option{WithMetrics(metrics)}
	if cfg.API.CoinGecko.TimeoutMS > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.API.CoinGecko.TimeoutMS) * time.Millisecond,
		}))
	}
	return NewClient(cfg.API.CoinGecko.RestURL, cfg.API.CoinGecko.APIKey, cfg.API.CoinGecko.Currency, opts...)
}

// FetchMarkets returns one page of assets ranked by market cap, descending.
// Errors match domain.ErrFetchFailure or domain.ErrParseFailure.
func (c *Client) FetchMarkets(ctx context.Context, page, perPage int) ([]domain.AssetRecord, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "false")

	var rows []marketResponse
	if err := c.getJSON(ctx, "markets", "/coins/markets", q, &rows); err != nil {
		return nil, err
	}

	records := make([]domain.AssetRecord, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			c.logger.Debug("Skipping market row without id", slog.String("symbol", r.Symbol))
			continue
		}
		records = append(records, r.toAsset())
	}
	return records, nil
}

// FetchMarketChart returns the price samples of id between from and to.
func (c *Client) FetchMarketChart(ctx context.Context, id string, from, to time.Time) ([]domain.ChartPoint, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	var resp marketChartResponse
	if err := c.getJSON(ctx, "market_chart", "/coins/"+url.PathEscape(id)+"/market_chart/range", q, &resp); err != nil {
		return nil, err
	}

	points := make([]domain.ChartPoint, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		points = append(points, domain.ChartPoint{
			Time:  time.UnixMilli(p[0].IntPart()),
			Price: p[1],
		})
	}
	return points, nil
}

// getJSON performs a GET with retry on retriable failures.
func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s
			delay := c.retryDelay << uint(i-1)
			c.logger.Info("Retrying fetch", slog.String("op", op), slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %w", domain.ErrFetchFailure, op, ctx.Err())
			case <-time.After(delay):
			}
		}

		start := time.Now()
		err := c.doFetch(ctx, op, path, q, out)
		if c.metrics != nil {
			c.metrics.RecordFetch(time.Since(start))
		}
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("Fetch attempt failed", slog.String("op", op), slog.Int("attempt", i+1), slog.Any("error", err))
		if !domain.IsRetriable(err) || ctx.Err() != nil {
			break
		}
	}

	if c.metrics != nil {
		c.metrics.RecordFetchError()
	}
	return lastErr
}

func (c *Client) doFetch(ctx context.Context, op, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailure, domain.NewFatalNetworkError(op, err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailure, domain.NewNetworkError(op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &domain.StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailure, domain.NewNetworkError(op, err))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrParseFailure, op, err)
	}

	return nil
}
