package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/service/ratelimit"
	xhttp "MarketLens/pkg/http"
	applogger "MarketLens/pkg/logger"
)

// Option configures Client.
type Option func(*Client)

// Client fetches daily price history from the Yahoo Finance chart API.
// It implements domain.repository.Gateway: one upstream call per Fetch,
// every failure classified as a *models.FetchError.
type Client struct {
	http         *xhttp.Client
	baseURL      string
	limiter      *ratelimit.Limiter
	rateCapacity float64
	ratePerSec   float64
	meta         map[string]models.SymbolMeta
	logger       *applogger.Logger
}

// New creates a Yahoo chart API client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      "https://query1.finance.yahoo.com",
		limiter:      ratelimit.New(),
		rateCapacity: 5,
		ratePerSec:   2,
		meta:         make(map[string]models.SymbolMeta),
		logger:       applogger.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithUserAgent("Mozilla/5.0"))
	}

	return c
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit sets the client-side token bucket parameters.
func WithRateLimit(capacity, perSec float64) Option {
	return func(c *Client) {
		c.rateCapacity = capacity
		c.ratePerSec = perSec
	}
}

// WithSymbolMeta attaches universe metadata (name, sector, currency) to
// fetched series.
func WithSymbolMeta(meta map[string]models.SymbolMeta) Option {
	return func(c *Client) {
		c.meta = meta
	}
}

// WithLogger sets the client logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// chartResponse is the response structure of the Yahoo chart API.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves the daily price history for one symbol over period.
func (c *Client) Fetch(ctx context.Context, symbol string, period models.Period) (models.PriceSeries, error) {
	if !c.limiter.Allow(c.baseURL, c.rateCapacity, c.ratePerSec) {
		return models.PriceSeries{}, models.NewFetchError(models.ErrTransient, symbol, "client rate limit exceeded", nil)
	}

	var chart chartResponse
	err := c.http.GetJSON(ctx, &xhttp.RequestOptions{
		URL: fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol)),
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"range":    {string(period)},
		},
	}, &chart)
	if err != nil {
		return models.PriceSeries{}, c.classifyError(symbol, err)
	}

	series, ferr := c.buildSeries(symbol, period, &chart)
	if ferr != nil {
		if ferr.Kind == models.ErrNotFound {
			c.logger.Debug("symbol not found upstream", applogger.String("symbol", symbol))
		} else {
			c.logger.Warn("malformed provider payload",
				applogger.String("symbol", symbol),
				applogger.String("detail", ferr.Msg),
			)
		}
		return models.PriceSeries{}, ferr
	}

	return series, nil
}

func (c *Client) classifyError(symbol string, err error) *models.FetchError {
	var statusErr *xhttp.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == 404:
			return models.NewFetchError(models.ErrNotFound, symbol, "symbol not found", err)
		case statusErr.Status == 429 || statusErr.Status >= 500:
			return models.NewFetchError(models.ErrTransient, symbol, fmt.Sprintf("upstream status %d", statusErr.Status), err)
		default:
			return models.NewFetchError(models.ErrMalformed, symbol, fmt.Sprintf("unexpected status %d: %s", statusErr.Status, statusErr.Body), err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewFetchError(models.ErrTransient, symbol, "fetch timed out", err)
	}

	// json decode failures come back wrapped from GetJSON
	if strings.HasPrefix(err.Error(), "decode json") {
		return models.NewFetchError(models.ErrMalformed, symbol, "undecodable provider payload", err)
	}

	return models.NewFetchError(models.ErrTransient, symbol, "network error", err)
}

func (c *Client) buildSeries(symbol string, period models.Period, chart *chartResponse) (models.PriceSeries, *models.FetchError) {
	if chart.Chart.Error != nil {
		apiErr := chart.Chart.Error
		if apiErr.Code == "Not Found" {
			return models.PriceSeries{}, models.NewFetchError(models.ErrNotFound, symbol, apiErr.Description, nil)
		}
		return models.PriceSeries{}, models.NewFetchError(models.ErrMalformed, symbol,
			fmt.Sprintf("provider error %s: %s", apiErr.Code, apiErr.Description), nil)
	}

	if len(chart.Chart.Result) == 0 {
		return models.PriceSeries{}, models.NewFetchError(models.ErrNotFound, symbol, "empty chart result", nil)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return models.PriceSeries{}, models.NewFetchError(models.ErrMalformed, symbol, "missing quote block", nil)
	}

	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n || len(quote.Volume) != n {
		return models.PriceSeries{}, models.NewFetchError(models.ErrMalformed, symbol, "quote array length mismatch", nil)
	}

	points := make([]models.PricePoint, 0, n)
	for i, ts := range result.Timestamp {
		// null bars are holidays and halts, skip them
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		var volume int64
		if quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		points = append(points, models.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    float64(volume),
		})
	}

	if len(points) == 0 {
		return models.PriceSeries{}, models.NewFetchError(models.ErrMalformed, symbol, "no usable bars in payload", nil)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	points = dedupeByTimestamp(points)

	meta, ok := c.meta[symbol]
	if !ok {
		meta = models.SymbolMeta{Symbol: symbol, Currency: result.Meta.Currency}
	}

	series := models.PriceSeries{
		Meta:   meta,
		Period: period,
		Points: points,
	}
	if err := series.Validate(); err != nil {
		return models.PriceSeries{}, models.NewFetchError(models.ErrMalformed, symbol, err.Error(), err)
	}

	return series, nil
}

// dedupeByTimestamp keeps the last bar for each timestamp. Input must be
// sorted ascending.
func dedupeByTimestamp(points []models.PricePoint) []models.PricePoint {
	out := points[:0]
	for _, p := range points {
		if len(out) > 0 && out[len(out)-1].Timestamp.Equal(p.Timestamp) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
