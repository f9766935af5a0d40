// Package currency converts foreign-currency totals to USD before
// reconciliation, using the exchangerate.host convert endpoint.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// DefaultBaseURL is the public exchangerate.host API
const DefaultBaseURL = "https://api.exchangerate.host"

// ErrConversionFailed is returned when the API reports an unsuccessful lookup.
var ErrConversionFailed = errors.New("currency conversion failed")

// Converter converts an amount on a date to USD
type Converter interface {
	ToUSD(ctx context.Context, amount decimal.Decimal, currency, date string) (decimal.Decimal, error)
}

// Config holds client configuration
type Config struct {
	BaseURL   string
	AccessKey string
	Timeout   time.Duration
	RetryMax  int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  15 * time.Second,
		RetryMax: 3,
	}
}

// Client talks to the exchange-rate API
type Client struct {
	http      *retryablehttp.Client
	baseURL   string
	accessKey string
	logger    *slog.Logger
}

// NewClient creates a new exchange-rate client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = logger

	return &Client{
		http:      rc,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		accessKey: cfg.AccessKey,
		logger:    logger,
	}
}

type convertResponse struct {
	Success bool            `json:"success"`
	Result  decimal.Decimal `json:"result"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// ToUSD converts amount in currency on date to USD, rounded to cents. The
// date may use any layout accepted by NormalizeDate.
func (c *Client) ToUSD(ctx context.Context, amount decimal.Decimal, currency, date string) (decimal.Decimal, error) {
	day, err := NormalizeDate(date)
	if err != nil {
		return decimal.Zero, err
	}

	params := url.Values{}
	params.Set("access_key", c.accessKey)
	params.Set("from", strings.ToUpper(strings.TrimSpace(currency)))
	params.Set("to", record.DefaultCurrency)
	params.Set("amount", amount.String())
	params.Set("date", day)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/convert?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d: %s", ErrConversionFailed, resp.StatusCode, string(body))
	}

	var data convertResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse response: %w", err)
	}

	if !data.Success {
		if data.Error != nil && data.Error.Info != "" {
			return decimal.Zero, fmt.Errorf("%w: %s %s on %s: %s", ErrConversionFailed, amount, currency, day, data.Error.Info)
		}
		return decimal.Zero, fmt.Errorf("%w: %s %s on %s", ErrConversionFailed, amount, currency, day)
	}

	return data.Result.RoundBank(2), nil
}

// ConvertAll returns a copy of rows with every non-USD total converted to
// USD. The first failed lookup aborts the conversion.
func ConvertAll(ctx context.Context, conv Converter, rows []record.Record) ([]record.Record, error) {
	out := make([]record.Record, 0, len(rows))
	for i, r := range rows {
		if r.IsUSD() {
			out = append(out, r)
			continue
		}

		usd, err := conv.ToUSD(ctx, r.Total, r.Currency, r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i+1, r.BusinessName, err)
		}

		r.Total = usd
		r.Currency = record.DefaultCurrency
		out = append(out, r)
	}
	return out, nil
}
