// Package ocr is the HTTP client of the external slip OCR provider.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/loan-slip-reconciler/internal/config"
)

// extractPath is the provider endpoint for payment slip extraction
const extractPath = "/v1/slips/extract"

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 1 << 20

// SlipData is the provider's raw extraction. Every field is text as returned by the
// provider; normalisation happens in the slip adapter.
type SlipData struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Timestamp     string `json:"timestamp"`
	PayerRef      string `json:"payer_ref"`
	PayeeRef      string `json:"payee_ref"`
	Provider      string `json:"provider,omitempty"`
}

// Provider extracts structured data from a slip image
type Provider interface {
	ExtractSlipData(ctx context.Context, image []byte) (*SlipData, error)
}

// ProviderError is a failed extraction call. Temporary failures (network errors,
// 429 and 5xx responses) may be retried; everything else is terminal.
type ProviderError struct {
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ocr provider error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ocr provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTemporary reports whether err is a retryable provider failure
func IsTemporary(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr) && providerErr.Temporary
}

type extractRequest struct {
	Image        string `json:"image"`
	DocumentType string `json:"document_type"`
}

// Client calls the provider over HTTP with a client-side rate limit
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a provider client from configuration
func NewClient(logger *slog.Logger, cfg *config.OCRConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:     logger,
	}
}

// ExtractSlipData sends the image to the provider and decodes its extraction
func (c *Client) ExtractSlipData(ctx context.Context, image []byte) (*SlipData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	body, err := json.Marshal(extractRequest{
		Image:        base64.StdEncoding.EncodeToString(image),
		DocumentType: "payment_slip",
	})
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures are transient unless the caller gave up
		return nil, &ProviderError{Temporary: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Temporary: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		temporary := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		c.logger.Warn("OCR provider rejected extraction",
			"status", resp.StatusCode,
			"temporary", temporary)
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Temporary:  temporary,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(payload))),
		}
	}

	var data SlipData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}

	return &data, nil
}
