package slipadapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/loan-slip-reconciler/internal/config"
	"github.com/loan-slip-reconciler/internal/domain/money"
	"github.com/loan-slip-reconciler/internal/domain/slip"
	"github.com/loan-slip-reconciler/internal/platform/ocr"
)

// ExtractionError means no usable slip record could be produced
type ExtractionError struct {
	Reason string
	Err    error
}

func (e ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("slip extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "slip extraction failed: " + e.Reason
}

func (e ExtractionError) Unwrap() error { return e.Err }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	money.DateLayout,
}

// Extractor calls the OCR provider with bounded retries and normalises its output
type Extractor struct {
	provider    ocr.Provider
	cache       *cache.Cache
	maxRetries  int
	backoffBase time.Duration
	policy      *bluemonday.Policy
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

// NewExtractor creates an extractor. Successful extractions are cached by image digest.
func NewExtractor(logger *slog.Logger, provider ocr.Provider, cfg *config.OCRConfig) *Extractor {
	return &Extractor{
		provider:    provider,
		cache:       cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		policy:      bluemonday.StrictPolicy(),
		sleep:       sleepContext,
		logger:      logger,
	}
}

// Extract produces a complete slip record or an ExtractionError; never a partial record
func (e *Extractor) Extract(ctx context.Context, imageBase64 string) (*slip.Record, error) {
	data, err := DecodeImage(imageBase64)
	if err != nil {
		return nil, ExtractionError{Reason: "payload is not valid base64", Err: err}
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if cached, found := e.cache.Get(key); found {
		record := *cached.(*slip.Record)
		return &record, nil
	}

	raw, err := e.extractWithRetry(ctx, data)
	if err != nil {
		return nil, err
	}

	record, err := e.normalize(raw)
	if err != nil {
		e.logger.Warn("OCR provider returned an unusable extraction", "reason", err.Error())
		return nil, err
	}

	e.cache.Set(key, record, cache.DefaultExpiration)
	result := *record
	return &result, nil
}

func (e *Extractor) extractWithRetry(ctx context.Context, data []byte) (*ocr.SlipData, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.backoffBase * time.Duration(1<<(attempt-1))
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, ExtractionError{Reason: "cancelled while retrying", Err: err}
			}
		}

		raw, err := e.provider.ExtractSlipData(ctx, data)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !ocr.IsTemporary(err) {
			return nil, ExtractionError{Reason: "provider rejected the slip", Err: err}
		}
		e.logger.Warn("Transient OCR failure",
			"attempt", attempt+1,
			"max_attempts", e.maxRetries+1,
			"error", err)
	}

	return nil, ExtractionError{Reason: "provider unavailable after retries", Err: lastErr}
}

func (e *Extractor) normalize(raw *ocr.SlipData) (*slip.Record, error) {
	if raw == nil {
		return nil, ExtractionError{Reason: "empty provider response"}
	}
	if strings.TrimSpace(raw.TransactionID) == "" {
		return nil, ExtractionError{Reason: "missing transaction id"}
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return nil, ExtractionError{Reason: "unreadable amount", Err: err}
	}
	if !amount.IsPositive() || !money.IsMinorUnitExact(amount) {
		return nil, ExtractionError{Reason: "amount must be positive with at most two decimals"}
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return nil, ExtractionError{Reason: "unreadable timestamp", Err: err}
	}

	return &slip.Record{
		TransactionID: raw.TransactionID,
		Amount:        amount,
		Timestamp:     ts,
		PayerRef:      e.clean(raw.PayerRef),
		PayeeRef:      e.clean(raw.PayeeRef),
		Provider:      e.clean(raw.Provider),
	}, nil
}

func (e *Extractor) clean(s string) string {
	return strings.TrimSpace(e.policy.Sanitize(s))
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return money.Parse(s)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
