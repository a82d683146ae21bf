// Package slipadapter turns a submitted slip image into a canonical slip.Record:
// the Validator rejects payloads that cannot be a genuine slip image and the
// Extractor delegates to the OCR provider and normalises what comes back.
package slipadapter

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	"github.com/loan-slip-reconciler/internal/config"
)

// ValidationError rejects a slip payload before any provider call
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid slip image: " + e.Reason
}

// Validator checks mime type, size bounds and image integrity
type Validator struct {
	accepted map[string]bool
	minBytes int
	maxBytes int
}

// NewValidator creates a validator from slip configuration
func NewValidator(cfg *config.SlipConfig) *Validator {
	accepted := make(map[string]bool, len(cfg.AcceptedMimeTypes))
	for _, m := range cfg.AcceptedMimeTypes {
		accepted[strings.ToLower(m)] = true
	}
	return &Validator{
		accepted: accepted,
		minBytes: cfg.MinBytes,
		maxBytes: cfg.MaxBytes,
	}
}

// Validate returns nil or a ValidationError
func (v *Validator) Validate(imageBase64, mimeType string) error {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ValidationError{Reason: "mime type is missing or malformed"}
	}
	mediaType = strings.ToLower(mediaType)
	if !v.accepted[mediaType] {
		return ValidationError{Reason: "mime type " + mediaType + " is not accepted"}
	}

	payload := stripDataURL(imageBase64)
	if base64.StdEncoding.DecodedLen(len(payload)) > v.maxBytes+3 {
		return ValidationError{Reason: "image exceeds the maximum size"}
	}

	data, err := DecodeImage(imageBase64)
	if err != nil {
		return ValidationError{Reason: "payload is not valid base64"}
	}
	if len(data) < v.minBytes {
		return ValidationError{Reason: "image is below the minimum size"}
	}
	if len(data) > v.maxBytes {
		return ValidationError{Reason: "image exceeds the maximum size"}
	}

	sniffed := strings.ToLower(strings.Split(http.DetectContentType(data), ";")[0])
	if sniffed != mediaType {
		return ValidationError{Reason: "content does not match mime type " + mediaType}
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return ValidationError{Reason: "payload is not a decodable image"}
	}

	return nil
}

// DecodeImage decodes a base64 payload, tolerating a data URL prefix and unpadded input
func DecodeImage(imageBase64 string) ([]byte, error) {
	payload := stripDataURL(imageBase64)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	return data, err
}

func stripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return s
}
