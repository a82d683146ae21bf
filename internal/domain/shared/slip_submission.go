package shared

import (
	"time"

	"github.com/google/uuid"
)

// SlipSubmission is a request to verify one slip image against a contract. It is the
// Kafka message of the asynchronous path and the input of the synchronous one.
type SlipSubmission struct {
	SubmissionID  uuid.UUID `json:"submission_id"`
	ContractID    uuid.UUID `json:"contract_id"`
	ImageBase64   string    `json:"image_base64"`
	MimeType      string    `json:"mime_type"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}
