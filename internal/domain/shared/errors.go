package shared

import "fmt"

// InputError rejects invalid contract terms or a malformed slip image. It is never
// retried and its reason is shown to the caller verbatim.
type InputError struct {
	Reason string
	Err    error
}

func (e InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return "invalid input: " + e.Reason
}

func (e InputError) Unwrap() error { return e.Err }

// ProviderError reports that slip extraction failed after bounded retries. Callers
// see it as "verification unavailable", distinct from a no-match decision.
type ProviderError struct {
	Reason string
	Err    error
}

// VerificationUnavailable is the caller-facing message of a ProviderError
const VerificationUnavailable = "verification unavailable"

func (e ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", VerificationUnavailable, e.Reason, e.Err)
	}
	return VerificationUnavailable + ": " + e.Reason
}

func (e ProviderError) Unwrap() error { return e.Err }

// ConflictError is a lost compare-and-set on a versioned row
type ConflictError struct {
	Resource string
	ID       string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s %s", e.Resource, e.ID)
}

// Is matches any ConflictError when the target leaves its fields empty
func (e ConflictError) Is(target error) bool {
	t, ok := target.(ConflictError)
	if !ok {
		return false
	}
	return (t.Resource == "" || t.Resource == e.Resource) && (t.ID == "" || t.ID == e.ID)
}

// DuplicateSubmissionError means the provider transaction id is already bound
type DuplicateSubmissionError struct {
	TransactionID string
}

func (e DuplicateSubmissionError) Error() string {
	return "duplicate slip submission: " + e.TransactionID
}

// Is matches any DuplicateSubmissionError when the target carries no id
func (e DuplicateSubmissionError) Is(target error) bool {
	t, ok := target.(DuplicateSubmissionError)
	if !ok {
		return false
	}
	return t.TransactionID == "" || t.TransactionID == e.TransactionID
}
