package payments

import (
	"errors"
	"fmt"
)

// Reconciliation outcome codes, returned to clients verbatim.
const (
	CodeMissingSessionID = "missing_session_id"
	CodeSessionNotFound  = "session_not_found"
	CodeNotPaid          = "not_paid"
	CodePendingMissing   = "pending_missing"
	CodeInvalidTemplate  = "invalid_template"
	CodePublishFailed    = "publish_failed"
	CodePaymentError     = "payment_error"
)

// Failure is a reconciliation that did not produce a page. Err holds the
// underlying cause for logs; it is never shown to clients.
type Failure struct {
	Code string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Code
	}
	return fmt.Sprintf("%s: %v", f.Code, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether the same session may succeed on a later attempt.
func (f *Failure) Retryable() bool {
	switch f.Code {
	case CodeNotPaid, CodePaymentError, CodePublishFailed:
		return true
	}
	return false
}

func fail(code string, err error) *Failure {
	return &Failure{Code: code, Err: err}
}

// FailureCode returns the reconciliation code carried by err, or "".
func FailureCode(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}
