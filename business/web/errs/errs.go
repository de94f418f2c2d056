// Package errs carries the errors a handler returns to the error middleware
// and decides which of them may be shown to a caller of the node API.
package errs

import "errors"

// Response is the body written for a failed request. Fields is only set for
// input that failed validation.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to return to the caller along
// with the status it names. Anything else is reported as a 500 with a
// generic message.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted marks err as safe to return with the given status.
func NewTrusted(err error, status int) error {
	return &Trusted{Err: err, Status: status}
}

// Error returns the message of the wrapped error.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap exposes the wrapped error so ledger kinds stay matchable.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted reports whether a Trusted error is anywhere in the chain of err.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns the first Trusted error in the chain of err, or nil.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}
