package ports

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the remote gateway can produce. All
// transport and HTTP outcomes are normalised into exactly one kind; nothing
// crosses the gateway boundary untyped.
type ErrorKind int

const (
	// KindUnknown covers anything the taxonomy cannot place. Mutations are
	// rolled back and the error surfaced generically.
	KindUnknown ErrorKind = iota
	// KindNetwork marks unreachable hosts, timeouts and cancelled calls.
	// Retryable; triggers the placeholder fallback on reads.
	KindNetwork
	// KindUnauthorized marks a 401. The session is invalidated before the
	// error is returned.
	KindUnauthorized
	// KindValidation marks a 400/422 with field-level messages.
	KindValidation
	// KindNotFound marks a 404; the entity is evicted from the local cache.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// RemoteError is the discriminated result every gateway method returns on
// failure. Fields is populated only for KindValidation.
type RemoteError struct {
	Kind   ErrorKind
	Fields map[string]string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("remote: %s (status %d)", e.Kind, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NetworkErr wraps a transport failure.
func NetworkErr(err error) *RemoteError {
	return &RemoteError{Kind: KindNetwork, Err: err}
}

// UnauthorizedErr marks a rejected token.
func UnauthorizedErr() *RemoteError {
	return &RemoteError{Kind: KindUnauthorized, Status: 401}
}

// ValidationErr carries per-field messages back to the initiating form.
func ValidationErr(fields map[string]string) *RemoteError {
	return &RemoteError{Kind: KindValidation, Fields: fields, Status: 422}
}

// NotFoundErr marks an entity the server no longer knows.
func NotFoundErr() *RemoteError {
	return &RemoteError{Kind: KindNotFound, Status: 404}
}

// UnknownErr wraps an unclassified failure with its HTTP status, if any.
func UnknownErr(status int, err error) *RemoteError {
	return &RemoteError{Kind: KindUnknown, Status: status, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindUnknown when err is not a
// RemoteError.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// FieldsOf returns the validation field map of err, or nil.
func FieldsOf(err error) map[string]string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Fields
	}
	return nil
}
