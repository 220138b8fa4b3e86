package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind partitions generation failures by how the scheduler should react.
type ErrorKind int

const (
	// KindTransient covers transport errors and anything else not
	// recognized below. Retried with a flat backoff.
	KindTransient ErrorKind = iota
	// KindRateLimited means the service signaled quota exhaustion.
	// Retried with a linearly growing backoff.
	KindRateLimited
	// KindEmptyResponse means the operation completed but returned nothing
	// usable: the service accepted the request and could not fulfill it.
	KindEmptyResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "transient"
	}
}

// Error is a generation failure classified at the service boundary.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain. Anything unclassified
// is treated as transient.
func KindOf(err error) ErrorKind {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	return KindTransient
}

// classify wraps a genai error with its failure kind. The rate-limit
// distinction is made here, where the service response is first interpreted,
// so nothing downstream has to match error strings.
func classify(op string, err error) *Error {
	return &Error{Kind: kindOfAPIError(err), Op: op, Err: err}
}

func kindOfAPIError(err error) ErrorKind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return kindOfStatus(apiErr.Code, apiErr.Status)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return kindOfStatus(apiErrPtr.Code, apiErrPtr.Status)
	}
	// Long-running operation errors arrive as an unstructured payload, so
	// the quota marker check happens on the message here at the boundary.
	if rateLimitMarker(err.Error()) {
		return KindRateLimited
	}
	return KindTransient
}

func kindOfStatus(code int, status string) ErrorKind {
	if code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED" {
		return KindRateLimited
	}
	return KindTransient
}

func rateLimitMarker(msg string) bool {
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429")
}
