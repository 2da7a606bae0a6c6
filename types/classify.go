package types

import (
	"errors"
	"net/http"
)

// Outcome is the classification of a single replay attempt.
type Outcome int

const (
	// OutcomeSuccess means the operation completed and can be removed.
	OutcomeSuccess Outcome = iota
	// OutcomeTerminal means the server rejected the operation; retrying it
	// unchanged will never succeed, so it is dropped.
	OutcomeTerminal
	// OutcomeTransient means no usable response was received; the operation
	// is retained for a later drain.
	OutcomeTransient
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classifier maps a transport result to an Outcome.
type Classifier func(resp *Response, err error) Outcome

// StatusOf extracts the status code of a transport result.
//
// A *TransportError anywhere in err's chain wins. Otherwise a non-nil err
// yields 0 (no response), and a nil err yields the response status.
//
// Parameters:
//   - resp: The response, may be nil
//   - err: The transport error, may be nil
//
// Returns:
//   - int: The status code, or 0 when no response was received
func StatusOf(resp *Response, err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	if err != nil || resp == nil {
		return 0
	}

	return resp.Status
}

// Classify is the default Classifier.
//
// Classification table:
//   - nil error and status below 400 (or no status): OutcomeSuccess
//   - no status (network failure, timeout, cancellation): OutcomeTransient
//   - 408 Request Timeout, 429 Too Many Requests: OutcomeTransient
//   - any other 4xx: OutcomeTerminal
//   - 5xx: OutcomeTransient
//
// 408 and 429 are exceptions to the plain "4xx is terminal" rule, and 5xx
// responses are kept for retry rather than dropped: both say nothing about
// the request itself, only about the server's state at the time. Use a
// custom Classifier (WithClassifier) for the strict 4xx rule.
//
// Parameters:
//   - resp: The response, may be nil
//   - err: The transport error, may be nil
//
// Returns:
//   - Outcome: The classification
func Classify(resp *Response, err error) Outcome {
	status := StatusOf(resp, err)
	if err == nil && status < http.StatusBadRequest {
		return OutcomeSuccess
	}

	switch {
	case status == 0:
		return OutcomeTransient
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return OutcomeTransient
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return OutcomeTerminal
	default:
		return OutcomeTransient
	}
}
