package render

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrEmptyDocument is returned when a page responds without any HTML.
var ErrEmptyDocument = errors.New("page returned an empty document")

// NetworkError is returned when no response was received for a URL.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is returned when the server responded with status >= 400.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server responded with error status %d for %s", e.Status, e.URL)
}

// TimeoutError is returned when navigation did not finish within the timeout.
type TimeoutError struct {
	URL     string
	Timeout string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s timed out after %s", e.URL, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Error kinds reported by ErrorKind.
const (
	KindNetwork = "network"
	KindHTTP    = "http"
	KindTimeout = "timeout"
	KindOther   = "other"
)

// ErrorKind classifies err into one of the Kind* labels.
func ErrorKind(err error) string {
	var (
		netErr     *NetworkError
		httpErr    *HTTPError
		timeoutErr *TimeoutError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindOther
	}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
