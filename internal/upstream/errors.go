package upstream

import (
	"errors"
	"fmt"
)

// StatusError is a response with a 4xx or 5xx status. It is permanent: the
// request was delivered and answered, so retrying the same request buys
// nothing before the next refresh.
type StatusError struct {
	Vendor     string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s returned %d: %s", e.Vendor, e.Method, e.URL, e.StatusCode, e.Body)
}

// TransientError marks a timeout or connection-class failure. The refresh
// scheduler reacts by rolling its schedule back so the next scrape retries.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a transient transport
// failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
