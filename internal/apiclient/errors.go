package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNoContent = errors.New("empty response body")

// HTTPError is returned for every non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s %s)", e.StatusCode, e.Status, e.Method, e.URL)
}

// DecodeError reports a response that does not match the expected schema.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
