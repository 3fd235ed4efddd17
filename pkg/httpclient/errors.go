package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 64 << 10

// StatusError describes a non-2xx response from an external host.
type StatusError struct {
	Host   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Host, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Host, e.Status, e.Body)
}

// Temporary reports whether the failure is on the remote side.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// ParseResponseError drains and closes resp.Body and returns a StatusError
// carrying at most 64 KiB of the body.
func ParseResponseError(resp *http.Response, host string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", host, resp.StatusCode, err)
	}
	return &StatusError{Host: host, Status: resp.StatusCode, Body: string(body)}
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
