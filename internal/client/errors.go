package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrInvalidCredentials is returned by Login when the server rejects the
// username/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NetworkError is a transport failure: the request never got an HTTP answer.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network error: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP answer.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: %d %s", e.Op, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Code, e.Body)
}

// ProtocolError is a 2xx answer whose body does not match the contract.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Reason) }

// IsAuthError reports whether err means the session or credentials were
// rejected (401/403).
func IsAuthError(err error) bool {
	if errors.Is(err, ErrInvalidCredentials) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
	}
	return false
}

// IsNetworkError reports whether err is a transient transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if resp.IsError() {
		return &StatusError{Op: op, Code: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return nil
}
