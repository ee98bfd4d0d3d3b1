package httpclient

import (
	"errors"
	"fmt"
	stdhttp "net/http"
	"strings"
	"time"
)

// Request is a validated archive call. Exactly one of Path and URL is set.
type Request struct {
	Method string
	// Endpoint is the logical endpoint name, used in logs and decision records.
	Endpoint string
	// Path is appended to the active pool's base URL.
	Path string
	// URL is an absolute pass-through target.
	URL string
	// CallID correlates decision records of one call.
	CallID string
}

// Pool is one archive deployment the client can talk to.
type Pool struct {
	Name    string
	BaseURL string
	Token   string
}

// Response is a successful archive response. The caller must close Body.
type Response struct {
	*stdhttp.Response
	Pool     string
	Attempts int
	CallID   string
}

// ErrRedirect marks a redirect refused by the client's redirect policy.
var ErrRedirect = errors.New("http: redirect not allowed")

// maxErrorBody bounds the body kept in StatusError.
const maxErrorBody = 64 << 10

// StatusError is returned for non-retryable client statuses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	if b := strings.TrimSpace(string(e.Body)); b != "" {
		if len(b) > 200 {
			b = b[:200] + "..."
		}
		msg += ": " + b
	}
	return msg
}

// CallOption overrides client defaults for one call.
type CallOption func(*callSettings)

type callSettings struct {
	startPool   string
	maxAttempts int
	interval    time.Duration
	hasInterval bool
}

// WithStartPool selects the pool the call starts on.
func WithStartPool(name string) CallOption {
	return func(s *callSettings) { s.startPool = name }
}

// WithMaxAttempts overrides the total number of attempts, including the first.
func WithMaxAttempts(n int) CallOption {
	return func(s *callSettings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithInterval overrides the retry interval.
func WithInterval(d time.Duration) CallOption {
	return func(s *callSettings) {
		if d >= 0 {
			s.interval = d
			s.hasInterval = true
		}
	}
}
