// Package swh is the call surface of the archive client: one Invoke per
// logical request, returning the raw response and optionally its decoded JSON.
package swh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"swh-client/internal/endpoint"
	"swh-client/internal/platform/httpclient"
	"swh-client/internal/shared"
)

// Shape selects what Invoke hands back.
type Shape int

const (
	// ShapeJSON decodes the body into Result.Data.
	ShapeJSON Shape = iota
	// ShapeRaw keeps only Result.Body.
	ShapeRaw
	// ShapeWrapped fills both Body and Data.
	ShapeWrapped
)

func (s Shape) String() string {
	switch s {
	case ShapeRaw:
		return "raw"
	case ShapeWrapped:
		return "wrapped"
	default:
		return "json"
	}
}

// ParseShape maps a config string to a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return ShapeJSON, nil
	case "raw":
		return ShapeRaw, nil
	case "wrapped":
		return ShapeWrapped, nil
	default:
		return ShapeJSON, fmt.Errorf("swh: unknown response shape %q", s)
	}
}

// ErrDecode is returned when a JSON shape was requested but the body is not JSON.
var ErrDecode = errors.New("swh: response is not valid JSON")

// Result is a successful archive response.
type Result struct {
	CallID     string
	StatusCode int
	Header     http.Header
	URL        string
	Pool       string
	Attempts   int
	Body       []byte
	Data       any
}

// Executor sends built requests. *httpclient.Client implements it.
type Executor interface {
	Do(ctx context.Context, req httpclient.Request, opts ...httpclient.CallOption) (*httpclient.Response, error)
}

// Client builds and executes archive calls.
type Client struct {
	exec    Executor
	builder *endpoint.Builder
	log     *slog.Logger
	shape   Shape
	newID   func() string
}

// Option configures Client.
type Option func(*Client)

// WithBuilder sets the request builder.
func WithBuilder(b *endpoint.Builder) Option {
	return func(c *Client) {
		if b != nil {
			c.builder = b
		}
	}
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithShape sets the default response shape.
func WithShape(s Shape) Option {
	return func(c *Client) { c.shape = s }
}

// WithIDGenerator replaces the call id source.
func WithIDGenerator(f func() string) Option {
	return func(c *Client) {
		if f != nil {
			c.newID = f
		}
	}
}

// New creates a Client on top of exec.
func New(exec Executor, opts ...Option) *Client {
	c := &Client{
		exec:    exec,
		builder: endpoint.NewBuilder(nil),
		log:     slog.Default(),
		shape:   ShapeJSON,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CallOption overrides defaults for one Invoke.
type CallOption func(*callSettings)

type callSettings struct {
	method string
	shape  Shape
	callID string
	exec   []httpclient.CallOption
}

// WithMethod sets the HTTP method. GET is the default.
func WithMethod(m string) CallOption {
	return func(s *callSettings) { s.method = m }
}

// WithResponseShape overrides the response shape.
func WithResponseShape(sh Shape) CallOption {
	return func(s *callSettings) { s.shape = sh }
}

// WithCallID tags the call with id instead of a generated one.
func WithCallID(id string) CallOption {
	return func(s *callSettings) { s.callID = id }
}

// WithPool starts the call on the named pool.
func WithPool(name string) CallOption {
	return func(s *callSettings) { s.exec = append(s.exec, httpclient.WithStartPool(name)) }
}

// WithMaxAttempts bounds the call's total attempts.
func WithMaxAttempts(n int) CallOption {
	return func(s *callSettings) { s.exec = append(s.exec, httpclient.WithMaxAttempts(n)) }
}

// WithInterval sets the delay between attempts.
func WithInterval(d time.Duration) CallOption {
	return func(s *callSettings) { s.exec = append(s.exec, httpclient.WithInterval(d)) }
}

// Invoke performs one logical request. name is an endpoint name or an absolute URL.
func (c *Client) Invoke(ctx context.Context, name string, params []any, opts ...CallOption) (*Result, error) {
	s := callSettings{method: http.MethodGet, shape: c.shape}
	for _, o := range opts {
		o(&s)
	}

	req, err := c.builder.Build(ctx, s.method, name, params...)
	if err != nil {
		c.log.WarnContext(ctx, "call rejected",
			slog.String("endpoint", name),
			slog.String("kind", shared.KindOf(err).String()),
			slog.Any("error", err))
		return nil, err
	}
	req.CallID = s.callID
	if req.CallID == "" {
		req.CallID = c.newID()
	}

	resp, err := c.exec.Do(ctx, req, s.exec...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, shared.Canceled(ctx.Err())
		}
		return nil, shared.MarkKind(shared.Wrap(err, "read response body"), shared.KindTransport)
	}

	res := &Result{
		CallID:     req.CallID,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Pool:       resp.Pool,
		Attempts:   resp.Attempts,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		res.URL = resp.Request.URL.String()
	}
	if s.shape != ShapeJSON || req.Method == http.MethodHead {
		res.Body = body
	}
	if s.shape == ShapeRaw || req.Method == http.MethodHead || len(body) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(body, &res.Data); err != nil {
		res.Body = body
		return res, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return res, nil
}
