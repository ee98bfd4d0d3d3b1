package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"swh-client/internal/shared"
	"swh-client/pkg/retry"
)

const (
	// DefaultUserAgent identifies the client to the archive.
	DefaultUserAgent = "swh-client/1.0"
	// DefaultAccept is sent until the server answers 406.
	DefaultAccept = "application/json, text/plain;q=0.9, */*;q=0.8"
	acceptJSON    = "application/json"
)

// Client executes archive requests against an ordered list of pools with
// bounded retries and forward-only failover.
type Client struct {
	hc             *stdhttp.Client
	log            *slog.Logger
	retry          retry.Config
	headers        map[string]string
	urlRedactor    func(*url.URL) string
	pools          []Pool
	startPool      string
	connectTimeout time.Duration
	ipv4Only       bool
	customRT       bool
	limiter        *rate.Limiter
	recorders      []Recorder
	recorder       Recorder
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the total per-attempt timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		if t > 0 {
			c.hc.Timeout = t
		}
	}
}

// WithConnectTimeout sets the dial timeout.
func WithConnectTimeout(t time.Duration) Option {
	return func(c *Client) {
		if t > 0 {
			c.connectTimeout = t
		}
	}
}

// WithIPv4Only restricts dialing to IPv4 addresses.
func WithIPv4Only(v bool) Option {
	return func(c *Client) { c.ipv4Only = v }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetry sets the backoff policy. MaxAttempts counts the first attempt.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			if c.headers == nil {
				c.headers = make(map[string]string)
			}
			c.headers[k] = v
		}
	}
}

// WithoutHeaders removes default headers.
func WithoutHeaders(keys ...string) Option {
	return func(c *Client) {
		for _, k := range keys {
			delete(c.headers, k)
		}
	}
}

// WithURLRedactor sets URL redactor for logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
			c.customRT = true
		}
	}
}

// WithPools sets the ordered pool list. Failover moves forward through it.
func WithPools(pools ...Pool) Option {
	return func(c *Client) { c.pools = append([]Pool(nil), pools...) }
}

// WithDefaultPool selects the pool calls start on unless overridden.
func WithDefaultPool(name string) Option {
	return func(c *Client) { c.startPool = name }
}

// WithLimiter waits on l before every attempt.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRateLimit allows rps attempts per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRecorder adds a decision recorder. Decisions are always logged.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxConnsPerHost = 100
	tr.MaxIdleConnsPerHost = 100
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second
	// HTTP/1.1 only.
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = map[string]func(string, *tls.Conn) stdhttp.RoundTripper{}

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:       5 * time.Second,
			Transport:     tr,
			CheckRedirect: checkRedirect,
		},
		log:            slog.Default(),
		retry:          retry.DefaultConfig(),
		connectTimeout: 5 * time.Second,
		headers: map[string]string{
			"User-Agent": DefaultUserAgent,
			"Accept":     DefaultAccept,
		},
	}
	for _, o := range opts {
		o(c)
	}
	if !c.customRT {
		tr.DialContext = c.dialContext()
	}
	c.recorder = MultiRecorder(append([]Recorder{LogRecorder{Log: c.log}}, c.recorders...))
	return c
}

func (c *Client) dialContext() func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: c.connectTimeout, KeepAlive: 30 * time.Second}
	ipv4 := c.ipv4Only
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if ipv4 && network == "tcp" {
			network = "tcp4"
		}
		return d.DialContext(ctx, network, addr)
	}
}

// checkRedirect allows a single https to https redirect.
func checkRedirect(req *stdhttp.Request, via []*stdhttp.Request) error {
	if len(via) > 1 {
		return fmt.Errorf("%w: more than one redirect", ErrRedirect)
	}
	if req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s target", ErrRedirect, req.URL.Scheme)
	}
	return nil
}

// Pools returns a copy of the configured pools.
func (c *Client) Pools() []Pool {
	return append([]Pool(nil), c.pools...)
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}

// redactURL returns redacted URL string.
func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}

func (c *Client) poolIndex(name string) int {
	if name == "" {
		return 0
	}
	for i, p := range c.pools {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// target resolves the attempt URL and whether the pool credential applies.
func (c *Client) target(req Request, pool Pool) (string, bool) {
	base := strings.TrimSuffix(pool.BaseURL, "/")
	if req.URL == "" {
		return base + req.Path, true
	}
	// Pass-through URLs on a known pool are rebased so failover reaches the next pool.
	for _, p := range c.pools {
		pb := strings.TrimSuffix(p.BaseURL, "/")
		if pb != "" && strings.HasPrefix(req.URL, pb+"/") {
			return base + strings.TrimPrefix(req.URL, pb), true
		}
	}
	return req.URL, false
}

func (c *Client) newRequest(ctx context.Context, req Request, pool Pool, rc RetryContext) (*stdhttp.Request, error) {
	target, own := c.target(req, pool)
	r, err := stdhttp.NewRequestWithContext(ctx, req.Method, target, nil)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindCaller)
	}
	for k, v := range c.headers {
		r.Header.Set(k, v)
	}
	if rc.AcceptJSON {
		r.Header.Set("Accept", acceptJSON)
	}
	if own && pool.Token != "" {
		r.Header.Set("Authorization", "Bearer "+pool.Token)
	}
	return r, nil
}

// Do sends the request, retrying and failing over until a terminal decision.
func (c *Client) Do(ctx context.Context, req Request, opts ...CallOption) (*Response, error) {
	s := callSettings{startPool: c.startPool, maxAttempts: c.retry.MaxAttempts}
	for _, o := range opts {
		o(&s)
	}
	if len(c.pools) == 0 {
		return nil, shared.Errorf(shared.KindCaller, "no server pools configured")
	}
	start := c.poolIndex(s.startPool)
	if start < 0 {
		return nil, shared.Errorf(shared.KindCaller, "unknown pool %q", s.startPool)
	}
	if (req.Path == "") == (req.URL == "") {
		return nil, shared.Errorf(shared.KindCaller, "request needs exactly one of path or url")
	}

	cfg := c.retry
	cfg.MaxAttempts = s.maxAttempts
	if s.hasInterval {
		cfg.Interval = s.interval
		if cfg.MaxDelay > 0 && cfg.MaxDelay < cfg.Interval {
			cfg.MaxDelay = cfg.Interval
		}
	}
	if err := cfg.Normalize(); err != nil {
		return nil, shared.MarkKind(err, shared.KindCaller)
	}

	limits := Limits{MaxAttempts: cfg.MaxAttempts, Pools: len(c.pools)}
	rc := RetryContext{Pool: start}
	began := cfg.Now()
	var lastErr error

	for {
		pool := c.pools[rc.Pool]
		base := Record{CallID: req.CallID, Endpoint: req.Endpoint, Method: req.Method, Pool: pool.Name}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.canceled(ctx, base, rc, err)
			}
		}
		rc.Attempt++
		base.Attempt = rc.Attempt

		r, err := c.newRequest(ctx, req, pool, rc)
		if err != nil {
			return nil, err
		}
		base.URL = c.redactURL(r.URL)

		st := time.Now()
		resp, err := c.hc.Do(r)
		base.Duration = time.Since(st)
		if err != nil && ctx.Err() != nil {
			return nil, c.canceled(ctx, base, rc, ctx.Err())
		}

		out := Outcome{Err: err}
		if resp != nil {
			out.StatusCode = resp.StatusCode
		}
		d := Decide(rc, out, limits)
		rec := base
		rec.Status, rec.Class, rec.Action, rec.Reason, rec.At = out.StatusCode, d.Class, d.Action, d.Reason, time.Now()

		switch d.Action {
		case ActionSucceed:
			c.recorder.Record(ctx, rec)
			return &Response{Response: resp, Pool: pool.Name, Attempts: rc.Attempt, CallID: req.CallID}, nil

		case ActionRetry:
			lastErr = attemptError(r, resp, err)
			delay := cfg.Delay(rc.Attempt)
			if resp != nil {
				if ra := retryAfter(resp.Header.Get("Retry-After")); ra > delay {
					delay = min(ra, cfg.MaxDelay)
				}
				drainAndClose(resp.Body)
			}
			if deadline, ok := ctx.Deadline(); ok {
				if rem := time.Until(deadline); delay > rem {
					delay = rem
				}
			}
			rec.Delay = delay
			c.recorder.Record(ctx, rec)
			if d.Class == ClassNotAcceptable {
				rc.AcceptJSON = true
			}
			rc.LastFailure = d.Class
			if err := cfg.Wait(ctx, delay); err != nil {
				return nil, c.canceled(ctx, base, rc, err)
			}

		case ActionFailover:
			lastErr = attemptError(r, resp, err)
			drainAndClose(resp.Body)
			c.recorder.Record(ctx, rec)
			rc.Pool++
			rc.LastFailure = d.Class

		case ActionGiveUp:
			lastErr = attemptError(r, resp, err)
			if resp != nil {
				drainAndClose(resp.Body)
			}
			c.recorder.Record(ctx, rec)
			exceeded := &retry.RetriesExceededError{
				LastError:     lastErr,
				Attempts:      rc.Attempt,
				TotalDuration: cfg.Now().Sub(began),
				Reason:        "max attempts exceeded",
			}
			return nil, shared.MarkKind(exceeded, shared.KindRetryExhausted)

		default:
			c.recorder.Record(ctx, rec)
			return nil, c.failure(r, resp, err, d)
		}
	}
}

// canceled records and returns a cancellation error.
func (c *Client) canceled(ctx context.Context, rec Record, rc RetryContext, err error) error {
	rec.Attempt = rc.Attempt
	rec.Class = ClassCanceled
	rec.Action = ActionFail
	rec.Reason = err.Error()
	rec.At = time.Now()
	c.recorder.Record(ctx, rec)
	return shared.Canceled(err)
}

func (c *Client) failure(r *stdhttp.Request, resp *stdhttp.Response, err error, d Decision) error {
	// A refused redirect also lands here: err is set and resp is the previous, already closed response.
	if err != nil {
		if d.Class == ClassCanceled {
			return shared.Canceled(err)
		}
		return shared.MarkKind(fmt.Errorf("%s %s: %w", r.Method, c.redactURL(r.URL), err), shared.KindTransport)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	drainAndClose(resp.Body)
	se := &StatusError{Method: r.Method, URL: c.redactURL(r.URL), StatusCode: resp.StatusCode, Body: body}
	if d.Class == ClassForbidden {
		return shared.MarkKind(se, shared.KindFailoverExhausted)
	}
	return shared.MarkKind(se, shared.KindClient)
}

func attemptError(r *stdhttp.Request, resp *stdhttp.Response, err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%s %s: unexpected status %d", r.Method, r.URL.Redacted(), resp.StatusCode)
}
