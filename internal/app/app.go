package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"swh-client/internal/config"
	"swh-client/internal/endpoint"
	"swh-client/internal/platform/audit"
	"swh-client/internal/platform/httpclient"
	"swh-client/internal/platform/logger"
	"swh-client/internal/platform/metrics"
	"swh-client/internal/shared"
	"swh-client/internal/swh"
	"swh-client/pkg/retry"
)

// Options are command line overrides applied on top of the loaded config.
type Options struct {
	ConfigPath  string
	Pool        string
	Shape       string
	Verbose     bool
	MetricsFile string
	// Console receives log output (default: stderr).
	Console io.Writer
	// ReadOnlyAudit opens the decision store for queries only.
	ReadOnlyAudit bool
}

// App wires application components.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	http    *httpclient.Client
	client  *swh.Client
	audit   *audit.Store
	metrics *metrics.Recorder
}

// New loads configuration and builds the archive client with its recorders.
func New(ctx context.Context, o Options) (*App, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Pool != "" {
		if cfg.Pool(o.Pool) == nil {
			return nil, shared.Errorf(shared.KindCaller, "pool %q is not configured", o.Pool)
		}
		cfg.DefaultPool = o.Pool
	}
	if o.Shape != "" {
		cfg.Response.Shape = o.Shape
	}
	if o.Verbose {
		cfg.Log.Verbose = true
	}
	if o.MetricsFile != "" {
		cfg.Metrics.File = o.MetricsFile
	}

	shape, err := swh.ParseShape(cfg.Response.Shape)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindCaller)
	}
	strategy, err := retry.ParseStrategy(cfg.Retry.Backoff)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindCaller)
	}

	log := logger.New(logger.Options{
		Env:           cfg.Env,
		ConsoleLevel:  cfg.Log.ConsoleLevel,
		FileLevel:     cfg.Log.FileLevel,
		File:          cfg.Log.File,
		FileDatestamp: cfg.Log.FileDatestamp,
		Verbose:       cfg.Log.Verbose,
		Console:       o.Console,
		App:           "swhctl",
	})

	a := &App{cfg: cfg, log: log}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.Retry.MaxAttempts
	rc.Interval = cfg.Retry.Interval
	rc.MaxDelay = cfg.Retry.MaxDelay
	rc.Strategy = strategy

	pools := make([]httpclient.Pool, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		pools = append(pools, httpclient.Pool{Name: p.Name, BaseURL: p.URL, Token: p.Token})
	}

	httpOpts := []httpclient.Option{
		httpclient.WithLogger(log),
		httpclient.WithTimeout(cfg.HTTP.Timeout),
		httpclient.WithConnectTimeout(cfg.HTTP.ConnectTimeout),
		httpclient.WithIPv4Only(cfg.HTTP.IPv4Only),
		httpclient.WithRateLimit(cfg.HTTP.RateLimit),
		httpclient.WithRetry(rc),
		httpclient.WithPools(pools...),
		httpclient.WithDefaultPool(cfg.DefaultPool),
	}

	if cfg.Audit.DSN != "" {
		if o.ReadOnlyAudit {
			a.audit, err = audit.OpenReadOnly(ctx, cfg.Audit.DSN, log)
		} else {
			a.audit, err = audit.Open(ctx, cfg.Audit.DSN, log)
		}
		if err != nil {
			_ = logger.Close(log)
			return nil, err
		}
		if !o.ReadOnlyAudit {
			httpOpts = append(httpOpts, httpclient.WithRecorder(a.audit))
		}
	}
	if cfg.Metrics.File != "" {
		a.metrics = metrics.New(nil)
		httpOpts = append(httpOpts, httpclient.WithRecorder(a.metrics))
	}

	a.http = httpclient.New(httpOpts...)
	v := endpoint.NewValidator(
		endpoint.WithMaxURLLength(cfg.Validation.MaxURLLength),
		endpoint.WithValidatorLogger(log),
	)
	a.client = swh.New(a.http,
		swh.WithBuilder(endpoint.NewBuilder(v)),
		swh.WithLogger(log),
		swh.WithShape(shape),
	)

	log.Debug("client ready",
		slog.String("pool", cfg.DefaultPool),
		slog.Int("pools", len(pools)),
		slog.String("shape", shape.String()),
		slog.Bool("audit", a.audit != nil),
		slog.Bool("metrics", a.metrics != nil))
	return a, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.log }

// Client returns the archive client.
func (a *App) Client() *swh.Client { return a.client }

// CallOptions tune one CLI call.
type CallOptions struct {
	MaxAttempts int
	Interval    time.Duration
	// HasInterval marks Interval as set; zero is a valid interval.
	HasInterval bool
}

// Call runs one archive request built from command line arguments. The call
// id is returned even when the call fails so its decisions can be looked up.
func (a *App) Call(ctx context.Context, method, target string, args []string, co CallOptions) (*swh.Result, string, error) {
	id := uuid.NewString()
	opts := []swh.CallOption{swh.WithMethod(method), swh.WithCallID(id)}
	if co.MaxAttempts > 0 {
		opts = append(opts, swh.WithMaxAttempts(co.MaxAttempts))
	}
	if co.HasInterval {
		opts = append(opts, swh.WithInterval(co.Interval))
	}
	res, err := a.client.Invoke(ctx, target, ParseParams(target, args), opts...)
	return res, id, err
}

// Decisions lists the recorded decisions of one call.
func (a *App) Decisions(ctx context.Context, callID string) ([]audit.Entry, error) {
	if a.audit == nil {
		return nil, shared.Errorf(shared.KindCaller, "decision store is not configured (set SWH_AUDIT_DB or audit.dsn)")
	}
	return a.audit.ByCall(ctx, callID)
}

// Close flushes metrics and releases the store, connections and log file.
func (a *App) Close() error {
	var errs []error
	if a.metrics != nil {
		if err := metrics.WriteTextfile(a.cfg.Metrics.File, a.metrics.Registry()); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit: %w", err))
		}
	}
	a.http.CloseIdleConnections()
	if err := logger.Close(a.log); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseParams converts command line arguments into call parameters. Arguments
// of integer endpoints become ints when they parse; anything else stays a
// string and is rejected by validation.
func ParseParams(target string, args []string) []any {
	d, err := endpoint.Lookup(target)
	integer := err == nil && d.Kind == endpoint.KindInteger
	params := make([]any, 0, len(args))
	for _, s := range args {
		if integer {
			if n, err := strconv.Atoi(s); err == nil {
				params = append(params, n)
				continue
			}
		}
		params = append(params, s)
	}
	return params
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case shared.IsCanceled(err):
		return 130
	case shared.IsCaller(err), shared.IsValidation(err):
		return 2
	default:
		return 1
	}
}
