package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"
	"os"
	"syscall"
	"time"
)

// Strategy selects how the base delay grows between attempts
type Strategy int

const (
	// StrategyFixed waits Interval between every pair of attempts
	StrategyFixed Strategy = iota
	// StrategyExponential multiplies Interval by Multiplier after each attempt
	StrategyExponential
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "fixed":
		return StrategyFixed, nil
	case "exponential":
		return StrategyExponential, nil
	default:
		return StrategyFixed, fmt.Errorf("retry: unknown strategy %q", s)
	}
}

func (s Strategy) String() string {
	if s == StrategyExponential {
		return "exponential"
	}
	return "fixed"
}

// JitterStrategy defines the jitter strategy to use
type JitterStrategy int

const (
	// JitterNone disables jitter
	JitterNone JitterStrategy = iota
	// JitterEqual applies uniform jitter (equal chance of any delay in range)
	JitterEqual
	// JitterDecorrelated applies decorrelated jitter (AWS recommended)
	JitterDecorrelated
)

// Config defines retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first one)
	MaxAttempts int
	// Interval is the fixed delay, or the first delay for exponential backoff
	Interval time.Duration
	// MaxDelay caps every computed delay
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
	// Strategy selects fixed or exponential growth
	Strategy Strategy
	// JitterStrategy defines the jitter algorithm to use
	JitterStrategy JitterStrategy
	// Rand is the random source for jitter (optional, uses local source if nil)
	Rand *rand.Rand
	// OnRetry is called on each retry attempt for observability
	OnRetry func(attempt int, err error, nextDelay time.Duration)
	// Now returns current time (for testing, defaults to time.Now)
	Now func() time.Time
	// After creates a timer channel (for testing, defaults to time.After)
	After func(d time.Duration) <-chan time.Time
}

// DefaultConfig returns the archive client defaults: five attempts, five seconds apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Interval:    5 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  2.0,
		Strategy:    StrategyFixed,
	}
}

// Normalize validates and normalizes the configuration
func (c *Config) Normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.Interval < 0 {
		return errors.New("retry: Interval cannot be negative")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.Interval > c.MaxDelay {
		return errors.New("retry: Interval cannot be greater than MaxDelay")
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}

	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.After == nil {
		c.After = time.After
	}
	return nil
}

// Delay returns the wait before attempt+1, given that attempt (1-based) just failed.
// Config must be normalized.
func (c Config) Delay(attempt int) time.Duration {
	return c.applyJitter(c.calculateDelay(attempt))
}

// Wait blocks for d or until ctx is done, whichever comes first.
func (c Config) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	after := c.After
	if after == nil {
		after = time.After
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-after(d):
		return nil
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(ctx context.Context) error

// IsRetryableFunc determines if an error should trigger a retry
type IsRetryableFunc func(err error) bool

// RetriesExceededError is returned when retries are exhausted
type RetriesExceededError struct {
	LastError     error
	Attempts      int
	TotalDuration time.Duration
	Reason        string
}

func (e *RetriesExceededError) Error() string {
	return "retry: " + e.Reason + " after " + e.TotalDuration.String() + " (" +
		fmt.Sprintf("%d", e.Attempts) + " attempts): " + e.LastError.Error()
}

func (e *RetriesExceededError) Unwrap() error {
	return e.LastError
}

// DefaultRetryable returns true for connection-level failures worth another attempt.
// Context cancellation and deadlines are never retryable.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	type netError interface {
		Timeout() bool
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if ne, ok := urlErr.Err.(netError); ok && ne.Timeout() {
			return true
		}
		var dnsErr *net.DNSError
		if errors.As(urlErr.Err, &dnsErr) && dnsErr.IsTemporary {
			return true
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		// Nothing was sent yet: refused, unreachable or unresolvable hosts.
		if opErr.Op == "dial" {
			return true
		}
		var syscallErr *os.SyscallError
		if errors.As(opErr.Err, &syscallErr) {
			switch syscallErr.Err {
			case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
				syscall.ENETDOWN, syscall.ENETUNREACH, syscall.EPIPE,
				syscall.EHOSTUNREACH, syscall.ETIMEDOUT:
				return true
			}
		}
	}

	type temporary interface {
		Temporary() bool
	}
	if t, ok := err.(temporary); ok {
		return t.Temporary()
	}
	return false
}

// Do executes a function with retry logic using the configured backoff
func Do(ctx context.Context, config Config, fn RetryableFunc) error {
	return DoWithRetryable(ctx, config, fn, DefaultRetryable)
}

// DoWithRetryable executes a function with retry logic and custom retryable check
func DoWithRetryable(ctx context.Context, config Config, fn RetryableFunc, isRetryable IsRetryableFunc) error {
	configCopy := config
	if err := configCopy.Normalize(); err != nil {
		return err
	}

	var lastErr error
	startTime := configCopy.Now()

	for attempt := 1; attempt <= configCopy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == configCopy.MaxAttempts {
			break
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		delay := configCopy.Delay(attempt)
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); delay > remaining {
				delay = remaining
			}
		}
		if configCopy.OnRetry != nil {
			configCopy.OnRetry(attempt, lastErr, delay)
		}
		if err := configCopy.Wait(ctx, delay); err != nil {
			return err
		}
	}

	return &RetriesExceededError{
		LastError:     lastErr,
		Attempts:      configCopy.MaxAttempts,
		TotalDuration: configCopy.Now().Sub(startTime),
		Reason:        "max attempts exceeded",
	}
}

// calculateDelay calculates the base delay for the given attempt
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := c.Interval
	if c.Strategy == StrategyExponential {
		for i := 1; i < attempt; i++ {
			if delay > c.MaxDelay/time.Duration(c.Multiplier) {
				return c.MaxDelay
			}
			delay = time.Duration(float64(delay) * c.Multiplier)
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// applyJitter applies the configured jitter strategy to the delay
func (c Config) applyJitter(baseDelay time.Duration) time.Duration {
	if baseDelay <= 0 || c.Rand == nil {
		return baseDelay
	}

	switch c.JitterStrategy {
	case JitterEqual:
		// Equal jitter: half fixed, half random
		half := baseDelay / 2
		return clamp(half+time.Duration(c.Rand.Int63n(int64(half)+1)), 0, c.MaxDelay)

	case JitterDecorrelated:
		// Decorrelated jitter: between baseDelay and 2*baseDelay
		return clamp(baseDelay+time.Duration(c.Rand.Int63n(int64(baseDelay))), 0, c.MaxDelay)

	default:
		return baseDelay
	}
}

// clamp ensures the value is within the specified bounds
func clamp(value, min, max time.Duration) time.Duration {
	if value < min {
		return min
	}
	if max > 0 && value > max {
		return max
	}
	return value
}
