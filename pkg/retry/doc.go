// Package retry provides the backoff policy used between attempts: a fixed
// interval baseline, optional exponential growth and jitter, and a
// context-aware wait.
//
// Key Features:
//   - Fixed or exponential delays, capped by MaxDelay
//   - Jitter strategies (None, Equal, Decorrelated)
//   - Connection-level error detection (DefaultRetryable)
//   - Observability hook (OnRetry)
//   - Time abstraction (Now, After) for tests
//
// Computing delays for a custom loop:
//
//	cfg := retry.DefaultConfig()
//	if err := cfg.Normalize(); err != nil {
//	    return err
//	}
//	for attempt := 1; ; attempt++ {
//	    // ... attempt, break on success ...
//	    if err := cfg.Wait(ctx, cfg.Delay(attempt)); err != nil {
//	        return err
//	    }
//	}
//
// Wrapping a whole operation:
//
//	err := retry.DoWithRetryable(ctx, cfg, fn, func(err error) bool {
//	    return errors.Is(err, errBusy)
//	})
//
// For HTTP-specific decisions (status classes, pool failover, Accept
// adjustment) see internal/platform/httpclient, which uses this package only
// for delays and exhaustion errors.
package retry
