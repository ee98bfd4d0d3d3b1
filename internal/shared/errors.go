// Package shared contains common error types and utilities.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error classes shared by the endpoint layer and the executor.
var (
	// ErrCaller indicates a programming error at the call site: unknown endpoint,
	// wrong parameter count or parameter type, unsupported method.
	ErrCaller = errors.New("caller error")

	// ErrValidation indicates a malformed URL, hash or identifier parameter
	ErrValidation = errors.New("validation failed")

	// ErrTransport indicates a retryable transport failure (connection, 5xx, 406)
	ErrTransport = errors.New("transport failure")

	// ErrRetryExhausted indicates that retries of a retryable failure ran out
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrFailoverExhausted indicates that every server pool rejected the credentials
	ErrFailoverExhausted = errors.New("failover exhausted")

	// ErrClient indicates a non-retryable client-side HTTP failure (4xx, redirect policy)
	ErrClient = errors.New("client error")

	// ErrCanceled indicates the caller aborted the call through its context
	ErrCanceled = errors.New("call canceled")
)

// Kind represents a category of error for easier classification and handling.
type Kind int

const (
	// KindUnknown represents an unclassified error
	KindUnknown Kind = iota
	// KindCaller represents call-site bugs
	KindCaller
	// KindValidation represents malformed parameters
	KindValidation
	// KindTransport represents retryable transport failures
	KindTransport
	// KindRetryExhausted represents a retryable failure that outlived its attempts
	KindRetryExhausted
	// KindFailoverExhausted represents 403 on every configured pool
	KindFailoverExhausted
	// KindClient represents non-retryable client errors
	KindClient
	// KindCanceled represents caller cancellation
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindCaller:
		return "Caller"
	case KindValidation:
		return "Validation"
	case KindTransport:
		return "Transport"
	case KindRetryExhausted:
		return "RetryExhausted"
	case KindFailoverExhausted:
		return "FailoverExhausted"
	case KindClient:
		return "Client"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// kindToSentinel maps error kinds to their corresponding sentinel errors.
var kindToSentinel = map[Kind]error{
	KindCaller:            ErrCaller,
	KindValidation:        ErrValidation,
	KindTransport:         ErrTransport,
	KindRetryExhausted:    ErrRetryExhausted,
	KindFailoverExhausted: ErrFailoverExhausted,
	KindClient:            ErrClient,
	KindCanceled:          ErrCanceled,
}

// kindPriorities defines the deterministic order for error classification.
// Terminal classes come before the transport class they may wrap.
var kindPriorities = []struct {
	kind Kind
	err  error
}{
	{KindCanceled, nil}, // ErrCanceled or context.Canceled
	{KindCaller, ErrCaller},
	{KindValidation, ErrValidation},
	{KindFailoverExhausted, ErrFailoverExhausted},
	{KindRetryExhausted, ErrRetryExhausted},
	{KindClient, ErrClient},
	{KindTransport, ErrTransport},
}

// KindOf returns the Kind of the given error by checking against known sentinel errors.
// It traverses the error chain using a deterministic priority order:
//
//  1. KindCanceled (ErrCanceled, context.Canceled)
//  2. KindCaller, KindValidation
//  3. KindFailoverExhausted, KindRetryExhausted
//  4. KindClient
//  5. KindTransport (lowest: exhausted retries wrap the last transport error)
//
// Returns KindUnknown for unrecognized errors.
//
// Example:
//
//	switch shared.KindOf(err) {
//	case shared.KindCaller, shared.KindValidation:
//	    return exitUsage
//	case shared.KindCanceled:
//	    return exitInterrupted
//	default:
//	    return exitFailure
//	}
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	for _, priority := range kindPriorities {
		switch priority.kind {
		case KindCanceled:
			if IsCanceled(err) {
				return KindCanceled
			}
		default:
			if errors.Is(err, priority.err) {
				return priority.kind
			}
		}
	}

	return KindUnknown
}

// HasKind reports whether the given error has the specified kind.
// It is equivalent to KindOf(err) == kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SentinelOf returns the sentinel error for the given Kind.
// For KindUnknown it returns nil.
func SentinelOf(kind Kind) error {
	if sentinel, exists := kindToSentinel[kind]; exists {
		return sentinel
	}
	return nil
}

// MarkKind wraps an error with the sentinel error for the given kind,
// preserving the original error through error wrapping.
// Both KindOf(MarkKind(err, kind)) == kind and errors.Is(MarkKind(err, kind), err) hold.
// If err is nil, returns the sentinel error for the kind.
// If kind is KindUnknown, returns the original error unchanged.
//
// Marking an error with a kind it already has returns the error unchanged.
//
//	if errors.Is(err, swhid.ErrInvalid) {
//	    return shared.MarkKind(err, shared.KindValidation)
//	}
func MarkKind(err error, kind Kind) error {
	sentinel := SentinelOf(kind)
	if err == nil {
		return sentinel
	}
	if sentinel == nil {
		return err
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Errorf builds a new error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return MarkKind(fmt.Errorf(format, args...), kind)
}

// Wrap wraps an error with additional context.
// It returns a new error that formats as "context: err".
// If err is nil, Wrap returns nil.
// If context is empty, returns the original error.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(format, args...)
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Canceled marks a context error as a caller cancellation.
// The result matches ErrCanceled and the original context error.
func Canceled(ctxErr error) error {
	if ctxErr == nil {
		ctxErr = context.Canceled
	}
	return MarkKind(ctxErr, KindCanceled)
}

// IsCanceled reports whether the error indicates a caller cancellation.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// IsTimeout reports whether the error indicates a timeout.
// It checks for context.DeadlineExceeded and net.Error timeouts.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsCaller reports whether the error is a call-site bug.
func IsCaller(err error) bool {
	return errors.Is(err, ErrCaller)
}

// IsValidation reports whether the error indicates a malformed parameter.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRetryExhausted reports whether retries ran out.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// IsFailoverExhausted reports whether every server pool was rejected.
func IsFailoverExhausted(err error) bool {
	return errors.Is(err, ErrFailoverExhausted)
}

// IsClient reports whether the error is a non-retryable client failure.
func IsClient(err error) bool {
	return errors.Is(err, ErrClient)
}
