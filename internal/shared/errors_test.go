package shared_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swh-client/internal/shared"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		expected string
		isNil    bool
	}{
		{
			name:    "nil error",
			err:     nil,
			context: "some context",
			isNil:   true,
		},
		{
			name:     "simple error",
			err:      errors.New("original"),
			context:  "wrapper",
			expected: "wrapper: original",
		},
		{
			name:     "empty context",
			err:      errors.New("original"),
			context:  "",
			expected: "original",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shared.Wrap(tt.err, tt.context)
			if tt.isNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result.Error())
			assert.True(t, errors.Is(result, tt.err))
		})
	}
}

func TestWrapf(t *testing.T) {
	base := errors.New("original")

	assert.Nil(t, shared.Wrapf(nil, "context %d", 42))
	assert.Equal(t, "attempt 3: original", shared.Wrapf(base, "attempt %d", 3).Error())
	assert.Same(t, base, shared.Wrapf(base, "%s", ""))
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind shared.Kind
		want string
	}{
		{shared.KindUnknown, "Unknown"},
		{shared.KindCaller, "Caller"},
		{shared.KindValidation, "Validation"},
		{shared.KindTransport, "Transport"},
		{shared.KindRetryExhausted, "RetryExhausted"},
		{shared.KindFailoverExhausted, "FailoverExhausted"},
		{shared.KindClient, "Client"},
		{shared.KindCanceled, "Canceled"},
		{shared.Kind(99), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want shared.Kind
	}{
		{"nil", nil, shared.KindUnknown},
		{"plain", errors.New("boom"), shared.KindUnknown},
		{"caller", shared.ErrCaller, shared.KindCaller},
		{"wrapped validation", fmt.Errorf("origin: %w", shared.ErrValidation), shared.KindValidation},
		{"transport", shared.MarkKind(errors.New("503"), shared.KindTransport), shared.KindTransport},
		{"client", shared.Errorf(shared.KindClient, "status %d", 404), shared.KindClient},
		{"context canceled", context.Canceled, shared.KindCanceled},
		{"canceled deadline", shared.Canceled(context.DeadlineExceeded), shared.KindCanceled},
		{"bare deadline", context.DeadlineExceeded, shared.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shared.KindOf(tt.err))
		})
	}
}

func TestKindPriorities(t *testing.T) {
	transport := shared.MarkKind(errors.New("500"), shared.KindTransport)

	t.Run("exhausted wins over the transport error it wraps", func(t *testing.T) {
		err := shared.MarkKind(transport, shared.KindRetryExhausted)
		assert.Equal(t, shared.KindRetryExhausted, shared.KindOf(err))
		assert.ErrorIs(t, err, shared.ErrTransport)
	})

	t.Run("canceled wins over everything", func(t *testing.T) {
		err := errors.Join(shared.ErrCaller, shared.Canceled(context.Canceled))
		assert.Equal(t, shared.KindCanceled, shared.KindOf(err))
	})

	t.Run("caller wins over validation", func(t *testing.T) {
		err := errors.Join(shared.ErrValidation, shared.ErrCaller)
		assert.Equal(t, shared.KindCaller, shared.KindOf(err))
	})

	t.Run("failover wins over client", func(t *testing.T) {
		err := errors.Join(shared.ErrClient, shared.ErrFailoverExhausted)
		assert.Equal(t, shared.KindFailoverExhausted, shared.KindOf(err))
	})
}

func TestMarkKind(t *testing.T) {
	base := errors.New("status 404")

	marked := shared.MarkKind(base, shared.KindClient)
	assert.Equal(t, shared.KindClient, shared.KindOf(marked))
	assert.ErrorIs(t, marked, base)
	assert.Equal(t, "client error: status 404", marked.Error())

	t.Run("idempotent", func(t *testing.T) {
		again := shared.MarkKind(marked, shared.KindClient)
		assert.Same(t, marked, again)
	})

	t.Run("nil error yields sentinel", func(t *testing.T) {
		assert.Same(t, shared.ErrValidation, shared.MarkKind(nil, shared.KindValidation))
	})

	t.Run("unknown kind leaves error alone", func(t *testing.T) {
		assert.Same(t, base, shared.MarkKind(base, shared.KindUnknown))
	})
}

func TestSentinelOf(t *testing.T) {
	assert.Nil(t, shared.SentinelOf(shared.KindUnknown))
	assert.Same(t, shared.ErrCanceled, shared.SentinelOf(shared.KindCanceled))
	assert.Same(t, shared.ErrRetryExhausted, shared.SentinelOf(shared.KindRetryExhausted))
}

func TestHasKind(t *testing.T) {
	err := shared.Errorf(shared.KindValidation, "bad hash %q", "xyz")
	assert.True(t, shared.HasKind(err, shared.KindValidation))
	assert.False(t, shared.HasKind(err, shared.KindCaller))
	assert.False(t, shared.HasKind(nil, shared.KindValidation))
}

func TestCanceled(t *testing.T) {
	err := shared.Canceled(context.DeadlineExceeded)
	assert.ErrorIs(t, err, shared.ErrCanceled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, shared.IsCanceled(err))

	assert.ErrorIs(t, shared.Canceled(nil), context.Canceled)
}

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout error" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return false }

var _ net.Error = (*timeoutError)(nil)

func TestIsTimeout(t *testing.T) {
	assert.False(t, shared.IsTimeout(nil))
	assert.True(t, shared.IsTimeout(context.DeadlineExceeded))
	assert.True(t, shared.IsTimeout(fmt.Errorf("dial: %w", &timeoutError{})))
	assert.False(t, shared.IsTimeout(errors.New("refused")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, shared.IsCaller(shared.Errorf(shared.KindCaller, "unknown endpoint")))
	assert.True(t, shared.IsValidation(shared.ErrValidation))
	assert.True(t, shared.IsRetryExhausted(fmt.Errorf("x: %w", shared.ErrRetryExhausted)))
	assert.True(t, shared.IsFailoverExhausted(shared.ErrFailoverExhausted))
	assert.True(t, shared.IsClient(shared.ErrClient))
	assert.False(t, shared.IsClient(shared.ErrTransport))
}
