package httpclient

import (
	"context"
	"errors"
	"fmt"

	"swh-client/internal/shared"
	"swh-client/pkg/retry"
)

// Class is the failure class of one attempt.
type Class int

const (
	ClassNone Class = iota
	ClassConnection
	ClassServer
	ClassNotAcceptable
	ClassForbidden
	ClassClient
	ClassRedirect
	ClassTransport
	ClassCanceled
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassConnection:
		return "connection"
	case ClassServer:
		return "server"
	case ClassNotAcceptable:
		return "not_acceptable"
	case ClassForbidden:
		return "forbidden"
	case ClassClient:
		return "client"
	case ClassRedirect:
		return "redirect"
	case ClassTransport:
		return "transport"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Action is what the executor does after an attempt.
type Action int

const (
	ActionSucceed Action = iota + 1
	ActionRetry
	ActionFailover
	ActionFail
	ActionGiveUp
)

func (a Action) String() string {
	switch a {
	case ActionSucceed:
		return "succeed"
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFail:
		return "fail"
	case ActionGiveUp:
		return "give_up"
	default:
		return "unknown"
	}
}

// Terminal reports whether the action ends the call.
func (a Action) Terminal() bool {
	return a == ActionSucceed || a == ActionFail || a == ActionGiveUp
}

// RetryContext is the per-call state fed to Decide.
type RetryContext struct {
	// Attempt counts attempts made so far, including the one being decided.
	Attempt int
	// Pool indexes the pool the attempt was sent to.
	Pool        int
	LastFailure Class
	AcceptJSON  bool
}

// Outcome is the observed result of one attempt.
type Outcome struct {
	StatusCode int
	Err        error
}

// Limits bounds a call.
type Limits struct {
	MaxAttempts int
	Pools       int
}

// Decision is the result of Decide.
type Decision struct {
	Action Action
	Class  Class
	Reason string
}

// Classify maps an attempt outcome to a failure class.
func Classify(o Outcome) Class {
	if o.Err != nil {
		switch {
		case errors.Is(o.Err, context.Canceled), errors.Is(o.Err, shared.ErrCanceled):
			return ClassCanceled
		case errors.Is(o.Err, ErrRedirect):
			return ClassRedirect
		case shared.IsTimeout(o.Err), retry.DefaultRetryable(o.Err):
			return ClassConnection
		default:
			return ClassTransport
		}
	}
	switch s := o.StatusCode; {
	case s >= 200 && s < 400:
		return ClassNone
	case s == 406:
		return ClassNotAcceptable
	case s == 403:
		return ClassForbidden
	case s >= 500:
		return ClassServer
	default:
		return ClassClient
	}
}

// Decide picks the next action. It has no side effects.
func Decide(rc RetryContext, o Outcome, l Limits) Decision {
	class := Classify(o)
	left := rc.Attempt < l.MaxAttempts

	switch class {
	case ClassNone:
		return Decision{Action: ActionSucceed, Class: class, Reason: fmt.Sprintf("status %d", o.StatusCode)}

	case ClassConnection, ClassServer:
		if left {
			return Decision{Action: ActionRetry, Class: class, Reason: reason(o)}
		}
		return Decision{Action: ActionGiveUp, Class: class, Reason: reason(o) + ", attempts exhausted"}

	case ClassNotAcceptable:
		if left {
			return Decision{Action: ActionRetry, Class: class, Reason: "status 406, forcing Accept: application/json"}
		}
		return Decision{Action: ActionGiveUp, Class: class, Reason: "status 406, attempts exhausted"}

	case ClassForbidden:
		if !left {
			return Decision{Action: ActionGiveUp, Class: class, Reason: "status 403, attempts exhausted"}
		}
		if rc.Pool+1 < l.Pools {
			return Decision{Action: ActionFailover, Class: class, Reason: fmt.Sprintf("status 403, switching to pool %d", rc.Pool+1)}
		}
		return Decision{Action: ActionFail, Class: class, Reason: "status 403 on last pool"}

	default:
		return Decision{Action: ActionFail, Class: class, Reason: reason(o)}
	}
}

func reason(o Outcome) string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return fmt.Sprintf("status %d", o.StatusCode)
}
