// Package shared contains the error taxonomy used across the client
// without endpoint- or transport-specific logic.
//
// # Error Types and Classification
//
// Sentinel errors represent the failure classes a call can end with:
//
//   - ErrCaller: unknown endpoint, wrong parameter count or type, unsupported method
//   - ErrValidation: malformed URL, hash or identifier
//   - ErrTransport: retryable transport failure (connection, 5xx, 406)
//   - ErrRetryExhausted: retryable failure outlived the attempt budget
//   - ErrFailoverExhausted: 403 on every configured server pool
//   - ErrClient: non-retryable 4xx or rejected redirect
//   - ErrCanceled: caller cancellation or deadline
//
// Caller and validation errors are raised before any network call. Transport
// errors never reach the caller directly; they surface wrapped in an
// exhausted-retries error.
//
// # Error Classification
//
// Use KindOf() to classify errors into categories:
//
//	res, err := client.Invoke(ctx, "origin", []any{"https://github.com/torvalds/linux"})
//	switch shared.KindOf(err) {
//	case shared.KindValidation:
//	    // fix the parameter
//	case shared.KindRetryExhausted:
//	    // archive unavailable, try later
//	}
//
// Or use predicate functions:
//
//	if shared.IsFailoverExhausted(err) {
//	    // every token was rejected
//	}
//
// # Kind Priority Table
//
//	Priority | Kind                  | Description
//	---------|-----------------------|--------------------------------
//	1        | KindCanceled          | Caller cancellation (highest)
//	2        | KindCaller            | Call-site bug
//	3        | KindValidation        | Malformed parameter
//	4        | KindFailoverExhausted | All pools returned 403
//	5        | KindRetryExhausted    | Attempts exhausted
//	6        | KindClient            | Non-retryable client error
//	7        | KindTransport         | Retryable transport failure (lowest)
//
// # Marking Errors
//
// MarkKind attaches a class to an arbitrary error while keeping it reachable
// through errors.Is / errors.As:
//
//	err := shared.MarkKind(&httpclient.StatusError{StatusCode: 404}, shared.KindClient)
//	var se *httpclient.StatusError
//	errors.As(err, &se) // true
package shared
