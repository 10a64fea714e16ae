package cubepg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// CodeUnknown is carried by errors that have no backend SQLSTATE.
const CodeUnknown = "UNKNOWN"

// Kind classifies every error this package returns.
type Kind string

const (
	// KindMalformedQuery marks statements rejected before any I/O
	// (placeholder/argument count mismatch).
	KindMalformedQuery Kind = "MALFORMED_QUERY"

	// KindPoolExhausted marks an Acquire that timed out with every
	// connection leased.
	KindPoolExhausted Kind = "POOL_EXHAUSTED"

	// KindConnectionError marks an unreachable backend or a connection
	// that died mid-operation.
	KindConnectionError Kind = "CONNECTION_ERROR"

	// KindBackendError marks a statement the backend rejected (constraint
	// violation, syntax error, ...). Code carries the SQLSTATE.
	KindBackendError Kind = "BACKEND_ERROR"

	// KindTransactionAborted marks a transaction function failure after
	// rollback. Unwrap reaches the original cause.
	KindTransactionAborted Kind = "TRANSACTION_ABORTED"
)

// Error is the single error type crossing the package boundary. The
// message is safe for default production logging; the wrapped cause may
// still contain sensitive detail and is reachable via errors.Unwrap.
type Error struct {
	Kind    Kind
	Code    string // SQLSTATE for backend errors, CodeUnknown otherwise
	Message string
	Detail  string

	cause error
}

func (e *Error) Error() string {
	if e.Code != "" && e.Code != CodeUnknown {
		return fmt.Sprintf("cubepg: %s (SQLSTATE %s)", e.Message, e.Code)
	}
	return "cubepg: " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// kindOf returns the Kind of the first *Error in err's chain, or "".
func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsMalformedQuery reports whether err is a placeholder/argument mismatch.
func IsMalformedQuery(err error) bool { return kindOf(err) == KindMalformedQuery }

// IsPoolExhausted reports whether err is an acquire timeout.
func IsPoolExhausted(err error) bool { return kindOf(err) == KindPoolExhausted }

// IsConnectionError reports whether err is a transport-level failure.
func IsConnectionError(err error) bool { return kindOf(err) == KindConnectionError }

// IsBackendError reports whether err is a statement the backend rejected.
func IsBackendError(err error) bool { return kindOf(err) == KindBackendError }

// IsTransactionAborted reports whether err is a rolled-back transaction.
func IsTransactionAborted(err error) bool { return kindOf(err) == KindTransactionAborted }

// normalizeError funnels every failure into *Error. op names the failed
// operation and leads the message. Already-typed errors pass through
// unchanged; no other site derives an Error from a backend failure.
//
// Messages never embed the cause text: runtime causes can carry connection
// detail, so they stay behind Unwrap.
func normalizeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{
			Kind:    KindBackendError,
			Code:    pgErr.Code,
			Message: op + ": " + pgErr.Message,
			Detail:  pgErr.Detail,
			cause:   err,
		}
	}

	// context errors satisfy net.Error, so they are classified first
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindConnectionError,
			Code:    CodeUnknown,
			Message: op + ": timed out",
			cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{
			Kind:    KindConnectionError,
			Code:    CodeUnknown,
			Message: op + ": canceled",
			cause:   err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{
			Kind:    KindConnectionError,
			Code:    CodeUnknown,
			Message: op + ": backend unreachable",
			cause:   err,
		}
	}

	return &Error{
		Kind:    KindConnectionError,
		Code:    CodeUnknown,
		Message: op + " failed",
		cause:   err,
	}
}
