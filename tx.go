package cubepg

import (
	"context"
	"errors"
	"time"
)

const defaultRollbackTimeout = 5 * time.Second

// WithTx executes fn within a transaction bound to a single pooled
// connection. If fn returns an error the transaction is rolled back and
// the error comes back as KindTransactionAborted wrapping the original
// cause (errors.Is still reaches it; a rollback failure never masks it).
// If fn panics the transaction is rolled back and the panic is rethrown.
// Otherwise the transaction is committed.
//
// The rollback runs on a fresh context so an already-canceled request
// context cannot prevent cleanup.
func WithTx(ctx context.Context, db DB, fn func(q Querier) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return normalizeError("begin transaction", err)
	}

	rollbackCtx, cancelRollback := context.WithTimeout(context.Background(), defaultRollbackTimeout)
	defer cancelRollback()

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(rollbackCtx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(rollbackCtx)
		}
	}()

	if ferr := fn(tx); ferr != nil {
		err = abortError(ferr)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		err = normalizeError("commit transaction", err)
		return err
	}

	return nil
}

// RunTransaction executes fn within a transaction and returns its value.
// Semantics are those of WithTx; on failure the zero value is returned.
func RunTransaction[T any](ctx context.Context, db DB, fn func(q Querier) (T, error)) (T, error) {
	var out T
	err := WithTx(ctx, db, func(q Querier) error {
		var ferr error
		out, ferr = fn(q)
		return ferr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// abortError shapes a transaction-function failure. The original cause is
// wrapped; when it is already typed its code and detail are carried up.
func abortError(cause error) *Error {
	msg := cause.Error()
	code, detail := CodeUnknown, ""

	var inner *Error
	if errors.As(cause, &inner) {
		msg = inner.Message
		code = inner.Code
		detail = inner.Detail
	}

	return &Error{
		Kind:    KindTransactionAborted,
		Code:    code,
		Message: "transaction rolled back: " + msg,
		Detail:  detail,
		cause:   cause,
	}
}
