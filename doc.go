// Package cubepg provides the production-hardened PostgreSQL access core
// for CUBE admin services using pgx v5.
//
// Invariants:
//
//   - I1: every failure leaving Execute, QueryOne, QueryAll, WithTx, or
//     Acquire is a *Error with a closed Kind taxonomy; backend-native
//     error types never escape those surfaces.
//   - I2: a statement whose placeholders do not match its argument count
//     is rejected before any backend I/O.
//   - I3: a transaction commits or rolls back on every exit path,
//     including panics, and its connection is always returned to the pool.
//   - I4: connect-path errors are safe to log by default.
//   - I5: query parameter values are never written to logs.
//
// This package is service-adjacent but framework-independent. It does not
// import the CUBE web layer.
package cubepg
