// Package errors provides the closed error taxonomy used across the
// open-neon client library.
//
// # Overview
//
// Every error the library surfaces is an *Error carrying a Kind (the
// broad category), a stable machine-readable Code, a human message, an
// optional structured details bag, and a creation timestamp. Errors are
// immutable once constructed and safe to share across goroutines.
//
// # Kinds and Codes
//
// Kinds form a closed set: Connection, Device, Stream, Recording,
// Calibration, API, Data, and General. Codes are stable strings such as
// CodeReconnectExhausted or CodeStreamDecodeError; callers should branch
// on codes, never on message text.
//
// # Recoverability
//
// Each code has a static recoverable classification. A recoverable error
// (connection lost, stream interrupted) means the condition may clear on
// retry; an unrecoverable one (reconnect ceiling reached, invalid
// parameter) means it will not. Check with IsRecoverable:
//
//	if err := conn.Connect(ctx); err != nil {
//	    if errors.IsRecoverable(err) {
//	        // retry later
//	    }
//	}
//
// # Integration with errors.As/Is
//
// *Error implements Unwrap, so stdlib errors.Is and errors.As work
// through wrapping chains. The stdlib package is re-exported where the
// library needs both (imported as stderrors by convention).
//
// # Propagation policy
//
// Request/response failures return to the caller directly. Lifecycle
// problems (channel drop, reconnect exhaustion) are delivered as events
// to registered listeners. Stream decode failures terminate only the
// affected stream. No error is swallowed without surfacing somewhere.
package errors
