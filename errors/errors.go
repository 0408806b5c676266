package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind is the broad category of a library error. The set is closed:
// every error the library produces falls into exactly one kind.
type Kind int

const (
	// KindConnection covers handshake and channel failures plus
	// reconnect exhaustion.
	KindConnection Kind = iota
	// KindDevice covers device-level conditions: not found, busy,
	// not worn, low battery.
	KindDevice
	// KindStream covers push-stream failures: start failure, decode
	// error, unexpected close, device not connected.
	KindStream
	// KindRecording covers recording control failures.
	KindRecording
	// KindCalibration covers calibration control failures.
	KindCalibration
	// KindAPI covers HTTP-level failures: non-2xx, invalid response,
	// unauthorized, rate limited.
	KindAPI
	// KindData covers payload validation and format failures.
	KindData
	// KindGeneral covers everything else: not implemented, invalid
	// parameter, cancelled, timeout, unknown.
	KindGeneral
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindDevice:
		return "device"
	case KindStream:
		return "stream"
	case KindRecording:
		return "recording"
	case KindCalibration:
		return "calibration"
	case KindAPI:
		return "api"
	case KindData:
		return "data"
	case KindGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// Machine-readable error codes. Codes are stable: callers branch on
// these, never on message text.
const (
	// Connection codes
	CodeConnectionFailed   = "connection_failed"
	CodeConnectionLost     = "connection_lost"
	CodeReconnectExhausted = "reconnect_exhausted"
	CodeNotConnected       = "not_connected"

	// Device codes
	CodeDeviceNotFound = "device_not_found"
	CodeDeviceBusy     = "device_busy"
	CodeDeviceNotWorn  = "device_not_worn"
	CodeLowBattery     = "low_battery"

	// Stream codes
	CodeStreamStartFailed  = "stream_start_failed"
	CodeStreamDecodeError  = "stream_decode_error"
	CodeStreamClosed       = "stream_closed"
	CodeDeviceNotConnected = "device_not_connected"

	// Recording codes
	CodeRecordingStartFailed = "recording_start_failed"
	CodeRecordingStopFailed  = "recording_stop_failed"

	// Calibration codes
	CodeCalibrationFailed = "calibration_failed"
	CodePoorQuality       = "poor_quality"
	CodeInsufficientData  = "insufficient_data"

	// API codes
	CodeAPIError        = "api_error"
	CodeInvalidResponse = "invalid_response"
	CodeUnauthorized    = "unauthorized"
	CodeRateLimited     = "rate_limited"

	// Data codes
	CodeValidationFailed = "validation_failed"
	CodeInvalidFormat    = "invalid_format"

	// General codes
	CodeNotImplemented   = "not_implemented"
	CodeInvalidParameter = "invalid_parameter"
	CodeCancelled        = "cancelled"
	CodeTimeout          = "timeout"
	CodeUnknown          = "unknown"
)

// recoverableCodes is the static recoverable classification per code.
// Codes absent from the map are unrecoverable.
var recoverableCodes = map[string]bool{
	CodeConnectionFailed:   true,
	CodeConnectionLost:     true,
	CodeDeviceBusy:         true,
	CodeStreamStartFailed:  true,
	CodeStreamClosed:       true,
	CodeDeviceNotConnected: true,
	CodeRateLimited:        true,
	CodeTimeout:            true,
	CodeCancelled:          true,
}

// Error is the single error type surfaced by the library. Immutable
// once constructed.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Details   map[string]any
	Timestamp time.Time
	cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Recoverable reports the static recoverable classification of the
// error's code.
func (e *Error) Recoverable() bool {
	return recoverableCodes[e.Code]
}

// Detail returns a value from the details bag, or nil.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New constructs an Error with the given kind, code and message.
func New(kind Kind, code, message string) *Error {
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Wrap constructs an Error wrapping an underlying cause.
func Wrap(err error, kind Kind, code, message string) *Error {
	e := New(kind, code, message)
	e.cause = err
	return e
}

// WithDetails returns a copy of the error carrying the given details
// bag. The original is not modified.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = make(map[string]any, len(details))
	for k, v := range details {
		clone.Details[k] = v
	}
	return &clone
}

// Connection constructs a Connection-kind error.
func Connection(code, message string, cause error) *Error {
	return Wrap(cause, KindConnection, code, message)
}

// Device constructs a Device-kind error.
func Device(code, message string) *Error {
	return New(KindDevice, code, message)
}

// Stream constructs a Stream-kind error.
func Stream(code, message string, cause error) *Error {
	return Wrap(cause, KindStream, code, message)
}

// API constructs an API-kind error carrying the HTTP status and URL in
// its details bag, per the propagation contract.
func API(code, message string, status int, url string, cause error) *Error {
	return Wrap(cause, KindAPI, code, message).WithDetails(map[string]any{
		"status": status,
		"url":    url,
	})
}

// Timeout constructs a General-kind timeout error for an operation.
func Timeout(operation string, elapsed time.Duration) *Error {
	return New(KindGeneral, CodeTimeout,
		fmt.Sprintf("%s timed out after %v", operation, elapsed)).
		WithDetails(map[string]any{"operation": operation})
}

// Cancelled constructs a General-kind cancellation error.
func Cancelled(operation string) *Error {
	return New(KindGeneral, CodeCancelled, operation+" cancelled").
		WithDetails(map[string]any{"operation": operation})
}

// InvalidParameter constructs a General-kind invalid-parameter error.
func InvalidParameter(message string) *Error {
	return New(KindGeneral, CodeInvalidParameter, message)
}

// NotConnected constructs the precondition error returned by gated
// request/response calls invoked before Connect.
func NotConnected(operation string) *Error {
	return New(KindConnection, CodeNotConnected,
		"device not connected").
		WithDetails(map[string]any{"operation": operation})
}

// As extracts a library *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// KindOf returns the kind of an error, or KindGeneral for foreign
// errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindGeneral
}

// CodeOf returns the machine code of an error, or CodeUnknown for
// foreign errors.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnknown
}

// IsRecoverable reports whether the error's code is classified as
// recoverable. Foreign errors are unrecoverable.
func IsRecoverable(err error) bool {
	if e, ok := As(err); ok {
		return e.Recoverable()
	}
	return false
}

// IsCode reports whether the error chain carries the given machine code.
func IsCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
