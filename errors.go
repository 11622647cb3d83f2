package mcp

import (
	"encoding/json"
	"fmt"
)

// ProtocolError is the single exported error type carried over the wire. Handler-thrown
// errors that are not already a *ProtocolError are wrapped as InternalError at the registry
// boundary before being sent as a Response.
type ProtocolError struct {
	Code    int32
	Message string
	Data    json.RawMessage
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp: %s (code %d)", e.Message, e.Code)
}

func newProtocolError(code int32, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

// NewParseError builds a ParseError protocol error with the given detail message.
func NewParseError(message string) *ProtocolError {
	return newProtocolError(ParseErrorCode, message)
}

// NewInvalidRequest builds an InvalidRequest protocol error with the given detail message.
func NewInvalidRequest(message string) *ProtocolError {
	return newProtocolError(InvalidRequestCode, message)
}

// NewMethodNotFound builds a MethodNotFound protocol error naming the unknown method.
func NewMethodNotFound(method string) *ProtocolError {
	return newProtocolError(MethodNotFoundCode, fmt.Sprintf("Unknown method: %s", method))
}

// NewInvalidParams builds an InvalidParams protocol error with the given detail message.
func NewInvalidParams(message string) *ProtocolError {
	return newProtocolError(InvalidParamsCode, message)
}

// NewInternalError builds an InternalError protocol error with the given detail message.
func NewInternalError(message string) *ProtocolError {
	return newProtocolError(InternalErrorCode, message)
}

// ErrTransientTransport is the sentinel a Transport.Receive implementation wraps (via
// errors.Is) to signal a recoverable "try again shortly" condition, analogous to EAGAIN. The
// dispatch loop backs off for transientRetryDelay and retries without tearing down the loop.
var ErrTransientTransport = fmt.Errorf("mcp: transient transport error")

// errTypeMismatch is returned to a client caller, never placed on the wire, when a decoded
// response cannot be narrowed to the caller's expected result type. It signals a programmer
// error at the call site, not a protocol violation by the peer.
type errTypeMismatch struct {
	method string
	err    error
}

func (e *errTypeMismatch) Error() string {
	return fmt.Sprintf("mcp: response to %q does not match expected result type: %v", e.method, e.err)
}

func (e *errTypeMismatch) Unwrap() error { return e.err }

// NewTypeMismatch builds the local-only TypeMismatch failure surfaced to a client caller.
func NewTypeMismatch(method string, err error) error {
	return &errTypeMismatch{method: method, err: err}
}

// errToProtocolError wraps an arbitrary handler error as InternalError unless it is already a
// *ProtocolError, per the registry dispatch contract (§4.B step 4).
func errToProtocolError(err error) *ProtocolError {
	if err == nil {
		return nil
	}
	var pe *ProtocolError
	if asProtocolError(err, &pe) {
		return pe
	}
	return newProtocolError(InternalErrorCode, err.Error())
}

func asProtocolError(err error, target **ProtocolError) bool {
	if pe, ok := err.(*ProtocolError); ok {
		*target = pe
		return true
	}
	return false
}
