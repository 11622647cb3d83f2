package mcp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Value is an untyped JSON document tree. It is kept as raw bytes so that decoding into a
// concrete type can be deferred to whoever actually knows the expected shape: a method
// descriptor at registration time, or a pending request's resumer at response time.
type Value = json.RawMessage

// ID is a JSON-RPC request identifier. The wire format allows either a JSON string or a
// JSON number; unlike a plain string type, ID keeps track of which variant it was so that
// two ids that differ only in variant (the string "1" versus the number 1) are not equal.
type ID struct {
	str      string
	num      int64
	isString bool
	isSet    bool
}

// NewStringID builds a string-variant ID.
func NewStringID(s string) ID {
	return ID{str: s, isString: true, isSet: true}
}

// NewIntID builds a numeric-variant ID.
func NewIntID(i int64) ID {
	return ID{num: i, isSet: true}
}

// IsZero reports whether this ID was never assigned, as opposed to assigned the empty string
// or zero.
func (id ID) IsZero() bool {
	return !id.isSet
}

// String renders the ID for logging and for use as a map key fallback; it does not imply
// the ID is string-variant on the wire.
func (id ID) String() string {
	if !id.isSet {
		return ""
	}
	if id.isString {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// mapKey renders the ID as a key suitable for a Go map, distinguishing the string and number
// variants so that the string "1" and the number 1 never collide (unlike String(), which
// renders both as "1").
func (id ID) mapKey() string {
	if id.isString {
		return "s:" + id.str
	}
	return "n:" + strconv.FormatInt(id.num, 10)
}

// MarshalJSON implements json.Marshaler, emitting the variant that was set.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.isSet {
		return []byte("null"), nil
	}
	if id.isString {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

// UnmarshalJSON implements json.Unmarshaler, preserving whether the wire value was a string
// or a number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*id = ID{}
	case string:
		*id = NewStringID(v)
	case float64:
		*id = NewIntID(int64(v))
	default:
		return fmt.Errorf("mcp: id must be a string or number, got %T", v)
	}
	return nil
}

// MustString converts an ID to a wire-safe string, used for places in the protocol (such as
// progress tokens) that are specified as "string or number" but only ever consumed as an
// opaque correlation token.
type MustString string

// UnmarshalJSON implements json.Unmarshaler to convert JSON data into MustString, handling
// both string and numeric input formats.
func (m *MustString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case string:
		*m = MustString(v)
	case float64:
		*m = MustString(strconv.FormatInt(int64(v), 10))
	default:
		return fmt.Errorf("mcp: invalid type: %T", v)
	}

	return nil
}

// MarshalJSON implements json.Marshaler to convert MustString into its JSON representation,
// always encoding as a string value.
func (m MustString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// JSONRPCMessage represents a JSON-RPC 2.0 message used for communication in the MCP
// protocol. It can represent either a request, response, or notification depending on
// which fields are populated:
//   - Request: JSONRPC, ID, Method, and Params are set
//   - Response: JSONRPC, ID, and either Result or Error are set
//   - Notification: JSONRPC and Method are set (no ID)
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents an error response in the JSON-RPC 2.0 protocol.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (j *JSONRPCError) Error() string {
	return fmt.Sprintf("request error, code: %d, message: %s, data: %s", j.Code, j.Message, string(j.Data))
}

func newJSONRPCError(code int, message string) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message}
}

// frameKind classifies a raw frame per the classification rules: a frame with an id and a
// result/error is a response, one with an id and a method is a request, one with a method
// and no id is a notification, anything else fails to parse.
type frameKind int

const (
	frameUnparseable frameKind = iota
	frameRequest
	frameResponse
	frameNotification
)

func classify(msg JSONRPCMessage) frameKind {
	hasID := !msg.ID.IsZero()
	hasResult := msg.Result != nil || msg.Error != nil
	switch {
	case hasID && hasResult:
		return frameResponse
	case hasID && msg.Method != "":
		return frameRequest
	case !hasID && msg.Method != "":
		return frameNotification
	default:
		return frameUnparseable
	}
}

// decodeFrame parses a raw transport frame into a JSONRPCMessage and its classification. If
// the JSON itself fails to parse, it attempts a best-effort extraction of a present "id"
// field so the caller can still correlate a diagnostic response.
func decodeFrame(raw []byte) (JSONRPCMessage, frameKind, error) {
	var msg JSONRPCMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		var probe struct {
			ID ID `json:"id"`
		}
		_ = json.Unmarshal(raw, &probe)
		msg = JSONRPCMessage{ID: probe.ID}
		return msg, frameUnparseable, err
	}
	return msg, classify(msg), nil
}

func encodeFrame(msg JSONRPCMessage) ([]byte, error) {
	return json.Marshal(msg)
}

const (
	jsonRPCVersion = "2.0"

	methodPing       = "ping"
	methodInitialize = "initialize"

	methodNotificationsInitialized = "notifications/initialized"
	methodNotificationsCancelled   = "notifications/cancelled"

	// CurrentProtocolVersion is the protocol version this runtime speaks. Any Initialize
	// request or response naming a different version is rejected.
	CurrentProtocolVersion = "2024-11-05"

	userCancelledReason = "User requested cancellation"
)

// initializedNotificationDelay is the pause between answering an Initialize request and
// emitting the InitializedNotification, giving an in-order transport time to deliver the
// response first. Tests may override it; none assert on its presence.
var initializedNotificationDelay = 10 * time.Millisecond

// transientRetryDelay is the backoff applied by the dispatch loop after a transient
// transport error before retrying Receive.
var transientRetryDelay = 10 * time.Millisecond

// Standard JSON-RPC 2.0 error codes. No codes from the implementation-defined server range
// (-32000 to -32099) are defined here.
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603
)
