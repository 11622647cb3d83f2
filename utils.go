package mcp

import (
	"encoding/json"

	"github.com/google/uuid"
)

// marshalJSON encodes params to a raw JSON value, treating nil (no params) as an empty
// object's worth of nothing rather than erroring.
func marshalJSON(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}

// uuidLike generates a fresh random string id, used when a frame cannot be correlated to any
// recoverable id (diagnostic ParseError responses with no "id" field present on the wire).
func uuidLike() string {
	return uuid.New().String()
}
