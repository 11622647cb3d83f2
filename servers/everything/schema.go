package everything

import "encoding/json"

// EchoArgs is the arguments for the echo tool.
type EchoArgs struct {
	Message string `json:"message"`
}

// AddArgs is the arguments for the add tool.
type AddArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// LongRunningOperationArgs is the arguments for the longRunningOperation tool.
type LongRunningOperationArgs struct {
	Duration float64 `json:"duration"`
	Steps    float64 `json:"steps"`
}

// SampleLLMArgs is the arguments for the sampleLLM tool.
type SampleLLMArgs struct {
	Prompt    string  `json:"prompt"`
	MaxTokens float64 `json:"maxTokens"`
}

// numberField and stringField describe a single JSON Schema property, with an optional default
// surfaced to clients that pre-fill tool arguments.
type numberField struct {
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
}

type stringField struct {
	Type string `json:"type"`
}

func toolSchema(properties any) []byte {
	schema := struct {
		Type       string `json:"type"`
		Properties any    `json:"properties"`
	}{Type: "object", Properties: properties}
	encoded, err := json.Marshal(schema)
	if err != nil {
		panic("everything: failed to render tool schema: " + err.Error())
	}
	return encoded
}

var echoSchema = toolSchema(struct {
	Message stringField `json:"message"`
}{Message: stringField{Type: "string"}})

var addSchema = toolSchema(struct {
	A numberField `json:"a"`
	B numberField `json:"b"`
}{
	A: numberField{Type: "number"},
	B: numberField{Type: "number"},
})

var longRunningOperationSchema = toolSchema(struct {
	Duration numberField `json:"duration"`
	Steps    numberField `json:"steps"`
}{
	Duration: numberField{Type: "number", Default: 10},
	Steps:    numberField{Type: "number", Default: 5},
})

var sampleLLMSchema = toolSchema(struct {
	Prompt    stringField `json:"prompt"`
	MaxTokens numberField `json:"maxTokens"`
}{
	Prompt:    stringField{Type: "string"},
	MaxTokens: numberField{Type: "number", Default: 100},
})
