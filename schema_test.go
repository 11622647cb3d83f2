package mcp_test

import (
	"encoding/json"
	"testing"

	"github.com/arborwell/mcprelay"
)

func TestMustStringUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    mcp.MustString
		wantErr bool
	}{
		{name: "string", input: `"test123"`, want: mcp.MustString("test123")},
		{name: "integer", input: `42`, want: mcp.MustString("42")},
		{name: "float truncates", input: `42.9`, want: mcp.MustString("42")},
		{name: "negative integer", input: `-7`, want: mcp.MustString("-7")},
		{name: "object rejected", input: `{"key": "value"}`, wantErr: true},
		{name: "array rejected", input: `[1,2]`, wantErr: true},
		{name: "malformed JSON rejected", input: `invalid`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got mcp.MustString
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustStringMarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input mcp.MustString
		want  string
	}{
		{name: "plain string", input: mcp.MustString("test123"), want: `"test123"`},
		{name: "digits stay a string", input: mcp.MustString("42"), want: `"42"`},
		{name: "empty", input: mcp.MustString(""), want: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.input)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMustStringRoundTripsThroughEitherWireVariant(t *testing.T) {
	// A progress token minted as a number must still compare equal to itself once it has been
	// marshaled back out and re-parsed, since MustString erases the wire variant on decode.
	for _, original := range []mcp.MustString{"tok-abc", "42", ""} {
		marshaled, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var roundTripped mcp.MustString
		if err := json.Unmarshal(marshaled, &roundTripped); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if roundTripped != original {
			t.Errorf("round trip = %v, want %v", roundTripped, original)
		}
	}

	var fromNumber mcp.MustString
	if err := json.Unmarshal([]byte(`7`), &fromNumber); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if fromNumber != mcp.MustString("7") {
		t.Errorf("numeric-origin MustString = %v, want %v", fromNumber, mcp.MustString("7"))
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level mcp.LogLevel
		want  string
	}{
		{mcp.LogLevelDebug, "debug"},
		{mcp.LogLevelInfo, "info"},
		{mcp.LogLevelNotice, "notice"},
		{mcp.LogLevelWarning, "warning"},
		{mcp.LogLevelError, "error"},
		{mcp.LogLevelCritical, "critical"},
		{mcp.LogLevelAlert, "alert"},
		{mcp.LogLevelEmergency, "emergency"},
		{mcp.LogLevel(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}
