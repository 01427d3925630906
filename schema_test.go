package mcpbridge_test

import (
	"encoding/json"
	"testing"

	"github.com/jothir/mcpbridge"
)

func TestMustString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    mcpbridge.MustString
		wantErr bool
	}{
		{
			name:    "string input",
			input:   `"req-42"`,
			want:    mcpbridge.MustString("req-42"),
			wantErr: false,
		},
		{
			name:    "integer input",
			input:   `42`,
			want:    mcpbridge.MustString("42"),
			wantErr: false,
		},
		{
			name:    "float input",
			input:   `42.0`,
			want:    mcpbridge.MustString("42"),
			wantErr: false,
		},
		{
			name:    "non-integral input",
			input:   `42.7`,
			want:    mcpbridge.MustString("42.7"),
			wantErr: false,
		},
		{
			name:    "null input",
			input:   `null`,
			want:    mcpbridge.MustString(""),
			wantErr: false,
		},
		{
			name:    "boolean input",
			input:   `true`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `{invalid`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got mcpbridge.MustString
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got error %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMustString_MarshalJSON(t *testing.T) {
	bs, err := json.Marshal(mcpbridge.MustString("req-42"))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(bs) != `"req-42"` {
		t.Errorf("got %s, want %q", bs, "req-42")
	}
}

func TestJSONRPCMessage_RequestShape(t *testing.T) {
	msg := mcpbridge.JSONRPCMessage{
		JSONRPC: mcpbridge.JSONRPCVersion,
		ID:      "abc",
		Method:  mcpbridge.MethodToolsCall,
		Params:  json.RawMessage(`{"name":"echo","arguments":{"input":"hi"}}`),
	}

	bs, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(bs, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded["jsonrpc"] != "2.0" {
		t.Errorf("got jsonrpc %v, want 2.0", decoded["jsonrpc"])
	}
	if decoded["id"] != "abc" {
		t.Errorf("got id %v, want abc", decoded["id"])
	}
	if decoded["method"] != "tools/call" {
		t.Errorf("got method %v, want tools/call", decoded["method"])
	}
	if _, ok := decoded["result"]; ok {
		t.Error("request should not carry a result member")
	}
}
