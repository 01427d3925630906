package mcpbridge

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// JSONRPCVersion specifies the JSON-RPC protocol version used for all messages.
const JSONRPCVersion = "2.0"

const (
	methodInitialize = "initialize"

	// MethodToolsList is the JSON-RPC method for discovering the tools a
	// server exposes.
	MethodToolsList = "tools/list"
	// MethodToolsCall is the JSON-RPC method for invoking a named tool.
	MethodToolsCall = "tools/call"
)

// unknownToolName is substituted when a server advertises a tool record
// without a usable name. Such records are kept rather than dropped so the
// caller can see that the server returned them.
const unknownToolName = "unknown_tool"

// MustString is a type that enforces string representation for fields that can be either string or integer
// in the protocol specification, such as request IDs. It handles automatic conversion during JSON
// marshaling/unmarshaling.
type MustString string

// JSONRPCMessage represents a JSON-RPC 2.0 message exchanged with a tool server.
// It can represent either a request or a response depending on which fields are populated:
//   - Request: JSONRPC, ID, Method, and Params are set
//   - Response: JSONRPC, ID, and either Result or Error are set
type JSONRPCMessage struct {
	// JSONRPC must always be "2.0" per the JSON-RPC specification
	JSONRPC string `json:"jsonrpc"`
	// ID uniquely identifies request-response pairs and must be a string or number
	ID MustString `json:"id,omitempty"`
	// Method contains the RPC method name for requests
	Method string `json:"method,omitempty"`
	// Params contains the parameters for the method call as a raw JSON message
	Params json.RawMessage `json:"params,omitempty"`
	// Result contains the successful response data as a raw JSON message
	Result json.RawMessage `json:"result,omitempty"`
	// Error contains error details if the request failed
	Error *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents an error response in the JSON-RPC 2.0 protocol.
// It follows the standard error object format defined in the JSON-RPC 2.0 specification.
type JSONRPCError struct {
	// Code indicates the error type that occurred.
	Code int `json:"code"`

	// Message provides a short description of the error.
	Message string `json:"message"`

	// Data contains additional information about the error.
	// The value is unstructured and may be omitted.
	Data map[string]any `json:"data,omitempty"`
}

// Tool describes a remotely callable capability advertised by a server
// through tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListToolsResult is the discriminated outcome of Client.ListTools. OK
// reports whether the listing succeeded; on failure Message describes the
// cause and Status carries the HTTP status code when one is available.
// Warnings is either nil or a non-empty list of distinct messages
// accumulated along the way (handshake failures, transport fallbacks) and
// is populated on both success and failure.
type ListToolsResult struct {
	OK       bool
	Tools    []Tool
	Warnings []string
	Status   int
	Message  string
}

// CallToolResult carries the raw result of a successful tools/call
// invocation. Interpretation of the value is owned by the caller.
type CallToolResult struct {
	Result json.RawMessage
}

type callToolParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// newRequest builds a request envelope with a freshly generated correlation
// id. Ids are never reused across requests.
func newRequest(method string, params any) (JSONRPCMessage, error) {
	var paramsBs json.RawMessage
	if params != nil {
		bs, err := json.Marshal(params)
		if err != nil {
			return JSONRPCMessage{}, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsBs = bs
	}

	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      MustString(uuid.New().String()),
		Method:  method,
		Params:  paramsBs,
	}, nil
}

// validateResponse applies the envelope rules shared by both transports: the
// version must be "2.0" and a populated error member is a protocol-level
// failure regardless of transport.
func validateResponse(msg JSONRPCMessage) *Error {
	if msg.JSONRPC != JSONRPCVersion {
		return &Error{
			Kind:    KindInvalidJSON,
			Message: fmt.Sprintf("unexpected jsonrpc version %q", msg.JSONRPC),
		}
	}
	if msg.Error != nil {
		return &Error{
			Kind:    KindMCPError,
			Message: fmt.Sprintf("server reported error %d: %s", msg.Error.Code, msg.Error.Message),
			Err:     msg.Error,
		}
	}
	return nil
}

// normalizeTools decodes a tools/list result into tool descriptors. Records
// without a usable name are coerced to the unknown_tool sentinel instead of
// being dropped.
func normalizeTools(result json.RawMessage) ([]Tool, error) {
	if len(result) == 0 {
		return nil, nil
	}

	var payload struct {
		Tools []map[string]any `json:"tools"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, err
	}

	tools := make([]Tool, 0, len(payload.Tools))
	for _, raw := range payload.Tools {
		tool := Tool{Name: unknownToolName}
		if name, ok := raw["name"].(string); ok && name != "" {
			tool.Name = name
		}
		if desc, ok := raw["description"].(string); ok {
			tool.Description = desc
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// UnmarshalJSON implements json.Unmarshaler to convert JSON data into MustString,
// handling string, numeric, and null inputs. Servers may answer with a null
// id, notably on error responses; that decodes to the empty string so the
// envelope still passes through validation.
func (m *MustString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case string:
		*m = MustString(v)
	case float64:
		*m = MustString(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		*m = MustString(strconv.Itoa(v))
	case nil:
		*m = ""
	default:
		return fmt.Errorf("invalid type: %T", v)
	}

	return nil
}

// MarshalJSON implements json.Marshaler to convert MustString into its JSON representation.
func (m MustString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (j JSONRPCError) Error() string {
	return fmt.Sprintf("request error, code: %d, message: %s, data %v", j.Code, j.Message, j.Data)
}
