package mcpbridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// ClientOption is a function that configures a client.
type ClientOption func(*Client)

// Client invokes tools on remote MCP-style servers. It dispatches each call
// to the HTTP or SSE transport adapter named by the server configuration and
// exposes the two public operations: listing tools and calling a tool.
//
// Every call is an independent, self-contained operation; a Client holds no
// mutable state beyond its injected HTTP client and logger, so concurrent
// calls against any mix of servers need no coordination. Instances should be
// created using NewClient.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// transport performs one request/response exchange. Both adapters share the
// envelope validation in validateResponse, so protocol semantics are
// identical regardless of the wire.
type transport interface {
	exchange(ctx context.Context, msg JSONRPCMessage) (JSONRPCMessage, []string, error)
}

// WithHTTPClient sets the HTTP client used for all exchanges. If unset, the
// default HTTP client is used.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for transport diagnostics. User-facing
// warnings travel in results, not through the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for invoking tools on remote servers. Optional
// behaviors are configured through ClientOption functions.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ListTools discovers the tools cfg's server exposes. It never returns an
// error value: any failure is reported through the failure variant of
// ListToolsResult, carrying the HTTP status when one is available. Warnings
// accumulated along the way (handshake failures, transport fallbacks) are
// surfaced on both success and failure so downstream UIs can display them.
func (c *Client) ListTools(ctx context.Context, cfg ServerConfig) ListToolsResult {
	tools, warnings, err := c.listTools(ctx, cfg)
	if err != nil {
		res := ListToolsResult{Message: err.Error(), Warnings: warnings}

		var cErr *Error
		if errors.As(err, &cErr) {
			res.Message = cErr.Message
			res.Status = cErr.Status
		}
		return res
	}

	return ListToolsResult{OK: true, Tools: tools, Warnings: warnings}
}

func (c *Client) listTools(ctx context.Context, cfg ServerConfig) ([]Tool, []string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	req, err := newRequest(MethodToolsList, nil)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	res, warnings, err := c.transportFor(cfg).exchange(ctx, req)
	if err != nil {
		return nil, warnings, err
	}

	tools, err := normalizeTools(res.Result)
	if err != nil {
		return nil, warnings, &Error{
			Kind:    KindInvalidJSON,
			Message: "malformed tools/list result",
			Err:     err,
		}
	}

	tools, err = cfg.filterTools(tools)
	if err != nil {
		return nil, warnings, err
	}
	return tools, warnings, nil
}

// CallTool invokes the named tool on cfg's server with the given arguments.
// On success it returns the raw result value unmodified; the caller owns
// interpretation. On any failure, including protocol-level errors reported
// by the server, it returns a typed *Error whose message is suitable for
// presenting directly to end users.
func (c *Client) CallTool(ctx context.Context, cfg ServerConfig, name string, args any) (CallToolResult, error) {
	if err := cfg.Validate(); err != nil {
		return CallToolResult{}, err
	}

	req, err := newRequest(MethodToolsCall, callToolParams{Name: name, Arguments: args})
	if err != nil {
		return CallToolResult{}, &Error{
			Kind:    KindValidationFailed,
			Message: "failed to encode tool arguments",
			Err:     err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	res, warnings, err := c.transportFor(cfg).exchange(ctx, req)
	for _, w := range warnings {
		c.logger.Warn("tool call warning", "tool", name, "warning", w)
	}
	if err != nil {
		return CallToolResult{}, err
	}

	return CallToolResult{Result: res.Result}, nil
}

// transportFor dispatches on the config's transport once, at the entry
// point. Unknown values are rejected by Validate before reaching here.
func (c *Client) transportFor(cfg ServerConfig) transport {
	if cfg.Transport == TransportSSE {
		return &sseTransport{client: c.httpClient, logger: c.logger, cfg: cfg}
	}
	return &httpTransport{client: c.httpClient, logger: c.logger, cfg: cfg}
}
