package mcpbridge

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// TransportKind selects the wire transport used to reach a server.
type TransportKind string

const (
	// TransportHTTP exchanges requests and responses over plain HTTP POST,
	// with a query-encoded GET fallback for servers that reject POST.
	TransportHTTP TransportKind = "http"
	// TransportSSE negotiates a session over a Server-Sent-Events stream and
	// correlates the asynchronous response event.
	TransportSSE TransportKind = "sse"
)

const defaultTimeoutMs = 20000

// ServerConfig describes one remote tool server. It is supplied by the
// caller and treated as immutable input; nothing in it persists across
// calls.
type ServerConfig struct {
	// URL is the main JSON-RPC endpoint and must be an absolute URL.
	URL string `yaml:"url" json:"url"`

	// Transport selects between the HTTP and SSE adapters.
	Transport TransportKind `yaml:"transport" json:"transport"`

	// Headers are attached to every request sent to this server.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// HandshakeURL, when set, is tried first for the optional initialize
	// call (HTTP) or used as the stream URL (SSE).
	HandshakeURL string `yaml:"handshakeUrl,omitempty" json:"handshakeUrl,omitempty"`

	// TimeoutMs bounds each call end to end. Zero means 20000.
	TimeoutMs int `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`

	// AllowedTools restricts which tool descriptors ListTools returns, as
	// glob patterns matched against tool names. Empty means all tools.
	AllowedTools []string `yaml:"allowedTools,omitempty" json:"allowedTools,omitempty"`
}

// Validate rejects configs whose URL is not absolute, whose transport is not
// one of the known values, or whose allow-list patterns do not compile. It
// is the boundary check callers run on externally supplied payloads; the
// client also runs it once at the entry point of each operation.
func (c ServerConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || !u.IsAbs() {
		return &Error{
			Kind:    KindValidationFailed,
			Message: fmt.Sprintf("server URL %q is not an absolute URL", c.URL),
			Err:     err,
		}
	}

	switch c.Transport {
	case TransportHTTP, TransportSSE:
	default:
		return &Error{
			Kind:    KindValidationFailed,
			Message: fmt.Sprintf("unknown transport %q", c.Transport),
		}
	}

	if c.HandshakeURL != "" {
		hu, err := url.Parse(c.HandshakeURL)
		if err != nil || !hu.IsAbs() {
			return &Error{
				Kind:    KindValidationFailed,
				Message: fmt.Sprintf("handshake URL %q is not an absolute URL", c.HandshakeURL),
				Err:     err,
			}
		}
	}

	for _, pattern := range c.AllowedTools {
		if _, err := glob.Compile(pattern); err != nil {
			return &Error{
				Kind:    KindValidationFailed,
				Message: fmt.Sprintf("invalid tool pattern %q", pattern),
				Err:     err,
			}
		}
	}

	return nil
}

func (c ServerConfig) timeout() time.Duration {
	if c.TimeoutMs > 0 {
		return time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return defaultTimeoutMs * time.Millisecond
}

// filterTools applies the allow-list to normalized descriptors. Patterns are
// compiled per call; configs are immutable so there is nothing to cache on.
func (c ServerConfig) filterTools(tools []Tool) ([]Tool, error) {
	if len(c.AllowedTools) == 0 {
		return tools, nil
	}

	globs := make([]glob.Glob, 0, len(c.AllowedTools))
	for _, pattern := range c.AllowedTools {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, &Error{
				Kind:    KindValidationFailed,
				Message: fmt.Sprintf("invalid tool pattern %q", pattern),
				Err:     err,
			}
		}
		globs = append(globs, g)
	}

	filtered := make([]Tool, 0, len(tools))
	for _, tool := range tools {
		for _, g := range globs {
			if g.Match(tool.Name) {
				filtered = append(filtered, tool)
				break
			}
		}
	}
	return filtered, nil
}

// LoadServerConfigs reads a YAML file mapping server names to configs and
// validates each entry at the boundary.
func LoadServerConfigs(path string) (map[string]ServerConfig, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server configs: %w", err)
	}

	var configs map[string]ServerConfig
	if err := yaml.Unmarshal(bs, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse server configs: %w", err)
	}

	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
	}

	return configs, nil
}
