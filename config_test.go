package mcpbridge_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jothir/mcpbridge"
)

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     mcpbridge.ServerConfig
		wantErr bool
	}{
		{
			name: "valid http config",
			cfg: mcpbridge.ServerConfig{
				URL:       "http://localhost:9000/rpc",
				Transport: mcpbridge.TransportHTTP,
			},
		},
		{
			name: "valid sse config with handshake",
			cfg: mcpbridge.ServerConfig{
				URL:          "https://tools.example.com/rpc",
				Transport:    mcpbridge.TransportSSE,
				HandshakeURL: "https://tools.example.com/sse",
			},
		},
		{
			name: "relative url",
			cfg: mcpbridge.ServerConfig{
				URL:       "/rpc",
				Transport: mcpbridge.TransportHTTP,
			},
			wantErr: true,
		},
		{
			name: "unknown transport",
			cfg: mcpbridge.ServerConfig{
				URL:       "http://localhost:9000/rpc",
				Transport: "websocket",
			},
			wantErr: true,
		},
		{
			name: "relative handshake url",
			cfg: mcpbridge.ServerConfig{
				URL:          "http://localhost:9000/rpc",
				Transport:    mcpbridge.TransportHTTP,
				HandshakeURL: "handshake",
			},
			wantErr: true,
		},
		{
			name: "invalid tool pattern",
			cfg: mcpbridge.ServerConfig{
				URL:          "http://localhost:9000/rpc",
				Transport:    mcpbridge.TransportHTTP,
				AllowedTools: []string{"[unclosed"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate succeeded, want error")
				}
				var cErr *mcpbridge.Error
				if !errors.As(err, &cErr) {
					t.Fatalf("got error of type %T, want *mcpbridge.Error", err)
				}
				if cErr.Kind != mcpbridge.KindValidationFailed {
					t.Errorf("got kind %q, want %q", cErr.Kind, mcpbridge.KindValidationFailed)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
		})
	}
}

func TestLoadServerConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")
	content := `
github:
  url: http://localhost:9000/rpc
  transport: http
  headers:
    Authorization: Bearer token
  timeoutMs: 5000
  allowedTools:
    - get_*
events:
  url: http://localhost:9001/sse
  transport: sse
  handshakeUrl: http://localhost:9001/connect
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	configs, err := mcpbridge.LoadServerConfigs(path)
	if err != nil {
		t.Fatalf("LoadServerConfigs failed: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("got %d configs, want 2", len(configs))
	}

	github := configs["github"]
	if github.Transport != mcpbridge.TransportHTTP {
		t.Errorf("got transport %q, want http", github.Transport)
	}
	if github.Headers["Authorization"] != "Bearer token" {
		t.Errorf("got headers %v, want Authorization header", github.Headers)
	}
	if github.TimeoutMs != 5000 {
		t.Errorf("got timeoutMs %d, want 5000", github.TimeoutMs)
	}
	if len(github.AllowedTools) != 1 || github.AllowedTools[0] != "get_*" {
		t.Errorf("got allowedTools %v, want [get_*]", github.AllowedTools)
	}

	events := configs["events"]
	if events.Transport != mcpbridge.TransportSSE {
		t.Errorf("got transport %q, want sse", events.Transport)
	}
	if events.HandshakeURL != "http://localhost:9001/connect" {
		t.Errorf("got handshakeUrl %q, want connect URL", events.HandshakeURL)
	}
}

func TestLoadServerConfigsRejectsInvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")
	content := `
broken:
  url: not-a-url
  transport: http
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := mcpbridge.LoadServerConfigs(path); err == nil {
		t.Fatal("LoadServerConfigs succeeded, want error")
	}
}

func TestLoadServerConfigsMissingFile(t *testing.T) {
	if _, err := mcpbridge.LoadServerConfigs(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadServerConfigs succeeded, want error")
	}
}
