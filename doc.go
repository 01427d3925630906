// Package mcpbridge implements a client for JSON-RPC tool-invocation (MCP)
// servers spoken over two interchangeable transports: plain HTTP
// request/response and Server-Sent-Events sessions. It negotiates optional
// handshakes, falls back from POST to query-encoded GET where servers reject
// POST, and correlates asynchronous SSE response events, so callers can
// reliably list and invoke remote tools against servers with inconsistent
// protocol conformance.
package mcpbridge
