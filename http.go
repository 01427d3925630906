package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
)

// httpTransport exchanges one request/response pair over plain HTTP,
// tolerating servers with partial protocol conformance: the optional
// initialize handshake never aborts the call, and a POST rejection is
// retried once as a query-encoded GET.
type httpTransport struct {
	client *http.Client
	logger *slog.Logger
	cfg    ServerConfig
}

// fallbackStatuses are the POST rejections that trigger the GET fallback.
var fallbackStatuses = []int{
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusMethodNotAllowed,
}

func (t *httpTransport) exchange(ctx context.Context, msg JSONRPCMessage) (JSONRPCMessage, []string, error) {
	warnings := t.handshake(ctx)

	body, status, err := t.postWithRetry(ctx, t.cfg.URL, msg)
	if err != nil {
		return JSONRPCMessage{}, warnings,
			classifyErr(err, KindNetworkError, fmt.Sprintf("request to %s failed", t.cfg.URL))
	}

	if !is2xx(status) {
		if slices.Contains(fallbackStatuses, status) {
			if status == http.StatusNotFound {
				warnings = appendWarning(warnings,
					fmt.Sprintf("%s responded with status 404 to POST; retrying as GET.", t.cfg.URL))
			}

			fbBody, fbStatus, fbErr := t.get(ctx, t.cfg.URL, msg)
			if fbErr == nil && is2xx(fbStatus) {
				warnings = appendWarning(warnings,
					fmt.Sprintf("%s rejected POST with status %d; fell back to GET.", t.cfg.URL, status))

				res, perr := parseResponse(fbBody, msg.ID)
				if perr != nil {
					return JSONRPCMessage{}, warnings, perr
				}
				return res, warnings, nil
			}
			// The fallback is attempted at most once; report the original
			// POST failure below.
			t.logger.Warn("GET fallback failed", "url", t.cfg.URL, "status", fbStatus, "err", fbErr)
		}
		return JSONRPCMessage{}, warnings, t.statusError(msg.Method, status, body)
	}

	res, perr := parseResponse(body, msg.ID)
	if perr != nil {
		return JSONRPCMessage{}, warnings, perr
	}
	return res, warnings, nil
}

// handshake attempts the optional initialize call, trying the explicit
// handshake URL before the main URL. Failures of any kind are converted to
// deduplicated warnings and never abort the exchange.
func (t *httpTransport) handshake(ctx context.Context) []string {
	var warnings []string

	targets := make([]string, 0, 2)
	if t.cfg.HandshakeURL != "" {
		targets = append(targets, t.cfg.HandshakeURL)
	}
	targets = append(targets, t.cfg.URL)

	for _, target := range targets {
		req, err := newRequest(methodInitialize, nil)
		if err != nil {
			warnings = appendWarning(warnings,
				fmt.Sprintf("failed to build initialize request: %v; continuing without handshake.", err))
			return warnings
		}

		_, status, err := t.post(ctx, target, req)
		if err != nil {
			warnings = appendWarning(warnings,
				fmt.Sprintf("initialize at %s failed: %v; continuing without handshake.", target, err))
			continue
		}
		if !is2xx(status) {
			warnings = appendWarning(warnings,
				fmt.Sprintf("%s responded with status %d; continuing without handshake.", target, status))
			continue
		}
		return warnings
	}

	return warnings
}

// postWithRetry retries the primary exchange once after a network-level
// failure. Status and protocol errors are never retried.
func (t *httpTransport) postWithRetry(ctx context.Context, target string, msg JSONRPCMessage) ([]byte, int, error) {
	body, status, err := t.post(ctx, target, msg)
	if err == nil {
		return body, status, nil
	}
	if ctx.Err() != nil {
		return nil, 0, err
	}

	t.logger.Warn("retrying request after network failure", "url", target, "err", err)
	return t.post(ctx, target, msg)
}

func (t *httpTransport) post(ctx context.Context, target string, msg JSONRPCMessage) ([]byte, int, error) {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(msgBs))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	applyHeaders(req, t.cfg.Headers)

	return t.do(req)
}

// get retries a rejected POST with the entire JSON-RPC payload serialized
// into the payload query parameter. No Content-Type is sent.
func (t *httpTransport) get(ctx context.Context, target string, msg JSONRPCMessage) ([]byte, int, error) {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, 0, err
	}
	q := u.Query()
	q.Set("payload", string(msgBs))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	applyHeaders(req, t.cfg.Headers)

	return t.do(req)
}

// do runs the request and drains the body. Non-2xx statuses are returned
// alongside the body so callers can decide on fallback.
func (t *httpTransport) do(req *http.Request) ([]byte, int, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// statusError builds the failure for a non-2xx exchange, preserving the
// tools/list diagnostic framing shown to end users.
func (t *httpTransport) statusError(method string, status int, body []byte) *Error {
	msg := fmt.Sprintf("%s returned status %d", t.cfg.URL, status)
	if method == MethodToolsList {
		msg = fmt.Sprintf("%s returned status %d for %s; the endpoint may not implement JSON-RPC",
			t.cfg.URL, status, MethodToolsList)
	}
	return &Error{Kind: KindHTTPError, Message: msg, Status: status, Body: string(body)}
}

// parseResponse decodes a response body through the shared envelope rules.
// An empty body is an implicit null result for the outstanding request, not
// an error; a response carrying a different id is not considered a match.
func parseResponse(body []byte, id MustString) (JSONRPCMessage, *Error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return JSONRPCMessage{
			JSONRPC: JSONRPCVersion,
			ID:      id,
			Result:  json.RawMessage("null"),
		}, nil
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return JSONRPCMessage{}, &Error{
			Kind:    KindInvalidJSON,
			Message: "response body is not valid JSON",
			Body:    string(body),
			Err:     err,
		}
	}

	if verr := validateResponse(msg); verr != nil {
		return JSONRPCMessage{}, verr
	}

	if msg.ID != id {
		return JSONRPCMessage{}, &Error{
			Kind:    KindInvalidJSON,
			Message: fmt.Sprintf("response id %q does not match request id %q", msg.ID, id),
		}
	}

	return msg, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

// appendWarning adds w unless an identical message is already present, so
// repeated failures along the pipeline do not produce duplicate warnings.
func appendWarning(warnings []string, w string) []string {
	if slices.Contains(warnings, w) {
		return warnings
	}
	return append(warnings, w)
}
