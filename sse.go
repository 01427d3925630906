package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tmaxmax/go-sse"
)

// sessionIDHeader carries the token issued by the server's endpoint event,
// binding subsequent requests to the open stream.
const sessionIDHeader = "Mcp-Session-Id"

// sseTransport exchanges one request/response pair over a session negotiated
// via an event stream: connect, await the endpoint event, post the request,
// then correlate the asynchronous message event against the request id.
type sseTransport struct {
	client *http.Client
	logger *slog.Logger
	cfg    ServerConfig
}

func (t *sseTransport) exchange(ctx context.Context, msg JSONRPCMessage) (JSONRPCMessage, []string, error) {
	streamURL := t.cfg.URL
	if t.cfg.HandshakeURL != "" {
		streamURL = t.cfg.HandshakeURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return JSONRPCMessage{}, nil, &Error{
			Kind:    KindSSEConnectionFailed,
			Message: fmt.Sprintf("failed to build stream request for %s", streamURL),
			Err:     err,
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	applyHeaders(req, t.cfg.Headers)

	resp, err := t.client.Do(req)
	if err != nil {
		return JSONRPCMessage{}, nil,
			classifyErr(err, KindSSEConnectionFailed, fmt.Sprintf("failed to open event stream at %s", streamURL))
	}
	// The response body is the long-lived stream. Closing it here is the
	// single cleanup point for every terminal path; the context deadline
	// aborts in-flight reads.
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		return JSONRPCMessage{}, nil, &Error{
			Kind:    KindSSEConnectionFailed,
			Message: fmt.Sprintf("%s responded with status %d to stream request", streamURL, resp.StatusCode),
			Status:  resp.StatusCode,
			Body:    string(body),
		}
	}

	next, stop := iter.Pull2(sse.Read(resp.Body, nil))
	defer stop()

	endpoint, sessionID, eErr := t.awaitEndpoint(ctx, next, streamURL)
	if eErr != nil {
		return JSONRPCMessage{}, nil, eErr
	}

	if sErr := t.send(ctx, endpoint, sessionID, msg); sErr != nil {
		return JSONRPCMessage{}, nil, sErr
	}

	res, mErr := t.awaitMessage(ctx, next, msg.ID)
	if mErr != nil {
		return JSONRPCMessage{}, nil, mErr
	}
	return res, nil, nil
}

// awaitEndpoint reads stream events until the endpoint event arrives, then
// resolves its data against the stream URL to form the absolute POST target.
// The sessionId query parameter, if present, becomes the session token.
func (t *sseTransport) awaitEndpoint(
	ctx context.Context,
	next func() (sse.Event, error, bool),
	streamURL string,
) (string, string, *Error) {
	base, err := url.Parse(streamURL)
	if err != nil {
		return "", "", &Error{
			Kind:    KindSSEConnectionFailed,
			Message: fmt.Sprintf("invalid stream URL %q", streamURL),
			Err:     err,
		}
	}

	for {
		ev, err, ok := next()
		if err != nil {
			return "", "", streamReadError(ctx, err, KindSSEConnectionFailed, "while waiting for endpoint event")
		}
		if !ok {
			return "", "", &Error{
				Kind:    KindSSEConnectionFailed,
				Message: "event stream closed before endpoint event",
			}
		}
		if ev.Type != "endpoint" {
			continue
		}

		ref, err := url.Parse(strings.TrimSpace(ev.Data))
		if err != nil {
			return "", "", &Error{
				Kind:    KindSSEConnectionFailed,
				Message: fmt.Sprintf("invalid endpoint %q", ev.Data),
				Err:     err,
			}
		}
		target := base.ResolveReference(ref)
		if target.String() == "" {
			return "", "", &Error{Kind: KindSSEConnectionFailed, Message: "empty endpoint URL"}
		}

		return target.String(), target.Query().Get("sessionId"), nil
	}
}

// send posts the request to the negotiated endpoint with the session header
// attached if a session id was issued. SSE servers typically acknowledge
// with 202 and deliver the response on the stream.
func (t *sseTransport) send(ctx context.Context, endpoint, sessionID string, msg JSONRPCMessage) *Error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return &Error{Kind: KindInvalidJSON, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(msgBs))
	if err != nil {
		return &Error{
			Kind:    KindNetworkError,
			Message: fmt.Sprintf("failed to build request for %s", endpoint),
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	applyHeaders(req, t.cfg.Headers)
	if sessionID != "" {
		req.Header.Set(sessionIDHeader, sessionID)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return classifyErr(err, KindNetworkError, fmt.Sprintf("failed to post request to %s", endpoint))
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		return &Error{
			Kind:    KindHTTPError,
			Message: fmt.Sprintf("%s responded with status %d", endpoint, resp.StatusCode),
			Status:  resp.StatusCode,
			Body:    string(body),
		}
	}
	return nil
}

// awaitMessage keeps reading the same stream until a message event carrying
// the outstanding request id arrives. All other events, including message
// events for unrelated ids, are discarded without ending the wait.
func (t *sseTransport) awaitMessage(
	ctx context.Context,
	next func() (sse.Event, error, bool),
	id MustString,
) (JSONRPCMessage, *Error) {
	for {
		ev, err, ok := next()
		if err != nil {
			return JSONRPCMessage{}, streamReadError(ctx, err, KindNoResponse, "while waiting for response event")
		}
		if !ok {
			return JSONRPCMessage{}, &Error{
				Kind:    KindNoResponse,
				Message: "event stream closed before a matching response arrived",
			}
		}
		// Events without an explicit name default to "message".
		if ev.Type != "message" && ev.Type != "" {
			continue
		}

		var msg JSONRPCMessage
		if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
			t.logger.Warn("discarding undecodable message event", "err", err)
			continue
		}
		if msg.ID != id {
			continue
		}

		if verr := validateResponse(msg); verr != nil {
			return JSONRPCMessage{}, verr
		}
		return msg, nil
	}
}

// streamReadError classifies a failed stream read. A read aborted by the
// call deadline is a timeout, distinguishable from protocol failures.
func streamReadError(ctx context.Context, err error, fallback ErrorKind, message string) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: message + ": deadline exceeded", Err: err}
	}
	return &Error{Kind: fallback, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}
