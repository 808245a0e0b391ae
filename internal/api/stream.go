// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
)

// =============================================================================
// STREAM DISPATCH
// =============================================================================

// StreamOpener is the transport boundary consumed by the session layer:
// a cancellable dispatch returning an incremental byte reader.
type StreamOpener interface {
	OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error)
}

// OpenStream dispatches a streaming chat request and returns the raw
// response body. The caller owns the reader and must close it; cancelling
// the context aborts the underlying connection.
//
// A non-success status is fatal before any frame is decoded: the body text
// is read and returned inside the error together with the status, and no
// reader is handed out.
func (c *Client) OpenStream(ctx context.Context, sreq StreamRequest) (io.ReadCloser, error) {
	if sreq.Model == "" {
		sreq.Model = c.config.DefaultModel
	}

	path := "/api/v1/chat/stream"
	if sreq.UseTools {
		path = "/api/v1/chat/agent-stream"
	}
	if sreq.SessionID != 0 {
		q := url.Values{}
		q.Set("session_id", strconv.FormatInt(sreq.SessionID, 10))
		path += "?" + q.Encode()
	}

	body, err := json.Marshal(sreq)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, "POST", path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, httpError(resp.StatusCode, string(b))
	}

	return resp.Body, nil
}
