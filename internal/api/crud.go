// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"

	"github.com/jeranaias/novachat/internal/model"
)

// =============================================================================
// HISTORY
// =============================================================================

// History fetches one page of the flat chat history, oldest first within
// the page. sessionID of zero fetches the sessionless history.
func (c *Client) History(ctx context.Context, sessionID int64, page, pageSize int) (*MessagePage, error) {
	q := url.Values{}
	if sessionID != 0 {
		q.Set("session_id", strconv.FormatInt(sessionID, 10))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}

	path := "/api/v1/chat/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out MessagePage
	if err := c.doJSON(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FullHistory fetches every history page and returns the records converted
// to turns, oldest first, ready for reconciliation.
func (c *Client) FullHistory(ctx context.Context, sessionID int64) ([]*model.Turn, error) {
	const pageSize = 100

	var turns []*model.Turn
	for page := 1; ; page++ {
		mp, err := c.History(ctx, sessionID, page, pageSize)
		if err != nil {
			return nil, err
		}
		for _, rec := range mp.Data {
			turns = append(turns, rec.Turn())
		}
		// Trust the server's page math; an empty page guards against a
		// backend that reports more pages than it serves.
		if mp.Meta.TotalPages == 0 || page >= mp.Meta.TotalPages || len(mp.Data) == 0 {
			break
		}
	}
	return turns, nil
}

// DeleteHistory removes the stored history, optionally scoped to a session.
func (c *Client) DeleteHistory(ctx context.Context, sessionID int64) error {
	path := "/api/v1/chat/history"
	if sessionID != 0 {
		path += "?session_id=" + strconv.FormatInt(sessionID, 10)
	}
	return c.doJSON(ctx, "DELETE", path, nil, nil)
}

// =============================================================================
// SESSIONS
// =============================================================================

// ListSessions returns the user's chat sessions, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out SessionPage
	if err := c.doJSON(ctx, "GET", "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateSession creates a chat session with the given title.
func (c *Client) CreateSession(ctx context.Context, in SessionCreate) (*Session, error) {
	var out Session
	if err := c.doJSON(ctx, "POST", "/api/v1/sessions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a chat session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "DELETE", "/api/v1/sessions/"+strconv.FormatInt(id, 10), nil, nil)
}

// =============================================================================
// MODELS
// =============================================================================

// ListModels returns the model identifiers the backend can serve for this
// user's configured provider keys.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var out ModelList
	if err := c.doJSON(ctx, "GET", "/api/v1/chat/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// =============================================================================
// OPAQUE EXTERNAL CALLS
// =============================================================================

// UploadDocument uploads a document into a session's RAG context. The call
// is an opaque boundary: the client neither chunks nor embeds anything.
func (c *Client) UploadDocument(ctx context.Context, sessionID int64, filename string, r io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to read document", Cause: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to finish upload", Cause: err}
	}

	path := "/api/v1/sessions/" + strconv.FormatInt(sessionID, 10) + "/documents"
	req, err := c.newRequest(ctx, "POST", path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, httpError(resp.StatusCode, string(b))
	}

	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &out, nil
}

// Transcribe sends an audio clip for transcription and returns the text.
func (c *Client) Transcribe(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to read audio", Cause: err}
	}
	if err := mw.Close(); err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to finish upload", Cause: err}
	}

	req, err := c.newRequest(ctx, "POST", "/api/v1/chat/transcribe", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return "", httpError(resp.StatusCode, string(b))
	}

	var out Transcription
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return out.Text, nil
}
