// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for communicating with the ChatNova
// backend.
//
// The client exposes two surfaces: a cancellable streaming dispatch
// (OpenStream) returning the raw incremental response body for the session
// layer to consume, and plain request/response calls for CRUD (history,
// sessions, models, document upload, audio transcription). Decoding of the
// streamed wire format lives in the stream package, not here.
package api
