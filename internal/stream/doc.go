// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the ChatNova SSE wire format into typed events.
//
// The wire is line oriented: blocks separated by a blank line, payload lines
// prefixed with "data: ". Payloads are heterogeneous on one channel. Plain
// deployments emit raw text chunks; agent deployments emit JSON events with
// a "type" discriminant (tool_start, tool_end, content, error). The literal
// "[DONE]" marks completion and an "ERROR: " payload carries a terminal
// backend error.
//
// FrameDecoder reassembles payload lines from arbitrarily split network
// fragments; Classify turns one payload into an Event. Neither performs any
// I/O: the read loop belongs to the session layer.
package stream
