// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs streamed chat responses.
//
// A Session owns one dispatch end to end: it opens the transport stream,
// feeds raw fragments through the frame decoder, classifies each payload,
// and drives the observer callbacks. The state machine is strict: a session
// moves from idle to streaming and then to exactly one of completed, failed
// or cancelled, and fires exactly one terminal callback.
//
// The Manager layers single-flight semantics on top: at most one session
// streams at a time, and events from a superseded session never reach the
// observer. The dispatched turn is mutated only on the session goroutine;
// Session.Done closes once the turn is settled, so wait on it before
// reading the turn after a cancel.
package session
