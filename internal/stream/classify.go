// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"

	"github.com/tidwall/gjson"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Kind identifies what a decoded payload means.
type Kind int

const (
	// KindContent is a response text delta (raw legacy chunk or a
	// structured "content" event).
	KindContent Kind = iota

	// KindToolStart announces a tool invocation.
	KindToolStart

	// KindToolEnd resolves the most recently started running invocation.
	KindToolEnd

	// KindError is a terminal backend error.
	KindError

	// KindDone is the stream completion sentinel.
	KindDone

	// KindUnknown is a structured event with an unrecognized discriminant.
	// It must never crash the pipeline; callers log and drop it.
	KindUnknown
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindToolStart:
		return "tool_start"
	case KindToolEnd:
		return "tool_end"
	case KindError:
		return "error"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is one classified wire event.
type Event struct {
	Kind Kind

	// Content carries the text delta for KindContent and the message for
	// KindError.
	Content string

	// Tool fields, set for KindToolStart (Tool, Input) and KindToolEnd
	// (Output).
	Tool   string
	Input  string
	Output string

	// Raw is the original decoded payload, kept for logging.
	Raw string
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify interprets one decoded payload string. Precedence:
//
//  1. the exact "[DONE]" sentinel
//  2. an "ERROR:" prefixed literal
//  3. a JSON object with a "type" discriminant
//  4. anything else is a raw content delta (legacy plain-chunk mode)
//
// The raw-text fallback is last so structured parsing is always attempted
// first; both shapes coexist on the same wire.
func Classify(payload string) Event {
	if payload == DoneSentinel {
		return Event{Kind: KindDone, Raw: payload}
	}

	if strings.HasPrefix(payload, ErrorPrefix) {
		msg := strings.TrimSpace(payload[len(ErrorPrefix):])
		return Event{Kind: KindError, Content: msg, Raw: payload}
	}

	if ev, ok := classifyStructured(payload); ok {
		return ev
	}

	return Event{Kind: KindContent, Content: payload, Raw: payload}
}

// classifyStructured attempts the JSON-discriminated path. Returns false
// when the payload is not a JSON object carrying a "type" field, which
// sends it down the raw-delta fallback.
func classifyStructured(payload string) (Event, bool) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return Event{}, false
	}

	discriminant := gjson.Get(trimmed, "type")
	if !discriminant.Exists() {
		return Event{}, false
	}

	switch discriminant.String() {
	case "tool_start":
		return Event{
			Kind:  KindToolStart,
			Tool:  gjson.Get(trimmed, "tool").String(),
			Input: gjson.Get(trimmed, "input").String(),
			Raw:   payload,
		}, true
	case "tool_end":
		return Event{
			Kind:   KindToolEnd,
			Output: gjson.Get(trimmed, "output").String(),
			Raw:    payload,
		}, true
	case "content":
		return Event{
			Kind:    KindContent,
			Content: gjson.Get(trimmed, "content").String(),
			Raw:     payload,
		}, true
	case "error":
		return Event{
			Kind:    KindError,
			Content: gjson.Get(trimmed, "content").String(),
			Raw:     payload,
		}, true
	default:
		return Event{Kind: KindUnknown, Raw: payload}, true
	}
}
