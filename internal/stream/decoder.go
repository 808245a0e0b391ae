// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
)

// =============================================================================
// FRAMING CONSTANTS
// =============================================================================

const (
	// dataPrefix identifies payload lines on the wire.
	dataPrefix = "data:"

	// DoneSentinel is the reserved payload marking stream completion.
	DoneSentinel = "[DONE]"

	// ErrorPrefix marks a terminal backend error payload; the remainder of
	// the payload is the human-readable message.
	ErrorPrefix = "ERROR:"
)

// =============================================================================
// FRAME DECODER
// =============================================================================

// FrameDecoder reassembles logical payload strings from an incremental byte
// stream. Network fragments may split a frame anywhere, including inside the
// "data: " prefix or a UTF-8 sequence; the decoder holds unterminated
// trailing text in a carry buffer between calls.
//
// Guarantee: each payload line is emitted exactly once, in wire order, no
// earlier than the fragment that completes its line.
type FrameDecoder struct {
	carry strings.Builder
}

// NewFrameDecoder creates an empty decoder.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends a fragment and returns the payloads of all payload lines
// completed by it. Blank separator lines and unrecognized lines are
// discarded; the final, possibly incomplete line is held back for the next
// call.
func (d *FrameDecoder) Feed(fragment []byte) []string {
	if len(fragment) == 0 {
		return nil
	}
	d.carry.Write(fragment)

	buffered := d.carry.String()
	if !strings.Contains(buffered, "\n") {
		return nil
	}

	lines := strings.Split(buffered, "\n")
	d.carry.Reset()
	// The element after the last newline is incomplete: carry it over.
	d.carry.WriteString(lines[len(lines)-1])
	lines = lines[:len(lines)-1]

	var payloads []string
	for _, line := range lines {
		if payload, ok := decodeLine(line); ok {
			payloads = append(payloads, payload)
		}
	}
	return payloads
}

// Flush drains a final unterminated payload line. Call once at end of
// stream; a well-formed stream ends with a newline and flushes nothing.
func (d *FrameDecoder) Flush() []string {
	rest := d.carry.String()
	d.carry.Reset()
	if rest == "" {
		return nil
	}
	if payload, ok := decodeLine(rest); ok {
		return []string{payload}
	}
	return nil
}

// Pending returns the number of carried-over bytes awaiting completion.
func (d *FrameDecoder) Pending() int {
	return d.carry.Len()
}

// decodeLine extracts the payload from one complete line. Returns false for
// blank separator lines and lines without the payload prefix.
func decodeLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, dataPrefix) {
		// Comments, id:, retry: and other SSE fields are not part of the
		// backend's framing; drop them.
		return "", false
	}
	payload := line[len(dataPrefix):]
	// The backend writes "data: <payload>"; tolerate a missing space.
	if strings.HasPrefix(payload, " ") {
		payload = payload[1:]
	}
	return payload, true
}
