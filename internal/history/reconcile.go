// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/novachat/internal/model"
)

// RegenerateWindow is the adjacency gap threshold: two records with the same
// grouping key reconcile into one slot only when their timestamps are within
// this window. Identical prompts asked further apart are treated as distinct
// turns, because users legitimately repeat questions.
const RegenerateWindow = 2 * time.Minute

// =============================================================================
// CONVERSATION SLOT
// =============================================================================

// ConversationSlot is one logical position in the reconciled conversation:
// a base turn plus its accumulated response versions, oldest first.
type ConversationSlot struct {
	// Base is the earliest turn mapped into this slot. Slot order in the
	// reconciled output equals first-occurrence order of base turns.
	Base *model.Turn

	// Versions holds one snapshot per stored response, sorted ascending by
	// creation time. A pending or failed send has zero versions.
	Versions []model.ResponseVersion

	// active indexes the displayed version. Defaults to the latest.
	active int
}

// VersionCount returns the number of response versions.
func (s *ConversationSlot) VersionCount() int {
	return len(s.Versions)
}

// ActiveIndex returns the index of the displayed version (0-based), or -1
// when the slot has no versions.
func (s *ConversationSlot) ActiveIndex() int {
	if len(s.Versions) == 0 {
		return -1
	}
	return s.active
}

// Displayed returns the response text of the active version, or the base
// turn's (possibly empty) response when no versions exist.
func (s *ConversationSlot) Displayed() string {
	if len(s.Versions) == 0 {
		return s.Base.ResponseText
	}
	return s.Versions[s.active].Text
}

// Select makes version i the displayed one. Out-of-range indexes are
// ignored.
func (s *ConversationSlot) Select(i int) {
	if i >= 0 && i < len(s.Versions) {
		s.active = i
	}
}

// Prev moves to the previous (older) version if one exists.
func (s *ConversationSlot) Prev() { s.Select(s.active - 1) }

// Next moves to the next (newer) version if one exists.
func (s *ConversationSlot) Next() { s.Select(s.active + 1) }

// AppendVersion adds a freshly finalized response as the newest version and
// displays it. Used when a regeneration completes live, outside Reconcile.
func (s *ConversationSlot) AppendVersion(v model.ResponseVersion) {
	s.Versions = append(s.Versions, v)
	s.active = len(s.Versions) - 1
}

// =============================================================================
// GROUPING KEY
// =============================================================================

// groupKey identifies "the same logical prompt was asked again": request
// text, image references in order, attachment ids sorted, and the model.
// Field separators use a control character so concatenation cannot collide
// with user text.
func groupKey(t *model.Turn) string {
	var sb strings.Builder
	sb.WriteString(t.RequestText)
	sb.WriteByte(0x1f)
	for _, img := range t.Images {
		sb.WriteString(img)
		sb.WriteByte(0x1e)
	}
	sb.WriteByte(0x1f)
	ids := make([]int64, 0, len(t.Attachments))
	for _, a := range t.Attachments {
		ids = append(ids, a.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sb.WriteString(strconv.FormatInt(id, 10))
		sb.WriteByte(0x1e)
	}
	sb.WriteByte(0x1f)
	sb.WriteString(t.Model)
	return sb.String()
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconcile groups a chronologically ordered (oldest first) flat turn list
// into conversation slots with response version chains.
//
// The walk is two-phase: the first pass assigns each turn to a slot by
// adjacency matching, the second pass finalizes version ordering and the
// displayed version. Guarantees: slot order equals first-occurrence order,
// every stored response lands in exactly one version of exactly one slot,
// and len(slots) <= len(turns).
func Reconcile(turns []*model.Turn) []*ConversationSlot {
	slots := make([]*ConversationSlot, 0, len(turns))

	// Phase 1: adjacency grouping. Only the most recently emitted slot can
	// absorb a turn; matching against older slots would interleave
	// regenerations across unrelated turns.
	var (
		lastKey  string
		lastTime time.Time
	)
	for _, t := range turns {
		key := groupKey(t)
		if len(slots) > 0 && key == lastKey && withinWindow(lastTime, t.CreatedAt) {
			cur := slots[len(slots)-1]
			if t.HasResponse() {
				cur.Versions = append(cur.Versions, model.VersionOf(t))
			}
			lastTime = t.CreatedAt
			continue
		}

		slot := &ConversationSlot{Base: t}
		if t.HasResponse() {
			slot.Versions = append(slot.Versions, model.VersionOf(t))
		}
		slots = append(slots, slot)
		lastKey = key
		lastTime = t.CreatedAt
	}

	// Phase 2: finalize. Input is assumed ordered, but merged chains must
	// not depend on that holding transitively, so multi-version chains are
	// re-sorted before the latest version is selected.
	for _, s := range slots {
		if len(s.Versions) >= 2 {
			sort.SliceStable(s.Versions, func(i, j int) bool {
				return s.Versions[i].CreatedAt.Before(s.Versions[j].CreatedAt)
			})
		}
		if len(s.Versions) > 0 {
			s.active = len(s.Versions) - 1
			s.Base.ResponseText = s.Versions[s.active].Text
		}
	}

	return slots
}

// withinWindow reports whether two timestamps fall within the regeneration
// window, in either direction.
func withinWindow(a, b time.Time) bool {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return d <= RegenerateWindow
}
