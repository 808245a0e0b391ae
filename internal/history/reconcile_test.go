// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"
	"time"

	"github.com/jeranaias/novachat/internal/model"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func turnAt(id int64, req, resp string, at time.Time) *model.Turn {
	status := model.TurnComplete
	if resp == "" {
		status = model.TurnPending
	}
	return &model.Turn{
		ID:           id,
		RequestText:  req,
		ResponseText: resp,
		CreatedAt:    at,
		Status:       status,
	}
}

func TestReconcileDistinctTurns(t *testing.T) {
	turns := []*model.Turn{
		turnAt(1, "first", "A", t0),
		turnAt(2, "second", "B", t0.Add(time.Minute)),
	}
	slots := Reconcile(turns)
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if slots[0].Displayed() != "A" || slots[1].Displayed() != "B" {
		t.Errorf("displayed = %q/%q", slots[0].Displayed(), slots[1].Displayed())
	}
	if slots[0].VersionCount() != 1 || slots[1].VersionCount() != 1 {
		t.Errorf("version counts = %d/%d, want 1/1", slots[0].VersionCount(), slots[1].VersionCount())
	}
}

func TestReconcileRegenerationMerges(t *testing.T) {
	turns := []*model.Turn{
		turnAt(1, "same question", "first answer", t0),
		turnAt(2, "same question", "regenerated answer", t0.Add(30*time.Second)),
	}
	slots := Reconcile(turns)
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1 merged slot", len(slots))
	}
	s := slots[0]
	if s.VersionCount() != 2 {
		t.Fatalf("VersionCount() = %d, want 2", s.VersionCount())
	}
	if s.Displayed() != "regenerated answer" {
		t.Errorf("Displayed() = %q, want latest version", s.Displayed())
	}
	if s.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex() = %d, want 1", s.ActiveIndex())
	}
	if s.Base.ID != 1 {
		t.Errorf("Base.ID = %d, want earliest turn", s.Base.ID)
	}
	if s.Base.ResponseText != "regenerated answer" {
		t.Errorf("base response = %q, want latest text", s.Base.ResponseText)
	}
}

func TestReconcileWindowSplits(t *testing.T) {
	// Same prompt, asked again past the window: a genuine repeat question.
	turns := []*model.Turn{
		turnAt(1, "what time is it", "noon", t0),
		turnAt(2, "what time is it", "half past", t0.Add(RegenerateWindow+time.Second)),
	}
	slots := Reconcile(turns)
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2 separate slots", len(slots))
	}
}

func TestReconcileWindowBoundaryInclusive(t *testing.T) {
	turns := []*model.Turn{
		turnAt(1, "q", "a", t0),
		turnAt(2, "q", "b", t0.Add(RegenerateWindow)),
	}
	if slots := Reconcile(turns); len(slots) != 1 {
		t.Errorf("len(slots) = %d, want exact-window gap to merge", len(slots))
	}
}

func TestReconcileWindowSlidesAlongChain(t *testing.T) {
	// Each regeneration refreshes the adjacency anchor: a chain spaced at
	// 90s intervals stays one slot even though the ends are 3 minutes apart.
	turns := []*model.Turn{
		turnAt(1, "q", "v1", t0),
		turnAt(2, "q", "v2", t0.Add(90*time.Second)),
		turnAt(3, "q", "v3", t0.Add(180*time.Second)),
	}
	slots := Reconcile(turns)
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1 chained slot", len(slots))
	}
	if slots[0].VersionCount() != 3 {
		t.Errorf("VersionCount() = %d, want 3", slots[0].VersionCount())
	}
	if slots[0].Displayed() != "v3" {
		t.Errorf("Displayed() = %q, want v3", slots[0].Displayed())
	}
}

func TestReconcileOnlyLastSlotAbsorbs(t *testing.T) {
	// An intervening different prompt breaks adjacency even inside the
	// window: only the most recent slot can absorb.
	turns := []*model.Turn{
		turnAt(1, "q", "a1", t0),
		turnAt(2, "other", "b", t0.Add(10*time.Second)),
		turnAt(3, "q", "a2", t0.Add(20*time.Second)),
	}
	slots := Reconcile(turns)
	if len(slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(slots))
	}
}

func TestReconcileModelChangesKey(t *testing.T) {
	a := turnAt(1, "q", "a", t0)
	a.Model = "gemini-2.5-flash"
	b := turnAt(2, "q", "b", t0.Add(10*time.Second))
	b.Model = "gpt-4o"
	if slots := Reconcile([]*model.Turn{a, b}); len(slots) != 2 {
		t.Errorf("len(slots) = %d, want model change to split", len(slots))
	}
}

func TestReconcileAttachmentOrderIrrelevant(t *testing.T) {
	a := turnAt(1, "q", "a", t0)
	a.Attachments = []model.Attachment{{ID: 2}, {ID: 1}}
	b := turnAt(2, "q", "b", t0.Add(10*time.Second))
	b.Attachments = []model.Attachment{{ID: 1}, {ID: 2}}
	if slots := Reconcile([]*model.Turn{a, b}); len(slots) != 1 {
		t.Errorf("len(slots) = %d, want sorted attachment ids to match", len(slots))
	}
}

func TestReconcileImageOrderMatters(t *testing.T) {
	a := turnAt(1, "q", "a", t0)
	a.Images = []string{"img1", "img2"}
	b := turnAt(2, "q", "b", t0.Add(10*time.Second))
	b.Images = []string{"img2", "img1"}
	if slots := Reconcile([]*model.Turn{a, b}); len(slots) != 2 {
		t.Errorf("len(slots) = %d, want image order to distinguish", len(slots))
	}
}

func TestReconcileEmptyResponseSeedsSlot(t *testing.T) {
	turns := []*model.Turn{
		turnAt(1, "unanswered", "", t0),
	}
	slots := Reconcile(turns)
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	s := slots[0]
	if s.VersionCount() != 0 {
		t.Errorf("VersionCount() = %d, want 0 for empty response", s.VersionCount())
	}
	if s.ActiveIndex() != -1 {
		t.Errorf("ActiveIndex() = %d, want -1", s.ActiveIndex())
	}
	if s.Displayed() != "" {
		t.Errorf("Displayed() = %q, want empty", s.Displayed())
	}
}

func TestReconcileEmptyThenRegenerated(t *testing.T) {
	// A failed send followed by a successful retry of the same prompt merges
	// into one slot with a single version.
	turns := []*model.Turn{
		turnAt(1, "q", "", t0),
		turnAt(2, "q", "worked", t0.Add(15*time.Second)),
	}
	slots := Reconcile(turns)
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if slots[0].VersionCount() != 1 {
		t.Errorf("VersionCount() = %d, want only the stored response", slots[0].VersionCount())
	}
	if slots[0].Displayed() != "worked" {
		t.Errorf("Displayed() = %q", slots[0].Displayed())
	}
}

func TestReconcileOutOfOrderVersionsSorted(t *testing.T) {
	// Records whose timestamps arrive slightly out of order still produce an
	// ascending version chain with the latest displayed.
	turns := []*model.Turn{
		turnAt(1, "q", "middle", t0.Add(30*time.Second)),
		turnAt(2, "q", "oldest", t0),
		turnAt(3, "q", "newest", t0.Add(60*time.Second)),
	}
	slots := Reconcile(turns)
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	s := slots[0]
	want := []string{"oldest", "middle", "newest"}
	for i, v := range s.Versions {
		if v.Text != want[i] {
			t.Errorf("Versions[%d].Text = %q, want %q", i, v.Text, want[i])
		}
	}
	if s.Displayed() != "newest" {
		t.Errorf("Displayed() = %q, want newest", s.Displayed())
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	if slots := Reconcile(nil); len(slots) != 0 {
		t.Errorf("Reconcile(nil) = %v, want empty", slots)
	}
}

func TestReconcileEveryResponseInExactlyOneVersion(t *testing.T) {
	turns := []*model.Turn{
		turnAt(1, "a", "r1", t0),
		turnAt(2, "a", "r2", t0.Add(10*time.Second)),
		turnAt(3, "b", "r3", t0.Add(20*time.Second)),
		turnAt(4, "c", "", t0.Add(30*time.Second)),
		turnAt(5, "b", "r4", t0.Add(40*time.Second)),
	}
	slots := Reconcile(turns)

	if len(slots) > len(turns) {
		t.Errorf("len(slots) = %d > len(turns) = %d", len(slots), len(turns))
	}
	seen := map[string]int{}
	for _, s := range slots {
		for _, v := range s.Versions {
			seen[v.Text]++
		}
	}
	for _, text := range []string{"r1", "r2", "r3", "r4"} {
		if seen[text] != 1 {
			t.Errorf("response %q appears %d times, want exactly 1", text, seen[text])
		}
	}
}

func TestSlotVersionNavigation(t *testing.T) {
	turns := []*model.Turn{
		turnAt(1, "q", "v1", t0),
		turnAt(2, "q", "v2", t0.Add(10*time.Second)),
		turnAt(3, "q", "v3", t0.Add(20*time.Second)),
	}
	s := Reconcile(turns)[0]

	if s.Displayed() != "v3" {
		t.Fatalf("Displayed() = %q, want v3", s.Displayed())
	}
	s.Prev()
	if s.Displayed() != "v2" {
		t.Errorf("after Prev: %q, want v2", s.Displayed())
	}
	s.Prev()
	s.Prev() // clamped at oldest
	if s.Displayed() != "v1" {
		t.Errorf("after double Prev: %q, want v1", s.Displayed())
	}
	s.Next()
	if s.Displayed() != "v2" {
		t.Errorf("after Next: %q, want v2", s.Displayed())
	}
	s.Select(99) // ignored
	if s.Displayed() != "v2" {
		t.Errorf("out-of-range Select moved display: %q", s.Displayed())
	}
}

func TestSlotAppendVersionLive(t *testing.T) {
	s := Reconcile([]*model.Turn{turnAt(1, "q", "old", t0)})[0]
	s.AppendVersion(model.ResponseVersion{ID: 2, Text: "fresh", CreatedAt: t0.Add(time.Minute)})
	if s.VersionCount() != 2 {
		t.Fatalf("VersionCount() = %d, want 2", s.VersionCount())
	}
	if s.Displayed() != "fresh" {
		t.Errorf("Displayed() = %q, want the live regeneration", s.Displayed())
	}
}
