package knowledge

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractFact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"the project codename is Aurora", true},
		{"Codename = Falcon", true},
		{"remember that staging deploys happen on Tuesdays", true},
		{"the deadline is March 14", true},
		{"our budget is 2M for Q3", true},
		{"the stakeholder is Jordan from platform", true},
		{"the owner is the infra team", true},
		{"what is the weather today", false},
		{"tell me about our roadmap", false},
		{"", false},
	}

	for _, tt := range tests {
		got := ExtractFact(tt.in)
		if (got != "") != tt.want {
			t.Errorf("ExtractFact(%q) = %q, want match=%v", tt.in, got, tt.want)
		}
		if got != "" && got != strings.TrimSpace(tt.in) {
			t.Errorf("ExtractFact(%q) = %q, not trimmed input", tt.in, got)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "knowledge.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_AddAndRecent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Add(ctx, "deadline is Friday", "CTO")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatal("first fact not added")
	}

	// Case-insensitive duplicate within the recent window is skipped.
	added, err = store.Add(ctx, "Deadline IS Friday", "CEO")
	if err != nil {
		t.Fatalf("duplicate Add: %v", err)
	}
	if added {
		t.Error("duplicate fact was added")
	}

	if _, err := store.Add(ctx, "budget is 2M", "CFO"); err != nil {
		t.Fatal(err)
	}

	facts, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("facts = %d, want 2", len(facts))
	}
	// Newest first.
	if facts[0].Text != "budget is 2M" || facts[1].Text != "deadline is Friday" {
		t.Errorf("recent order wrong: %+v", facts)
	}
	if facts[0].Source != "CFO" {
		t.Errorf("source = %q, want CFO", facts[0].Source)
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
}

func TestStore_AddIgnoresBlank(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	added, err := store.Add(context.Background(), "   ", "CTO")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added {
		t.Error("blank fact was added")
	}
}

func TestStore_PromptBlock(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	block, err := store.PromptBlock(ctx, 10)
	if err != nil {
		t.Fatalf("PromptBlock: %v", err)
	}
	if block != "" {
		t.Errorf("empty store block = %q, want empty", block)
	}

	for _, text := range []string{"codename is Aurora", "deadline is Friday"} {
		if _, err := store.Add(ctx, text, "COS"); err != nil {
			t.Fatal(err)
		}
	}

	block, err = store.PromptBlock(ctx, 10)
	if err != nil {
		t.Fatalf("PromptBlock: %v", err)
	}
	if !strings.HasPrefix(block, "Shared team knowledge") {
		t.Errorf("block header missing: %q", block)
	}
	// Oldest first in prompt order.
	if strings.Index(block, "Aurora") > strings.Index(block, "Friday") {
		t.Errorf("prompt block not oldest-first:\n%s", block)
	}
}

func TestStore_Compact(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := store.Add(ctx, "fact number "+string(rune('a'+i)), "SEC"); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := store.Compact(ctx, 4)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if removed != 6 {
		t.Errorf("removed = %d, want 6", removed)
	}
	if store.Len() != 4 {
		t.Errorf("Len after compact = %d, want 4", store.Len())
	}

	// Survivors are the newest facts.
	facts, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if facts[0].Text != "fact number j" {
		t.Errorf("newest survivor = %q", facts[0].Text)
	}
}
