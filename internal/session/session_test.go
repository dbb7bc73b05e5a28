package session

import (
	"fmt"
	"testing"
)

func TestSanitizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", "default"},
		{"   ", "default"},
		{"***", "default"},
		{"a--b", "a-b"},
		{"a  b", "a-b"},
		{"Hello_World-42", "Hello_World-42"},
		{"--edge--", "edge"},
		{"sprint/3:review", "sprint-3-review"},
	}

	for _, tt := range tests {
		if got := SanitizeID(tt.in); got != tt.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeID_Truncates(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefghij"
	}
	if got := SanitizeID(long); len(got) != 100 {
		t.Errorf("len(SanitizeID(long)) = %d, want 100", len(got))
	}
}

func makeHistory(turns int) []Message {
	var msgs []Message
	for i := 0; i < turns; i++ {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: fmt.Sprintf("question %d", i)},
			Message{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
		)
	}
	return msgs
}

func TestPruneHistory(t *testing.T) {
	t.Parallel()

	// Under the limit: unchanged.
	msgs := makeHistory(3)
	if got := PruneHistory(msgs, 5); len(got) != len(msgs) {
		t.Errorf("prune under limit changed length: %d", len(got))
	}

	// Over the limit: slice starts at the maxTurns-th-from-last user
	// message; pairs stay together.
	msgs = makeHistory(8)
	got := PruneHistory(msgs, 3)
	if len(got) != 6 {
		t.Fatalf("pruned length = %d, want 6", len(got))
	}
	if got[0].Role != RoleUser || got[0].Content != "question 5" {
		t.Errorf("first kept message = %+v, want question 5", got[0])
	}
	if CountUserTurns(got) != 3 {
		t.Errorf("user turns after prune = %d, want 3", CountUserTurns(got))
	}

	// Empty input stays empty.
	if got := PruneHistory(nil, 3); len(got) != 0 {
		t.Errorf("prune of nil = %v", got)
	}
}

func TestPruneHistory_DefaultLimit(t *testing.T) {
	t.Parallel()

	msgs := makeHistory(60)
	got := PruneHistory(msgs, 0)
	if turns := CountUserTurns(got); turns != MaxTurns {
		t.Errorf("user turns = %d, want default %d", turns, MaxTurns)
	}
}

func TestManager_ReadWriteRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), 50, nil)

	if got := m.ReadMessages("cto", "default"); len(got) != 0 {
		t.Errorf("fresh session not empty: %v", got)
	}

	msgs := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}
	if err := m.WriteMessages("cto", "default", msgs); err != nil {
		t.Fatalf("WriteMessages: %v", err)
	}

	got := m.ReadMessages("cto", "default")
	if len(got) != 2 || got[0].Content != "hello" || got[1].Content != "hi" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestManager_WritePrunes(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), 2, nil)

	if err := m.WriteMessages("ceo", "s", makeHistory(5)); err != nil {
		t.Fatalf("WriteMessages: %v", err)
	}

	got := m.ReadMessages("ceo", "s")
	if turns := CountUserTurns(got); turns != 2 {
		t.Errorf("persisted user turns = %d, want 2", turns)
	}
}

func TestManager_ListAndDelete(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), 50, nil)

	for _, sid := range []string{"alpha", "beta"} {
		if err := m.WriteMessages("cto", sid, makeHistory(1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.WriteMessages("ceo", "gamma", makeHistory(1)); err != nil {
		t.Fatal(err)
	}

	ids, err := m.List("cto")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("List(cto) = %v, want 2 sessions", ids)
	}

	all, err := m.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all["cto"]) != 2 || len(all["ceo"]) != 1 {
		t.Errorf("ListAll = %v", all)
	}

	if err := m.Delete("cto", "alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, _ = m.List("cto")
	if len(ids) != 1 || ids[0] != "beta" {
		t.Errorf("after delete List(cto) = %v", ids)
	}

	// Deleting a missing session is a no-op.
	if err := m.Delete("cto", "alpha"); err != nil {
		t.Errorf("double delete errored: %v", err)
	}
}
