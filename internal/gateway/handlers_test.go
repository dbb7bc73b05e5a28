package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vboarder/vboarder/internal/agent"
	"github.com/vboarder/vboarder/internal/config"
	"github.com/vboarder/vboarder/internal/knowledge"
	"github.com/vboarder/vboarder/internal/memory"
	"github.com/vboarder/vboarder/internal/provider"
	"github.com/vboarder/vboarder/internal/session"
)

// stubResolver returns the same canned generator for every model.
type stubResolver struct {
	reply string
	err   error
}

func (r *stubResolver) For(string) agent.Generator {
	return agent.GeneratorFunc(func(context.Context, string) (string, error) {
		return r.reply, r.err
	})
}

func newTestServer(t *testing.T, resolver GeneratorResolver) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.AgentsDir = filepath.Join(dir, "agents")
	cfg.Storage.SessionsDir = filepath.Join(dir, "sessions")

	know, err := knowledge.Open(filepath.Join(dir, "knowledge.db"), nil)
	if err != nil {
		t.Fatalf("open knowledge store: %v", err)
	}
	t.Cleanup(func() { _ = know.Close() })

	if resolver == nil {
		resolver = &stubResolver{reply: "stub reply"}
	}

	return NewServer(
		cfg,
		nil,
		memory.NewStore(cfg.Storage.AgentsDir, memory.NewLockRegistry(), nil),
		session.NewManager(cfg.Storage.SessionsDir, cfg.Session.MaxTurns, nil),
		know,
		resolver,
	)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/memory", map[string]any{
		"agent":   "CTO",
		"section": "facts",
		"entry":   "deadline is Friday",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	var doc memory.Memory
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/api/memory?agent=CTO", nil), &doc)
	if len(doc.Facts) != 1 {
		t.Errorf("facts = %d, want 1", len(doc.Facts))
	}

	// Unknown section is a 400.
	rec = doJSON(t, h, http.MethodPost, "/api/memory", map[string]any{
		"agent": "CTO", "section": "notes", "entry": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad section status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/memory?agent=CTO&section=facts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/api/memory?agent=CTO", nil), &doc)
	if len(doc.Facts) != 0 {
		t.Errorf("facts after reset = %d", len(doc.Facts))
	}
}

func TestConversationEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/conversation", map[string]any{
		"agent": "CEO",
		"messages": []map[string]any{
			{"sender": "user", "message": "hello"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("append status = %d: %s", rec.Code, rec.Body.String())
	}
	var appended struct {
		SessionID string `json:"session_id"`
	}
	decodeResponse(t, rec, &appended)
	if appended.SessionID == "" {
		t.Fatal("no session id generated")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/conversation?agent=CEO&session_id="+appended.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("thread fetch status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/conversation?agent=CEO&session_id=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing thread status = %d", rec.Code)
	}
}

func TestContextEndpoint_Bounds(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	if rec := doJSON(t, h, http.MethodGet, "/api/context?agent=CTO", nil); rec.Code != http.StatusOK {
		t.Errorf("default limits status = %d: %s", rec.Code, rec.Body.String())
	}
	for _, q := range []string{"max_facts=0", "max_facts=51", "max_messages=-3", "max_facts=abc"} {
		if rec := doJSON(t, h, http.MethodGet, "/api/context?agent=CTO&"+q, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", q, rec.Code)
		}
	}
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &stubResolver{reply: "from the desk of the CTO"}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/chat/cto", map[string]any{
		"message": "remember the deadline is Friday",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	decodeResponse(t, rec, &resp)
	if resp.Agent != "CTO" || resp.SessionID != "default" {
		t.Errorf("response meta = %+v", resp)
	}
	if resp.Response != "from the desk of the CTO" {
		t.Errorf("response body = %q", resp.Response)
	}
	if resp.TurnsInSession != 1 {
		t.Errorf("turns = %d, want 1", resp.TurnsInSession)
	}

	// The memorable message landed in the agent's facts.
	var doc memory.Memory
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/api/memory?agent=CTO", nil), &doc)
	if len(doc.Facts) != 1 {
		t.Errorf("extracted facts = %d, want 1", len(doc.Facts))
	}

	// Second turn in the same session bumps the count.
	rec = doJSON(t, h, http.MethodPost, "/chat/cto", map[string]any{"message": "and what about testing"})
	decodeResponse(t, rec, &resp)
	if resp.TurnsInSession != 2 {
		t.Errorf("turns after second message = %d, want 2", resp.TurnsInSession)
	}
}

func TestChatEndpoint_Errors(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	if rec := doJSON(t, h, http.MethodPost, "/chat/intern", map[string]any{"message": "hi"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown agent status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/chat/cto", map[string]any{"message": "  "}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank message status = %d", rec.Code)
	}

	failing := &stubResolver{err: fmt.Errorf("%w: connection refused", provider.ErrProviderDown)}
	h = newTestServer(t, failing).Handler()
	if rec := doJSON(t, h, http.MethodPost, "/chat/cto", map[string]any{"message": "hi"}); rec.Code != http.StatusBadGateway {
		t.Errorf("backend failure status = %d", rec.Code)
	}
}

func TestReasonEndpoint(t *testing.T) {
	t.Parallel()

	// Long structured reply scores above the default threshold on the
	// first iteration.
	reply := "1. Define scope\n2. Gather data\n3. Decide\n" + strings.Repeat("analysis of the tradeoffs involved. ", 10)
	h := newTestServer(t, &stubResolver{reply: reply}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/reason", map[string]any{
		"task": "plan the quarterly architecture review",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reason status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp reasonResponse
	decodeResponse(t, rec, &resp)
	if resp.ReasoningStatus != agent.StatusSuccess {
		t.Errorf("status = %q, want success", resp.ReasoningStatus)
	}
	if resp.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", resp.Iterations)
	}
	if resp.Routing.Slot == "" || resp.Routing.Model == "" {
		t.Errorf("routing missing: %+v", resp.Routing)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/reason", map[string]any{"task": ""}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty task status = %d", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	for _, sid := range []string{"alpha", "beta"} {
		rec := doJSON(t, h, http.MethodPost, "/chat/coo", map[string]any{
			"message": "status check", "session_id": sid,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("chat setup status = %d", rec.Code)
		}
	}

	var listed struct {
		Agent    string   `json:"agent"`
		Sessions []string `json:"sessions"`
	}
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/sessions/coo", nil), &listed)
	if len(listed.Sessions) != 2 {
		t.Errorf("sessions = %v, want 2", listed.Sessions)
	}

	var all struct {
		Sessions map[string][]string `json:"sessions"`
	}
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/sessions", nil), &all)
	if len(all.Sessions["coo"]) != 2 {
		t.Errorf("all sessions = %v", all.Sessions)
	}

	if rec := doJSON(t, h, http.MethodDelete, "/sessions/coo/alpha", nil); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/sessions/coo", nil), &listed)
	if len(listed.Sessions) != 1 || listed.Sessions[0] != "beta" {
		t.Errorf("sessions after delete = %v", listed.Sessions)
	}

	if rec := doJSON(t, h, http.MethodGet, "/sessions/intern", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown agent status = %d", rec.Code)
	}
}

func TestHealthAndAgents(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	var health healthResponse
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/health", nil), &health)
	if health.Status != "ok" || health.Agents != 9 {
		t.Errorf("health = %+v", health)
	}

	var agentList struct {
		Agents []struct {
			Role string `json:"role"`
		} `json:"agents"`
	}
	decodeResponse(t, doJSON(t, h, http.MethodGet, "/agents", nil), &agentList)
	if len(agentList.Agents) != 9 {
		t.Errorf("agents = %d, want 9", len(agentList.Agents))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "vboarder_http_requests_total") {
		// The counter appears once any handler has run; hit one first.
		doJSON(t, h, http.MethodGet, "/health", nil)
		rec = doJSON(t, h, http.MethodGet, "/metrics", nil)
		if !strings.Contains(rec.Body.String(), "vboarder_http_requests_total") {
			t.Error("request counter not exported")
		}
	}
}
