package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzansiprolife/platform/internal/chat"
	"github.com/mzansiprolife/platform/internal/conversation"
	"github.com/mzansiprolife/platform/internal/observability/metrics"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// mockTranscript stores messages in memory.
type mockTranscript struct {
	conversations map[string]uuid.UUID
	names         map[string]string
	phones        map[string]string
	escalated     map[string]bool
	store         map[string][]conversation.TranscriptMessage
}

func newMockTranscript() *mockTranscript {
	return &mockTranscript{
		conversations: make(map[string]uuid.UUID),
		names:         make(map[string]string),
		phones:        make(map[string]string),
		escalated:     make(map[string]bool),
		store:         make(map[string][]conversation.TranscriptMessage),
	}
}

func (m *mockTranscript) EnsureConversation(_ context.Context, sessionID, userName, userPhone string) (uuid.UUID, error) {
	id, ok := m.conversations[sessionID]
	if !ok {
		id = uuid.New()
		m.conversations[sessionID] = id
	}
	if userName != "" {
		m.names[sessionID] = userName
	}
	if userPhone != "" {
		m.phones[sessionID] = userPhone
	}
	return id, nil
}

func (m *mockTranscript) Append(_ context.Context, sessionID string, msg conversation.TranscriptMessage) error {
	m.store[sessionID] = append(m.store[sessionID], msg)
	return nil
}

func (m *mockTranscript) List(_ context.Context, sessionID string, limit int) ([]conversation.TranscriptMessage, error) {
	msgs := m.store[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *mockTranscript) SetEscalated(_ context.Context, sessionID string) error {
	m.escalated[sessionID] = true
	return nil
}

func newTestHandler(ts TranscriptStore) *Handler {
	h := NewHandler(chat.Config{}, ts, nil, nil, []byte("// widget"), logging.New("error"))
	h.SetTypingDelay(0)
	return h
}

// completeIntake walks a session through the name/phone gate.
func completeIntake(t *testing.T, h *Handler, sessionID string) {
	t.Helper()
	reply := h.processTurn(context.Background(), sessionID, "Thandi Nkosi", "", "http")
	require.Contains(t, reply.Content, "phone")
	reply = h.processTurn(context.Background(), sessionID, "082 555 0123", "", "http")
	require.NotEmpty(t, reply.Options)
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestIntakeGate(t *testing.T) {
	ts := newMockTranscript()
	h := newTestHandler(ts)
	ctx := context.Background()

	// Name first.
	reply := h.processTurn(ctx, "sess1", "Thandi", "", "http")
	assert.Contains(t, reply.Content, "phone")
	assert.Empty(t, ts.store["sess1"], "nothing persisted before intake completes")

	// Bad phone re-prompts without advancing.
	reply = h.processTurn(ctx, "sess1", "not a number", "", "http")
	assert.Contains(t, reply.Content, "10 digits")
	assert.Empty(t, ts.conversations)

	// Valid phone completes the gate and opens the menu.
	reply = h.processTurn(ctx, "sess1", "082 555 0123", "", "http")
	assert.Contains(t, reply.Content, "Thandi")
	assert.Len(t, reply.Options, 8)

	require.Contains(t, ts.conversations, "sess1")
	assert.Equal(t, "Thandi", ts.names["sess1"])
	assert.Equal(t, "082 555 0123", ts.phones["sess1"])
}

func TestProcessTurn_PersistsBothRoles(t *testing.T) {
	ts := newMockTranscript()
	h := newTestHandler(ts)
	completeIntake(t, h, "sess1")

	h.processTurn(context.Background(), "sess1", "I want to donate", "", "http")

	msgs := ts.store["sess1"]
	// welcome + user turn + assistant reply
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "I want to donate", msgs[1].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.NotEmpty(t, msgs[2].Options)
}

func TestProcessTurn_EscalationFlagsConversation(t *testing.T) {
	ts := newMockTranscript()
	h := newTestHandler(ts)
	completeIntake(t, h, "sess1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.processTurn(ctx, "sess1", "qwxz zxwq qzqz", "", "http")
	}
	assert.True(t, ts.escalated["sess1"])
}

func TestProcessTurn_PersistenceFailureDoesNotStall(t *testing.T) {
	// A nil store drops every write; the engine must still answer.
	h := newTestHandler(nil)
	ctx := context.Background()

	h.processTurn(ctx, "sess1", "Thandi", "", "http")
	h.processTurn(ctx, "sess1", "0825550123", "", "http")
	reply := h.processTurn(ctx, "sess1", "hello", "", "http")
	assert.NotEmpty(t, reply.Content)
	assert.Len(t, reply.Options, 8)
}

func TestHandleMessage_HTTP(t *testing.T) {
	ts := newMockTranscript()
	h := newTestHandler(ts)

	body := `{"session_id":"sess1","text":"Thandi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "message", resp.Type)
	assert.Equal(t, "sess1", resp.SessionID)
	assert.Contains(t, resp.Content, "Thandi")
}

func TestHandleMessage_MissingInput(t *testing.T) {
	h := newTestHandler(nil)

	body := `{"session_id":"sess1","text":"  "}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_GeneratesSessionID(t *testing.T) {
	h := newTestHandler(nil)

	body := `{"text":"Hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleHistory(t *testing.T) {
	ts := newMockTranscript()
	ts.store["sess1"] = []conversation.TranscriptMessage{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Sawubona!", Options: json.RawMessage(`[{"label":"Menu","value":"menu"}]`)},
	}
	h := newTestHandler(ts)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "Hello", resp.Messages[0].Content)
	assert.NotEmpty(t, resp.Messages[1].Options)
}

func TestHandleHistory_MissingSession(t *testing.T) {
	h := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWidgetJS(t *testing.T) {
	h := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "// widget", w.Body.String())
}

func TestIntentMetricUsesClassifiedLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(chat.Config{}, newMockTranscript(), nil, metrics.NewChatMetrics(reg), []byte("// widget"), logging.New("error"))
	h.SetTypingDelay(0)
	completeIntake(t, h, "sess1")

	raw := "hello there I was wondering about your projects in Durban"
	h.processTurn(context.Background(), "sess1", raw, "", "http")

	families, err := reg.Gather()
	require.NoError(t, err)

	var labels []string
	for _, fam := range families {
		if fam.GetName() != "mzansiprolife_chat_intents_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "intent" {
					labels = append(labels, l.GetValue())
				}
			}
		}
	}

	valid := map[string]bool{
		string(chat.IntentGreeting): true, string(chat.IntentAmbassador): true,
		string(chat.IntentProducts): true, string(chat.IntentAdvertise): true,
		string(chat.IntentDonate): true, string(chat.IntentJobs): true,
		string(chat.IntentQuestion): true, string(chat.IntentOutreach): true,
		string(chat.IntentContact): true, string(chat.IntentProjects): true,
		string(chat.IntentAbout): true, string(chat.IntentUnknown): true,
	}
	require.NotEmpty(t, labels, "free-text turn must count an intent")
	for _, v := range labels {
		assert.NotEqual(t, raw, v, "raw user text must never become a label value")
		assert.True(t, valid[v], "unexpected intent label %q", v)
	}
	assert.Contains(t, labels, string(chat.IntentGreeting))
}

func TestSessionManager_ReusesEngine(t *testing.T) {
	m := newSessionManager(chat.Config{})
	s1 := m.get("a")
	s2 := m.get("a")
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.count())

	m.drop("a")
	assert.Equal(t, 0, m.count())
	assert.NotSame(t, s1, m.get("a"), "dropping a session loses flow progress")
}

func TestSessionManager_EvictsIdleSessions(t *testing.T) {
	m := newSessionManager(chat.Config{})

	// HTTP fallback sessions never see a disconnect, so idle ones must age out.
	m.get("stale")
	m.get("live")
	m.mu.Lock()
	m.sessions["stale"].lastSeen = time.Now().Add(-sessionIdleTTL - time.Minute)
	m.mu.Unlock()

	m.evictIdle(time.Now().Add(-sessionIdleTTL))

	assert.Equal(t, 1, m.count())
	m.mu.RLock()
	_, stale := m.sessions["stale"]
	_, live := m.sessions["live"]
	m.mu.RUnlock()
	assert.False(t, stale)
	assert.True(t, live)

	// Activity refreshes the clock.
	m.mu.Lock()
	m.sessions["live"].lastSeen = time.Now().Add(-sessionIdleTTL - time.Minute)
	m.mu.Unlock()
	m.get("live")
	m.evictIdle(time.Now().Add(-sessionIdleTTL))
	assert.Equal(t, 1, m.count())
}

func TestValidPhone(t *testing.T) {
	assert.True(t, validPhone("082 555 0123"))
	assert.True(t, validPhone("+27 (82) 555-0123"))
	assert.False(t, validPhone("call me"))
	assert.False(t, validPhone("12345"))
}
