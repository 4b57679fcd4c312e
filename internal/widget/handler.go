// Package widget serves the embeddable site chat widget: WebSocket transport
// with an HTTP fallback, a two-step intake gate, per-session flow engines and
// best-effort transcript persistence.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/mzansiprolife/platform/internal/chat"
	"github.com/mzansiprolife/platform/internal/conversation"
	"github.com/mzansiprolife/platform/internal/observability/metrics"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// TranscriptStore persists conversation transcripts. Implementations must
// tolerate being called with a session that has no conversation yet.
type TranscriptStore interface {
	EnsureConversation(ctx context.Context, sessionID, userName, userPhone string) (uuid.UUID, error)
	Append(ctx context.Context, sessionID string, msg conversation.TranscriptMessage) error
	List(ctx context.Context, sessionID string, limit int) ([]conversation.TranscriptMessage, error)
	SetEscalated(ctx context.Context, sessionID string) error
}

// HistoryCache keeps recent transcripts hot for reconnect replay.
type HistoryCache interface {
	Save(ctx context.Context, sessionID string, history []conversation.TranscriptMessage) error
	Load(ctx context.Context, sessionID string) ([]conversation.TranscriptMessage, error)
	Drop(ctx context.Context, sessionID string) error
}

// Handler manages widget connections and messages.
type Handler struct {
	sessions   *sessionManager
	transcript TranscriptStore
	cache      HistoryCache
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
	widgetJS   []byte

	// typingDelay is the cosmetic pause between the typing frame and the
	// reply. Zero disables it.
	typingDelay time.Duration

	mu    sync.RWMutex
	conns map[string]*wsConn // session id -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Option    string `json:"option"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content,omitempty"`
	Options   []chat.Option    `json:"options,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Options   json.RawMessage `json:"options,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// NewHandler creates a widget handler.
func NewHandler(engineCfg chat.Config, transcript TranscriptStore, cache HistoryCache, chatMetrics *metrics.ChatMetrics, widgetJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessions:    newSessionManager(engineCfg),
		transcript:  transcript,
		cache:       cache,
		metrics:     chatMetrics,
		logger:      logger,
		widgetJS:    widgetJS,
		typingDelay: 400 * time.Millisecond,
		conns:       make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	reconnect := sessionID != ""
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if reconnect {
		if history := h.loadHistory(r.Context(), sessionID); len(history) > 0 {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
		}
	}

	sess := h.sessions.get(sessionID)
	if !sess.ready() {
		_ = websocket.JSON.Send(conn, h.intakePrompt(sess))
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.conns[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.conns[sessionID] == wsc {
			delete(h.conns, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
		h.sessions.drop(sessionID)
	}()

	h.logger.Info("widget: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("widget: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || (strings.TrimSpace(msg.Text) == "" && msg.Option == "") {
			continue
		}

		h.sendToSession(sessionID, OutboundMessage{Type: "typing"})
		if h.typingDelay > 0 {
			time.Sleep(h.typingDelay)
		}

		reply := h.processTurn(r.Context(), sessionID, msg.Text, msg.Option, "ws")
		h.sendToSession(sessionID, reply)
	}
}

// processTurn runs one conversation turn through the intake gate or the
// engine and returns the assistant frame.
func (h *Handler) processTurn(ctx context.Context, sessionID, text, option, source string) OutboundMessage {
	start := time.Now()
	sess := h.sessions.get(sessionID)

	if !sess.ready() {
		return h.stepIntake(ctx, sess, text)
	}

	h.persist(ctx, sessionID, conversation.TranscriptMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   userContent(text, option),
		Timestamp: time.Now().UTC(),
	})

	reply := sess.engine.ProcessInput(text, option)
	st := sess.engine.State()

	h.persist(ctx, sessionID, conversation.TranscriptMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   reply.Content,
		Options:   marshalOptions(reply.Options),
		Timestamp: reply.Timestamp,
	})
	h.refreshCache(ctx, sessionID)

	if escalated(reply) {
		h.metrics.ObserveEscalation()
		if h.transcript != nil {
			if err := h.transcript.SetEscalated(ctx, sessionID); err != nil {
				h.logger.Error("widget: failed to flag escalation", "session_id", sessionID, "error", err)
			}
		}
	}

	flow := string(st.CurrentFlow)
	if flow == "" {
		flow = "none"
	}
	h.metrics.ObserveTurn(flow, source)
	if st.LastIntent != "" {
		h.metrics.ObserveIntent(string(st.LastIntent))
	}
	h.metrics.ObserveTurnLatency(time.Since(start).Seconds())

	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Content:   reply.Content,
		Options:   reply.Options,
		SessionID: sessionID,
		Timestamp: reply.Timestamp.Format(time.RFC3339),
	}
}

// stepIntake advances the name/phone gate. Nothing is persisted until the
// gate completes.
func (h *Handler) stepIntake(ctx context.Context, sess *session, text string) OutboundMessage {
	text = strings.TrimSpace(text)

	switch sess.stage {
	case intakeName:
		if text == "" {
			return h.intakePrompt(sess)
		}
		sess.userName = text
		sess.stage = intakePhone
		return h.intakePrompt(sess)

	case intakePhone:
		if !validPhone(text) {
			return OutboundMessage{
				Type:      "message",
				Role:      "assistant",
				Content:   "That number doesn't look right. Please enter a phone number with at least 10 digits.",
				SessionID: sess.id,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}
		}
		sess.userPhone = text
		sess.stage = intakeDone

		if h.transcript != nil {
			if _, err := h.transcript.EnsureConversation(ctx, sess.id, sess.userName, sess.userPhone); err != nil {
				h.logger.Error("widget: failed to create conversation", "session_id", sess.id, "error", err)
			}
		}

		welcome := sess.engine.ProcessInput("", "menu")
		h.persist(ctx, sess.id, conversation.TranscriptMessage{
			ID:        uuid.NewString(),
			Role:      "assistant",
			Content:   welcome.Content,
			Options:   marshalOptions(welcome.Options),
			Timestamp: welcome.Timestamp,
		})
		h.refreshCache(ctx, sess.id)

		return OutboundMessage{
			Type:      "message",
			Role:      "assistant",
			Content:   fmt.Sprintf("Thanks %s! %s", firstWord(sess.userName), welcome.Content),
			Options:   welcome.Options,
			SessionID: sess.id,
			Timestamp: welcome.Timestamp.Format(time.RFC3339),
		}
	}

	return h.intakePrompt(sess)
}

func (h *Handler) intakePrompt(sess *session) OutboundMessage {
	content := "Hi there! Before we start, what's your name?"
	if sess.stage == intakePhone {
		content = fmt.Sprintf("Nice to meet you, %s! And your phone number, in case we get cut off?", firstWord(sess.userName))
	}
	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Content:   content,
		SessionID: sess.id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// persist writes a transcript message, logging and swallowing failures so the
// conversation never stalls on the database.
func (h *Handler) persist(ctx context.Context, sessionID string, msg conversation.TranscriptMessage) {
	if h.transcript == nil {
		return
	}
	if err := h.transcript.Append(ctx, sessionID, msg); err != nil {
		h.logger.Error("widget: failed to persist message", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) refreshCache(ctx context.Context, sessionID string) {
	if h.cache == nil || h.transcript == nil {
		return
	}
	history, err := h.transcript.List(ctx, sessionID, 50)
	if err != nil || len(history) == 0 {
		return
	}
	if err := h.cache.Save(ctx, sessionID, history); err != nil {
		h.logger.Debug("widget: failed to refresh history cache", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) loadHistory(ctx context.Context, sessionID string) []HistoryMessage {
	var msgs []conversation.TranscriptMessage
	if h.cache != nil {
		msgs, _ = h.cache.Load(ctx, sessionID)
	}
	if len(msgs) == 0 && h.transcript != nil {
		var err error
		msgs, err = h.transcript.List(ctx, sessionID, 50)
		if err != nil {
			h.logger.Error("widget: failed to load history", "session_id", sessionID, "error", err)
			return nil
		}
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			Options:   m.Options,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return history
}

func (h *Handler) sendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
		Option    string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.Option == "" {
		http.Error(w, "text or option is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	reply := h.processTurn(r.Context(), req.SessionID, req.Text, req.Option, "http")
	reply.SessionID = req.SessionID

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	history := h.loadHistory(r.Context(), sessionID)
	if history == nil {
		history = []HistoryMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

// SetTypingDelay overrides the cosmetic typing pause.
func (h *Handler) SetTypingDelay(d time.Duration) {
	h.typingDelay = d
}

func userContent(text, option string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	return option
}

func marshalOptions(opts []chat.Option) json.RawMessage {
	if len(opts) == 0 {
		return nil
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return nil
	}
	return data
}

// escalated reports whether the reply is the human-handoff prompt.
func escalated(m chat.Message) bool {
	for _, o := range m.Options {
		if o.Value == "wait_agent" {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
