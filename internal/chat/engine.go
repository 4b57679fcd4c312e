package chat

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// escalationThreshold is the number of unrecognized turns tolerated before
// the engine forces the human-handoff message.
const escalationThreshold = 3

// State is the mutable conversation state owned by one Engine instance.
// FlowStep is only meaningful relative to CurrentFlow.
type State struct {
	CurrentFlow     Flow
	FlowStep        int
	FlowData        map[string]string
	Confidence      int
	EscalationCount int
	// LastUserIntent is the last raw free-text input, kept for lookback
	// heuristics. LastIntent is the classifier's verdict for the current
	// turn; empty when the turn was an option pick or an in-flow answer
	// that skipped classification. Only LastIntent is safe to use as a
	// metric label.
	LastUserIntent string
	LastIntent     Intent
}

// Config carries the externally-configured values the scripts reference.
type Config struct {
	// WhatsAppNumber in international format without the plus, e.g. 27820001234.
	WhatsAppNumber string
	// QuestionnaireURL is the external multi-type questionnaire page.
	QuestionnaireURL string
}

// Engine drives one chat session's scripted conversation. Not safe for
// concurrent use; the widget handler serializes calls per session.
type Engine struct {
	cfg     Config
	state   State
	history []Message
}

// New creates an engine at the main menu.
func New(cfg Config) *Engine {
	if cfg.WhatsAppNumber == "" {
		cfg.WhatsAppNumber = "27820001234"
	}
	if cfg.QuestionnaireURL == "" {
		cfg.QuestionnaireURL = "https://www.mzansiprolife.org.za/questionnaire"
	}
	e := &Engine{cfg: cfg}
	e.Reset()
	return e
}

// State returns a copy of the current conversation state.
func (e *Engine) State() State {
	s := e.state
	s.FlowData = make(map[string]string, len(e.state.FlowData))
	for k, v := range e.state.FlowData {
		s.FlowData[k] = v
	}
	return s
}

// History returns the engine's local transcript for this session.
func (e *Engine) History() []Message {
	return e.history
}

// Reset restores the zero state and clears the local history.
func (e *Engine) Reset() {
	e.state = State{
		CurrentFlow:     FlowNone,
		FlowStep:        0,
		FlowData:        make(map[string]string),
		Confidence:      100,
		EscalationCount: 0,
		LastUserIntent:  "",
		LastIntent:      "",
	}
	e.history = nil
}

// ProcessInput consumes one user turn, either free text or a selected menu
// option, mutates the engine state and returns the assistant reply.
func (e *Engine) ProcessInput(userText, selectedOption string) Message {
	raw := userText
	if selectedOption != "" {
		raw = selectedOption
	}
	e.record(Message{Role: RoleUser, Content: raw, Timestamp: time.Now().UTC()})
	e.state.LastIntent = ""

	var reply Message
	if selectedOption != "" {
		reply = e.handleOption(selectedOption)
	} else {
		reply = e.handleText(userText)
	}

	reply.Role = RoleAssistant
	if reply.Timestamp.IsZero() {
		reply.Timestamp = time.Now().UTC()
	}
	e.record(reply)
	return reply
}

func (e *Engine) record(m Message) {
	e.history = append(e.history, m)
}

// handleOption intercepts the reserved option values before any
// flow-specific handling, regardless of the active flow.
func (e *Engine) handleOption(value string) Message {
	switch {
	case value == "menu" || value == "back":
		e.clearFlow()
		return e.menuMessage()
	case value == "escalate" || value == "wait_agent":
		e.clearFlow()
		return e.handoffMessage()
	case value == "whatsapp":
		return e.whatsAppMessage()
	case strings.HasPrefix(value, "form_"):
		return e.formLinkMessage(strings.TrimPrefix(value, "form_"))
	}

	if e.state.CurrentFlow == FlowNone {
		if knownFlow(value) {
			return e.startFlow(Flow(value))
		}
		if value == "contact" {
			return e.contactMessage()
		}
		if value == "projects_info" {
			return e.projectsMessage()
		}
		return e.fallbackMessage()
	}
	return e.stepFlow(value, true)
}

func (e *Engine) handleText(text string) Message {
	text = strings.TrimSpace(text)
	e.state.LastUserIntent = text

	if e.state.CurrentFlow != FlowNone {
		return e.stepFlow(text, false)
	}

	res := DetectIntent(text)
	e.state.Confidence = res.Confidence
	e.state.LastIntent = res.Intent

	switch {
	case res.Intent == IntentGreeting:
		e.state.EscalationCount = 0
		return e.menuMessage()
	case res.Intent == IntentContact:
		e.state.EscalationCount = 0
		return e.contactMessage()
	case res.Intent == IntentProjects:
		e.state.EscalationCount = 0
		return e.projectsMessage()
	case res.Intent == IntentAbout:
		e.state.EscalationCount = 0
		return e.aboutMessage()
	}

	if flow, ok := flowForIntent(res.Intent); ok {
		e.state.EscalationCount = 0
		return e.startFlow(flow)
	}

	return e.unrecognized()
}

// unrecognized counts a low-confidence turn and escalates past the threshold.
func (e *Engine) unrecognized() Message {
	e.state.EscalationCount++
	if e.state.EscalationCount >= escalationThreshold {
		return e.escalationMessage()
	}
	return e.fallbackMessage()
}

func (e *Engine) clearFlow() {
	e.state.CurrentFlow = FlowNone
	e.state.FlowStep = 0
	e.state.FlowData = make(map[string]string)
}

// completeFlow resets flow state and returns the standard completion
// message: continue to the questionnaire, loop back for more, or escalate.
func (e *Engine) completeFlow(content string) Message {
	flow := e.state.CurrentFlow
	e.clearFlow()
	return Message{
		Content: content,
		Options: []Option{
			{Label: "Complete the full form", Value: "form_" + string(flow), Icon: "📝", Action: ActionLink, URL: e.questionnaireURL(flow)},
			{Label: "Tell me more", Value: string(flow), Icon: "💬", Action: ActionFlow},
			{Label: "Talk to a person", Value: "escalate", Icon: "🙋", Action: ActionEscalate},
		},
	}
}

func (e *Engine) questionnaireURL(flow Flow) string {
	if flow == FlowNone {
		return e.cfg.QuestionnaireURL
	}
	return e.cfg.QuestionnaireURL + "?type=" + url.QueryEscape(string(flow))
}

func (e *Engine) waLink() string {
	topic := "your work"
	if e.state.CurrentFlow != FlowNone {
		topic = string(e.state.CurrentFlow)
	}
	text := url.QueryEscape(fmt.Sprintf("Hi MzansiProLife! I was chatting on your website about %s.", topic))
	return fmt.Sprintf("https://wa.me/%s?text=%s", e.cfg.WhatsAppNumber, text)
}

func (e *Engine) menuMessage() Message {
	return Message{
		Content: "Hello! 👋 Welcome to **MzansiProLife**. I'm Thandi, your guide.\n\nWhat would you like to do today?",
		Options: []Option{
			{Label: "Become an ambassador", Value: "ambassador", Icon: "🌟", Action: ActionFlow},
			{Label: "Shop supporter products", Value: "products", Icon: "🛍️", Action: ActionFlow},
			{Label: "Make a donation", Value: "donate", Icon: "💝", Action: ActionFlow},
			{Label: "Jobs & volunteering", Value: "jobs", Icon: "💼", Action: ActionFlow},
			{Label: "Ask a question", Value: "question", Icon: "❓", Action: ActionFlow},
			{Label: "Community outreach", Value: "outreach", Icon: "🤝", Action: ActionFlow},
			{Label: "Advertise with us", Value: "advertise", Icon: "📣", Action: ActionFlow},
			{Label: "Talk to us directly", Value: "contact", Icon: "📞", Action: ActionFlow},
		},
	}
}

func (e *Engine) fallbackMessage() Message {
	return Message{
		Content: "Sorry, I didn't quite catch that. You can pick one of the options below, or tell me in a few words what you're looking for.",
		Options: []Option{
			{Label: "Show me the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
			{Label: "Talk to a person", Value: "escalate", Icon: "🙋", Action: ActionEscalate},
		},
	}
}

// escalationMessage is the forced human-handoff prompt. Exactly two options.
func (e *Engine) escalationMessage() Message {
	return Message{
		Content: "It looks like I'm struggling to help with this one. Let me connect you with a real person.",
		Options: []Option{
			{Label: "Wait for a human agent", Value: "wait_agent", Icon: "🕐", Action: ActionEscalate},
			{Label: "Switch to WhatsApp", Value: "whatsapp", Icon: "💚", Action: ActionWhatsApp, URL: e.waLink()},
		},
	}
}

func (e *Engine) handoffMessage() Message {
	return Message{
		Content: "No problem, one of our team members will pick this conversation up as soon as possible. Office hours are Mon-Fri, 08:00-16:30 SAST. You're welcome to keep typing; everything you write is passed on.",
		Options: []Option{
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}

func (e *Engine) whatsAppMessage() Message {
	return Message{
		Content: "Great choice! WhatsApp is the fastest way to reach us. Tap below to open a chat with our team.",
		Options: []Option{
			{Label: "Open WhatsApp", Value: "whatsapp_open", Icon: "💚", Action: ActionWhatsApp, URL: e.waLink()},
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}

func (e *Engine) formLinkMessage(formType string) Message {
	flow := Flow(formType)
	if !knownFlow(formType) {
		flow = FlowNone
	}
	return Message{
		Content: "I've opened our questionnaire in a new tab. It takes about five minutes, and our team reviews every submission personally. 📝",
		Options: []Option{
			{Label: "Open the questionnaire", Value: "form_" + formType, Icon: "🔗", Action: ActionLink, URL: e.questionnaireURL(flow)},
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}

func (e *Engine) contactMessage() Message {
	return Message{
		Content: "You can reach MzansiProLife here:\n\n📞 **011 555 0199** (Mon-Fri, 08:00-16:30)\n📧 **hello@mzansiprolife.org.za**\n🏢 14 Jorissen St, Braamfontein, Johannesburg\n\nOr switch straight to WhatsApp below.",
		Options: []Option{
			{Label: "Chat on WhatsApp", Value: "whatsapp", Icon: "💚", Action: ActionWhatsApp, URL: e.waLink()},
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}

func (e *Engine) projectsMessage() Message {
	return Message{
		Content: "We run year-round projects across Gauteng, KZN and the Eastern Cape:\n\n• **School outreach**: life-skills workshops in 40+ schools\n• **Crisis support**: a 24/7 helpline and counselling referrals\n• **Mentor circles**: monthly community mentorship groups\n\nWant to get involved or support one of them?",
		Options: []Option{
			{Label: "Become an ambassador", Value: "ambassador", Icon: "🌟", Action: ActionFlow},
			{Label: "Make a donation", Value: "donate", Icon: "💝", Action: ActionFlow},
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}

func (e *Engine) aboutMessage() Message {
	return Message{
		Content: "**MzansiProLife** is a registered South African non-profit (NPO 2014/09881) supporting vulnerable families and young people since 2014. We believe every life deserves dignity, practical help and hope, and we put that into practice through outreach, counselling and community programmes.",
		Options: []Option{
			{Label: "Our projects", Value: "projects_info", Icon: "🗂️", Action: ActionFlow},
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}
