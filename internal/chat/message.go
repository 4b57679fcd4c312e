// Package chat implements the rule-based conversational flow engine behind
// the site chat widget: a fixed set of scripted flows with regex intent
// detection, heuristic field validation and count-based escalation. No ML.
package chat

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Action tells the widget how to treat a selected option.
type Action string

const (
	// ActionFlow routes the option value back into the engine.
	ActionFlow Action = "flow"
	// ActionLink opens an external URL in a new tab.
	ActionLink Action = "link"
	// ActionWhatsApp opens the wa.me deep link.
	ActionWhatsApp Action = "whatsapp"
	// ActionEscalate hands the conversation to a human.
	ActionEscalate Action = "escalate"
)

// Option is a selectable quick-reply attached to an assistant message.
type Option struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Icon   string `json:"icon,omitempty"`
	Action Action `json:"action,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Message is a single conversation turn. Immutable once produced.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Options   []Option  `json:"options,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Flow is an enumerated conversation script. The zero value means the
// visitor is at the main menu.
type Flow string

const (
	FlowNone       Flow = ""
	FlowAmbassador Flow = "ambassador"
	FlowProducts   Flow = "products"
	FlowAdvertise  Flow = "advertise"
	FlowDonate     Flow = "donate"
	FlowJobs       Flow = "jobs"
	FlowQuestion   Flow = "question"
	FlowOutreach   Flow = "outreach"
)

// knownFlow reports whether v names one of the scripted flows.
func knownFlow(v string) bool {
	switch Flow(v) {
	case FlowAmbassador, FlowProducts, FlowAdvertise, FlowDonate, FlowJobs, FlowQuestion, FlowOutreach:
		return true
	}
	return false
}
