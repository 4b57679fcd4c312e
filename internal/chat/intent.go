package chat

import (
	"regexp"
	"strings"
)

// Intent is a coarse category assigned to free text.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentAmbassador Intent = "ambassador"
	IntentProducts   Intent = "products"
	IntentAdvertise  Intent = "advertise"
	IntentDonate     Intent = "donate"
	IntentJobs       Intent = "jobs"
	IntentQuestion   Intent = "question"
	IntentOutreach   Intent = "outreach"
	IntentContact    Intent = "contact"
	IntentProjects   Intent = "projects"
	IntentAbout      Intent = "about"
	IntentUnknown    Intent = "unknown"
)

// IntentResult pairs a detected intent with a fixed per-rule confidence.
type IntentResult struct {
	Intent     Intent
	Confidence int
}

type intentRule struct {
	pattern    *regexp.Regexp
	intent     Intent
	confidence int
}

// intentRules is evaluated in order; the first match wins. Confidence is
// fixed per rule category, not derived from match quality.
var intentRules = []intentRule{
	{regexp.MustCompile(`(?i)\b(hi|hello|hey|howzit|sawubona|molo|good (morning|afternoon|evening))\b`), IntentGreeting, 95},

	{regexp.MustCompile(`(?i)\b(ambassador|volunteer|represent)\b`), IntentAmbassador, 85},
	{regexp.MustCompile(`(?i)\b(product|merch|shop|buy|kit|t-?shirt|hoodie|cap)\b`), IntentProducts, 85},
	{regexp.MustCompile(`(?i)\b(advertis\w*|sponsor\w*|promote)\b`), IntentAdvertise, 85},
	{regexp.MustCompile(`(?i)\b(donat\w*|give|giving|contribut\w*)\b`), IntentDonate, 85},
	{regexp.MustCompile(`(?i)\b(job|jobs|work|career|employ\w*|vacanc\w*|cv)\b`), IntentJobs, 85},
	{regexp.MustCompile(`(?i)\b(question|ask|wondering|curious)\b`), IntentQuestion, 85},
	{regexp.MustCompile(`(?i)\b(outreach|community|program\w*|workshop|youth)\b`), IntentOutreach, 85},

	{regexp.MustCompile(`(?i)\b(contact|phone|email|reach|speak to|talk to|call)\b`), IntentContact, 90},
	{regexp.MustCompile(`(?i)\b(project\w*|initiative\w*|campaign\w*)\b`), IntentProjects, 80},
	{regexp.MustCompile(`(?i)\b(about|who are you|what is|mission|vision)\b`), IntentAbout, 85},
}

// DetectIntent maps free text to one of the fixed intents. Pure function.
func DetectIntent(text string) IntentResult {
	text = strings.TrimSpace(text)
	for _, rule := range intentRules {
		if rule.pattern.MatchString(text) {
			return IntentResult{Intent: rule.intent, Confidence: rule.confidence}
		}
	}
	return IntentResult{Intent: IntentUnknown, Confidence: 30}
}

// flowForIntent returns the scripted flow an intent maps onto, if any.
func flowForIntent(in Intent) (Flow, bool) {
	switch in {
	case IntentAmbassador, IntentProducts, IntentAdvertise, IntentDonate, IntentJobs, IntentQuestion, IntentOutreach:
		return Flow(in), true
	}
	return FlowNone, false
}
