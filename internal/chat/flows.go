package chat

import (
	"fmt"
	"strings"

	"github.com/mzansiprolife/platform/internal/catalog"
)

// fieldKey is the explicit pointer to the field a flow step is collecting.
// Stored in FlowData so sequencing never depends on rendered message text.
const fieldKey = "_field"

// startFlow enters a scripted flow and returns its opening prompt.
func (e *Engine) startFlow(f Flow) Message {
	e.state.CurrentFlow = f
	e.state.FlowStep = 1
	e.state.FlowData = make(map[string]string)

	switch f {
	case FlowAmbassador:
		return Message{Content: "Amazing! 🌟 Our ambassadors are the heartbeat of MzansiProLife.\n\nFirst, where are you based? Please share your physical address (street, area and city) so we can link you with the nearest branch."}
	case FlowProducts:
		return e.productsPrompt()
	case FlowAdvertise:
		return Message{
			Content: "We partner with values-aligned businesses on site banners, event sponsorships and our monthly newsletter (12 000+ readers).\n\nThe quickest route is our advertising form, which captures your company details, budget band and preferred placements.",
			Options: []Option{
				{Label: "Open the advertising form", Value: "form_advertise", Icon: "📝", Action: ActionLink, URL: e.questionnaireURL(FlowAdvertise)},
				{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
			},
		}
	case FlowDonate:
		return Message{
			Content: "Thank you for giving! 💝 Every rand goes further than you'd think.\n\nWhere would you like your donation to go?",
			Options: []Option{
				{Label: "Head office (where it's needed most)", Value: "head_office", Icon: "🏢", Action: ActionFlow},
				{Label: "A specific branch or project", Value: "branch", Icon: "📍", Action: ActionFlow},
			},
		}
	case FlowJobs:
		e.state.FlowData[fieldKey] = "name"
		return Message{Content: "We'd love to have you on the team! 💼 We keep a talent pool for paid roles and stipended volunteer posts.\n\nLet's start with your full name."}
	case FlowQuestion:
		return Message{Content: "Of course, ask away! ❓ Give me a full sentence so I can point you in the right direction."}
	case FlowOutreach:
		return Message{
			Content: "Our outreach programmes meet people where they are. 🤝 Which of these best describes you?",
			Options: []Option{
				{Label: "School learner", Value: "stage_learner", Icon: "🎒", Action: ActionFlow},
				{Label: "Student / young adult", Value: "stage_student", Icon: "🎓", Action: ActionFlow},
				{Label: "Parent / caregiver", Value: "stage_parent", Icon: "👨‍👩‍👧", Action: ActionFlow},
				{Label: "Working professional", Value: "stage_professional", Icon: "💼", Action: ActionFlow},
			},
		}
	default:
		e.clearFlow()
		return e.menuMessage()
	}
}

// stepFlow advances the active flow by one turn. selected reports whether
// the input came from a quick-reply option rather than typed text.
func (e *Engine) stepFlow(input string, selected bool) Message {
	switch e.state.CurrentFlow {
	case FlowAmbassador:
		return e.stepAmbassador(input)
	case FlowProducts:
		return e.stepProducts(input, selected)
	case FlowAdvertise:
		return e.stepAdvertise()
	case FlowDonate:
		return e.stepDonate(input, selected)
	case FlowJobs:
		return e.stepJobs(input)
	case FlowQuestion:
		return e.stepQuestion(input)
	case FlowOutreach:
		return e.stepOutreach(input, selected)
	default:
		e.clearFlow()
		return e.menuMessage()
	}
}

func (e *Engine) stepAmbassador(input string) Message {
	switch e.state.FlowStep {
	case 1:
		score := ScoreField(input, FieldAddress)
		e.state.Confidence = score
		if score < 70 {
			return Message{Content: "That doesn't look like a full address. Please include your street number, area and city, for example: *12 Vilakazi St, Orlando West, Soweto*."}
		}
		e.state.FlowData["address"] = input
		e.state.FlowStep = 2
		return Message{Content: "Got it, thank you! Now tell me a little about *why* you want to be an ambassador. What draws you to this work?"}
	case 2:
		score := ScoreField(input, FieldText)
		e.state.Confidence = score
		if score < 70 {
			return Message{Content: "Could you share a bit more? A sentence or two about your motivation helps our team match you to the right role."}
		}
		e.state.FlowData["motivation"] = input
		e.state.FlowStep = 3
		return Message{Content: "Love it. ❤️ What skills or experience would you bring? Anything counts: admin, social media, counselling, driving, events…"}
	case 3:
		e.state.FlowData["skills"] = input
		e.state.FlowStep = 4
		return Message{
			Content: "Last one: our ambassadors commit to roughly **4 hours a month**. Does that work for you?",
			Options: []Option{
				{Label: "Yes, count me in", Value: "commit_yes", Icon: "✅", Action: ActionFlow},
				{Label: "Not right now", Value: "commit_no", Icon: "⏳", Action: ActionFlow},
			},
		}
	case 4:
		e.state.FlowData["commitment"] = input
		if input == "commit_no" {
			return e.completeFlow("No stress at all, seasons change! You can still support us in lighter ways, and the door stays open. 💛")
		}
		return e.completeFlow("Welcome aboard! 🎉 Our ambassador coordinator will be in touch within a week. To fast-track things, complete the full ambassador form below.")
	default:
		e.clearFlow()
		return e.menuMessage()
	}
}

func (e *Engine) stepJobs(input string) Message {
	switch e.state.FlowData[fieldKey] {
	case "name":
		e.state.FlowData["name"] = input
		e.state.FlowData[fieldKey] = "email"
		e.state.FlowStep = 2
		return Message{Content: fmt.Sprintf("Thanks, %s! What email address should we use?", firstName(input))}
	case "email":
		score := ScoreField(input, FieldEmail)
		e.state.Confidence = score
		if score < 80 {
			return Message{Content: "Hmm, that email doesn't look right. Please double-check it, e.g. *name@example.co.za*."}
		}
		e.state.FlowData["email"] = input
		e.state.FlowData[fieldKey] = "phone"
		e.state.FlowStep = 3
		return Message{Content: "And a phone number we can reach you on?"}
	case "phone":
		score := ScoreField(input, FieldPhone)
		e.state.Confidence = score
		if score < 80 {
			return Message{Content: "That number looks too short. Please share a full phone number, e.g. *082 555 0123*."}
		}
		e.state.FlowData["phone"] = input
		e.state.FlowData[fieldKey] = "skills"
		e.state.FlowStep = 4
		return Message{Content: "Nearly there! What kind of work are you looking for, and what are your key skills?"}
	case "skills":
		e.state.FlowData["skills"] = input
		return e.completeFlow("Perfect, you're in our talent pool! 💼 We'll contact you when a matching role opens. Upload your CV through the jobs form below to strengthen your profile.")
	default:
		e.clearFlow()
		return e.menuMessage()
	}
}

func (e *Engine) productsPrompt() Message {
	opts := make([]Option, 0, len(catalog.Items)+1)
	for _, it := range catalog.Items {
		opts = append(opts, Option{
			Label:  fmt.Sprintf("%s · %s", it.Name, catalog.FormatRand(it.PriceCents)),
			Value:  it.Value,
			Icon:   "🛍️",
			Action: ActionFlow,
		})
	}
	opts = append(opts, Option{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow})
	return Message{
		Content: "Every purchase funds our programmes directly. 🛍️ Here's what's in the supporter shop (plus a flat " + catalog.FormatRand(catalog.CourierFeeCents) + " courier fee nationwide):",
		Options: opts,
	}
}

func (e *Engine) stepProducts(input string, selected bool) Message {
	it, ok := catalog.Lookup(input)
	if !ok {
		return e.productsPrompt()
	}
	e.state.FlowData["product"] = it.Value
	total := catalog.TotalCents(it)
	content := fmt.Sprintf(
		"Great pick! Here's how to order your **%s**:\n\n%s %s\nCourier (nationwide): %s\n**Total: %s**\n\nPay by EFT to:\nMzansiProLife NPC · FNB · Acc 628 455 09812 · Branch 250655\nReference: your name + *%s*\n\nEmail your proof of payment and delivery address to orders@mzansiprolife.org.za and your order ships within 3 working days. 📦",
		it.Name, it.Name, catalog.FormatRand(it.PriceCents), catalog.FormatRand(catalog.CourierFeeCents),
		catalog.FormatRand(total), it.Value,
	)
	return e.completeFlow(content)
}

func (e *Engine) stepAdvertise() Message {
	// Only the opening prompt is scripted; everything else routes to the form.
	return Message{
		Content: "For advertising and sponsorships our partnerships team handles every enquiry personally; the form below is the fastest way to reach them.",
		Options: []Option{
			{Label: "Open the advertising form", Value: "form_advertise", Icon: "📝", Action: ActionLink, URL: e.questionnaireURL(FlowAdvertise)},
			{Label: "Back to the menu", Value: "menu", Icon: "📋", Action: ActionFlow},
		},
	}
}

func (e *Engine) stepDonate(input string, selected bool) Message {
	switch e.state.FlowStep {
	case 1:
		if input != "head_office" && input != "branch" {
			return Message{
				Content: "Please pick one of the two options so we allocate your gift correctly:",
				Options: []Option{
					{Label: "Head office (where it's needed most)", Value: "head_office", Icon: "🏢", Action: ActionFlow},
					{Label: "A specific branch or project", Value: "branch", Icon: "📍", Action: ActionFlow},
				},
			}
		}
		e.state.FlowData["allocation"] = input
		e.state.FlowStep = 2
		if input == "head_office" {
			return Message{Content: "Thank you! Which of our projects would you like to hear about in your thank-you letter? (Or just say *general support*.)"}
		}
		return Message{Content: "Wonderful! Which branch or project should receive your donation? e.g. *Soweto branch* or *School outreach*."}
	case 2:
		score := ScoreField(input, FieldText)
		e.state.Confidence = score
		if score < 70 {
			return Message{Content: "Sorry, I didn't get that. Please give me the project or branch name in a few words."}
		}
		e.state.FlowData["target"] = input
		e.state.FlowStep = 3
		return Message{
			Content: "Almost done! Any message or dedication you'd like to add? (Optional.)",
			Options: []Option{
				{Label: "Skip this", Value: "skip", Icon: "⏭️", Action: ActionFlow},
			},
		}
	case 3:
		if input != "skip" && input != "" {
			e.state.FlowData["comment"] = input
		}
		return e.completeFlow("You're a star. 💛 Donate by EFT to:\n\nMzansiProLife NPC · FNB · Acc 628 455 09812 · Branch 250655\nReference: *DONATE + your name*\n\nAll donations are tax-deductible; we'll send your Section 18A certificate. The donation form below captures your details for the certificate.")
	default:
		e.clearFlow()
		return e.menuMessage()
	}
}

func (e *Engine) stepOutreach(input string, selected bool) Message {
	switch e.state.FlowStep {
	case 1:
		if !strings.HasPrefix(input, "stage_") {
			return Message{
				Content: "Please choose the option closest to you:",
				Options: []Option{
					{Label: "School learner", Value: "stage_learner", Icon: "🎒", Action: ActionFlow},
					{Label: "Student / young adult", Value: "stage_student", Icon: "🎓", Action: ActionFlow},
					{Label: "Parent / caregiver", Value: "stage_parent", Icon: "👨‍👩‍👧", Action: ActionFlow},
					{Label: "Working professional", Value: "stage_professional", Icon: "💼", Action: ActionFlow},
				},
			}
		}
		e.state.FlowData["life_stage"] = strings.TrimPrefix(input, "stage_")
		e.state.FlowStep = 2
		return Message{Content: "Great! And what topics or activities interest you most? Workshops, mentorship, sport, counselling? Tell me in your own words."}
	case 2:
		e.state.FlowData["interests"] = input
		return e.completeFlow("Thank you! 🤝 Our outreach team plans programmes around exactly this kind of feedback. Leave your contact details in the outreach form below and we'll invite you to the next event near you.")
	default:
		e.clearFlow()
		return e.menuMessage()
	}
}

// cannedAnswers are the contextual replies the question flow can give
// without human help.
var cannedAnswers = map[Intent]string{
	IntentDonate: "Donations go a long way here. 💝 You can give by EFT (MzansiProLife NPC · FNB · Acc 628 455 09812 · Branch 250655, reference *DONATE + your name*) and every gift gets a Section 18A tax certificate. The donate option in the menu walks you through it step by step.",
	IntentContact: "You can reach us on **011 555 0199** (Mon-Fri, 08:00-16:30), at **hello@mzansiprolife.org.za**, or on WhatsApp, whichever suits you best.",
}

func (e *Engine) stepQuestion(input string) Message {
	if e.state.EscalationCount >= escalationThreshold {
		return e.escalationMessage()
	}

	quality := ScoreField(input, FieldText)
	res := DetectIntent(input)
	e.state.Confidence = quality
	e.state.LastIntent = res.Intent

	switch {
	case quality >= 80 && res.Confidence >= 80:
		e.state.EscalationCount = 0
		answer, ok := cannedAnswers[res.Intent]
		if !ok {
			answer = "Thanks for asking! Our team reads every question that comes through here. I've noted yours. For a detailed answer, the question form below goes straight to the right person."
		}
		return e.completeFlow(answer)
	case quality >= 50:
		return Message{Content: "I want to make sure I understand. Could you rephrase that with a bit more detail?"}
	default:
		e.state.EscalationCount++
		if e.state.EscalationCount >= escalationThreshold {
			return e.escalationMessage()
		}
		return Message{Content: "Sorry, I couldn't follow that. Try asking in a full sentence, like *\"How do I volunteer in Durban?\"*"}
	}
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
