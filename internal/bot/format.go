package bot

import (
	"fmt"
	"strings"
	"time"

	"paybot/internal/command"
	"paybot/internal/models"
	"paybot/internal/workflow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const deadlineLayout = "02 Jan 2006, 03:04 PM MST"

const (
	startText        = "Welcome to Payment Bot 👋\n\nChoose what you want to unlock:"
	supportStartText = "👋 Welcome to Support!\n\nChoose what you need help with:"
	unknownText      = "Type /start to choose a plan."
	notFoundText     = "⚠️ This payment request was not found or already processed."
	adminOnlyText    = "Only admin can use this."
	forwardedText    = "Forwarded to admin. They will check and reply."
	forwardFailed    = "Couldn't forward to admin. Try again later."
	negNotFoundText  = "Negotiation not found or already processed."
	negPlanPrompt    = "Choose which service you want to negotiate:"
	negPlanFirstText = "Please choose a service first."
)

var topicReplies = map[command.Topic]string{
	command.TopicPayment: "Please send screenshot/photo/document of your payment and (optional) UTR/reference number. We'll forward to admin for manual verification.",
	command.TopicTech:    "Please send a screenshot of the technical issue and describe the problem in a short sentence.",
	command.TopicOther:   "Type your issue below (image optional). We'll forward to admin.",
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func helpText(contact string) string {
	return "🆘 *Help & Support*\n\nFor any assistance contact: " + escape(contact) + "\n\nType /start anytime to restart."
}

func planMenuText(menu workflow.PlanMenu) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You selected: *%s*\n\n", menu.Plan.Label())
	if o := menu.Negotiated; o != nil {
		fmt.Fprintf(&b, "🤝 Negotiated price for %s: *%s*\n\n", o.Method.Label(),
			models.Price{Amount: o.Amount, Currency: o.Method.Currency()})
	}
	b.WriteString("Choose your payment method below:")
	return b.String()
}

// instructionsText renders the per-method payment instructions with the deadline in loc.
func instructionsText(ins models.Instructions, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	deadline := ins.Deadline.In(loc).Format(deadlineLayout)
	d := ins.Details

	var b strings.Builder
	switch ins.Method {
	case models.MethodUPI:
		b.WriteString("🧾 *UPI Payment Instructions*\n\n")
		fmt.Fprintf(&b, "Plan: *%s*\nAmount: *%s*\n\n", ins.Plan.Label(), ins.Price)
		fmt.Fprintf(&b, "UPI ID: `%s`\n\n", d.UPIID)
		fmt.Fprintf(&b, "⏳ Time limit: until *%s*\n\n", deadline)
		b.WriteString("After payment send screenshot/photo here plus optional UTR.")
	case models.MethodCrypto:
		b.WriteString("🪙 *Crypto Payment Instructions*\n\n")
		fmt.Fprintf(&b, "Plan: *%s*\nAmount: *%s*\n\n", ins.Plan.Label(), ins.Price)
		fmt.Fprintf(&b, "Network: `%s`\nAddress: `%s`\n\n", d.CryptoNetwork, d.CryptoAddress)
		fmt.Fprintf(&b, "⏳ Time limit: until *%s*\n\n", deadline)
		b.WriteString("After payment send screenshot/photo + TXID here.")
	default:
		b.WriteString("🌍 *Remitly Payment Instructions*\n\n")
		fmt.Fprintf(&b, "Plan: *%s*\nAmount: *%s*\n\n", ins.Plan.Label(), ins.Price)
		fmt.Fprintf(&b, "Extra info: %s\n\n", escape(d.RemitlyInfo))
		fmt.Fprintf(&b, "⏳ Time limit: until *%s*\n\n", deadline)
		b.WriteString("After payment send screenshot/photo here.")
	}
	return b.String()
}

func guideURL(ins models.Instructions) string {
	switch ins.Method {
	case models.MethodUPI:
		return ins.Details.UPIGuideURL
	case models.MethodRemitly:
		return ins.Details.RemitlyGuideURL
	}
	return ""
}

// handoffText is sent as plain text: the token's underscores would break Markdown.
func handoffText(offer models.Offer, link string) string {
	price := models.Price{Amount: offer.Amount, Currency: offer.Method.Currency()}
	return fmt.Sprintf("✅ Admin approved your negotiated price of %s for %s (%s).\n\nClick to continue payment: %s",
		price, offer.Plan.Label(), offer.Method.Label(), link)
}

func deepLink(username, payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(username, "@"), payload)
}

// adjudicationReply is the confirmation shown to the reviewer after a decision.
func adjudicationReply(res workflow.AdjudicationResult) string {
	req := res.Request
	if res.Decision == models.DecisionDecline {
		return fmt.Sprintf("❌ Declined payment (ID: %s)", req.ID)
	}
	text := fmt.Sprintf("✅ Approved payment (ID: %s) for user %s | Plan: %s | %s %s",
		req.ID, req.Buyer.ID, req.Plan.Label(), req.Amount.String(), req.Currency)
	if res.Grant != nil && len(res.Grant.Failures) > 0 {
		var failed []string
		for _, r := range models.Resources {
			if err, ok := res.Grant.Failures[r]; ok {
				failed = append(failed, fmt.Sprintf("%s (%v)", r.Label(), err))
			}
		}
		text += "\n⚠️ Link generation failed: " + strings.Join(failed, ", ")
	}
	return text
}

func negotiationReply(res workflow.NegotiationResult) string {
	if res.Decision == models.DecisionApprove {
		return fmt.Sprintf("Negotiation approved and user notified: %s", res.Negotiation.Buyer.ID)
	}
	return fmt.Sprintf("Negotiation declined and user notified: %s", res.Negotiation.Buyer.ID)
}

func pendingText(reqs []models.PaymentRequest, loc *time.Location) string {
	if len(reqs) == 0 {
		return "No pending payment requests."
	}
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ Pending requests: %d\n", len(reqs))
	for _, r := range reqs {
		fmt.Fprintf(&b, "\n• %s\n  %s | %s | %s %s | %s", r.ID, r.Buyer.Handle(), r.Plan.Label(),
			r.Amount.String(), r.Currency, r.SubmittedAt.In(loc).Format(deadlineLayout))
		if r.Late() {
			b.WriteString(" | late")
		}
	}
	return b.String()
}
