package workflow

import (
	"fmt"
	"strings"

	"paybot/internal/models"
)

const deadlineLayout = "02 Jan 2006, 03:04 PM MST"

const (
	msgChoosePlanFirst   = "Please choose a plan first with /start."
	msgNoPaymentContext  = "Please choose a plan and payment method first using /start."
	msgTextDuringProof   = "📸 Please send a screenshot or document of your payment. Text messages are not accepted as proof."
	msgProofReceived     = "✅ Payment proof received!\n\nYour payment is being verified. You'll get access once it's approved."
	msgInvalidHandoff    = "⚠️ This negotiated price link is invalid or was issued to another account. Showing regular prices."
	msgNegotiationAmount = "💬 Send the price you want to pay as a number (for example 499 or 6.5)."
	msgInvalidAmount     = "❌ Please send a valid amount as a number, for example 499 or 6.5."
	msgNegotiationSent   = "✅ Your offer was sent for review. You'll get a reply here soon."
)

func msgDeclined(support string) string {
	return "❌ Your payment could not be verified.\n\nYou can send a clearer proof now, or contact support: " + support
}

func msgNegotiationDeclined(support string) string {
	return "❌ Your price offer was not accepted.\n\nYou can pay the regular price or contact " + support
}

func msgGrant(g GrantResult, support string) string {
	if len(g.Credentials) == 0 {
		return "✅ Payment approved.\n\nBut I couldn't generate your channel links automatically. Please contact support: " + support
	}

	var b strings.Builder
	b.WriteString("✅ Access granted!\n\nHere are your private links. Each link works once.\n")
	for _, c := range g.Credentials {
		fmt.Fprintf(&b, "\n🔑 %s:\n%s\n", c.Resource.Label(), c.Reference)
	}
	if len(g.Failures) > 0 {
		labels := make([]string, 0, len(g.Failures))
		for _, r := range models.Resources {
			if _, failed := g.Failures[r]; failed {
				labels = append(labels, r.Label())
			}
		}
		fmt.Fprintf(&b, "\n⚠️ I couldn't generate a link for %s. Please contact support: %s\n",
			strings.Join(labels, " and "), support)
	}
	return b.String()
}

func (e *Engine) paymentSummary(req models.PaymentRequest, otherPending int) string {
	var b strings.Builder
	b.WriteString("💰 New payment request\n\n")
	fmt.Fprintf(&b, "From: %s\n", req.Buyer.Handle())
	fmt.Fprintf(&b, "Plan: %s\n", req.Plan.Label())
	fmt.Fprintf(&b, "Method: %s\n", req.Method.Label())
	fmt.Fprintf(&b, "Amount: %s %s\n", req.Amount.String(), req.Currency)
	fmt.Fprintf(&b, "Payment ID: %s\n", req.ID)
	if req.Late() {
		fmt.Fprintf(&b, "\n⚠️ Submitted after the payment deadline (%s)\n",
			req.Deadline.In(e.opts.Location).Format(deadlineLayout))
	}
	if otherPending > 0 {
		fmt.Fprintf(&b, "\n⚠️ This buyer has %d other pending request(s)\n", otherPending)
	}
	b.WriteString("\nCheck the forwarded proof and choose:")
	return b.String()
}

func negotiationSummary(n models.NegotiationRequest) string {
	var b strings.Builder
	b.WriteString("💬 New price negotiation\n\n")
	fmt.Fprintf(&b, "From: %s\n", n.Buyer.Handle())
	fmt.Fprintf(&b, "Plan: %s\n", n.Plan.Label())
	fmt.Fprintf(&b, "Method: %s\n", n.Method.Label())
	fmt.Fprintf(&b, "Offer: %s %s\n", n.Amount.String(), n.Method.Currency())
	fmt.Fprintf(&b, "Negotiation ID: %s\n", n.ID)
	return b.String()
}
