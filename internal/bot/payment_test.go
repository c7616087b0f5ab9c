package bot

import (
	"strings"
	"testing"

	"paybot/internal/command"
	"paybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestPaymentBot_ProofToApproval(t *testing.T) {
	h := newHarness(t)
	buyer := user(7, "zed")
	reviewer := user(reviewerID, "owner")

	h.payment.HandleUpdate(h.ctx, commandUpdate(buyer, "/start"))
	if !strings.HasPrefix(h.paymentAPI.last(7), "Welcome to Payment Bot") {
		t.Fatalf("expected the welcome menu, got %q", h.paymentAPI.last(7))
	}

	h.payment.HandleUpdate(h.ctx, callbackUpdate(buyer, "c1", command.Encode(command.ChoosePlan{Plan: models.PlanCombo})))
	edits := h.paymentAPI.edits(7)
	if len(edits) != 1 || !strings.Contains(edits[0].Text, "VIP + Dark") {
		t.Fatalf("expected the plan menu as an edit, got %+v", edits)
	}
	if edits[0].ReplyMarkup == nil || len(edits[0].ReplyMarkup.InlineKeyboard) != len(models.Methods)+1 {
		t.Fatalf("expected one button per method plus back, got %+v", edits[0].ReplyMarkup)
	}

	h.payment.HandleUpdate(h.ctx, callbackUpdate(buyer, "c2", command.Encode(command.ChooseMethod{Method: models.MethodRemitly})))
	ins := h.paymentAPI.last(7)
	if !strings.Contains(ins, "Remitly Payment Instructions") || !strings.Contains(ins, "₹1749") ||
		!strings.Contains(ins, "01 Mar 2025, 04:30 PM IST") {
		t.Fatalf("unexpected instructions %q", ins)
	}

	h.payment.HandleUpdate(h.ctx, textUpdate(buyer, "I paid"))
	if !strings.Contains(h.paymentAPI.last(7), "screenshot") {
		t.Fatalf("expected a screenshot reminder, got %q", h.paymentAPI.last(7))
	}

	h.payment.HandleUpdate(h.ctx, photoUpdate(buyer, 55))
	fw := h.paymentAPI.forwards(reviewerID)
	if len(fw) != 1 || fw[0].FromChatID != 7 || fw[0].MessageID != 55 {
		t.Fatalf("expected the proof to be forwarded to the reviewer, got %+v", fw)
	}
	pending := h.engine.Ledger().PendingPayments()
	if len(pending) != 1 {
		t.Fatalf("expected one pending request, got %d", len(pending))
	}
	id := pending[0].ID
	if summary := h.paymentAPI.last(reviewerID); !strings.Contains(summary, id) || !strings.Contains(summary, "@zed") {
		t.Fatalf("unexpected reviewer summary %q", summary)
	}

	approve := command.Encode(command.Adjudicate{RequestID: id, Decision: models.DecisionApprove})

	t.Run("non-reviewer cannot approve", func(t *testing.T) {
		h.payment.HandleUpdate(h.ctx, callbackUpdate(buyer, "c3", approve))
		cbs := h.paymentAPI.callbacks()
		cb := cbs[len(cbs)-1]
		if cb.CallbackQueryID != "c3" || !cb.ShowAlert || cb.Text != adminOnlyText {
			t.Fatalf("expected an alert, got %+v", cb)
		}
		if len(h.engine.Ledger().PendingPayments()) != 1 {
			t.Fatalf("request must stay pending")
		}
	})

	t.Run("reviewer approves", func(t *testing.T) {
		h.payment.HandleUpdate(h.ctx, callbackUpdate(reviewer, "c4", approve))
		if reply := h.paymentAPI.last(reviewerID); !strings.HasPrefix(reply, "✅ Approved payment (ID: "+id) {
			t.Fatalf("unexpected reviewer reply %q", reply)
		}
		grant := h.paymentAPI.last(7)
		if !strings.Contains(grant, "https://t.me/+inv1") || !strings.Contains(grant, "https://t.me/+inv2") {
			t.Fatalf("expected both invite links, got %q", grant)
		}
		if n := len(h.engine.Ledger().Purchases()); n != 1 {
			t.Fatalf("expected one purchase, got %d", n)
		}
	})

	t.Run("second press is reported", func(t *testing.T) {
		h.payment.HandleUpdate(h.ctx, callbackUpdate(reviewer, "c5", approve))
		if reply := h.paymentAPI.last(reviewerID); reply != notFoundText {
			t.Fatalf("expected not found, got %q", reply)
		}
		if h.paymentAPI.invites != 2 {
			t.Fatalf("no new invite links may be created, got %d", h.paymentAPI.invites)
		}
	})
}

func TestPaymentBot_ProofWithoutPlan(t *testing.T) {
	h := newHarness(t)
	buyer := user(8, "")

	h.payment.HandleUpdate(h.ctx, photoUpdate(buyer, 3))
	if len(h.engine.Ledger().PendingPayments()) != 0 {
		t.Fatalf("no request may be created without a plan")
	}
	if !strings.Contains(h.paymentAPI.last(8), "/start") {
		t.Fatalf("expected a hint to start, got %q", h.paymentAPI.last(8))
	}
	if len(h.paymentAPI.forwards(reviewerID)) != 0 {
		t.Fatalf("nothing may reach the reviewer")
	}
}

func TestPaymentBot_OperatorCommands(t *testing.T) {
	h := newHarness(t)
	buyer := user(9, "mallory")
	reviewer := user(reviewerID, "owner")

	h.payment.HandleUpdate(h.ctx, commandUpdate(buyer, "/set_upi evil@upi"))
	if len(h.paymentAPI.texts(9)) != 0 {
		t.Fatalf("operator commands from buyers must be ignored silently")
	}
	if got := h.engine.Catalog().Details().UPIID; got != "shop@upi" {
		t.Fatalf("upi id must not change, got %q", got)
	}

	cases := []struct {
		text   string
		expect string
	}{
		{"/set_upi new@upi", "UPI ID updated"},
		{"/set_price vip crypto 7.5", "is now $7.5"},
		{"/set_price gold upi 1", "unknown plan"},
		{"/set_price vip upi -3", "positive number"},
		{"/set_dark -100555", "Dark Channel set to -100555"},
		{"/set_vip abc", "Usage: /set_vip"},
		{"/set_remitly Pay Jane | https://example.com", "Remitly details updated"},
		{"/income 7d", "Income"},
		{"/pending", "No pending payment requests."},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			h.payment.HandleUpdate(h.ctx, commandUpdate(reviewer, tc.text))
			if got := h.paymentAPI.last(reviewerID); !strings.Contains(got, tc.expect) {
				t.Fatalf("expected %q in reply, got %q", tc.expect, got)
			}
		})
	}

	d := h.engine.Catalog().Details()
	if d.UPIID != "new@upi" || d.RemitlyInfo != "Pay Jane" || d.RemitlyGuideURL != "https://example.com" {
		t.Fatalf("unexpected details %+v", d)
	}
	if got := h.engine.Catalog().Channel(models.ResourceDark); got != -100555 {
		t.Fatalf("expected dark channel -100555, got %d", got)
	}
}

func TestPaymentBot_Broadcast(t *testing.T) {
	h := newHarness(t)
	for _, id := range []int64{11, 12} {
		h.payment.HandleUpdate(h.ctx, commandUpdate(user(id, ""), "/start"))
	}

	h.payment.HandleUpdate(h.ctx, commandUpdate(user(reviewerID, "owner"), "/broadcast New prices today"))
	h.payment.background.Wait()

	for _, id := range []int64{11, 12} {
		if got := h.paymentAPI.last(id); got != "New prices today" {
			t.Fatalf("buyer %d: expected the broadcast, got %q", id, got)
		}
	}
	if got := h.paymentAPI.last(reviewerID); !strings.Contains(got, "2 sent, 0 failed") {
		t.Fatalf("unexpected broadcast report %q", got)
	}
}

func TestClient_MarkdownFallback(t *testing.T) {
	api := &fakeSender{failMarkdown: true}
	c := newClient(api, "paybot", nil)

	if err := c.sendText(5, "*bold* user_name", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("expected a retry, got %d sends", len(api.sent))
	}
	retry := api.sent[1].(tgbotapi.MessageConfig)
	if retry.ParseMode != "" || retry.Text != "*bold* user_name" {
		t.Fatalf("expected a plain-text retry, got %+v", retry)
	}
}
