package workflow_test

import (
	"errors"
	"strings"
	"testing"

	"paybot/internal/handoff"
	"paybot/internal/models"
	"paybot/internal/workflow"

	"github.com/shopspring/decimal"
)

func TestEngine_NegotiatedPriceHandoff(t *testing.T) {
	f := newFixture(t)
	buyer := models.Buyer{ID: 21, Username: "dave"}

	f.engine.BeginNegotiation(f.ctx, buyer)
	if err := f.engine.ChooseNegotiationPlan(buyer.ID, models.PlanVIP); err != nil {
		t.Fatalf("choose plan: %v", err)
	}
	if err := f.engine.ChooseNegotiationMethod(f.ctx, buyer.ID, models.MethodUPI); err != nil {
		t.Fatalf("choose method: %v", err)
	}

	n, handled, err := f.engine.CaptureNegotiationAmount(f.ctx, buyer, "350")
	if err != nil || !handled {
		t.Fatalf("capture amount: handled=%v err=%v", handled, err)
	}
	if len(n.ID) != 8 || !n.Amount.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("unexpected negotiation %+v", n)
	}
	if len(f.negotiations) != 1 || f.negotiations[0].ID != n.ID {
		t.Fatalf("negotiation was not forwarded to the reviewer")
	}

	// the draft is consumed; further text is not an offer
	if _, handled, _ := f.engine.CaptureNegotiationAmount(f.ctx, buyer, "300"); handled {
		t.Fatalf("text after a completed offer must be ignored")
	}

	res, err := f.engine.AdjudicateNegotiation(f.ctx, reviewerID, n.ID, models.DecisionApprove)
	if err != nil {
		t.Fatalf("approve negotiation: %v", err)
	}
	if !handoff.IsToken(res.Token) || len(res.Token) > handoff.MaxPayloadLen {
		t.Fatalf("unexpected token %q", res.Token)
	}
	if len(f.handoffs) != 1 || f.handoffs[0].token != res.Token || f.handoffs[0].buyer != buyer.ID {
		t.Fatalf("handoff link not delivered: %+v", f.handoffs)
	}

	menu, err := f.engine.RedeemHandoff(f.ctx, buyer, res.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if menu.Plan != models.PlanVIP || menu.Negotiated == nil {
		t.Fatalf("expected a seeded vip menu, got %+v", menu)
	}
	if got := menu.Prices[models.MethodUPI].Amount; !got.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected negotiated upi price 350, got %s", got)
	}
	if got := menu.Prices[models.MethodCrypto].Amount; !got.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected catalog crypto price 6, got %s", got)
	}

	t.Run("other method keeps catalog price", func(t *testing.T) {
		ins, err := f.engine.ChooseMethod(f.ctx, buyer, models.MethodCrypto)
		if err != nil {
			t.Fatalf("choose method: %v", err)
		}
		if !ins.Price.Amount.Equal(decimal.NewFromInt(6)) || ins.Price.Currency != models.CurrencyUSD {
			t.Fatalf("expected $6, got %s", ins.Price)
		}
	})

	t.Run("negotiated method uses offer", func(t *testing.T) {
		ins, err := f.engine.ChooseMethod(f.ctx, buyer, models.MethodUPI)
		if err != nil {
			t.Fatalf("choose method: %v", err)
		}
		if !ins.Price.Amount.Equal(decimal.NewFromInt(350)) {
			t.Fatalf("expected 350, got %s", ins.Price.Amount)
		}
		req, err := f.engine.SubmitProof(f.ctx, buyer, models.AttachmentRef{ChatID: 21, MessageID: 3})
		if err != nil {
			t.Fatalf("submit proof: %v", err)
		}
		if !req.Amount.Equal(decimal.NewFromInt(350)) || req.Currency != models.CurrencyINR {
			t.Fatalf("request not fixed at the negotiated price: %+v", req)
		}
	})

	t.Run("token is bound to the buyer", func(t *testing.T) {
		other := models.Buyer{ID: 22}
		_, err := f.engine.RedeemHandoff(f.ctx, other, res.Token)
		if !errors.Is(err, workflow.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
		if got := f.engine.Conversation(other.ID).Stage; got != models.StageIdle {
			t.Fatalf("expected idle after a rejected token, got %s", got)
		}
	})

	t.Run("already decided", func(t *testing.T) {
		_, err := f.engine.AdjudicateNegotiation(f.ctx, reviewerID, n.ID, models.DecisionDecline)
		if !errors.Is(err, workflow.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEngine_NegotiationInvalidAmount(t *testing.T) {
	f := newFixture(t)
	buyer := models.Buyer{ID: 31}

	f.engine.BeginNegotiation(f.ctx, buyer)
	if err := f.engine.ChooseNegotiationPlan(buyer.ID, models.PlanDark); err != nil {
		t.Fatalf("choose plan: %v", err)
	}
	if err := f.engine.ChooseNegotiationMethod(f.ctx, buyer.ID, models.MethodCrypto); err != nil {
		t.Fatalf("choose method: %v", err)
	}

	for _, text := range []string{"abc", "0", "-5", "1.234", "", "99999999"} {
		t.Run(text, func(t *testing.T) {
			_, handled, err := f.engine.CaptureNegotiationAmount(f.ctx, buyer, text)
			if !handled || !errors.Is(err, workflow.ErrInvalidAmount) {
				t.Fatalf("expected a handled ErrInvalidAmount, got handled=%v err=%v", handled, err)
			}
		})
	}
	if n := len(f.ledger.PendingNegotiations()); n != 0 {
		t.Fatalf("invalid amounts must not create negotiations, got %d", n)
	}
	if !strings.Contains(f.lastMessage(buyer.ID), "valid amount") {
		t.Fatalf("expected a re-prompt, got %q", f.lastMessage(buyer.ID))
	}

	n, handled, err := f.engine.CaptureNegotiationAmount(f.ctx, buyer, "$6.5")
	if err != nil || !handled {
		t.Fatalf("valid amount after re-prompt: handled=%v err=%v", handled, err)
	}
	if !n.Amount.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("expected 6.5, got %s", n.Amount)
	}
}

func TestEngine_NegotiationDraftOrdering(t *testing.T) {
	f := newFixture(t)
	buyer := models.Buyer{ID: 32}

	if _, handled, _ := f.engine.CaptureNegotiationAmount(f.ctx, buyer, "100"); handled {
		t.Fatalf("text without a draft must be ignored")
	}
	f.engine.BeginNegotiation(f.ctx, buyer)
	if err := f.engine.ChooseNegotiationMethod(f.ctx, buyer.ID, models.MethodUPI); !errors.Is(err, workflow.ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
	if _, handled, _ := f.engine.CaptureNegotiationAmount(f.ctx, buyer, "100"); handled {
		t.Fatalf("text with an incomplete draft must be ignored")
	}
}

func TestEngine_NegotiationDecline(t *testing.T) {
	f := newFixture(t)
	buyer := models.Buyer{ID: 33}

	n, err := f.engine.ProposeNegotiation(f.ctx, buyer, models.PlanCombo, models.MethodRemitly, "1200")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	res, err := f.engine.AdjudicateNegotiation(f.ctx, reviewerID, n.ID, models.DecisionDecline)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if res.Token != "" || len(f.handoffs) != 0 {
		t.Fatalf("decline must not issue a token")
	}
	if !strings.Contains(f.lastMessage(buyer.ID), "not accepted") {
		t.Fatalf("expected a decline notice, got %q", f.lastMessage(buyer.ID))
	}
}
