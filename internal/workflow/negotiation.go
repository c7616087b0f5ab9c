package workflow

import (
	"context"
	"fmt"
	"strings"

	"paybot/internal/handoff"
	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

// maxNegotiatedAmount keeps every approved offer encodable as a deep-link payload.
var maxNegotiatedAmount = decimal.NewFromInt(10_000_000)

// negotiationDraft collects plan and method on the support surface before the amount.
type negotiationDraft struct {
	plan   models.Plan
	method models.Method
}

type NegotiationResult struct {
	Negotiation models.NegotiationRequest
	Decision    models.Decision

	// Token is set on approval.
	Token string
}

// BeginNegotiation starts a fresh draft for the buyer.
func (e *Engine) BeginNegotiation(ctx context.Context, buyer models.Buyer) {
	e.Register(ctx, buyer)

	e.draftMu.Lock()
	e.drafts[buyer.ID] = &negotiationDraft{}
	e.draftMu.Unlock()
}

func (e *Engine) ChooseNegotiationPlan(buyer models.BuyerID, plan models.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	e.draftMu.Lock()
	e.drafts[buyer] = &negotiationDraft{plan: plan}
	e.draftMu.Unlock()
	return nil
}

// ChooseNegotiationMethod completes the draft; the next text message is the amount.
func (e *Engine) ChooseNegotiationMethod(ctx context.Context, buyer models.BuyerID, method models.Method) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	e.draftMu.Lock()
	d, ok := e.drafts[buyer]
	if !ok || d.plan == "" {
		e.draftMu.Unlock()
		return ErrNoPlan
	}
	d.method = method
	e.draftMu.Unlock()

	e.notify(ctx, models.SurfaceSupport, buyer, msgNegotiationAmount)
	return nil
}

// CaptureNegotiationAmount turns a text message into a proposal when the buyer has a
// complete draft. handled is false when there is no draft to apply the text to. An
// invalid amount keeps the draft and re-prompts.
func (e *Engine) CaptureNegotiationAmount(ctx context.Context, buyer models.Buyer, text string) (n models.NegotiationRequest, handled bool, err error) {
	e.draftMu.Lock()
	d, ok := e.drafts[buyer.ID]
	if !ok || d.plan == "" || d.method == "" {
		e.draftMu.Unlock()
		return models.NegotiationRequest{}, false, nil
	}
	plan, method := d.plan, d.method
	e.draftMu.Unlock()

	n, err = e.ProposeNegotiation(ctx, buyer, plan, method, text)
	if err != nil {
		return models.NegotiationRequest{}, true, err
	}

	e.draftMu.Lock()
	delete(e.drafts, buyer.ID)
	e.draftMu.Unlock()
	return n, true, nil
}

// ProposeNegotiation records a custom price offer and forwards it to the reviewer.
func (e *Engine) ProposeNegotiation(ctx context.Context, buyer models.Buyer, plan models.Plan, method models.Method, amountText string) (models.NegotiationRequest, error) {
	if !plan.Valid() {
		return models.NegotiationRequest{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if !method.Valid() {
		return models.NegotiationRequest{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	amount, err := parseAmount(amountText)
	if err != nil {
		e.notify(ctx, models.SurfaceSupport, buyer.ID, msgInvalidAmount)
		return models.NegotiationRequest{}, err
	}

	e.Register(ctx, buyer)
	n := e.ledger.ProposeNegotiation(models.NegotiationRequest{
		Buyer:     buyer,
		Plan:      plan,
		Method:    method,
		Amount:    amount,
		CreatedAt: e.now(),
	})
	e.persist(ctx)

	e.logger.Infow("negotiation proposed", "negotiation_id", n.ID, "buyer_id", buyer.ID,
		"plan", plan, "method", method, "amount", amount.String())

	if err := e.notifier.ForwardNegotiationToReviewer(ctx, n, negotiationSummary(n)); err != nil {
		e.logger.Errorw("failed to forward negotiation to reviewer", "negotiation_id", n.ID, "error", err)
	}
	e.notify(ctx, models.SurfaceSupport, buyer.ID, msgNegotiationSent)
	return n, nil
}

// AdjudicateNegotiation applies the reviewer's decision to an offer. Approval sends the
// buyer a handoff link carrying the signed price.
func (e *Engine) AdjudicateNegotiation(ctx context.Context, actor models.BuyerID, id string, decision models.Decision) (NegotiationResult, error) {
	if !e.IsReviewer(actor) {
		e.logger.Warnw("unauthorized negotiation adjudication attempt", "actor", actor, "negotiation_id", id)
		return NegotiationResult{}, ErrUnauthorized
	}

	n, ok := e.ledger.TakeNegotiation(id)
	if !ok {
		return NegotiationResult{}, fmt.Errorf("%w: negotiation %s", ErrNotFound, id)
	}
	e.persist(ctx)

	out := NegotiationResult{Negotiation: n, Decision: decision}
	if decision != models.DecisionApprove {
		out.Decision = models.DecisionDecline
		e.notify(ctx, models.SurfaceSupport, n.Buyer.ID, msgNegotiationDeclined(e.opts.SupportContact))
		e.logger.Infow("negotiation declined", "negotiation_id", n.ID, "buyer_id", n.Buyer.ID)
		return out, nil
	}

	offer := models.Offer{Plan: n.Plan, Method: n.Method, Amount: n.Amount}
	token, err := handoff.Encode(offer, n.Buyer.ID, e.opts.HandoffSecret)
	if err != nil {
		return out, fmt.Errorf("failed to encode handoff token for %s: %w", n.ID, err)
	}
	out.Token = token

	if err := e.notifier.DeliverHandoffLink(ctx, n.Buyer.ID, token, offer); err != nil {
		e.logger.Errorw("failed to deliver handoff link", "negotiation_id", n.ID, "error", err)
	}
	e.logger.Infow("negotiation approved", "negotiation_id", n.ID, "buyer_id", n.Buyer.ID,
		"amount", n.Amount.String())
	return out, nil
}

// parseAmount accepts a positive number with at most two decimals, optionally prefixed
// with a currency symbol.
func parseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimLeft(s, "₹$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) || amount.GreaterThanOrEqual(maxNegotiatedAmount) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	return amount, nil
}
