package workflow

import (
	"context"
	"fmt"
	"time"

	"paybot/internal/handoff"
	"paybot/internal/models"
)

// PlanMenu is the price list shown after a plan is chosen.
type PlanMenu struct {
	Plan       models.Plan
	Prices     map[models.Method]models.Price
	Negotiated *models.Offer
}

// state returns the buyer's conversation, creating an idle one. convMu must be held.
func (e *Engine) state(buyer models.BuyerID) *models.ConversationState {
	st, ok := e.conversations[buyer]
	if !ok {
		st = &models.ConversationState{Buyer: buyer, Stage: models.StageIdle, UpdatedAt: e.now()}
		e.conversations[buyer] = st
	}
	return st
}

func snapshotState(st *models.ConversationState) models.ConversationState {
	out := *st
	if st.Negotiated != nil {
		offer := *st.Negotiated
		out.Negotiated = &offer
	}
	return out
}

// Conversation returns a copy of the buyer's conversation state.
func (e *Engine) Conversation(buyer models.BuyerID) models.ConversationState {
	e.convMu.Lock()
	defer e.convMu.Unlock()

	if st, ok := e.conversations[buyer]; ok {
		return snapshotState(st)
	}
	return models.ConversationState{Buyer: buyer, Stage: models.StageIdle}
}

// Start registers the buyer and resets the payment conversation.
func (e *Engine) Start(ctx context.Context, buyer models.Buyer) models.ConversationState {
	e.Register(ctx, buyer)

	e.convMu.Lock()
	defer e.convMu.Unlock()

	st := &models.ConversationState{Buyer: buyer.ID, Stage: models.StageIdle, UpdatedAt: e.now()}
	e.conversations[buyer.ID] = st
	return snapshotState(st)
}

// ChoosePlan moves the buyer to PlanChosen. Method and deadline are cleared; a
// negotiated offer survives only if it was granted for the same plan.
func (e *Engine) ChoosePlan(ctx context.Context, buyer models.Buyer, plan models.Plan) (PlanMenu, error) {
	if !plan.Valid() {
		return PlanMenu{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	e.Register(ctx, buyer)

	e.convMu.Lock()
	st := e.state(buyer.ID)
	st.Stage = models.StagePlanChosen
	st.Plan = plan
	st.Method = ""
	st.Deadline = time.Time{}
	if st.Negotiated != nil && st.Negotiated.Plan != plan {
		st.Negotiated = nil
	}
	st.UpdatedAt = e.now()
	offer := snapshotState(st).Negotiated
	e.convMu.Unlock()

	prices, err := e.catalog.Menu(plan, offer)
	if err != nil {
		return PlanMenu{}, err
	}
	return PlanMenu{Plan: plan, Prices: prices, Negotiated: offer}, nil
}

// ChooseMethod fixes the payment method, resolves the price and starts the advisory
// proof window.
func (e *Engine) ChooseMethod(ctx context.Context, buyer models.Buyer, method models.Method) (models.Instructions, error) {
	if !method.Valid() {
		return models.Instructions{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	e.convMu.Lock()
	st := e.state(buyer.ID)
	if !st.HasPlan() {
		e.convMu.Unlock()
		e.notify(ctx, models.SurfacePayment, buyer.ID, msgChoosePlanFirst)
		return models.Instructions{}, ErrNoPlan
	}
	price, err := e.catalog.ResolvePrice(st.Plan, method, st.Negotiated)
	if err != nil {
		e.convMu.Unlock()
		return models.Instructions{}, err
	}
	now := e.now()
	st.Stage = models.StageMethodChosen
	st.Method = method
	st.Deadline = now.Add(e.opts.ProofWindow)
	st.UpdatedAt = now
	ins := models.Instructions{
		Plan:     st.Plan,
		Method:   method,
		Price:    price,
		Deadline: st.Deadline,
		Details:  e.catalog.Details(),
	}
	e.convMu.Unlock()

	if err := e.notifier.ShowPaymentInstructions(ctx, buyer.ID, ins); err != nil {
		e.logger.Warnw("failed to show payment instructions", "buyer_id", buyer.ID, "error", err)
	}
	return ins, nil
}

// SubmitProof records a pending payment request for the buyer's current plan and
// method and forwards the evidence to the reviewer.
func (e *Engine) SubmitProof(ctx context.Context, buyer models.Buyer, ref models.AttachmentRef) (models.PaymentRequest, error) {
	e.Register(ctx, buyer)

	e.convMu.Lock()
	st := e.state(buyer.ID)
	if !st.AwaitingProof() {
		e.convMu.Unlock()
		e.notify(ctx, models.SurfacePayment, buyer.ID, msgNoPaymentContext)
		return models.PaymentRequest{}, ErrNoPaymentContext
	}
	price, err := e.catalog.ResolvePrice(st.Plan, st.Method, st.Negotiated)
	if err != nil {
		e.convMu.Unlock()
		return models.PaymentRequest{}, err
	}
	now := e.now()
	req := models.PaymentRequest{
		Buyer:         buyer,
		Plan:          st.Plan,
		Method:        st.Method,
		Amount:        price.Amount,
		Currency:      price.Currency,
		AttachmentRef: ref,
		SubmittedAt:   now,
		Deadline:      st.Deadline,
	}
	st.Stage = models.StageProofSubmitted
	st.UpdatedAt = now
	e.convMu.Unlock()

	req = e.ledger.SubmitPayment(req)
	others := e.ledger.PendingFor(buyer.ID) - 1
	e.persist(ctx)

	e.logger.Infow("payment request submitted",
		"request_id", req.ID, "buyer_id", buyer.ID, "plan", req.Plan,
		"method", req.Method, "amount", req.Amount.String(), "late", req.Late())

	if err := e.notifier.ForwardEvidenceToReviewer(ctx, req, e.paymentSummary(req, others)); err != nil {
		e.logger.Errorw("failed to forward proof to reviewer", "request_id", req.ID, "error", err)
	}
	e.notify(ctx, models.SurfacePayment, buyer.ID, msgProofReceived)
	return req, nil
}

// ProofWindowText answers plain text sent while a proof is expected. It reports whether
// the text was handled.
func (e *Engine) ProofWindowText(ctx context.Context, buyer models.BuyerID, text string) bool {
	e.convMu.Lock()
	st, ok := e.conversations[buyer]
	handled := ok && st.AwaitingProof() &&
		(st.Stage == models.StageMethodChosen || st.Stage == models.StageProofSubmitted)
	e.convMu.Unlock()

	if handled {
		e.logger.Debugw("text during proof window", "buyer_id", buyer, "length", len(text))
		e.notify(ctx, models.SurfacePayment, buyer, msgTextDuringProof)
	}
	return handled
}

// RedeemHandoff seeds the conversation from a negotiated price token. An invalid token
// resets the conversation to Idle and returns ErrInvalidToken.
func (e *Engine) RedeemHandoff(ctx context.Context, buyer models.Buyer, payload string) (PlanMenu, error) {
	e.Start(ctx, buyer)

	offer, err := handoff.Decode(payload, buyer.ID, e.opts.HandoffSecret)
	if err != nil {
		e.logger.Warnw("rejected handoff token", "buyer_id", buyer.ID, "error", err)
		e.notify(ctx, models.SurfacePayment, buyer.ID, msgInvalidHandoff)
		return PlanMenu{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	e.convMu.Lock()
	st := e.state(buyer.ID)
	st.Stage = models.StagePlanChosen
	st.Plan = offer.Plan
	st.Negotiated = &offer
	st.UpdatedAt = e.now()
	e.convMu.Unlock()

	prices, err := e.catalog.Menu(offer.Plan, &offer)
	if err != nil {
		return PlanMenu{}, err
	}
	e.logger.Infow("handoff redeemed", "buyer_id", buyer.ID, "plan", offer.Plan,
		"method", offer.Method, "amount", offer.Amount.String())
	return PlanMenu{Plan: offer.Plan, Prices: prices, Negotiated: &offer}, nil
}

// settle moves the buyer's conversation after a decision. Approval resolves a
// conversation that was waiting on this proof; decline re-arms the proof window. A buyer
// who already moved on to another plan or method is left alone.
func (e *Engine) settle(req models.PaymentRequest, decision models.Decision) {
	e.convMu.Lock()
	defer e.convMu.Unlock()

	st := e.state(req.Buyer.ID)
	switch st.Stage {
	case models.StagePlanChosen, models.StageMethodChosen:
		return
	}

	now := e.now()
	st.UpdatedAt = now
	if decision == models.DecisionApprove {
		st.Stage = models.StageResolved
		st.Plan = ""
		st.Method = ""
		st.Deadline = time.Time{}
		st.Negotiated = nil
		return
	}
	st.Stage = models.StageMethodChosen
	st.Plan = req.Plan
	st.Method = req.Method
	st.Deadline = now.Add(e.opts.ProofWindow)
}
