package workflow

import (
	"context"
	"fmt"

	"paybot/internal/models"
)

type AdjudicationResult struct {
	Request  models.PaymentRequest
	Decision models.Decision

	// Grant is set on approval.
	Grant *GrantResult
}

// AdjudicatePayment applies the reviewer's decision to a pending request. The request
// leaves the ledger before any side effect runs, so each id is decided at most once.
func (e *Engine) AdjudicatePayment(ctx context.Context, actor models.BuyerID, id string, decision models.Decision) (AdjudicationResult, error) {
	if !e.IsReviewer(actor) {
		e.logger.Warnw("unauthorized adjudication attempt", "actor", actor, "request_id", id)
		return AdjudicationResult{}, ErrUnauthorized
	}

	req, ok := e.ledger.TakePayment(id)
	if !ok {
		return AdjudicationResult{}, fmt.Errorf("%w: payment request %s", ErrNotFound, id)
	}

	out := AdjudicationResult{Request: req, Decision: decision}
	switch decision {
	case models.DecisionApprove:
		e.ledger.AppendPurchase(models.PurchaseRecord{
			Time:      e.now(),
			RequestID: req.ID,
			Buyer:     req.Buyer,
			Plan:      req.Plan,
			Method:    req.Method,
			Amount:    req.Amount,
			Currency:  req.Currency,
		})
		e.persist(ctx)
		e.settle(req, decision)

		grant := e.Grant(ctx, req.Buyer.ID, req.Plan)
		out.Grant = &grant
		e.notify(ctx, models.SurfacePayment, req.Buyer.ID, msgGrant(grant, e.opts.SupportContact))

	default:
		out.Decision = models.DecisionDecline
		e.persist(ctx)
		e.settle(req, out.Decision)
		e.notify(ctx, models.SurfacePayment, req.Buyer.ID, msgDeclined(e.opts.SupportContact))
	}

	e.logger.Infow("payment adjudicated",
		"request_id", req.ID, "buyer_id", req.Buyer.ID, "plan", req.Plan,
		"amount", req.Amount.String(), "currency", req.Currency, "decision", out.Decision)
	return out, nil
}

// PendingPayments lists unresolved requests for the reviewer.
func (e *Engine) PendingPayments(actor models.BuyerID) ([]models.PaymentRequest, error) {
	if !e.IsReviewer(actor) {
		return nil, ErrUnauthorized
	}
	return e.ledger.PendingPayments(), nil
}
