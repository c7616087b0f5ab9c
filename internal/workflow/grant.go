package workflow

import (
	"context"
	"fmt"

	"paybot/internal/models"
)

// GrantResult lists the credentials delivered for a plan. A resource that could not be
// provisioned appears in Failures and nowhere else.
type GrantResult struct {
	Credentials []models.Credential
	Reused      []models.Resource
	Failures    map[models.Resource]error
}

// Grant returns one credential per resource of the plan, reusing any credential the
// buyer already holds. Resources are handled independently.
func (e *Engine) Grant(ctx context.Context, buyer models.BuyerID, plan models.Plan) GrantResult {
	e.grantMu.Lock()
	defer e.grantMu.Unlock()

	res := GrantResult{Failures: make(map[models.Resource]error)}
	minted := false
	for _, r := range plan.Resources() {
		if c, ok := e.ledger.Credential(buyer, r); ok {
			res.Credentials = append(res.Credentials, c)
			res.Reused = append(res.Reused, r)
			continue
		}

		channel := e.catalog.Channel(r)
		if channel == 0 {
			res.Failures[r] = fmt.Errorf("%w: %s channel is not configured", ErrProvisioning, r)
			e.logger.Errorw("channel not configured", "buyer_id", buyer, "resource", r)
			continue
		}

		ref, err := e.provisioner.IssueCredential(ctx, r, channel, buyer)
		if err != nil {
			res.Failures[r] = fmt.Errorf("%w: %s: %v", ErrProvisioning, r, err)
			e.logger.Errorw("failed to issue credential", "buyer_id", buyer, "resource", r, "error", err)
			continue
		}

		c, stored := e.ledger.StoreCredential(buyer, models.Credential{Resource: r, Reference: ref})
		if stored {
			minted = true
			e.logger.Infow("credential issued", "buyer_id", buyer, "resource", r)
		}
		res.Credentials = append(res.Credentials, c)
	}

	if minted {
		e.persist(ctx)
	}
	return res
}
