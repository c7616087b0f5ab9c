package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type BuyerID int64

func (id BuyerID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

type Buyer struct {
	ID       BuyerID
	Username string
}

// Handle renders the buyer for reviewer-facing summaries.
func (b Buyer) Handle() string {
	if b.Username == "" {
		return "@NoUsername (ID: " + b.ID.String() + ")"
	}
	return "@" + b.Username + " (ID: " + b.ID.String() + ")"
}

type Stage string

const (
	StageIdle           Stage = "idle"
	StagePlanChosen     Stage = "plan_chosen"
	StageMethodChosen   Stage = "method_chosen"
	StageProofSubmitted Stage = "proof_submitted"
	StageResolved       Stage = "resolved"
)

// Offer is a reviewer-approved custom price, scoped to one plan and one method.
type Offer struct {
	Plan   Plan
	Method Method
	Amount decimal.Decimal
}

// ConversationState is the per-buyer record on the payment surface.
type ConversationState struct {
	Buyer      BuyerID
	Stage      Stage
	Plan       Plan
	Method     Method
	Deadline   time.Time
	Negotiated *Offer
	UpdatedAt  time.Time
}

func (s ConversationState) HasPlan() bool {
	return s.Plan != ""
}

// AwaitingProof reports whether a proof upload would be accepted.
func (s ConversationState) AwaitingProof() bool {
	return s.Plan != "" && s.Method != ""
}

// Surface names the bot a message is sent through.
type Surface string

const (
	SurfacePayment Surface = "payment"
	SurfaceSupport Surface = "support"
)
