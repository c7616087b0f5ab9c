package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Price struct {
	Amount   decimal.Decimal
	Currency Currency
}

func (p Price) String() string {
	return p.Currency.Symbol() + p.Amount.String()
}

// PaymentRequest is a submitted proof awaiting the reviewer's decision.
type PaymentRequest struct {
	ID            string
	Buyer         Buyer
	Plan          Plan
	Method        Method
	Amount        decimal.Decimal
	Currency      Currency
	AttachmentRef AttachmentRef
	SubmittedAt   time.Time
	Deadline      time.Time
}

// Late reports whether the proof arrived after the advisory deadline.
func (r PaymentRequest) Late() bool {
	return !r.Deadline.IsZero() && r.SubmittedAt.After(r.Deadline)
}

// AttachmentRef points at the buyer's message carrying the proof.
type AttachmentRef struct {
	ChatID    int64
	MessageID int
}

type PurchaseRecord struct {
	Time      time.Time
	RequestID string
	Buyer     Buyer
	Plan      Plan
	Method    Method
	Amount    decimal.Decimal
	Currency  Currency
}

type Credential struct {
	Resource  Resource
	Reference string
}

type NegotiationRequest struct {
	ID        string
	Buyer     Buyer
	Plan      Plan
	Method    Method
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// Instructions is what the buyer needs to complete a payment.
type Instructions struct {
	Plan     Plan
	Method   Method
	Price    Price
	Deadline time.Time
	Details  PaymentDetails
}

// PaymentDetails are the operator-configured destinations per method.
type PaymentDetails struct {
	UPIID           string `json:"upi_id" mapstructure:"UPIID"`
	UPIQRURL        string `json:"upi_qr_url" mapstructure:"UPIQRURL"`
	UPIGuideURL     string `json:"upi_guide_url" mapstructure:"UPIGuideURL"`
	CryptoAddress   string `json:"crypto_address" mapstructure:"CryptoAddress"`
	CryptoNetwork   string `json:"crypto_network" mapstructure:"CryptoNetwork"`
	RemitlyInfo     string `json:"remitly_info" mapstructure:"RemitlyInfo"`
	RemitlyGuideURL string `json:"remitly_guide_url" mapstructure:"RemitlyGuideURL"`
}
