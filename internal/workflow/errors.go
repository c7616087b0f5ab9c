package workflow

import (
	"errors"

	"paybot/internal/catalog"
)

var (
	ErrNotFound         = errors.New("not found or already processed")
	ErrUnauthorized     = errors.New("only the reviewer can do this")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidToken     = errors.New("invalid handoff token")
	ErrInvalidChannel   = errors.New("invalid channel id")
	ErrNoPlan           = errors.New("no plan selected")
	ErrNoPaymentContext = errors.New("no plan or payment method selected")
	ErrProvisioning     = errors.New("credential provisioning failed")
	ErrEmptySetting     = errors.New("value must not be empty")

	ErrUnknownPlan   = catalog.ErrUnknownPlan
	ErrUnknownMethod = catalog.ErrUnknownMethod
)
