// Package catalog holds the operator-mutable sales settings: base prices per plan and
// payment method, the channel behind each resource and the payment destinations shown
// to buyers.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrUnknownMethod = errors.New("unknown payment method")
	ErrInvalidPrice  = errors.New("price must be a positive number")
)

type Prices map[models.Plan]map[models.Method]decimal.Decimal

// DefaultPrices returns the launch price list.
func DefaultPrices() Prices {
	return Prices{
		models.PlanVIP: {
			models.MethodUPI:     decimal.NewFromInt(499),
			models.MethodRemitly: decimal.NewFromInt(499),
			models.MethodCrypto:  decimal.NewFromInt(6),
		},
		models.PlanDark: {
			models.MethodUPI:     decimal.NewFromInt(1999),
			models.MethodRemitly: decimal.NewFromInt(1999),
			models.MethodCrypto:  decimal.NewFromInt(24),
		},
		models.PlanCombo: {
			models.MethodUPI:     decimal.NewFromInt(1749),
			models.MethodRemitly: decimal.NewFromInt(1749),
			models.MethodCrypto:  decimal.NewFromInt(21),
		},
	}
}

// Settings is the persisted form of everything an operator can change at runtime.
type Settings struct {
	Prices   Prices                    `json:"prices,omitempty"`
	Channels map[models.Resource]int64 `json:"channels,omitempty"`
	Details  *models.PaymentDetails    `json:"payment_details,omitempty"`
}

type Catalog struct {
	mu       sync.RWMutex
	prices   Prices
	channels map[models.Resource]int64
	details  models.PaymentDetails
}

func New(prices Prices, channels map[models.Resource]int64, details models.PaymentDetails) *Catalog {
	c := &Catalog{
		prices:   DefaultPrices(),
		channels: make(map[models.Resource]int64),
		details:  details,
	}
	c.mergePrices(prices)
	for r, id := range channels {
		if r.Valid() {
			c.channels[r] = id
		}
	}
	return c
}

func (c *Catalog) mergePrices(prices Prices) {
	for plan, byMethod := range prices {
		if !plan.Valid() {
			continue
		}
		for method, amount := range byMethod {
			if !method.Valid() || !amount.IsPositive() {
				continue
			}
			c.prices[plan][method] = amount
		}
	}
}

// Price returns the catalog price for a plan and method.
func (c *Catalog) Price(plan models.Plan, method models.Method) (models.Price, error) {
	if !plan.Valid() {
		return models.Price{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if !method.Valid() {
		return models.Price{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	c.mu.RLock()
	amount := c.prices[plan][method]
	c.mu.RUnlock()

	return models.Price{Amount: amount, Currency: method.Currency()}, nil
}

// ResolvePrice applies a negotiated offer when it was granted for this plan and method,
// and falls back to the catalog price otherwise.
func (c *Catalog) ResolvePrice(plan models.Plan, method models.Method, offer *models.Offer) (models.Price, error) {
	if offer != nil && offer.Method == method && offer.Plan == plan && offer.Amount.IsPositive() {
		return models.Price{Amount: offer.Amount, Currency: method.Currency()}, nil
	}
	return c.Price(plan, method)
}

// Menu resolves the price of every method for one plan.
func (c *Catalog) Menu(plan models.Plan, offer *models.Offer) (map[models.Method]models.Price, error) {
	menu := make(map[models.Method]models.Price, len(models.Methods))
	for _, m := range models.Methods {
		p, err := c.ResolvePrice(plan, m, offer)
		if err != nil {
			return nil, err
		}
		menu[m] = p
	}
	return menu, nil
}

func (c *Catalog) SetPrice(plan models.Plan, method models.Method, amount decimal.Decimal) error {
	if !plan.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if !method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if !amount.IsPositive() {
		return ErrInvalidPrice
	}

	c.mu.Lock()
	c.prices[plan][method] = amount
	c.mu.Unlock()
	return nil
}

// Channel returns the chat id for a resource; zero means not configured.
func (c *Catalog) Channel(r models.Resource) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[r]
}

func (c *Catalog) SetChannel(r models.Resource, chatID int64) error {
	if !r.Valid() {
		return fmt.Errorf("unknown resource %q", r)
	}
	c.mu.Lock()
	c.channels[r] = chatID
	c.mu.Unlock()
	return nil
}

func (c *Catalog) Details() models.PaymentDetails {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.details
}

// UpdateDetails applies fn to the payment destinations under the write lock.
func (c *Catalog) UpdateDetails(fn func(d *models.PaymentDetails)) {
	c.mu.Lock()
	fn(&c.details)
	c.mu.Unlock()
}

func (c *Catalog) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prices := make(Prices, len(c.prices))
	for plan, byMethod := range c.prices {
		prices[plan] = make(map[models.Method]decimal.Decimal, len(byMethod))
		for m, a := range byMethod {
			prices[plan][m] = a
		}
	}
	channels := make(map[models.Resource]int64, len(c.channels))
	for r, id := range c.channels {
		channels[r] = id
	}
	details := c.details
	return Settings{Prices: prices, Channels: channels, Details: &details}
}

// Apply overlays persisted settings; invalid entries are skipped.
func (c *Catalog) Apply(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mergePrices(s.Prices)
	for r, id := range s.Channels {
		if r.Valid() && id != 0 {
			c.channels[r] = id
		}
	}
	if s.Details != nil {
		c.details = *s.Details
	}
}
