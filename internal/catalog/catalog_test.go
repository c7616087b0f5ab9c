package catalog

import (
	"errors"
	"testing"

	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

func TestCatalog_ResolvePrice(t *testing.T) {
	c := New(nil, nil, models.PaymentDetails{})

	t.Run("catalog price without offer", func(t *testing.T) {
		p, err := c.ResolvePrice(models.PlanVIP, models.MethodUPI, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Amount.Equal(decimal.NewFromInt(499)) || p.Currency != models.CurrencyINR {
			t.Fatalf("expected 499 INR, got %s %s", p.Amount, p.Currency)
		}
	})

	t.Run("negotiated price for matching method", func(t *testing.T) {
		offer := &models.Offer{Plan: models.PlanVIP, Method: models.MethodUPI, Amount: decimal.NewFromInt(350)}
		p, err := c.ResolvePrice(models.PlanVIP, models.MethodUPI, offer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Amount.Equal(decimal.NewFromInt(350)) {
			t.Fatalf("expected 350, got %s", p.Amount)
		}
	})

	t.Run("negotiated price for another method is ignored", func(t *testing.T) {
		offer := &models.Offer{Plan: models.PlanVIP, Method: models.MethodCrypto, Amount: decimal.NewFromInt(3)}
		p, err := c.ResolvePrice(models.PlanVIP, models.MethodUPI, offer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Amount.Equal(decimal.NewFromInt(499)) {
			t.Fatalf("expected catalog 499, got %s", p.Amount)
		}
	})

	t.Run("negotiated price for another plan is ignored", func(t *testing.T) {
		offer := &models.Offer{Plan: models.PlanDark, Method: models.MethodUPI, Amount: decimal.NewFromInt(3)}
		p, _ := c.ResolvePrice(models.PlanVIP, models.MethodUPI, offer)
		if !p.Amount.Equal(decimal.NewFromInt(499)) {
			t.Fatalf("expected catalog 499, got %s", p.Amount)
		}
	})

	t.Run("crypto settles in USD", func(t *testing.T) {
		p, _ := c.ResolvePrice(models.PlanCombo, models.MethodCrypto, nil)
		if !p.Amount.Equal(decimal.NewFromInt(21)) || p.Currency != models.CurrencyUSD {
			t.Fatalf("expected 21 USD, got %s %s", p.Amount, p.Currency)
		}
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := c.ResolvePrice("gold", models.MethodUPI, nil)
		if !errors.Is(err, ErrUnknownPlan) {
			t.Fatalf("expected ErrUnknownPlan, got %v", err)
		}
	})
}

func TestCatalog_SetPrice(t *testing.T) {
	c := New(nil, nil, models.PaymentDetails{})

	if err := c.SetPrice(models.PlanDark, models.MethodCrypto, decimal.RequireFromString("19.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := c.Price(models.PlanDark, models.MethodCrypto)
	if p.Amount.String() != "19.5" {
		t.Fatalf("expected 19.5, got %s", p.Amount)
	}

	if err := c.SetPrice(models.PlanDark, models.MethodCrypto, decimal.Zero); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if err := c.SetPrice(models.PlanDark, "paypal", decimal.NewFromInt(1)); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestCatalog_SettingsRoundTrip(t *testing.T) {
	src := New(nil, map[models.Resource]int64{models.ResourceVIP: -1001}, models.PaymentDetails{UPIID: "shop@upi"})
	_ = src.SetPrice(models.PlanVIP, models.MethodUPI, decimal.NewFromInt(599))

	dst := New(nil, nil, models.PaymentDetails{})
	dst.Apply(src.Settings())

	p, _ := dst.Price(models.PlanVIP, models.MethodUPI)
	if !p.Amount.Equal(decimal.NewFromInt(599)) {
		t.Fatalf("expected 599, got %s", p.Amount)
	}
	if dst.Channel(models.ResourceVIP) != -1001 {
		t.Fatalf("expected channel -1001, got %d", dst.Channel(models.ResourceVIP))
	}
	if dst.Details().UPIID != "shop@upi" {
		t.Fatalf("expected upi id to be restored, got %q", dst.Details().UPIID)
	}
}
