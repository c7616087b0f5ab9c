package handoff

import (
	"errors"
	"strings"
	"testing"

	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

var secret = []byte("test-secret")

func TestEncodeDecode(t *testing.T) {
	offer := models.Offer{Plan: models.PlanVIP, Method: models.MethodCrypto, Amount: decimal.RequireFromString("6.5")}

	token, err := Encode(offer, 42, secret)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(token, "neg_vip_6p5_crypto_") {
		t.Fatalf("unexpected token %q", token)
	}
	if strings.Contains(token, ".") || len(token) > MaxPayloadLen {
		t.Fatalf("token is not a valid start parameter: %q", token)
	}

	got, err := Decode(token, 42, secret)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Plan != offer.Plan || got.Method != offer.Method || !got.Amount.Equal(offer.Amount) {
		t.Fatalf("expected %+v, got %+v", offer, got)
	}
}

func TestDecode_Rejects(t *testing.T) {
	offer := models.Offer{Plan: models.PlanCombo, Method: models.MethodRemitly, Amount: decimal.NewFromInt(1500)}
	token, err := Encode(offer, 7, secret)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	t.Run("other buyer", func(t *testing.T) {
		if _, err := Decode(token, 8, secret); !errors.Is(err, ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	t.Run("tampered amount", func(t *testing.T) {
		forged := strings.Replace(token, "_1500_", "_15_", 1)
		if _, err := Decode(forged, 7, secret); !errors.Is(err, ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	t.Run("other secret", func(t *testing.T) {
		if _, err := Decode(token, 7, []byte("rotated")); !errors.Is(err, ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	malformed := []string{
		"",
		"hello",
		"neg_",
		"neg_vip_abc_upi_0011223344556677",
		"neg_vip_-5_upi_0011223344556677",
		"neg_vip_0_upi_0011223344556677",
		"neg_gold_100_upi_0011223344556677",
		"neg_vip_100_paypal_0011223344556677",
		"neg_vip_100_upi",
	}
	for _, payload := range malformed {
		if _, err := Decode(payload, 7, secret); !errors.Is(err, ErrMalformed) {
			t.Errorf("payload %q: expected ErrMalformed, got %v", payload, err)
		}
	}
}

func TestEncode_InvalidOffer(t *testing.T) {
	_, err := Encode(models.Offer{Plan: models.PlanVIP, Method: models.MethodUPI}, 1, secret)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for zero amount, got %v", err)
	}
}
