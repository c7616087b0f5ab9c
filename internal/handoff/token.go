// Package handoff encodes an approved negotiated price into a deep-link payload that the
// buyer carries from the support bot to the payment bot.
//
// Wire form: neg_<plan>_<amount>_<method>_<sig>. The amount's decimal point is written
// as "p" because Telegram start parameters only allow [A-Za-z0-9_-]. sig is a truncated
// HMAC-SHA256 over the buyer id and the offer, so a payload only verifies for the buyer
// it was issued to.
package handoff

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

const (
	Prefix = "neg_"

	// MaxPayloadLen is Telegram's limit for a /start parameter.
	MaxPayloadLen = 64

	sigBytes = 8
)

var (
	ErrMalformed = errors.New("malformed handoff token")
	ErrSignature = errors.New("handoff token signature mismatch")
	ErrTooLong   = errors.New("handoff token exceeds deep-link limit")
)

// IsToken reports whether a /start payload looks like a handoff token.
func IsToken(payload string) bool {
	return strings.HasPrefix(payload, Prefix)
}

func Encode(offer models.Offer, buyer models.BuyerID, secret []byte) (string, error) {
	if !offer.Plan.Valid() || !offer.Method.Valid() || !offer.Amount.IsPositive() {
		return "", fmt.Errorf("%w: invalid offer", ErrMalformed)
	}
	amount := offer.Amount.String()
	payload := fmt.Sprintf("%s%s_%s_%s_%s",
		Prefix, offer.Plan, strings.ReplaceAll(amount, ".", "p"), offer.Method,
		sign(secret, buyer, offer.Plan, amount, offer.Method))
	if len(payload) > MaxPayloadLen {
		return "", ErrTooLong
	}
	return payload, nil
}

func Decode(payload string, buyer models.BuyerID, secret []byte) (models.Offer, error) {
	if !IsToken(payload) {
		return models.Offer{}, ErrMalformed
	}
	parts := strings.Split(strings.TrimPrefix(payload, Prefix), "_")
	if len(parts) != 4 {
		return models.Offer{}, ErrMalformed
	}

	plan, err := models.ParsePlan(parts[0])
	if err != nil {
		return models.Offer{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(parts[1], "p", "."))
	if err != nil || !amount.IsPositive() {
		return models.Offer{}, fmt.Errorf("%w: bad amount %q", ErrMalformed, parts[1])
	}
	method, err := models.ParseMethod(parts[2])
	if err != nil {
		return models.Offer{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	want := sign(secret, buyer, plan, amount.String(), method)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(parts[3]))) {
		return models.Offer{}, ErrSignature
	}
	return models.Offer{Plan: plan, Method: method, Amount: amount}, nil
}

func sign(secret []byte, buyer models.BuyerID, plan models.Plan, amount string, method models.Method) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d|%s|%s|%s", buyer, plan, amount, method)
	return hex.EncodeToString(mac.Sum(nil)[:sigBytes])
}
