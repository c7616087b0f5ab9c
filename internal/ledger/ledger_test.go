package ledger

import (
	"sync"
	"testing"
	"time"

	"paybot/internal/catalog"
	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func paymentRequest(buyer models.BuyerID) models.PaymentRequest {
	now := time.Date(2025, 12, 10, 21, 15, 51, 123456789, ist)
	return models.PaymentRequest{
		Buyer:         models.Buyer{ID: buyer, Username: "alice"},
		Plan:          models.PlanCombo,
		Method:        models.MethodRemitly,
		Amount:        decimal.NewFromInt(1749),
		Currency:      models.CurrencyINR,
		AttachmentRef: models.AttachmentRef{ChatID: int64(buyer), MessageID: 77},
		SubmittedAt:   now,
		Deadline:      now.Add(30 * time.Minute),
	}
}

func TestLedger_TakePaymentExactlyOnce(t *testing.T) {
	l := New()
	req := l.SubmitPayment(paymentRequest(1))
	if req.ID == "" {
		t.Fatalf("expected an id to be assigned")
	}

	var wg sync.WaitGroup
	wins := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := l.TakePayment(req.ID)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for ok := range wins {
		if ok {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected exactly one successful take, got %d", n)
	}
	if _, ok := l.TakePayment(req.ID); ok {
		t.Fatalf("expected second take to miss")
	}
}

func TestLedger_SubmitPaymentUniqueIDs(t *testing.T) {
	l := New()
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		req := l.SubmitPayment(paymentRequest(1))
		if seen[req.ID] {
			t.Fatalf("duplicate id %s", req.ID)
		}
		seen[req.ID] = true
	}
	if got := l.PendingFor(1); got != 500 {
		t.Fatalf("expected 500 pending for buyer, got %d", got)
	}
}

func TestLedger_StoreCredentialKeepsFirst(t *testing.T) {
	l := New()

	first, stored := l.StoreCredential(5, models.Credential{Resource: models.ResourceVIP, Reference: "link-1"})
	if !stored || first.Reference != "link-1" {
		t.Fatalf("expected first credential to be stored, got %+v stored=%v", first, stored)
	}
	second, stored := l.StoreCredential(5, models.Credential{Resource: models.ResourceVIP, Reference: "link-2"})
	if stored || second.Reference != "link-1" {
		t.Fatalf("expected existing credential to win, got %+v stored=%v", second, stored)
	}
	if _, ok := l.Credential(5, models.ResourceDark); ok {
		t.Fatalf("expected no dark credential")
	}
}

func TestLedger_Summarize(t *testing.T) {
	l := New()
	day := time.Date(2025, 12, 10, 0, 0, 0, 0, ist)
	l.AppendPurchase(models.PurchaseRecord{Time: day.Add(time.Hour), Amount: decimal.NewFromInt(499), Currency: models.CurrencyINR})
	l.AppendPurchase(models.PurchaseRecord{Time: day.Add(2 * time.Hour), Amount: decimal.RequireFromString("6.5"), Currency: models.CurrencyUSD})
	l.AppendPurchase(models.PurchaseRecord{Time: day.Add(25 * time.Hour), Amount: decimal.NewFromInt(1999), Currency: models.CurrencyINR})

	s := l.Summarize(day, day.Add(24*time.Hour))
	if s.Count != 2 {
		t.Fatalf("expected 2 orders, got %d", s.Count)
	}
	if !s.Totals[models.CurrencyINR].Equal(decimal.NewFromInt(499)) {
		t.Fatalf("expected INR 499, got %s", s.Totals[models.CurrencyINR])
	}
	if s.Totals[models.CurrencyUSD].String() != "6.5" {
		t.Fatalf("expected USD 6.5, got %s", s.Totals[models.CurrencyUSD])
	}
}

func TestLedger_SnapshotRoundTrip(t *testing.T) {
	src := New()
	src.AddBuyer(models.Buyer{ID: 1, Username: "alice"})
	src.AddBuyer(models.Buyer{ID: 2})
	pending := src.SubmitPayment(paymentRequest(1))
	src.AppendPurchase(models.PurchaseRecord{
		Time:      time.Date(2025, 12, 9, 10, 0, 0, 987654321, ist),
		RequestID: "01OLD",
		Buyer:     models.Buyer{ID: 2},
		Plan:      models.PlanVIP,
		Method:    models.MethodUPI,
		Amount:    decimal.NewFromInt(499),
		Currency:  models.CurrencyINR,
	})
	src.StoreCredential(2, models.Credential{Resource: models.ResourceVIP, Reference: "https://t.me/+abc"})
	neg := src.ProposeNegotiation(models.NegotiationRequest{
		Buyer:     models.Buyer{ID: 2},
		Plan:      models.PlanDark,
		Method:    models.MethodCrypto,
		Amount:    decimal.NewFromInt(15),
		CreatedAt: time.Date(2025, 12, 9, 11, 0, 0, 0, ist),
	})
	settings := catalog.New(nil, map[models.Resource]int64{models.ResourceDark: -100}, models.PaymentDetails{}).Settings()

	blob, err := src.Snapshot(&settings)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	dst := New()
	restored, err := dst.Restore(blob)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored.Skipped) != 0 {
		t.Fatalf("expected nothing skipped, got %v", restored.Skipped)
	}
	if restored.Settings == nil || restored.Settings.Channels[models.ResourceDark] != -100 {
		t.Fatalf("expected settings to be restored, got %+v", restored.Settings)
	}

	got := dst.PendingPayments()
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Fatalf("expected pending %s, got %+v", pending.ID, got)
	}
	if !got[0].Amount.Equal(pending.Amount) || got[0].Buyer != pending.Buyer || got[0].AttachmentRef != pending.AttachmentRef {
		t.Fatalf("pending request mismatch: %+v vs %+v", got[0], pending)
	}
	if !got[0].SubmittedAt.Equal(pending.SubmittedAt.Truncate(time.Second)) {
		t.Fatalf("expected submitted_at at second resolution, got %s", got[0].SubmittedAt)
	}

	purchases := dst.Purchases()
	if len(purchases) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(purchases))
	}
	if !purchases[0].Time.Equal(time.Date(2025, 12, 9, 10, 0, 0, 0, ist)) || purchases[0].Plan != models.PlanVIP {
		t.Fatalf("purchase mismatch: %+v", purchases[0])
	}

	buyers := dst.KnownBuyers()
	if len(buyers) != 2 || buyers[0] != 1 || buyers[1] != 2 {
		t.Fatalf("expected buyers [1 2], got %v", buyers)
	}
	if c, ok := dst.Credential(2, models.ResourceVIP); !ok || c.Reference != "https://t.me/+abc" {
		t.Fatalf("expected credential to be restored, got %+v", c)
	}
	if n, ok := dst.TakeNegotiation(neg.ID); !ok || !n.Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected negotiation %s to be restored", neg.ID)
	}
}

func TestLedger_RestoreTolerant(t *testing.T) {
	blob := []byte(`{
		"pending_payments": {
			"good": {"user_id": 9, "username": "bob", "plan": "vip", "method": "upi", "amount": 499, "currency": "INR"},
			"bad-plan": {"user_id": 9, "plan": "gold", "method": "upi", "amount": 1},
			"bad-shape": "oops"
		},
		"purchase_log": [
			{"time": "2025-12-10T21:15:51.123456+05:30", "user_id": 9, "plan": "vip", "method": "upi", "amount": 499, "currency": "INR"},
			{"time": "yesterday", "user_id": 9}
		],
		"known_users": [9, "ten"],
		"sent_invites": {"9": {"vip": "https://t.me/+legacy", "gold": "x"}},
		"something_new": {"ignored": true}
	}`)

	l := New()
	restored, err := l.Restore(blob)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored.Skipped) != 5 {
		t.Fatalf("expected 5 skipped entries, got %d: %v", len(restored.Skipped), restored.Skipped)
	}
	if got := l.PendingPayments(); len(got) != 1 || got[0].ID != "good" || got[0].Currency != models.CurrencyINR {
		t.Fatalf("expected only the good request, got %+v", got)
	}
	if got := l.Purchases(); len(got) != 1 {
		t.Fatalf("expected one purchase, got %d", len(got))
	}
	if c, ok := l.Credential(9, models.ResourceVIP); !ok || c.Reference != "https://t.me/+legacy" {
		t.Fatalf("expected legacy invite to be restored, got %+v", c)
	}

	if _, err := New().Restore([]byte(`[1,2,3]`)); err == nil {
		t.Fatalf("expected error for non-object snapshot")
	}
	if _, err := New().Restore(nil); err != nil {
		t.Fatalf("expected empty snapshot to be accepted, got %v", err)
	}
}
