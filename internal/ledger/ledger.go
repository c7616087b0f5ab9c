// Package ledger owns the process-wide sales state: pending payment requests, pending
// negotiations, the purchase log, issued credentials and the known buyers. All access goes
// through Ledger methods; they are the only mutation points.
package ledger

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"paybot/internal/models"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	mu           sync.Mutex
	payments     map[string]models.PaymentRequest
	negotiations map[string]models.NegotiationRequest
	purchases    []models.PurchaseRecord
	buyers       map[models.BuyerID]string
	credentials  map[models.BuyerID]map[models.Resource]models.Credential
	entropy      *ulid.MonotonicEntropy
	now          func() time.Time
}

func New() *Ledger {
	return &Ledger{
		payments:     make(map[string]models.PaymentRequest),
		negotiations: make(map[string]models.NegotiationRequest),
		buyers:       make(map[models.BuyerID]string),
		credentials:  make(map[models.BuyerID]map[models.Resource]models.Credential),
		entropy:      ulid.Monotonic(rand.Reader, 0),
		now:          time.Now,
	}
}

// WithClock replaces the clock used for ids and timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// AddBuyer records a buyer and reports whether it was new.
func (l *Ledger) AddBuyer(b models.Buyer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, known := l.buyers[b.ID]
	if !known || (b.Username != "" && name != b.Username) {
		l.buyers[b.ID] = b.Username
	}
	return !known
}

// KnownBuyers returns buyer ids in ascending order.
func (l *Ledger) KnownBuyers() []models.BuyerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]models.BuyerID, 0, len(l.buyers))
	for id := range l.buyers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SubmitPayment stores a pending request under a fresh ULID and returns it.
func (l *Ledger) SubmitPayment(req models.PaymentRequest) models.PaymentRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(l.now()), l.entropy)
	if err != nil {
		// entropy overflow within one millisecond; fall back to a fresh source
		l.entropy = ulid.Monotonic(rand.Reader, 0)
		id = ulid.MustNew(ulid.Timestamp(l.now()), l.entropy)
	}
	req.ID = id.String()
	l.payments[req.ID] = req
	return req
}

// TakePayment removes and returns a pending request. Only one caller can win per id.
func (l *Ledger) TakePayment(id string) (models.PaymentRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.payments[id]
	if ok {
		delete(l.payments, id)
	}
	return req, ok
}

// PendingPayments returns pending requests ordered by submission.
func (l *Ledger) PendingPayments() []models.PaymentRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.PaymentRequest, 0, len(l.payments))
	for _, req := range l.payments {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingFor counts the buyer's unresolved payment requests.
func (l *Ledger) PendingFor(buyer models.BuyerID) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, req := range l.payments {
		if req.Buyer.ID == buyer {
			n++
		}
	}
	return n
}

func (l *Ledger) ProposeNegotiation(n models.NegotiationRequest) models.NegotiationRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		n.ID = uuid.NewString()[:8]
		if _, taken := l.negotiations[n.ID]; !taken {
			break
		}
	}
	l.negotiations[n.ID] = n
	return n
}

func (l *Ledger) TakeNegotiation(id string) (models.NegotiationRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.negotiations[id]
	if ok {
		delete(l.negotiations, id)
	}
	return n, ok
}

func (l *Ledger) PendingNegotiations() []models.NegotiationRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.NegotiationRequest, 0, len(l.negotiations))
	for _, n := range l.negotiations {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (l *Ledger) AppendPurchase(rec models.PurchaseRecord) {
	l.mu.Lock()
	l.purchases = append(l.purchases, rec)
	l.mu.Unlock()
}

func (l *Ledger) Purchases() []models.PurchaseRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.PurchaseRecord, len(l.purchases))
	copy(out, l.purchases)
	return out
}

type Summary struct {
	From   time.Time
	To     time.Time
	Count  int
	Totals map[models.Currency]decimal.Decimal
}

// Summarize aggregates purchases in [from, to).
func (l *Ledger) Summarize(from, to time.Time) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{From: from, To: to, Totals: make(map[models.Currency]decimal.Decimal)}
	for _, p := range l.purchases {
		if p.Time.Before(from) || !p.Time.Before(to) {
			continue
		}
		s.Count++
		s.Totals[p.Currency] = s.Totals[p.Currency].Add(p.Amount)
	}
	return s
}

func (l *Ledger) Credential(buyer models.BuyerID, r models.Resource) (models.Credential, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.credentials[buyer][r]
	return c, ok
}

// StoreCredential keeps the first credential stored for (buyer, resource). If one already
// exists it is returned unchanged with stored=false.
func (l *Ledger) StoreCredential(buyer models.BuyerID, c models.Credential) (models.Credential, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byResource, ok := l.credentials[buyer]
	if !ok {
		byResource = make(map[models.Resource]models.Credential)
		l.credentials[buyer] = byResource
	}
	if existing, ok := byResource[c.Resource]; ok {
		return existing, false
	}
	byResource[c.Resource] = c
	return c, true
}

// Counts is a point-in-time size report.
type Counts struct {
	PendingPayments     int
	PendingNegotiations int
	Purchases           int
	Buyers              int
	Credentials         int
}

func (l *Ledger) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := Counts{
		PendingPayments:     len(l.payments),
		PendingNegotiations: len(l.negotiations),
		Purchases:           len(l.purchases),
		Buyers:              len(l.buyers),
	}
	for _, byResource := range l.credentials {
		c.Credentials += len(byResource)
	}
	return c
}
