package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"paybot/internal/catalog"
	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

// Document is the persisted layout. Sections missing from a stored snapshot default to
// empty; unknown fields are ignored.
type Document struct {
	PendingPayments     map[string]paymentEntry      `json:"pending_payments"`
	PendingNegotiations map[string]negotiationEntry  `json:"pending_negotiations"`
	PurchaseLog         []purchaseEntry              `json:"purchase_log"`
	KnownUsers          []int64                      `json:"known_users"`
	SentCredentials     map[string]map[string]string `json:"sent_credentials"`
	Settings            *catalog.Settings            `json:"settings,omitempty"`
}

type paymentEntry struct {
	UserID      int64           `json:"user_id"`
	Username    string          `json:"username"`
	Plan        string          `json:"plan"`
	Method      string          `json:"method"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ChatID      int64           `json:"chat_id,omitempty"`
	MessageID   int             `json:"message_id,omitempty"`
	SubmittedAt string          `json:"submitted_at,omitempty"`
	Deadline    string          `json:"deadline,omitempty"`
}

type negotiationEntry struct {
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Plan      string          `json:"plan"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt string          `json:"created_at,omitempty"`
}

type purchaseEntry struct {
	Time      string          `json:"time"`
	RequestID string          `json:"request_id,omitempty"`
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Plan      string          `json:"plan"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Snapshot serializes the ledger together with the operator settings.
func (l *Ledger) Snapshot(settings *catalog.Settings) ([]byte, error) {
	l.mu.Lock()
	doc := Document{
		PendingPayments:     make(map[string]paymentEntry, len(l.payments)),
		PendingNegotiations: make(map[string]negotiationEntry, len(l.negotiations)),
		PurchaseLog:         make([]purchaseEntry, 0, len(l.purchases)),
		KnownUsers:          make([]int64, 0, len(l.buyers)),
		SentCredentials:     make(map[string]map[string]string, len(l.credentials)),
		Settings:            settings,
	}
	for id, r := range l.payments {
		doc.PendingPayments[id] = paymentEntry{
			UserID:      int64(r.Buyer.ID),
			Username:    r.Buyer.Username,
			Plan:        string(r.Plan),
			Method:      string(r.Method),
			Amount:      r.Amount,
			Currency:    string(r.Currency),
			ChatID:      r.AttachmentRef.ChatID,
			MessageID:   r.AttachmentRef.MessageID,
			SubmittedAt: formatTime(r.SubmittedAt),
			Deadline:    formatTime(r.Deadline),
		}
	}
	for id, n := range l.negotiations {
		doc.PendingNegotiations[id] = negotiationEntry{
			UserID:    int64(n.Buyer.ID),
			Username:  n.Buyer.Username,
			Plan:      string(n.Plan),
			Method:    string(n.Method),
			Amount:    n.Amount,
			CreatedAt: formatTime(n.CreatedAt),
		}
	}
	for _, p := range l.purchases {
		doc.PurchaseLog = append(doc.PurchaseLog, purchaseEntry{
			Time:      formatTime(p.Time),
			RequestID: p.RequestID,
			UserID:    int64(p.Buyer.ID),
			Username:  p.Buyer.Username,
			Plan:      string(p.Plan),
			Method:    string(p.Method),
			Amount:    p.Amount,
			Currency:  string(p.Currency),
		})
	}
	for id := range l.buyers {
		doc.KnownUsers = append(doc.KnownUsers, int64(id))
	}
	for buyer, byResource := range l.credentials {
		refs := make(map[string]string, len(byResource))
		for r, c := range byResource {
			refs[string(r)] = c.Reference
		}
		doc.SentCredentials[buyer.String()] = refs
	}
	l.mu.Unlock()

	return json.MarshalIndent(doc, "", "  ")
}

// Restored describes the outcome of Restore.
type Restored struct {
	Settings *catalog.Settings
	Skipped  []string
}

func (r *Restored) skip(format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf(format, args...))
}

// Restore replaces the ledger contents with a stored snapshot. Malformed sections and
// entries are skipped and reported, never fatal. An empty blob restores nothing.
func (l *Ledger) Restore(data []byte) (Restored, error) {
	var out Restored
	if len(data) == 0 {
		return out, nil
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return out, fmt.Errorf("snapshot is not a JSON object: %w", err)
	}

	payments := make(map[string]models.PaymentRequest)
	var rawPayments map[string]json.RawMessage
	decodeSection(sections, "pending_payments", &rawPayments, &out)
	for id, raw := range rawPayments {
		var e paymentEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			out.skip("pending payment %s: %v", id, err)
			continue
		}
		req, err := e.request(id)
		if err != nil {
			out.skip("pending payment %s: %v", id, err)
			continue
		}
		payments[id] = req
	}

	negotiations := make(map[string]models.NegotiationRequest)
	var rawNegotiations map[string]json.RawMessage
	decodeSection(sections, "pending_negotiations", &rawNegotiations, &out)
	for id, raw := range rawNegotiations {
		var e negotiationEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			out.skip("pending negotiation %s: %v", id, err)
			continue
		}
		n, err := e.negotiation(id)
		if err != nil {
			out.skip("pending negotiation %s: %v", id, err)
			continue
		}
		negotiations[id] = n
	}

	var purchases []models.PurchaseRecord
	var rawLog []json.RawMessage
	decodeSection(sections, "purchase_log", &rawLog, &out)
	for i, raw := range rawLog {
		var e purchaseEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			out.skip("purchase %d: %v", i, err)
			continue
		}
		rec, err := e.record()
		if err != nil {
			out.skip("purchase %d: %v", i, err)
			continue
		}
		purchases = append(purchases, rec)
	}

	buyers := make(map[models.BuyerID]string)
	var rawUsers []json.RawMessage
	decodeSection(sections, "known_users", &rawUsers, &out)
	for _, raw := range rawUsers {
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			out.skip("known user %s: %v", raw, err)
			continue
		}
		buyers[models.BuyerID(id)] = ""
	}
	for _, req := range payments {
		buyers[req.Buyer.ID] = req.Buyer.Username
	}

	credentials := make(map[models.BuyerID]map[models.Resource]models.Credential)
	var rawCreds map[string]map[string]string
	key := "sent_credentials"
	if _, ok := sections[key]; !ok {
		key = "sent_invites"
	}
	decodeSection(sections, key, &rawCreds, &out)
	for buyerKey, refs := range rawCreds {
		id, err := strconv.ParseInt(buyerKey, 10, 64)
		if err != nil {
			out.skip("credentials for %q: bad buyer id", buyerKey)
			continue
		}
		for res, ref := range refs {
			r := models.Resource(res)
			if !r.Valid() || ref == "" {
				out.skip("credential %s/%s: invalid", buyerKey, res)
				continue
			}
			if credentials[models.BuyerID(id)] == nil {
				credentials[models.BuyerID(id)] = make(map[models.Resource]models.Credential)
			}
			credentials[models.BuyerID(id)][r] = models.Credential{Resource: r, Reference: ref}
		}
	}

	if raw, ok := sections["settings"]; ok && string(raw) != "null" {
		var s catalog.Settings
		if err := json.Unmarshal(raw, &s); err != nil {
			out.skip("settings: %v", err)
		} else {
			out.Settings = &s
		}
	}

	l.mu.Lock()
	l.payments = payments
	l.negotiations = negotiations
	l.purchases = purchases
	l.buyers = buyers
	l.credentials = credentials
	l.mu.Unlock()

	return out, nil
}

func decodeSection(sections map[string]json.RawMessage, key string, dst any, out *Restored) {
	raw, ok := sections[key]
	if !ok || string(raw) == "null" {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		out.skip("section %s: %v", key, err)
	}
}

func (e paymentEntry) request(id string) (models.PaymentRequest, error) {
	plan, err := models.ParsePlan(e.Plan)
	if err != nil {
		return models.PaymentRequest{}, err
	}
	method, err := models.ParseMethod(e.Method)
	if err != nil {
		return models.PaymentRequest{}, err
	}
	submitted, err := parseTime(e.SubmittedAt)
	if err != nil {
		return models.PaymentRequest{}, err
	}
	deadline, err := parseTime(e.Deadline)
	if err != nil {
		return models.PaymentRequest{}, err
	}
	currency := models.Currency(e.Currency)
	if currency == "" {
		currency = method.Currency()
	}
	return models.PaymentRequest{
		ID:            id,
		Buyer:         models.Buyer{ID: models.BuyerID(e.UserID), Username: e.Username},
		Plan:          plan,
		Method:        method,
		Amount:        e.Amount,
		Currency:      currency,
		AttachmentRef: models.AttachmentRef{ChatID: e.ChatID, MessageID: e.MessageID},
		SubmittedAt:   submitted,
		Deadline:      deadline,
	}, nil
}

func (e negotiationEntry) negotiation(id string) (models.NegotiationRequest, error) {
	plan, err := models.ParsePlan(e.Plan)
	if err != nil {
		return models.NegotiationRequest{}, err
	}
	method, err := models.ParseMethod(e.Method)
	if err != nil {
		return models.NegotiationRequest{}, err
	}
	created, err := parseTime(e.CreatedAt)
	if err != nil {
		return models.NegotiationRequest{}, err
	}
	return models.NegotiationRequest{
		ID:        id,
		Buyer:     models.Buyer{ID: models.BuyerID(e.UserID), Username: e.Username},
		Plan:      plan,
		Method:    method,
		Amount:    e.Amount,
		CreatedAt: created,
	}, nil
}

func (e purchaseEntry) record() (models.PurchaseRecord, error) {
	t, err := parseTime(e.Time)
	if err != nil {
		return models.PurchaseRecord{}, err
	}
	if t.IsZero() {
		return models.PurchaseRecord{}, fmt.Errorf("missing time")
	}
	return models.PurchaseRecord{
		Time:      t,
		RequestID: e.RequestID,
		Buyer:     models.Buyer{ID: models.BuyerID(e.UserID), Username: e.Username},
		Plan:      models.Plan(e.Plan),
		Method:    models.Method(e.Method),
		Amount:    e.Amount,
		Currency:  models.Currency(e.Currency),
	}, nil
}
