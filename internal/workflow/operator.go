package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paybot/internal/ledger"
	"paybot/internal/models"

	"github.com/shopspring/decimal"
)

type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodWeek      Period = "7d"
)

// ParsePeriod maps operator input to a report period. Anything unrecognised is today.
func ParsePeriod(s string) Period {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yesterday":
		return PeriodYesterday
	case "7d", "7days", "week", "last7":
		return PeriodWeek
	}
	return PeriodToday
}

func (p Period) Label() string {
	switch p {
	case PeriodYesterday:
		return "Yesterday"
	case PeriodWeek:
		return "Last 7 days"
	}
	return "Today"
}

// Window returns the half-open range [from, to) covered by the period, with day
// boundaries taken in loc.
func (p Period) Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	switch p {
	case PeriodYesterday:
		return today.AddDate(0, 0, -1), today
	case PeriodWeek:
		return today.AddDate(0, 0, -6), today.AddDate(0, 0, 1)
	}
	return today, today.AddDate(0, 0, 1)
}

type IncomeReport struct {
	Period  Period
	Summary ledger.Summary
}

// BuildIncomeReport summarises the purchase log for a period.
func BuildIncomeReport(led *ledger.Ledger, p Period, now time.Time, loc *time.Location) IncomeReport {
	from, to := p.Window(now, loc)
	return IncomeReport{Period: p, Summary: led.Summarize(from, to)}
}

func (r IncomeReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Income: %s\n\n", r.Period.Label())
	fmt.Fprintf(&b, "Purchases: %d\n", r.Summary.Count)
	for _, c := range []models.Currency{models.CurrencyINR, models.CurrencyUSD} {
		total := r.Summary.Totals[c]
		fmt.Fprintf(&b, "%s: %s%s\n", c, c.Symbol(), total.String())
	}
	return b.String()
}

func (e *Engine) Income(p Period) IncomeReport {
	return BuildIncomeReport(e.ledger, p, e.now(), e.opts.Location)
}

type BroadcastResult struct {
	Sent   int
	Failed int
}

// Broadcast sends text to every known buyer on the payment surface.
func (e *Engine) Broadcast(ctx context.Context, actor models.BuyerID, text string) (BroadcastResult, error) {
	if !e.IsReviewer(actor) {
		return BroadcastResult{}, ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return BroadcastResult{}, fmt.Errorf("%w: broadcast text", ErrEmptySetting)
	}

	var res BroadcastResult
	for _, id := range e.ledger.KnownBuyers() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := e.notifier.NotifyBuyer(ctx, models.SurfacePayment, id, text); err != nil {
			res.Failed++
			e.logger.Debugw("broadcast delivery failed", "buyer_id", id, "error", err)
		} else {
			res.Sent++
		}
		if e.opts.BroadcastInterval > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(e.opts.BroadcastInterval):
			}
		}
	}
	e.logger.Infow("broadcast finished", "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// ParseAmount parses operator or buyer input into a positive amount with at most two
// decimals.
func ParseAmount(text string) (decimal.Decimal, error) {
	return parseAmount(text)
}

func (e *Engine) SetPrice(ctx context.Context, actor models.BuyerID, plan models.Plan, method models.Method, amount decimal.Decimal) error {
	if !e.IsReviewer(actor) {
		return ErrUnauthorized
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if err := e.catalog.SetPrice(plan, method, amount); err != nil {
		return err
	}
	e.persist(ctx)
	e.logger.Infow("price updated", "plan", plan, "method", method, "amount", amount.String())
	return nil
}

func (e *Engine) SetChannel(ctx context.Context, actor models.BuyerID, r models.Resource, chatID int64) error {
	if !e.IsReviewer(actor) {
		return ErrUnauthorized
	}
	if chatID == 0 {
		return ErrInvalidChannel
	}
	if err := e.catalog.SetChannel(r, chatID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChannel, err)
	}
	e.persist(ctx)
	e.logger.Infow("channel updated", "resource", r, "chat_id", chatID)
	return nil
}

func (e *Engine) SetUPI(ctx context.Context, actor models.BuyerID, upiID string) error {
	upiID = strings.TrimSpace(upiID)
	return e.updateDetails(ctx, actor, "upi id", upiID, func(d *models.PaymentDetails) {
		d.UPIID = upiID
	})
}

func (e *Engine) SetCrypto(ctx context.Context, actor models.BuyerID, address string) error {
	address = strings.TrimSpace(address)
	return e.updateDetails(ctx, actor, "crypto address", address, func(d *models.PaymentDetails) {
		d.CryptoAddress = address
	})
}

// SetRemitly takes "<instructions> | <guide link>"; the link part is optional.
func (e *Engine) SetRemitly(ctx context.Context, actor models.BuyerID, raw string) error {
	info, link, _ := strings.Cut(raw, "|")
	info, link = strings.TrimSpace(info), strings.TrimSpace(link)
	return e.updateDetails(ctx, actor, "remitly info", info, func(d *models.PaymentDetails) {
		d.RemitlyInfo = info
		if link != "" {
			d.RemitlyGuideURL = link
		}
	})
}

func (e *Engine) updateDetails(ctx context.Context, actor models.BuyerID, name, value string, fn func(d *models.PaymentDetails)) error {
	if !e.IsReviewer(actor) {
		return ErrUnauthorized
	}
	if value == "" {
		return fmt.Errorf("%w: %s", ErrEmptySetting, name)
	}
	e.catalog.UpdateDetails(fn)
	e.persist(ctx)
	e.logger.Infow("payment details updated", "setting", name)
	return nil
}
