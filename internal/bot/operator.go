package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"paybot/internal/models"
	"paybot/internal/workflow"
)

const operatorUsage = "Operator commands:\n" +
	"/broadcast <text>\n" +
	"/income [today|yesterday|7d]\n" +
	"/pending\n" +
	"/set_price <vip|dark|both> <upi|crypto|remitly> <amount>\n" +
	"/set_upi <upi id>\n" +
	"/set_crypto <address>\n" +
	"/set_remitly <text> [| <link>]\n" +
	"/set_vip <channel id>\n" +
	"/set_dark <channel id>"

// isOperatorCommand reports whether cmd is reserved for the reviewer.
func isOperatorCommand(cmd string) bool {
	switch cmd {
	case "broadcast", "income", "pending", "set_price", "set_upi", "set_crypto",
		"set_remitly", "set_vip", "set_dark", "admin":
		return true
	}
	return false
}

// runOperatorCommand executes a reviewer command and returns the reply text. Broadcast
// is handled by the caller because it runs in the background.
func runOperatorCommand(ctx context.Context, e *workflow.Engine, loc *time.Location, actor models.BuyerID, cmd, args string) string {
	args = strings.TrimSpace(args)
	switch cmd {
	case "income":
		return e.Income(workflow.ParsePeriod(args)).String()
	case "pending":
		reqs, err := e.PendingPayments(actor)
		if err != nil {
			return operatorError(err)
		}
		return pendingText(reqs, loc)
	case "set_price":
		return setPrice(ctx, e, actor, args)
	case "set_upi":
		if err := e.SetUPI(ctx, actor, args); err != nil {
			return operatorError(err)
		}
		return "✅ UPI ID updated."
	case "set_crypto":
		if err := e.SetCrypto(ctx, actor, args); err != nil {
			return operatorError(err)
		}
		return "✅ Crypto address updated."
	case "set_remitly":
		if err := e.SetRemitly(ctx, actor, args); err != nil {
			return operatorError(err)
		}
		return "✅ Remitly details updated."
	case "set_vip":
		return setChannel(ctx, e, actor, models.ResourceVIP, args)
	case "set_dark":
		return setChannel(ctx, e, actor, models.ResourceDark, args)
	}
	return operatorUsage
}

func setPrice(ctx context.Context, e *workflow.Engine, actor models.BuyerID, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "Usage: /set_price <vip|dark|both> <upi|crypto|remitly> <amount>"
	}
	plan, err := models.ParsePlan(fields[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	method, err := models.ParseMethod(fields[1])
	if err != nil {
		return "❌ " + err.Error()
	}
	amount, err := workflow.ParseAmount(fields[2])
	if err != nil {
		return operatorError(err)
	}
	if err := e.SetPrice(ctx, actor, plan, method, amount); err != nil {
		return operatorError(err)
	}
	price := models.Price{Amount: amount, Currency: method.Currency()}
	return fmt.Sprintf("✅ %s via %s is now %s.", plan.Label(), method.Label(), price)
}

func setChannel(ctx context.Context, e *workflow.Engine, actor models.BuyerID, r models.Resource, args string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return fmt.Sprintf("Usage: /set_%s <channel id>, for example -1001234567890", r)
	}
	if err := e.SetChannel(ctx, actor, r, id); err != nil {
		return operatorError(err)
	}
	return fmt.Sprintf("✅ %s set to %d.", r.Label(), id)
}

func operatorError(err error) string {
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		return adminOnlyText
	case errors.Is(err, workflow.ErrInvalidAmount):
		return "❌ Amount must be a positive number with at most two decimals."
	case errors.Is(err, workflow.ErrEmptySetting):
		return "❌ Value must not be empty."
	case errors.Is(err, workflow.ErrInvalidChannel):
		return "❌ Invalid channel id."
	}
	return "❌ " + err.Error()
}
