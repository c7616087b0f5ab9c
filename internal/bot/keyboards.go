package bot

import (
	"fmt"

	"paybot/internal/catalog"
	"paybot/internal/command"
	"paybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var planIcons = map[models.Plan]string{
	models.PlanVIP:   "💎",
	models.PlanDark:  "🕶",
	models.PlanCombo: "🔥",
}

var methodIcons = map[models.Method]string{
	models.MethodUPI:     "💳",
	models.MethodCrypto:  "🪙",
	models.MethodRemitly: "🌍",
}

func button(text string, c command.Command) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, command.Encode(c))
}

// startKeyboard lists the plans with their headline UPI price.
func startKeyboard(cat *catalog.Catalog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range models.Plans {
		label := fmt.Sprintf("%s %s", planIcons[p], p.Label())
		switch p {
		case models.PlanCombo:
			label = planIcons[p] + " Both (30% OFF)"
		default:
			if price, err := cat.Price(p, models.MethodUPI); err == nil {
				label = fmt.Sprintf("%s %s (%s)", planIcons[p], p.Label(), price)
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, command.ChoosePlan{Plan: p})))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("🆘 Help", command.ShowHelp{})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func planMenuKeyboard(prices map[models.Method]models.Price) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range models.Methods {
		price, ok := prices[m]
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s %s (%s)", methodIcons[m], m.Label(), price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, command.ChooseMethod{Method: m})))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅ Back", command.Back{})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("⬅ Back", command.Back{})),
	)
}

// instructionsKeyboard carries the how-to-pay guide link when one is configured.
func instructionsKeyboard(guideURL string) tgbotapi.InlineKeyboardMarkup {
	if guideURL == "" {
		return backKeyboard()
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📖 How to pay", guideURL)),
		tgbotapi.NewInlineKeyboardRow(button("⬅ Back", command.Back{})),
	)
}

func reviewKeyboard(requestID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("✅ Approve", command.Adjudicate{RequestID: requestID, Decision: models.DecisionApprove}),
			button("❌ Decline", command.Adjudicate{RequestID: requestID, Decision: models.DecisionDecline}),
		),
	)
}

func negotiationReviewKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("✅ Approve", command.AdjudicateNegotiation{NegotiationID: id, Decision: models.DecisionApprove}),
			button("❌ Decline", command.AdjudicateNegotiation{NegotiationID: id, Decision: models.DecisionDecline}),
		),
	)
}

func supportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("💳 Payment issue", command.SupportTopic{Topic: command.TopicPayment})),
		tgbotapi.NewInlineKeyboardRow(button("🛠 Technical issue", command.SupportTopic{Topic: command.TopicTech})),
		tgbotapi.NewInlineKeyboardRow(button("❓ Others", command.SupportTopic{Topic: command.TopicOther})),
		tgbotapi.NewInlineKeyboardRow(button("🤝 Negotiate price", command.SupportTopic{Topic: command.TopicNegotiate})),
	)
}

func negotiationPlanKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range models.Plans {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(planIcons[p]+" "+p.Label(), command.NegotiationPlan{Plan: p})))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func negotiationMethodKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(methodIcons[models.MethodUPI]+" UPI", command.NegotiationMethod{Method: models.MethodUPI}),
			button(methodIcons[models.MethodCrypto]+" Crypto", command.NegotiationMethod{Method: models.MethodCrypto}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(methodIcons[models.MethodRemitly]+" Remitly", command.NegotiationMethod{Method: models.MethodRemitly}),
		),
	)
}
