package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"paybot/internal/command"
	"paybot/internal/handoff"
	"paybot/internal/models"
	"paybot/internal/workflow"
	"paybot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PaymentBot serves buyers choosing a plan and uploading proof, and the reviewer's
// approve/decline buttons and operator commands.
type PaymentBot struct {
	client   *Client
	engine   *workflow.Engine
	location *time.Location
	logger   *logger.Logger

	background sync.WaitGroup
}

func NewPaymentBot(client *Client, engine *workflow.Engine, loc *time.Location, log *logger.Logger) *PaymentBot {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PaymentBot{
		client:   client,
		engine:   engine,
		location: loc,
		logger:   log.Named("payment"),
	}
}

func (b *PaymentBot) Start(ctx context.Context, pollTimeout int) error {
	return b.client.Start(ctx, pollTimeout, b)
}

// Stop ends polling and waits for running broadcasts.
func (b *PaymentBot) Stop(ctx context.Context) error {
	err := b.client.Stop(ctx)

	done := make(chan struct{})
	go func() {
		b.background.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return err
	}
}

func (b *PaymentBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func buyerFrom(u *tgbotapi.User) models.Buyer {
	return models.Buyer{ID: models.BuyerID(u.ID), Username: u.UserName}
}

func hasAttachment(m *tgbotapi.Message) bool {
	return len(m.Photo) > 0 || m.Document != nil
}

func (b *PaymentBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return
	}
	buyer := buyerFrom(message.From)
	chatID := message.Chat.ID

	switch {
	case message.IsCommand():
		b.handleCommand(ctx, buyer, message)
	case hasAttachment(message):
		ref := models.AttachmentRef{ChatID: chatID, MessageID: message.MessageID}
		if _, err := b.engine.SubmitProof(ctx, buyer, ref); err != nil {
			b.logger.Debugw("Proof not accepted", "buyer_id", buyer.ID, "error", err)
		}
	case message.Text != "":
		if !b.engine.ProofWindowText(ctx, buyer.ID, message.Text) {
			b.reply(chatID, unknownText)
		}
	}
}

func (b *PaymentBot) handleCommand(ctx context.Context, buyer models.Buyer, message *tgbotapi.Message) {
	cmd := message.Command()
	args := message.CommandArguments()
	chatID := message.Chat.ID

	b.logger.Infow("Handling command", "command", cmd, "buyer_id", buyer.ID)

	if isOperatorCommand(cmd) {
		if !b.engine.IsReviewer(buyer.ID) {
			b.logger.Warnw("Operator command from non-reviewer ignored", "command", cmd, "buyer_id", buyer.ID)
			return
		}
		if cmd == "broadcast" {
			b.broadcast(ctx, buyer.ID, chatID, args)
			return
		}
		b.reply(chatID, runOperatorCommand(ctx, b.engine, b.location, buyer.ID, cmd, args))
		return
	}

	switch cmd {
	case "start":
		payload := strings.TrimSpace(args)
		if handoff.IsToken(payload) {
			menu, err := b.engine.RedeemHandoff(ctx, buyer, payload)
			if err == nil {
				b.send(chatID, planMenuText(menu), planMenuKeyboard(menu.Prices))
				return
			}
		} else {
			b.engine.Start(ctx, buyer)
		}
		b.send(chatID, startText, startKeyboard(b.engine.Catalog()))
	case "help":
		b.send(chatID, helpText(b.engine.SupportContact()), nil)
	default:
		b.reply(chatID, unknownText)
	}
}

// broadcast runs in the background so the update loop keeps serving buyers.
func (b *PaymentBot) broadcast(ctx context.Context, actor models.BuyerID, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		b.reply(chatID, "Usage: /broadcast <text>")
		return
	}
	b.reply(chatID, "📣 Broadcast started.")

	b.background.Add(1)
	go func() {
		defer b.background.Done()
		res, err := b.engine.Broadcast(ctx, actor, text)
		if err != nil {
			b.logger.Errorw("Broadcast interrupted", "sent", res.Sent, "failed", res.Failed, "error", err)
		}
		b.reply(chatID, fmt.Sprintf("📣 Broadcast finished: %d sent, %d failed.", res.Sent, res.Failed))
	}()
}

func callbackTarget(q *tgbotapi.CallbackQuery) (int64, int) {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID, q.Message.MessageID
	}
	return q.From.ID, 0
}

func (b *PaymentBot) handleCallbackQuery(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		return
	}
	b.logger.Infow("Received callback query", "from", q.From.UserName, "data", q.Data)

	cmd, err := command.Parse(q.Data)
	if err != nil {
		b.logger.Warnw("Unknown callback data", "data", q.Data, "error", err)
		b.client.answerCallback(q.ID, "")
		return
	}

	buyer := buyerFrom(q.From)
	chatID, messageID := callbackTarget(q)

	switch c := cmd.(type) {
	case command.ChoosePlan:
		menu, err := b.engine.ChoosePlan(ctx, buyer, c.Plan)
		if err != nil {
			b.logger.Warnw("Failed to choose plan", "buyer_id", buyer.ID, "error", err)
			break
		}
		markup := planMenuKeyboard(menu.Prices)
		b.edit(chatID, messageID, planMenuText(menu), &markup)
	case command.ChooseMethod:
		if _, err := b.engine.ChooseMethod(ctx, buyer, c.Method); err != nil {
			b.logger.Debugw("Method not accepted", "buyer_id", buyer.ID, "error", err)
		}
	case command.ShowHelp:
		markup := backKeyboard()
		b.edit(chatID, messageID, helpText(b.engine.SupportContact()), &markup)
	case command.Back:
		b.engine.Start(ctx, buyer)
		markup := startKeyboard(b.engine.Catalog())
		b.edit(chatID, messageID, startText, &markup)
	case command.Adjudicate:
		res, err := b.engine.AdjudicatePayment(ctx, buyer.ID, c.RequestID, c.Decision)
		switch {
		case errors.Is(err, workflow.ErrUnauthorized):
			b.client.alertCallback(q.ID, adminOnlyText)
			return
		case errors.Is(err, workflow.ErrNotFound):
			b.client.clearKeyboard(chatID, messageID)
			b.reply(chatID, notFoundText)
		case err != nil:
			b.logger.Errorw("Adjudication failed", "request_id", c.RequestID, "error", err)
			b.reply(chatID, "❌ "+err.Error())
		default:
			b.client.clearKeyboard(chatID, messageID)
			b.reply(chatID, adjudicationReply(res))
		}
	default:
		b.logger.Debugw("Callback not handled on the payment surface", "data", q.Data)
	}
	b.client.answerCallback(q.ID, "")
}

func (b *PaymentBot) send(chatID int64, text string, markup interface{}) {
	if err := b.client.sendText(chatID, text, markup); err != nil {
		b.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *PaymentBot) reply(chatID int64, text string) {
	if err := b.client.sendPlain(chatID, text); err != nil {
		b.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *PaymentBot) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if err := b.client.editOrSend(chatID, messageID, text, markup); err != nil {
		b.logger.Errorw("Failed to update message", "chat_id", chatID, "error", err)
	}
}
