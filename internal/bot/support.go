package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"paybot/internal/command"
	"paybot/internal/models"
	"paybot/internal/workflow"
	"paybot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SupportBot relays buyer issues to the reviewer and runs the price negotiation
// sub-protocol.
type SupportBot struct {
	client *Client
	engine *workflow.Engine
	logger *logger.Logger

	mu     sync.Mutex
	topics map[models.BuyerID]command.Topic
}

func NewSupportBot(client *Client, engine *workflow.Engine, log *logger.Logger) *SupportBot {
	if log == nil {
		log = logger.NewNop()
	}
	return &SupportBot{
		client: client,
		engine: engine,
		logger: log.Named("support"),
		topics: make(map[models.BuyerID]command.Topic),
	}
}

func (b *SupportBot) Start(ctx context.Context, pollTimeout int) error {
	return b.client.Start(ctx, pollTimeout, b)
}

func (b *SupportBot) Stop(ctx context.Context) error {
	return b.client.Stop(ctx)
}

func (b *SupportBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *SupportBot) topic(buyer models.BuyerID) (command.Topic, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[buyer]
	return t, ok
}

func (b *SupportBot) setTopic(buyer models.BuyerID, t command.Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t == "" {
		delete(b.topics, buyer)
		return
	}
	b.topics[buyer] = t
}

func (b *SupportBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return
	}
	buyer := buyerFrom(message.From)
	chatID := message.Chat.ID

	switch {
	case message.IsCommand():
		if message.Command() == "start" {
			b.setTopic(buyer.ID, "")
			b.send(chatID, supportStartText, supportKeyboard())
			return
		}
		b.reply(chatID, "Type /start to see the support options.")
	case hasAttachment(message):
		b.forwardToReviewer(buyer, message)
	case message.Text != "":
		if _, handled, err := b.engine.CaptureNegotiationAmount(ctx, buyer, message.Text); handled {
			if err != nil {
				b.logger.Debugw("Negotiation amount rejected", "buyer_id", buyer.ID, "error", err)
			}
			return
		}
		if t, ok := b.topic(buyer.ID); ok && t != command.TopicNegotiate {
			b.forwardToReviewer(buyer, message)
			return
		}
		b.reply(chatID, "Type /start to see the support options.")
	}
}

// forwardToReviewer sends a header naming the buyer, then forwards the message itself.
func (b *SupportBot) forwardToReviewer(buyer models.Buyer, message *tgbotapi.Message) {
	reviewer := int64(b.engine.ReviewerID())
	chatID := message.Chat.ID

	err := b.client.sendPlain(reviewer, "📨 Support message from "+buyer.Handle())
	if err == nil {
		err = b.client.forward(reviewer, chatID, message.MessageID)
	}
	if err != nil {
		b.logger.Errorw("Failed forward to admin", "buyer_id", buyer.ID, "error", err)
		b.reply(chatID, forwardFailed)
		return
	}
	b.logger.Infow("Support message forwarded", "buyer_id", buyer.ID, "message_id", message.MessageID)
	b.reply(chatID, forwardedText)
}

func (b *SupportBot) handleCallbackQuery(ctx context.Context, q *tgbotapi.CallbackQuery) {
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
	case command.SupportTopic:
		b.setTopic(buyer.ID, c.Topic)
		if c.Topic == command.TopicNegotiate {
			b.engine.BeginNegotiation(ctx, buyer)
			b.send(chatID, negPlanPrompt, negotiationPlanKeyboard())
			break
		}
		b.reply(chatID, topicReplies[c.Topic])
	case command.NegotiationPlan:
		if err := b.engine.ChooseNegotiationPlan(buyer.ID, c.Plan); err != nil {
			b.logger.Warnw("Failed to choose negotiation plan", "buyer_id", buyer.ID, "error", err)
			break
		}
		b.setTopic(buyer.ID, command.TopicNegotiate)
		b.send(chatID, fmt.Sprintf("You picked *%s*. Now choose preferred payment method:", c.Plan.Label()),
			negotiationMethodKeyboard())
	case command.NegotiationMethod:
		err := b.engine.ChooseNegotiationMethod(ctx, buyer.ID, c.Method)
		if errors.Is(err, workflow.ErrNoPlan) {
			b.send(chatID, negPlanFirstText, negotiationPlanKeyboard())
		} else if err != nil {
			b.logger.Warnw("Failed to choose negotiation method", "buyer_id", buyer.ID, "error", err)
		}
	case command.AdjudicateNegotiation:
		res, err := b.engine.AdjudicateNegotiation(ctx, buyer.ID, c.NegotiationID, c.Decision)
		switch {
		case errors.Is(err, workflow.ErrUnauthorized):
			b.client.alertCallback(q.ID, adminOnlyText)
			return
		case errors.Is(err, workflow.ErrNotFound):
			b.client.clearKeyboard(chatID, messageID)
			b.reply(chatID, negNotFoundText)
		case err != nil:
			b.logger.Errorw("Negotiation decision failed", "negotiation_id", c.NegotiationID, "error", err)
			b.reply(chatID, "❌ "+err.Error())
		default:
			b.client.clearKeyboard(chatID, messageID)
			b.reply(chatID, negotiationReply(res))
		}
	default:
		b.logger.Debugw("Callback not handled on the support surface", "data", q.Data)
	}
	b.client.answerCallback(q.ID, "")
}

func (b *SupportBot) send(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if err := b.client.sendText(chatID, text, markup); err != nil {
		b.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *SupportBot) reply(chatID int64, text string) {
	if err := b.client.sendPlain(chatID, text); err != nil {
		b.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
	}
}
