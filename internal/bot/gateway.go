package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paybot/internal/models"
	"paybot/internal/workflow"
	"paybot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrNoSurface = errors.New("no client for surface")

// Gateway implements workflow.Notifier and workflow.Provisioner on top of the two bot
// clients. Payment evidence goes to the reviewer through the payment bot; negotiations
// through the support bot.
type Gateway struct {
	payment  *Client
	support  *Client
	reviewer int64
	location *time.Location
	logger   *logger.Logger

	// paymentBotUsername overrides the payment client's own handle in deep links.
	paymentBotUsername string
}

var (
	_ workflow.Notifier    = (*Gateway)(nil)
	_ workflow.Provisioner = (*Gateway)(nil)
)

func NewGateway(payment, support *Client, reviewer int64, loc *time.Location, paymentBotUsername string, log *logger.Logger) *Gateway {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{
		payment:            payment,
		support:            support,
		reviewer:           reviewer,
		location:           loc,
		logger:             log.Named("gateway"),
		paymentBotUsername: paymentBotUsername,
	}
}

func (g *Gateway) client(surface models.Surface) (*Client, error) {
	c := g.payment
	if surface == models.SurfaceSupport {
		c = g.support
	}
	if c == nil {
		return nil, fmt.Errorf("%w %q", ErrNoSurface, surface)
	}
	return c, nil
}

func (g *Gateway) ShowPaymentInstructions(_ context.Context, buyer models.BuyerID, ins models.Instructions) error {
	c, err := g.client(models.SurfacePayment)
	if err != nil {
		return err
	}
	chatID := int64(buyer)
	if err := c.sendText(chatID, instructionsText(ins, g.location), instructionsKeyboard(guideURL(ins))); err != nil {
		return fmt.Errorf("failed to send instructions: %w", err)
	}
	if ins.Method == models.MethodUPI && ins.Details.UPIQRURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(ins.Details.UPIQRURL))
		photo.Caption = fmt.Sprintf("📷 Scan this QR to pay.\nUPI ID: `%s`", ins.Details.UPIID)
		photo.ParseMode = tgbotapi.ModeMarkdown
		if _, err := c.api.Send(photo); err != nil {
			g.logger.Warnw("Failed to send UPI QR", "buyer_id", buyer, "error", err)
		}
	}
	return nil
}

// ForwardEvidenceToReviewer forwards the buyer's proof message, then posts the summary
// with approve and decline buttons.
func (g *Gateway) ForwardEvidenceToReviewer(_ context.Context, req models.PaymentRequest, summary string) error {
	c, err := g.client(models.SurfacePayment)
	if err != nil {
		return err
	}
	ref := req.AttachmentRef
	if err := c.forward(g.reviewer, ref.ChatID, ref.MessageID); err != nil {
		g.logger.Warnw("Failed to forward proof", "request_id", req.ID, "error", err)
	}
	msg := tgbotapi.NewMessage(g.reviewer, summary)
	msg.ReplyMarkup = reviewKeyboard(req.ID)
	if _, err := c.sendMessage(msg); err != nil {
		return fmt.Errorf("failed to send review summary: %w", err)
	}
	return nil
}

func (g *Gateway) ForwardNegotiationToReviewer(_ context.Context, n models.NegotiationRequest, summary string) error {
	c, err := g.client(models.SurfaceSupport)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(g.reviewer, summary)
	msg.ReplyMarkup = negotiationReviewKeyboard(n.ID)
	if _, err := c.sendMessage(msg); err != nil {
		return fmt.Errorf("failed to send negotiation summary: %w", err)
	}
	return nil
}

func (g *Gateway) NotifyBuyer(_ context.Context, surface models.Surface, buyer models.BuyerID, text string) error {
	c, err := g.client(surface)
	if err != nil {
		return err
	}
	return c.sendPlain(int64(buyer), text)
}

// DeliverHandoffLink sends the buyer a deep link into the payment bot on the support
// surface, where the negotiation took place.
func (g *Gateway) DeliverHandoffLink(_ context.Context, buyer models.BuyerID, token string, offer models.Offer) error {
	c, err := g.client(models.SurfaceSupport)
	if err != nil {
		return err
	}
	username := g.paymentBotUsername
	if username == "" && g.payment != nil {
		username = g.payment.Username()
	}
	if username == "" {
		return errors.New("payment bot username is not configured")
	}
	link := deepLink(username, token)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("💳 Continue to payment", link)),
	)
	msg := tgbotapi.NewMessage(int64(buyer), handoffText(offer, link))
	msg.ReplyMarkup = markup
	_, err = c.sendMessage(msg)
	return err
}

// IssueCredential creates a single-member invite link for the channel through the
// payment bot, which must be an admin there.
func (g *Gateway) IssueCredential(_ context.Context, resource models.Resource, channelID int64, buyer models.BuyerID) (string, error) {
	c, err := g.client(models.SurfacePayment)
	if err != nil {
		return "", err
	}
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: channelID},
		Name:        fmt.Sprintf("user_%d_%s", buyer, resource),
		MemberLimit: 1,
	}
	resp, err := c.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink: %w", err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", errors.New("createChatInviteLink returned an empty link")
	}
	g.logger.Infow("Invite link created", "buyer_id", buyer, "resource", resource, "channel_id", channelID)
	return link.InviteLink, nil
}
