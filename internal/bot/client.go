// Package bot is the Telegram transport. Each surface (payment and support) owns a
// Client that polls its own update stream; the Gateway turns workflow notifications into
// Telegram calls on the right surface.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paybot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI the transport calls directly.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UpdateHandler processes one update. Updates from a single Client are handled one at a
// time, in arrival order.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type Client struct {
	bot      *tgbotapi.BotAPI
	api      sender
	username string
	logger   *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
}

func NewClient(token string, debug bool, log *logger.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.Debug = debug

	log = log.Named(bot.Self.UserName)
	log.Infow("Authorized on Telegram", "username", bot.Self.UserName)

	c := newClient(bot, bot.Self.UserName, log)
	c.bot = bot
	return c, nil
}

func newClient(api sender, username string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		api:      api,
		username: username,
		logger:   log,
		done:     make(chan struct{}),
	}
}

// Username is the bot's @handle without the leading @.
func (c *Client) Username() string {
	return c.username
}

// Start removes any webhook and begins long polling. Updates are handed to h
// sequentially until ctx is done or Stop is called.
func (c *Client) Start(ctx context.Context, timeout int, h UpdateHandler) error {
	if c.bot == nil {
		return fmt.Errorf("client %q has no bot API", c.username)
	}

	c.logger.Info("Removing any existing webhook")
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = timeout
	updates := c.bot.GetUpdatesChan(updateConfig)

	c.logger.Info("Started receiving Telegram updates")
	go c.handleUpdates(ctx, updates, h)
	return nil
}

func (c *Client) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, h UpdateHandler) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.dispatch(ctx, h, update)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, h UpdateHandler, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("Recovered from panic while processing update",
				"update_id", update.UpdateID, "error", r)
		}
	}()
	h.HandleUpdate(ctx, update)
}

// Stop ends polling and waits for the in-flight update to finish.
func (c *Client) Stop(ctx context.Context) error {
	if c.bot == nil {
		return nil
	}
	c.stopOnce.Do(c.bot.StopReceivingUpdates)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return nil
	}
}

// sendMessage sends msg, retrying once as plain text when Telegram rejects the Markdown.
func (c *Client) sendMessage(msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	sent, err := c.api.Send(msg)
	if err == nil || msg.ParseMode == "" {
		return sent, err
	}
	c.logger.Warnw("Markdown send failed, retrying as plain text", "chat_id", msg.ChatID, "error", err)
	msg.ParseMode = ""
	return c.api.Send(msg)
}

func (c *Client) sendText(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := c.sendMessage(msg)
	return err
}

func (c *Client) sendPlain(chatID int64, text string) error {
	_, err := c.sendMessage(tgbotapi.NewMessage(chatID, text))
	return err
}

// editOrSend replaces the text of an inline-keyboard message, sending a fresh message
// when the edit is rejected (for example when the original is too old).
func (c *Client) editOrSend(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.ReplyMarkup = markup
		if _, err := c.api.Request(edit); err == nil {
			return nil
		}
	}
	var m interface{}
	if markup != nil {
		m = *markup
	}
	return c.sendText(chatID, text, m)
}

func (c *Client) answerCallback(id, text string) {
	if _, err := c.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		c.logger.Debugw("Failed to answer callback", "callback_id", id, "error", err)
	}
}

func (c *Client) alertCallback(id, text string) {
	if _, err := c.api.Request(tgbotapi.NewCallbackWithAlert(id, text)); err != nil {
		c.logger.Debugw("Failed to answer callback", "callback_id", id, "error", err)
	}
}

// clearKeyboard removes the inline buttons from a reviewer message once it is decided.
func (c *Client) clearKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := c.api.Request(edit); err != nil {
		c.logger.Debugw("Failed to clear keyboard", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (c *Client) forward(toChatID, fromChatID int64, messageID int) error {
	_, err := c.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	return err
}
