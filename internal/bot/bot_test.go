package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"paybot/internal/catalog"
	"paybot/internal/ledger"
	"paybot/internal/models"
	"paybot/internal/workflow"
	"paybot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	reviewerID  = 900
	vipChannel  = -1001
	darkChannel = -1002
)

var errBadMarkdown = errors.New("Bad Request: can't parse entities")

// fakeSender records every call and hands out numbered invite links.
type fakeSender struct {
	mu           sync.Mutex
	sent         []tgbotapi.Chattable
	requests     []tgbotapi.Chattable
	invites      int
	failMarkdown bool
	failForward  bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if msg, ok := c.(tgbotapi.MessageConfig); ok && f.failMarkdown && msg.ParseMode != "" {
		return tgbotapi.Message{}, errBadMarkdown
	}
	if _, ok := c.(tgbotapi.ForwardConfig); ok && f.failForward {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if cfg, ok := c.(tgbotapi.CreateChatInviteLinkConfig); ok {
		f.invites++
		body := fmt.Sprintf(`{"invite_link":"https://t.me/+inv%d","name":%q,"member_limit":%d}`,
			f.invites, cfg.Name, cfg.MemberLimit)
		return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage(body)}, nil
	}
	return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage("true")}, nil
}

// texts returns the text of every message sent to chatID, in order.
func (f *fakeSender) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok && msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeSender) last(chatID int64) string {
	texts := f.texts(chatID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeSender) forwards(toChatID int64) []tgbotapi.ForwardConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.ForwardConfig
	for _, c := range f.sent {
		if fw, ok := c.(tgbotapi.ForwardConfig); ok && fw.ChatID == toChatID {
			out = append(out, fw)
		}
	}
	return out
}

func (f *fakeSender) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeSender) edits(chatID int64) []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok && e.ChatID == chatID {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	ctx        context.Context
	paymentAPI *fakeSender
	supportAPI *fakeSender
	engine     *workflow.Engine
	payment    *PaymentBot
	support    *SupportBot
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:        context.Background(),
		paymentAPI: &fakeSender{},
		supportAPI: &fakeSender{},
		now:        time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	log := logger.NewNop()
	paymentClient := newClient(h.paymentAPI, "paybot", log)
	supportClient := newClient(h.supportAPI, "paybot_help", log)
	ist := time.FixedZone("IST", 5*3600+1800)

	gw := NewGateway(paymentClient, supportClient, reviewerID, ist, "", log)
	cat := catalog.New(nil, map[models.Resource]int64{
		models.ResourceVIP:  vipChannel,
		models.ResourceDark: darkChannel,
	}, models.PaymentDetails{UPIID: "shop@upi", CryptoAddress: "TXyz", CryptoNetwork: "TRC20", RemitlyInfo: "Send to Jane"})

	h.engine = workflow.New(cat, ledger.New(), gw, gw, nil, log, workflow.Options{
		ReviewerID:     reviewerID,
		SupportContact: "@support",
		HandoffSecret:  []byte("0123456789abcdef0123"),
		Location:       ist,
		Now:            func() time.Time { return h.now },
	})
	h.payment = NewPaymentBot(paymentClient, h.engine, ist, log)
	h.support = NewSupportBot(supportClient, h.engine, log)
	return h
}

func privateChat(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private"}
}

func user(id int64, username string) *tgbotapi.User {
	return &tgbotapi.User{ID: id, UserName: username}
}

func commandUpdate(from *tgbotapi.User, text string) tgbotapi.Update {
	name, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      from,
		Chat:      privateChat(from.ID),
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func textUpdate(from *tgbotapi.User, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 2, From: from, Chat: privateChat(from.ID), Text: text}}
}

func photoUpdate(from *tgbotapi.User, messageID int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		From:      from,
		Chat:      privateChat(from.ID),
		Photo:     []tgbotapi.PhotoSize{{FileID: "proof", Width: 800, Height: 600}},
	}}
}

func callbackUpdate(from *tgbotapi.User, id, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      id,
		From:    from,
		Message: &tgbotapi.Message{MessageID: 10, Chat: privateChat(from.ID)},
		Data:    data,
	}}
}
