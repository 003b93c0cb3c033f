package notify

import (
	"context"
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"velora/internal/models"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func newTestNotifier(bot telegramSender, smtpCfg SMTPConfig) *Notifier {
	logger := zerolog.New(io.Discard)
	return New(bot, 42, smtpCfg, &logger)
}

func TestOperatorAlert(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(bot, SMTPConfig{})

	n.OperatorAlert(context.Background(), "lane closed")
	assert.Len(t, bot.sent, 1)

	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	assert.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "lane closed", msg.Text)
}

func TestOperatorAlertSendFailureIsSwallowed(t *testing.T) {
	bot := &fakeBot{err: errors.New("chat not found")}
	n := newTestNotifier(bot, SMTPConfig{})

	// Must not panic or propagate anything.
	n.OperatorAlert(context.Background(), "hello")
	assert.Len(t, bot.sent, 1)
}

func TestOperatorAlertWithoutBot(t *testing.T) {
	logger := zerolog.New(io.Discard)
	n := New(nil, 0, SMTPConfig{}, &logger)
	n.OperatorAlert(context.Background(), "nobody listens")
}

func TestBookingReminderNamesWalkIns(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(bot, SMTPConfig{})

	b := &models.Booking{ID: 5, StartTime: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
	n.BookingReminder(context.Background(), b, "")

	msg := bot.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "walk-in")
	assert.Contains(t, msg.Text, "#5")
}

func TestSendPaymentLink(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}
	defer func() { sendMail = orig }()

	n := newTestNotifier(nil, SMTPConfig{Host: "mail.example.com", Port: "587", From: "desk@example.com"})
	n.SendPaymentLink(context.Background(), "ana@example.com", "https://pay.example/abc", 8000)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "desk@example.com", gotFrom)
	assert.Equal(t, []string{"ana@example.com"}, gotTo)
	assert.Contains(t, string(gotBody), "80.00 EUR")
	assert.Contains(t, string(gotBody), "https://pay.example/abc")
}

func TestSendPaymentLinkDisabledWithoutHost(t *testing.T) {
	called := false
	orig := sendMail
	sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}
	defer func() { sendMail = orig }()

	n := newTestNotifier(nil, SMTPConfig{})
	n.SendPaymentLink(context.Background(), "ana@example.com", "https://pay.example/abc", 8000)
	assert.False(t, called)
}
