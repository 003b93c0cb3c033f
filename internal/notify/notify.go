// Package notify delivers operator alerts and client messages. Every send
// is fire-and-forget: failures are logged and never propagate into the
// operation that asked for the notification.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"velora/internal/models"
)

// telegramSender is the slice of the bot API we use, extracted for tests.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// SMTPConfig configures the outbound mail account.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	From     string `yaml:"from"`
	Password string `yaml:"password"`
}

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

// Notifier sends telegram alerts to the operator channel and emails to
// clients, throttled by a shared token bucket.
type Notifier struct {
	bot            telegramSender
	operatorChatID int64
	smtp           SMTPConfig
	limiter        *rate.Limiter
	logger         *zerolog.Logger
}

// New creates a notifier. bot may be nil when telegram is not configured;
// an empty SMTP host disables email.
func New(bot telegramSender, operatorChatID int64, smtpCfg SMTPConfig, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		bot:            bot,
		operatorChatID: operatorChatID,
		smtp:           smtpCfg,
		limiter:        rate.NewLimiter(20, 30),
		logger:         logger,
	}
}

// OperatorAlert posts a message to the operator channel.
func (n *Notifier) OperatorAlert(ctx context.Context, text string) {
	if n.bot == nil || n.operatorChatID == 0 {
		return
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}
	msg := tgbotapi.NewMessage(n.operatorChatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn().Err(err).Msg("operator alert failed")
	}
}

// BookingReminder alerts the operator channel about an upcoming booking so
// the desk can confirm attendance.
func (n *Notifier) BookingReminder(ctx context.Context, b *models.Booking, clientName string) {
	who := clientName
	if who == "" {
		who = "walk-in"
	}
	n.OperatorAlert(ctx, fmt.Sprintf("Upcoming: booking #%d (%s) at %s",
		b.ID, who, b.StartTime.Format("2006-01-02 15:04")))
}

// SendPaymentLink emails a hosted payment page to the client.
func (n *Notifier) SendPaymentLink(ctx context.Context, email, url string, amountCents int64) {
	if n.smtp.Host == "" || email == "" {
		return
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}

	body := fmt.Sprintf("Subject: Your payment link\r\n\r\n"+
		"Please settle %.2f EUR for your appointment:\r\n%s\r\n",
		float64(amountCents)/100, url)

	auth := smtp.PlainAuth("", n.smtp.From, n.smtp.Password, n.smtp.Host)
	addr := n.smtp.Host + ":" + n.smtp.Port
	if err := sendMail(addr, auth, n.smtp.From, []string{email}, []byte(body)); err != nil {
		n.logger.Warn().Err(err).Str("email", email).Msg("payment link email failed")
	}
}
