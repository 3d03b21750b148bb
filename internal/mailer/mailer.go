package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iwanyu/marketplace/internal/config"
	"gopkg.in/gomail.v2"
)

const resetSubject = "Iwanyu: password reset"

// Dialer общий интерфейс gomail.Dialer, подменяется в тестах
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Sender interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// SMTPMailer отправляет письма через SMTP
type SMTPMailer struct {
	log       *slog.Logger
	dialer    Dialer
	from      string
	resetLink string
}

// New возвращает SMTP-отправитель, а при пустом host - LogMailer,
// который только пишет токен в лог (локальная разработка)
func New(log *slog.Logger, cfg config.MailConfig) Sender {
	if cfg.Host == "" {
		return &LogMailer{log: log}
	}
	return NewSMTPMailer(log, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, cfg.ResetLink)
}

func NewSMTPMailer(log *slog.Logger, dialer Dialer, from, resetLink string) *SMTPMailer {
	return &SMTPMailer{log: log, dialer: dialer, from: from, resetLink: resetLink}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	const op = "mailer.SMTPMailer.SendPasswordReset"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/plain", fmt.Sprintf(
		"Use the link below to choose a new password. It expires in one hour.\n\n%s?token=%s\n",
		m.resetLink, token,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("password reset email sent", slog.String("op", op), slog.String("to", to))
	return nil
}

// LogMailer пишет письмо в лог вместо отправки
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.log.Debug("password reset token issued",
		slog.String("op", "mailer.LogMailer.SendPasswordReset"),
		slog.String("to", to),
		slog.String("token", token),
	)
	return nil
}
