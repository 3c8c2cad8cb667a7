package workers

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/services/token"
)

// SendFunc delivers a raw mail message. It matches the shape of
// smtp.SendMail so tests can substitute an in-memory recorder.
type SendFunc func(addr string, from string, to []string, msg []byte) error

// Mailer builds and delivers account mails from queued jobs.
type Mailer struct {
	users    database.UserRepositoryInterface
	tokens   *token.Service
	baseURL  string
	smtpAddr string
	smtpFrom string
	send     SendFunc
	logger   *zap.Logger
}

// NewMailer creates a mailer. When smtpAddr is empty the mailer logs
// outgoing messages instead of delivering them, which keeps local
// development working without an SMTP server.
func NewMailer(
	users database.UserRepositoryInterface,
	tokens *token.Service,
	baseURL string,
	smtpAddr string,
	smtpFrom string,
	logger *zap.Logger,
) *Mailer {
	return &Mailer{
		users:    users,
		tokens:   tokens,
		baseURL:  strings.TrimRight(baseURL, "/"),
		smtpAddr: smtpAddr,
		smtpFrom: smtpFrom,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
		logger: logger,
	}
}

// ProcessVerificationMailJob sends the email verification link for the
// job's user. The link carries a fresh single-purpose token.
func (m *Mailer) ProcessVerificationMailJob(ctx context.Context, job *queue.Job) error {
	user, err := m.users.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user for verification mail: %w", err)
	}
	if user.EmailVerified {
		m.logger.Info("verification_mail_skipped",
			zap.String("user_id", user.ID.String()),
			zap.String("reason", "already verified"),
		)
		return nil
	}

	raw, err := m.tokens.Issue(user, token.PurposeVerify)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	link := fmt.Sprintf("%s/api/v1/auth/verify?token=%s", m.baseURL, url.QueryEscape(raw))
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nPlease confirm your email address by opening the link below:\r\n\r\n%s\r\n\r\nThe link expires in 24 hours.\r\n",
		user.Name, link,
	)
	return m.deliver(user.Email, "Confirm your email address", body)
}

// ProcessWelcomeMailJob sends the post-verification welcome mail.
func (m *Mailer) ProcessWelcomeMailJob(ctx context.Context, job *queue.Job) error {
	user, err := m.users.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user for welcome mail: %w", err)
	}

	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nYour email address is confirmed. You can now record dividends and track your monthly income.\r\n",
		user.Name,
	)
	return m.deliver(user.Email, "Welcome aboard", body)
}

func (m *Mailer) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.smtpFrom, to, subject, body)

	if m.smtpAddr == "" {
		m.logger.Info("mail_not_delivered",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("reason", "no SMTP address configured"),
		)
		return nil
	}

	if err := m.send(m.smtpAddr, m.smtpFrom, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	m.logger.Info("mail_delivered",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
