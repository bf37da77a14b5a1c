// ABOUTME: Outbound mail delivery for passcodes over SMTPS via dajohi/goemail
// ABOUTME: Falls back to a log-only mailer when no SMTP credentials are configured

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"net/url"

	"github.com/dajohi/goemail"
)

// ErrDisabled is returned by NewSMTPMailer when the SMTP settings are incomplete.
var ErrDisabled = errors.New("mail delivery disabled")

// Mailer delivers a plain-text message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds SMTP settings.
type Config struct {
	Host        string
	User        string
	Password    string
	FromAddress string
	SkipVerify  bool
}

// Enabled reports whether enough is configured to deliver mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.User != "" && c.Password != "" && c.FromAddress != ""
}

// SMTPMailer sends mail through an SMTPS relay.
type SMTPMailer struct {
	smtp     *goemail.SMTP
	fromName string
	fromAddr string
	logger   *slog.Logger
}

// NewSMTPMailer connects goemail to the configured relay.
func NewSMTPMailer(cfg Config, logger *slog.Logger) (*SMTPMailer, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = slog.Default()
	}

	from, err := netmail.ParseAddress(cfg.FromAddress)
	if err != nil {
		return nil, fmt.Errorf("parsing from address: %w", err)
	}

	u := url.URL{
		Scheme: "smtps",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host,
	}
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.SkipVerify,
	}
	client, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	logger.Info("mail enabled", "host", cfg.Host, "from", from.Address)
	return &SMTPMailer{
		smtp:     client,
		fromName: from.Name,
		fromAddr: from.Address,
		logger:   logger,
	}, nil
}

// Send delivers body to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := goemail.NewMessage(m.fromAddr, subject, body)
	if m.fromName != "" {
		msg.SetName(m.fromName)
	}
	msg.AddBCC(to)

	if err := m.smtp.Send(msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	m.logger.Debug("mail sent", "subject", subject)
	return nil
}

// LogMailer records that a message would have been sent, without its body.
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) Send(_ context.Context, to, subject, _ string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("mail delivery disabled, message dropped", "to", to, "subject", subject)
	return nil
}

// New returns an SMTPMailer when cfg is complete and a LogMailer otherwise.
func New(cfg Config, logger *slog.Logger) (Mailer, error) {
	if !cfg.Enabled() {
		return LogMailer{Logger: logger}, nil
	}
	return NewSMTPMailer(cfg, logger)
}
