package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// Config holds SMTP settings. Sender doubles as the login name.
type Config struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

// Sender delivers reports as plain-text email over SMTP with STARTTLS.
type Sender struct {
	cfg     Config
	logger  *slog.Logger
	deliver func(ctx context.Context, msg *gomail.Msg) error
}

var _ ports.Reporter = (*Sender)(nil)

// NewSender builds an SMTP reporter; host and port default to Gmail submission.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Sender{cfg: cfg, logger: logger.With("component", "mail")}
	s.deliver = s.dialAndSend
	return s
}

// Send builds and delivers one message; a failure is returned, never retried.
func (s *Sender) Send(ctx context.Context, report domain.Report) error {
	if s.cfg.Sender == "" || s.cfg.Password == "" {
		return fmt.Errorf("smtp sender credentials are not configured")
	}
	msg, err := s.buildMessage(report)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("send report to %s: %w", report.Recipient, err)
	}
	s.logger.Info("report sent", "to", report.Recipient, "client", report.ClientName)
	return nil
}

func (s *Sender) buildMessage(report domain.Report) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.Sender); err != nil {
		return nil, fmt.Errorf("from address %q: %w", s.cfg.Sender, err)
	}
	if err := msg.To(report.Recipient); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", report.Recipient, err)
	}
	msg.Subject(report.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, report.Body)
	return msg, nil
}

func (s *Sender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithUsername(s.cfg.Sender),
		gomail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
