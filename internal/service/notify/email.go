// Package notify delivers operator notices (archive digests) by email.
package notify

import (
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"
)

type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
	Enabled    bool
}

// Message is a rendered notice; HTML is optional.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Dialer is the part of gomail.Dialer the sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	cfg    EmailConfig
	dialer Dialer
	logger *zap.Logger
}

func NewEmailSender(cfg EmailConfig, logger *zap.Logger) *EmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second
	return &EmailSender{cfg: cfg, dialer: dialer, logger: logger}
}

// WithDialer replaces the SMTP dialer.
func (s *EmailSender) WithDialer(d Dialer) *EmailSender {
	s.dialer = d
	return s
}

func (s *EmailSender) Build(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.SMTPUser
	}
	m.SetHeader("From", from)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTML != "" && msg.Text != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}

// Send delivers msg; a disabled sender drops it silently.
func (s *EmailSender) Send(msg *Message) error {
	if !s.cfg.Enabled {
		return nil
	}

	if err := s.dialer.DialAndSend(s.Build(msg)); err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", s.cfg.ToEmail),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Email sent", zap.String("subject", msg.Subject))
	return nil
}
