package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig carries the delivery target settings.
type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	UseTLS   bool     `mapstructure:"use_tls"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Mailer delivers composed messages over SMTP.
type Mailer struct {
	cfg SMTPConfig
}

// NewMailer validates the target settings.
func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("at least one smtp recipient is required")
	}
	return &Mailer{cfg: cfg}, nil
}

// Send delivers one message with plain-text and HTML alternatives.
func (m *Mailer) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}

	mm := gomail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := mm.To(m.cfg.To...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
	mm.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLBody)

	opts := []gomail.Option{gomail.WithPort(m.cfg.Port)}

	// Port 465 speaks implicit TLS, not STARTTLS.
	switch {
	case m.cfg.Port == 465:
		opts = append(opts, gomail.WithSSL())
	case m.cfg.UseTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	if m.cfg.User != "" && m.cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.User),
			gomail.WithPassword(m.cfg.Password),
		)
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
