package services

import (
	"errors"
	"fmt"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/models"
)

// ErrNotConfigured means the selected provider is missing credentials and a
// run must not start.
var ErrNotConfigured = errors.New("provider not configured")

// DeliveryBackend transmits one templated message to one recipient.
// Implementations fail soft: SendOne logs the cause and returns false
// instead of propagating transport or recipient errors.
type DeliveryBackend interface {
	Name() string

	// TestConnection establishes and immediately tears down an
	// authenticated channel. It never panics; any failure is logged and
	// reported as false.
	TestConnection() bool

	// SendOne renders the template for the contact and hands the message to
	// the transport. The recipient address is re-validated first; an
	// invalid address short-circuits to false without any network traffic.
	SendOne(contact models.ContactRecord, tpl models.Template, isHTML bool, attachments []models.Attachment) bool
}

// NewBackend selects a delivery backend by provider name using the current
// configuration. An unconfigured provider is a hard error so the caller can
// refuse to start a run instead of failing every single send.
func NewBackend(provider string) (DeliveryBackend, error) {
	cfg := config.Snapshot()
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case "", "smtp":
		if cfg.SMTPServer == "" || cfg.Email == "" || cfg.Password == "" {
			return nil, fmt.Errorf("%w: smtp", ErrNotConfigured)
		}
		return NewSMTPBackend(cfg), nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, fmt.Errorf("%w: mailgun", ErrNotConfigured)
		}
		return NewMailgunBackend(cfg), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("%w: resend", ErrNotConfigured)
		}
		return NewResendBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// replyTo resolves the Reply-To header: the configured address, else the
// sender itself.
func replyTo(cfg models.EmailConfig, sender string) string {
	if cfg.ReplyTo != "" {
		return cfg.ReplyTo
	}
	return sender
}
