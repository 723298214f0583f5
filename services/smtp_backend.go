package services

import (
	"crypto/tls"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

// SMTPBackend delivers through a direct SMTP connection. Each send opens a
// fresh authenticated connection and closes it afterwards; there is no
// pooling.
type SMTPBackend struct {
	cfg models.EmailConfig
}

func NewSMTPBackend(cfg models.EmailConfig) *SMTPBackend {
	return &SMTPBackend{cfg: cfg}
}

func (b *SMTPBackend) Name() string { return "smtp" }

func (b *SMTPBackend) dialer() *gomail.Dialer {
	d := gomail.NewDialer(b.cfg.SMTPServer, b.cfg.SMTPPort, b.cfg.Email, b.cfg.Password)
	// gomail upgrades opportunistically whenever the server offers STARTTLS,
	// so "none" keeps the permissive TLS config too: plaintext against a
	// server with no STARTTLS, self-signed certificates accepted otherwise.
	d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	if b.cfg.SMTPSecurity == "ssl" {
		d.SSL = true
	}
	return d
}

func (b *SMTPBackend) TestConnection() bool {
	closer, err := b.dialer().Dial()
	if err != nil {
		logger.Errorf("SMTP connection test failed: %v", err)
		return false
	}
	closer.Close()
	logger.Info("SMTP connection test successful")
	return true
}

func (b *SMTPBackend) SendOne(contact models.ContactRecord, tpl models.Template, isHTML bool, attachments []models.Attachment) bool {
	recipient := contact.Email()
	if !IsValidEmail(recipient) {
		logger.Warnf("invalid recipient address: %q", recipient)
		return false
	}

	// Display name is re-read on every send so a mid-run change applies to
	// the next message.
	senderName := config.SenderName()

	repl := BuildReplacements(contact, senderName, b.cfg.Email, true)
	subject, body := RenderTemplate(tpl, repl)

	m := gomail.NewMessage()
	if senderName != "" {
		m.SetHeader("From", m.FormatAddress(b.cfg.Email, senderName))
	} else {
		m.SetHeader("From", b.cfg.Email)
	}
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetHeader("Reply-To", replyTo(b.cfg, b.cfg.Email))

	if isHTML {
		m.SetBody("text/html", SanitizeHTML(body))
	} else {
		m.SetBody("text/plain", body)
	}

	for _, att := range attachments {
		content := att.Content
		m.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := b.dialer().DialAndSend(m); err != nil {
		logger.WithField("recipient", recipient).Errorf("SMTP send failed: %v", err)
		return false
	}

	logger.WithField("recipient", recipient).Debugf("email sent via SMTP")
	return true
}
