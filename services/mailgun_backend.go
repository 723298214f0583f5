package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

const mailgunTimeout = 30 * time.Second

// MailgunBackend delivers through the Mailgun HTTP API using an already
// authenticated client.
type MailgunBackend struct {
	cfg      models.EmailConfig
	mg       mailgun.Mailgun
	identity string
}

func NewMailgunBackend(cfg models.EmailConfig) *MailgunBackend {
	b := &MailgunBackend{
		cfg: cfg,
		mg:  mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
	}
	b.identity = b.lookupIdentity()
	return b
}

func (b *MailgunBackend) Name() string { return "mailgun" }

// lookupIdentity resolves the sending address for the configured domain. A
// failed lookup is not fatal: the backend falls back to a placeholder
// mailbox on the domain and keeps going.
func (b *MailgunBackend) lookupIdentity() string {
	if b.cfg.Email != "" {
		return b.cfg.Email
	}

	ctx, cancel := context.WithTimeout(context.Background(), mailgunTimeout)
	defer cancel()

	resp, err := b.mg.GetDomain(ctx, b.cfg.MailgunDomain)
	if err != nil {
		logger.Warnf("mailgun domain lookup failed, using placeholder sender: %v", err)
		return "mailer@" + b.cfg.MailgunDomain
	}
	if resp.Domain.SMTPLogin != "" {
		return resp.Domain.SMTPLogin
	}
	return "mailer@" + b.cfg.MailgunDomain
}

func (b *MailgunBackend) TestConnection() bool {
	ctx, cancel := context.WithTimeout(context.Background(), mailgunTimeout)
	defer cancel()

	if _, err := b.mg.GetDomain(ctx, b.cfg.MailgunDomain); err != nil {
		logger.Errorf("mailgun connection test failed: %v", err)
		return false
	}
	logger.Info("mailgun connection test successful")
	return true
}

func (b *MailgunBackend) SendOne(contact models.ContactRecord, tpl models.Template, isHTML bool, attachments []models.Attachment) bool {
	recipient := contact.Email()
	if !IsValidEmail(recipient) {
		logger.Warnf("invalid recipient address: %q", recipient)
		return false
	}

	repl := BuildReplacements(contact, "", b.identity, false)
	subject, body := RenderTemplate(tpl, repl)

	from := b.identity
	if name := config.SenderName(); name != "" {
		from = fmt.Sprintf("%s <%s>", name, b.identity)
	}

	text := body
	if isHTML {
		text = ""
	}
	message := b.mg.NewMessage(from, subject, text, recipient)
	if isHTML {
		message.SetHtml(SanitizeHTML(body))
	}
	message.SetReplyTo(replyTo(b.cfg, b.identity))
	for _, att := range attachments {
		message.AddBufferAttachment(att.Filename, att.Content)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mailgunTimeout)
	defer cancel()

	_, id, err := b.mg.Send(ctx, message)
	if err != nil {
		logger.WithField("recipient", recipient).Errorf("mailgun send failed: %v", err)
		return false
	}

	logger.WithFields(map[string]interface{}{
		"recipient": recipient,
		"id":        id,
	}).Debugf("email sent via mailgun")
	return true
}
