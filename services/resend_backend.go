package services

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

const resendTimeout = 30 * time.Second

// ResendBackend delivers through the Resend HTTP API.
type ResendBackend struct {
	cfg      models.EmailConfig
	client   *resend.Client
	identity string
}

func NewResendBackend(cfg models.EmailConfig) *ResendBackend {
	identity := cfg.ResendFromEmail
	if identity == "" {
		// Resend's sandbox sender, usable without a verified domain.
		identity = "onboarding@resend.dev"
	}
	return &ResendBackend{
		cfg:      cfg,
		client:   resend.NewClient(cfg.ResendAPIKey),
		identity: identity,
	}
}

func (b *ResendBackend) Name() string { return "resend" }

func (b *ResendBackend) TestConnection() bool {
	ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
	defer cancel()

	if _, err := b.client.Domains.ListWithContext(ctx); err != nil {
		logger.Errorf("resend connection test failed: %v", err)
		return false
	}
	logger.Info("resend connection test successful")
	return true
}

func (b *ResendBackend) SendOne(contact models.ContactRecord, tpl models.Template, isHTML bool, attachments []models.Attachment) bool {
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

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{recipient},
		Subject: subject,
		ReplyTo: replyTo(b.cfg, b.identity),
	}
	if isHTML {
		params.Html = SanitizeHTML(body)
	} else {
		params.Text = body
	}
	for _, att := range attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: att.Filename,
			Content:  att.Content,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
	defer cancel()

	sent, err := b.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		logger.WithField("recipient", recipient).Errorf("resend send failed: %v", err)
		return false
	}

	logger.WithFields(map[string]interface{}{
		"recipient": recipient,
		"id":        sent.Id,
	}).Debugf("email sent via resend")
	return true
}
