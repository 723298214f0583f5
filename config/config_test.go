package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barbaritakodi-cell/sender/models"
)

func TestInitDefaults(t *testing.T) {
	t.Setenv("SMTP_SERVER", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("EMAIL_PROVIDER", "")
	t.Setenv("SEND_DELAY_SECONDS", "")

	Init()

	cfg := Snapshot()
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPServer)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, "ssl", cfg.SMTPSecurity)
	assert.Equal(t, "smtp", cfg.Provider)
	assert.Equal(t, 1.0, cfg.DefaultDelay)
}

func TestInitFromEnv(t *testing.T) {
	t.Setenv("SMTP_SERVER", "mail.example.net")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_SECURITY", "")
	t.Setenv("SENDER_NAME", "Alice")
	t.Setenv("SEND_DELAY_SECONDS", "2.5")

	Init()

	cfg := Snapshot()
	assert.Equal(t, "mail.example.net", cfg.SMTPServer)
	assert.Equal(t, 587, cfg.SMTPPort)
	// Non-465 ports default to opportunistic upgrade.
	assert.Equal(t, "starttls", cfg.SMTPSecurity)
	assert.Equal(t, "Alice", cfg.SenderName)
	assert.Equal(t, 2.5, cfg.DefaultDelay)
}

func TestUpdateIsPartial(t *testing.T) {
	Init()
	Update(models.EmailConfig{Email: "op@example.com", Password: "secret"})
	Update(models.EmailConfig{SenderName: "Op"})

	cfg := Snapshot()
	// Earlier fields survive a later partial update.
	assert.Equal(t, "op@example.com", cfg.Email)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "Op", cfg.SenderName)
}

func TestSenderNameReflectsUpdates(t *testing.T) {
	Init()
	Update(models.EmailConfig{SenderName: "Avant"})
	assert.Equal(t, "Avant", SenderName())

	// A mid-run rename is visible on the next read.
	Update(models.EmailConfig{SenderName: "Après"})
	assert.Equal(t, "Après", SenderName())
}
