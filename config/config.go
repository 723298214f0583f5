package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"

	"github.com/barbaritakodi-cell/sender/models"
)

var (
	AppConfig models.EmailConfig
	mu        sync.RWMutex
)

func Init() {
	godotenv.Load()

	AppConfig.SMTPServer = getEnv("SMTP_SERVER", "smtp.gmail.com")
	AppConfig.SMTPPort = getEnvInt("SMTP_PORT", 465)
	AppConfig.SMTPSecurity = getEnv("SMTP_SECURITY", defaultSecurity(AppConfig.SMTPPort))
	AppConfig.Email = getEnv("SENDER_EMAIL", "")
	AppConfig.Password = getEnv("SENDER_PASSWORD", "")
	AppConfig.SenderName = getEnv("SENDER_NAME", "")
	AppConfig.ReplyTo = getEnv("REPLY_TO_EMAIL", "")
	AppConfig.Provider = getEnv("EMAIL_PROVIDER", "smtp")
	AppConfig.MailgunDomain = getEnv("MAILGUN_DOMAIN", "")
	AppConfig.MailgunAPIKey = getEnv("MAILGUN_API_KEY", "")
	AppConfig.ResendAPIKey = getEnv("RESEND_API_KEY", "")
	AppConfig.ResendFromEmail = getEnv("RESEND_FROM_EMAIL", "")
	AppConfig.DefaultDelay = getEnvFloat("SEND_DELAY_SECONDS", 1.0)
}

// Snapshot returns a copy of the current configuration.
func Snapshot() models.EmailConfig {
	mu.RLock()
	defer mu.RUnlock()
	return AppConfig
}

// Update applies non-zero fields from the given config. The UI posts partial
// updates, so empty means "keep the current value".
func Update(c models.EmailConfig) {
	mu.Lock()
	defer mu.Unlock()

	if c.SMTPServer != "" {
		AppConfig.SMTPServer = c.SMTPServer
	}
	if c.SMTPPort != 0 {
		AppConfig.SMTPPort = c.SMTPPort
	}
	if c.SMTPSecurity != "" {
		AppConfig.SMTPSecurity = c.SMTPSecurity
	}
	if c.Email != "" {
		AppConfig.Email = c.Email
	}
	if c.Password != "" {
		AppConfig.Password = c.Password
	}
	if c.SenderName != "" {
		AppConfig.SenderName = c.SenderName
	}
	if c.ReplyTo != "" {
		AppConfig.ReplyTo = c.ReplyTo
	}
	if c.Provider != "" {
		AppConfig.Provider = c.Provider
	}
	if c.MailgunDomain != "" {
		AppConfig.MailgunDomain = c.MailgunDomain
	}
	if c.MailgunAPIKey != "" {
		AppConfig.MailgunAPIKey = c.MailgunAPIKey
	}
	if c.ResendAPIKey != "" {
		AppConfig.ResendAPIKey = c.ResendAPIKey
	}
	if c.ResendFromEmail != "" {
		AppConfig.ResendFromEmail = c.ResendFromEmail
	}
	if c.DefaultDelay != 0 {
		AppConfig.DefaultDelay = c.DefaultDelay
	}
}

// SenderName is re-read before every send so a mid-run change from the UI
// takes effect on the next message.
func SenderName() string {
	mu.RLock()
	defer mu.RUnlock()
	return AppConfig.SenderName
}

func defaultSecurity(port int) string {
	if port == 465 {
		return "ssl"
	}
	return "starttls"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
