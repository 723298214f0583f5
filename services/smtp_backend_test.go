package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barbaritakodi-cell/sender/models"
)

func TestSMTPDialerSecurityModes(t *testing.T) {
	cases := []struct {
		mode string
		ssl  bool
	}{
		{"ssl", true},
		{"starttls", false},
		{"none", false},
	}
	for _, tc := range cases {
		b := NewSMTPBackend(models.EmailConfig{
			SMTPServer:   "smtp.example.com",
			SMTPPort:     587,
			Email:        "op@example.com",
			Password:     "secret",
			SMTPSecurity: tc.mode,
		})
		d := b.dialer()
		assert.Equal(t, tc.ssl, d.SSL, tc.mode)
		// Every mode keeps the permissive TLS config so self-signed
		// servers work, "none" included.
		require.NotNil(t, d.TLSConfig, tc.mode)
		assert.True(t, d.TLSConfig.InsecureSkipVerify, tc.mode)
	}
}

func TestSMTPSendOneRejectsInvalidRecipient(t *testing.T) {
	b := NewSMTPBackend(models.EmailConfig{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		Email:      "op@example.com",
		Password:   "secret",
	})

	// Fails the address check before touching the network.
	ok := b.SendOne(models.ContactRecord{"email": "not-an-address"}, models.Template{Subject: "s", Body: "b"}, false, nil)
	assert.False(t, ok)
}
