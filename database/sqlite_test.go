package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barbaritakodi-cell/sender/models"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Init(":memory:"))
	t.Cleanup(Close)
}

func TestInsertOrGetRecipient(t *testing.T) {
	setupDB(t)

	contact := models.ContactRecord{
		"email":      "jean@example.com",
		"nom":        "Dupont",
		"prenom":     "Jean",
		"entreprise": "TechCorp",
	}

	id, err := InsertOrGetRecipient(contact)
	require.NoError(t, err)

	// Same email comes back with the existing id.
	again, err := InsertOrGetRecipient(models.ContactRecord{"email": "jean@example.com", "nom": "Autre"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	recipients, err := GetAllRecipients()
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "Dupont", recipients[0].Nom)
	assert.Equal(t, "TechCorp", recipients[0].Entreprise)
}

func TestSendLogAndHistory(t *testing.T) {
	setupDB(t)

	campaignID, err := InsertCampaign("Sujet {{nom}}", "Corps", true, "smtp")
	require.NoError(t, err)

	require.NoError(t, InsertSendLog("run-1", campaignID, "a@x.com", models.StatusSuccess, ""))
	require.NoError(t, InsertSendLog("run-1", campaignID, "b@y.org", models.StatusFailed, "send failed"))

	history, err := GetHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Most recent first.
	assert.Equal(t, "b@y.org", history[0].Email)
	assert.Equal(t, "send failed", history[0].ErrorMessage)
	assert.Equal(t, campaignID, history[0].CampaignID)
	assert.Equal(t, "a@x.com", history[1].Email)
}

func TestStats(t *testing.T) {
	setupDB(t)

	_, err := InsertOrGetRecipient(models.ContactRecord{"email": "a@x.com"})
	require.NoError(t, err)
	campaignID, err := InsertCampaign("s", "b", false, "mailgun")
	require.NoError(t, err)
	require.NoError(t, InsertSendLog("run-1", campaignID, "a@x.com", models.StatusSuccess, ""))
	require.NoError(t, InsertSendLog("run-1", campaignID, "b@y.org", models.StatusError, "boom"))

	stats, err := GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats["total_sends"])
	assert.Equal(t, 1, stats["success"])
	assert.Equal(t, 1, stats["failed"])
	assert.Equal(t, 1, stats["total_recipients"])
	assert.Equal(t, 1, stats["total_campaigns"])
}

func TestReset(t *testing.T) {
	setupDB(t)

	_, err := InsertOrGetRecipient(models.ContactRecord{"email": "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, InsertSendLog("run-1", 0, "a@x.com", models.StatusSuccess, ""))

	require.NoError(t, Reset())

	recipients, err := GetAllRecipients()
	require.NoError(t, err)
	assert.Empty(t, recipients)

	history, err := GetHistory()
	require.NoError(t, err)
	assert.Empty(t, history)
}
