package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/database"
	"github.com/barbaritakodi-cell/sender/models"
	"github.com/barbaritakodi-cell/sender/services"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	require.NoError(t, database.Init(":memory:"))
	t.Cleanup(database.Close)
	return NewHandler(services.NewSendService(nil), services.NewWebSocketService())
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	h := newTestHandler(t)

	body, contentType := multipartBody(t, "file", "contacts.csv",
		"Email,Nom\na@x.com,Dupont\na@x.com,Doublon\nbad,Invalide\n")

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.UploadHandler(rec, req)

	var resp models.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 1, resp.Invalid)
	assert.Equal(t, 1, resp.Duplicates)

	// Imported contacts are persisted.
	recipients, err := database.GetAllRecipients()
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "a@x.com", recipients[0].Email)
}

func TestUploadHandlerBadFormat(t *testing.T) {
	h := newTestHandler(t)

	body, contentType := multipartBody(t, "file", "contacts.pdf", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.UploadHandler(rec, req)

	var resp models.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Unsupported file format")
}

func TestTemplateCheckHandler(t *testing.T) {
	h := newTestHandler(t)

	payload := `{"subject":"Hi {{prenom}}","body":"{{nom}} {{poste}}","columns":["email","nom","prenom"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/template/check", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.TemplateCheckHandler(rec, req)

	var resp models.TemplateCheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"prenom", "nom", "poste"}, resp.Variables)
	assert.Equal(t, []string{"poste"}, resp.Missing)
}

func TestSendHandlerNoContacts(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader(`{"subject":"s","body":"b"}`))
	rec := httptest.NewRecorder()
	h.SendHandler(rec, req)

	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "No contacts to send to", resp.Error)
}

func TestSendHandlerUnknownProvider(t *testing.T) {
	h := newTestHandler(t)

	payload := `{"subject":"s","body":"b","provider":"pigeon","contacts":[{"email":"a@x.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.SendHandler(rec, req)

	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "pigeon")
}

func TestRunDelayExplicitZero(t *testing.T) {
	previous := config.Snapshot().DefaultDelay
	config.Update(models.EmailConfig{DefaultDelay: 2})
	t.Cleanup(func() { config.Update(models.EmailConfig{DefaultDelay: previous}) })

	// Absent means the configured default; an explicit zero disables the
	// delay instead of falling back to it.
	assert.Equal(t, 2*time.Second, runDelay(nil))
	zero := 0.0
	assert.Equal(t, time.Duration(0), runDelay(&zero))
	negative := -1.5
	assert.Equal(t, time.Duration(0), runDelay(&negative))
	half := 0.5
	assert.Equal(t, 500*time.Millisecond, runDelay(&half))
}

func TestStatusAndLogsHandlers(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/send/status", nil))

	var statusResp struct {
		Success bool              `json:"success"`
		Status  models.SendStatus `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&statusResp))
	assert.True(t, statusResp.Success)
	assert.False(t, statusResp.Status.Active)

	rec = httptest.NewRecorder()
	h.LogsHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/logs", nil))
	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestExportLogsHandlerHeaders(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ExportLogsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/logs/export", nil))

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "email,status,timestamp,error\n", rec.Body.String())
}

func TestAttachmentsHandler(t *testing.T) {
	h := newTestHandler(t)

	body, contentType := multipartBody(t, "files", "piece.pdf", "contenu")
	req := httptest.NewRequest(http.MethodPost, "/api/attachments", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.AttachmentsHandler(rec, req)

	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)

	atts := h.currentAttachments()
	require.Len(t, atts, 1)
	assert.Equal(t, "piece.pdf", atts[0].Filename)
	assert.Equal(t, []byte("contenu"), atts[0].Content)

	rec = httptest.NewRecorder()
	h.AttachmentsHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/attachments", nil))
	assert.Empty(t, h.currentAttachments())
}
