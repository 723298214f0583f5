package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/database"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
	"github.com/barbaritakodi-cell/sender/services"
)

// TestConnectionHandler builds the configured backend and reports whether an
// authenticated channel can be established, without sending anything.
func (h *Handler) TestConnectionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	backend, err := services.NewBackend(req.Provider)
	if err != nil {
		writeError(w, err.Error())
		return
	}

	if !backend.TestConnection() {
		writeError(w, "Connection test failed")
		return
	}
	writeJSON(w, models.APIResponse{Success: true, Message: "Connection test successful"})
}

// SendHandler starts a bulk run. A run that cannot authenticate refuses to
// start; nothing is partially sent.
func (h *Handler) SendHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid data")
		return
	}

	contacts := req.Contacts
	if len(contacts) == 0 {
		recipients, err := database.GetAllRecipients()
		if err != nil {
			writeError(w, err.Error())
			return
		}
		for _, rec := range recipients {
			contacts = append(contacts, models.ContactRecord{
				"email":      rec.Email,
				"nom":        rec.Nom,
				"prenom":     rec.Prenom,
				"entreprise": rec.Entreprise,
			})
		}
	}
	if len(contacts) == 0 {
		writeError(w, "No contacts to send to")
		return
	}

	backend, err := services.NewBackend(req.Provider)
	if err != nil {
		writeError(w, err.Error())
		return
	}

	delay := runDelay(req.DelaySeconds)

	campaignID, err := database.InsertCampaign(req.Subject, req.Body, req.IsHTML, backend.Name())
	if err != nil {
		logger.Warnf("could not store campaign: %v", err)
	}

	runID, err := h.sendService.Start(services.RunParams{
		Backend:     backend,
		Contacts:    contacts,
		Template:    models.Template{Subject: req.Subject, Body: req.Body},
		IsHTML:      req.IsHTML,
		Attachments: h.currentAttachments(),
		Delay:       delay,
		CampaignID:  campaignID,
	})
	if err != nil {
		if errors.Is(err, services.ErrRunActive) {
			writeError(w, "A send run is already active")
			return
		}
		writeError(w, err.Error())
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Sending started",
		"run_id":  runID,
	})
}

// runDelay resolves the inter-send delay: the request value when present
// (an explicit 0 disables the delay), else the configured default. Negative
// values clamp to zero.
func runDelay(seconds *float64) time.Duration {
	delay := config.Snapshot().DefaultDelay
	if seconds != nil {
		delay = *seconds
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay * float64(time.Second))
}

// StopHandler requests cooperative cancellation of the active run. The
// in-flight send completes; the loop stops before the next one.
func (h *Handler) StopHandler(w http.ResponseWriter, r *http.Request) {
	h.sendService.Stop()
	writeJSON(w, models.APIResponse{Success: true, Message: "Stop requested"})
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"success": true,
		"status":  h.sendService.Status(),
	})
}

// LogsHandler returns the accumulated run log (GET) or clears it (DELETE).
func (h *Handler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		h.sendService.ClearLogs()
		writeJSON(w, models.APIResponse{Success: true, Message: "Logs cleared"})
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"logs":    h.sendService.Logs(),
	})
}

// ExportLogsHandler downloads the run log as email,status,timestamp,error.
func (h *Handler) ExportLogsHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.sendService.ExportLogsCSV()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="send_logs.csv"`)
	w.Write(data)
}
