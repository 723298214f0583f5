package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/database"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/middleware"
	"github.com/barbaritakodi-cell/sender/models"
	"github.com/barbaritakodi-cell/sender/services"
)

const maxUploadSize = 20 << 20 // 20 MB

type Handler struct {
	sendService *services.SendService
	wsService   *services.WebSocketService
	upgrader    websocket.Upgrader

	mu          sync.Mutex
	attachments []models.Attachment
}

func NewHandler(sendService *services.SendService, wsService *services.WebSocketService) *Handler {
	return &Handler{
		sendService: sendService,
		wsService:   wsService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, models.APIResponse{Success: false, Error: msg})
}

func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "templates/index.html")
}

func (h *Handler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "templates/login.html")
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, "Invalid JSON")
		return
	}

	if !middleware.ValidateCredentials(creds.Username, creds.Password) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.APIResponse{Success: false, Error: "Invalid credentials"})
		return
	}

	token, err := middleware.Manager.CreateSession(creds.Username)
	if err != nil {
		writeError(w, "Could not create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, models.APIResponse{Success: true, Message: "Logged in"})
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session_token"); err == nil {
		middleware.Manager.DeleteSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: "session_token", Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.wsService.AddClient(conn)
	defer h.wsService.RemoveClient(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Handler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var newConfig models.EmailConfig
		if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
			writeError(w, "Invalid JSON")
			return
		}

		config.Update(newConfig)
		writeJSON(w, models.APIResponse{Success: true, Message: "Configuration updated"})
		return
	}

	cfg := config.Snapshot()
	writeJSON(w, models.ConfigResponse{
		SMTPServer:      cfg.SMTPServer,
		SMTPPort:        cfg.SMTPPort,
		SMTPSecurity:    cfg.SMTPSecurity,
		Email:           cfg.Email,
		SenderName:      cfg.SenderName,
		ReplyTo:         cfg.ReplyTo,
		Provider:        cfg.Provider,
		MailgunDomain:   cfg.MailgunDomain,
		ResendFromEmail: cfg.ResendFromEmail,
		DefaultDelay:    cfg.DefaultDelay,
	})
}

// UploadHandler ingests a contact file and stores the resulting records.
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, models.UploadResponse{Success: false, Error: "Upload error"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, models.UploadResponse{Success: false, Error: "Could not read file"})
		return
	}

	result, err := services.ParseContacts(header.Filename, data)
	if err != nil {
		writeJSON(w, models.UploadResponse{Success: false, Error: uploadErrorMessage(err)})
		return
	}

	inserted := 0
	for _, contact := range result.Contacts {
		if _, err := database.InsertOrGetRecipient(contact); err != nil {
			logger.Warnf("could not store recipient %s: %v", contact.Email(), err)
			continue
		}
		inserted++
	}

	writeJSON(w, models.UploadResponse{
		Success:    true,
		Count:      len(result.Contacts),
		Invalid:    result.Invalid,
		Duplicates: result.Duplicates,
		Columns:    result.Columns,
		Contacts:   result.Contacts,
		Message:    fmt.Sprintf("%d contacts imported (%d invalid, %d duplicates dropped)", inserted, result.Invalid, result.Duplicates),
	})
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrUnsupportedFormat):
		return "Unsupported file format (use .csv, .xlsx, .xls or .txt)"
	case errors.Is(err, services.ErrUndecodable):
		return "File could not be decoded with any supported encoding"
	case errors.Is(err, services.ErrNoEmailColumn):
		return "No email column could be identified"
	default:
		return err.Error()
	}
}

// SampleHandler serves a downloadable example contact file.
func (h *Handler) SampleHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts_exemple.csv"`)
	w.Write(services.SampleCSV())
}

// TemplateCheckHandler reports the template variables and those with no
// matching contact column.
func (h *Handler) TemplateCheckHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TemplateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON")
		return
	}

	writeJSON(w, models.TemplateCheckResponse{
		Success:   true,
		Variables: services.ExtractVariables(req.Subject + "\n" + req.Body),
		Missing:   services.MissingVariables(req.Subject, req.Body, req.Columns),
	})
}

// AttachmentsHandler manages the attachments applied to the next run:
// POST adds files, GET lists them, DELETE clears the list.
func (h *Handler) AttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, "Upload error")
			return
		}

		var added int
		h.mu.Lock()
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					continue
				}
				data, err := io.ReadAll(file)
				file.Close()
				if err != nil {
					continue
				}
				h.attachments = append(h.attachments, models.Attachment{
					Filename: header.Filename,
					Content:  data,
					Size:     len(data),
				})
				added++
			}
		}
		h.mu.Unlock()

		writeJSON(w, models.APIResponse{Success: true, Message: fmt.Sprintf("%d attachment(s) added", added)})

	case http.MethodDelete:
		h.mu.Lock()
		h.attachments = nil
		h.mu.Unlock()
		writeJSON(w, models.APIResponse{Success: true, Message: "Attachments cleared"})

	default:
		h.mu.Lock()
		list := append([]models.Attachment(nil), h.attachments...)
		h.mu.Unlock()
		writeJSON(w, map[string]interface{}{"success": true, "attachments": list})
	}
}

// currentAttachments snapshots the attachment list for a run.
func (h *Handler) currentAttachments() []models.Attachment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Attachment(nil), h.attachments...)
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := database.GetStats()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "stats": stats})
}

func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := database.GetHistory()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "history": history})
}

func (h *Handler) RecipientsHandler(w http.ResponseWriter, r *http.Request) {
	recipients, err := database.GetAllRecipients()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "recipients": recipients})
}

func (h *Handler) ResetDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if err := database.Reset(); err != nil {
		writeError(w, err.Error())
		return
	}
	writeJSON(w, models.APIResponse{Success: true, Message: "Database reset"})
}
