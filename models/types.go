package models

// ContactRecord is one recipient row after ingestion. Keys are normalized
// column names (canonical: email, nom, prenom, entreprise), values are the
// cell contents, empty string when missing.
type ContactRecord map[string]string

func (c ContactRecord) Email() string {
	return c["email"]
}

// ImportResult reports what ingestion kept and dropped.
type ImportResult struct {
	Contacts   []ContactRecord `json:"contacts"`
	Columns    []string        `json:"columns"`
	Invalid    int             `json:"invalid"`
	Duplicates int             `json:"duplicates"`
}

// Attachment is applied identically to every message of a run.
type Attachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
	Size     int    `json:"size"`
}

// Template holds the subject and body with {{token}} placeholders.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Outcome tags for one attempted send.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// SendLogEntry is one row of the run log, in send order.
type SendLogEntry struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// SendStatus is a snapshot of a run's aggregate state.
type SendStatus struct {
	RunID    string   `json:"run_id"`
	Active   bool     `json:"active"`
	Progress int      `json:"progress"`
	Total    int      `json:"total"`
	Success  int      `json:"success"`
	Errors   []string `json:"errors"`
}

// ProgressUpdate is pushed to websocket clients after every attempted send.
type ProgressUpdate struct {
	RunID      string  `json:"run_id"`
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	Percentage float64 `json:"percentage"`
	Done       bool    `json:"done"`
}

// EmailConfig is the runtime configuration, loaded from env and updatable
// from the UI.
type EmailConfig struct {
	SMTPServer   string `json:"smtp_server"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPSecurity string `json:"smtp_security"` // ssl, starttls, none
	Email        string `json:"email"`
	Password     string `json:"password"`
	SenderName   string `json:"sender_name"`
	ReplyTo      string `json:"reply_to"`

	Provider string `json:"provider"` // smtp, mailgun, resend

	MailgunDomain string `json:"mailgun_domain"`
	MailgunAPIKey string `json:"mailgun_api_key"`

	ResendAPIKey    string `json:"resend_api_key"`
	ResendFromEmail string `json:"resend_from_email"`

	DefaultDelay float64 `json:"default_delay"`
}

// SendRequest starts a bulk run.
type SendRequest struct {
	Contacts     []ContactRecord `json:"contacts"`
	Subject      string          `json:"subject"`
	Body         string          `json:"body"`
	IsHTML       bool            `json:"is_html"`
	Provider     string          `json:"provider"`
	// Nil means "use the configured default"; an explicit 0 disables the
	// inter-send delay.
	DelaySeconds *float64 `json:"delay_seconds,omitempty"`
}

// TemplateCheckRequest asks which template variables have no matching column.
type TemplateCheckRequest struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Columns []string `json:"columns"`
}

type TemplateCheckResponse struct {
	Success   bool     `json:"success"`
	Variables []string `json:"variables"`
	Missing   []string `json:"missing"`
}

type UploadResponse struct {
	Success    bool            `json:"success"`
	Count      int             `json:"count,omitempty"`
	Invalid    int             `json:"invalid"`
	Duplicates int             `json:"duplicates"`
	Columns    []string        `json:"columns,omitempty"`
	Contacts   []ContactRecord `json:"contacts,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// ConfigResponse is the redacted view of EmailConfig (no secrets).
type ConfigResponse struct {
	SMTPServer      string  `json:"smtp_server"`
	SMTPPort        int     `json:"smtp_port"`
	SMTPSecurity    string  `json:"smtp_security"`
	Email           string  `json:"email"`
	SenderName      string  `json:"sender_name"`
	ReplyTo         string  `json:"reply_to"`
	Provider        string  `json:"provider"`
	MailgunDomain   string  `json:"mailgun_domain,omitempty"`
	ResendFromEmail string  `json:"resend_from_email,omitempty"`
	DefaultDelay    float64 `json:"default_delay"`
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
