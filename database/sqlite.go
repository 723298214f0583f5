package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

var DB *sql.DB

// Recipient is one imported contact as stored.
type Recipient struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Nom        string    `json:"nom"`
	Prenom     string    `json:"prenom"`
	Entreprise string    `json:"entreprise"`
	CreatedAt  time.Time `json:"created_at"`
}

// Campaign is one subject/body template pair used for a run.
type Campaign struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsHTML    bool      `json:"is_html"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// SendLogRow is one persisted send attempt.
type SendLogRow struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	CampaignID   int64     `json:"campaign_id"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message"`
	SentAt       time.Time `json:"sent_at"`
}

// Init opens the SQLite database at path and creates the tables.
func Init(path string) error {
	var err error

	DB, err = sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	if err = createTables(); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	logger.Info("SQLite initialized")
	return nil
}

func createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		nom TEXT,
		prenom TEXT,
		entreprise TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS campaigns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		is_html INTEGER NOT NULL DEFAULT 0,
		provider TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS send_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		campaign_id INTEGER,
		email TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		sent_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
	);

	CREATE INDEX IF NOT EXISTS idx_send_logs_run ON send_logs(run_id);
	`

	_, err := DB.Exec(schema)
	return err
}

func Close() {
	if DB != nil {
		DB.Close()
	}
}

// InsertOrGetRecipient stores a contact, returning the existing row's id
// when the email is already known.
func InsertOrGetRecipient(contact models.ContactRecord) (int64, error) {
	var id int64
	err := DB.QueryRow("SELECT id FROM recipients WHERE email = ?", contact.Email()).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up recipient: %w", err)
	}

	res, err := DB.Exec(
		"INSERT INTO recipients (email, nom, prenom, entreprise) VALUES (?, ?, ?, ?)",
		contact.Email(), contact["nom"], contact["prenom"], contact["entreprise"],
	)
	if err != nil {
		return 0, fmt.Errorf("inserting recipient: %w", err)
	}
	return res.LastInsertId()
}

// GetAllRecipients returns every stored contact, oldest first.
func GetAllRecipients() ([]Recipient, error) {
	rows, err := DB.Query("SELECT id, email, nom, prenom, entreprise, created_at FROM recipients ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying recipients: %w", err)
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Nom, &r.Prenom, &r.Entreprise, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// InsertCampaign stores the template pair used by a run.
func InsertCampaign(subject, body string, isHTML bool, provider string) (int64, error) {
	res, err := DB.Exec(
		"INSERT INTO campaigns (subject, body, is_html, provider) VALUES (?, ?, ?, ?)",
		subject, body, isHTML, provider,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting campaign: %w", err)
	}
	return res.LastInsertId()
}

// InsertSendLog persists one attempted send. A no-op when persistence has
// not been initialized.
func InsertSendLog(runID string, campaignID int64, email, status, errorMessage string) error {
	if DB == nil {
		return nil
	}
	var campaign interface{}
	if campaignID != 0 {
		campaign = campaignID
	}
	_, err := DB.Exec(
		"INSERT INTO send_logs (run_id, campaign_id, email, status, error_message) VALUES (?, ?, ?, ?, ?)",
		runID, campaign, email, status, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("inserting send log: %w", err)
	}
	return nil
}

// GetHistory returns every persisted send attempt, most recent first.
func GetHistory() ([]SendLogRow, error) {
	rows, err := DB.Query(`
		SELECT id, run_id, COALESCE(campaign_id, 0), email, status, COALESCE(error_message, ''), sent_at
		FROM send_logs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var history []SendLogRow
	for rows.Next() {
		var row SendLogRow
		if err := rows.Scan(&row.ID, &row.RunID, &row.CampaignID, &row.Email, &row.Status, &row.ErrorMessage, &row.SentAt); err != nil {
			return nil, fmt.Errorf("scanning send log: %w", err)
		}
		history = append(history, row)
	}
	return history, rows.Err()
}

// GetStats aggregates totals over the whole send history.
func GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	queries := map[string]string{
		"total_sends":      "SELECT COUNT(*) FROM send_logs",
		"success":          "SELECT COUNT(*) FROM send_logs WHERE status = 'success'",
		"failed":           "SELECT COUNT(*) FROM send_logs WHERE status IN ('failed', 'error')",
		"total_recipients": "SELECT COUNT(*) FROM recipients",
		"total_campaigns":  "SELECT COUNT(*) FROM campaigns",
	}

	for key, query := range queries {
		var count int
		if err := DB.QueryRow(query).Scan(&count); err != nil {
			return nil, fmt.Errorf("computing %s: %w", key, err)
		}
		stats[key] = count
	}

	return stats, nil
}

// Reset wipes every table.
func Reset() error {
	for _, table := range []string{"send_logs", "campaigns", "recipients"} {
		if _, err := DB.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("resetting %s: %w", table, err)
		}
	}
	logger.Info("database reset")
	return nil
}
