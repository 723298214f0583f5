package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barbaritakodi-cell/sender/database"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

// ErrRunActive is returned when a run is requested while one is in flight.
// The app supports exactly one send stream at a time.
var ErrRunActive = errors.New("a send run is already active")

const timestampLayout = "15:04:05"

// RunParams is everything a bulk run needs, fixed at start time except for
// the sender display name, which backends re-read per send.
type RunParams struct {
	Backend     DeliveryBackend
	Contacts    []models.ContactRecord
	Template    models.Template
	IsHTML      bool
	Attachments []models.Attachment
	Delay       time.Duration
	CampaignID  int64
}

// SendService drives bulk runs. Status belongs to the current run; the log
// accumulates across runs until cleared wholesale.
type SendService struct {
	broadcast chan<- models.ProgressUpdate

	mu sync.Mutex
	// running stays true until the run goroutine terminates. Stop only
	// clears Active, so Active alone cannot tell whether the previous
	// goroutine is still draining its in-flight send.
	running bool
	status  models.SendStatus
	logs    []models.SendLogEntry
}

func NewSendService(broadcast chan<- models.ProgressUpdate) *SendService {
	return &SendService{broadcast: broadcast}
}

// Start launches a run in the background and returns its id. It refuses to
// start while another run is active, or while a stopped run's goroutine is
// still completing its in-flight send.
func (s *SendService) Start(p RunParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return "", ErrRunActive
	}

	runID := uuid.NewString()
	s.status = models.SendStatus{
		RunID:  runID,
		Active: true,
		Total:  len(p.Contacts),
		Errors: []string{},
	}
	s.running = true

	go s.run(runID, p)
	return runID, nil
}

// Stop requests cooperative cancellation. The flag is polled at the top of
// each iteration, so an in-flight send always completes.
func (s *SendService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Active = false
}

// Status returns a snapshot of the current run state.
func (s *SendService) Status() models.SendStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.status
	snapshot.Errors = append([]string(nil), s.status.Errors...)
	return snapshot
}

// Logs returns a copy of the accumulated log, in send order.
func (s *SendService) Logs() []models.SendLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SendLogEntry(nil), s.logs...)
}

// ClearLogs discards the accumulated log wholesale.
func (s *SendService) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
}

// run is the sequential send loop: one contact at a time, in order, with a
// flat delay after every item including the last. A failed send is recorded
// once and the loop moves on; there are no retries.
func (s *SendService) run(runID string, p RunParams) {
	logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"backend":  p.Backend.Name(),
		"contacts": len(p.Contacts),
	}).Info("bulk send started")

	for _, contact := range p.Contacts {
		if !s.active(runID) {
			logger.WithField("run_id", runID).Info("bulk send stopped by operator")
			break
		}

		email := contact.Email()
		ok, errText := attempt(p.Backend, contact, p.Template, p.IsHTML, p.Attachments)

		entry := models.SendLogEntry{
			Email:     email,
			Timestamp: time.Now().Format(timestampLayout),
		}
		switch {
		case ok:
			entry.Status = models.StatusSuccess
		case errText != "":
			entry.Status = models.StatusError
			entry.Error = errText
		default:
			entry.Status = models.StatusFailed
			entry.Error = "send failed"
		}

		s.record(runID, p.CampaignID, entry, ok)

		if p.Delay > 0 {
			time.Sleep(p.Delay)
		}
	}

	s.finish(runID)
}

// attempt isolates one send so that a misbehaving backend cannot take the
// whole run down; a panic becomes an "error" log entry for that recipient.
func attempt(backend DeliveryBackend, contact models.ContactRecord, tpl models.Template, isHTML bool, attachments []models.Attachment) (ok bool, errText string) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			errText = fmt.Sprint(r)
		}
	}()
	return backend.SendOne(contact, tpl, isHTML, attachments), ""
}

func (s *SendService) active(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Active && s.status.RunID == runID
}

func (s *SendService) record(runID string, campaignID int64, entry models.SendLogEntry, ok bool) {
	s.mu.Lock()
	if s.status.RunID != runID {
		s.mu.Unlock()
		return
	}
	s.logs = append(s.logs, entry)
	if ok {
		s.status.Success++
	} else {
		s.status.Errors = append(s.status.Errors, entry.Email)
	}
	s.status.Progress++
	update := models.ProgressUpdate{
		RunID:      runID,
		Email:      entry.Email,
		Status:     entry.Status,
		Current:    s.status.Progress,
		Total:      s.status.Total,
		Sent:       s.status.Success,
		Failed:     len(s.status.Errors),
		Percentage: float64(s.status.Progress) / float64(s.status.Total) * 100,
	}
	s.mu.Unlock()

	if err := database.InsertSendLog(runID, campaignID, entry.Email, entry.Status, entry.Error); err != nil {
		logger.Warnf("could not persist send log entry: %v", err)
	}

	s.publish(update)
}

func (s *SendService) finish(runID string) {
	s.mu.Lock()
	s.running = false
	if s.status.RunID != runID {
		s.mu.Unlock()
		return
	}
	s.status.Active = false
	update := models.ProgressUpdate{
		RunID:      runID,
		Current:    s.status.Progress,
		Total:      s.status.Total,
		Sent:       s.status.Success,
		Failed:     len(s.status.Errors),
		Percentage: 100,
		Done:       true,
	}
	if s.status.Total > 0 {
		update.Percentage = float64(s.status.Progress) / float64(s.status.Total) * 100
	}
	s.mu.Unlock()

	s.publish(update)

	logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"total":   update.Total,
		"sent":    update.Sent,
		"failed":  update.Failed,
	}).Info("bulk send finished")
}

func (s *SendService) publish(update models.ProgressUpdate) {
	if s.broadcast == nil {
		return
	}
	select {
	case s.broadcast <- update:
	default:
		// A full channel means no websocket client is draining; progress
		// frames are droppable.
	}
}

// ExportLogsCSV renders the accumulated log as a delimited table with the
// header email,status,timestamp,error, one row per attempted send.
func (s *SendService) ExportLogsCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"email", "status", "timestamp", "error"})
	for _, entry := range s.Logs() {
		w.Write([]string{entry.Email, entry.Status, entry.Timestamp, entry.Error})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseLogsCSV reads an exported log back into entries, in file order.
func ParseLogsCSV(data []byte) ([]models.SendLogEntry, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading log csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("log csv is empty")
	}

	entries := make([]models.SendLogEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("malformed log row: %v", row)
		}
		entries = append(entries, models.SendLogEntry{
			Email:     row[0],
			Status:    row[1],
			Timestamp: row[2],
			Error:     row[3],
		})
	}
	return entries, nil
}
