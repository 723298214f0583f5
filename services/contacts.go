package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

var (
	// ErrUnsupportedFormat means the file extension is not one of csv/xlsx/xls/txt.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrUndecodable means no supported text encoding could decode the content.
	ErrUndecodable = errors.New("no supported text encoding could decode the file")
	// ErrNoEmailColumn means no header could be mapped to an email column.
	ErrNoEmailColumn = errors.New("no email column found")
)

var separatorRun = regexp.MustCompile(`[,;\t]+`)

// ParseContacts turns an uploaded file into a validated, deduplicated list
// of contact records. The declared filename selects the parser.
func ParseContacts(filename string, data []byte) (*models.ImportResult, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	var (
		result *models.ImportResult
		err    error
	)
	switch ext {
	case "csv":
		result, err = parseCSV(data)
	case "xlsx", "xls":
		result, err = parseSpreadsheet(data)
	case "txt":
		result, err = parseLines(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"file":       filename,
		"contacts":   len(result.Contacts),
		"invalid":    result.Invalid,
		"duplicates": result.Duplicates,
	}).Info("contacts imported")

	return result, nil
}

// decodeText decodes raw bytes trying strict UTF-8 first, then the legacy
// single-byte encodings the source files tend to arrive in.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		if decoded, err := cm.NewDecoder().Bytes(data); err == nil {
			return string(decoded), nil
		}
	}
	return "", ErrUndecodable
}

func parseCSV(data []byte) (*models.ImportResult, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	return tableResult(rows)
}

func parseSpreadsheet(data []byte) (*models.ImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoEmailColumn
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	return tableResult(rows)
}

// parseLines handles plain text files: one address per line, or several per
// line separated by commas, semicolons or tabs. Only the email field is
// populated; tokens failing validation are skipped.
func parseLines(data []byte) (*models.ImportResult, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	var contacts []models.ContactRecord
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		candidates := []string{line}
		if strings.ContainsAny(line, ",;\t") {
			candidates = separatorRun.Split(line, -1)
		}
		for _, candidate := range candidates {
			candidate = strings.TrimSpace(candidate)
			if candidate != "" && IsValidEmail(candidate) {
				contacts = append(contacts, models.ContactRecord{"email": candidate})
			}
		}
	}

	return &models.ImportResult{
		Contacts: contacts,
		Columns:  []string{"email"},
	}, nil
}

// canonicalColumn maps a raw header to its canonical field by substring
// match. prenom must be checked before nom: "prénom" contains "nom".
func canonicalColumn(header string) string {
	stripped := strings.TrimSpace(header)
	lower := strings.ToLower(stripped)
	switch {
	case strings.Contains(lower, "email") || strings.Contains(lower, "mail"):
		return "email"
	case strings.Contains(lower, "prénom") || strings.Contains(lower, "prenom") || strings.Contains(lower, "firstname"):
		return "prenom"
	case strings.Contains(lower, "nom") || strings.Contains(lower, "name"):
		return "nom"
	case strings.Contains(lower, "entreprise") || strings.Contains(lower, "company") || strings.Contains(lower, "societe"):
		return "entreprise"
	default:
		return stripped
	}
}

// tableResult builds records from a header row plus data rows, then drops
// empty, invalid and duplicate emails.
func tableResult(rows [][]string) (*models.ImportResult, error) {
	if len(rows) == 0 {
		return nil, ErrNoEmailColumn
	}

	columns := make([]string, len(rows[0]))
	hasEmail := false
	for i, header := range rows[0] {
		columns[i] = canonicalColumn(header)
		if columns[i] == "email" {
			hasEmail = true
		}
	}
	if !hasEmail {
		return nil, ErrNoEmailColumn
	}

	result := &models.ImportResult{Columns: columns}
	seen := make(map[string]struct{})

	for _, row := range rows[1:] {
		record := make(models.ContactRecord, len(columns))
		for i, col := range columns {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			record[col] = value
		}

		email := record.Email()
		if email == "" {
			continue
		}
		if !IsValidEmail(email) {
			result.Invalid++
			continue
		}
		if _, dup := seen[email]; dup {
			result.Duplicates++
			continue
		}
		seen[email] = struct{}{}
		result.Contacts = append(result.Contacts, record)
	}

	return result, nil
}

// SampleCSV is the downloadable example file with the canonical columns.
func SampleCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"email", "nom", "prenom", "entreprise"})
	w.Write([]string{"exemple1@email.com", "Dupont", "Jean", "Entreprise A"})
	w.Write([]string{"exemple2@email.com", "Martin", "Marie", "Entreprise B"})
	w.Write([]string{"exemple3@email.com", "Durand", "Pierre", "Entreprise C"})
	w.Flush()
	return buf.Bytes()
}
