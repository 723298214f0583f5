package services

import (
	"regexp"
	"strings"

	"github.com/barbaritakodi-cell/sender/models"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// BuildReplacements constructs the flat substitution map for one contact:
// the contact's fields plus the sender metadata. The SMTP path injects both
// sender_name and sender_email; the provider-API path has always injected
// only sender_email, and existing templates depend on that, so the asymmetry
// is kept.
func BuildReplacements(contact models.ContactRecord, senderName, senderEmail string, withSenderName bool) map[string]string {
	repl := make(map[string]string, len(contact)+2)
	for key, value := range contact {
		repl[key] = value
	}
	if withSenderName {
		repl["sender_name"] = senderName
	}
	repl["sender_email"] = senderEmail
	return repl
}

// RenderTemplate substitutes every {{key}} of the replacement map in the
// subject and body. Tokens with no matching key are left verbatim.
func RenderTemplate(tpl models.Template, repl map[string]string) (subject, body string) {
	subject = tpl.Subject
	body = tpl.Body
	for key, value := range repl {
		token := "{{" + key + "}}"
		subject = strings.ReplaceAll(subject, token, value)
		body = strings.ReplaceAll(body, token, value)
	}
	return subject, body
}

// ExtractVariables lists the distinct {{tokens}} of a template string in
// order of first appearance.
func ExtractVariables(template string) []string {
	seen := make(map[string]struct{})
	var vars []string
	for _, m := range variablePattern.FindAllStringSubmatch(template, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		vars = append(vars, m[1])
	}
	return vars
}

// MissingVariables returns the template variables that match neither an
// available column (case-insensitive) nor one of the injected sender fields.
func MissingVariables(subject, body string, columns []string) []string {
	available := map[string]struct{}{
		"sender_name":  {},
		"sender_email": {},
	}
	for _, col := range columns {
		available[strings.ToLower(col)] = struct{}{}
	}

	var missing []string
	for _, v := range ExtractVariables(subject + "\n" + body) {
		if _, ok := available[strings.ToLower(v)]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
