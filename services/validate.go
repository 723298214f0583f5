package services

import "regexp"

// emailPattern is the single syntax gate used everywhere: ingestion,
// pre-send checks and the backends themselves.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail reports whether addr looks like local-part@domain.tld with a
// TLD of at least two letters.
func IsValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

var dangerousTagPatterns []*regexp.Regexp

func init() {
	for _, tag := range []string{"script", "iframe", "object", "embed", "form"} {
		dangerousTagPatterns = append(dangerousTagPatterns,
			regexp.MustCompile(`(?is)<`+tag+`[^>]*>.*?</`+tag+`>`),
			regexp.MustCompile(`(?i)<`+tag+`[^>]*/?>`),
		)
	}
}

// SanitizeHTML strips script/iframe/object/embed/form tags from an HTML body
// before it is handed to a backend.
func SanitizeHTML(content string) string {
	for _, p := range dangerousTagPatterns {
		content = p.ReplaceAllString(content, "")
	}
	return content
}
