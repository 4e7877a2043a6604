package cli

import (
	"regexp"
)

var redactions = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*-----END [A-Z ]*PRIVATE KEY-----`), "[PRIVATE KEY REDACTED]"},
	{regexp.MustCompile(`(?i)(password|passphrase|secret)(\s*[:=]\s*)\S+`), "${1}${2}[REDACTED]"},
	{regexp.MustCompile(`/home/[^/\s]+`), "/home/[USER]"},
	{regexp.MustCompile(`/Users/[^/\s]+`), "/Users/[USER]"},
}

// RedactError renders err with key material and passwords removed, for
// printing to a terminal or a supervisor log.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

// RedactString removes key material and passwords from s.
func RedactString(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}
