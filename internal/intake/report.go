package intake

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	MinReportLength = 5
	MaxReportLength = 100

	forbiddenReportChars = "<>`\"'|;&"
)

var reportEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// CheckReport validates the submitted values of the report field and returns
// the sanitized path. values is the slice a form parser produced for the
// field; anything but exactly one non-empty value is ReasonReportMissing.
func CheckReport(values []string) (string, error) {
	if len(values) != 1 || values[0] == "" {
		return "", Reject(ReasonReportMissing, "")
	}
	report := trimReport(values[0])
	if !ValidReportPath(report) {
		return "", Reject(ReasonReportFormat, "")
	}
	return SanitizeReport(report), nil
}

// trimReport strips Unicode space separators, \t \n \v \f \r, the line and
// paragraph separators and the byte order mark from both ends. U+0085 is not
// trimmed.
func trimReport(s string) string {
	return strings.TrimFunc(s, isReportSpace)
}

func isReportSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// reportLength counts UTF-16 code units, so characters outside the Basic
// Multilingual Plane count twice.
func reportLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// ValidReportPath applies the format rules to an already trimmed path.
func ValidReportPath(s string) bool {
	n := reportLength(s)
	switch {
	case n < MinReportLength || n > MaxReportLength:
		return false
	case !strings.HasPrefix(s, "/"):
		return false
	case !strings.HasSuffix(s, ".html"):
		return false
	case strings.ContainsAny(s, forbiddenReportChars):
		return false
	case strings.Contains(s, ".."):
		return false
	}
	return true
}

// SanitizeReport HTML-escapes & < > " and '.
func SanitizeReport(s string) string {
	return reportEscaper.Replace(s)
}
