// Package pii masks personally identifiable information in document text:
// email addresses, phone numbers, and IPv4 addresses. Each masker returns
// the redacted text plus the number of replacements made, for the
// PiiMasker stage's per-document accounting.
package pii

import (
	"regexp"
	"strings"
)

// pattern is a compiled matcher, the PII kind it detects, and a placeholder
// token. confidence is carried alongside each pattern even though every
// built-in one here is exact-match (no heuristic scoring is needed for
// email/phone/IP detection).
type pattern struct {
	re          *regexp.Regexp
	placeholder string
	confidence  float64
	boundary    boundaryFunc
}

// boundaryFunc reports whether a match at [start,end) in s has valid
// boundaries (Go's RE2 engine has no lookaround, so phone/IP boundary
// conditions that the original used (?<!\w)/(?!\d) are re-checked here).
type boundaryFunc func(s string, start, end int) bool

var emailPattern = pattern{
	re:          regexp.MustCompile(`[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}`),
	placeholder: "|||EMAIL_ADDRESS|||",
	confidence:  1.0,
}

var phonePattern = pattern{
	re:          regexp.MustCompile(`(?:\+1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`),
	placeholder: "|||PHONE_NUMBER|||",
	confidence:  0.9,
	boundary:    notWordAdjacent,
}

var ipv4Pattern = pattern{
	re: regexp.MustCompile(`(?:25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)\.` +
		`(?:25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)\.` +
		`(?:25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)\.` +
		`(?:25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)`),
	placeholder: "|||IP_ADDRESS|||",
	confidence:  1.0,
	boundary:    notDigitAdjacent,
}

// MaskEmails replaces every email address in text with a placeholder token,
// returning the masked text and the number of replacements made.
func MaskEmails(text string) (string, int) {
	return applyPattern(emailPattern, text)
}

// MaskPhoneNumbers replaces every phone number in text with a placeholder
// token.
func MaskPhoneNumbers(text string) (string, int) {
	return applyPattern(phonePattern, text)
}

// MaskIPs replaces every IPv4 address in text with a placeholder token.
func MaskIPs(text string) (string, int) {
	return applyPattern(ipv4Pattern, text)
}

// MaskAll runs all three maskers in sequence (emails, then phone numbers,
// then IPs) and returns the cumulative replacement count.
func MaskAll(text string) (string, int) {
	total := 0
	var n int
	text, n = MaskEmails(text)
	total += n
	text, n = MaskPhoneNumbers(text)
	total += n
	text, n = MaskIPs(text)
	total += n
	return text, total
}

func applyPattern(p pattern, text string) (string, int) {
	idxs := p.re.FindAllStringIndex(text, -1)
	if idxs == nil {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	count := 0
	for _, m := range idxs {
		start, end := m[0], m[1]
		if p.boundary != nil && !p.boundary(text, start, end) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(p.placeholder)
		last = end
		count++
	}
	b.WriteString(text[last:])
	return b.String(), count
}

func notWordAdjacent(s string, start, end int) bool {
	return !isWordByteAt(s, start-1) && !isWordByteAt(s, end)
}

func notDigitAdjacent(s string, start, end int) bool {
	return !isDigitByteAt(s, start-1) && !isDigitByteAt(s, end)
}

func isWordByteAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigitByteAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	return s[i] >= '0' && s[i] <= '9'
}
