package chat

import "regexp"

// Credential-shaped substrings are masked from every outbound reply.
// Model output can quote tool results or user text verbatim, and neither
// may carry a live key into a channel.
//
//nolint:gochecknoglobals // compiled once, read-only after init
var secretPatterns = []*regexp.Regexp{
	// Provider API keys.
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{24,}`),
	regexp.MustCompile(`sk-proj-[A-Za-z0-9_-]{24,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{32,}`),

	// AWS access key IDs.
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub tokens.
	regexp.MustCompile(`gh[poicers]_[A-Za-z0-9]{36,}`),

	// Bearer tokens and key=value style assignments.
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(?:api[_-]?key|secret|token)\s*[:=]\s*['"]?[A-Za-z0-9_-]{20,}['"]?`),

	// PEM private key headers.
	regexp.MustCompile(`-----BEGIN\s+(?:RSA|DSA|EC|OPENSSH|PGP)?\s*PRIVATE\s+KEY-----`),
}

const redactedMark = "[redacted]"

// Redact masks credential-shaped substrings in outbound text. The second
// return reports whether anything was masked, so the caller can log it.
func Redact(text string) (string, bool) {
	masked := false
	for _, pattern := range secretPatterns {
		replaced := pattern.ReplaceAllLiteralString(text, redactedMark)
		if replaced != text {
			masked = true
			text = replaced
		}
	}
	return text, masked
}
