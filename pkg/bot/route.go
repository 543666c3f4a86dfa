package bot

import (
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

type requestKind int8

const (
	// requestConversation goes to the agent loop.
	requestConversation requestKind = iota
	// requestHelp answers directly with the capability summary.
	requestHelp
	// requestUsage answers directly with the token usage report.
	requestUsage
	// requestWrite is a conversation whose leading form unambiguously
	// asks for a tracker mutation, gated before any model call.
	requestWrite
)

// request is the routed form of an inbound message.
type request struct {
	Kind   requestKind
	Target string        // usage: caller to report on, empty means self
	Window time.Duration // usage: trailing window, zero means default
}

// Write command forms. These match only explicit leading imperatives so
// natural questions ("how do I create an issue?", "update me on COD-379")
// still reach the model.
//
//nolint:gochecknoglobals // compiled once, read-only after init
var writeIntentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(create|file|open)\s+(a\s+|an\s+|new\s+)?(issue|ticket|bug|task|story)\b`),
	regexp.MustCompile(`(?i)^(update|close|reopen|assign|unassign|estimate)\s+((the\s+)?(issue|ticket)\s+)?[A-Za-z][A-Za-z0-9]*-\d+\b`),
	regexp.MustCompile(`(?i)^(comment\s+on|add\s+(a\s+)?comment)\b`),
}

// mentionPattern matches the transport's raw user mention form.
var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`) //nolint:gochecknoglobals // compiled once

// parseRequest routes the stripped message text. Only the leading token
// selects a command; everything else is conversation.
func parseRequest(text string) request {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return request{Kind: requestHelp}
	}

	fields := strings.Fields(trimmed)
	switch strings.ToLower(fields[0]) {
	case "help":
		if len(fields) == 1 {
			return request{Kind: requestHelp}
		}
	case "usage":
		return parseUsage(fields[1:])
	}

	for _, p := range writeIntentPatterns {
		if p.MatchString(trimmed) {
			return request{Kind: requestWrite}
		}
	}
	return request{Kind: requestConversation}
}

// parseUsage reads the optional target and window arguments in either
// order: "usage", "usage 24h", "usage @caller", "usage @caller 30d".
func parseUsage(args []string) request {
	req := request{Kind: requestUsage}
	for _, arg := range args {
		if d, err := model.ParseDuration(arg); err == nil {
			req.Window = time.Duration(d)
			continue
		}
		if m := mentionPattern.FindStringSubmatch(arg); m != nil {
			req.Target = m[1]
			continue
		}
		req.Target = arg
	}
	return req
}
