package tracker

import (
	"fmt"
	"strings"

	"github.com/Koplal/tai-discord-bot/pkg/boterr"
)

// IdentifierFormat describes the shape of a human-facing issue reference.
const IdentifierFormat = `an issue identifier like "COD-379" (uppercase team key, dash, issue number)`

// Identifier is a human-facing issue reference such as COD-379.
type Identifier struct {
	TeamKey string
	Number  int
}

// ParseIdentifier validates and splits an issue reference. It fails before
// any network call so malformed references never reach the tracker.
func ParseIdentifier(s string) (Identifier, error) {
	trimmed := strings.TrimSpace(s)

	key, digits, ok := strings.Cut(trimmed, "-")
	if !ok || key == "" || digits == "" {
		return Identifier{}, boterr.NewMalformedInput(IdentifierFormat, trimmed)
	}

	for _, r := range key {
		if r < 'A' || r > 'Z' {
			return Identifier{}, boterr.NewMalformedInput(IdentifierFormat, trimmed)
		}
	}

	if len(digits) > 9 {
		return Identifier{}, boterr.NewMalformedInput(IdentifierFormat, trimmed)
	}
	number := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Identifier{}, boterr.NewMalformedInput(IdentifierFormat, trimmed)
		}
		number = number*10 + int(r-'0')
	}
	if number <= 0 {
		return Identifier{}, boterr.NewMalformedInput(IdentifierFormat, trimmed)
	}

	return Identifier{TeamKey: key, Number: number}, nil
}

// String renders the identifier in its canonical TEAM-123 form.
func (id Identifier) String() string {
	return fmt.Sprintf("%s-%d", id.TeamKey, id.Number)
}
