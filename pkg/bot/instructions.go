package bot

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/Koplal/tai-discord-bot/pkg/access"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

//go:embed instructions.tpl.md
var instructionsText string

// instructionsData feeds the system instructions template.
type instructionsData struct {
	BotName    string
	Team       string
	CallerName string
	Tier       string
	Today      string
	MaxReply   int
	ToolDocs   string
}

// buildInstructions renders the system instructions for one request,
// documenting only the tools this caller's tier unlocked.
func (s *Service) buildInstructions(provider *tools.Provider, in Inbound, tier access.Tier) (string, error) {
	docs := ""
	if len(provider.Names()) > 0 {
		docs = provider.PromptDocumentation()
	}

	callerName := in.CallerName
	if callerName == "" {
		callerName = in.CallerID
	}

	var buf bytes.Buffer
	err := s.instructions.Execute(&buf, instructionsData{
		BotName:    botName,
		Team:       s.cfg.Tracker.Team,
		CallerName: callerName,
		Tier:       tier.String(),
		Today:      s.now().UTC().Format("Monday, January 2, 2006"),
		MaxReply:   s.cfg.Reply.MaxChars,
		ToolDocs:   docs,
	})
	if err != nil {
		return "", fmt.Errorf("rendering instructions: %w", err)
	}
	return buf.String(), nil
}
