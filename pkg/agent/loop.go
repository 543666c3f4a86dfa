package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/boterr"
	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

// RunState tracks where a request is in the model loop. Transitions are
// logged so a stuck request can be traced from the log alone.
type RunState string

const (
	// StateAssembling is the initial state while the conversation is built.
	StateAssembling RunState = "ASSEMBLING"
	// StateAwaitingModel means a completion request is in flight.
	StateAwaitingModel RunState = "AWAITING_MODEL"
	// StateExecutingTools means the model asked for tools and the batch is
	// running.
	StateExecutingTools RunState = "EXECUTING_TOOLS"
	// StateDone is terminal with a reply, possibly a forced partial one.
	StateDone RunState = "DONE"
	// StateFailed is terminal without a usable reply.
	StateFailed RunState = "FAILED"
)

// ToolProvider is the slice of the tool catalog the loop drives.
// Satisfied by *tools.Provider.
type ToolProvider interface {
	Get(name string) (tools.Tool, error)
	Definitions() []tools.ToolDefinition
}

// Config describes one run of the loop.
type Config struct {
	// Provider supplies the caller's allowed tools. An empty catalog means
	// pure conversation.
	Provider ToolProvider

	// Instructions is the system prompt for the run (persona plus tool
	// documentation, composed by the caller).
	Instructions string

	// Transcript is the assembled conversation context, already formatted.
	// May be empty for a message with no usable history.
	Transcript string

	// Request is the triggering message text.
	Request string

	// MaxIterations bounds model round-trips per run. Zero means the
	// default of 5.
	MaxIterations int

	// MaxTokens bounds each completion. Zero means the client default.
	MaxTokens int

	// Temperature is the sampling temperature for every completion of the
	// run. Zero means the package default.
	Temperature float32

	// FallbackReply is sent when the loop ends with no text at all.
	FallbackReply string
}

// Result is the outcome of a run.
type Result struct {
	// Reply is the text to deliver. Set whenever State is StateDone.
	Reply string

	// State is the terminal run state.
	State RunState

	// Usage aggregates token counts across every round-trip of the run.
	Usage llm.Usage

	// Iterations is how many model round-trips the run used.
	Iterations int

	// Exhausted reports that the iteration bound forced the reply.
	Exhausted bool
}

// Loop drives model completions with tool calling until the model answers
// in plain text or the iteration bound closes the run.
type Loop struct {
	client llm.LLMClient
	logger *logx.Logger
}

// NewLoop creates a loop over the given model client.
func NewLoop(client llm.LLMClient, logger *logx.Logger) *Loop {
	if logger == nil {
		logger = logx.NewLogger("agent")
	}
	return &Loop{client: client, logger: logger}
}

const defaultMaxIterations = 5

// Run executes the loop. The returned error is non-nil only for StateFailed
// outcomes; iteration exhaustion forces StateDone with the best text
// available.
func (l *Loop) Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Provider == nil {
		return Result{State: StateFailed}, fmt.Errorf("tool provider is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = llm.TemperatureDefault
	}

	state := StateAssembling
	l.logger.Info("run started: state=%s model=%s", state, l.client.GetModelName())

	messages := l.assemble(cfg)
	defs := cfg.Provider.Definitions()

	var (
		usage    llm.Usage
		lastText string
	)

	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		// Cancellation is honored between iterations; an in-flight tool
		// batch below always finishes.
		if err := ctx.Err(); err != nil {
			state = l.transition(state, StateFailed)
			return Result{State: state, Usage: usage, Iterations: iteration - 1},
				boterr.NewRemote(err, "run canceled")
		}

		state = l.transition(state, StateAwaitingModel)

		req := llm.CompletionRequest{
			Messages:    messages,
			Tools:       defs,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}

		start := time.Now()
		resp, err := l.client.Complete(ctx, req)
		if err != nil {
			state = l.transition(state, StateFailed)
			l.logger.Error("completion failed after %.2fs on iteration %d: %v",
				time.Since(start).Seconds(), iteration, err)
			return Result{State: state, Usage: usage, Iterations: iteration},
				boterr.NewRemote(err, "model completion failed")
		}
		usage.Add(resp.Usage)
		l.logger.Info("completion finished in %.2fs: iteration=%d content_chars=%d tool_calls=%d tokens=%d",
			time.Since(start).Seconds(), iteration, len(resp.Content), len(resp.ToolCalls), resp.Usage.Total())

		if text := strings.TrimSpace(resp.Content); text != "" {
			lastText = text
		}

		if len(resp.ToolCalls) == 0 {
			state = l.transition(state, StateDone)
			reply := lastText
			if reply == "" {
				reply = cfg.FallbackReply
			}
			l.logFinish(state, iteration, usage)
			return Result{Reply: reply, State: state, Usage: usage, Iterations: iteration}, nil
		}

		state = l.transition(state, StateExecutingTools)
		results := l.executeBatch(ctx, cfg.Provider, resp.ToolCalls)

		messages = append(messages,
			llm.CompletionMessage{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls},
			llm.CompletionMessage{Role: llm.RoleUser, ToolResults: results},
		)
	}

	// Bound reached without a plain-text turn. The run still closes as
	// DONE: the user gets the best partial text, or the fallback.
	state = l.transition(state, StateDone)
	exhausted := boterr.NewIterationExhausted(cfg.MaxIterations)
	l.logger.Warn("%v", exhausted)

	reply := cfg.FallbackReply
	if lastText != "" {
		reply = exhausted.UserMessage() + "\n\n" + lastText
	}
	l.logFinish(state, cfg.MaxIterations, usage)
	return Result{
		Reply:      reply,
		State:      state,
		Usage:      usage,
		Iterations: cfg.MaxIterations,
		Exhausted:  true,
	}, nil
}

// assemble builds the initial conversation: system instructions with the
// transcript folded in, then the user request.
func (l *Loop) assemble(cfg Config) []llm.CompletionMessage {
	var system strings.Builder
	system.WriteString(cfg.Instructions)
	if cfg.Transcript != "" {
		if system.Len() > 0 {
			system.WriteString("\n\n")
		}
		system.WriteString("Recent conversation:\n")
		system.WriteString(cfg.Transcript)
	}

	messages := make([]llm.CompletionMessage, 0, 2)
	if system.Len() > 0 {
		messages = append(messages, llm.NewSystemMessage(system.String()))
	}
	return append(messages, llm.NewUserMessage(cfg.Request))
}

// executeBatch runs every tool call of one model turn. Each invocation is
// independent: a failure becomes a failed result for that invocation only,
// and every tool_use gets a matching tool_result.
func (l *Loop) executeBatch(ctx context.Context, provider ToolProvider, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))
	for i := range calls {
		call := &calls[i]

		tool, err := provider.Get(call.Name)
		if err != nil {
			l.logger.Warn("tool %s unavailable: %v", call.Name, err)
			results[i] = failedResult(call.ID, err)
			continue
		}

		start := time.Now()
		out, err := tool.Exec(ctx, call.Parameters)
		if err != nil {
			l.logger.Warn("tool %s failed after %.2fs: %v", call.Name, time.Since(start).Seconds(), err)
			results[i] = failedResult(call.ID, err)
			continue
		}

		l.logger.Info("tool %s completed in %.2fs", call.Name, time.Since(start).Seconds())
		results[i] = llm.ToolResult{ToolCallID: call.ID, Content: encodeResult(out)}
	}
	return results
}

func (l *Loop) transition(from, to RunState) RunState {
	l.logger.Info("run state: %s -> %s", from, to)
	return to
}

func (l *Loop) logFinish(state RunState, iterations int, usage llm.Usage) {
	l.logger.Info("run finished: state=%s iterations=%d prompt_tokens=%d completion_tokens=%d",
		state, iterations, usage.PromptTokens, usage.CompletionTokens)
}

// failedResult renders a tool failure in the shape tools themselves use for
// soft errors, so the model sees one uniform result format.
func failedResult(callID string, err error) llm.ToolResult {
	return llm.ToolResult{
		ToolCallID: callID,
		Content:    encodeResult(map[string]any{"success": false, "error": err.Error()}),
		IsError:    true,
	}
}

// encodeResult marshals a tool result for the result turn. Tool outputs are
// maps built from plain values, so marshaling only fails on programmer
// error; the %v fallback keeps the loop total anyway.
func encodeResult(out any) string {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("%v", out)
	}
	return string(data)
}
