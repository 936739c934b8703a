// Package insights holds the conversational Agent shared by the CRM and chart assistants.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nexxia-ai/insights/ai"
	"github.com/nexxia-ai/insights/trace"
)

var ErrNoModel = errors.New("agent has no model")

// Agent pairs a model with a system prompt, a tool set and the conversation so far.
type Agent struct {
	Model        *ai.Model
	Name         string
	ID           string
	Description  string
	Instructions string
	Tools        []ai.Tool
	LogLevel     slog.Level
	Logger       *slog.Logger
	// Tracer, when set, receives every turn including failed ones.
	Tracer *trace.Tracer

	mu      sync.Mutex
	history []ai.Message
}

func (a *Agent) init() {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if a.Logger == nil {
		a.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: a.LogLevel})).With("agent", a.Name)
	}
}

// Run sends message with the prior history and returns the final reply.
func (a *Agent) Run(ctx context.Context, message string) (string, error) {
	transcript, err := a.RunDetailed(ctx, message)
	if err != nil {
		return "", err
	}
	final := transcript[len(transcript)-1].(ai.AIMessage)
	return final.Content, nil
}

// RunDetailed is Run returning every message of the turn, system prompt included.
// The history only grows when the turn succeeds.
func (a *Agent) RunDetailed(ctx context.Context, message string) ([]ai.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.init()

	if a.Model == nil {
		return nil, ErrNoModel
	}

	messages := make([]ai.Message, 0, len(a.history)+2)
	messages = append(messages, ai.NewSystemMessage(a.systemMessage()))
	messages = append(messages, a.history...)
	messages = append(messages, ai.NewUserMessage(message))

	a.Logger.Debug("calling LLM", "model", a.Model.ModelName, "messages", len(messages), "tools", len(a.Tools))
	transcript, err := a.Model.Converse(ctx, messages, a.Tools)
	if err != nil {
		a.Logger.Error("agent run failed", "error", err)
		a.trace(messages, err)
		return nil, err
	}
	a.trace(transcript, nil)

	final := transcript[len(transcript)-1].(ai.AIMessage)
	a.Logger.Debug("LLM call completed", "model", a.Model.ModelName, "messages", len(transcript)-len(messages))
	a.history = append(a.history, ai.NewUserMessage(message), ai.AIMessage{Role: ai.AssistantRole, Content: final.Content})
	return transcript, nil
}

// History returns a copy of the user and assistant messages exchanged so far.
func (a *Agent) History() []ai.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ai.Message(nil), a.history...)
}

func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

func (a *Agent) trace(messages []ai.Message, err error) {
	if a.Tracer == nil {
		return
	}
	path, traceErr := a.Tracer.Record(trace.Turn{Agent: a.Name, Model: a.Model.ModelName, Messages: messages, Err: err})
	if traceErr != nil {
		a.Logger.Error("failed to write trace", "error", traceErr)
		return
	}
	a.Logger.Debug("trace written", "file", path)
}

func (a *Agent) systemMessage() string {
	var sb strings.Builder
	sb.WriteString(a.Description)
	if a.Instructions != "" {
		sb.WriteString("\n<instructions>\n")
		sb.WriteString(a.Instructions)
		sb.WriteString("\n</instructions>\n")
	}

	if len(a.Tools) > 0 {
		sb.WriteString("\n<tools>\nYou have access to the following tools:\n")
		for _, tool := range a.Tools {
			fmt.Fprintf(&sb, "<tool>\n%s\n%s\n</tool>\n", tool.Name, tool.Description)
		}
		sb.WriteString("</tools>\n")
	}
	return sb.String()
}
