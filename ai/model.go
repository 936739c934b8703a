package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrToolExceeded = errors.New("tool loop limit exceeded")
	ErrTemporary    = errors.New("temporary model error")
	ErrNoProvider   = errors.New("model has no provider function")
)

const (
	defaultMaxRetries    = 2
	defaultRetryInterval = 500 * time.Millisecond
	maxToolIterations    = 32
)

type CallFunc func(ctx context.Context, model *Model, messages []Message, tools []Tool) (AIMessage, error)

// Model represents a generic model container that uses function variables for provider-specific logic
type Model struct {
	ModelName string
	APIKey    string
	BaseURL   string

	callFunc CallFunc

	// Options pointer variables - use nil to represent option not set
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	StopSequences    *[]string
	Parameters       map[string]interface{} // additional non-standard parameters for the model

	// MaxRetries bounds the retries of ErrTemporary failures; nil means the default
	MaxRetries    *int
	retryInterval time.Duration
}

// Call makes a single call to the model. It does not execute any tool calls, but return the requested ToolCalls.
// Temporary failures are retried with exponential backoff.
func (m *Model) Call(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
	if m.callFunc == nil {
		return AIMessage{}, ErrNoProvider
	}

	retries := defaultMaxRetries
	if m.MaxRetries != nil {
		retries = *m.MaxRetries
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = defaultRetryInterval
	if m.retryInterval > 0 {
		policy.InitialInterval = m.retryInterval
	}

	var response AIMessage
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := m.callFunc(ctx, m, messages, tools)
		if err == nil {
			response = resp
			return nil
		}
		if !errors.Is(err, ErrTemporary) {
			return backoff.Permanent(err)
		}
		slog.Warn("model call failed, retrying", "model", m.ModelName, "attempt", attempt, "error", err)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
	return response, err
}

// Generate runs the tool loop and returns the final assistant message.
func (m *Model) Generate(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
	transcript, err := m.Converse(ctx, messages, tools)
	if err != nil {
		return AIMessage{}, err
	}
	return transcript[len(transcript)-1].(AIMessage), nil
}

// Converse executes a complete conversation with the tool execution loop and returns
// every message exchanged, starting with the input messages. The last message is the
// final AIMessage.
func (m *Model) Converse(ctx context.Context, messages []Message, tools []Tool) ([]Message, error) {
	transcript := append([]Message(nil), messages...)

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		respMsg, err := m.Call(ctx, transcript, tools)
		if err != nil {
			return nil, err
		}
		transcript = append(transcript, respMsg)

		if len(respMsg.ToolCalls) == 0 {
			return transcript, nil
		}

		for _, toolCall := range respMsg.ToolCalls {
			transcript = append(transcript, ToolMessage{
				Role:       ToolRole,
				Content:    runToolCall(ctx, tools, toolCall),
				ToolCallID: toolCall.ID,
			})
		}
	}

	return nil, ErrToolExceeded
}

func runToolCall(ctx context.Context, tools []Tool, toolCall ToolCall) string {
	var tool *Tool
	for i := range tools {
		if tools[i].Name == toolCall.Name {
			tool = &tools[i]
			break
		}
	}
	if tool == nil {
		return fmt.Sprintf("error: unknown tool %s", toolCall.Name)
	}

	args := map[string]interface{}{}
	if strings.TrimSpace(toolCall.Args) != "" {
		if err := json.Unmarshal([]byte(toolCall.Args), &args); err != nil {
			return fmt.Sprintf("error: invalid JSON args: %v", err)
		}
	}

	slog.Debug("tool call", "tool", tool.Name, "id", toolCall.ID)
	result, err := tool.Call(ctx, args)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return result.Text()
}

// WithTemperature sets the temperature for the model and returns the model for chaining
func (m *Model) WithTemperature(temperature float64) *Model {
	m.Temperature = &temperature
	return m
}

// WithMaxTokens sets the maximum tokens for the model and returns the model for chaining
func (m *Model) WithMaxTokens(maxTokens int) *Model {
	m.MaxTokens = &maxTokens
	return m
}

// WithTopP sets the top_p parameter for the model and returns the model for chaining
func (m *Model) WithTopP(topP float64) *Model {
	m.TopP = &topP
	return m
}

func (m *Model) WithFrequencyPenalty(penalty float64) *Model {
	m.FrequencyPenalty = &penalty
	return m
}

func (m *Model) WithPresencePenalty(penalty float64) *Model {
	m.PresencePenalty = &penalty
	return m
}

func (m *Model) WithStopSequences(sequences []string) *Model {
	m.StopSequences = &sequences
	return m
}

// WithRetry sets the retry budget for temporary errors and the first backoff interval.
func (m *Model) WithRetry(maxRetries int, interval time.Duration) *Model {
	m.MaxRetries = &maxRetries
	m.retryInterval = interval
	return m
}

func (m *Model) WithParameter(name string, value interface{}) *Model {
	if m.Parameters == nil {
		m.Parameters = map[string]interface{}{}
	}
	m.Parameters[name] = value
	return m
}

// SetGenerateFunc sets the provider function for the model.
func (m *Model) SetGenerateFunc(fn CallFunc) {
	m.callFunc = fn
}

// ExtractThinkTags extracts <think>...</think> tags from the content and returns both the cleaned content and the think part
func ExtractThinkTags(content string) (cleanedContent string, thinkPart string) {
	startTag := "<think>"
	endTag := "</think>"

	start := strings.Index(content, startTag)
	if start == -1 {
		return content, ""
	}

	end := strings.Index(content[start:], endTag)
	if end == -1 {
		return content, ""
	}
	end += start + len(endTag)

	thinkPart = content[start+len(startTag) : end-len(endTag)]
	cleanedContent = content[:start] + content[end:]

	return strings.TrimSpace(cleanedContent), strings.TrimSpace(thinkPart)
}
