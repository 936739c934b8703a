package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/nexxia-ai/insights/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const OpenAIBaseURL = "https://api.openai.com/v1"

func init() {
	registerStandardModels()
}

func registerStandardModels() {
	models := []struct {
		displayName string
		model       string
		family      string
	}{
		{"GPT 4o", "gpt-4o", "gpt"},
		{"GPT 4o Mini", "gpt-4o-mini", "gpt"},
		{"GPT 4.1", "gpt-4.1", "gpt"},
		{"GPT 4.1 Mini", "gpt-4.1-mini", "gpt"},
	}

	for _, m := range models {
		err := ai.RegisterModel("openai", m.model, ai.ModelInfo{
			DisplayName: m.displayName,
			Family:      m.family,
			BaseURL:     OpenAIBaseURL,
			NewModel:    NewModel,
		})
		if err != nil {
			slog.Error("failed to register model", "model", m.model, "error", err)
		}
	}
}

// NewModel returns a chat completions model. An empty apiKey falls back to OPENAI_API_KEY.
func NewModel(modelName string, apiKey string, baseURLs ...string) *ai.Model {
	url := OpenAIBaseURL
	if len(baseURLs) > 0 && baseURLs[0] != "" {
		url = baseURLs[0]
	}

	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			slog.Error("OPENAI_API_KEY is not set")
		}
	}

	model := &ai.Model{
		ModelName:  modelName,
		APIKey:     apiKey,
		BaseURL:    url,
		Parameters: map[string]any{},
	}
	model.SetGenerateFunc(openaiGenerate)
	return model
}

func openaiGenerate(ctx context.Context, model *ai.Model, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
	return callChatAPI(ctx, createClient(model), model, messages, tools)
}

func createClient(model *ai.Model) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(model.APIKey),
		// ai.Model owns the retry policy
		option.WithMaxRetries(0),
	}

	if model.BaseURL != "" && model.BaseURL != OpenAIBaseURL {
		opts = append(opts, option.WithBaseURL(model.BaseURL))
	}

	return openai.NewClient(opts...)
}

// classifyError marks rate limits, server failures and network errors as ai.ErrTemporary.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ai.ErrTemporary, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ai.ErrTemporary, err)
	}

	return err
}
