package openai

import (
	"context"
	"fmt"

	"github.com/nexxia-ai/insights/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

func callChatAPI(ctx context.Context, client openai.Client, model *ai.Model, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
	chatMsgs, err := toChatMessages(messages)
	if err != nil {
		return ai.AIMessage{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model.ModelName),
		Messages: chatMsgs,
		Tools:    toChatTools(tools),
	}
	applyOptions(&params, model)

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.AIMessage{}, classifyError(err)
	}

	aiMsg := fromChatResponse(resp)
	aiMsg.Content, aiMsg.Think = ai.ExtractThinkTags(aiMsg.Content)
	return aiMsg, nil
}

func applyOptions(params *openai.ChatCompletionNewParams, model *ai.Model) {
	if model.Temperature != nil {
		params.Temperature = openai.Opt(*model.Temperature)
	}
	if model.MaxTokens != nil {
		params.MaxTokens = openai.Opt(int64(*model.MaxTokens))
	}
	if model.TopP != nil {
		params.TopP = openai.Opt(*model.TopP)
	}
	if model.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Opt(*model.FrequencyPenalty)
	}
	if model.PresencePenalty != nil {
		params.PresencePenalty = openai.Opt(*model.PresencePenalty)
	}
	if model.StopSequences == nil || len(*model.StopSequences) == 0 {
		return
	}
	stops := *model.StopSequences
	if len(stops) == 1 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfString: openai.Opt(stops[0])}
		return
	}
	params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stops}
}
