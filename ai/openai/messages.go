package openai

import (
	"fmt"

	"github.com/nexxia-ai/insights/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

func toChatMessages(msgs []ai.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch m := msg.(type) {
		case ai.SystemMessage:
			result = append(result, openai.SystemMessage(m.Content))
		case ai.UserMessage:
			result = append(result, openai.UserMessage(m.Content))
		case ai.AIMessage:
			result = append(result, toChatAssistantMessage(m))
		case ai.ToolMessage:
			result = append(result, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			return nil, fmt.Errorf("unsupported message type: %T", msg)
		}
	}
	return result, nil
}

func toChatAssistantMessage(msg ai.AIMessage) openai.ChatCompletionMessageParamUnion {
	assistant := &openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.Opt(msg.Content),
		},
	}
	for _, tc := range msg.ToolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func toChatTools(tools []ai.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		result[i] = openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.Opt(tool.Description),
					Parameters:  tool.InputSchema,
				},
			},
		}
	}
	return result
}

func fromChatResponse(resp *openai.ChatCompletion) ai.AIMessage {
	if len(resp.Choices) == 0 {
		return ai.AIMessage{Role: ai.AssistantRole}
	}
	msg := resp.Choices[0].Message

	aiMsg := ai.AIMessage{
		Role:    ai.AssistantRole,
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		aiMsg.ToolCalls = append(aiMsg.ToolCalls, ai.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Name: tc.Function.Name,
			Args: tc.Function.Arguments,
		})
	}

	aiMsg.Response = ai.Response{
		ID:      resp.ID,
		Object:  string(resp.Object),
		Created: resp.Created,
		Model:   string(resp.Model),
		Usage: ai.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	return aiMsg
}
