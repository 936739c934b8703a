package ai

import (
	"context"
)

// NewDummyModel is useful for testing purposes. It allows you to mock the model's response.
func NewDummyModel(responseFunc func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error)) *Model {
	return &Model{
		ModelName: "dummy",
		callFunc: func(ctx context.Context, model *Model, messages []Message, tools []Tool) (AIMessage, error) {
			return responseFunc(ctx, messages, tools)
		},
	}
}

// NewScriptedModel replays responses in order and repeats the last one when exhausted.
func NewScriptedModel(responses ...AIMessage) *Model {
	i := 0
	return NewDummyModel(func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
		if len(responses) == 0 {
			return AIMessage{Role: AssistantRole}, nil
		}
		resp := responses[i]
		if i < len(responses)-1 {
			i++
		}
		return resp, nil
	})
}
