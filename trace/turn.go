package trace

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nexxia-ai/insights/ai"
)

// Turn is one agent run: the messages sent and, on success, everything the model
// and the tools added.
type Turn struct {
	Agent    string
	Model    string
	Messages []ai.Message
	Err      error
}

func (t Turn) write(w io.Writer, start time.Time) {
	fmt.Fprintf(w, "====> [%s] Start %s (%s)\n", start.Format("15:04:05"), t.Agent, t.Model)

	for _, message := range t.Messages {
		role, content := message.Value()
		switch msg := message.(type) {
		case ai.AIMessage:
			fmt.Fprintf(w, "assistant:\n")
			writeContent(w, "content", msg.Content)
			if msg.Think != "" {
				writeContent(w, "think", msg.Think)
			}
			for _, tc := range msg.ToolCalls {
				fmt.Fprintf(w, " tool request:\n")
				fmt.Fprintf(w, "   tool_call_id: %s\n", tc.ID)
				fmt.Fprintf(w, "   tool_name: %s\n", tc.Name)
				fmt.Fprintf(w, "   tool_args: %s\n", tc.Args)
			}
			if u := msg.Response.Usage; u.TotalTokens > 0 {
				fmt.Fprintf(w, " usage: prompt=%d completion=%d total=%d\n", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
			}
		case ai.ToolMessage:
			fmt.Fprintf(w, "%s:\n", role)
			fmt.Fprintf(w, " tool_call_id: %s\n", msg.ToolCallID)
			writeContent(w, "content", msg.Content)
		default:
			fmt.Fprintf(w, "%s:\n", role)
			writeContent(w, "content", content)
		}
	}

	if t.Err != nil {
		fmt.Fprintf(w, "Error: %v\n", t.Err)
	}
	fmt.Fprintf(w, "==== End %s\n", t.Agent)
}

func writeContent(w io.Writer, label, content string) {
	if content == "" {
		fmt.Fprintf(w, " %s: (empty)\n", label)
		return
	}
	fmt.Fprintf(w, " %s:\n", label)
	for _, line := range strings.Split(content, "\n") {
		if line != "" {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
}
