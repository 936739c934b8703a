package insights

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Chat runs an interactive session reading lines from in until exit, quit or EOF.
func (a *Agent) Chat(ctx context.Context, in io.Reader, out io.Writer) error {
	name := a.Name
	if name == "" {
		name = "Agent"
	}
	fmt.Fprintf(out, "%s ready. Type 'exit' or 'quit' to end the session.\n", name)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := a.Run(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Agent: %s\n", reply)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
