package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

var separator = strings.Repeat("-", 50)

// conversation is the part of *agent.Agent the REPL drives.
type conversation interface {
	Run(ctx context.Context, input string) string
	Clear(ctx context.Context)
}

// runREPL reads questions from in until exit, quit, EOF or ctx is
// cancelled. Each line is one Run.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, conv conversation) error {
	fmt.Fprintln(out, "Agent ready! Type 'exit' or 'quit' to stop.")
	fmt.Fprintln(out, separator)

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "You: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			default:
			}
			return nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "":
			continue
		case "/clear":
			conv.Clear(ctx)
			fmt.Fprintln(out, "Conversation cleared.")
			fmt.Fprintln(out, separator)
			continue
		}

		answer := conv.Run(ctx, line)
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}
		fmt.Fprintf(out, "Agent: %s\n", answer)
		fmt.Fprintln(out, separator)
	}
}
