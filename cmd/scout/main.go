// Scout is a command-line research agent. It answers questions by
// letting a language model search the web and scrape pages in a short
// reason-and-act loop, and remembers the conversation across restarts.
//
// Usage:
//
//	scout [model]            Start an interactive chat (same as "scout chat")
//	scout chat [model]       Start an interactive chat
//	scout ask <question>     Ask a single question and exit
//	scout history            Print the saved conversation
//	scout clear              Forget the saved conversation
//	scout version            Print version and build information
//	scout -o json version    Output version information as JSON
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// main builds the OS-level environment and hands off to [run] so the
// whole command can be driven from tests.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Conversation output goes to stdout,
// structured logs go to stderr.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	outputFmt  string
	logLevel   string
}

func (o *globalOptions) validate() error {
	if o.outputFmt != "text" && o.outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", o.outputFmt)
	}
	return nil
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	chat := chatCmd(opts, stdin, stdout, stderr)
	root := &cobra.Command{
		Use:           "scout [model]",
		Short:         "A web research agent for the terminal",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: chat.RunE,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: auto-discover)")
	pf.StringVarP(&opts.outputFmt, "output", "o", "text", "output format: text or json")
	pf.StringVar(&opts.logLevel, "log-level", "", "override log_level from the config file")

	root.AddCommand(
		chat,
		askCmd(opts, stdout, stderr),
		historyCmd(opts, stdout, stderr),
		clearCmd(opts, stdout, stderr),
		versionCmd(opts, stdout),
	)
	return root
}
