package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nugget/scout/internal/buildinfo"
	"github.com/nugget/scout/internal/memory"
)

func chatCmd(opts *globalOptions, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [model]",
		Short: "Start an interactive chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.setup(stderr)
			if err != nil {
				return err
			}

			model := cfg.Model.Default
			if len(args) > 0 {
				model = args[0]
			}
			fmt.Fprintf(stdout, "Using model: %s\n", model)

			a, err := newApp(ctx, cfg, logger, model)
			if err != nil {
				return fmt.Errorf("failed to initialize agent: %w", err)
			}
			defer a.Close()

			return runREPL(ctx, stdin, stdout, a.agent)
		},
	}
}

func askCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.setup(stderr)
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.Model.Default
			}

			a, err := newApp(ctx, cfg, logger, model)
			if err != nil {
				return fmt.Errorf("failed to initialize agent: %w", err)
			}
			defer a.Close()

			res := a.agent.RunDetailed(ctx, strings.Join(args, " "))
			if opts.outputFmt == "json" {
				out := struct {
					RequestID  string `json:"request_id"`
					Outcome    string `json:"outcome"`
					ModelCalls int    `json:"model_calls"`
					ToolCalls  int    `json:"tool_calls"`
					Answer     string `json:"answer"`
				}{res.RequestID, res.Outcome.String(), res.ModelCalls, len(res.ToolCalls), res.Text}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintln(stdout, res.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use (default: model.default)")
	return cmd
}

func historyCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.setup(stderr)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			turns := store.History()
			if opts.outputFmt == "json" {
				data, err := memory.Encode(turns)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout, string(data))
				return err
			}

			if len(turns) == 0 {
				fmt.Fprintln(stdout, "No conversation history.")
				return nil
			}
			for _, t := range turns {
				fmt.Fprintf(stdout, "[%s] %s\n", t.Speaker, t.Text)
			}
			return nil
		},
	}
}

func clearCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.setup(stderr)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			n := store.Len()
			store.Clear(ctx)
			if store.Degraded() {
				return errors.New("conversation could not be saved after clearing")
			}
			fmt.Fprintf(stdout, "Cleared %d turns.\n", n)
			return nil
		},
	}
}

func versionCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(stdout, opts.outputFmt)
		},
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.BuildInfo()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}
