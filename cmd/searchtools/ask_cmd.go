package searchtools

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/navicore/searchtools/pkg/chat"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		copyAnswer bool
		raw        bool
		wrap       int
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Ask a model a question it can answer with the search tools",
		Example: `  searchtools ask --model anthropic.claude-3-haiku-20240307-v1:0 where is the config loaded
  searchtools ask --mock find '*.go'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAndMergeConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := chat.NewChatService(cfg.GetChatOptions(logger))
			if err != nil {
				return fmt.Errorf("error initializing chat service: %w", err)
			}
			defer svc.Close()

			backendName, modelID := svc.GetBackendInfo()
			logger.Info("asking", zap.String("backend", backendName), zap.String("model", modelID))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			answer, askErr := svc.Ask(ctx, strings.Join(args, " "))
			if askErr != nil && !errors.Is(askErr, chat.ErrMaxToolRounds) {
				return askErr
			}

			out := cmd.OutOrStdout()
			if !raw {
				printToolCalls(out, answer.ToolCalls)
			}
			if err := printAnswer(out, answer.Content, raw, wrap); err != nil {
				return err
			}
			if opts.showTokenUsage {
				printUsage(out, answer)
			}

			if copyAnswer {
				if err := clipboard.WriteAll(answer.Content); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Could not copy to clipboard: "+err.Error()))
				}
			}
			return askErr
		},
	}

	cmd.Flags().BoolVar(&copyAnswer, "copy", false, "Copy the answer to the clipboard")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the answer as plain Markdown")
	cmd.Flags().IntVar(&wrap, "wrap", 100, "Word wrap width for rendered output")
	return cmd
}

func printToolCalls(w io.Writer, calls []chat.ToolCall) {
	for _, call := range calls {
		line := fmt.Sprintf("→ %s %s", call.Name, string(call.Input))
		if call.IsError {
			line += " (error)"
		}
		fmt.Fprintln(w, toolCallStyle.Render(line))
	}
}

func printAnswer(w io.Writer, content string, raw bool, wrap int) error {
	if raw {
		_, err := fmt.Fprintln(w, content)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		// Fall back to the plain text
		rendered = content + "\n"
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

func printUsage(w io.Writer, answer chat.Answer) {
	keys := make([]string, 0, len(answer.Usage))
	for k := range answer.Usage {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{fmt.Sprintf("rounds=%d", answer.Rounds)}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, answer.Usage[k]))
	}
	fmt.Fprintln(w, toolCallStyle.Render(strings.Join(parts, " ")))
}
