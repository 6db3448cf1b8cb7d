package searchtools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/navicore/searchtools/pkg/tools/core"
)

// errToolFailed marks a run whose tool answered with an error result
var errToolFailed = errors.New("tool returned an error")

func newRunCmd(opts *rootOptions) *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "run <tool> [input-json | -]",
		Short: "Run one tool and print its JSON result",
		Long: `Run one tool with a JSON input object and print the result.

The input comes from the second argument, from --input-file, or from
stdin when the argument is "-". Without any of them the input is {}.`,
		Example: `  searchtools run search_in_files '{"pattern": "func main"}'
  searchtools run find_files '{"pattern": "**/*_test.go", "type": "f"}'
  echo '{"name": "*.md"}' | searchtools run find_files -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readToolInput(cmd.InOrStdin(), args[1:], inputFile)
			if err != nil {
				return err
			}

			cfg, err := loadAndMergeConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// Naming a tool on the command line is explicit consent to run it
			tm, err := newToolManager(cfg, logger, true)
			if err != nil {
				return err
			}

			result, err := tm.HandleToolUse(cmd.Context(), &core.ToolUse{ID: "cli", Name: args[0], Input: input})
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := json.Indent(&out, result.Result, "", "  "); err != nil {
				return fmt.Errorf("invalid tool result: %w", err)
			}
			out.WriteByte('\n')
			if _, err := cmd.OutOrStdout().Write(out.Bytes()); err != nil {
				return err
			}
			if result.IsError {
				return fmt.Errorf("%s: %w", args[0], errToolFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputFile, "input-file", "", "Read the JSON input from this file")
	return cmd
}

// readToolInput picks the tool input from args, a file or stdin and
// checks that it is a JSON object
func readToolInput(stdin io.Reader, args []string, inputFile string) (json.RawMessage, error) {
	var data []byte
	switch {
	case inputFile != "" && len(args) > 0:
		return nil, fmt.Errorf("use either an input argument or --input-file, not both")
	case inputFile != "":
		b, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		data = b
	case len(args) > 0 && args[0] == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read input from stdin: %w", err)
		}
		data = b
	case len(args) > 0:
		data = []byte(args[0])
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("tool input must be a JSON object: %w", err)
	}
	return json.RawMessage(data), nil
}
