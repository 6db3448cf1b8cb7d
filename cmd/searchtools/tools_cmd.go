package searchtools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/navicore/searchtools/pkg/tools"
)

func newToolsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
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

			tm, err := newToolManager(cfg, logger, cfg.Tools.Enabled)
			if err != nil {
				return err
			}

			infos := tm.Descriptors()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderToolTable(infos))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors with input schemas as JSON")
	return cmd
}

func renderToolTable(infos []tools.ToolInfo) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := "no"
		if info.Enabled {
			status = "yes"
		}
		rows = append(rows, []string{info.Category, info.Name, status, firstLine(info.Description)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers("CATEGORY", "NAME", "ENABLED", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2 && rows[row][2] == "yes":
				return enabledStyle
			case col == 2:
				return disabledStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
