package searchtools

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/config"
	"github.com/navicore/searchtools/pkg/tools"
	"github.com/navicore/searchtools/pkg/workspace"
)

// loadAndMergeConfig loads the configuration file and merges it with command line flags
func loadAndMergeConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return cfg, err
	}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	// Override with command line flags if provided
	if opts.mockMode {
		cfg.Chat.BackendType = string(backend.BackendMock)
		cfg.Chat.ModelID = "mock"
	} else if opts.backendType != "" {
		cfg.Chat.BackendType = opts.backendType
	}

	if opts.modelID != "" {
		cfg.Chat.ModelID = opts.modelID
	}

	// If model is specified but no backend, set appropriate backend
	if opts.modelID != "" && opts.backendType == "" && !opts.mockMode {
		if strings.Contains(opts.modelID, "claude") || strings.Contains(opts.modelID, "anthropic") {
			cfg.Chat.BackendType = string(backend.BackendAWSBedrock)
		}
	}

	// If neither backend nor model is specified, but AWS region is, use AWS Bedrock
	if opts.backendType == "" && opts.modelID == "" && opts.awsRegion != "" && !opts.mockMode {
		cfg.Chat.BackendType = string(backend.BackendAWSBedrock)
		cfg.Chat.ModelID = backend.ModelClaude37Sonnet
	}

	// AWS specific flags
	if opts.awsRegion != "" {
		cfg.Chat.AWS.Region = opts.awsRegion
	}
	if opts.awsProfile != "" {
		cfg.Chat.AWS.Profile = opts.awsProfile
	}

	// Model parameters
	if changed("temperature") {
		cfg.Chat.Temperature = opts.temperature
	}
	if changed("max-tokens") {
		cfg.Chat.MaxTokens = opts.maxTokens
	}
	if changed("context-size") {
		cfg.Chat.ContextWindowSize = opts.contextSize
	}
	if changed("max-tool-rounds") {
		cfg.Chat.MaxToolRounds = opts.maxToolRounds
	}
	if opts.systemPrompt != "" {
		cfg.Chat.SystemPrompt = opts.systemPrompt
	}

	// App flags
	if opts.debugMode {
		cfg.App.Debug = true
	}
	if opts.logFile != "" {
		cfg.App.LogFile = opts.logFile
	}

	// Tools flags
	if changed("enable-tools") {
		cfg.Tools.Enabled = opts.enableTools
	}
	if opts.categories != "" {
		cfg.Tools.Categories = splitList(opts.categories)
	}
	if opts.root != "" {
		cfg.Search.Root = opts.root
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	// The flag beats the environment; the config file does not
	if opts.root != "" {
		if err := os.Setenv(workspace.RootEnv, opts.root); err != nil {
			return cfg, fmt.Errorf("failed to set workspace root: %w", err)
		}
	} else if err := cfg.ApplySearchRoot(); err != nil {
		return cfg, fmt.Errorf("failed to set workspace root: %w", err)
	}

	return cfg, nil
}

// newLogger logs only when asked to, so command output stays clean
func newLogger(cfg config.Config) (*zap.Logger, error) {
	if !cfg.App.Debug && cfg.App.LogFile == "" {
		return zap.NewNop(), nil
	}
	return cfg.NewLogger()
}

// newToolManager builds a manager with every tool registered and the
// configured categories enabled. enabled switches tool use as a whole.
func newToolManager(cfg config.Config, logger *zap.Logger, enabled bool) (*tools.ToolManager, error) {
	tm, err := tools.Initialize(logger)
	if err != nil {
		return nil, err
	}
	tm.EnableTools(enabled)
	if cfg.Tools.MaxToolsPerMessage > 0 {
		tm.SetMaxToolsPerMsg(cfg.Tools.MaxToolsPerMessage)
	}
	if len(cfg.Tools.Categories) > 0 {
		if err := tm.EnableCategoriesByIDs(cfg.Tools.Categories); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
