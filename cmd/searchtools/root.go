package searchtools

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent command line flags
type rootOptions struct {
	configFile     string
	backendType    string
	modelID        string
	awsRegion      string
	awsProfile     string
	temperature    float64
	maxTokens      int
	contextSize    int
	systemPrompt   string
	mockMode       bool
	showTokenUsage bool
	debugMode      bool
	logFile        string
	enableTools    bool
	categories     string
	maxToolRounds  int
	root           string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "searchtools",
		Short: "File search tools for LLM tool use",
		Long: `Search file names and contents in a workspace, directly or through a model.

The search_in_files and find_files tools can be listed, run by hand, or
offered to a model that calls them while answering a question.

Available backends:
- AWS Bedrock (Claude, etc.)
- Mock (offline, for testing)

Use the --model flag to specify the model ID, such as:
- us.anthropic.claude-3-7-sonnet-20250219-v1:0
- anthropic.claude-3-sonnet-20240229-v1:0
- anthropic.claude-3-haiku-20240307-v1:0`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Configuration flags
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file path, .json or .yaml (default is $HOME/.config/searchtools/config.json)")
	rootCmd.PersistentFlags().StringVar(&opts.root, "root", "", "Workspace root the tools may read (default is $SEARCHTOOLS_ROOT, then the current directory)")

	// Backend-related flags
	rootCmd.PersistentFlags().StringVar(&opts.backendType, "backend", "", "Backend type (aws-bedrock, mock)")
	rootCmd.PersistentFlags().StringVar(&opts.modelID, "model", "", "Model ID (e.g., us.anthropic.claude-3-7-sonnet-20250219-v1:0)")
	rootCmd.PersistentFlags().StringVar(&opts.awsRegion, "aws-region", "", "AWS region for Bedrock")
	rootCmd.PersistentFlags().StringVar(&opts.awsProfile, "aws-profile", "", "AWS profile for Bedrock")
	rootCmd.PersistentFlags().BoolVar(&opts.mockMode, "mock", false, "Use mock backend (for testing)")

	// Model parameters
	rootCmd.PersistentFlags().Float64Var(&opts.temperature, "temperature", 0.7, "Temperature for sampling (0.0-1.0)")
	rootCmd.PersistentFlags().IntVar(&opts.maxTokens, "max-tokens", 1000, "Maximum tokens in response")
	rootCmd.PersistentFlags().IntVar(&opts.contextSize, "context-size", 20, "Number of messages to include in context")
	rootCmd.PersistentFlags().StringVar(&opts.systemPrompt, "system-prompt", "", "System prompt for the conversation")

	// Output flags
	rootCmd.PersistentFlags().BoolVar(&opts.showTokenUsage, "show-tokens", false, "Show token usage statistics")

	// App flags
	rootCmd.PersistentFlags().BoolVar(&opts.debugMode, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Write logs to this file")

	// Tools flags
	rootCmd.PersistentFlags().BoolVar(&opts.enableTools, "enable-tools", true, "Offer the search tools to the model (search_in_files, find_files)")
	rootCmd.PersistentFlags().StringVar(&opts.categories, "categories", "", "Comma-separated tool categories to enable")
	rootCmd.PersistentFlags().IntVar(&opts.maxToolRounds, "max-tool-rounds", 10, "Backend round trips allowed per prompt")

	rootCmd.AddCommand(
		newToolsCmd(opts),
		newRunCmd(opts),
		newAskCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
