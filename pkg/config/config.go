package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/chat"
	"github.com/navicore/searchtools/pkg/logging"
	"github.com/navicore/searchtools/pkg/tools/categories/search"
	"github.com/navicore/searchtools/pkg/workspace"
)

// Config represents the application configuration
type Config struct {
	// Chat settings
	Chat ChatConfig `json:"chat" yaml:"chat"`

	// Tool settings
	Tools ToolsConfig `json:"tools" yaml:"tools"`

	// Search settings
	Search SearchConfig `json:"search" yaml:"search"`

	// App settings
	App AppConfig `json:"app" yaml:"app"`
}

// ChatConfig represents chat-related configuration
type ChatConfig struct {
	// Backend type (aws-bedrock, mock)
	BackendType string `json:"backend_type" yaml:"backend_type"`

	// Model ID
	ModelID string `json:"model_id" yaml:"model_id"`

	// Default system prompt
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// Maximum number of messages to include in the context
	ContextWindowSize int `json:"context_window_size" yaml:"context_window_size"`

	// Maximum number of tokens in the response
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature for sampling (0.0-1.0)
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Top-P sampling parameter; when set it is sent instead of temperature
	TopP float64 `json:"top_p" yaml:"top_p"`

	// Backend round trips allowed for one prompt
	MaxToolRounds int `json:"max_tool_rounds" yaml:"max_tool_rounds"`

	// AWS options
	AWS AWSConfig `json:"aws" yaml:"aws"`
}

// AWSConfig contains AWS-specific configuration
type AWSConfig struct {
	// AWS region
	Region string `json:"region" yaml:"region"`

	// AWS profile
	Profile string `json:"profile" yaml:"profile"`
}

// ToolsConfig controls which tools the model may call
type ToolsConfig struct {
	Enabled            bool     `json:"enabled" yaml:"enabled"`
	Categories         []string `json:"categories" yaml:"categories"`
	MaxToolsPerMessage int      `json:"max_tools_per_message" yaml:"max_tools_per_message"`
}

// SearchConfig holds settings for the search tools
type SearchConfig struct {
	// Workspace root; empty means the current directory
	Root string `json:"root" yaml:"root"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`

	// Log file
	LogFile string `json:"log_file" yaml:"log_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Chat: ChatConfig{
			BackendType:       string(backend.BackendMock),
			ModelID:           "mock",
			SystemPrompt:      "", // Use the default from chat service
			ContextWindowSize: 20,
			MaxTokens:         1000,
			Temperature:       0.7,
			TopP:              0, // Unset, temperature is used
			MaxToolRounds:     10,
		},
		Tools: ToolsConfig{
			Enabled:            true,
			Categories:         []string{search.CategoryID},
			MaxToolsPerMessage: 10,
		},
	}
}

// DefaultPath returns $HOME/.config/searchtools/config.json
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "searchtools", "config.json"), nil
}

// LoadConfig loads the configuration from the specified file. A missing
// file is created with the defaults.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return config, err
		}
		configPath = path
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return config, fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := SaveConfig(config, configPath); err != nil {
			return config, fmt.Errorf("failed to save default config: %w", err)
		}

		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(configPath) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, config.Validate()
}

// SaveConfig saves the configuration to the specified file
func SaveConfig(config Config, configPath string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(configPath) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 1 {
		errs = append(errs, fmt.Errorf("chat.temperature must be between 0 and 1, got %g", c.Chat.Temperature))
	}
	if c.Chat.TopP < 0 || c.Chat.TopP > 1 {
		errs = append(errs, fmt.Errorf("chat.top_p must be between 0 and 1, got %g", c.Chat.TopP))
	}
	if c.Chat.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("chat.max_tokens must not be negative"))
	}
	if c.Chat.ContextWindowSize < 0 {
		errs = append(errs, fmt.Errorf("chat.context_window_size must not be negative"))
	}
	if c.Chat.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("chat.max_tool_rounds must not be negative"))
	}
	if c.Tools.MaxToolsPerMessage < 0 {
		errs = append(errs, fmt.Errorf("tools.max_tools_per_message must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// BackendType maps the configured name to a backend type. "bedrock" is
// accepted as an alias.
func (c *Config) BackendType() backend.BackendType {
	switch c.Chat.BackendType {
	case "aws-bedrock", "bedrock":
		return backend.BackendAWSBedrock
	case "", "mock":
		return backend.BackendMock
	default:
		return backend.BackendType(c.Chat.BackendType)
	}
}

// ApplySearchRoot exports Search.Root for the search tools unless the
// environment already names a root. It must run before the first tool call.
func (c *Config) ApplySearchRoot() error {
	if c.Search.Root == "" || os.Getenv(workspace.RootEnv) != "" {
		return nil
	}
	return os.Setenv(workspace.RootEnv, c.Search.Root)
}

// NewLogger builds the application logger from the app settings
func (c *Config) NewLogger() (*zap.Logger, error) {
	return logging.NewLogger(logging.Options{Debug: c.App.Debug, LogFile: c.App.LogFile})
}

// GetChatOptions converts the configuration to chat options
func (c *Config) GetChatOptions(logger *zap.Logger) chat.ChatOptions {
	backendType := c.BackendType()

	// Extract backend-specific options
	backendOptions := make(map[string]any)
	if backendType == backend.BackendAWSBedrock {
		if c.Chat.AWS.Region != "" {
			backendOptions["region"] = c.Chat.AWS.Region
		}
		if c.Chat.AWS.Profile != "" {
			backendOptions["profile"] = c.Chat.AWS.Profile
		}
	}

	systemPrompt := c.Chat.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = chat.GetDefaultSystemPrompt()
	}

	return chat.ChatOptions{
		InitialSystemPrompt:   systemPrompt,
		BackendType:           backendType,
		ModelID:               c.Chat.ModelID,
		ContextWindowSize:     c.Chat.ContextWindowSize,
		MaxTokens:             c.Chat.MaxTokens,
		Temperature:           c.Chat.Temperature,
		TopP:                  c.Chat.TopP,
		BackendOptions:        backendOptions,
		EnableTools:           c.Tools.Enabled,
		EnabledToolCategories: c.Tools.Categories,
		MaxToolRounds:         c.Chat.MaxToolRounds,
		MaxToolsPerMessage:    c.Tools.MaxToolsPerMessage,
		Logger:                logger,
	}
}
