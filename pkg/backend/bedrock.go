package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

const (
	// Claude models - AWS Bedrock model IDs
	// Some models use the us.anthropic.* prefix (US region specific models)
	// Others use the anthropic.* prefix (available in multiple regions)
	ModelClaude37Sonnet = "us.anthropic.claude-3-7-sonnet-20250219-v1:0" // US region model
	ModelClaude3Sonnet  = "anthropic.claude-3-sonnet-20240229-v1:0"      // Multi-region model
	ModelClaude3Haiku   = "anthropic.claude-3-haiku-20240307-v1:0"       // Multi-region model
	ModelClaude3Opus    = "anthropic.claude-3-opus-20240229-v1:0"        // Multi-region model

	// Default parameters
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

func init() {
	RegisterBackend(BackendAWSBedrock, NewBedrockBackend)
}

// converseAPI is the part of the Bedrock runtime client the backend uses
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockBackend implements the Backend interface for AWS Bedrock using
// the Converse API
type BedrockBackend struct {
	client  converseAPI
	config  Config
	modelID string
	logger  *zap.Logger
}

// NewBedrockBackend creates a new AWS Bedrock backend
func NewBedrockBackend(config Config) (Backend, error) {
	// Validate config
	if config.ModelID == "" {
		return nil, NewBackendError(
			ErrCodeInvalidConfiguration,
			"model ID is required",
			nil,
		)
	}

	// Use AWS SDK to create a Bedrock client with default credentials and region
	cfg, err := LoadAWSConfig(context.Background(), config.Options)
	if err != nil {
		return nil, NewBackendError(
			ErrCodeAuthentication,
			"failed to load AWS configuration",
			err,
		)
	}

	return newBedrockBackend(bedrockruntime.NewFromConfig(cfg), config), nil
}

func newBedrockBackend(client converseAPI, config Config) *BedrockBackend {
	// Set default parameters if not specified
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature <= 0 {
		config.Temperature = DefaultTemperature
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BedrockBackend{
		client:  client,
		config:  config,
		modelID: config.ModelID,
		logger:  logger.Named("bedrock"),
	}
}

// LoadAWSConfig loads AWS configuration with optional overrides
func LoadAWSConfig(ctx context.Context, options map[string]any) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{}

	// Apply custom region if specified
	if region, ok := options["region"].(string); ok && region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}

	// Apply AWS profile if specified
	if profile, ok := options["profile"].(string); ok && profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}

	// Load the configuration
	return config.LoadDefaultConfig(ctx, loadOpts...)
}

// Name returns the name of the backend
func (b *BedrockBackend) Name() string {
	return "AWS Bedrock"
}

// Type returns the type of the backend
func (b *BedrockBackend) Type() BackendType {
	return BackendAWSBedrock
}

// ModelID returns the model identifier
func (b *BedrockBackend) ModelID() string {
	return b.modelID
}

// SendMessage sends the conversation to Bedrock and converts the reply
func (b *BedrockBackend) SendMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	system, messages, err := toConverseMessages(req.Messages)
	if err != nil {
		return ChatResponse{Error: err}, NewBackendError(
			ErrCodeInvalidRequest,
			"failed to convert messages",
			err,
		)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(b.modelID),
		Messages:        messages,
		System:          system,
		InferenceConfig: b.inferenceConfig(req),
		ToolConfig:      toToolConfig(req.Tools),
	}

	b.logger.Debug("converse request",
		zap.String("model", b.modelID),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(req.Tools)))

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return ChatResponse{Error: err}, mapBedrockError(err)
	}

	resp, err := fromConverseOutput(out)
	if err != nil {
		return ChatResponse{Error: err}, NewBackendError(
			ErrCodeUnknown,
			"failed to read Converse response",
			err,
		)
	}

	b.logger.Debug("converse response",
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("tool_uses", len(resp.ToolUses)),
		zap.Int("total_tokens", resp.Usage["total_tokens"]))

	return resp, nil
}

// Close closes any resources held by the backend
func (b *BedrockBackend) Close() error {
	// No resources to close for Bedrock
	return nil
}

func (b *BedrockBackend) inferenceConfig(req ChatRequest) *types.InferenceConfiguration {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.config.MaxTokens
	}

	// Temperature must be between 0 and 1
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = b.config.Temperature
	}
	if temperature > 1 {
		temperature = 1
	}

	cfg := &types.InferenceConfiguration{
		MaxTokens: aws.Int32(int32(maxTokens)),
	}

	// Newer Claude models reject requests that set both, so a top_p in
	// (0,1] replaces the temperature
	if req.TopP > 0 && req.TopP <= 1 {
		cfg.TopP = aws.Float32(float32(req.TopP))
	} else {
		cfg.Temperature = aws.Float32(float32(temperature))
	}
	if req.Options != nil {
		if val, ok := req.Options["stop_sequences"].([]string); ok && len(val) > 0 {
			cfg.StopSequences = val
		}
	}
	return cfg
}

// toConverseMessages splits out system prompts and converts the rest into
// Converse messages. Consecutive messages with the same role are merged
// since Converse requires alternating roles.
func toConverseMessages(msgs []Message) ([]types.SystemContentBlock, []types.Message, error) {
	var system []types.SystemContentBlock
	var out []types.Message

	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			if msg.Content != "" {
				system = append(system, &types.SystemContentBlockMemberText{Value: msg.Content})
			}
			continue
		}

		var role types.ConversationRole
		switch msg.Role {
		case RoleUser:
			role = types.ConversationRoleUser
		case RoleAssistant:
			role = types.ConversationRoleAssistant
		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}

		blocks, err := contentBlocks(msg)
		if err != nil {
			return nil, nil, err
		}
		if len(blocks) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, types.Message{Role: role, Content: blocks})
	}
	return system, out, nil
}

func contentBlocks(msg Message) ([]types.ContentBlock, error) {
	var blocks []types.ContentBlock

	// Tool results must lead the user turn that answers a tool request
	for _, tr := range msg.ToolResults {
		status := types.ToolResultStatusSuccess
		if tr.IsError {
			status = types.ToolResultStatusError
		}
		blocks = append(blocks, &types.ContentBlockMemberToolResult{
			Value: types.ToolResultBlock{
				ToolUseId: aws.String(tr.ToolUseID),
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberText{Value: string(tr.Result)},
				},
				Status: status,
			},
		})
	}

	if strings.TrimSpace(msg.Content) != "" {
		blocks = append(blocks, &types.ContentBlockMemberText{Value: msg.Content})
	}

	for _, tu := range msg.ToolUses {
		input := map[string]interface{}{}
		if len(tu.Input) > 0 {
			if err := json.Unmarshal(tu.Input, &input); err != nil {
				return nil, fmt.Errorf("tool use %s has invalid input: %w", tu.Name, err)
			}
		}
		blocks = append(blocks, &types.ContentBlockMemberToolUse{
			Value: types.ToolUseBlock{
				ToolUseId: aws.String(tu.ID),
				Name:      aws.String(tu.Name),
				Input:     document.NewLazyDocument(input),
			},
		})
	}
	return blocks, nil
}

// toToolConfig converts tool descriptors, returning nil when there are none
func toToolConfig(tools []ClaudeTool) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}

	specs := make([]types.Tool, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Name),
				Description: aws.String(tool.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(tool.InputSchema),
				},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}
}

func fromConverseOutput(out *bedrockruntime.ConverseOutput) (ChatResponse, error) {
	resp := ChatResponse{
		FinishReason: finishReason(out.StopReason),
		Usage:        map[string]int{},
	}

	if out.Usage != nil {
		in := int(aws.ToInt32(out.Usage.InputTokens))
		outTokens := int(aws.ToInt32(out.Usage.OutputTokens))
		resp.Usage["prompt_tokens"] = in
		resp.Usage["completion_tokens"] = outTokens
		resp.Usage["total_tokens"] = in + outTokens
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return resp, fmt.Errorf("unexpected output type %T", out.Output)
	}

	var content strings.Builder
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			content.WriteString(b.Value)
		case *types.ContentBlockMemberToolUse:
			input := json.RawMessage("{}")
			if b.Value.Input != nil {
				raw, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return resp, fmt.Errorf("tool use %s input: %w", aws.ToString(b.Value.Name), err)
				}
				input = raw
			}
			resp.ToolUses = append(resp.ToolUses, ToolUse{
				ID:    aws.ToString(b.Value.ToolUseId),
				Name:  aws.ToString(b.Value.Name),
				Input: input,
			})
		}
	}
	resp.Content = content.String()
	return resp, nil
}

func finishReason(reason types.StopReason) string {
	switch reason {
	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		return FinishStop
	case types.StopReasonToolUse:
		return FinishToolUse
	case types.StopReasonMaxTokens:
		return FinishLength
	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		return FinishFiltered
	default:
		return FinishUnhandled
	}
}

// mapBedrockError maps AWS Bedrock errors to our error types
func mapBedrockError(err error) error {
	var (
		throttling  *types.ThrottlingException
		validation  *types.ValidationException
		denied      *types.AccessDeniedException
		unavailable *types.ServiceUnavailableException
		timeout     *types.ModelTimeoutException
		notReady    *types.ModelNotReadyException
		internal    *types.InternalServerException
		notFound    *types.ResourceNotFoundException
	)

	switch {
	case errors.As(err, &throttling):
		return NewBackendError(ErrCodeRateLimited, "API rate limit exceeded", err)
	case errors.As(err, &denied):
		return NewBackendError(ErrCodeAuthentication, "Access denied to the model", err)
	case errors.As(err, &unavailable), errors.As(err, &notReady), errors.As(err, &internal):
		return NewBackendError(ErrCodeServiceUnavailable, "Bedrock is unavailable", err)
	case errors.As(err, &timeout):
		return NewBackendError(ErrCodeNetwork, "Model request timed out", err)
	case errors.As(err, &notFound):
		return NewBackendError(ErrCodeInvalidConfiguration, "Model not found", err)
	case errors.As(err, &validation):
		if isContextLengthMessage(validation.ErrorMessage()) {
			return NewBackendError(ErrCodeContextLengthExceeded, "Input exceeded maximum context length", err)
		}
		return NewBackendError(ErrCodeInvalidRequest, "Invalid request parameters", err)
	}

	// Fall back to matching on the message for errors without a modeled type
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "throttl") {
		return NewBackendError(ErrCodeRateLimited, "API rate limit exceeded", err)
	}

	if strings.Contains(errMsg, "content filter") || strings.Contains(errMsg, "safety") {
		return NewBackendError(ErrCodeContentFiltered, "Content was filtered due to safety concerns", err)
	}

	if isContextLengthMessage(errMsg) {
		return NewBackendError(ErrCodeContextLengthExceeded, "Input exceeded maximum context length", err)
	}

	if strings.Contains(errMsg, "validation") || strings.Contains(errMsg, "invalid") {
		return NewBackendError(ErrCodeInvalidRequest, "Invalid request parameters", err)
	}

	// Default to unknown error
	return NewBackendError(
		ErrCodeUnknown,
		fmt.Sprintf("Unknown error: %v", err),
		err,
	)
}

func isContextLengthMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "context length") ||
		strings.Contains(msg, "token limit") ||
		strings.Contains(msg, "too many tokens") ||
		strings.Contains(msg, "input is too long")
}
