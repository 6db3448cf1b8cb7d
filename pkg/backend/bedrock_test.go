package backend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestBedrockSendMessage(t *testing.T) {
	fake := &fakeConverse{
		out: &bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{
				Value: types.Message{
					Role: types.ConversationRoleAssistant,
					Content: []types.ContentBlock{
						&types.ContentBlockMemberText{Value: "Searching now."},
						&types.ContentBlockMemberToolUse{
							Value: types.ToolUseBlock{
								ToolUseId: aws.String("tooluse_1"),
								Name:      aws.String("search_in_files"),
								Input:     document.NewLazyDocument(map[string]interface{}{"pattern": "TODO"}),
							},
						},
					},
				},
			},
			StopReason: types.StopReasonToolUse,
			Usage: &types.TokenUsage{
				InputTokens:  aws.Int32(12),
				OutputTokens: aws.Int32(5),
			},
		},
	}
	b := newBedrockBackend(fake, Config{ModelID: ModelClaude3Haiku})

	resp, err := b.SendMessage(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "find TODOs"},
		},
		Tools: []ClaudeTool{{
			Name:        "search_in_files",
			Description: "search",
			InputSchema: map[string]interface{}{"type": "object"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Searching now.", resp.Content)
	assert.Equal(t, FinishToolUse, resp.FinishReason)
	assert.Equal(t, map[string]int{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}, resp.Usage)
	require.Len(t, resp.ToolUses, 1)
	assert.Equal(t, "tooluse_1", resp.ToolUses[0].ID)
	assert.Equal(t, "search_in_files", resp.ToolUses[0].Name)
	assert.JSONEq(t, `{"pattern":"TODO"}`, string(resp.ToolUses[0].Input))

	in := fake.input
	require.NotNil(t, in)
	assert.Equal(t, ModelClaude3Haiku, aws.ToString(in.ModelId))
	require.Len(t, in.System, 1)
	require.Len(t, in.Messages, 1)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[0].Role)
	require.NotNil(t, in.ToolConfig)
	require.Len(t, in.ToolConfig.Tools, 1)
	spec, ok := in.ToolConfig.Tools[0].(*types.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, "search_in_files", aws.ToString(spec.Value.Name))

	require.NotNil(t, in.InferenceConfig)
	assert.Equal(t, int32(DefaultMaxTokens), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.Nil(t, in.InferenceConfig.TopP)
	assert.InDelta(t, DefaultTemperature, aws.ToFloat32(in.InferenceConfig.Temperature), 1e-6)
}

func TestInferenceConfig_TemperatureOrTopP(t *testing.T) {
	b := newBedrockBackend(&fakeConverse{}, Config{ModelID: ModelClaude3Haiku, MaxTokens: 100, Temperature: 0.5})

	cfg := b.inferenceConfig(ChatRequest{})
	assert.Equal(t, int32(100), aws.ToInt32(cfg.MaxTokens))
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, aws.ToFloat32(cfg.Temperature), 1e-6)
	assert.Nil(t, cfg.TopP)

	cfg = b.inferenceConfig(ChatRequest{Temperature: 0.2, TopP: 0.9})
	require.NotNil(t, cfg.TopP)
	assert.InDelta(t, 0.9, aws.ToFloat32(cfg.TopP), 1e-6)
	assert.Nil(t, cfg.Temperature, "only one sampling parameter is sent")

	cfg = b.inferenceConfig(ChatRequest{Temperature: 3, TopP: 1.5})
	assert.Nil(t, cfg.TopP)
	assert.InDelta(t, 1.0, aws.ToFloat32(cfg.Temperature), 1e-6)
}

func TestToConverseMessages(t *testing.T) {
	system, msgs, err := toConverseMessages([]Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "look for main"},
		{Role: RoleAssistant, Content: "ok", ToolUses: []ToolUse{{ID: "t1", Name: "find_files", Input: json.RawMessage(`{"name":"main.go"}`)}}},
		{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "t1", Name: "find_files", Result: json.RawMessage(`{"total":1}`)}}},
		{Role: RoleUser, Content: "and tests?"},
	})
	require.NoError(t, err)

	assert.Len(t, system, 1)
	require.Len(t, msgs, 3)
	assert.Equal(t, types.ConversationRoleUser, msgs[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, msgs[1].Role)
	assert.Equal(t, types.ConversationRoleUser, msgs[2].Role)

	require.Len(t, msgs[1].Content, 2)
	use, ok := msgs[1].Content[1].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "t1", aws.ToString(use.Value.ToolUseId))

	// The tool result and the follow-up text merge into one user turn
	require.Len(t, msgs[2].Content, 2)
	result, ok := msgs[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, types.ToolResultStatusSuccess, result.Value.Status)
	_, ok = msgs[2].Content[1].(*types.ContentBlockMemberText)
	assert.True(t, ok)
}

func TestToConverseMessages_Errors(t *testing.T) {
	_, _, err := toConverseMessages([]Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)

	_, _, err = toConverseMessages([]Message{{Role: RoleAssistant, ToolUses: []ToolUse{{Name: "x", Input: json.RawMessage(`[1,2]`)}}}})
	assert.Error(t, err)
}

func TestToolResultErrorStatus(t *testing.T) {
	blocks, err := contentBlocks(Message{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "t", IsError: true, Result: json.RawMessage(`"boom"`)}}})
	require.NoError(t, err)

	result, ok := blocks[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, types.ToolResultStatusError, result.Value.Status)
}

func TestToToolConfigEmpty(t *testing.T) {
	assert.Nil(t, toToolConfig(nil))
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, FinishStop, finishReason(types.StopReasonEndTurn))
	assert.Equal(t, FinishToolUse, finishReason(types.StopReasonToolUse))
	assert.Equal(t, FinishLength, finishReason(types.StopReasonMaxTokens))
	assert.Equal(t, FinishFiltered, finishReason(types.StopReasonGuardrailIntervened))
	assert.Equal(t, FinishUnhandled, finishReason(types.StopReason("other")))
}

func TestMapBedrockError(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"throttling", &types.ThrottlingException{Message: aws.String("slow down")}, ErrCodeRateLimited, true},
		{"access denied", &types.AccessDeniedException{Message: aws.String("no")}, ErrCodeAuthentication, false},
		{"unavailable", &types.ServiceUnavailableException{Message: aws.String("down")}, ErrCodeServiceUnavailable, true},
		{"context length", &types.ValidationException{Message: aws.String("Input is too long for requested model")}, ErrCodeContextLengthExceeded, false},
		{"validation", &types.ValidationException{Message: aws.String("bad field")}, ErrCodeInvalidRequest, false},
		{"message fallback", errors.New("request was throttled"), ErrCodeRateLimited, true},
		{"unknown", errors.New("boom"), ErrCodeUnknown, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapBedrockError(tc.err)
			assert.Equal(t, tc.code, ErrorCode(mapped))
			assert.Equal(t, tc.retryable, IsRetryable(mapped))
			assert.ErrorIs(t, mapped, tc.err)
		})
	}
}

func TestBedrockSendMessage_Error(t *testing.T) {
	fake := &fakeConverse{err: &types.ThrottlingException{Message: aws.String("slow")}}
	b := newBedrockBackend(fake, Config{ModelID: "m"})

	resp, err := b.SendMessage(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.Error(t, err)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRateLimited, ErrorCode(err))
}

func TestNewBedrockBackendRequiresModel(t *testing.T) {
	_, err := NewBedrockBackend(Config{Type: BackendAWSBedrock})
	assert.Equal(t, ErrCodeInvalidConfiguration, ErrorCode(err))
}
