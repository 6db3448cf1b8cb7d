package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	*BaseToolImpl
	calls int
}

func (t *stubTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	t.calls++
	return t.Name(), nil
}

func stubFactory(name string) ToolFactory {
	return func() Tool {
		return &stubTool{BaseToolImpl: NewBaseTool(name, name+" tool", "test", map[string]interface{}{
			"type": "object",
		})}
	}
}

func describeAll(tools []Tool) []ClaudeTool {
	out := make([]ClaudeTool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, Describe(tool))
	}
	return out
}

func names(tools []Tool) []string {
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		out = append(out, tool.Name())
	}
	return out
}

func TestToolSet_ToolsInDeclarationOrder(t *testing.T) {
	set := NewToolSet(stubFactory("f1"), stubFactory("f2"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, []string{"f1", "f2"}, names(set.Tools()))
	}
}

func TestToolSet_FactoriesMatchTools(t *testing.T) {
	set := NewToolSet(stubFactory("f1"), stubFactory("f2"))

	factories := set.Factories()
	require.Len(t, factories, 2)

	built := make([]Tool, 0, len(factories))
	for _, f := range factories {
		built = append(built, f())
	}

	if diff := cmp.Diff(describeAll(set.Tools()), describeAll(built)); diff != "" {
		t.Errorf("factory output differs from Tools() (-tools +factories):\n%s", diff)
	}
}

func TestToolSet_FreshInstancesEachCall(t *testing.T) {
	set := NewToolSet(stubFactory("f1"), stubFactory("f2"))

	first := set.Tools()
	second := set.Tools()

	if diff := cmp.Diff(describeAll(first), describeAll(second)); diff != "" {
		t.Fatalf("consecutive calls differ:\n%s", diff)
	}
	for i := range first {
		assert.NotSame(t, first[i], second[i], "tool %d shared between calls", i)
	}

	// Mutating one result must not leak into the other
	_, err := first[0].Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first[0].(*stubTool).calls)
	assert.Equal(t, 0, second[0].(*stubTool).calls)

	first[1] = nil
	assert.NotNil(t, second[1])
	assert.NotNil(t, set.Tools()[1])
}

func TestToolSet_WithPreservesInsertionOrder(t *testing.T) {
	base := NewToolSet(stubFactory("zeta"), stubFactory("alpha"))
	extended := base.With(stubFactory("beta"))

	assert.Equal(t, []string{"zeta", "alpha", "beta"}, names(extended.Tools()))
	assert.Equal(t, []string{"zeta", "alpha"}, names(base.Tools()), "original set must not change")
	assert.Equal(t, 3, extended.Len())
	assert.Equal(t, 2, base.Len())
}

func TestToolSet_Empty(t *testing.T) {
	set := NewToolSet()

	tools := set.Tools()
	require.NotNil(t, tools)
	assert.Empty(t, tools)

	factories := set.Factories()
	require.NotNil(t, factories)
	assert.Empty(t, factories)
}

func TestToolSet_CallerSliceMutationIgnored(t *testing.T) {
	factories := []ToolFactory{stubFactory("f1"), stubFactory("f2")}
	set := NewToolSet(factories...)

	factories[0] = stubFactory("changed")
	got := set.Factories()
	got[1] = stubFactory("also-changed")

	assert.Equal(t, []string{"f1", "f2"}, names(set.Tools()))
}

func TestDescribe(t *testing.T) {
	tool := stubFactory("probe")()
	d := Describe(tool)

	assert.Equal(t, "probe", d.Name)
	assert.Equal(t, "probe tool", d.Description)
	assert.Equal(t, "object", d.InputSchema["type"])
}
