package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const fooSrc = `package demo;

public class Foo {
    void a() {
        say("Hello");
    }

    void b() {
        say("Hello");
    }

    void say(String s) {}
}
`

func loadedState(t *testing.T) (*State, string) {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "src", "demo", "Foo.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(fooSrc), 0644))

	state := NewState(false, zaptest.NewLogger(t))
	t.Cleanup(state.Close)
	res, err := loadWorkspaceHandler(state)(context.Background(), request("load_workspace", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	return state, path
}

func request(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func at(extra map[string]interface{}) map[string]interface{} {
	args := map[string]interface{}{"file": "src/demo/Foo.java", "line": float64(5), "column": float64(13)}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestToolsRequireWorkspace(t *testing.T) {
	state := NewState(false, nil)
	res, err := scanLiteralsHandler(state)(context.Background(), request("scan_literals", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "load_workspace")
}

func TestScanLiterals(t *testing.T) {
	state, _ := loadedState(t)

	res, err := scanLiteralsHandler(state)(context.Background(), request("scan_literals", nil))
	require.NoError(t, err)
	var findings []Finding
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &findings))
	require.Len(t, findings, 2)
	assert.Equal(t, Finding{File: "src/demo/Foo.java", Line: 5, Column: 13, Literal: `"Hello"`, Class: "demo.Foo", SuggestedName: "HELLO"}, findings[0])

	res, err = scanLiteralsHandler(state)(context.Background(), request("scan_literals", map[string]interface{}{"path": "src/other"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &findings))
	assert.Empty(t, findings)
}

func TestSuggestConstantName(t *testing.T) {
	state, _ := loadedState(t)

	res, err := suggestNameHandler(state)(context.Background(), request("suggest_constant_name", at(nil)))
	require.NoError(t, err)
	var info LiteralInfo
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &info))
	assert.Equal(t, "HELLO", info.SuggestedName)
	assert.Equal(t, "String", info.Type)
	assert.Equal(t, "a", info.Method)
	assert.True(t, info.Qualifies)
	assert.Equal(t, "DemoConstantsIF", info.MarkerName)

	res, err = suggestNameHandler(state)(context.Background(), request("suggest_constant_name", at(map[string]interface{}{"line": float64(0)})))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestPropagateConstant(t *testing.T) {
	state, path := loadedState(t)
	ctx := context.Background()

	res, err := propagateHandler(state)(ctx, request("propagate_constant", at(map[string]interface{}{"name": "GREETING", "preview": true})))
	require.NoError(t, err)
	var out PropagationResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, "previewed", out.Status)
	assert.Contains(t, out.Preview, "--- a/src/demo/Foo.java")
	data, _ := os.ReadFile(path)
	assert.Equal(t, fooSrc, string(data))

	res, err = propagateHandler(state)(ctx, request("propagate_constant", at(map[string]interface{}{"scope": "class"})))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, "committed", out.Status)
	assert.Equal(t, "HELLO", out.Field)
	assert.Equal(t, "demo.Foo", out.Container)
	assert.Equal(t, 2, out.Sites)
	assert.Equal(t, []string{"src/demo/Foo.java"}, out.AffectedFiles)
	data, _ = os.ReadFile(path)
	assert.Contains(t, string(data), "say(HELLO);")

	res, err = undoHandler(state)(ctx, request("undo_propagation", nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, "committed", out.Status)
	data, _ = os.ReadFile(path)
	assert.Equal(t, fooSrc, string(data))
}

func TestPropagateConstantRejectsUnknownScope(t *testing.T) {
	state, _ := loadedState(t)

	res, err := propagateHandler(state)(context.Background(), request("propagate_constant", at(map[string]interface{}{"scope": "module"})))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "unknown scope")
}

func TestNewServerRegistersTools(t *testing.T) {
	state := NewState(false, nil)
	s := NewServer(state)
	require.NotNil(t, s)

	raw := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := s.HandleMessage(context.Background(), raw)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"load_workspace", "scan_literals", "suggest_constant_name", "propagate_constant", "undo_propagation"} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}
}
