package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/constprop/internal/cli"
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

func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "src", "demo", "Foo.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(fooSrc), 0644))
	return root
}

func run(t *testing.T, root string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := cli.NewApp(&bytes.Buffer{}, &out, &errOut)
	Register(app)
	code := app.Execute(append([]string{"--workspace", root}, args...))
	return out.String(), errOut.String(), code
}

func TestVersionCommand(t *testing.T) {
	out, _, code := run(t, t.TempDir(), "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "constprop version "+cli.Version+"\n", out)
}

func TestNameCommand(t *testing.T) {
	root := workspace(t)
	out, errOut, code := run(t, root, "name", filepath.Join(root, "src/demo/Foo.java"), "5", "13")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "HELLO\n", out)
}

func TestNameCommandRejectsBadPosition(t *testing.T) {
	root := workspace(t)
	_, errOut, code := run(t, root, "name", filepath.Join(root, "src/demo/Foo.java"), "zero", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid line")
}

func TestScanReportsFindings(t *testing.T) {
	root := workspace(t)
	out, errOut, code := run(t, root, "--json", "scan")
	require.Equal(t, 0, code, errOut)

	var findings []FindingView
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	require.Len(t, findings, 2)
	assert.Equal(t, "src/demo/Foo.java", findings[0].File)
	assert.Equal(t, 5, findings[0].Line)
	assert.Equal(t, `"Hello"`, findings[0].Literal)
	assert.Equal(t, "HELLO", findings[0].Name)
	assert.Equal(t, "offer", findings[0].Mode)
}

func TestScanTable(t *testing.T) {
	root := workspace(t)
	out, errOut, code := run(t, root, "scan")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "src/demo/Foo.java:5:13")
	assert.Contains(t, out, "HELLO")
}

func TestExtractPreviewThenCommitThenUndo(t *testing.T) {
	root := workspace(t)
	path := filepath.Join(root, "src/demo/Foo.java")

	out, errOut, code := run(t, root, "extract", path, "5", "13", "--name", "GREETING", "--preview")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "New field: private String GREETING = \"Hello\";")
	assert.Contains(t, out, "--- a/src/demo/Foo.java")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fooSrc, string(data))

	out, errOut, code = run(t, root, "--json", "extract", path, "5", "13", "--name", "GREETING")
	require.Equal(t, 0, code, errOut)
	var res ResultView
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "committed", res.Status)
	assert.Equal(t, "GREETING", res.Field)
	assert.Equal(t, 2, res.Sites)
	assert.NotEmpty(t, res.Transaction)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "say(GREETING);")

	out, errOut, code = run(t, root, "history")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, res.Transaction)

	out, errOut, code = run(t, root, "undo")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Undid "+res.Transaction)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fooSrc, string(data))

	out, _, code = run(t, root, "undo")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Nothing to undo")
}

func TestExtractUnknownScope(t *testing.T) {
	root := workspace(t)
	_, errOut, code := run(t, root, "extract", filepath.Join(root, "src/demo/Foo.java"), "5", "13", "--scope", "module")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown scope")
}

func TestScanAutoAppliesFixes(t *testing.T) {
	root := workspace(t)
	out, errOut, code := run(t, root, "scan", "--auto")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "1 constant(s) introduced")

	data, err := os.ReadFile(filepath.Join(root, "src/demo/Foo.java"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `private String HELLO = "Hello";`)
	assert.Contains(t, string(data), "say(HELLO);")
}

func TestBadConfigFails(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".constprop"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".constprop", "config.yml"), []byte("auto:\n  scope: module\n"), 0644))

	_, errOut, code := run(t, root, "scan")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "auto.scope")
}
