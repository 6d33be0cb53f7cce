package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/refactor"
)

type recorder struct {
	calls [][]string
}

func (r *recorder) Refresh(paths ...string) error {
	r.calls = append(r.calls, paths)
	return nil
}

func TestUpdater_HandleChangesRefreshesBatch(t *testing.T) {
	rec := &recorder{}
	var notified []string
	u := NewUpdater(rec, func(paths []string) { notified = paths }, nil)

	u.HandleChanges([]ChangeEvent{
		{Path: "/w/A.java", Op: fsnotify.Write},
		{Path: "/w/B.java", Op: fsnotify.Remove},
	})
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{"/w/A.java", "/w/B.java"}, rec.calls[0])
	assert.Equal(t, []string{"/w/A.java", "/w/B.java"}, notified)

	u.HandleChanges(nil)
	assert.Len(t, rec.calls, 1)
}

func TestUpdater_ModifiedFileMakesLiteralStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p", "C.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("package p;\n\nclass C {\n    int a() { return 5; }\n}\n"), 0644))

	engine := refactor.CreateEngine(zap.NewNop())
	_, err := engine.LoadWorkspace(dir)
	require.NoError(t, err)
	lit, err := engine.LiteralAt(path, 4, 22)
	require.NoError(t, err)
	assert.False(t, engine.Workspace().IsStale(lit))

	require.NoError(t, os.WriteFile(path, []byte("package p;\n\nclass C {\n    int a() { return 6; }\n}\n"), 0644))
	u := NewUpdater(engine, nil, nil)

	in := make(chan []ChangeEvent, 1)
	in <- []ChangeEvent{{Path: path, Op: fsnotify.Write}}
	close(in)
	u.Run(context.Background(), in)

	assert.True(t, engine.Workspace().IsStale(lit))
	lit, err = engine.LiteralAt(path, 4, 22)
	require.NoError(t, err)
	assert.Equal(t, "6", lit.Text)
}

func TestUpdater_RemovedFileLeavesWorkspace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "D.java")
	require.NoError(t, os.WriteFile(path, []byte("class D { int x() { return 1; } }\n"), 0644))

	engine := refactor.CreateEngine(zap.NewNop())
	_, err := engine.LoadWorkspace(dir)
	require.NoError(t, err)
	abs, _ := filepath.Abs(path)
	_, ok := engine.Workspace().LookupFile(abs)
	require.True(t, ok)

	require.NoError(t, os.Remove(path))
	NewUpdater(engine, nil, nil).HandleChanges([]ChangeEvent{{Path: path, Op: fsnotify.Remove}})

	_, ok = engine.Workspace().LookupFile(abs)
	assert.False(t, ok)
}
