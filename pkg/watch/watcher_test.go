package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestWatcher(t *testing.T, dir string, debounce time.Duration, skipDir func(string) bool) *Watcher {
	t.Helper()
	w, err := NewWatcher(dir, debounce, skipDir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatcher_CreateFileTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	writeJavaFile(t, dir, "Init.java", "class Init {}\n")
	w := newTestWatcher(t, dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()

	writeJavaFile(t, dir, "New.java", "class New {}\n")

	batch := waitForBatch(t, out, 2*time.Second)
	assertContainsPath(t, batch, filepath.Join(dir, "New.java"))
}

func TestWatcher_ModifyFileTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	writeJavaFile(t, dir, "Main.java", "class Main {}\n")
	w := newTestWatcher(t, dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()

	writeJavaFile(t, dir, "Main.java", "class Main { int x = 1; }\n")

	batch := waitForBatch(t, out, 2*time.Second)
	assertContainsPath(t, batch, filepath.Join(dir, "Main.java"))
}

func TestWatcher_DeleteFileTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	writeJavaFile(t, dir, "Del.java", "class Del {}\n")
	w := newTestWatcher(t, dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()

	_ = os.Remove(filepath.Join(dir, "Del.java"))

	batch := waitForBatch(t, out, 2*time.Second)
	assertContainsPath(t, batch, filepath.Join(dir, "Del.java"))
	for _, ev := range batch {
		if ev.Path == filepath.Join(dir, "Del.java") && !ev.Removed() {
			t.Fatalf("expected removal event, got %v", ev.Op)
		}
	}
}

func TestWatcher_NonJavaFileIgnored(t *testing.T) {
	dir := t.TempDir()
	writeJavaFile(t, dir, "Init.java", "class Init {}\n")
	w := newTestWatcher(t, dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()

	_ = os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hello"), 0644)

	select {
	case batch := <-out:
		t.Fatalf("expected no events for .md file, got %d", len(batch))
	case <-ctx.Done():
	}
}

func TestWatcher_SkippedDirIgnored(t *testing.T) {
	dir := t.TempDir()
	gen := filepath.Join(dir, "generated")
	if err := os.MkdirAll(gen, 0755); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, dir, 50*time.Millisecond, func(rel string) bool {
		return strings.HasPrefix(rel, "generated")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()

	writeJavaFile(t, gen, "Gen.java", "class Gen {}\n")

	select {
	case batch := <-out:
		t.Fatalf("expected no events in skipped dir, got %v", batch)
	case <-ctx.Done():
	}
}

func TestWatcher_DebounceCoalescesEvents(t *testing.T) {
	dir := t.TempDir()
	writeJavaFile(t, dir, "Init.java", "class Init {}\n")
	w := newTestWatcher(t, dir, 200*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()

	for i := 0; i < 5; i++ {
		writeJavaFile(t, dir, "Rapid.java", "class Rapid {}\n// v"+string(rune('0'+i))+"\n")
		time.Sleep(20 * time.Millisecond)
	}

	batch := waitForBatch(t, out, 2*time.Second)

	count := 0
	for _, ev := range batch {
		if filepath.Base(ev.Path) == "Rapid.java" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected 1 coalesced event for Rapid.java, got %d", count)
	}
}

func TestWatcher_ContextCancellationStops(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan []ChangeEvent, 10)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, out)
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

// --- helpers ---

func writeJavaFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func waitForBatch(t *testing.T, ch <-chan []ChangeEvent, timeout time.Duration) []ChangeEvent {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func assertContainsPath(t *testing.T, batch []ChangeEvent, path string) {
	t.Helper()
	for _, ev := range batch {
		if ev.Path == path {
			return
		}
	}
	t.Fatalf("batch does not contain %s; got %v", path, batch)
}
