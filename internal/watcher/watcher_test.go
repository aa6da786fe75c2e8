package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.CSV", []string{".csv"}, true},
		{"/a/b.txt", []string{".json", ".csv"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInbox_importsNewFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	in := NewInbox([]string{dir}, []string{".json"}, rec.add, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	if err := os.WriteFile(filepath.Join(dir, "batch.json"), []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.snapshot()) >= 1 })
	time.Sleep(150 * time.Millisecond)
	for _, p := range rec.snapshot() {
		if !strings.HasSuffix(p, "batch.json") {
			t.Errorf("unexpected import %q", p)
		}
	}
}

func TestInbox_newFolderIsImported(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	in := NewInbox([]string{dir}, []string{".csv"}, rec.add, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	nested := filepath.Join(dir, "2026", "october")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(nested, "fatwas.csv"), []byte("fatwa_id\n1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		for _, p := range rec.snapshot() {
			if strings.HasSuffix(p, "fatwas.csv") {
				return true
			}
		}
		return false
	})
}

func TestInbox_Sync(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.xyz"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	in := NewInbox([]string{dir}, []string{".jsonl"}, rec.add)
	in.Sync()
	got := rec.snapshot()
	if len(got) != 1 || !strings.HasSuffix(got[0], "a.jsonl") {
		t.Errorf("expected only a.jsonl, got %v", got)
	}
}

func TestInbox_Start_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "incoming")
	in := NewInbox([]string{root}, nil, func(string) {})
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
	if dirs := in.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestFileWatcher_onChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	calls := 0
	fw := NewFileWatcher(path, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer fw.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	if calls != 0 {
		t.Errorf("sibling file triggered %d calls", calls)
	}
	mu.Unlock()

	if err := os.WriteFile(path, []byte("a: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	})
}
