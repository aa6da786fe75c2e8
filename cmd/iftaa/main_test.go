package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/iftaa/internal/models"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"صلاة"}, "صلاة"},
		{"multiple words", []string{"صلاة", "المسافر"}, "صلاة المسافر"},
		{"single quoted phrase", []string{"travel prayer"}, "travel prayer"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestParseFatwaID(t *testing.T) {
	if id, err := parseFatwaID(" 42 "); err != nil || id != 42 {
		t.Errorf("parseFatwaID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "abc", ""} {
		if _, err := parseFatwaID(bad); !models.IsKind(err, models.ErrInvalidInput) {
			t.Errorf("parseFatwaID(%q) err = %v, want invalid input", bad, err)
		}
	}
}

func TestLoadConfig_prefersWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191 from working directory config", cfg.Server.Port)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Errorf("resolved = %q", resolved)
	}
}

func TestLoadConfig_explicitMissingFile(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestRootCmd_subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"server", "search", "import", "delete", "reindex", "status", "detect", "normalize", "expand", "version"}
	for _, name := range want {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "iftaa version "+version) {
		t.Errorf("output = %q", out)
	}
}

func TestDiagnosticCmds(t *testing.T) {
	out, err := execute(t, "detect", "prayer", "times")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "en\t") {
		t.Errorf("detect output = %q", out)
	}

	out, err = execute(t, "normalize", "الصَّلاةُ")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "الصلاه" {
		t.Errorf("normalize output = %q", out)
	}

	cfgPath := writeTestConfig(t)
	out, err = execute(t, "--config", cfgPath, "expand", "--plan", "صلوة")
	if err != nil {
		t.Fatal(err)
	}
	var plan map[string]interface{}
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("plan is not JSON: %v\n%s", err, out)
	}
	if plan["language"] != "ar" || plan["corrected"] != "صلاة" {
		t.Errorf("plan = %v", plan)
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: ./iftaa.db
  bleve_index_path: ./iftaa.bleve
  vector_index_path: ./vectors
embedding:
  provider: mock
  dimensions: 32
indexer:
  workers: 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportSearchDeleteLocal(t *testing.T) {
	cfgPath := writeTestConfig(t)
	data := filepath.Join(t.TempDir(), "fatwas.json")
	fatwas := `[
  {"fatwa_id": 1, "title": "حكم صلاة المسافر", "question": "هل يقصر المسافر صلاة الظهر", "answer": "يقصر المسافر الرباعية", "category": "الصلاة"},
  {"fatwa_id": 2, "title": "زكاة الذهب", "question": "متى تجب زكاة الذهب", "answer": "إذا بلغ النصاب وحال الحول", "category": "الزكاة"}
]`
	if err := os.WriteFile(data, []byte(fatwas), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "import", data)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Indexed 2 fatwa(s)") {
		t.Errorf("import output = %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "search", "--server", "", "--output", "compact", "صلاة المسافر")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "1\t1\t") {
		t.Errorf("expected fatwa 1 ranked first, got %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "status", "--server", "", "--output", "json")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	var status statusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status is not JSON: %v\n%s", err, out)
	}
	if status.Fatwas != 2 || status.VectorIndexSize["ar"] != 2 {
		t.Errorf("status = %+v", status)
	}

	if out, err = execute(t, "--config", cfgPath, "delete", "2"); err != nil {
		t.Fatalf("delete: %v\n%s", err, out)
	}
	out, err = execute(t, "--config", cfgPath, "status", "--server", "", "--output", "json")
	if err != nil {
		t.Fatal(err)
	}
	status = statusResponse{}
	_ = json.Unmarshal([]byte(out), &status)
	if status.Fatwas != 1 {
		t.Errorf("fatwas after delete = %d, want 1", status.Fatwas)
	}
}

func TestSearchViaServer(t *testing.T) {
	var got models.SearchQuery
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(models.SearchResponse{
			Results:    []*models.SearchResult{{FatwaID: 9, Title: "Travel prayer", Rank: 1, RelevanceScore: 0.8}},
			TotalCount: 1, Page: 1, PageSize: 5, Language: "en",
		})
	}))
	defer srv.Close()

	out, err := execute(t, "search", "--server", srv.URL, "--page-size", "5", "-l", "en", "-o", "compact", "travel", "prayer")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	if got.Query != "travel prayer" || got.PageSize != 5 || got.Language != "en" {
		t.Errorf("server received %+v", got)
	}
	if !strings.HasPrefix(out, "1\t9\t0.8000\tTravel prayer") {
		t.Errorf("output = %q", out)
	}
}

func TestSearchViaServer_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	if _, err := execute(t, "search", "--server", srv.URL, "zakat"); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want server 500", err)
	}
}

func TestSearch_rejectsInvalidPaging(t *testing.T) {
	if _, err := execute(t, "search", "--server", "", "--page", "0", "zakat"); !models.IsKind(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}
