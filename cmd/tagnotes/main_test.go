package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jeffrom/tagnotes/config"
)

type fakeGitLab struct {
	mu      sync.Mutex
	commits []map[string]interface{}
	calls   map[string]int
}

func (f *fakeGitLab) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("PRIVATE-TOKEN") != "gl-token" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"401 Unauthorized"}`)
		return
	}

	const prefix = "/api/v4/projects/42"
	path := strings.TrimPrefix(r.URL.Path, prefix)
	f.calls[path]++
	w.Header().Set("Content-Type", "application/json")

	var v interface{}
	switch {
	case path == "":
		v = map[string]interface{}{"id": 42, "name": "widgets", "path_with_namespace": "acme/widgets"}
	case path == "/repository/tags":
		v = []map[string]interface{}{
			{"name": "v2.1", "commit": map[string]interface{}{"id": "2222222222222222"}},
			{"name": "v2.0", "commit": map[string]interface{}{"id": "1111111111111111"}},
		}
	case path == "/repository/compare":
		v = map[string]interface{}{"commits": f.commits}
	case strings.HasSuffix(path, "/diff"):
		v = []map[string]interface{}{
			{"old_path": "login.go", "new_path": "login.go", "diff": "@@ -1 +1 @@\n-old\n+new\n"},
		}
	case strings.HasPrefix(path, "/repository/commits/"):
		id := strings.TrimPrefix(path, "/repository/commits/")
		for _, c := range f.commits {
			if c["id"] == id {
				v = c
			}
		}
		if v == nil {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"404 Commit Not Found"}`)
			return
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Not Found"}`)
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(err)
	}
}

func newFakeGitLab(t *testing.T, commits ...map[string]interface{}) (*httptest.Server, *fakeGitLab) {
	t.Helper()
	f := &fakeGitLab{commits: commits, calls: make(map[string]int)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv, f
}

func gitlabCommit(id, title, author string) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"title":       title,
		"message":     title + "\n",
		"author_name": author,
		"created_at":  "2024-03-01T10:00:00Z",
		"stats":       map[string]interface{}{"additions": 3, "deletions": 1},
	}
}

func newFakeGemini(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		content, _ := json.Marshal(`{"content":"# Release notes\n\n- New login page"}`)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%s}]}}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type testEnv struct {
	dir     string
	cfgFile string
	out     *bytes.Buffer
	termio  *config.TerminalIO
}

func newTestEnv(t *testing.T, gitlabURL, geminiURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvGitLabToken, "gl-token")
	t.Setenv(config.EnvProjectID, "42")
	t.Setenv(config.EnvGeminiToken, "gm-token")
	t.Setenv(config.EnvGitLabURL, "")
	t.Setenv(config.EnvGeminiModel, "")

	cfgFile := writeConfig(t, fmt.Sprintf(`gitlab_url: %s
gemini_base_url: %s
model: gemini-test
results_dir: %s
cache_dir: %s
`, gitlabURL, geminiURL, filepath.Join(dir, "results"), filepath.Join(dir, "cache")))

	out := &bytes.Buffer{}
	return &testEnv{
		dir:     dir,
		cfgFile: cfgFile,
		out:     out,
		termio:  &config.TerminalIO{Stdout: out, Stderr: out},
	}
}

func (e *testEnv) run(ctx context.Context, args ...string) error {
	return run(ctx, append([]string{"tagnotes", "--config", e.cfgFile}, args...), e.termio)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTagnotes(t *testing.T) {
	gl, _ := newFakeGitLab(t,
		gitlabCommit("aaaaaaaaaaaaaaaa", "add login page", "Ana"),
		gitlabCommit("bbbbbbbbbbbbbbbb", "fix session timeout", "Ben"),
	)
	gm, geminiCalls := newFakeGemini(t)
	env := newTestEnv(t, gl.URL, gm.URL)

	if err := env.run(context.Background(), "--stats"); err != nil {
		t.Fatalf("run failed: %v\n%s", err, env.out)
	}
	res := env.out.String()
	t.Logf("output:\n%s", res)

	if *geminiCalls != 2 {
		t.Errorf("expected 2 generate calls, got %d", *geminiCalls)
	}
	for _, expect := range []string{
		"Connected to project: widgets",
		"Commits to analyze (2) in v2.0..v2.1:",
		"  1. aaaaaaaa - add login page",
		"2 commits, +6 -2",
		"Changelogs written to",
	} {
		if !strings.Contains(res, expect) {
			t.Errorf("expected output to contain %q", expect)
		}
	}

	runs, err := os.ReadDir(filepath.Join(env.dir, "results"))
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || !strings.HasPrefix(runs[0].Name(), "v2.1_") {
		t.Fatalf("expected one v2.1 results directory, got %v", runs)
	}
	files, err := os.ReadDir(filepath.Join(env.dir, "results", runs[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 changelogs, got %d", len(files))
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(env.dir, "results", runs[0].Name(), f.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "# Release notes\n\n- New login page" {
			t.Errorf("%s: unexpected content %q", f.Name(), b)
		}
	}
}

func TestTagnotesCacheResume(t *testing.T) {
	gl, fake := newFakeGitLab(t,
		gitlabCommit("aaaaaaaaaaaaaaaa", "add login page", "Ana"),
		gitlabCommit("bbbbbbbbbbbbbbbb", "fix session timeout", "Ben"),
	)
	gm, _ := newFakeGemini(t)
	env := newTestEnv(t, gl.URL, gm.URL)

	for i := 0; i < 2; i++ {
		if err := env.run(context.Background(), "--cache", "--from", "v2.0", "--to", "v2.1"); err != nil {
			t.Fatalf("run %d failed: %v\n%s", i, err, env.out)
		}
	}
	if n := fake.calls["/repository/compare"]; n != 1 {
		t.Errorf("expected 1 compare call across cached runs, got %d", n)
	}
	if n := fake.calls["/repository/commits/aaaaaaaaaaaaaaaa/diff"]; n != 1 {
		t.Errorf("expected 1 diff call across cached runs, got %d", n)
	}

	env.out.Reset()
	if err := env.run(context.Background(), "--clear-cache", "--from", "v2.0", "--to", "v2.1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "Removed 2 cache files") {
		t.Errorf("expected cache files removed, got:\n%s", env.out)
	}
}

func TestTagnotesNoCommits(t *testing.T) {
	gl, _ := newFakeGitLab(t)
	gm, geminiCalls := newFakeGemini(t)
	env := newTestEnv(t, gl.URL, gm.URL)

	if err := env.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if *geminiCalls != 0 {
		t.Errorf("expected no generate calls, got %d", *geminiCalls)
	}
	if !strings.Contains(env.out.String(), "No commits found between v2.0 and v2.1") {
		t.Errorf("expected no commits warning, got:\n%s", env.out)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "results")); !os.IsNotExist(err) {
		t.Errorf("expected no results directory, got %v", err)
	}
}

func TestTagnotesInterrupted(t *testing.T) {
	gl, _ := newFakeGitLab(t, gitlabCommit("aaaaaaaaaaaaaaaa", "add login page", "Ana"))
	gm, _ := newFakeGemini(t)
	env := newTestEnv(t, gl.URL, gm.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := env.run(ctx, "--cache")
	if err != errInterrupted {
		t.Fatalf("expected interruption, got %v", err)
	}
	if code := exitCode(&bytes.Buffer{}, err); code != exitInterrupted {
		t.Errorf("expected exit code %d, got %d", exitInterrupted, code)
	}
	if !strings.Contains(env.out.String(), "Run again with --cache to resume") {
		t.Errorf("expected resume hint, got:\n%s", env.out)
	}
}

func TestTagnotesErrors(t *testing.T) {
	gl, _ := newFakeGitLab(t, gitlabCommit("aaaaaaaaaaaaaaaa", "add login page", "Ana"))
	gm, _ := newFakeGemini(t)

	tcs := []struct {
		name   string
		args   []string
		setup  func(t *testing.T)
		expect string
	}{
		{
			name:   "unknown-tag",
			args:   []string{"--to", "v9.9"},
			expect: "v9.9",
		},
		{
			name:   "no-prior-tag",
			args:   []string{"--to", "v2.0"},
			expect: "v2.0",
		},
		{
			name:   "bad-token",
			setup:  func(t *testing.T) { t.Setenv(config.EnvGitLabToken, "nope") },
			expect: "401",
		},
		{
			name:   "missing-gemini-token",
			setup:  func(t *testing.T) { t.Setenv(config.EnvGeminiToken, "") },
			expect: "gemini",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, gl.URL, gm.URL)
			if tc.setup != nil {
				tc.setup(t)
			}
			err := env.run(context.Background(), tc.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			t.Log(err)
			if !strings.Contains(err.Error(), tc.expect) {
				t.Errorf("expected error to mention %q", tc.expect)
			}
			b := &bytes.Buffer{}
			if code := exitCode(b, err); code != 1 {
				t.Errorf("expected exit code 1, got %d", code)
			}
			if !strings.Contains(b.String(), "Error:") {
				t.Errorf("expected formatted error, got %q", b)
			}
		})
	}
}

func TestTagnotesQuiet(t *testing.T) {
	gl, _ := newFakeGitLab(t, gitlabCommit("aaaaaaaaaaaaaaaa", "add login page", "Ana"))
	gm, _ := newFakeGemini(t)
	env := newTestEnv(t, gl.URL, gm.URL)

	if err := env.run(context.Background(), "-q"); err != nil {
		t.Fatalf("run failed: %v\n%s", err, env.out)
	}
	dir := env.out.String()
	if !strings.HasPrefix(dir, filepath.Join(env.dir, "results", "v2.1_")) || strings.HasSuffix(dir, "\n") {
		t.Fatalf("expected only the results directory on a non-terminal stdout, got %q", dir)
	}
}

func TestTagnotesInterruptedDuringVerify(t *testing.T) {
	gl, fake := newFakeGitLab(t, gitlabCommit("aaaaaaaaaaaaaaaa", "add login page", "Ana"))
	gm, _ := newFakeGemini(t)
	env := newTestEnv(t, gl.URL, gm.URL)
	b, err := os.ReadFile(env.cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	b = append(b, []byte("transport: cli\ncli_command: tagnotes-test-missing-gemini\n")...)
	if err := os.WriteFile(env.cfgFile, b, 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = env.run(ctx, "--cache")
	if err != errInterrupted {
		t.Fatalf("expected interruption, got %v", err)
	}
	if code := exitCode(&bytes.Buffer{}, err); code != exitInterrupted {
		t.Errorf("expected exit code %d, got %d", exitInterrupted, code)
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no GitLab calls before the analyzer check, got %v", fake.calls)
	}
}
