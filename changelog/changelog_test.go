package changelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/progress"
)

func patch(prefix string, lines int) string {
	parts := make([]string, lines)
	for i := range parts {
		parts[i] = fmt.Sprintf("+%s line %d", prefix, i+1)
	}
	return strings.Join(parts, "\n")
}

func testDetail(id string, files int) *model.CommitDetail {
	var diffs []model.FileDiff
	for i := 0; i < files; i++ {
		name := fmt.Sprintf("%s/file%d.go", id, i+1)
		diffs = append(diffs, model.FileDiff{OldPath: name, NewPath: name, PatchText: patch(name, 30)})
	}
	return &model.CommitDetail{
		ShortID: id[:8],
		FullID:  id,
		Title:   "change " + id[:8],
		Message: "change " + id[:8] + "\n\nbody",
		Author:  "Ana",
		Date:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Diff:    diffs,
		Stats:   model.Stats{Additions: 30 * files, Deletions: 1},
	}
}

func TestBuildContextTruncates(t *testing.T) {
	details := []*model.CommitDetail{
		testDetail("aaaaaaaa11111111", 6),
		testDetail("bbbbbbbb22222222", 6),
	}
	out := BuildContext(details, "v2.1", DefaultLimits)

	assert.True(t, strings.HasPrefix(out, "# Release: v2.1\n\nTotal commits: 2\n\n## Commits:\n\n### Commit aaaaaaaa\n"))
	assert.Equal(t, 10, strings.Count(out, "- File: "))
	for _, id := range []string{"aaaaaaaa11111111", "bbbbbbbb22222222"} {
		assert.Contains(t, out, id+"/file5.go")
		assert.NotContains(t, out, id+"/file6.go")
		assert.Contains(t, out, fmt.Sprintf("+%s/file1.go line 20\n", id))
		assert.NotContains(t, out, fmt.Sprintf("+%s/file1.go line 21", id))
	}
	assert.Contains(t, out, "**Author:** Ana\n**Date:** 2024-03-01T10:00:00Z\n")
	assert.Contains(t, out, "**Stats:** +180 -1\n")
	assert.Less(t, strings.Index(out, "Commit aaaaaaaa"), strings.Index(out, "Commit bbbbbbbb"))
	assert.Equal(t, out, BuildContext(details, "v2.1", DefaultLimits))
}

func TestBuildContextFileTypes(t *testing.T) {
	d := &model.CommitDetail{
		ShortID: "cafebabe",
		Message: "m",
		Diff: []model.FileDiff{
			{NewPath: "new.go", IsNew: true, PatchText: "+x"},
			{OldPath: "gone.go", IsDeleted: true},
			{OldPath: "old.go", NewPath: "renamed.go", PatchText: "@@"},
		},
	}
	out := BuildContext([]*model.CommitDetail{d}, "v1", DefaultLimits)
	assert.Contains(t, out, "- File: new.go\n  Type: new\n  Diff snippet:\n```\n+x\n```\n")
	assert.Contains(t, out, "- File: gone.go\n  Type: deleted\n- File: renamed.go")
	assert.Contains(t, out, "**Date:** unknown\n")
}

func newTestAssembler(t *testing.T, overrides *config.Config, gen ai.Generator) (*Assembler, *progress.Recorder) {
	t.Helper()
	if overrides == nil {
		overrides = &config.Config{}
	}
	if overrides.ResultsDir == "" {
		overrides.ResultsDir = filepath.Join(t.TempDir(), "results")
	}
	tio := config.TerminalIO{Stdout: &strings.Builder{}, Stderr: &strings.Builder{}}
	rec := &progress.Recorder{}
	a := New(config.NewWithTerminalIO(overrides, &tio), gen, rec)
	a.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return a, rec
}

func TestGenerateAll(t *testing.T) {
	gen := &ai.Mock{Respond: func(prompt string, schema *ai.Schema) (string, error) {
		if strings.Contains(prompt, "COMERCIAL") {
			return `{"content": "commercial body"}`, nil
		}
		return `{"content": "technical body"}`, nil
	}}
	a, rec := newTestAssembler(t, nil, gen)

	docs, err := a.GenerateAll(context.Background(), "CONTEXT-DOC", "v2.1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.Changelog{Audience: model.Commercial, TagName: "v2.1", Body: "commercial body"}, docs[0])
	assert.Equal(t, model.Changelog{Audience: model.Technical, TagName: "v2.1", Body: "technical body"}, docs[1])

	calls := gen.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Contains(t, c.Prompt, "CONTEXT-DOC")
		assert.Contains(t, c.Prompt, "Release v2.1")
		assert.Equal(t, ai.ContentSchema, c.Schema)
	}
	assert.Len(t, rec.Filter(progress.StageGenerate, progress.KindSucceed), 2)
}

func TestGeneratePlainForCLI(t *testing.T) {
	gen := &ai.Mock{Response: "# raw markdown"}
	a, _ := newTestAssembler(t, &config.Config{Transport: config.TransportCLI}, gen)

	body, err := a.Generate(context.Background(), model.Technical, "ctx", "v1")
	require.NoError(t, err)
	assert.Equal(t, "# raw markdown", body)
	assert.Nil(t, gen.Calls()[0].Schema)
}

func TestGenerateErrors(t *testing.T) {
	tcs := []struct {
		name string
		gen  *ai.Mock
	}{
		{name: "service", gen: &ai.Mock{Err: errors.New("quota exceeded")}},
		{name: "bad-json", gen: &ai.Mock{Response: "sorry, I can't"}},
		{name: "no-content", gen: &ai.Mock{Response: `{"text": "x"}`}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a, rec := newTestAssembler(t, nil, tc.gen)
			_, err := a.GenerateAll(context.Background(), "ctx", "v1")
			require.Error(t, err)
			var genErr GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, model.Commercial, genErr.Audience)
			assert.Len(t, tc.gen.Calls(), 1, "generation should stop at the first fault")
			assert.Len(t, rec.Filter(progress.StageGenerate, progress.KindFail), 1)
		})
	}
}

func TestPersist(t *testing.T) {
	a, _ := newTestAssembler(t, nil, &ai.Mock{})
	docs := []model.Changelog{
		{Audience: model.Commercial, TagName: "v2.1", Body: "commercial body"},
		{Audience: model.Technical, TagName: "v2.1", Body: "technical body"},
	}

	dir, names, err := a.Persist("v2.1", docs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.cfg.ResultsDir, "v2.1_20240506_070809"), dir)
	assert.Equal(t, []string{"Changelog_comercial_v2.1.md", "Changelog_tech_v2.1.md"}, names)

	b, err := os.ReadFile(filepath.Join(dir, "Changelog_comercial_v2.1.md"))
	require.NoError(t, err)
	assert.Equal(t, "commercial body", string(b))
	b, err = os.ReadFile(filepath.Join(dir, "Changelog_tech_v2.1.md"))
	require.NoError(t, err)
	assert.Equal(t, "technical body", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// same second, fresh directory
	dir2, _, err := a.Persist("v2.1", docs)
	require.NoError(t, err)
	assert.NotEqual(t, dir, dir2)
	assert.Equal(t, dir+"_2", dir2)
}

func TestPersistSanitizesRelease(t *testing.T) {
	a, _ := newTestAssembler(t, nil, &ai.Mock{})
	dir, names, err := a.Persist("release/2.1", []model.Changelog{{Audience: model.Technical, Body: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "release-2.1_20240506_070809", filepath.Base(dir))
	assert.Equal(t, []string{"Changelog_tech_release-2.1.md"}, names)
	for _, name := range names {
		_, err = os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
	}
}

func TestPersistError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	a, _ := newTestAssembler(t, &config.Config{ResultsDir: filepath.Join(blocker, "results")}, &ai.Mock{})

	_, _, err := a.Persist("v1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, PersistError{}))
}
