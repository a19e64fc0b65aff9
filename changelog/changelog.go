// Package changelog turns collected commit details into one generated
// document per audience and writes them to disk.
package changelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/progress"
)

// GenerationError is an AI service fault. Batch is set for failures during
// batch analysis, Audience otherwise.
type GenerationError struct {
	Audience model.Audience
	Batch    int
	Err      error
}

func (e GenerationError) Error() string {
	if e.Batch > 0 {
		return fmt.Sprintf("changelog: analyzing batch %d failed: %v", e.Batch, e.Err)
	}
	return fmt.Sprintf("changelog: generating %s changelog failed: %v", e.Audience, e.Err)
}

func (e GenerationError) Unwrap() error { return e.Err }

func (e GenerationError) Is(other error) bool {
	_, ok := other.(GenerationError)
	return ok
}

type PersistError struct {
	Path string
	Err  error
}

func (e PersistError) Error() string {
	return fmt.Sprintf("changelog: writing %s failed: %v", e.Path, e.Err)
}

func (e PersistError) Unwrap() error { return e.Err }

func (e PersistError) Is(other error) bool {
	_, ok := other.(PersistError)
	return ok
}

type Assembler struct {
	cfg      config.Config
	gen      ai.Generator
	progress progress.Reporter
	now      func() time.Time
}

func New(cfg config.Config, gen ai.Generator, rep progress.Reporter) *Assembler {
	if rep == nil {
		rep = progress.Nop{}
	}
	return &Assembler{
		cfg:      cfg,
		gen:      gen,
		progress: rep,
		now:      time.Now,
	}
}

func (a *Assembler) limits() Limits {
	return Limits{Files: a.cfg.MaxDiffFiles, Lines: a.cfg.MaxDiffLines}
}

// BuildContext renders details using the configured diff limits.
func (a *Assembler) BuildContext(details []*model.CommitDetail, release string) string {
	return BuildContext(details, release, a.limits())
}

// structured reports whether generation asks for a {"content": ...}
// response. The command line analyzer returns plain markdown.
func (a *Assembler) structured() bool {
	return a.cfg.Transport != config.TransportCLI
}

// Generate writes the changelog for one audience.
func (a *Assembler) Generate(ctx context.Context, audience model.Audience, contextDoc, release string) (string, error) {
	aud, err := a.cfg.GetAudience(audience)
	if err != nil {
		return "", err
	}
	prompt, err := aud.RenderPrompt(config.PromptData{Release: release, Context: contextDoc})
	if err != nil {
		return "", fmt.Errorf("changelog: %s prompt: %w", audience, err)
	}

	var schema *ai.Schema
	if a.structured() {
		schema = ai.ContentSchema
	}
	text, err := a.gen.Generate(ctx, prompt, schema)
	if err != nil {
		return "", GenerationError{Audience: audience, Err: err}
	}
	if schema == nil {
		return text, nil
	}
	body, err := ai.ParseContent(text)
	if err != nil {
		return "", GenerationError{Audience: audience, Err: err}
	}
	return body, nil
}

// GenerateAll generates a changelog for every audience, in order.
func (a *Assembler) GenerateAll(ctx context.Context, contextDoc, release string) ([]model.Changelog, error) {
	stage := progress.StageGenerate
	var docs []model.Changelog
	for _, aud := range model.Audiences {
		a.progress.Start(stage, fmt.Sprintf("Generating %s changelog", aud))
		body, err := a.Generate(ctx, aud, contextDoc, release)
		if err != nil {
			a.progress.Fail(stage, fmt.Sprintf("Failed to generate %s changelog", aud))
			return nil, err
		}
		a.progress.Succeed(stage, fmt.Sprintf("Generated %s changelog", aud))
		docs = append(docs, model.Changelog{Audience: aud, TagName: release, Body: body})
	}
	return docs, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "-")
}

// Persist writes docs into a new directory named after the release and the
// current time. It returns that directory and the names of the files
// written to it, in docs order.
func (a *Assembler) Persist(release string, docs []model.Changelog) (string, []string, error) {
	stage := progress.StagePersist
	a.progress.Start(stage, "Saving changelogs")

	dir, err := a.createReleaseDir(release)
	if err != nil {
		a.progress.Fail(stage, "Failed to save changelogs")
		return "", nil, err
	}
	var names []string
	for _, doc := range docs {
		aud, err := a.cfg.GetAudience(doc.Audience)
		if err != nil {
			a.progress.Fail(stage, "Failed to save changelogs")
			return dir, names, err
		}
		name, err := aud.RenderFileName(release)
		if err != nil {
			a.progress.Fail(stage, "Failed to save changelogs")
			return dir, names, fmt.Errorf("changelog: %s file name: %w", doc.Audience, err)
		}
		name = sanitize(name)
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(doc.Body), 0644); err != nil {
			a.progress.Fail(stage, "Failed to save changelogs")
			return dir, names, PersistError{Path: p, Err: err}
		}
		names = append(names, name)
	}
	a.progress.Succeed(stage, fmt.Sprintf("Changelogs saved to: %s", dir))
	return dir, names, nil
}

func (a *Assembler) createReleaseDir(release string) (string, error) {
	root := a.cfg.ResultsDir
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", PersistError{Path: root, Err: err}
	}
	base := filepath.Join(root, fmt.Sprintf("%s_%s", sanitize(release), a.now().Format("20060102_150405")))
	dir := base
	for i := 2; ; i++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) || i > 100 {
			return "", PersistError{Path: dir, Err: err}
		}
		dir = fmt.Sprintf("%s_%d", base, i)
	}
}
