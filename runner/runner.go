// Package runner manages command-line execution
package runner

import (
	"context"
	"fmt"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/cache"
	"github.com/jeffrom/tagnotes/changelog"
	"github.com/jeffrom/tagnotes/commit"
	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/progress"
	"github.com/jeffrom/tagnotes/vcs"
)

// StageError names the pipeline stage that failed.
type StageError struct {
	Stage progress.Stage
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error { return e.Err }

func (e StageError) Is(other error) bool {
	_, ok := other.(StageError)
	return ok
}

// Projecter is implemented by hosts that can report the project they are
// connected to.
type Projecter interface {
	Project(ctx context.Context) (string, error)
}

type Runner struct {
	cfg       config.Config
	vcs       vcs.Interface
	gen       ai.Generator
	store     *cache.Store
	collector *commit.Collector
	assembler *changelog.Assembler
	progress  progress.Reporter
}

// New returns a runner. host and gen may be nil when only Check or
// ClearCache will be used.
func New(cfg config.Config, host vcs.Interface, gen ai.Generator, rep progress.Reporter) *Runner {
	if rep == nil {
		rep = progress.Nop{}
	}
	store := cache.NewStore(cfg.CacheDir)
	var c commit.Cache
	if cfg.UseCache {
		c = store
	}
	return &Runner{
		cfg:       cfg,
		vcs:       host,
		gen:       gen,
		store:     store,
		collector: commit.NewCollector(cfg, host, c, rep),
		assembler: changelog.New(cfg, gen, rep),
		progress:  rep,
	}
}

type Result struct {
	Pair    model.TagPair
	Tags    []model.Tag
	Commits []*model.CommitSummary
	Details []*model.CommitDetail
	Stats   *Stats
	// Dir is empty when there was nothing to generate.
	Dir   string
	Files []string
}

func (r *Runner) connect(ctx context.Context) error {
	p, ok := r.vcs.(Projecter)
	if !ok {
		return nil
	}
	r.progress.Start(progress.StageConnect, "Connecting to GitLab")
	name, err := p.Project(ctx)
	if err != nil {
		r.progress.Fail(progress.StageConnect, "Failed to connect to GitLab")
		return err
	}
	r.progress.Succeed(progress.StageConnect, fmt.Sprintf("Connected to project: %s", name))
	return nil
}

// ResolvePair lists the host's tags and resolves the pair to compare.
func (r *Runner) ResolvePair(ctx context.Context, fromTag, toTag string) (model.TagPair, []model.Tag, error) {
	tags, err := r.collector.Tags(ctx)
	if err != nil {
		return model.TagPair{}, nil, StageError{Stage: progress.StageTags, Err: err}
	}
	pair, err := commit.Resolve(fromTag, toTag, tags)
	if err != nil {
		r.progress.Fail(progress.StageTags, "Could not resolve tags")
		return model.TagPair{}, tags, StageError{Stage: progress.StageTags, Err: err}
	}
	from, to := tags[commit.IndexOf(tags, pair.FromTag)], tags[commit.IndexOf(tags, pair.ToTag)]
	r.progress.Succeed(progress.StageTags, fmt.Sprintf("Comparing %s (%s) -> %s (%s)",
		from.Name, from.ShortCommit(), to.Name, to.ShortCommit()))
	return pair, tags, nil
}

// Run generates and writes the changelogs for the resolved tag pair.
func (r *Runner) Run(ctx context.Context, fromTag, toTag string) (*Result, error) {
	if err := r.connect(ctx); err != nil {
		return nil, StageError{Stage: progress.StageConnect, Err: err}
	}
	pair, tags, err := r.ResolvePair(ctx, fromTag, toTag)
	if err != nil {
		return nil, err
	}
	res := &Result{Pair: pair, Tags: tags}

	commits, err := r.collector.CollectCommits(ctx, pair)
	if err != nil {
		return res, StageError{Stage: progress.StageCommits, Err: err}
	}
	res.Commits = commits
	if len(commits) == 0 {
		r.progress.Warn(progress.StageCommits, fmt.Sprintf("No commits found between %s and %s", pair.FromTag, pair.ToTag))
		return res, nil
	}
	if !r.cfg.Quiet {
		if err := r.shortlog(r.cfg.Term.Stdout, pair, commits); err != nil {
			return res, err
		}
	}

	details, err := r.collector.CollectDetails(ctx, pair, commits)
	res.Details = details
	if err != nil {
		return res, StageError{Stage: progress.StageDetails, Err: err}
	}
	res.Stats = NewStats(details)

	contextDoc, err := r.buildContext(ctx, details, pair.ToTag)
	if err != nil {
		return res, err
	}

	docs, err := r.assembler.GenerateAll(ctx, contextDoc, pair.ToTag)
	if err != nil {
		return res, StageError{Stage: progress.StageGenerate, Err: err}
	}

	dir, files, err := r.assembler.Persist(pair.ToTag, docs)
	res.Dir = dir
	res.Files = files
	if err != nil {
		return res, StageError{Stage: progress.StagePersist, Err: err}
	}
	return res, nil
}

// buildContext renders the document sent with each audience prompt. The
// command line transport categorizes commits in batches first and sends
// the merged summary instead of raw diffs.
func (r *Runner) buildContext(ctx context.Context, details []*model.CommitDetail, release string) (string, error) {
	if r.cfg.Transport == config.TransportCLI {
		analyses, err := r.assembler.Analyze(ctx, details)
		if err != nil {
			return "", StageError{Stage: progress.StageAnalyze, Err: err}
		}
		return changelog.SummaryContext(analyses), nil
	}

	r.progress.Start(progress.StageContext, "Preparing context")
	doc := r.assembler.BuildContext(details, release)
	r.progress.Succeed(progress.StageContext, fmt.Sprintf("Prepared context (%d bytes)", len(doc)))
	return doc, nil
}

// ClearCache removes the cached records for the resolved pair, or every
// cache file when all is set.
func (r *Runner) ClearCache(ctx context.Context, fromTag, toTag string, all bool) (int, error) {
	if all {
		n, err := r.store.ClearAll()
		if err != nil {
			return n, StageError{Stage: progress.StageCache, Err: err}
		}
		r.progress.Succeed(progress.StageCache, fmt.Sprintf("Removed %d cache files from %s", n, r.store.Dir()))
		return n, nil
	}

	// both names given: no need to ask the host
	pair := model.TagPair{FromTag: fromTag, ToTag: toTag}
	if fromTag == "" || toTag == "" {
		var err error
		pair, _, err = r.ResolvePair(ctx, fromTag, toTag)
		if err != nil {
			return 0, err
		}
	}
	n, err := r.store.Clear(pair)
	if err != nil {
		return n, StageError{Stage: progress.StageCache, Err: err}
	}
	r.progress.Succeed(progress.StageCache, fmt.Sprintf("Removed %d cache files for %s from %s", n, pair, r.store.Dir()))
	return n, nil
}
