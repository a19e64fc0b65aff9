// Package commit resolves the tag pair to release and collects the commits
// between the two tags.
package commit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/progress"
	"github.com/jeffrom/tagnotes/vcs"
)

// UpstreamFetchError is a repository host fault. Completed counts the
// commits finished before it, all of which remain cached.
type UpstreamFetchError struct {
	Op        string
	Completed int
	Err       error
}

func (e UpstreamFetchError) Error() string {
	return fmt.Sprintf("commit: %s failed after %d commits: %v", e.Op, e.Completed, e.Err)
}

func (e UpstreamFetchError) Unwrap() error { return e.Err }

func (e UpstreamFetchError) Is(other error) bool {
	_, ok := other.(UpstreamFetchError)
	return ok
}

// Interrupted is returned when the context is canceled while collecting.
// Completed commits are usable, Fetched of which came from the host during
// this run.
type Interrupted struct {
	Completed int
	Fetched   int
	Total     int
}

func (e Interrupted) Error() string {
	return fmt.Sprintf("commit: interrupted after %d of %d commits", e.Completed, e.Total)
}

func (e Interrupted) Is(other error) bool {
	_, ok := other.(Interrupted)
	return ok
}

// Cache is the storage the collector resumes from. cache.Store implements
// it.
type Cache interface {
	LoadCommits(pair model.TagPair) ([]*model.CommitSummary, bool, error)
	SaveCommits(pair model.TagPair, commits []*model.CommitSummary) error
	LoadDetails(pair model.TagPair) (map[string]*model.CommitDetail, error)
	SaveDetail(pair model.TagPair, detail *model.CommitDetail) error
}

type Collector struct {
	cfg      config.Config
	vcs      vcs.Interface
	cache    Cache
	progress progress.Reporter
}

// NewCollector returns a collector reading from host. A nil cache disables
// caching and a nil reporter discards progress.
func NewCollector(cfg config.Config, host vcs.Interface, cache Cache, rep progress.Reporter) *Collector {
	if rep == nil {
		rep = progress.Nop{}
	}
	return &Collector{
		cfg:      cfg,
		vcs:      host,
		cache:    cache,
		progress: rep,
	}
}

func isCancel(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}

// Tags lists the host's tags in resolution order.
func (c *Collector) Tags(ctx context.Context) ([]model.Tag, error) {
	c.progress.Start(progress.StageTags, "Fetching tags")
	tags, err := c.vcs.ListTags(ctx)
	if err != nil {
		c.progress.Fail(progress.StageTags, "Failed to fetch tags")
		if isCancel(ctx, err) {
			return nil, Interrupted{}
		}
		return nil, UpstreamFetchError{Op: "list tags", Err: err}
	}
	tags = SortTags(tags, c.cfg.TagOrder)
	c.progress.Succeed(progress.StageTags, fmt.Sprintf("Found %d tags", len(tags)))
	return tags, nil
}

// CollectCommits returns the commits reachable from pair.ToTag and not from
// pair.FromTag, in the order the host compares them.
func (c *Collector) CollectCommits(ctx context.Context, pair model.TagPair) ([]*model.CommitSummary, error) {
	stage := progress.StageCommits
	if c.cache != nil {
		commits, ok, err := c.cache.LoadCommits(pair)
		if err != nil {
			return nil, err
		}
		if ok {
			c.progress.Succeed(stage, fmt.Sprintf("Loaded %d commits from cache", len(commits)))
			return commits, nil
		}
	}

	c.progress.Start(stage, fmt.Sprintf("Comparing %s", pair))
	found, err := c.vcs.Compare(ctx, pair.FromTag, pair.ToTag)
	if err != nil {
		c.progress.Fail(stage, fmt.Sprintf("Failed to compare %s", pair))
		if isCancel(ctx, err) {
			return nil, Interrupted{}
		}
		return nil, UpstreamFetchError{Op: "compare " + pair.String(), Err: err}
	}

	commits := make([]*model.CommitSummary, 0, len(found))
	for i, fc := range found {
		if ctx.Err() != nil {
			c.progress.Fail(stage, "Interrupted")
			return nil, Interrupted{Completed: i, Fetched: i, Total: len(found)}
		}
		c.progress.Update(stage, fmt.Sprintf("Fetching commit %d/%d", i+1, len(found)))

		commit, err := c.vcs.GetCommit(ctx, fc.ID)
		if err != nil {
			c.progress.Fail(stage, fmt.Sprintf("Failed to fetch commit %s", fc.ShortID()))
			if isCancel(ctx, err) {
				return nil, Interrupted{Completed: i, Fetched: i, Total: len(found)}
			}
			return nil, UpstreamFetchError{Op: "get commit " + fc.ShortID(), Completed: i, Err: err}
		}
		commits = append(commits, commit)
	}

	if c.cache != nil {
		if err := c.cache.SaveCommits(pair, commits); err != nil {
			return nil, err
		}
	}
	c.progress.Succeed(stage, fmt.Sprintf("Found %d commits", len(commits)))
	return commits, nil
}

// CollectDetails fetches the diff and stats for each commit, in order.
// With a cache, details already stored are reused and each newly fetched
// detail is stored before the next fetch starts.
func (c *Collector) CollectDetails(ctx context.Context, pair model.TagPair, commits []*model.CommitSummary) ([]*model.CommitDetail, error) {
	stage := progress.StageDetails
	cached := map[string]*model.CommitDetail{}
	if c.cache != nil {
		var err error
		cached, err = c.cache.LoadDetails(pair)
		if err != nil {
			return nil, err
		}
	}

	total := len(commits)
	c.progress.Start(stage, fmt.Sprintf("Fetching details for %d commits", total))
	details := make([]*model.CommitDetail, 0, total)
	fetched := 0
	for i, commit := range commits {
		if d, ok := cached[commit.ID]; ok {
			details = append(details, d)
			continue
		}
		if ctx.Err() != nil {
			c.progress.Fail(stage, fmt.Sprintf("Interrupted after %d/%d commits", i, total))
			return details, Interrupted{Completed: len(details), Fetched: fetched, Total: total}
		}
		c.progress.Update(stage, fmt.Sprintf("Fetching commit %d/%d: %s", i+1, total, commit.ShortID()))

		d, err := c.fetchDetail(ctx, commit, len(details))
		if err != nil {
			if isCancel(ctx, err) {
				c.progress.Fail(stage, fmt.Sprintf("Interrupted after %d/%d commits", i, total))
				return details, Interrupted{Completed: len(details), Fetched: fetched, Total: total}
			}
			c.progress.Fail(stage, fmt.Sprintf("Failed to fetch commit %s", commit.ShortID()))
			return details, err
		}
		if c.cache != nil {
			if err := c.cache.SaveDetail(pair, d); err != nil {
				return details, err
			}
		}
		details = append(details, d)
		fetched++
	}

	msg := fmt.Sprintf("Fetched details for %d commits", total)
	if fetched < total {
		msg = fmt.Sprintf("Fetched details for %d commits (%d from cache)", total, total-fetched)
	}
	c.progress.Succeed(stage, msg)
	return details, nil
}

func (c *Collector) fetchDetail(ctx context.Context, summary *model.CommitSummary, completed int) (*model.CommitDetail, error) {
	short := summary.ShortID()
	commit, err := c.vcs.GetCommit(ctx, summary.ID)
	if err != nil {
		return nil, UpstreamFetchError{Op: "get commit " + short, Completed: completed, Err: err}
	}
	diff, err := c.vcs.GetDiff(ctx, summary.ID)
	if err != nil {
		return nil, UpstreamFetchError{Op: "get diff " + short, Completed: completed, Err: err}
	}
	stats, err := c.vcs.GetStats(ctx, summary.ID)
	if err != nil {
		return nil, UpstreamFetchError{Op: "get stats " + short, Completed: completed, Err: err}
	}
	return model.NewCommitDetail(commit, diff, stats), nil
}
