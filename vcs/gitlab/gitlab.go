// Package gitlab implements vcs.Interface using the GitLab REST API (v4).
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/vcs"
)

const perPage = 100

// GitLab implements vcs.Interface for a single project.
type GitLab struct {
	cfg     config.Config
	project string
	client  *gitlab.Client

	mu    sync.Mutex
	stats map[string]model.Stats
}

func New(cfg config.Config) (*GitLab, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("gitlab: project id is required")
	}
	if cfg.GitLabToken == "" {
		return nil, errors.New("gitlab: access token is required")
	}
	base := strings.TrimRight(cfg.GitLabURL, "/")
	if base == "" {
		base = config.GetDefault().GitLabURL
	}

	client, err := gitlab.NewClient(cfg.GitLabToken,
		gitlab.WithBaseURL(base),
		gitlab.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout.D()}),
		gitlab.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab: %w", err)
	}
	return &GitLab{
		cfg:     cfg,
		project: cfg.ProjectID,
		client:  client,
		stats:   make(map[string]model.Stats),
	}, nil
}

// wrap maps a 404 to vcs.NotFoundError for ref and prefixes everything else
// with the operation and the response status.
func wrap(op, ref string, resp *gitlab.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("gitlab: %s: %w", op, vcs.NotFoundError{Ref: ref})
	}
	if resp != nil && resp.Response != nil {
		return fmt.Errorf("gitlab: %s failed: %s: %w", op, resp.Status, err)
	}
	return fmt.Errorf("gitlab: %s: %w", op, err)
}

func summary(c *gitlab.Commit) *model.CommitSummary {
	s := &model.CommitSummary{
		ID:         c.ID,
		Title:      c.Title,
		Message:    c.Message,
		AuthorName: c.AuthorName,
	}
	if c.CreatedAt != nil {
		s.CreatedAt = *c.CreatedAt
	}
	return s
}

// Project fetches the project name. It doubles as a credentials check.
func (g *GitLab) Project(ctx context.Context) (string, error) {
	g.cfg.Debugf("+ gitlab: get project %s", g.project)
	p, resp, err := g.client.Projects.GetProject(g.project, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", wrap("get project", "project", resp, err)
	}
	if p.Name == "" {
		return p.PathWithNamespace, nil
	}
	return p.Name, nil
}

func (g *GitLab) ListTags(ctx context.Context) ([]model.Tag, error) {
	opt := &gitlab.ListTagsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
		OrderBy:     gitlab.Ptr("updated"),
		Sort:        gitlab.Ptr("desc"),
	}

	var tags []model.Tag
	for {
		g.cfg.Debugf("+ gitlab: list tags page %d", opt.Page)
		page, resp, err := g.client.Tags.ListTags(g.project, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrap("list tags", "tags", resp, err)
		}
		for _, t := range page {
			tag := model.Tag{Name: t.Name}
			if t.Commit != nil {
				tag.CommitID = t.Commit.ID
			}
			tags = append(tags, tag)
		}
		if resp.NextPage == 0 {
			return tags, nil
		}
		if resp.NextPage <= opt.Page {
			return nil, fmt.Errorf("gitlab: list tags: pagination did not advance past page %d", opt.Page)
		}
		opt.Page = resp.NextPage
	}
}

func (g *GitLab) Compare(ctx context.Context, fromRef, toRef string) ([]*model.CommitSummary, error) {
	opt := &gitlab.CompareOptions{
		From: gitlab.Ptr(fromRef),
		To:   gitlab.Ptr(toRef),
	}
	g.cfg.Debugf("+ gitlab: compare %s..%s", fromRef, toRef)
	res, resp, err := g.client.Repositories.Compare(g.project, opt, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrap("compare", fromRef+".."+toRef, resp, err)
	}
	commits := make([]*model.CommitSummary, len(res.Commits))
	for i, c := range res.Commits {
		commits[i] = summary(c)
	}
	return commits, nil
}

func (g *GitLab) GetCommit(ctx context.Context, id string) (*model.CommitSummary, error) {
	opt := &gitlab.GetCommitOptions{Stats: gitlab.Ptr(true)}
	g.cfg.Debugf("+ gitlab: get commit %s", id)
	c, resp, err := g.client.Commits.GetCommit(g.project, id, opt, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrap("get commit", id, resp, err)
	}
	if c.Stats != nil {
		g.mu.Lock()
		g.stats[c.ID] = model.Stats{Additions: c.Stats.Additions, Deletions: c.Stats.Deletions}
		g.mu.Unlock()
	}
	return summary(c), nil
}

func (g *GitLab) GetDiff(ctx context.Context, id string) ([]model.FileDiff, error) {
	opt := &gitlab.GetCommitDiffOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
	}

	var diffs []model.FileDiff
	for {
		g.cfg.Debugf("+ gitlab: get diff %s page %d", id, opt.Page)
		page, resp, err := g.client.Commits.GetCommitDiff(g.project, id, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrap("get diff", id, resp, err)
		}
		for _, d := range page {
			diffs = append(diffs, model.FileDiff{
				OldPath:   d.OldPath,
				NewPath:   d.NewPath,
				IsNew:     d.NewFile,
				IsDeleted: d.DeletedFile,
				PatchText: d.Diff,
			})
		}
		if resp.NextPage == 0 {
			return diffs, nil
		}
		if resp.NextPage <= opt.Page {
			return nil, fmt.Errorf("gitlab: get diff %s: pagination did not advance past page %d", id, opt.Page)
		}
		opt.Page = resp.NextPage
	}
}

// GetStats returns the stats seen by the last GetCommit for id, fetching
// the commit if it hasn't been.
func (g *GitLab) GetStats(ctx context.Context, id string) (model.Stats, error) {
	g.mu.Lock()
	stats, ok := g.stats[id]
	if ok {
		delete(g.stats, id)
	}
	g.mu.Unlock()
	if ok {
		return stats, nil
	}

	if _, err := g.GetCommit(ctx, id); err != nil {
		return model.Stats{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	stats = g.stats[id]
	delete(g.stats, id)
	return stats, nil
}

var _ vcs.Interface = (*GitLab)(nil)
