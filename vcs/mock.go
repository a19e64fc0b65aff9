package vcs

import (
	"context"
	"sync"
	"time"

	"github.com/jeffrom/tagnotes/model"
)

// Mock is an in-memory repository host. Commits registered with SetCommits
// are what Compare returns, regardless of the refs passed.
type Mock struct {
	mu      sync.Mutex
	t       time.Time
	tags    []model.Tag
	commits []*model.CommitSummary
	diffs   map[string][]model.FileDiff
	stats   map[string]model.Stats
	errs    map[string]error
	calls   map[string]int
	hooks   map[string]func(id string)
}

func NewMock() *Mock {
	return &Mock{
		t:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		diffs: make(map[string][]model.FileDiff),
		stats: make(map[string]model.Stats),
		errs:  make(map[string]error),
		calls: make(map[string]int),
		hooks: make(map[string]func(id string)),
	}
}

// SetTags registers tags newest first. Each tag points at a fake commit id
// derived from its name.
func (m *Mock) SetTags(names ...string) *Mock {
	tags := make([]model.Tag, len(names))
	for i, name := range names {
		tags[i] = model.Tag{Name: name, CommitID: "tag0000" + name}
	}
	m.tags = tags
	return m
}

func (m *Mock) SetCommits(commits ...*model.CommitSummary) *Mock {
	finalCommits := make([]*model.CommitSummary, len(commits))
	for i, commit := range commits {
		c := *commit
		if c.CreatedAt.IsZero() {
			c.CreatedAt = m.t
			m.t = m.t.Add(-time.Minute)
		}
		finalCommits[i] = &c
	}
	m.commits = finalCommits
	return m
}

func (m *Mock) SetDiff(id string, diffs ...model.FileDiff) *Mock {
	m.diffs[id] = diffs
	return m
}

func (m *Mock) SetStats(id string, stats model.Stats) *Mock {
	m.stats[id] = stats
	return m
}

// SetError makes the named operation ("ListTags", "Compare", "GetCommit",
// "GetDiff", "GetStats") fail with err.
func (m *Mock) SetError(op string, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
	return m
}

// OnCall runs fn before every call to the named operation.
func (m *Mock) OnCall(op string, fn func(id string)) *Mock {
	m.hooks[op] = fn
	return m
}

// Calls returns how many times the named operation was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls sums calls across all operations.
func (m *Mock) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *Mock) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

func (m *Mock) enter(ctx context.Context, op, id string) error {
	m.mu.Lock()
	m.calls[op]++
	hook := m.hooks[op]
	m.mu.Unlock()

	// hooks may inject errors for the call they observe
	if hook != nil {
		hook(id)
	}
	m.mu.Lock()
	err := m.errs[op]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (m *Mock) ListTags(ctx context.Context) ([]model.Tag, error) {
	if err := m.enter(ctx, "ListTags", ""); err != nil {
		return nil, err
	}
	tags := make([]model.Tag, len(m.tags))
	copy(tags, m.tags)
	return tags, nil
}

func (m *Mock) Compare(ctx context.Context, fromRef, toRef string) ([]*model.CommitSummary, error) {
	if err := m.enter(ctx, "Compare", fromRef+".."+toRef); err != nil {
		return nil, err
	}
	res := make([]*model.CommitSummary, len(m.commits))
	for i, c := range m.commits {
		cp := *c
		res[i] = &cp
	}
	return res, nil
}

func (m *Mock) GetCommit(ctx context.Context, id string) (*model.CommitSummary, error) {
	if err := m.enter(ctx, "GetCommit", id); err != nil {
		return nil, err
	}
	for _, c := range m.commits {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, NotFoundError{Ref: id}
}

func (m *Mock) GetDiff(ctx context.Context, id string) ([]model.FileDiff, error) {
	if err := m.enter(ctx, "GetDiff", id); err != nil {
		return nil, err
	}
	return m.diffs[id], nil
}

func (m *Mock) GetStats(ctx context.Context, id string) (model.Stats, error) {
	if err := m.enter(ctx, "GetStats", id); err != nil {
		return model.Stats{}, err
	}
	return m.stats[id], nil
}
