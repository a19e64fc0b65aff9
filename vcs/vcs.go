// Package vcs abstracts the repository host. Currently just GitLab.
package vcs

import (
	"context"
	"fmt"

	"github.com/jeffrom/tagnotes/model"
)

type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("vcs: ref %q not found", e.Ref)
}

func (e NotFoundError) Is(other error) bool {
	_, ok := other.(NotFoundError)
	return ok
}

// Interface is the repository host. Tags are returned newest first, ordered
// by last update. Compare returns the commits reachable from toRef and not
// from fromRef, in the host's order.
type Interface interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	Compare(ctx context.Context, fromRef, toRef string) ([]*model.CommitSummary, error)
	GetCommit(ctx context.Context, id string) (*model.CommitSummary, error)
	GetDiff(ctx context.Context, id string) ([]model.FileDiff, error)
	GetStats(ctx context.Context, id string) (model.Stats, error)
}
