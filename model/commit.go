package model

import "time"

// CommitSummary is one commit returned by a compare between two revisions.
type CommitSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c *CommitSummary) ShortID() string {
	return shortID(c.ID)
}

// DisplayTitle is the title cut to 60 characters for listings.
func (c *CommitSummary) DisplayTitle() string {
	return truncate(c.Title, 60)
}

// CommitDetail is a fully fetched commit with its diff and stats.
type CommitDetail struct {
	ShortID string     `json:"id"`
	FullID  string     `json:"full_id"`
	Message string     `json:"message"`
	Title   string     `json:"title"`
	Author  string     `json:"author"`
	Date    time.Time  `json:"date"`
	Diff    []FileDiff `json:"diff"`
	Stats   Stats      `json:"stats"`
}

// FileDiff is the change to a single file in a commit.
type FileDiff struct {
	OldPath   string `json:"old_path,omitempty"`
	NewPath   string `json:"new_path,omitempty"`
	IsNew     bool   `json:"new_file"`
	IsDeleted bool   `json:"deleted_file"`
	PatchText string `json:"diff"`
}

// Path prefers the new path, falling back to the old one.
func (d FileDiff) Path() string {
	if d.NewPath != "" {
		return d.NewPath
	}
	if d.OldPath != "" {
		return d.OldPath
	}
	return "unknown"
}

// ChangeType is "new", "deleted" or "modified".
func (d FileDiff) ChangeType() string {
	switch {
	case d.IsNew:
		return "new"
	case d.IsDeleted:
		return "deleted"
	default:
		return "modified"
	}
}

type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// NewCommitDetail assembles a detail record from a fetched commit.
func NewCommitDetail(c *CommitSummary, diff []FileDiff, stats Stats) *CommitDetail {
	return &CommitDetail{
		ShortID: c.ShortID(),
		FullID:  c.ID,
		Message: c.Message,
		Title:   c.Title,
		Author:  c.AuthorName,
		Date:    c.CreatedAt,
		Diff:    diff,
		Stats:   stats,
	}
}
