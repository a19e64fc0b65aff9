// Package model contains abstract data models.
package model

import "unicode/utf8"

// Tag is a named pointer to a revision, as listed by the repository host.
type Tag struct {
	Name     string `json:"name"`
	CommitID string `json:"commit_id"`
}

func (t Tag) ShortCommit() string {
	return shortID(t.CommitID)
}

// TagPair is the older/newer tag pair to diff. FromTag is always strictly
// older than ToTag in the host's tag ordering.
type TagPair struct {
	FromTag string `json:"from_tag"`
	ToTag   string `json:"to_tag"`
}

func (p TagPair) String() string {
	return p.FromTag + ".." + p.ToTag
}

// Audience is the intended reader of a changelog.
type Audience string

const (
	Commercial Audience = "commercial"
	Technical  Audience = "technical"
)

// Audiences lists the audiences generated on every run, in order.
var Audiences = []Audience{Commercial, Technical}

// Changelog is one generated document.
type Changelog struct {
	Audience Audience
	TagName  string
	Body     string
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

// truncate cuts s to n characters, appending "..." when anything was cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

