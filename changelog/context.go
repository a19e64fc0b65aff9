package changelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeffrom/tagnotes/model"
)

// Limits bounds how much of each commit's diff goes into a prompt.
type Limits struct {
	Files int
	Lines int
}

var DefaultLimits = Limits{Files: 5, Lines: 20}

// BuildContext renders details as the markdown document sent along with
// every audience prompt. Output depends only on its arguments.
func BuildContext(details []*model.CommitDetail, release string, lim Limits) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# Release: %s\n\n", release)
	fmt.Fprintf(b, "Total commits: %d\n\n", len(details))
	b.WriteString("## Commits:\n\n")

	for _, d := range details {
		fmt.Fprintf(b, "### Commit %s\n", d.ShortID)
		fmt.Fprintf(b, "**Author:** %s\n", d.Author)
		fmt.Fprintf(b, "**Date:** %s\n", formatDate(d.Date))
		fmt.Fprintf(b, "**Message:**\n%s\n\n", d.Message)
		fmt.Fprintf(b, "**Stats:** +%d -%d\n\n", d.Stats.Additions, d.Stats.Deletions)

		b.WriteString("**Changes:**\n")
		for _, fd := range limitFiles(d.Diff, lim.Files) {
			fmt.Fprintf(b, "- File: %s\n", fd.Path())
			fmt.Fprintf(b, "  Type: %s\n", fd.ChangeType())
			if fd.PatchText != "" {
				fmt.Fprintf(b, "  Diff snippet:\n```\n%s\n```\n", headLines(fd.PatchText, lim.Lines))
			}
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func limitFiles(diffs []model.FileDiff, n int) []model.FileDiff {
	if n >= 0 && len(diffs) > n {
		return diffs[:n]
	}
	return diffs
}

// headLines returns the first n lines of s.
func headLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if n >= 0 && len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
