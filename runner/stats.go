package runner

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeffrom/tagnotes/model"
)

type Stats struct {
	Commits   int64
	Additions int64
	Deletions int64
	Counts    map[string][]*statCount
}

// NewStats counts commits per author and files per change type.
func NewStats(details []*model.CommitDetail) *Stats {
	stats := &Stats{
		Commits: int64(len(details)),
		Counts:  make(map[string][]*statCount),
	}
	for _, d := range details {
		stats.Additions += int64(d.Stats.Additions)
		stats.Deletions += int64(d.Stats.Deletions)
		stats.Add("author", d.Author, 1)
		for _, fd := range d.Diff {
			stats.Add("change_type", fd.ChangeType(), 1)
		}
	}
	return stats
}

func (s *Stats) Add(bucket, name string, n int64) {
	counts := s.Counts[bucket]
	count, found := s.findCount(name, counts)
	if !found {
		counts = append(counts, count)
	}
	count.Add(n)

	s.Counts[bucket] = counts
}

// Count returns the count for name in bucket.
func (s *Stats) Count(bucket, name string) int64 {
	c, _ := s.findCount(name, s.Counts[bucket])
	return c.n
}

func (s *Stats) findCount(name string, counts []*statCount) (*statCount, bool) {
	for _, c := range counts {
		if c.label == name {
			return c, true
		}
	}
	return &statCount{label: name}, false
}

func (s *Stats) sortedBuckets() []string {
	buckets := make([]string, 0, len(s.Counts))
	for name := range s.Counts {
		buckets = append(buckets, name)
	}
	sort.Strings(buckets)
	return buckets
}

type statCount struct {
	label string
	n     int64
}

func (c *statCount) Add(n int64) {
	c.n += n
}

func (s *Stats) TextSummary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(fmt.Sprintf("%d commits, +%d -%d\n\n", s.Commits, s.Additions, s.Deletions))

	for _, name := range s.sortedBuckets() {
		counts := s.Counts[name]
		sort.SliceStable(counts, func(i, j int) bool {
			if counts[i].n != counts[j].n {
				return counts[i].n > counts[j].n
			}
			return counts[i].label < counts[j].label
		})
		bw.WriteString(fmt.Sprintf("%s:\n", toTitle(name)))
		for _, count := range counts {
			label := count.label
			if label == "" {
				label = "n/a"
			}
			bw.WriteString(fmt.Sprintf("  %20s\t\t%d\n", label, count.n))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

var nonAlphaRE = regexp.MustCompile(`[^A-Za-z]`)

func toTitle(s string) string {
	s = nonAlphaRE.ReplaceAllLiteralString(s, " ")
	return cases.Title(language.English).String(s)
}
