package commit

import (
	"sort"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
)

// tagVersion parses a tag name such as v1.2.3, 1.2 or scope/v1.2.3-rc.1.
func tagVersion(name string) (semver.Version, bool) {
	s := name
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return semver.Version{}, false
	}
	v, err := semver.ParseTolerant(s)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

type versionedTag struct {
	tag model.Tag
	v   semver.Version
	ok  bool
}

type newestFirst []versionedTag

func (s newestFirst) Len() int      { return len(s) }
func (s newestFirst) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Less puts semver tags first, highest version first. Tags that aren't
// semver compare equal to each other so the stable sort keeps host order.
func (s newestFirst) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.ok != b.ok {
		return a.ok
	}
	if !a.ok {
		return false
	}
	return a.v.GT(b.v)
}

// SortTags returns tags in the order resolution should use. The host order
// (most recently updated first) is kept unless order is semver.
func SortTags(tags []model.Tag, order string) []model.Tag {
	res := make([]model.Tag, len(tags))
	copy(res, tags)
	if order != config.TagOrderSemver {
		return res
	}

	vts := make([]versionedTag, len(res))
	for i, t := range res {
		v, ok := tagVersion(t.Name)
		vts[i] = versionedTag{tag: t, v: v, ok: ok}
	}
	sort.Stable(newestFirst(vts))
	for i, vt := range vts {
		res[i] = vt.tag
	}
	return res
}
