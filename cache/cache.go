// Package cache persists collected commits and commit details per tag pair
// so an interrupted run can resume.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jeffrom/tagnotes/model"
)

type Kind string

const (
	KindCommits Kind = "commits"
	KindDetails Kind = "details"
)

type CommitsRecord struct {
	FromTag string                 `json:"from_tag"`
	ToTag   string                 `json:"to_tag"`
	Commits []*model.CommitSummary `json:"commits"`
	Count   int                    `json:"count"`
}

type DetailsRecord struct {
	FromTag string                         `json:"from_tag"`
	ToTag   string                         `json:"to_tag"`
	Details map[string]*model.CommitDetail `json:"details"`
}

// Store keeps one JSON file per (from, to, kind) in a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key is the hex md5 of "from:to:kind".
func Key(pair model.TagPair, kind Kind) string {
	sum := md5.Sum([]byte(pair.FromTag + ":" + pair.ToTag + ":" + string(kind)))
	return hex.EncodeToString(sum[:])
}

// Path returns the file backing the record. Tag names are sanitized for the
// filesystem; the hash keeps names that sanitize the same apart.
func (s *Store) Path(pair model.TagPair, kind Kind) string {
	name := fmt.Sprintf("%s_%s_%s_%s.json",
		kind,
		unsafeChars.ReplaceAllString(pair.FromTag, "-"),
		unsafeChars.ReplaceAllString(pair.ToTag, "-"),
		Key(pair, kind),
	)
	return filepath.Join(s.dir, name)
}

// LoadCommits returns the cached commit list. ok is false when nothing is
// cached for pair.
func (s *Store) LoadCommits(pair model.TagPair) (commits []*model.CommitSummary, ok bool, err error) {
	var rec CommitsRecord
	ok, err = s.read(s.Path(pair, KindCommits), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	if rec.Commits == nil {
		rec.Commits = []*model.CommitSummary{}
	}
	return rec.Commits, true, nil
}

func (s *Store) SaveCommits(pair model.TagPair, commits []*model.CommitSummary) error {
	rec := CommitsRecord{
		FromTag: pair.FromTag,
		ToTag:   pair.ToTag,
		Commits: commits,
		Count:   len(commits),
	}
	return s.write(s.Path(pair, KindCommits), rec)
}

// LoadDetails returns cached details keyed by full commit id. A missing
// record is an empty map.
func (s *Store) LoadDetails(pair model.TagPair) (map[string]*model.CommitDetail, error) {
	var rec DetailsRecord
	if _, err := s.read(s.Path(pair, KindDetails), &rec); err != nil {
		return nil, err
	}
	if rec.Details == nil {
		rec.Details = make(map[string]*model.CommitDetail)
	}
	return rec.Details, nil
}

// SaveDetail adds one detail to the pair's record and rewrites it.
func (s *Store) SaveDetail(pair model.TagPair, detail *model.CommitDetail) error {
	details, err := s.LoadDetails(pair)
	if err != nil {
		return err
	}
	details[detail.FullID] = detail
	rec := DetailsRecord{
		FromTag: pair.FromTag,
		ToTag:   pair.ToTag,
		Details: details,
	}
	return s.write(s.Path(pair, KindDetails), rec)
}

// Clear removes both records for pair. It returns the number of files
// removed.
func (s *Store) Clear(pair model.TagPair) (int, error) {
	n := 0
	for _, kind := range []Kind{KindCommits, KindDetails} {
		err := os.Remove(s.Path(pair, kind))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("cache: %w", err)
		}
		n++
	}
	return n, nil
}

// ClearAll removes every cache file in the directory.
func (s *Store) ClearAll() (int, error) {
	n := 0
	for _, kind := range []Kind{KindCommits, KindDetails} {
		matches, err := filepath.Glob(filepath.Join(s.dir, string(kind)+"_*.json"))
		if err != nil {
			return n, fmt.Errorf("cache: %w", err)
		}
		for _, p := range matches {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return n, fmt.Errorf("cache: %w", err)
			}
			n++
		}
	}
	return n, nil
}

// read decodes the record at p. A record that does not decode is treated as
// missing and is replaced by the next write.
func (s *Store) read(p string, v interface{}) (bool, error) {
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, nil
	}
	return true, nil
}

// write replaces p atomically by renaming a temp file in the same directory.
func (s *Store) write(p string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	f, err := os.CreateTemp(s.dir, "."+strings.TrimSuffix(filepath.Base(p), ".json")+"-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("cache: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
