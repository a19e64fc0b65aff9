package runner

import (
	"bytes"
	"testing"

	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
)

func TestShortlog(t *testing.T) {
	cfg := config.New(nil)
	rnr := New(cfg, nil, nil, nil)

	b := &bytes.Buffer{}
	commits := []*model.CommitSummary{
		{ID: "deadbeefcafe", Title: "hey it's a commit"},
		{ID: "abc", Title: "short id"},
	}
	if err := rnr.shortlog(b, model.TagPair{FromTag: "v1.2.2", ToTag: "v1.2.3"}, commits); err != nil {
		t.Fatal(err)
	}

	expect := `
Commits to analyze (2) in v1.2.2..v1.2.3:
  1. deadbeef - hey it's a commit
  2. abc - short id

`
	if b.String() != expect {
		t.Fatalf("expected:\n%q\ngot:\n%q", expect, b.String())
	}
}
