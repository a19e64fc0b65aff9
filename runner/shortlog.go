package runner

import (
	"io"
	"text/template"

	"github.com/jeffrom/tagnotes/model"
)

const defaultShortlogTemplate = `
Commits to analyze ({{ len .Commits }}) in {{ .Pair.FromTag }}..{{ .Pair.ToTag }}:
{{ range $i, $commit := .Commits }}  {{ inc $i }}. {{ $commit.ShortID }} - {{ $commit.DisplayTitle }}
{{ end }}
`

type shortlogData struct {
	Pair    model.TagPair
	Commits []*model.CommitSummary
}

var shortlogFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func (r *Runner) shortlog(w io.Writer, pair model.TagPair, commits []*model.CommitSummary) error {
	t, err := template.New("shortlog").Funcs(shortlogFuncs).Parse(defaultShortlogTemplate)
	if err != nil {
		return err
	}
	return t.Execute(w, shortlogData{Pair: pair, Commits: commits})
}
