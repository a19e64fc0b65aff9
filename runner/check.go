package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/config"
)

type CheckFailure struct {
	Failures []FailureEntry
}

// FailureEntry is one failed check. Entries with the same target are
// reported together.
type FailureEntry struct {
	target string
	err    error
}

func (cf CheckFailure) Error() string {
	return fmt.Sprintf("%d check(s) failed", len(cf.Failures))
}

func (cf CheckFailure) Is(other error) bool {
	_, ok := other.(CheckFailure)
	return ok
}

func (cf CheckFailure) WriteFailure(w io.Writer) error {
	if len(cf.Failures) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)

	var targets []string
	byTarget := make(map[string][]FailureEntry)
	for _, failure := range cf.Failures {
		if _, ok := byTarget[failure.target]; !ok {
			targets = append(targets, failure.target)
		}
		byTarget[failure.target] = append(byTarget[failure.target], failure)
	}

	for _, target := range targets {
		bw.WriteString(target)
		bw.WriteString("\n")
		for _, failure := range byTarget[target] {
			bw.WriteString("  ")
			bw.WriteString(failure.err.Error())
			bw.WriteString("\n")
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return nil
}

// Check verifies configuration, credentials, and that GitLab and the AI
// transport respond. Every failure is collected before returning.
func (r *Runner) Check(ctx context.Context) error {
	var failures []FailureEntry
	fail := func(target string, err error) {
		failures = append(failures, FailureEntry{target: target, err: err})
	}

	if err := r.cfg.Validate(); err != nil {
		fail("config", err)
	}

	if r.cfg.GitLabToken == "" {
		fail("gitlab", fmt.Errorf("%s is not set", config.EnvGitLabToken))
	}
	if r.cfg.ProjectID == "" {
		fail("gitlab", fmt.Errorf("%s is not set", config.EnvProjectID))
	}
	if p, ok := r.vcs.(Projecter); ok {
		if name, err := p.Project(ctx); err != nil {
			fail("gitlab", err)
		} else {
			r.cfg.Printf("gitlab: connected to project %s", name)
		}
	}

	if r.cfg.Transport == config.TransportAPI && r.cfg.GeminiToken == "" {
		fail(r.cfg.Transport, fmt.Errorf("%s is not set", config.EnvGeminiToken))
	}
	if r.gen == nil {
		if r.cfg.Transport == config.TransportCLI || r.cfg.GeminiToken != "" {
			fail(r.cfg.Transport, errors.New("no AI transport configured"))
		}
	} else if v, ok := r.gen.(ai.Verifier); ok {
		if err := v.Verify(ctx); err != nil {
			fail(r.cfg.Transport, err)
		}
	}

	for _, dir := range []string{r.cfg.ResultsDir, r.cfg.CacheDir} {
		if dir == r.cfg.CacheDir && !r.cfg.UseCache {
			continue
		}
		if err := checkWritable(dir); err != nil {
			fail(dir, err)
		}
	}

	if len(failures) > 0 {
		return CheckFailure{Failures: failures}
	}
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tagnotes-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
