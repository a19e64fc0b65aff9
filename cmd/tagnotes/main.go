package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/ai/gemini"
	"github.com/jeffrom/tagnotes/ai/geminicli"
	"github.com/jeffrom/tagnotes/commit"
	"github.com/jeffrom/tagnotes/config"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/progress"
	"github.com/jeffrom/tagnotes/runner"
	"github.com/jeffrom/tagnotes/vcs/gitlab"
)

// overridden by go build -X
var Version string

const exitInterrupted = 130

// errInterrupted is returned after the interruption has been reported.
var errInterrupted = errors.New("interrupted")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args, &config.DefaultTermIO)
	stop()
	os.Exit(exitCode(os.Stderr, err))
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errInterrupted) {
		return exitInterrupted
	}
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %v\n", red("Error:"), err)
	return 1
}

func run(ctx context.Context, rawArgs []string, termio *config.TerminalIO) error {
	flagCfg := &config.Config{}

	var help bool
	var version bool
	var cfgFile string
	var fromTag, toTag string
	var clearCache bool
	var clearAll bool
	var check bool
	var printStats bool
	var debugConfig string
	var printConfig bool
	var printAudiences bool
	flags := pflag.NewFlagSet("tagnotes", pflag.ContinueOnError)
	flags.SetOutput(termio.Stderr)
	flags.BoolVarP(&help, "help", "h", false, "show help")
	flags.BoolVarP(&version, "version", "V", false, "print version and exit")
	flags.StringVarP(&fromTag, "from", "f", "", "older tag `name` (default: the tag before --to)")
	flags.StringVarP(&toTag, "to", "t", "", "newer tag `name` (default: the most recent tag)")
	flags.BoolVar(&flagCfg.UseCache, "cache", false, "cache fetched commits and resume interrupted runs")
	flags.StringVar(&flagCfg.Transport, "transport", "", "AI transport: `api` or cli")
	flags.StringVar(&flagCfg.Model, "model", "", "Gemini model `name`")
	flags.StringVar(&flagCfg.TagOrder, "tag-order", "", "tag ordering: `updated` or semver")
	flags.StringVar(&flagCfg.ResultsDir, "results-dir", "", "write changelogs under `dir`")
	flags.StringVar(&flagCfg.CacheDir, "cache-dir", "", "store cache files in `dir`")
	flags.BoolVar(&clearCache, "clear-cache", false, "remove cache files for the tag pair and exit")
	flags.BoolVarP(&clearAll, "all", "a", false, "with --clear-cache, remove every cache file")
	flags.BoolVarP(&check, "check", "C", false, "verify credentials and connectivity and exit")
	flags.BoolVarP(&printStats, "stats", "S", false, "print release stats after collecting commits")
	flags.BoolVarP(&flagCfg.Verbose, "verbose", "v", false, "print additional debugging info")
	flags.BoolVarP(&flagCfg.Quiet, "quiet", "q", false, "print as little as necessary")
	flags.StringVarP(&cfgFile, "config", "c", "", "specify config `file`")
	flags.BoolVar(&printConfig, "print-config", false, "Print default configuration and exit")
	flags.StringVar(&debugConfig, "debug-config", "", "Write configuration to `file` and exit")
	flags.BoolVar(&printAudiences, "print-audiences", false, "Print the effective audience prompts and exit")

	if err := flags.Parse(rawArgs); err != nil {
		return err
	}
	if args := flags.Args(); len(args) > 1 {
		return fmt.Errorf("unexpected arguments: %q", args[1:])
	}

	if help {
		usage(termio, flags)
		return nil
	}
	if version {
		fmt.Fprintln(termio.Stdout, Version)
		return nil
	}
	if printConfig {
		b, err := config.NewWithTerminalIO(nil, termio).YAML()
		if err != nil {
			return err
		}
		fmt.Fprintf(termio.Stdout, "%s", b)
		return nil
	}

	cfg, err := config.Load(cfgFile, flagCfg, termio)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		b, err := json.MarshalIndent(cfg, "", "  ")
		die(err)
		cfg.Debugf("config: %s", string(b))
	}
	if debugConfig != "" {
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		if debugConfig == "-" {
			fmt.Fprintf(termio.Stdout, "%s\n", b)
		} else if err := os.WriteFile(debugConfig, b, 0644); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if debugConfig != "" {
		return nil
	}
	if printAudiences {
		return writeAudiences(cfg)
	}
	// done setting up config

	rep := newReporter(cfg, termio)
	if t, ok := rep.(*progress.Terminal); ok {
		defer t.Stop()
	}

	if check {
		return runCheck(ctx, cfg, rep)
	}

	if clearCache && !clearAll && fromTag != "" && toTag != "" {
		rnr := runner.New(cfg, nil, nil, rep)
		_, err := rnr.ClearCache(ctx, fromTag, toTag, false)
		return err
	}
	if clearCache && clearAll {
		_, err := runner.New(cfg, nil, nil, rep).ClearCache(ctx, "", "", true)
		return err
	}

	host, err := gitlab.New(cfg)
	if err != nil {
		return err
	}
	if clearCache {
		_, err := runner.New(cfg, host, nil, rep).ClearCache(ctx, fromTag, toTag, false)
		return interrupted(ctx, cfg, err)
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	if v, ok := gen.(ai.Verifier); ok {
		if err := v.Verify(ctx); err != nil {
			return interrupted(ctx, cfg, err)
		}
	}

	rnr := runner.New(cfg, host, gen, rep)
	res, err := rnr.Run(ctx, fromTag, toTag)
	if err != nil {
		return interrupted(ctx, cfg, err)
	}

	if printStats && res.Stats != nil {
		if err := res.Stats.TextSummary(termio.Stdout); err != nil {
			return err
		}
	}
	if res.Dir == "" {
		return nil
	}
	if cfg.Quiet {
		if termio.IsTerminal() {
			fmt.Fprintln(termio.Stdout, res.Dir)
		} else {
			fmt.Fprint(termio.Stdout, res.Dir)
		}
		return nil
	}
	cfg.Printf("\nChangelogs written to %s:", res.Dir)
	for _, name := range res.Files {
		cfg.Printf("  - %s", name)
	}
	return nil
}

func runCheck(ctx context.Context, cfg config.Config, rep progress.Reporter) error {
	var host *gitlab.GitLab
	if cfg.GitLabToken != "" && cfg.ProjectID != "" {
		var err error
		host, err = gitlab.New(cfg)
		if err != nil {
			return err
		}
	}
	// a missing token is reported by Check
	gen, _ := newGenerator(ctx, cfg)

	var rnr *runner.Runner
	if host != nil {
		rnr = runner.New(cfg, host, gen, rep)
	} else {
		rnr = runner.New(cfg, nil, gen, rep)
	}
	if err := rnr.Check(ctx); err != nil {
		cf := runner.CheckFailure{}
		if errors.As(err, &cf) {
			if err := cf.WriteFailure(cfg.Term.Stdout); err != nil {
				fmt.Fprintln(cfg.Term.Stderr, "failed to write check failures:", err)
			}
		}
		return err
	}
	cfg.Printf("OK")
	return nil
}

func writeAudiences(cfg config.Config) error {
	for i, name := range model.Audiences {
		aud, err := cfg.Audience(name)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(cfg.Term.Stdout)
		}
		if err := aud.TextSummary(cfg.Term.Stdout); err != nil {
			return err
		}
	}
	return nil
}

func newGenerator(ctx context.Context, cfg config.Config) (ai.Generator, error) {
	if cfg.Transport == config.TransportCLI {
		return geminicli.New(cfg), nil
	}
	g, err := gemini.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newReporter(cfg config.Config, termio *config.TerminalIO) progress.Reporter {
	if cfg.Quiet {
		return progress.Nop{}
	}
	var caps progress.Capabilities
	if f, ok := termio.Stdout.(*os.File); ok {
		caps = progress.DetectCapabilities(f)
	}
	return progress.NewTerminal(termio.Stdout, caps)
}

// interrupted reports a user interruption and converts it to
// errInterrupted. Other errors are returned unchanged.
func interrupted(ctx context.Context, cfg config.Config, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && !errors.Is(err, commit.Interrupted{}) {
		return err
	}
	cfg.Errorf("\nInterrupted.")
	var ie commit.Interrupted
	if errors.As(err, &ie) && ie.Total > 0 {
		cfg.Errorf("Processed %d of %d commits.", ie.Completed, ie.Total)
	}
	if cfg.UseCache {
		cfg.Errorf("Progress was saved to %s. Run again with --cache to resume.", cfg.CacheDir)
	}
	return errInterrupted
}

func die(err error) {
	if err != nil {
		panic(err)
	}
}

func usage(termio *config.TerminalIO, flags *pflag.FlagSet) {
	fmt.Fprintf(termio.Stdout, `%s [flags]

Generates commercial and technical changelogs for the commits between two
GitLab tags.

ENVIRONMENT

GITLAB_ACCESS_TOKEN  GitLab personal access token (required)
GITLAB_PROJECT_ID    project id or path, such as group/project (required)
GITLAB_URL           GitLab instance (default https://gitlab.com)
GEMINI_TOKEN         Gemini API key (required for --transport api)
GEMINI_MODEL         Gemini model

Variables may also be set in a .env file in the working directory.

FLAGS
%s
EXAMPLES

# changelogs for the most recent tag
$ tagnotes

# changelogs for v2.1, compared against the tag before it
$ tagnotes --to v2.1

# cache fetched commits so an interrupted run can resume
$ tagnotes --from v2.0 --to v2.1 --cache

# use the local gemini command instead of the API
$ tagnotes --transport cli

# verify credentials and connectivity
$ tagnotes --check
`, "tagnotes", flags.FlagUsages())
}
