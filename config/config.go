package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/imdario/mergo"
)

const (
	TransportAPI = "api"
	TransportCLI = "cli"

	TagOrderUpdated = "updated"
	TagOrderSemver  = "semver"
)

type Config struct {
	Verbose bool `json:"verbose,omitempty"`
	Quiet   bool `json:"quiet,omitempty"`

	GitLabURL   string `json:"gitlab_url,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	GitLabToken string `json:"-"`
	GeminiToken string `json:"-"`

	UseCache   bool   `json:"cache,omitempty"`
	CacheDir   string `json:"cache_dir,omitempty"`
	ResultsDir string `json:"results_dir,omitempty"`

	Transport         string   `json:"transport,omitempty"`
	Model             string   `json:"model,omitempty"`
	GeminiBaseURL     string   `json:"gemini_base_url,omitempty"`
	CLICommand        string   `json:"cli_command,omitempty"`
	CLITimeout        Duration `json:"cli_timeout,omitempty"`
	CLIVersionTimeout Duration `json:"cli_version_timeout,omitempty"`
	HTTPTimeout       Duration `json:"http_timeout,omitempty"`
	GenerateTimeout   Duration `json:"generate_timeout,omitempty"`

	TagOrder         string     `json:"tag_order,omitempty"`
	MaxDiffFiles     int        `json:"max_diff_files,omitempty"`
	MaxDiffLines     int        `json:"max_diff_lines,omitempty"`
	AnalyzeBatchSize int        `json:"analyze_batch_size,omitempty"`
	Audiences        []Audience `json:"audiences,omitempty"`

	Term TerminalIO `json:"-"`
}

func New(overrides *Config) Config {
	return NewWithTerminalIO(overrides, nil)
}

func NewWithTerminalIO(overrides *Config, termio *TerminalIO) Config {
	cfg := GetDefault()
	if termio == nil {
		termio = &DefaultTermIO
	}
	cfg.Term = *termio

	if overrides != nil {
		if err := mergo.Merge(&cfg, overrides, mergo.WithOverride); err != nil {
			panic(err)
		}
	}
	return cfg
}

func (c Config) Printf(msg string, args ...interface{}) {
	if c.Quiet {
		return
	}
	fmt.Fprintf(c.Term.Stdout, msg+"\n", args...)
}

func (c Config) Errorf(msg string, args ...interface{}) {
	fmt.Fprintf(c.Term.Stderr, msg+"\n", args...)
}

func (c Config) Debugf(msg string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	c.Printf(msg, args...)
}

func (c Config) Validate() error {
	if c.Verbose && c.Quiet {
		return errors.New("config: verbose and quiet are mutually exclusive")
	}
	switch c.Transport {
	case TransportAPI, TransportCLI:
	default:
		return fmt.Errorf("config: unknown transport %q (want %q or %q)", c.Transport, TransportAPI, TransportCLI)
	}
	switch c.TagOrder {
	case TagOrderUpdated, TagOrderSemver:
	default:
		return fmt.Errorf("config: unknown tag order %q (want %q or %q)", c.TagOrder, TagOrderUpdated, TagOrderSemver)
	}
	if c.MaxDiffFiles <= 0 || c.MaxDiffLines <= 0 {
		return errors.New("config: max_diff_files and max_diff_lines must be positive")
	}
	if c.AnalyzeBatchSize <= 0 {
		return errors.New("config: analyze_batch_size must be positive")
	}
	if c.CLITimeout <= 0 || c.CLIVersionTimeout <= 0 || c.HTTPTimeout <= 0 || c.GenerateTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	if c.CacheDir == "" || c.ResultsDir == "" {
		return errors.New("config: cache_dir and results_dir are required")
	}
	for _, aud := range c.Audiences {
		if _, err := aud.Compile(); err != nil {
			return err
		}
	}
	return nil
}

// Duration is a time.Duration that reads and writes as a string ("5m").
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		dur, err := time.ParseDuration(s[1 : len(s)-1])
		if err != nil {
			return fmt.Errorf("config: invalid duration %s: %w", s, err)
		}
		*d = Duration(dur)
		return nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%g", &secs); err != nil {
		return fmt.Errorf("config: invalid duration %s", s)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}
