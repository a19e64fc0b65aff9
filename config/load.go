package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/imdario/mergo"
	"github.com/joho/godotenv"
)

const FileName = "tagnotes.yaml"

// ReadFile reads the config file at p. If p is empty, tagnotes.yaml is
// searched for from the working directory up to the filesystem root. A nil
// config and nil error mean no file was found.
func ReadFile(p string) (*Config, error) {
	if p != "" {
		return readYAML(p)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	for {
		cfg, err := readYAML(filepath.Join(wd, FileName))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				parent := filepath.Dir(filepath.Clean(wd))
				if parent == wd {
					break
				}
				wd = parent
				continue
			}
			return nil, err
		}
		return cfg, nil
	}
	return nil, nil
}

// Load builds the effective configuration: defaults, then the config file
// found by ReadFile, then overrides, then the environment and dotenv files
// read by LoadEnv.
func Load(p string, overrides *Config, termio *TerminalIO, envFiles ...string) (Config, error) {
	fileCfg, err := ReadFile(p)
	if err != nil {
		return Config{}, err
	}
	cfg := NewWithTerminalIO(fileCfg, termio)
	if overrides != nil {
		if err := mergo.Merge(&cfg, overrides, mergo.WithOverride); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.LoadEnv(envFiles...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(p string) (*Config, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML renders the config the way it would be written to tagnotes.yaml.
func (c Config) YAML() ([]byte, error) {
	if len(c.Audiences) == 0 {
		c.Audiences = BuiltinAudiences()
	}
	return yaml.Marshal(c)
}

// Environment variable names read by LoadEnv.
const (
	EnvGitLabToken = "GITLAB_ACCESS_TOKEN"
	EnvProjectID   = "GITLAB_PROJECT_ID"
	EnvGitLabURL   = "GITLAB_URL"
	EnvGeminiToken = "GEMINI_TOKEN"
	EnvGeminiModel = "GEMINI_MODEL"
)

// LoadEnv fills credentials and repository identity from the process
// environment, falling back to the given dotenv files (".env" if none are
// given). Missing dotenv files are not an error. Process environment wins
// over the file, and values already set on the config win over both for
// everything except credentials, which only ever come from the environment.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	fileEnv := map[string]string{}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		for k, v := range m {
			if _, ok := fileEnv[k]; !ok {
				fileEnv[k] = v
			}
		}
	}

	lookup := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(fileEnv[key])
	}

	c.GitLabToken = lookup(EnvGitLabToken)
	c.GeminiToken = lookup(EnvGeminiToken)
	if v := lookup(EnvProjectID); v != "" && c.ProjectID == "" {
		c.ProjectID = v
	}
	if v := lookup(EnvGitLabURL); v != "" && (c.GitLabURL == "" || c.GitLabURL == GetDefault().GitLabURL) {
		c.GitLabURL = v
	}
	if v := lookup(EnvGeminiModel); v != "" && (c.Model == "" || c.Model == GetDefault().Model) {
		c.Model = v
	}
	return nil
}
