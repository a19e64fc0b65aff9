// Package tagnotes collects the commits between two repository tags and
// writes AI-generated commercial and technical changelogs for them.
//
// Related packages: config, commit, cache, changelog, runner, model, vcs,
// vcs/gitlab, ai, ai/gemini, ai/geminicli, progress
package tagnotes

import "github.com/jeffrom/tagnotes/config"

// Config holds most of the configuration variables for tagnotes. This struct
// is intended for command-line use, so not all of its attributes are
// applicable to every operation.
//
// See "go doc github.com/jeffrom/tagnotes/config Config" for more information.
type Config = config.Config
