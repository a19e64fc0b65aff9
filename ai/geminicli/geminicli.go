// Package geminicli generates text by running the gemini command line tool.
package geminicli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/config"
)

var CommandContext = exec.CommandContext

type CLI struct {
	cfg            config.Config
	command        string
	timeout        time.Duration
	versionTimeout time.Duration
}

func New(cfg config.Config) *CLI {
	return &CLI{
		cfg:            cfg,
		command:        cfg.CLICommand,
		timeout:        cfg.CLITimeout.D(),
		versionTimeout: cfg.CLIVersionTimeout.D(),
	}
}

// TimeoutError means the command ran longer than its limit.
type TimeoutError struct {
	Command string
	Flag    string
	Timeout time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("geminicli: %s %s timed out after %s", e.Command, e.Flag, e.Timeout)
}

func (c *CLI) call(ctx context.Context, timeout time.Duration, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := CommandContext(ctx, c.command, args...)
	cmd.WaitDelay = time.Second
	if c.cfg.GeminiToken != "" {
		cmd.Env = append(cmd.Environ(), "GEMINI_API_KEY="+c.cfg.GeminiToken)
	}

	eb := &bytes.Buffer{}
	ob := &bytes.Buffer{}
	cmd.Stderr = eb
	cmd.Stdout = ob

	c.cfg.Debugf("+ %s %s", c.command, ArgsString(redactPrompt(args)))
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, TimeoutError{Command: c.command, Flag: args[0], Timeout: timeout}
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("geminicli: %s not found in PATH: %w", c.command, err)
		}
		return nil, fmt.Errorf("exec: %s %s failed: %s (%w)", c.command, ArgsString(args[:1]), strings.TrimSpace(eb.String()), err)
	}
	return ob.Bytes(), nil
}

// Verify runs the command with --version.
func (c *CLI) Verify(ctx context.Context) error {
	out, err := c.call(ctx, c.versionTimeout, []string{"--version"})
	if err != nil {
		return err
	}
	c.cfg.Debugf("%s version: %s", c.command, strings.TrimSpace(string(out)))
	return nil
}

// Generate runs the command with --prompt. With a schema the prompt asks
// for a bare JSON object and the object is cut out of the reply.
func (c *CLI) Generate(ctx context.Context, prompt string, schema *ai.Schema) (string, error) {
	if schema != nil {
		prompt += schemaInstructions(schema)
	}
	out, err := c.call(ctx, c.timeout, []string{"--prompt", prompt})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", errors.New("geminicli: empty response")
	}
	if schema != nil {
		if obj, ok := ai.ExtractJSON(text); ok {
			return obj, nil
		}
	}
	return text, nil
}

func schemaInstructions(schema *ai.Schema) string {
	fields := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = fmt.Sprintf("%q: string", f)
	}
	return "\n\nRespond ONLY with a JSON object of the form {" + strings.Join(fields, ", ") + "}."
}

func redactPrompt(args []string) []string {
	res := make([]string, len(args))
	copy(res, args)
	for i := 0; i < len(res)-1; i++ {
		if res[i] == "--prompt" {
			res[i+1] = fmt.Sprintf("<%d bytes>", len(res[i+1]))
		}
	}
	return res
}

// ArgsString returns a string suitable for copy/paste into the terminal.
func ArgsString(args []string) string {
	b := &bytes.Buffer{}

	for i, arg := range args {
		if strings.Contains(arg, " ") {
			b.WriteString(`"`)
			b.WriteString(arg)
			b.WriteString(`"`)
		} else {
			b.WriteString(arg)
		}

		if i < len(args)-1 {
			b.WriteString(" ")
		}
	}

	return b.String()
}

var _ ai.Generator = (*CLI)(nil)
var _ ai.Verifier = (*CLI)(nil)
