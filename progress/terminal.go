package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

type Capabilities struct {
	TTY     bool
	Color   bool
	Unicode bool
	Width   int
}

// DetectCapabilities inspects f. NO_COLOR disables color and TAGNOTES_ASCII=1
// forces ASCII symbols.
func DetectCapabilities(f *os.File) Capabilities {
	fd := f.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	width := 0
	if tty {
		if w, _, err := term.GetSize(int(fd)); err == nil {
			width = w
		}
	}
	return Capabilities{
		TTY:     tty,
		Color:   tty && os.Getenv("NO_COLOR") == "" && !color.NoColor,
		Unicode: tty && os.Getenv("TAGNOTES_ASCII") != "1",
		Width:   width,
	}
}

type symbols struct {
	ok, warn, fail string
	spinnerSet     int
}

func selectSymbols(caps Capabilities) symbols {
	if caps.Unicode {
		return symbols{ok: "✓", warn: "!", fail: "✗", spinnerSet: 14}
	}
	return symbols{ok: "[OK]", warn: "[WARN]", fail: "[FAIL]", spinnerSet: 9}
}

// Terminal renders events to a writer. On a TTY the open stage is shown as
// a spinner; otherwise each Start and closing event is printed on its own
// line and Updates are dropped.
type Terminal struct {
	mu   sync.Mutex
	out  io.Writer
	caps Capabilities
	sym  symbols
	spin *spinner.Spinner

	green, yellow, red, dim func(a ...interface{}) string
}

func NewTerminal(out io.Writer, caps Capabilities) *Terminal {
	t := &Terminal{
		out:    out,
		caps:   caps,
		sym:    selectSymbols(caps),
		green:  colorFunc(caps, color.FgGreen),
		yellow: colorFunc(caps, color.FgYellow),
		red:    colorFunc(caps, color.FgRed),
		dim:    colorFunc(caps, color.Faint),
	}
	if f, ok := out.(*os.File); ok && caps.TTY {
		t.spin = spinner.New(spinner.CharSets[t.sym.spinnerSet], 100*time.Millisecond,
			spinner.WithWriterFile(f),
			spinner.WithHiddenCursor(true),
		)
	}
	return t
}

func colorFunc(caps Capabilities, attr color.Attribute) func(a ...interface{}) string {
	c := color.New(attr)
	if caps.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func (t *Terminal) fit(msg string) string {
	// leave room for the spinner or symbol
	max := t.caps.Width - 4
	if max <= 0 || utf8.RuneCountInString(msg) <= max {
		return msg
	}
	r := []rune(msg)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func (t *Terminal) Start(stage Stage, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spin != nil {
		t.spin.Lock()
		t.spin.Suffix = " " + t.fit(msg)
		t.spin.Unlock()
		if !t.spin.Active() {
			t.spin.Start()
		}
		return
	}
	fmt.Fprintf(t.out, "%s %s\n", t.dim("..."), msg)
}

func (t *Terminal) Update(stage Stage, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spin == nil {
		return
	}
	t.spin.Lock()
	t.spin.Suffix = " " + t.fit(msg)
	t.spin.Unlock()
}

func (t *Terminal) finish(symbol, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spin != nil && t.spin.Active() {
		t.spin.Stop()
	}
	fmt.Fprintf(t.out, "%s %s\n", symbol, t.fit(msg))
}

// Stop clears a running spinner without printing a result line.
func (t *Terminal) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spin != nil && t.spin.Active() {
		t.spin.Stop()
	}
}

func (t *Terminal) Succeed(stage Stage, msg string) { t.finish(t.green(t.sym.ok), msg) }
func (t *Terminal) Warn(stage Stage, msg string)    { t.finish(t.yellow(t.sym.warn), msg) }
func (t *Terminal) Fail(stage Stage, msg string)    { t.finish(t.red(t.sym.fail), msg) }

var _ Reporter = (*Terminal)(nil)
var _ Reporter = (*Recorder)(nil)
var _ Reporter = Nop{}
