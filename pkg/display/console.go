// Package display implementation for terminal-based output.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"launcher/pkg/common"
)

const clearLine = "\x1b[1A\x1b[2K"

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// consoleDisplay handles terminal output. Live task lines are kept at the
// bottom and redrawn in place.
// Mutable
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	tasks   []*consoleTask
	drawn   int
}

// NewConsole creates a Display that writes to standard error.
func NewConsole() Display {
	return NewWriterDisplay(os.Stderr)
}

// NewWriterDisplay creates a Display that writes to the provided io.Writer.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{
		out: w,
	}
}

func (d *consoleDisplay) StartTask(name string) Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &consoleTask{d: d, name: name, percent: -1}
	d.tasks = append(d.tasks, t)
	d.redrawLocked()
	return t
}

func (d *consoleDisplay) Log(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.verbose {
		d.emitLocked(dimStyle.Render(msg) + "\n")
	}
}

// Print writes a message directly to the output writer.
func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emitLocked(msg)
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbose = v
}

func (d *consoleDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = nil
	d.drawn = 0
}

// emitLocked prints msg above the live task lines.
func (d *consoleDisplay) emitLocked(msg string) {
	d.clearLocked()
	fmt.Fprint(d.out, msg)
	d.redrawLocked()
}

func (d *consoleDisplay) clearLocked() {
	fmt.Fprint(d.out, strings.Repeat(clearLine, d.drawn))
	d.drawn = 0
}

func (d *consoleDisplay) redrawLocked() {
	for _, t := range d.tasks {
		fmt.Fprintln(d.out, t.line())
	}
	d.drawn = len(d.tasks)
}

func (d *consoleDisplay) update() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.redrawLocked()
}

func (d *consoleDisplay) finish(t *consoleTask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	for i, other := range d.tasks {
		if other == t {
			d.tasks = append(d.tasks[:i], d.tasks[i+1:]...)
			break
		}
	}
	fmt.Fprintf(d.out, "%s Done\n", nameStyle.Render("["+t.name+"]"))
	d.redrawLocked()
}

// Mutable
type consoleTask struct {
	d       *consoleDisplay
	name    string
	stage   string
	target  string
	percent int
	message string
}

func (t *consoleTask) line() string {
	var sb strings.Builder
	sb.WriteString(nameStyle.Render("[" + t.name + "]"))
	if t.stage != "" {
		sb.WriteString(" " + stageStyle.Render(t.stage))
	}
	if t.target != "" {
		sb.WriteString(" " + dimStyle.Render(t.target))
	}
	if t.percent >= 0 {
		fmt.Fprintf(&sb, " %3d%%", t.percent)
	}
	if t.message != "" {
		sb.WriteString(" " + t.message)
	}
	return sb.String()
}

func (t *consoleTask) Log(msg string) {
	t.d.Print(fmt.Sprintf("%s %s\n", nameStyle.Render("["+t.name+"]"), msg))
}

func (t *consoleTask) SetStage(name string, target string) {
	t.d.mu.Lock()
	t.stage, t.target = name, target
	t.d.mu.Unlock()
	t.d.update()
}

func (t *consoleTask) Progress(percent int, message string) {
	t.d.mu.Lock()
	t.percent, t.message = percent, message
	t.d.mu.Unlock()
	t.d.update()
}

func (t *consoleTask) Done() {
	t.d.finish(t)
}

// RenderOutput displays structured data from an Output struct to the console.
func (d *consoleDisplay) RenderOutput(out *common.Output) {
	if out == nil {
		return
	}

	if out.Message != "" {
		d.Print(fmt.Sprintln(out.Message))
	}

	if len(out.KV) > 0 {
		for _, kv := range out.KV {
			d.Print(fmt.Sprintf("%-12s %s\n", kv.Key+":", kv.Value))
		}
	}

	if out.Table != nil {
		d.renderTable(out.Table)
	}
}

func (d *consoleDisplay) renderTable(t *common.Table) {
	if len(t.Header) == 0 {
		return
	}

	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, h := range t.Header {
		fmt.Fprintf(&sb, "%-*s  ", widths[i], h)
	}
	sb.WriteString("\n")

	totalWidth := 0
	for _, w := range widths {
		totalWidth += w + 2
	}
	sb.WriteString(strings.Repeat("-", totalWidth) + "\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
			}
		}
		sb.WriteString("\n")
	}
	d.Print(sb.String())
}
