// Package ui renders the user-visible side of provisioning: step lines,
// warnings that name the failed step, and boxed panels for guidance and the
// final setup summary.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Reporter receives user-facing progress messages.
type Reporter interface {
	Step(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Info(format string, args ...any)
	Panel(title, body string)
}

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#0891B2")).
			Padding(0, 1)
	panelTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0891B2"))
)

// Console writes colored output to a writer (stdout by default).
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Step(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(c.w, "→ "+format+"\n", args...)
}

func (c *Console) Success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(c.w, "✓ "+format+"\n", args...)
}

func (c *Console) Warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(c.w, "⚠ "+format+"\n", args...)
}

func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.w, "  "+format+"\n", args...)
}

func (c *Console) Panel(title, body string) {
	content := strings.TrimRight(body, "\n")
	if title != "" {
		content = panelTitle.Render(title) + "\n\n" + content
	}
	fmt.Fprintln(c.w, panelStyle.Render(content))
}

// Message is one recorded Reporter call.
type Message struct {
	Level string
	Text  string
}

// Recorder keeps every message in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

func (r *Recorder) Step(format string, args ...any)    { r.add("step", format, args...) }
func (r *Recorder) Success(format string, args ...any) { r.add("success", format, args...) }
func (r *Recorder) Warn(format string, args ...any)    { r.add("warn", format, args...) }
func (r *Recorder) Info(format string, args ...any)    { r.add("info", format, args...) }
func (r *Recorder) Panel(title, body string)           { r.add("panel", "%s\n%s", title, body) }

// Warnings returns the text of every Warn call.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.Messages {
		if m.Level == "warn" {
			out = append(out, m.Text)
		}
	}
	return out
}

// Summary formats a flat configuration map as aligned key/value lines,
// sorted by key.
func Summary(values map[string]any) string {
	keys := make([]string, 0, len(values))
	width := 0
	for k := range values {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-*s  %v\n", width, k, values[k])
	}
	return b.String()
}
