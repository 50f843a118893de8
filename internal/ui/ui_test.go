package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestConsoleLines(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Step("Starting %s", "minio")
	c.Success("Bucket '%s' ready", "shop")
	c.Warn("Failed to create bucket '%s'", "shop")
	c.Info("port %d", 9000)

	out := buf.String()
	assert.Contains(t, out, "→ Starting minio\n")
	assert.Contains(t, out, "✓ Bucket 'shop' ready\n")
	assert.Contains(t, out, "⚠ Failed to create bucket 'shop'\n")
	assert.Contains(t, out, "  port 9000\n")
}

func TestConsolePanel(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Panel("Install Redis", "brew install redis")
	assert.Contains(t, buf.String(), "Install Redis")
	assert.Contains(t, buf.String(), "brew install redis")
}

func TestRecorderWarnings(t *testing.T) {
	r := &Recorder{}
	r.Step("one")
	r.Warn("two %d", 2)
	r.Warn("three")

	assert.Equal(t, []string{"two 2", "three"}, r.Warnings())
	assert.Len(t, r.Messages, 3)
}

func TestSummary(t *testing.T) {
	got := Summary(map[string]any{
		"using_docker": true,
		"minio_port":   9000,
	})
	assert.Equal(t, "minio_port    9000\nusing_docker  true\n", got)
}
