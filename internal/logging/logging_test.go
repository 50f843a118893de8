package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "text", Output: &buf})
	require.NoError(t, err)

	logger.Info("credentials issued",
		"service", "minio",
		"minio_secret_key", "0123456789abcdef0123456789abcdef",
		"db_password", "hunter2",
	)

	out := buf.String()
	assert.Contains(t, out, "service=minio")
	assert.Contains(t, out, "minio_secret_key=[REDACTED]")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Debug("probe", "attempt", 2)
	assert.Contains(t, buf.String(), `"attempt":2`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelWarn},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelWarn, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, IsSensitive("MINIO_ROOT_PASSWORD"))
	assert.True(t, IsSensitive("meili_master_key"))
	assert.False(t, IsSensitive("service"))
}
