package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestGuidanceCommand(t *testing.T) {
	out := execute(t, "guidance", "cache", "--os", "darwin")
	assert.Contains(t, out, "Install Redis")
	assert.Contains(t, out, "brew install redis")
}

func TestServicesCommand(t *testing.T) {
	out := execute(t, "services")
	for _, want := range []string{"redis", "meilisearch", "minio", "rabbitmq", "mysql", "sqs", "(managed)"} {
		assert.Contains(t, out, want)
	}
}

func TestVersionCommand(t *testing.T) {
	rootCmd.Version = "1.2.3"
	out := execute(t, "version")
	assert.Contains(t, out, "devstack version 1.2.3")
	assert.Contains(t, out, "redis:7-alpine")
	assert.NotContains(t, out, "SQS")
}

func TestStackRequests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devstack.yaml"), []byte(`app: shop
services:
  - service: cache
  - service: database
    container: false
    host: db.internal
    resource: orders
`), 0o644))

	reqs, err := stackRequests(dir)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "shop", reqs[0].AppName)
	assert.Equal(t, dir, reqs[0].AppPath)
	assert.Equal(t, "redis", reqs[0].Descriptor.Name)
	assert.Nil(t, reqs[0].UseContainer)

	assert.Equal(t, "mysql", reqs[1].Descriptor.Name)
	require.NotNil(t, reqs[1].UseContainer)
	assert.False(t, *reqs[1].UseContainer)
	assert.Equal(t, "db.internal", reqs[1].Overrides.Host)
	assert.Equal(t, "orders", reqs[1].Overrides.Resource)
	for _, r := range reqs {
		assert.NoError(t, r.Validate())
	}
}

func TestStackRequestsErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := stackRequests(dir)
	assert.ErrorContains(t, err, "no stack file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "devstack.yaml"), []byte("app: shop\nservices:\n  - service: graphdb\n"), 0o644))
	_, err = stackRequests(dir)
	assert.ErrorContains(t, err, "unknown service")
}

func TestResolvePathAndAppName(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	got, err := resolvePath("~/shop")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shop"), got)

	got, err = resolvePath("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	assert.Equal(t, "shop", appName("", "/srv/shop"))
	assert.Equal(t, "store", appName("store", "/srv/shop"))
}

func TestWriteStack(t *testing.T) {
	dir := t.TempDir()

	file, err := writeStack(dir, "shop", []string{"cache", "object-storage"}, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "devstack.yaml"), file)

	reqs, err := stackRequests(dir)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "shop", reqs[0].AppName)
	assert.Equal(t, "redis", reqs[0].Descriptor.Name)
	assert.Equal(t, "minio", reqs[1].Descriptor.Name)

	_, err = writeStack(dir, "shop", []string{"queue"}, true, false)
	assert.ErrorContains(t, err, "already exists")

	_, err = writeStack(dir, "shop", []string{"cache", "redis"}, false, true)
	assert.ErrorContains(t, err, "already listed")
}

func TestWriteStackJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")

	file, err := writeStack(dir, "shop", []string{"database"}, true, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "devstack.json"), file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service": "database"`)
}

func TestPersistentFlagsBoundToViper(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	values := map[string]string{
		"engine":          "podman",
		"compose-file":    "compose.dev.yml",
		"non-interactive": "true",
		"validate-local":  "true",
		"log-level":       "debug",
		"log-format":      "json",
	}

	for name, value := range values {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		def := f.DefValue
		t.Cleanup(func() {
			_ = f.Value.Set(def)
			f.Changed = false
		})

		require.NoError(t, flags.Set(name, value))
		assert.Equal(t, value, viper.GetString(name), name)
	}
}
