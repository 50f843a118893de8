package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/devstack/internal/service"
)

func minioVars(app string) map[string]string {
	vars := service.BaseVariables(app, service.MinIO, 0)
	vars["access_key"] = "AKIAEXAMPLE00001"
	vars["secret_key"] = "0123456789abcdef0123456789abcdef"
	return vars
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestUpsertServiceCreatesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := NewComposer(nil)

	outcome, err := c.UpsertService(path, service.MinIO, minioVars("shop"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	got := readFile(t, path)
	assert.True(t, strings.HasPrefix(got, "services:\n  minio:\n    image: minio/minio:latest\n    container_name: shop-minio\n"), got)
	assert.Contains(t, got, "MINIO_ROOT_USER=AKIAEXAMPLE00001")
	assert.Contains(t, got, "shop-minio-data:/data")
	assert.Contains(t, got, "\nvolumes:\n  shop-minio-data:\n    driver: local\n")
	assert.Contains(t, got, "\nnetworks:\n  shop-network:\n    driver: bridge\n")
	assert.Less(t, strings.Index(got, "volumes:\n"), strings.Index(got, "networks:\n"))

	doc, err := Parse([]byte(got))
	require.NoError(t, err)
	assert.Equal(t, []string{"minio"}, doc.Services())
}

func TestUpsertServiceIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := NewComposer(nil)

	_, err := c.UpsertService(path, service.MinIO, minioVars("shop"))
	require.NoError(t, err)
	once := readFile(t, path)

	outcome, err := c.UpsertService(path, service.MinIO, minioVars("shop"))
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)

	twice := readFile(t, path)
	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "\n  minio:\n"))
}

const handAuthored = `# Hand-written stack, keep comments
services:
  foo:
    image: foo:1 # pinned
    ports:
      - "8080:80"

# named volumes
volumes:
  foo-data: {}
`

const fooBlock = `  foo:
    image: foo:1 # pinned
    ports:
      - "8080:80"
`

func TestUpsertServicePreservesExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(handAuthored), 0o600))

	outcome, err := NewComposer(nil).UpsertService(path, service.MinIO, minioVars("shop"))
	require.NoError(t, err)
	assert.Equal(t, Appended, outcome)

	got := readFile(t, path)
	assert.True(t, strings.HasPrefix(got, "# Hand-written stack, keep comments\nservices:\n"+fooBlock+"  minio:\n"), got)
	assert.Contains(t, got, "\n# named volumes\nvolumes:\n  foo-data: {}\n  shop-minio-data:\n    driver: local\n")
	assert.True(t, strings.HasSuffix(got, "networks:\n  shop-network:\n    driver: bridge\n"), got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	doc, err := Parse([]byte(got))
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "minio"}, doc.Services())
	assert.True(t, doc.HasVolume("foo-data"))
	assert.True(t, doc.HasVolume("shop-minio-data"))
}

func TestUpsertServiceAppendsSecondService(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := NewComposer(nil)

	_, err := c.UpsertService(path, service.MinIO, minioVars("shop"))
	require.NoError(t, err)
	first := readFile(t, path)

	vars := service.BaseVariables("shop", service.Redis, 0)
	outcome, err := c.UpsertService(path, service.Redis, vars)
	require.NoError(t, err)
	assert.Equal(t, Appended, outcome)

	got := readFile(t, path)
	minioBlock := first[:strings.Index(first, "volumes:")]
	assert.True(t, strings.HasPrefix(got, minioBlock), "existing minio block must be untouched")

	doc, err := Parse([]byte(got))
	require.NoError(t, err)
	assert.Equal(t, []string{"minio", "redis"}, doc.Services())
	assert.True(t, doc.HasVolume("shop-redis-data"))
	assert.Equal(t, 1, strings.Count(got, "shop-network:\n"))
}

func TestUpsertServiceFollowsFileIndentation(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	existing := "services:\n    web:\n        image: nginx\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	_, err := NewComposer(nil).UpsertService(path, service.Redis, service.BaseVariables("shop", service.Redis, 0))
	require.NoError(t, err)

	got := readFile(t, path)
	assert.True(t, strings.HasPrefix(got, existing+"    redis:\n        image: redis:7-alpine\n"), got)
	assert.Contains(t, got, "volumes:\n    shop-redis-data:\n        driver: local\n")
}

func TestUpsertServiceKeepsEachSectionsIndentation(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	existing := "services:\n    web:\n        image: nginx\n" +
		"volumes:\n  webdata:\n    driver: local\n" +
		"networks:\n   edge:\n      driver: bridge\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	_, err := NewComposer(nil).UpsertService(path, service.Redis, service.BaseVariables("shop", service.Redis, 0))
	require.NoError(t, err)

	got := readFile(t, path)
	assert.Contains(t, got, "volumes:\n  webdata:\n    driver: local\n  shop-redis-data:\n    driver: local\n")
	assert.Contains(t, got, "networks:\n   edge:\n      driver: bridge\n   shop-network:\n      driver: bridge\n")

	doc, err := Parse([]byte(got))
	require.NoError(t, err)
	assert.True(t, doc.HasVolume("webdata"))
	assert.True(t, doc.HasVolume("shop-redis-data"))
	assert.True(t, doc.HasNetwork("shop-network"))

	services, err := Inspect(context.Background(), path, "shop")
	require.NoError(t, err)
	assert.Len(t, services, 2)
}

func TestUpsertServiceOpensEmptyFlowMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("name: shop\nservices: {}\n"), 0o644))

	_, err := NewComposer(nil).UpsertService(path, service.Redis, service.BaseVariables("shop", service.Redis, 0))
	require.NoError(t, err)

	got := readFile(t, path)
	assert.True(t, strings.HasPrefix(got, "name: shop\nservices:\n  redis:\n"), got)
}

func TestUpsertServiceCreatesMissingServicesSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("# volumes first\nvolumes:\n  keep: {}\n"), 0o644))

	_, err := NewComposer(nil).UpsertService(path, service.Redis, service.BaseVariables("shop", service.Redis, 0))
	require.NoError(t, err)

	got := readFile(t, path)
	assert.True(t, strings.HasPrefix(got, "services:\n  redis:\n"), got)
	assert.Contains(t, got, "# volumes first\nvolumes:\n  keep: {}\n  shop-redis-data:\n")
}

func TestUpsertServiceRejectsUnmergeableFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		op      string
	}{
		{name: "invalid yaml", content: "services:\n  foo: [unclosed\n", op: "parse"},
		{name: "flow services", content: "services: {foo: {image: foo}}\n", op: "merge"},
		{name: "sequence root", content: "- a\n- b\n", op: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewComposer(nil).UpsertService(path, service.Redis, service.BaseVariables("shop", service.Redis, 0))
			require.Error(t, err)

			var werr *WriteError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.op, werr.Op)
			assert.Equal(t, tt.content, readFile(t, path), "file must be left untouched")
		})
	}
}

func TestUpsertServiceDirectoryPath(t *testing.T) {
	dir := t.TempDir()
	_, err := NewComposer(nil).UpsertService(dir, service.Redis, service.BaseVariables("shop", service.Redis, 0))

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "read", werr.Op)
}

func TestUpsertServiceSerializesPerDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := NewComposer(NewLocker())

	var wg sync.WaitGroup
	for _, d := range []service.Descriptor{service.Redis, service.Meilisearch, service.MinIO, service.RabbitMQ, service.MySQL} {
		wg.Add(1)
		go func(d service.Descriptor) {
			defer wg.Done()
			_, err := c.UpsertService(path, d, service.BaseVariables("shop", d, 0))
			assert.NoError(t, err)
		}(d)
	}
	wg.Wait()

	doc, err := Parse([]byte(readFile(t, path)))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"redis", "meilisearch", "minio", "rabbitmq", "mysql"}, doc.Services())
}

func TestInspectValidatesWithCompose(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := NewComposer(nil)

	_, err := c.UpsertService(path, service.MinIO, minioVars("shop"))
	require.NoError(t, err)
	_, err = c.UpsertService(path, service.MySQL, service.BaseVariables("shop", service.MySQL, 3307))
	require.NoError(t, err)

	services, err := Inspect(context.Background(), path, "shop")
	require.NoError(t, err)
	require.Len(t, services, 2)

	assert.Equal(t, "minio", services[0].Name)
	assert.Equal(t, "shop-minio", services[0].ContainerName)
	assert.ElementsMatch(t, []PortInfo{{Host: 9000, Container: 9000}, {Host: 9001, Container: 9001}}, services[0].Ports)
	assert.Equal(t, "AKIAEXAMPLE00001", services[0].Environment["MINIO_ROOT_USER"])

	mysql, ok := Lookup(services, "mysql")
	require.True(t, ok)
	assert.Equal(t, "mysql:8.0", mysql.Image)
	_, ok = Lookup(services, "redis")
	assert.False(t, ok)

	assert.Equal(t, "mysql", services[1].Name)
	assert.Equal(t, []PortInfo{{Host: 3307, Container: 3306}}, services[1].Ports)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "appended", Appended.String())
	assert.Equal(t, "already-exists", AlreadyExists.String())
}
