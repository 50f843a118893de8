package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/service"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		d      service.Descriptor
		conn   service.Connection
		docker bool
		want   NormalizedConfig
	}{
		{
			name:   "redis",
			d:      service.Redis,
			conn:   service.Connection{Host: "127.0.0.1", Ports: map[string]int{"api": 6379}},
			docker: true,
			want:   NormalizedConfig{"redis_host": "127.0.0.1", "redis_port": 6379, "redis_password": "", "using_docker": true},
		},
		{
			name: "meilisearch",
			d:    service.Meilisearch,
			conn: service.Connection{Host: "127.0.0.1", Ports: map[string]int{"api": 7700}, Credentials: map[string]string{"master_key": "mk"}},
			want: NormalizedConfig{
				"meilisearch_host":       "http://127.0.0.1:7700",
				"meilisearch_port":       7700,
				"meilisearch_master_key": "mk",
				"using_docker":           false,
			},
		},
		{
			name: "rabbitmq",
			d:    service.RabbitMQ,
			conn: service.Connection{
				Host:        "127.0.0.1",
				Ports:       map[string]int{"amqp": 5672, "management": 15672},
				Username:    "shop",
				Resource:    "/",
				Credentials: map[string]string{"password": "pw"},
			},
			docker: true,
			want: NormalizedConfig{
				"rabbitmq_host":            "127.0.0.1",
				"rabbitmq_port":            5672,
				"rabbitmq_management_port": 15672,
				"rabbitmq_user":            "shop",
				"rabbitmq_password":        "pw",
				"rabbitmq_vhost":           "/",
				"using_docker":             true,
			},
		},
		{
			name: "mysql",
			d:    service.MySQL,
			conn: service.Connection{
				Host:        "127.0.0.1",
				Ports:       map[string]int{"api": 3306},
				Username:    "shop",
				Resource:    "shop",
				Credentials: map[string]string{"password": "pw", "root_password": "root"},
			},
			want: NormalizedConfig{
				"db_connection": "mysql",
				"db_host":       "127.0.0.1",
				"db_port":       3306,
				"db_database":   "shop",
				"db_username":   "shop",
				"db_password":   "pw",
				"using_docker":  false,
			},
		},
		{
			name: "unknown descriptor uses generic keys",
			d: service.Descriptor{
				Name:         "valkey",
				ConfigPrefix: "valkey",
				Ports:        []service.Port{{Name: "api"}, {Name: "metrics"}},
			},
			conn: service.Connection{Host: "h", Ports: map[string]int{"api": 1, "metrics": 2}, Credentials: map[string]string{"token": "t"}},
			want: NormalizedConfig{"valkey_host": "h", "valkey_port": 1, "valkey_metrics_port": 2, "valkey_token": "t", "using_docker": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.d, tt.conn, tt.docker))
		})
	}
}

func TestNormalizeAlwaysSetsUsingDocker(t *testing.T) {
	for _, d := range service.All() {
		cfg := Normalize(d, service.Connection{}, false)
		assert.Contains(t, cfg, UsingDockerKey, d.Name)
		for k := range cfg {
			if k != UsingDockerKey {
				assert.Regexp(t, "^"+d.ConfigPrefix+"_", k)
			}
		}
	}
}

func TestProbeFor(t *testing.T) {
	conn := service.Connection{Host: "localhost", Ports: map[string]int{"api": 19000}}

	httpProbe := ProbeFor(service.MinIO, "/app/docker-compose.yml", conn, nil, nil)
	assert.Equal(t, docker.HTTPProbe{URL: "http://localhost:19000/minio/health/live"}, httpProbe)

	vars := map[string]string{"root_password": "r00t"}
	exec := &fakeLifecycle{}
	cmdProbe := ProbeFor(service.MySQL, "/app/docker-compose.yml", conn, vars, exec)
	assert.Equal(t, docker.CommandProbe{
		Exec:     exec,
		Manifest: "/app/docker-compose.yml",
		Service:  "mysql",
		Command:  []string{"mysqladmin", "ping", "-h", "127.0.0.1", "-uroot", "-pr00t", "--silent"},
	}, cmdProbe)

	assert.NoError(t, cmdProbe.Check(context.Background()))
	assert.Equal(t, [][]string{{"mysqladmin", "ping", "-h", "127.0.0.1", "-uroot", "-pr00t", "--silent"}}, exec.execs)

	assert.Nil(t, ProbeFor(service.SQS, "", conn, nil, nil))
}
