package service

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/devstack/internal/credentials"
)

// Redis is the cache family member.
var Redis = Descriptor{
	Family:       Cache,
	Name:         "redis",
	DisplayName:  "Redis",
	Image:        "redis:7-alpine",
	Ports:        []Port{{Name: "api", Container: 6379, Default: 6379}},
	Command:      []string{"redis-server", "--appendonly", "yes"},
	VolumeTarget: "/data",
	Health: HealthCheck{
		Kind:    HealthExec,
		Command: []string{"redis-cli", "ping"},
	},
	Bootstrap:    BootstrapNone,
	ConfigPrefix: "redis",
	LocalHost:    "127.0.0.1",
	LocalSecrets: []string{"password"},
	Install: map[string][]string{
		"darwin":  {"brew install redis", "brew services start redis"},
		"linux":   {"sudo apt-get install -y redis-server", "sudo systemctl enable --now redis-server"},
		"windows": {"wsl --install", "wsl sudo apt-get install -y redis-server"},
	},
}

// Meilisearch is the search engine family member.
var Meilisearch = Descriptor{
	Family:      Search,
	Name:        "meilisearch",
	DisplayName: "Meilisearch",
	Image:       "getmeili/meilisearch:v1.7",
	Ports:       []Port{{Name: "api", Container: 7700, Default: 7700}},
	Environment: []EnvVar{
		{Key: "MEILI_MASTER_KEY", Template: "${master_key}"},
		{Key: "MEILI_ENV", Template: "development"},
		{Key: "MEILI_NO_ANALYTICS", Template: "true"},
	},
	VolumeTarget: "/meili_data",
	Health: HealthCheck{
		Kind:   HealthHTTP,
		Port:   "api",
		Path:   "/health",
		Expect: "available",
	},
	Bootstrap: BootstrapNone,
	Credentials: []CredentialSpec{
		{Var: "master_key", Kind: credentials.Hex, Length: credentials.HexLength},
	},
	ConfigPrefix: "meilisearch",
	LocalHost:    "127.0.0.1",
	Install: map[string][]string{
		"darwin":  {"brew install meilisearch", "meilisearch --master-key <key>"},
		"linux":   {"curl -L https://install.meilisearch.com | sh", "./meilisearch --master-key <key>"},
		"windows": {"Download meilisearch-windows-amd64.exe from https://github.com/meilisearch/meilisearch/releases"},
	},
}

// MinIO is the object storage family member.
var MinIO = Descriptor{
	Family:      ObjectStorage,
	Name:        "minio",
	DisplayName: "MinIO",
	Image:       "minio/minio:latest",
	Ports: []Port{
		{Name: "api", Container: 9000, Default: 9000},
		{Name: "console", Container: 9001, Default: 9001},
	},
	Environment: []EnvVar{
		{Key: "MINIO_ROOT_USER", Template: "${access_key}"},
		{Key: "MINIO_ROOT_PASSWORD", Template: "${secret_key}"},
	},
	Command:      []string{"server", "/data", "--console-address", ":9001"},
	VolumeTarget: "/data",
	Health: HealthCheck{
		Kind: HealthHTTP,
		Port: "api",
		Path: "/minio/health/live",
	},
	Bootstrap: BootstrapBucket,
	Credentials: []CredentialSpec{
		{Var: "access_key", Kind: credentials.AccessKey, Length: credentials.AccessKeyLength},
		{Var: "secret_key", Kind: credentials.Hex, Length: credentials.HexLength},
	},
	ConfigPrefix: "minio",
	LocalHost:    "localhost",
	ResourceVar:  "bucket",
	Defaults: map[string]string{
		"bucket": "${app}",
		"region": "us-east-1",
	},
	Install: map[string][]string{
		"darwin":  {"brew install minio/stable/minio", "minio server ~/minio-data --console-address :9001"},
		"linux":   {"wget https://dl.min.io/server/minio/release/linux-amd64/minio", "chmod +x minio", "./minio server ~/minio-data --console-address :9001"},
		"windows": {"Download minio.exe from https://dl.min.io/server/minio/release/windows-amd64/minio.exe", "minio.exe server C:\\minio-data --console-address :9001"},
	},
}

// RabbitMQ is the containerized message queue family member.
var RabbitMQ = Descriptor{
	Family:      Queue,
	Name:        "rabbitmq",
	DisplayName: "RabbitMQ",
	Image:       "rabbitmq:3-management-alpine",
	Ports: []Port{
		{Name: "amqp", Container: 5672, Default: 5672},
		{Name: "management", Container: 15672, Default: 15672},
	},
	Environment: []EnvVar{
		{Key: "RABBITMQ_DEFAULT_USER", Template: "${username}"},
		{Key: "RABBITMQ_DEFAULT_PASS", Template: "${password}"},
	},
	VolumeTarget: "/var/lib/rabbitmq",
	Health: HealthCheck{
		Kind:    HealthExec,
		Command: []string{"rabbitmq-diagnostics", "-q", "ping"},
	},
	Bootstrap: BootstrapVhost,
	Credentials: []CredentialSpec{
		{Var: "password", Kind: credentials.Hex, Length: credentials.HexLength},
	},
	ConfigPrefix: "rabbitmq",
	LocalHost:    "127.0.0.1",
	ResourceVar:  "vhost",
	Defaults: map[string]string{
		"username": "${app_identifier}",
		"vhost":    "/",
	},
	Install: map[string][]string{
		"darwin":  {"brew install rabbitmq", "brew services start rabbitmq"},
		"linux":   {"sudo apt-get install -y rabbitmq-server", "sudo systemctl enable --now rabbitmq-server"},
		"windows": {"choco install rabbitmq"},
	},
}

// SQS is the fully managed queue backend. It is never containerized and
// needs no bootstrap.
var SQS = Descriptor{
	Family:       Queue,
	Name:         "sqs",
	DisplayName:  "Amazon SQS",
	Bootstrap:    BootstrapNone,
	External:     true,
	ConfigPrefix: "sqs",
	ResourceVar:  "queue",
	LocalSecrets: []string{"key", "secret"},
	Defaults: map[string]string{
		"queue":  "${app}",
		"region": "us-east-1",
		"prefix": "https://sqs.us-east-1.amazonaws.com/your-account-id",
	},
	Install: map[string][]string{
		"all": {"aws sqs create-queue --queue-name <queue>"},
	},
}

// MySQL is the relational database family member.
var MySQL = Descriptor{
	Family:      Database,
	Name:        "mysql",
	DisplayName: "MySQL",
	Image:       "mysql:8.0",
	Ports:       []Port{{Name: "api", Container: 3306, Default: 3306}},
	Environment: []EnvVar{
		{Key: "MYSQL_ROOT_PASSWORD", Template: "${root_password}"},
		{Key: "MYSQL_DATABASE", Template: "${database}"},
		{Key: "MYSQL_USER", Template: "${username}"},
		{Key: "MYSQL_PASSWORD", Template: "${password}"},
	},
	VolumeTarget: "/var/lib/mysql",
	Health: HealthCheck{
		Kind:    HealthExec,
		Command: []string{"mysqladmin", "ping", "-h", "127.0.0.1", "-uroot", "-p${root_password}", "--silent"},
	},
	Bootstrap: BootstrapDatabase,
	Credentials: []CredentialSpec{
		{Var: "root_password", Kind: credentials.Hex, Length: credentials.HexLength, ContainerOnly: true},
		{Var: "password", Kind: credentials.Hex, Length: credentials.HexLength},
	},
	ConfigPrefix: "db",
	LocalHost:    "127.0.0.1",
	ResourceVar:  "database",
	Defaults: map[string]string{
		"database": "${app_identifier}",
		"username": "${app_identifier}",
	},
	Install: map[string][]string{
		"darwin":  {"brew install mysql", "brew services start mysql"},
		"linux":   {"sudo apt-get install -y mysql-server", "sudo systemctl enable --now mysql"},
		"windows": {"choco install mysql"},
	},
}

var catalog = []Descriptor{Redis, Meilisearch, MinIO, RabbitMQ, SQS, MySQL}

// All returns every known descriptor in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a descriptor by service name (redis, minio, ...) or by family,
// in which case the first containerizable member wins.
func Lookup(key string) (Descriptor, error) {
	for _, d := range catalog {
		if d.Name == key {
			return d, nil
		}
	}
	for _, d := range catalog {
		if string(d.Family) == key {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("unknown service %q (known: %v)", key, Known())
}

// Known lists the accepted service names, sorted.
func Known() []string {
	out := make([]string, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}
