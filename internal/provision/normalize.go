package provision

import (
	"fmt"

	"github.com/blackwell-systems/devstack/internal/service"
)

// NormalizedConfig is the flat key/value result handed to the application's
// configuration writer. Values are string, int or bool.
type NormalizedConfig map[string]any

// UsingDockerKey is present in every NormalizedConfig.
const UsingDockerKey = "using_docker"

// Normalize maps a connection to the configuration keys the application
// expects for d.
func Normalize(d service.Descriptor, conn service.Connection, usingDocker bool) NormalizedConfig {
	p := d.ConfigPrefix
	key := func(field string) string { return p + "_" + field }
	cfg := NormalizedConfig{UsingDockerKey: usingDocker}

	switch d.Name {
	case service.Redis.Name:
		cfg[key("host")] = conn.Host
		cfg[key("port")] = conn.Port("api")
		cfg[key("password")] = conn.Credentials["password"]

	case service.Meilisearch.Name:
		cfg[key("host")] = fmt.Sprintf("http://%s:%d", conn.Host, conn.Port("api"))
		cfg[key("port")] = conn.Port("api")
		cfg[key("master_key")] = conn.Credentials["master_key"]

	case service.MinIO.Name:
		cfg[key("endpoint")] = conn.Host
		cfg[key("port")] = conn.Port("api")
		cfg[key("console_port")] = conn.Port("console")
		cfg[key("access_key")] = conn.Credentials["access_key"]
		cfg[key("secret_key")] = conn.Credentials["secret_key"]
		cfg[key("bucket")] = conn.Resource
		cfg[key("region")] = conn.Settings["region"]
		cfg[key("use_path_style_endpoint")] = true

	case service.RabbitMQ.Name:
		cfg[key("host")] = conn.Host
		cfg[key("port")] = conn.Port("amqp")
		cfg[key("management_port")] = conn.Port("management")
		cfg[key("user")] = conn.Username
		cfg[key("password")] = conn.Credentials["password"]
		cfg[key("vhost")] = conn.Resource

	case service.SQS.Name:
		cfg[key("region")] = conn.Settings["region"]
		cfg[key("prefix")] = conn.Settings["prefix"]
		cfg[key("queue")] = conn.Resource
		cfg[key("key")] = conn.Credentials["key"]
		cfg[key("secret")] = conn.Credentials["secret"]

	case service.MySQL.Name:
		cfg[key("connection")] = "mysql"
		cfg[key("host")] = conn.Host
		cfg[key("port")] = conn.Port("api")
		cfg[key("database")] = conn.Resource
		cfg[key("username")] = conn.Username
		cfg[key("password")] = conn.Credentials["password"]

	default:
		cfg[key("host")] = conn.Host
		for _, port := range d.Ports {
			if port.Name == "api" {
				cfg[key("port")] = conn.Port(port.Name)
				continue
			}
			cfg[key(port.Name+"_port")] = conn.Port(port.Name)
		}
		for k, v := range conn.Credentials {
			cfg[key(k)] = v
		}
	}
	return cfg
}
