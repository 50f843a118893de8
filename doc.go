// Package devstack provisions the local backing services an application
// depends on.
//
// For each service family (cache, search, object storage, queue, database)
// devstack either adds a container definition to the application's
// docker-compose.yml, starts it, waits for it and creates its default
// resource, or falls back to an instance the developer runs on the host.
// Either way the result is a flat configuration map the application can use.
//
// # Installation
//
//	go install github.com/blackwell-systems/devstack/cmd/devstack@latest
//
// # Quick Start
//
//	devstack doctor
//	devstack provision cache --path ./shop
//	devstack provision --all --path ./shop
//	devstack status --path ./shop
//
// # Layout
//
//   - internal/provision: the provisioning state machine
//   - internal/manifest: comment-preserving docker-compose.yml merges
//   - internal/docker: engine probe, compose lifecycle, readiness
//   - internal/bootstrap: default bucket, database and vhost creation
//   - internal/advisor: install guidance and local settings
//   - internal/service: the service catalog
package devstack
