// Package stackfile reads and writes the per-application stack file: the
// list of services devstack provisions for an app, with per-service
// overrides.
//
// Supports both YAML (.yaml, .yml) and JSON (.json) files. Secrets are never
// stored here; they are generated on every run or read back from the
// manifest.
package stackfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/devstack/internal/service"
)

// DefaultNames are the file names Find looks for, in order.
var DefaultNames = []string{"devstack.yaml", "devstack.yml", "devstack.json"}

// Stack represents the stack file structure
type Stack struct {
	App      string  `yaml:"app" json:"app" validate:"required"`
	Services []Entry `yaml:"services" json:"services" validate:"required,min=1,dive"`
}

// Entry is one service to provision
type Entry struct {
	// Service is a service name (redis, minio, ...) or a family (cache, queue, ...).
	Service string `yaml:"service" json:"service" validate:"required"`
	// Container pre-answers the container offer. Omitted means ask.
	Container *bool  `yaml:"container,omitempty" json:"container,omitempty"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Host      string `yaml:"host,omitempty" json:"host,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Username  string `yaml:"username,omitempty" json:"username,omitempty"`
	Resource  string `yaml:"resource,omitempty" json:"resource,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load loads and parses a stack file (supports .yaml, .yml, and .json)
func Load(path string) (*Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}

	var stack Stack

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &stack); err != nil {
			return nil, fmt.Errorf("failed to parse stack JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &stack); err != nil {
			return nil, fmt.Errorf("failed to parse stack YAML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &stack); err != nil {
			return nil, fmt.Errorf("failed to parse stack file (unknown extension %s, tried YAML): %w", ext, err)
		}
	}

	return &stack, nil
}

// Save saves the stack to file (format determined by file extension)
func Save(stack *Stack, path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(stack, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stack JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		data, err = yaml.Marshal(stack)
		if err != nil {
			return fmt.Errorf("failed to marshal stack YAML: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write stack file: %w", err)
	}

	return nil
}

// Find returns the first stack file present in dir. The error wraps
// fs.ErrNotExist when there is none.
func Find(dir string) (string, error) {
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no stack file (%s) in %s: %w", strings.Join(DefaultNames, ", "), dir, fs.ErrNotExist)
}

// Validate checks field rules and that every entry resolves to a distinct
// catalog service.
func (s *Stack) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid stack file: %w", err)
	}

	seen := map[string]string{}
	for i, e := range s.Services {
		d, err := service.Lookup(e.Service)
		if err != nil {
			return fmt.Errorf("services[%d]: %w", i, err)
		}
		if prev, dup := seen[d.Name]; dup {
			return fmt.Errorf("services[%d]: %q resolves to %s, already listed as %q", i, e.Service, d.Name, prev)
		}
		seen[d.Name] = e.Service
	}
	return nil
}

// Descriptors resolves every entry, in file order. Call Validate first.
func (s *Stack) Descriptors() ([]service.Descriptor, error) {
	out := make([]service.Descriptor, 0, len(s.Services))
	for _, e := range s.Services {
		d, err := service.Lookup(e.Service)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
