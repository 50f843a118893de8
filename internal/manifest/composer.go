package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/blackwell-systems/devstack/internal/service"
)

// DefaultFileName is the manifest name inside an application directory.
const DefaultFileName = "docker-compose.yml"

// Outcome reports what UpsertService did.
type Outcome int

const (
	// Created means a new manifest file was written.
	Created Outcome = iota + 1
	// Appended means the service was added to an existing manifest.
	Appended
	// AlreadyExists means the service was present and nothing was written.
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Appended:
		return "appended"
	case AlreadyExists:
		return "already-exists"
	default:
		return "unknown"
	}
}

// WriteError is a failure to read, merge, or persist the manifest. It aborts
// the container path.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Locker hands out one mutex per directory. Upserts are read-modify-write
// on a shared file, so callers touching the same application directory
// must hold its lock.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: map[string]*sync.Mutex{}}
}

// Lock blocks until dir is free and returns the unlock function.
func (l *Locker) Lock(dir string) func() {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	l.mu.Lock()
	m, ok := l.locks[dir]
	if !ok {
		m = &sync.Mutex{}
		l.locks[dir] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Composer merges service definitions into manifest files.
type Composer struct {
	locker *Locker
}

// NewComposer returns a Composer serialized by locker (a private one when nil).
func NewComposer(locker *Locker) *Composer {
	if locker == nil {
		locker = NewLocker()
	}
	return &Composer{locker: locker}
}

// UpsertService makes sure path contains a service block for d, its named
// volume and the app network. vars supplies ${var} substitutions and must
// include the naming variables from service.BaseVariables. Re-running with
// a service already present is a no-op.
func (c *Composer) UpsertService(path string, d service.Descriptor, vars map[string]string) (Outcome, error) {
	unlock := c.locker.Lock(filepath.Dir(path))
	defer unlock()

	data, mode, err := readManifest(path)
	if err != nil {
		return 0, &WriteError{Path: path, Op: "read", Err: err}
	}
	created := data == nil

	doc, err := Parse(data)
	if err != nil {
		return 0, &WriteError{Path: path, Op: "parse", Err: err}
	}
	if doc.HasService(d.Name) {
		return AlreadyExists, nil
	}

	block, err := renderService(d.Name, buildSpec(d, vars), doc.Indent())
	if err != nil {
		return 0, &WriteError{Path: path, Op: "render", Err: err}
	}
	if err := doc.AddService(d.Name, block); err != nil {
		return 0, &WriteError{Path: path, Op: "merge", Err: err}
	}
	if v := vars["volume_name"]; v != "" && d.VolumeTarget != "" {
		if err := doc.AddVolume(v); err != nil {
			return 0, &WriteError{Path: path, Op: "merge", Err: err}
		}
	}
	if n := vars["network_name"]; n != "" {
		if err := doc.AddNetwork(n); err != nil {
			return 0, &WriteError{Path: path, Op: "merge", Err: err}
		}
	}

	if err := writeAtomic(path, doc.Bytes(), mode); err != nil {
		return 0, &WriteError{Path: path, Op: "write", Err: err}
	}
	if created {
		return Created, nil
	}
	return Appended, nil
}

// readManifest returns nil data when the file does not exist.
func readManifest(path string) ([]byte, fs.FileMode, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0o644, nil
	}
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, info.Mode().Perm(), nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place, so an interrupted run never leaves a half-written manifest.
func writeAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
