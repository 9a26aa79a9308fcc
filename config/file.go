package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// File is the configuration file on disk.
type File struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex // serializes read-modify-write within the process
}

// NewFile creates a handle on the configuration file at path.
func NewFile(fs afero.Fs, path string) *File {
	return &File{fs: fs, path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load reads the file; see Load.
func (f *File) Load() (*Config, error) {
	return Load(f.fs, f.path)
}

// Save writes cfg, replacing the file atomically.
func (f *File) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.write(data)
}

func (f *File) write(data []byte) error {
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}

// EnsureDefault writes the default configuration if no file exists yet and
// reports whether it did.
func (f *File) EnsureDefault() (bool, error) {
	_, err := f.fs.Stat(f.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking config: %w", err)
	}
	if err := f.write(DefaultYAML()); err != nil {
		return false, err
	}
	return true, nil
}

// Update re-reads the file, applies change and saves when change reports it
// modified the configuration. The result is validated before it is written.
func (f *File) Update(change func(cfg *Config) bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := f.Load()
	if err != nil {
		return false, err
	}
	if !change(cfg) {
		return false, nil
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("invalid config %s: %w", f.path, err)
	}
	if err := f.Save(cfg); err != nil {
		return false, err
	}
	return true, nil
}

// AddBlacklist blacklists model for backend in the file, reporting whether
// the entry was new.
func (f *File) AddBlacklist(backend, model string) (bool, error) {
	return f.Update(func(cfg *Config) bool {
		return cfg.AddBlacklist(backend, model)
	})
}
