package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Directory and file names inside a project root.
const (
	Dir        = ".specgate"
	ConfigFile = "config.yaml"
)

// ErrNotInitialized is returned by Load when the project has no
// configuration file.
var ErrNotInitialized = errors.New("specgate not initialized (run 'specgate init')")

// ErrAlreadyInitialized is returned by Init when a configuration file
// already exists.
var ErrAlreadyInitialized = errors.New("specgate already initialized")

// DirPath returns the .specgate directory of a project root.
func DirPath(root string) string {
	return filepath.Join(root, Dir)
}

// ConfigPath returns the configuration file path of a project root.
func ConfigPath(root string) string {
	return filepath.Join(root, Dir, ConfigFile)
}

// Exists reports whether root has a configuration file.
func Exists(root string) bool {
	_, err := os.Stat(ConfigPath(root))
	return err == nil
}

// Store loads and saves project configuration.
type Store interface {
	Load(root string) (*ProjectConfig, error)
	Save(root string, cfg *ProjectConfig) error
}

// FileStore keeps the configuration in .specgate/config.yaml.
type FileStore struct{}

// NewFileStore creates a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load reads and validates the configuration of root.
func (s *FileStore) Load(root string) (*ProjectConfig, error) {
	path := ConfigPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}
	return cfg, nil
}

// Save validates cfg and writes it, creating .specgate/ as needed.
func (s *FileStore) Save(root string, cfg *ProjectConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(DirPath(root), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", DirPath(root), err)
	}
	if err := os.WriteFile(ConfigPath(root), []byte(cfg.Encode()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ConfigPath(root), err)
	}
	return nil
}

// Init writes the default configuration to root, with specsDir when
// non-empty, and creates the specs directory. It never overwrites an
// existing configuration.
func Init(store Store, root, specsDir string) (*ProjectConfig, error) {
	if Exists(root) {
		return nil, fmt.Errorf("%w: %s exists", ErrAlreadyInitialized, ConfigPath(root))
	}
	cfg := Default()
	if specsDir != "" {
		cfg.SpecsDir = filepath.ToSlash(specsDir)
	}
	if err := store.Save(root, cfg); err != nil {
		return nil, err
	}
	dir := cfg.SpecsDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, filepath.FromSlash(dir))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return cfg, nil
}

// LoadOrDefault returns the stored configuration, or the defaults when
// root is not initialized. A present but invalid file is an error.
func LoadOrDefault(store Store, root string) (*ProjectConfig, error) {
	cfg, err := store.Load(root)
	if errors.Is(err, ErrNotInitialized) {
		return Default(), nil
	}
	return cfg, err
}

// FindProjectRoot walks up from start looking for a directory holding
// .specgate/config.yaml. If none is found it returns start.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}

	current := dir
	for {
		if Exists(current) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			// Reached the filesystem root; the caller works with defaults.
			return dir, nil
		}
		current = parent
	}
}
