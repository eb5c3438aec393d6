package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"daily-app/internal/domain"
)

// DefaultFileName is the preference file inside the config directory.
const DefaultFileName = "preferences.toml"

// FileStore persists preferences in a TOML file holding one table per origin:
//
//	["https://daily.example.com"]
//	theme = "dark"
type FileStore struct {
	path   string
	origin string
	mu     sync.Mutex
}

// NewFileStore returns a store for origin backed by the file at path. The
// file and its directory are created on first write.
func NewFileStore(path, origin string) *FileStore {
	return &FileStore{path: path, origin: origin}
}

// DefaultPath returns the preference file under XDG_CONFIG_HOME/daily, or
// $HOME/.config/daily.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "daily", DefaultFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, ".config", "daily", DefaultFileName)
}

func (f *FileStore) load() (map[string]map[string]string, error) {
	data := map[string]map[string]string{}
	if _, err := toml.DecodeFile(f.path, &data); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileStore) save(data map[string]map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".preferences-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	if err := domain.ValidatePreference(key); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return "", err
	}
	return data[f.origin][key], nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	if err := domain.ValidatePreference(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	if data[f.origin] == nil {
		data[f.origin] = map[string]string{}
	}
	data[f.origin][key] = value
	return f.save(data)
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	if err := domain.ValidatePreference(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data[f.origin][key]; !ok {
		return nil
	}
	delete(data[f.origin], key)
	if len(data[f.origin]) == 0 {
		delete(data, f.origin)
	}
	return f.save(data)
}
