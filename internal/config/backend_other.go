//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// xdgPath resolves elem under the XDG directory named by env, falling back to
// $HOME/def when the variable is unset.
func xdgPath(env, def string, elem ...string) (string, error) {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, def)
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

func defaultDataDir() string {
	p, err := xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "followup")
	if err != nil {
		return "followup-data"
	}
	return p
}

// fileBackend keeps settings in $XDG_CONFIG_HOME/followup/config.json.
type fileBackend struct {
	path string
	data map[string]string
}

func newPlatformBackend() Backend {
	p, err := xdgPath("XDG_CONFIG_HOME", ".config", "followup", "config.json")
	if err != nil {
		p = filepath.Join(".", "followup", "config.json")
	}
	b := &fileBackend{path: p, data: map[string]string{}}
	if err := b.load(); err != nil {
		slog.Warn("ignoring config file", "path", p, "error", err)
	}
	return b
}

// load accepts hand-edited files where numbers are not quoted.
func (b *fileBackend) load() error {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}
	for k, v := range values {
		switch v := v.(type) {
		case string:
			b.data[k] = v
		case float64:
			b.data[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			b.data[k] = fmt.Sprint(v)
		}
	}
	return nil
}

func (b *fileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	out, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, out, 0o600)
}

func (b *fileBackend) Get(key string) (string, bool, error) {
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *fileBackend) Set(key, val string) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) Delete(key string) error {
	delete(b.data, key)
	return b.save()
}
