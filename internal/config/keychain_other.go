//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// secretsFile maps service to account to value. It lives next to the data
// directory with 0600 permissions.
type secretsFile map[string]map[string]string

func secretsPath() string {
	p, err := xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "followup", "secrets.json")
	if err != nil {
		return filepath.Join(".", "followup", "secrets.json")
	}
	return p
}

func readSecrets(path string) (secretsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f secretsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

func keychainGet(service, account string) ([]byte, error) {
	f, err := readSecrets(secretsPath())
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	val, ok := f[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret %s/%s", service, account)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	path := secretsPath()
	f, err := readSecrets(path)
	if err != nil || f == nil {
		f = secretsFile{}
	}
	if f[service] == nil {
		f[service] = map[string]string{}
	}
	f[service][account] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
