package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const tokenEnv = "FOLLOWUP_API_TOKEN"

// APIToken returns the bearer token clients must present to the HTTP API.
// FOLLOWUP_API_TOKEN wins when set; otherwise the token is read from the
// secret store, and generated and saved there on first use.
func APIToken() (string, error) {
	return apiTokenWith(platformSecrets{})
}

func apiTokenWith(s secretStore) (string, error) {
	if tok := os.Getenv(tokenEnv); tok != "" {
		return tok, nil
	}
	if tok, err := s.Get(secretService, "api_token"); err == nil && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := s.Set(secretService, "api_token", tok); err != nil {
		return "", fmt.Errorf("saving api token: %w", err)
	}
	return tok, nil
}

// SetSecret stores a secret config value, such as weather.api_key, in the
// platform secret store.
func SetSecret(key, value string) error {
	for _, s := range specs {
		if s.key == key && s.secret {
			return platformSecrets{}.Set(secretService, s.account, value)
		}
	}
	return fmt.Errorf("%q is not a secret config key", key)
}
