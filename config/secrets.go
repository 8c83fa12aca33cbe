package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Environment overrides for the secrets file. main loads .env through
// godotenv before these are read.
const (
	EnvUsername = "WIKIWATCH_USERNAME"
	EnvPassword = "WIKIWATCH_PASSWORD"
)

// Credentials for the wiki sign-in form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ReadCredentials resolves credentials from the environment, falling back
// to the configured secrets JSON file. A missing username or password is an
// error: there is no anonymous mode.
func (c *Config) ReadCredentials() (Credentials, error) {
	creds := Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
	if creds.Username != "" && creds.Password != "" {
		return creds, nil
	}

	data, err := os.ReadFile(c.SecretsFile)
	if err != nil {
		return Credentials{}, fmt.Errorf("config: read secrets %s: %w", c.SecretsFile, err)
	}
	var fromFile Credentials
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return Credentials{}, fmt.Errorf("config: parse secrets %s: %w", c.SecretsFile, err)
	}
	if creds.Username == "" {
		creds.Username = fromFile.Username
	}
	if creds.Password == "" {
		creds.Password = fromFile.Password
	}

	if creds.Username == "" {
		return Credentials{}, fmt.Errorf("config: %s: missing username", c.SecretsFile)
	}
	if creds.Password == "" {
		return Credentials{}, fmt.Errorf("config: %s: missing password", c.SecretsFile)
	}
	return creds, nil
}
