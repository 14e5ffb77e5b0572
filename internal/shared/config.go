package shared

import (
	"encoding/json"
	"os"
)

// ClientConfig is the servermon-ctl settings file.
type ClientConfig struct {
	ServerURL      string `json:"server_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Retries        int    `json:"retries"`
}

// DefaultClientConfig is used when no file exists.
func DefaultClientConfig() *ClientConfig {
	c := &ClientConfig{Retries: 3}
	c.applyDefaults()
	return c
}

func LoadClientConfig(path string) (*ClientConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c ClientConfig
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func SaveClientConfig(path string, c *ClientConfig) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

func (c *ClientConfig) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://127.0.0.1:5000"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 20
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
}
