// Package config loads process configuration from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DecodeSecret decodes a configured secret and enforces a minimum length.
//
// Base64 (raw or padded) values are decoded; anything else is used verbatim.
func DecodeSecret(raw string, minLen int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("secret is required")
	}
	secret := []byte(raw)
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		secret = decoded
	} else if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		secret = decoded
	}
	if len(secret) < minLen {
		return nil, fmt.Errorf("secret must be at least %d bytes, got %d", minLen, len(secret))
	}
	return secret, nil
}
