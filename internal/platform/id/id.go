// Package id generates identifiers for devices and gate instances.
package id

import (
	"fmt"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DeviceAlphabet is the character set used for device identifiers.
const DeviceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DeviceLength is the number of random characters in a device id.
const DeviceLength = 24

// NewDeviceID returns a URL-safe random device identifier.
func NewDeviceID() (string, error) {
	value, err := nanoid.Generate(DeviceAlphabet, DeviceLength)
	if err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return "dev_" + value, nil
}

// NewGateID returns a random identifier for one gate instance.
func NewGateID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate gate id: %w", err)
	}
	return value.String(), nil
}

// ValidDeviceID reports whether value has the shape produced by NewDeviceID.
func ValidDeviceID(value string) bool {
	const prefix = "dev_"
	if len(value) != len(prefix)+DeviceLength || value[:len(prefix)] != prefix {
		return false
	}
	for _, r := range value[len(prefix):] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// ValidGateID reports whether value parses as a gate identifier.
func ValidGateID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
