package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CacheEntry stores one cache payload and freshness metadata.
type CacheEntry struct {
	CacheKey     string
	Scope        string
	PayloadBytes []byte
	RefreshedAt  time.Time
	ExpiresAt    time.Time
}

// Fresh reports whether the entry is still valid at now.
func (e CacheEntry) Fresh(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.Before(e.ExpiresAt)
}

// SecureValue is one sealed value owned by a device.
type SecureValue struct {
	DeviceID  string
	Key       string
	Sealed    []byte
	UpdatedAt time.Time
}

// BiometricCredential is one enrolled platform authenticator credential.
type BiometricCredential struct {
	CredentialID   string
	DeviceID       string
	CredentialJSON string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

// CacheStore persists derived cache payloads.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, cacheKey string) (CacheEntry, bool, error)
	PutCacheEntry(ctx context.Context, entry CacheEntry) error
	DeleteCacheEntry(ctx context.Context, cacheKey string) error
	DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error)
}

// SecureValueStore persists sealed per-device values.
type SecureValueStore interface {
	GetSecureValue(ctx context.Context, deviceID string, key string) (SecureValue, error)
	PutSecureValue(ctx context.Context, value SecureValue) error
	DeleteSecureValue(ctx context.Context, deviceID string, key string) error
}

// BiometricCredentialStore persists enrolled biometric credentials.
type BiometricCredentialStore interface {
	ListBiometricCredentials(ctx context.Context, deviceID string) ([]BiometricCredential, error)
	PutBiometricCredential(ctx context.Context, credential BiometricCredential) error
	DeleteBiometricCredentials(ctx context.Context, deviceID string) error
}

// Store is the full web persistence contract.
type Store interface {
	CacheStore
	SecureValueStore
	BiometricCredentialStore
	Close() error
}
