package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/newsgate/internal/platform/storage/sqlitemigrate"
	webstorage "github.com/louisbranch/newsgate/internal/services/web/storage"
	"github.com/louisbranch/newsgate/internal/services/web/storage/sqlite/migrations"
)

// Store provides SQLite-backed persistence for web data.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a web SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sqlitemigrate.Open(path)
	if err != nil {
		return nil, err
	}
	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// GetCacheEntry loads a cache payload and metadata by key.
func (s *Store) GetCacheEntry(ctx context.Context, cacheKey string) (webstorage.CacheEntry, bool, error) {
	if err := s.ready(); err != nil {
		return webstorage.CacheEntry{}, false, err
	}
	cacheKey = strings.TrimSpace(cacheKey)
	if cacheKey == "" {
		return webstorage.CacheEntry{}, false, fmt.Errorf("cache key is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT cache_key, scope, payload_json, refreshed_at, expires_at
		 FROM cache_entries
		 WHERE cache_key = ?`,
		cacheKey,
	)
	var entry webstorage.CacheEntry
	var refreshedAt int64
	var expiresAt int64
	if err := row.Scan(&entry.CacheKey, &entry.Scope, &entry.PayloadBytes, &refreshedAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webstorage.CacheEntry{}, false, nil
		}
		return webstorage.CacheEntry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	entry.RefreshedAt = unixMillisToTime(refreshedAt)
	entry.ExpiresAt = unixMillisToTime(expiresAt)
	return entry, true, nil
}

// PutCacheEntry upserts a cache payload and metadata by key.
func (s *Store) PutCacheEntry(ctx context.Context, entry webstorage.CacheEntry) error {
	if err := s.ready(); err != nil {
		return err
	}
	entry.CacheKey = strings.TrimSpace(entry.CacheKey)
	if entry.CacheKey == "" {
		return fmt.Errorf("cache key is required")
	}
	entry.Scope = strings.TrimSpace(entry.Scope)
	if entry.Scope == "" {
		return fmt.Errorf("cache scope is required")
	}
	if len(entry.PayloadBytes) == 0 {
		return fmt.Errorf("cache payload is required")
	}
	if entry.RefreshedAt.IsZero() {
		entry.RefreshedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cache_entries (cache_key, scope, payload_json, refreshed_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		    scope = excluded.scope,
		    payload_json = excluded.payload_json,
		    refreshed_at = excluded.refreshed_at,
		    expires_at = excluded.expires_at`,
		entry.CacheKey,
		entry.Scope,
		entry.PayloadBytes,
		timeToUnixMillis(entry.RefreshedAt),
		timeToUnixMillis(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// DeleteCacheEntry removes a cache entry by key.
func (s *Store) DeleteCacheEntry(ctx context.Context, cacheKey string) error {
	if err := s.ready(); err != nil {
		return err
	}
	cacheKey = strings.TrimSpace(cacheKey)
	if cacheKey == "" {
		return fmt.Errorf("cache key is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, cacheKey); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpiredCacheEntries removes entries whose expiry is at or before now.
func (s *Store) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, timeToUnixMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired cache entries: %w", err)
	}
	return affected, nil
}

// GetSecureValue loads one sealed value. Missing rows return ErrNotFound.
func (s *Store) GetSecureValue(ctx context.Context, deviceID string, key string) (webstorage.SecureValue, error) {
	if err := s.ready(); err != nil {
		return webstorage.SecureValue{}, err
	}
	deviceID, key, err := normalizeSecureKey(deviceID, key)
	if err != nil {
		return webstorage.SecureValue{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT device_id, key, sealed, updated_at FROM secure_values WHERE device_id = ? AND key = ?`,
		deviceID,
		key,
	)
	var value webstorage.SecureValue
	var updatedAt int64
	if err := row.Scan(&value.DeviceID, &value.Key, &value.Sealed, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webstorage.SecureValue{}, webstorage.ErrNotFound
		}
		return webstorage.SecureValue{}, fmt.Errorf("get secure value: %w", err)
	}
	value.UpdatedAt = unixMillisToTime(updatedAt)
	return value, nil
}

// PutSecureValue upserts one sealed value.
func (s *Store) PutSecureValue(ctx context.Context, value webstorage.SecureValue) error {
	if err := s.ready(); err != nil {
		return err
	}
	deviceID, key, err := normalizeSecureKey(value.DeviceID, value.Key)
	if err != nil {
		return err
	}
	if len(value.Sealed) == 0 {
		return fmt.Errorf("sealed value is required")
	}
	if value.UpdatedAt.IsZero() {
		value.UpdatedAt = time.Now().UTC()
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO secure_values (device_id, key, sealed, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(device_id, key) DO UPDATE SET
		    sealed = excluded.sealed,
		    updated_at = excluded.updated_at`,
		deviceID,
		key,
		value.Sealed,
		timeToUnixMillis(value.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put secure value: %w", err)
	}
	return nil
}

// DeleteSecureValue removes one sealed value. Deleting a missing value is not an error.
func (s *Store) DeleteSecureValue(ctx context.Context, deviceID string, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	deviceID, key, err := normalizeSecureKey(deviceID, key)
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM secure_values WHERE device_id = ? AND key = ?`, deviceID, key); err != nil {
		return fmt.Errorf("delete secure value: %w", err)
	}
	return nil
}

// ListBiometricCredentials returns a device's credentials, oldest first.
func (s *Store) ListBiometricCredentials(ctx context.Context, deviceID string) ([]webstorage.BiometricCredential, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT credential_id, device_id, credential_json, created_at, last_used_at
		 FROM biometric_credentials
		 WHERE device_id = ?
		 ORDER BY created_at, credential_id`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list biometric credentials: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	credentials := make([]webstorage.BiometricCredential, 0)
	for rows.Next() {
		var credential webstorage.BiometricCredential
		var createdAt int64
		var lastUsedAt sql.NullInt64
		if err := rows.Scan(&credential.CredentialID, &credential.DeviceID, &credential.CredentialJSON, &createdAt, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("scan biometric credential: %w", err)
		}
		credential.CreatedAt = unixMillisToTime(createdAt)
		if lastUsedAt.Valid {
			value := unixMillisToTime(lastUsedAt.Int64)
			credential.LastUsedAt = &value
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate biometric credentials: %w", err)
	}
	return credentials, nil
}

// PutBiometricCredential upserts a credential, keeping its original creation time.
func (s *Store) PutBiometricCredential(ctx context.Context, credential webstorage.BiometricCredential) error {
	if err := s.ready(); err != nil {
		return err
	}
	credential.CredentialID = strings.TrimSpace(credential.CredentialID)
	credential.DeviceID = strings.TrimSpace(credential.DeviceID)
	if credential.CredentialID == "" {
		return fmt.Errorf("credential id is required")
	}
	if credential.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if strings.TrimSpace(credential.CredentialJSON) == "" {
		return fmt.Errorf("credential json is required")
	}
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now().UTC()
	}
	var lastUsed any
	if credential.LastUsedAt != nil {
		lastUsed = timeToUnixMillis(*credential.LastUsedAt)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO biometric_credentials (credential_id, device_id, credential_json, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(credential_id) DO UPDATE SET
		    credential_json = excluded.credential_json,
		    last_used_at = COALESCE(excluded.last_used_at, biometric_credentials.last_used_at)
		 WHERE biometric_credentials.device_id = excluded.device_id`,
		credential.CredentialID,
		credential.DeviceID,
		credential.CredentialJSON,
		timeToUnixMillis(credential.CreatedAt),
		lastUsed,
	)
	if err != nil {
		return fmt.Errorf("put biometric credential: %w", err)
	}
	return nil
}

// DeleteBiometricCredentials removes every credential enrolled for a device.
func (s *Store) DeleteBiometricCredentials(ctx context.Context, deviceID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM biometric_credentials WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("delete biometric credentials: %w", err)
	}
	return nil
}

func normalizeSecureKey(deviceID string, key string) (string, string, error) {
	deviceID = strings.TrimSpace(deviceID)
	key = strings.TrimSpace(key)
	if deviceID == "" {
		return "", "", fmt.Errorf("device id is required")
	}
	if key == "" {
		return "", "", fmt.Errorf("secure key is required")
	}
	return deviceID, key, nil
}

func timeToUnixMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

var _ webstorage.Store = (*Store)(nil)
