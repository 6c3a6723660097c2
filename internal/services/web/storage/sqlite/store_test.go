package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	webstorage "github.com/louisbranch/newsgate/internal/services/web/storage"
	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	var missing *Store
	if err := missing.Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "web.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() {
		_ = sqlDB.Close()
	}()
	for _, table := range []string{"secure_values", "biometric_credentials", "cache_entries", "schema_migrations"} {
		assertTableExists(t, sqlDB, table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "web.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open pass %d: %v", i, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close pass %d: %v", i, err)
		}
	}
}

func TestCacheEntryRoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	refreshed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, err := store.GetCacheEntry(ctx, "feed:abc"); err != nil || ok {
		t.Fatalf("get missing = (%v, %v), want (false, nil)", ok, err)
	}
	entry := webstorage.CacheEntry{
		CacheKey:     "feed:abc",
		Scope:        "news_feed",
		PayloadBytes: []byte(`[{"title":"a"}]`),
		RefreshedAt:  refreshed,
		ExpiresAt:    refreshed.Add(10 * time.Minute),
	}
	if err := store.PutCacheEntry(ctx, entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.GetCacheEntry(ctx, "feed:abc")
	if err != nil || !ok {
		t.Fatalf("get = (%v, %v), want found", ok, err)
	}
	if string(got.PayloadBytes) != string(entry.PayloadBytes) {
		t.Fatalf("payload = %q, want %q", got.PayloadBytes, entry.PayloadBytes)
	}
	if !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Fatalf("expires = %v, want %v", got.ExpiresAt, entry.ExpiresAt)
	}
	if !got.Fresh(refreshed.Add(time.Minute)) || got.Fresh(refreshed.Add(11*time.Minute)) {
		t.Fatal("unexpected freshness")
	}

	removed, err := store.DeleteExpiredCacheEntries(ctx, refreshed.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok, _ := store.GetCacheEntry(ctx, "feed:abc"); ok {
		t.Fatal("expected expired entry to be gone")
	}
}

func TestPutCacheEntryValidates(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	for _, entry := range []webstorage.CacheEntry{
		{Scope: "s", PayloadBytes: []byte("x")},
		{CacheKey: "k", PayloadBytes: []byte("x")},
		{CacheKey: "k", Scope: "s"},
	} {
		if err := store.PutCacheEntry(ctx, entry); err == nil {
			t.Fatalf("expected validation error for %+v", entry)
		}
	}
}

func TestSecureValueLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSecureValue(ctx, "dev", "api_token"); !errors.Is(err, webstorage.ErrNotFound) {
		t.Fatalf("get missing error = %v, want %v", err, webstorage.ErrNotFound)
	}
	if err := store.PutSecureValue(ctx, webstorage.SecureValue{DeviceID: "dev", Key: "api_token", Sealed: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutSecureValue(ctx, webstorage.SecureValue{DeviceID: "dev", Key: "api_token", Sealed: []byte{4, 5}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, err := store.GetSecureValue(ctx, "dev", "api_token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value.Sealed) != string([]byte{4, 5}) {
		t.Fatalf("sealed = %v, want [4 5]", value.Sealed)
	}
	if _, err := store.GetSecureValue(ctx, "other", "api_token"); !errors.Is(err, webstorage.ErrNotFound) {
		t.Fatalf("other device error = %v, want %v", err, webstorage.ErrNotFound)
	}
	if err := store.DeleteSecureValue(ctx, "dev", "api_token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteSecureValue(ctx, "dev", "api_token"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := store.GetSecureValue(ctx, "dev", "api_token"); !errors.Is(err, webstorage.ErrNotFound) {
		t.Fatalf("get deleted error = %v, want %v", err, webstorage.ErrNotFound)
	}
}

func TestBiometricCredentialLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.PutBiometricCredential(ctx, webstorage.BiometricCredential{
		CredentialID:   "cred-1",
		DeviceID:       "dev",
		CredentialJSON: `{"id":"AQ"}`,
		CreatedAt:      created,
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	used := created.Add(time.Hour)
	if err := store.PutBiometricCredential(ctx, webstorage.BiometricCredential{
		CredentialID:   "cred-1",
		DeviceID:       "dev",
		CredentialJSON: `{"id":"AQ","n":1}`,
		CreatedAt:      used,
		LastUsedAt:     &used,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.PutBiometricCredential(ctx, webstorage.BiometricCredential{
		CredentialID:   "cred-1",
		DeviceID:       "intruder",
		CredentialJSON: `{"id":"AQ","stolen":true}`,
	}); err != nil {
		t.Fatalf("foreign put: %v", err)
	}

	credentials, err := store.ListBiometricCredentials(ctx, "dev")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(credentials) != 1 {
		t.Fatalf("credentials = %d, want 1", len(credentials))
	}
	got := credentials[0]
	if got.CredentialJSON != `{"id":"AQ","n":1}` {
		t.Fatalf("credential json = %q, want updated value", got.CredentialJSON)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created = %v, want %v", got.CreatedAt, created)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(used) {
		t.Fatalf("last used = %v, want %v", got.LastUsedAt, used)
	}
	if foreign, _ := store.ListBiometricCredentials(ctx, "intruder"); len(foreign) != 0 {
		t.Fatalf("foreign credentials = %d, want 0", len(foreign))
	}

	if err := store.DeleteBiometricCredentials(ctx, "dev"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	credentials, err = store.ListBiometricCredentials(ctx, "dev")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(credentials) != 0 {
		t.Fatalf("credentials after delete = %d, want 0", len(credentials))
	}
}

func TestNilStoreReportsNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if _, _, err := store.GetCacheEntry(context.Background(), "k"); err == nil {
		t.Fatal("expected not configured error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func assertTableExists(t *testing.T, sqlDB *sql.DB, table string) {
	t.Helper()
	var name string
	if err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name); err != nil {
		t.Fatalf("expected table %q: %v", table, err)
	}
}
