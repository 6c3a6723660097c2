// Package credential provides per-device secure storage backed by sealed rows.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	webstorage "github.com/louisbranch/newsgate/internal/services/web/storage"
)

// Sealer seals values bound to a scope.
type Sealer interface {
	Seal(scope string, plaintext []byte) ([]byte, error)
	Open(scope string, sealed []byte) ([]byte, error)
}

// Store hands out secure storage views for individual devices.
type Store struct {
	values webstorage.SecureValueStore
	sealer Sealer
	now    func() time.Time
}

// NewStore returns a Store that seals values before persisting them.
func NewStore(values webstorage.SecureValueStore, sealer Sealer) (*Store, error) {
	if values == nil {
		return nil, errors.New("secure value store is required")
	}
	if sealer == nil {
		return nil, errors.New("sealer is required")
	}
	return &Store{values: values, sealer: sealer, now: time.Now}, nil
}

// ForDevice returns the secure storage of one device.
func (s *Store) ForDevice(deviceID string) *DeviceStore {
	return &DeviceStore{store: s, deviceID: strings.TrimSpace(deviceID)}
}

// DeviceStore reads and writes one device's secure values.
type DeviceStore struct {
	store    *Store
	deviceID string
}

// Get returns the value stored under key, or an empty string when absent.
func (d *DeviceStore) Get(ctx context.Context, key string) (string, error) {
	if d.deviceID == "" {
		return "", nil
	}
	row, err := d.store.values.GetSecureValue(ctx, d.deviceID, key)
	if errors.Is(err, webstorage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secure value: %w", err)
	}
	plaintext, err := d.store.sealer.Open(scope(d.deviceID, key), row.Sealed)
	if err != nil {
		return "", fmt.Errorf("open secure value: %w", err)
	}
	return string(plaintext), nil
}

// Set stores value under key, replacing any previous value.
func (d *DeviceStore) Set(ctx context.Context, key string, value string) error {
	if d.deviceID == "" {
		return errors.New("device id is required")
	}
	sealed, err := d.store.sealer.Seal(scope(d.deviceID, key), []byte(value))
	if err != nil {
		return fmt.Errorf("seal secure value: %w", err)
	}
	if err := d.store.values.PutSecureValue(ctx, webstorage.SecureValue{
		DeviceID:  d.deviceID,
		Key:       key,
		Sealed:    sealed,
		UpdatedAt: d.store.now().UTC(),
	}); err != nil {
		return fmt.Errorf("write secure value: %w", err)
	}
	return nil
}

// Delete removes key. Removing an absent key succeeds.
func (d *DeviceStore) Delete(ctx context.Context, key string) error {
	if d.deviceID == "" {
		return nil
	}
	if err := d.store.values.DeleteSecureValue(ctx, d.deviceID, key); err != nil {
		return fmt.Errorf("delete secure value: %w", err)
	}
	return nil
}

func scope(deviceID string, key string) string {
	return "device:" + deviceID + ":" + strings.TrimSpace(key)
}
