package storage

import (
	"context"
)

// SettingsKey is the settings row holding the credential document
const SettingsKey = "credentials"

// SettingsStore is a key-value settings table. GetSetting returns "" for a missing key.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	Close() error
}

// SettingsBackend stores the document as one row of a settings table
type SettingsBackend struct {
	store SettingsStore
	key   string
}

func NewSettingsBackend(store SettingsStore, key string) *SettingsBackend {
	if key == "" {
		key = SettingsKey
	}
	return &SettingsBackend{store: store, key: key}
}

func (s *SettingsBackend) Load(ctx context.Context) ([]byte, error) {
	value, err := s.store.GetSetting(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return []byte(value), nil
}

func (s *SettingsBackend) Save(ctx context.Context, data []byte) error {
	return s.store.SetSetting(ctx, s.key, string(data))
}

func (s *SettingsBackend) Close() error {
	return s.store.Close()
}

func (s *SettingsBackend) Health(ctx context.Context) error {
	if hc, ok := s.store.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
