// Package credentials keeps the per-user credential mapping: an in-memory
// cache loaded once from a durable backend and written through on every change.
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"
	"meeting-scheduler/internal/storage"
)

// Store is safe for concurrent use. Writes rebuild and persist the full mapping,
// and the cache only changes once the backend accepted the new document.
type Store struct {
	backend storage.Backend
	logger  logging.Logger

	mu     sync.Mutex
	cache  map[string]*models.Credential
	loaded bool
}

func NewStore(backend storage.Backend, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{
		backend: backend,
		logger:  logger.WithFields(logging.String("component", "credential_store")),
	}
}

// Init loads the persisted mapping. Calling it is optional; the first access loads lazily.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded(ctx)
}

// Get returns a copy of the user's credential, or nil when none is stored
func (s *Store) Get(ctx context.Context, userID string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	return s.cache[userID].Clone(), nil
}

// Put stores cred for userID, replacing any previous credential
func (s *Store) Put(ctx context.Context, userID string, cred *models.Credential) error {
	if userID == "" {
		return errors.ValidationError("user id is required")
	}
	if cred == nil {
		return errors.ValidationError("credential is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := make(map[string]*models.Credential, len(s.cache)+1)
	for k, v := range s.cache {
		next[k] = v
	}
	stored := cred.Clone()
	stored.UserID = userID
	next[userID] = stored

	if err := s.persist(ctx, next); err != nil {
		return errors.PersistenceError("failed to save credential", err).
			WithContext("user_id", userID).
			WithContext("operation", "put")
	}

	s.cache = next
	s.logger.Debug("Credential stored", logging.String("user_id", userID))
	return nil
}

// Delete removes the user's credential. Deleting an absent user is a no-op.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	if _, ok := s.cache[userID]; !ok {
		return nil
	}

	next := make(map[string]*models.Credential, len(s.cache))
	for k, v := range s.cache {
		if k != userID {
			next[k] = v
		}
	}

	if err := s.persist(ctx, next); err != nil {
		return errors.PersistenceError("failed to delete credential", err).
			WithContext("user_id", userID).
			WithContext("operation", "delete")
	}

	s.cache = next
	s.logger.Info("Credential deleted", logging.String("user_id", userID))
	return nil
}

// Users returns the ids of every user with a stored credential, sorted
func (s *Store) Users(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	users := make([]string, 0, len(s.cache))
	for userID := range s.cache {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

// ensureLoaded must be called with mu held
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.backend.Load(ctx)
	if err != nil {
		return errors.PersistenceError("failed to load credentials", err).WithContext("operation", "load")
	}

	mapping, err := decode(data)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("credential document is corrupt: %v", err))
	}

	s.cache = mapping
	s.loaded = true
	s.logger.Info("Credentials loaded", logging.Int("users", len(mapping)))
	return nil
}

func (s *Store) persist(ctx context.Context, mapping map[string]*models.Credential) error {
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return s.backend.Save(ctx, data)
}

func decode(data []byte) (map[string]*models.Credential, error) {
	mapping := make(map[string]*models.Credential)
	if len(bytes.TrimSpace(data)) == 0 {
		return mapping, nil
	}

	var raw map[string]*models.Credential
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	for userID, cred := range raw {
		if cred == nil {
			continue
		}
		cred.UserID = userID
		mapping[userID] = cred
	}
	return mapping, nil
}
