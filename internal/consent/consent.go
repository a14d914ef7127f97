// Package consent records which inputs a device has agreed to share.
package consent

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Source is the kind of input being analyzed.
type Source string

const (
	SourceText  Source = "text"
	SourceVoice Source = "voice"
)

// ParseSource validates a caller-supplied source.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceText, SourceVoice:
		return Source(s), true
	}
	return "", false
}

// Consent is a device's recorded choices.
type Consent struct {
	Voice     bool      `json:"voice"`
	Text      bool      `json:"text"`
	History   bool      `json:"history"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Allows reports whether c permits analysis of src. A nil consent allows
// nothing.
func Allows(c *Consent, src Source) bool {
	if c == nil {
		return false
	}
	switch src {
	case SourceVoice:
		return c.Voice
	case SourceText:
		return c.Text
	}
	return false
}

// KeepsHistory reports whether analyses may be recorded.
func KeepsHistory(c *Consent) bool {
	return c != nil && c.History
}

// Store persists consent per device.
type Store interface {
	// Load returns nil, nil when the device has not recorded consent.
	Load(ctx context.Context, deviceID string) (*Consent, error)
	Save(ctx context.Context, deviceID string, c Consent) error
	Delete(ctx context.Context, deviceID string) error
}

// Service applies consent changes.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a consent service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Get returns the device's consent, or nil if never set.
func (s *Service) Get(ctx context.Context, deviceID string) (*Consent, error) {
	c, err := s.store.Load(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("loading consent: %w", err)
	}
	return c, nil
}

// Set records the device's choices.
func (s *Service) Set(ctx context.Context, deviceID string, voice, text, history bool) (*Consent, error) {
	c := Consent{Voice: voice, Text: text, History: history, UpdatedAt: s.now().UTC()}
	if err := s.store.Save(ctx, deviceID, c); err != nil {
		return nil, fmt.Errorf("saving consent: %w", err)
	}
	return &c, nil
}

// DenyAll records an explicit refusal of every input.
func (s *Service) DenyAll(ctx context.Context, deviceID string) (*Consent, error) {
	return s.Set(ctx, deviceID, false, false, false)
}

// Reset forgets the device's choices so it is asked again.
func (s *Service) Reset(ctx context.Context, deviceID string) error {
	if err := s.store.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("deleting consent: %w", err)
	}
	return nil
}

// MemoryStore keeps consent in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Consent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Consent)}
}

func (m *MemoryStore) Load(_ context.Context, deviceID string) (*Consent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.records[deviceID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryStore) Save(_ context.Context, deviceID string, c Consent) error {
	m.mu.Lock()
	m.records[deviceID] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, deviceID string) error {
	m.mu.Lock()
	delete(m.records, deviceID)
	m.mu.Unlock()
	return nil
}
