// Package history keeps a per-device log of analyzed moods.
package history

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/policy"
)

// MaxItems is the number of entries kept per device. Older entries are
// dropped on append.
const MaxItems = 100

// Item is one recorded analysis.
type Item struct {
	ID         string         `json:"id"`
	Source     consent.Source `json:"source"`
	Mode       policy.Mode    `json:"mode,omitempty"`
	Text       string         `json:"text,omitempty"`
	ClipURI    string         `json:"clip_uri,omitempty"`
	Emotion    string         `json:"emotion"`
	Confidence float64        `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewItem builds an item with a fresh "hist-" id and the current time.
// Confidence is clamped to [0, 1].
func NewItem(src consent.Source, mode policy.Mode, text, clipURI, emotion string, confidence float64) (Item, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Item{}, fmt.Errorf("generate history id: %w", err)
	}
	return Item{
		ID:         "hist-" + id,
		Source:     src,
		Mode:       mode,
		Text:       text,
		ClipURI:    clipURI,
		Emotion:    emotion,
		Confidence: math.Max(0, math.Min(1, confidence)),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Store persists history per device.
type Store interface {
	Append(ctx context.Context, deviceID string, item Item) error
	// List returns the device's items, newest first.
	List(ctx context.Context, deviceID string) ([]Item, error)
	Clear(ctx context.Context, deviceID string) error
}

// MemoryStore keeps history in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]Item // oldest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]Item)}
}

func (m *MemoryStore) Append(_ context.Context, deviceID string, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.items[deviceID], item)
	if len(list) > MaxItems {
		list = append([]Item(nil), list[len(list)-MaxItems:]...)
	}
	m.items[deviceID] = list
	return nil
}

func (m *MemoryStore) List(_ context.Context, deviceID string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.items[deviceID]
	out := make([]Item, len(list))
	for i, item := range list {
		out[len(list)-1-i] = item
	}
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context, deviceID string) error {
	m.mu.Lock()
	delete(m.items, deviceID)
	m.mu.Unlock()
	return nil
}
