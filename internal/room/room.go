// Package room blends the moods of several listeners into one playlist.
//
// Members join a room by its code, each sets an emotion, and the room's
// playlist is drawn from the average of their policies.
package room

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/justestif/moodmix/internal/apperr"
	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/policy"
	"github.com/justestif/moodmix/internal/retrieval"
)

const (
	// MaxMembers caps the size of a room.
	MaxMembers = 50

	// DefaultIdleTTL is how long a room survives without activity.
	DefaultIdleTTL = 24 * time.Hour
)

var (
	ErrRoomNotFound = apperr.NotFound("room not found")
	ErrNotMember    = apperr.Forbidden("join the room before setting a mood")
	ErrRoomFull     = apperr.Forbidden("room is full")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Member is one listener in a room.
type Member struct {
	UserID    string    `json:"user_id"`
	Emotion   string    `json:"emotion,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is a snapshot of a room and its members in join order.
type Room struct {
	ID        string    `json:"id"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Moods returns the emotions members have set, in join order.
func (r Room) Moods() []string {
	var out []string
	for _, m := range r.Members {
		if m.Emotion != "" {
			out = append(out, m.Emotion)
		}
	}
	return out
}

// Store persists rooms.
type Store interface {
	// Join adds userID to the room, creating the room if needed. Joining
	// twice is a no-op.
	Join(ctx context.Context, roomID, userID string, at time.Time) (Room, error)
	SetMood(ctx context.Context, roomID, userID, emotion string, at time.Time) (Room, error)
	Get(ctx context.Context, roomID string) (Room, error)
	// Leave removes userID; the room is dropped once empty.
	Leave(ctx context.Context, roomID, userID string) error
}

// Playlist is a room's blended playlist.
type Playlist struct {
	RoomID  string                  `json:"room_id"`
	Mode    policy.Mode             `json:"mode,omitempty"`
	Members int                     `json:"members"`
	Moods   []string                `json:"moods"`
	Policy  policy.Policy           `json:"policy"`
	Summary []string                `json:"summary"`
	Items   []retrieval.ScoredTrack `json:"items"`
}

// Service manages rooms and their playlists.
type Service struct {
	store   Store
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewService creates a room service drawing tracks from cat.
func NewService(store Store, cat *catalog.Catalog) *Service {
	return &Service{store: store, catalog: cat, now: time.Now}
}

// Join adds userID to roomID.
func (s *Service) Join(ctx context.Context, roomID, userID string) (*Room, error) {
	if err := validateIDs(roomID, userID); err != nil {
		return nil, err
	}
	r, err := s.store.Join(ctx, roomID, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("joining room: %w", err)
	}
	return &r, nil
}

// SetMood records userID's emotion in roomID. The user must have joined.
func (s *Service) SetMood(ctx context.Context, roomID, userID, emotion string) (*Room, error) {
	if err := validateIDs(roomID, userID); err != nil {
		return nil, err
	}
	emotion = strings.TrimSpace(emotion)
	if emotion == "" {
		return nil, apperr.Validation("emotion is required")
	}
	r, err := s.store.SetMood(ctx, roomID, userID, emotion, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("setting mood: %w", err)
	}
	return &r, nil
}

// Get returns the room.
func (s *Service) Get(ctx context.Context, roomID string) (*Room, error) {
	r, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("getting room: %w", err)
	}
	return &r, nil
}

// Leave removes userID from roomID.
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	if err := validateIDs(roomID, userID); err != nil {
		return err
	}
	if err := s.store.Leave(ctx, roomID, userID); err != nil {
		return fmt.Errorf("leaving room: %w", err)
	}
	return nil
}

// Playlist blends the policies of every member with a mood and retrieves
// the k closest tracks. A room with no moods yet gets the neutral profile.
func (s *Service) Playlist(ctx context.Context, roomID string, mode policy.Mode, k int) (*Playlist, error) {
	r, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	moods := r.Moods()
	policies := make([]policy.Policy, len(moods))
	for i, m := range moods {
		policies[i] = policy.Map(m, mode)
	}
	p := policy.Blend(policies...)
	if moods == nil {
		moods = []string{}
	}

	return &Playlist{
		RoomID:  r.ID,
		Mode:    mode,
		Members: len(r.Members),
		Moods:   moods,
		Policy:  p,
		Summary: p.Summary(),
		Items:   retrieval.Retrieve(p, s.catalog.Tracks(), k),
	}, nil
}

func validateIDs(roomID, userID string) error {
	details := map[string]string{}
	if !idPattern.MatchString(roomID) {
		details["room_id"] = "must be 1-128 letters, digits, '-' or '_'"
	}
	if !idPattern.MatchString(userID) {
		details["user_id"] = "must be 1-128 letters, digits, '-' or '_'"
	}
	if len(details) > 0 {
		return apperr.Validation("validation failed").WithDetails(details)
	}
	return nil
}

// MemoryStore keeps rooms in memory. Rooms idle for longer than the TTL
// are dropped on the next write.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
	ttl   time.Duration
}

// NewMemoryStore creates an empty store that forgets rooms idle for ttl.
// ttl <= 0 uses DefaultIdleTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &MemoryStore{rooms: make(map[string]*Room), ttl: ttl}
}

func (m *MemoryStore) Join(_ context.Context, roomID, userID string, at time.Time) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(at)

	r, ok := m.rooms[roomID]
	if !ok {
		r = &Room{ID: roomID, CreatedAt: at}
		m.rooms[roomID] = r
	}
	if memberIndex(r, userID) < 0 {
		if len(r.Members) >= MaxMembers {
			return Room{}, ErrRoomFull
		}
		r.Members = append(r.Members, Member{UserID: userID, JoinedAt: at, UpdatedAt: at})
	}
	r.UpdatedAt = at
	return clone(r), nil
}

func (m *MemoryStore) SetMood(_ context.Context, roomID, userID, emotion string, at time.Time) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(at)

	r, ok := m.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	i := memberIndex(r, userID)
	if i < 0 {
		return Room{}, ErrNotMember
	}
	r.Members[i].Emotion = emotion
	r.Members[i].UpdatedAt = at
	r.UpdatedAt = at
	return clone(r), nil
}

func (m *MemoryStore) Get(_ context.Context, roomID string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return clone(r), nil
}

func (m *MemoryStore) Leave(_ context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	i := memberIndex(r, userID)
	if i < 0 {
		return ErrNotMember
	}
	r.Members = append(r.Members[:i], r.Members[i+1:]...)
	if len(r.Members) == 0 {
		delete(m.rooms, roomID)
	}
	return nil
}

// expire drops rooms idle since before now minus the TTL. Callers hold mu.
func (m *MemoryStore) expire(now time.Time) {
	cutoff := now.Add(-m.ttl)
	for id, r := range m.rooms {
		if r.UpdatedAt.Before(cutoff) {
			delete(m.rooms, id)
		}
	}
}

func memberIndex(r *Room, userID string) int {
	for i, mem := range r.Members {
		if mem.UserID == userID {
			return i
		}
	}
	return -1
}

func clone(r *Room) Room {
	out := *r
	out.Members = append([]Member{}, r.Members...)
	return out
}
