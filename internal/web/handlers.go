package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/moodmix/internal/analysis"
	"github.com/justestif/moodmix/internal/apperr"
	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/clustering"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/playlist"
	"github.com/justestif/moodmix/internal/policy"
	"github.com/justestif/moodmix/internal/search"
)

const (
	maxClusters = 10
	maxSize     = 100
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	svc       Services
	validator *Validator
	logger    *slog.Logger
}

// NewHandlers creates handlers over svc.
func NewHandlers(svc Services, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:       svc,
		validator: NewValidator(),
		logger:    logger,
	}
}

type playlistRequest struct {
	Emotion string `json:"emotion" validate:"max=64"`
	Mode    string `json:"mode"`
	K       int    `json:"k" validate:"gte=0,lte=100"`
}

type analyzeRequest struct {
	Source  string `json:"source" validate:"required,oneof=text voice"`
	Mode    string `json:"mode"`
	Text    string `json:"text" validate:"required_if=Source text,max=2000"`
	ClipURI string `json:"clip_uri" validate:"required_if=Source voice,max=2048"`
	K       int    `json:"k" validate:"gte=0,lte=100"`
}

type consentRequest struct {
	Voice   *bool `json:"voice" validate:"required"`
	Text    *bool `json:"text" validate:"required"`
	History *bool `json:"history" validate:"required"`
}

// roomRequest identifies a room member. UserID defaults to the device ID.
type roomRequest struct {
	RoomID string `json:"room_id" validate:"required"`
	UserID string `json:"user_id"`
}

type roomMoodRequest struct {
	RoomID  string `json:"room_id" validate:"required"`
	UserID  string `json:"user_id"`
	Emotion string `json:"emotion" validate:"required,max=64"`
}

type historyResponse struct {
	Items []history.Item `json:"items"`
}

type catalogResponse struct {
	Tracks []catalog.Track `json:"tracks"`
	Count  int             `json:"count"`
}

type searchResponse struct {
	Query string       `json:"query"`
	Hits  []search.Hit `json:"hits"`
}

type moodsResponse struct {
	Groups   []clustering.MoodGroup `json:"groups"`
	Outliers []catalog.Track        `json:"outliers"`
}

// Health reports liveness and the catalog size.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tracks": h.svc.Playlists.Catalog().Len(),
	}, h.logger)
}

// Playlist generates a playlist for an explicit emotion.
func (h *Handlers) Playlist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	result := h.svc.Playlists.Generate(playlist.Request{
		Emotion: req.Emotion,
		Mode:    mode,
		K:       sizeOrDefault(req.K),
	})
	writeJSON(w, http.StatusOK, result, h.logger)
}

// Analyze classifies text or a voice clip and returns a playlist for it.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	src, _ := consent.ParseSource(req.Source)

	result, err := h.svc.Analysis.Analyze(r.Context(), DeviceID(r.Context()), analysis.Request{
		Source:  src,
		Mode:    mode,
		Text:    req.Text,
		ClipURI: req.ClipURI,
		K:       sizeOrDefault(req.K),
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

// ListHistory returns the device's history, newest first.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.History.List(r.Context(), DeviceID(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []history.Item{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: items}, h.logger)
}

// ClearHistory deletes the device's history.
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.History.Clear(r.Context(), DeviceID(r.Context())); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetConsent returns the device's consent, or 404 if none was recorded.
func (h *Handlers) GetConsent(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Consent.Get(r.Context(), DeviceID(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if c == nil {
		writeError(w, r, apperr.NotFound("consent not recorded"), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, c, h.logger)
}

// PutConsent records the device's choices.
func (h *Handlers) PutConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	c, err := h.svc.Consent.Set(r.Context(), DeviceID(r.Context()), *req.Voice, *req.Text, *req.History)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, c, h.logger)
}

// DenyAllConsent records a refusal of every input.
func (h *Handlers) DenyAllConsent(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Consent.DenyAll(r.Context(), DeviceID(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, c, h.logger)
}

// ResetConsent forgets the device's choices.
func (h *Handlers) ResetConsent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Consent.Reset(r.Context(), DeviceID(r.Context())); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Catalog lists every catalog track.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	tracks := h.svc.Playlists.Catalog().Tracks()
	writeJSON(w, http.StatusOK, catalogResponse{Tracks: tracks, Count: len(tracks)}, h.logger)
}

// SearchCatalog runs a fuzzy title, artist and genre search.
func (h *Handlers) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, err := intParam(r, "limit", search.DefaultLimit, 1, search.MaxLimit)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	hits, err := h.svc.Search.Search(r.Context(), q, limit)
	if errors.Is(err, search.ErrEmptyQuery) {
		writeError(w, r, apperr.Validation("query parameter q is required"), h.logger)
		return
	}
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Hits: hits}, h.logger)
}

// Moods clusters the catalog into mood groups.
func (h *Handlers) Moods(w http.ResponseWriter, r *http.Request) {
	cfg := clustering.DefaultMoodConfig()
	n, err := intParam(r, "clusters", cfg.NumClusters, 1, maxClusters)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	cfg.NumClusters = n

	groups, outliers := clustering.DetectMoodGroups(h.svc.Playlists.Catalog().Tracks(), cfg)
	if groups == nil {
		groups = []clustering.MoodGroup{}
	}
	if outliers == nil {
		outliers = []catalog.Track{}
	}
	writeJSON(w, http.StatusOK, moodsResponse{Groups: groups, Outliers: outliers}, h.logger)
}

// JoinRoom adds the caller to a room, creating it if needed.
func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	rm, err := h.svc.Rooms.Join(r.Context(), req.RoomID, memberID(r, req.UserID))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rm, h.logger)
}

// SetRoomMood records the caller's emotion in a room.
func (h *Handlers) SetRoomMood(w http.ResponseWriter, r *http.Request) {
	var req roomMoodRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	rm, err := h.svc.Rooms.SetMood(r.Context(), req.RoomID, memberID(r, req.UserID), req.Emotion)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rm, h.logger)
}

// LeaveRoom removes the caller from a room.
func (h *Handlers) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.svc.Rooms.Leave(r.Context(), req.RoomID, memberID(r, req.UserID)); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRoom returns a room and its members.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.svc.Rooms.Get(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rm, h.logger)
}

// RoomPlaylist returns the playlist for the blend of a room's moods.
func (h *Handlers) RoomPlaylist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room_id")
	if roomID == "" {
		writeError(w, r, apperr.Validation("query parameter room_id is required"), h.logger)
		return
	}
	mode, err := parseMode(q.Get("mode"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	k, err := intParam(r, "k", playlist.DefaultSize, 1, maxSize)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	pl, err := h.svc.Rooms.Playlist(r.Context(), roomID, mode, k)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, pl, h.logger)
}

func (h *Handlers) decode(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return h.validator.Validate(dst)
}

func parseMode(s string) (policy.Mode, error) {
	mode, ok := policy.ParseMode(s)
	if !ok {
		return policy.ModeNone, apperr.Validationf("unknown mode %q", s).WithDetails(map[string]string{"mode": "must be one of: reflect work"})
	}
	return mode, nil
}

// sizeOrDefault maps an omitted or zero k to the default playlist size.
func sizeOrDefault(k int) int {
	if k == 0 {
		return playlist.DefaultSize
	}
	return k
}

// memberID is the user ID a room request acts for.
func memberID(r *http.Request, userID string) string {
	if userID != "" {
		return userID
	}
	return DeviceID(r.Context())
}

func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, apperr.Validationf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}
