// Package analysis runs the analyze-and-recommend flow: check consent,
// classify the input, optionally record it, then build a playlist.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/justestif/moodmix/internal/apperr"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/emotion"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/playlist"
	"github.com/justestif/moodmix/internal/policy"
)

// ErrConsentRequired is returned when the device has not allowed the
// requested input source.
var ErrConsentRequired = apperr.Forbidden("consent required for this input")

// Request describes one analysis.
type Request struct {
	Source  consent.Source
	Mode    policy.Mode
	Text    string
	ClipURI string
	K       int
}

// Result is the outcome of an analysis.
type Result struct {
	Emotion    string          `json:"emotion"`
	Confidence float64         `json:"confidence"`
	Playlist   playlist.Result `json:"playlist"`
	Recorded   bool            `json:"recorded"`
}

// Service wires consent, classification, history and playlist generation.
type Service struct {
	consent    consent.Store
	history    history.Store
	classifier emotion.Classifier
	playlists  *playlist.Service
	logger     *slog.Logger
}

// NewService creates an analysis service.
func NewService(cs consent.Store, hs history.Store, classifier emotion.Classifier, playlists *playlist.Service, logger *slog.Logger) *Service {
	return &Service{
		consent:    cs,
		history:    hs,
		classifier: classifier,
		playlists:  playlists,
		logger:     logger,
	}
}

// Analyze classifies req's input for deviceID and returns a playlist for the
// detected emotion.
func (s *Service) Analyze(ctx context.Context, deviceID string, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	c, err := s.consent.Load(ctx, deviceID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "loading consent")
	}
	if !consent.Allows(c, req.Source) {
		return nil, ErrConsentRequired.WithDetails(map[string]string{"source": string(req.Source)})
	}

	detected, err := s.classifier.Classify(ctx, emotion.Input{
		Source:  req.Source,
		Text:    req.Text,
		ClipURI: req.ClipURI,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperr.Wrap(err, apperr.CodeUnavailable, "emotion classifier failed")
	}

	result := &Result{
		Emotion:    detected.Emotion,
		Confidence: detected.Confidence,
		Playlist: s.playlists.Generate(playlist.Request{
			Emotion: detected.Emotion,
			Mode:    req.Mode,
			K:       req.K,
		}),
	}

	if consent.KeepsHistory(c) {
		result.Recorded = s.record(ctx, deviceID, req, detected)
	}

	s.logger.Info("analysis complete",
		"source", req.Source,
		"emotion", detected.Emotion,
		"confidence", detected.Confidence,
		"recorded", result.Recorded,
	)
	return result, nil
}

// record appends a history item. Failures are logged and do not fail the
// analysis.
func (s *Service) record(ctx context.Context, deviceID string, req Request, detected emotion.Result) bool {
	item, err := history.NewItem(req.Source, req.Mode, req.Text, req.ClipURI, detected.Emotion, detected.Confidence)
	if err == nil {
		err = s.history.Append(ctx, deviceID, item)
	}
	if err != nil {
		s.logger.Warn("failed to record history", "error", err)
		return false
	}
	return true
}

func validate(req Request) error {
	switch req.Source {
	case consent.SourceText:
		if strings.TrimSpace(req.Text) == "" {
			return apperr.Validation("text is required for text analysis")
		}
	case consent.SourceVoice:
		if strings.TrimSpace(req.ClipURI) == "" {
			return apperr.Validation("clip_uri is required for voice analysis")
		}
	default:
		return apperr.Validationf("unknown source %q", req.Source)
	}
	return nil
}
