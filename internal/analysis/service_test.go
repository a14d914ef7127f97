package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/moodmix/internal/apperr"
	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/emotion"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/logger"
	"github.com/justestif/moodmix/internal/playlist"
	"github.com/justestif/moodmix/internal/policy"
)

type stubClassifier struct {
	result emotion.Result
	err    error
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ emotion.Input) (emotion.Result, error) {
	s.calls++
	return s.result, s.err
}

type brokenHistory struct{ history.MemoryStore }

func (*brokenHistory) Append(context.Context, string, history.Item) error {
	return errors.New("disk full")
}

type fixture struct {
	svc        *Service
	consent    *consent.MemoryStore
	history    *history.MemoryStore
	classifier *stubClassifier
}

func newFixture() *fixture {
	f := &fixture{
		consent:    consent.NewMemoryStore(),
		history:    history.NewMemoryStore(),
		classifier: &stubClassifier{result: emotion.Result{Emotion: "sad", Confidence: 0.7}},
	}
	f.svc = NewService(f.consent, f.history, f.classifier, playlist.NewService(catalog.Default()), logger.Discard())
	return f
}

func TestAnalyzeTextWithHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.consent.Save(ctx, "dev", consent.Consent{Text: true, History: true}))

	res, err := f.svc.Analyze(ctx, "dev", Request{
		Source: consent.SourceText,
		Mode:   policy.ModeReflect,
		Text:   "rough week",
		K:      5,
	})
	require.NoError(t, err)

	assert.Equal(t, "sad", res.Emotion)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	assert.True(t, res.Recorded)
	require.Len(t, res.Playlist.Items, 5)
	assert.Equal(t, "Someone Like You", res.Playlist.Items[0].Track.Title)

	items, err := f.history.List(ctx, "dev")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sad", items[0].Emotion)
	assert.Equal(t, "rough week", items[0].Text)
	assert.Equal(t, policy.ModeReflect, items[0].Mode)
}

func TestAnalyzeWithoutHistoryConsent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.consent.Save(ctx, "dev", consent.Consent{Voice: true}))

	res, err := f.svc.Analyze(ctx, "dev", Request{Source: consent.SourceVoice, ClipURI: "file:///a.m4a", K: 3})
	require.NoError(t, err)

	assert.False(t, res.Recorded)
	assert.Len(t, res.Playlist.Items, 3)
	items, _ := f.history.List(ctx, "dev")
	assert.Empty(t, items)
}

func TestAnalyzeConsentRequired(t *testing.T) {
	tests := []struct {
		name    string
		consent *consent.Consent
		source  consent.Source
	}{
		{"no consent recorded", nil, consent.SourceText},
		{"voice not granted", &consent.Consent{Text: true}, consent.SourceVoice},
		{"text not granted", &consent.Consent{Voice: true}, consent.SourceText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			if tt.consent != nil {
				require.NoError(t, f.consent.Save(ctx, "dev", *tt.consent))
			}

			_, err := f.svc.Analyze(ctx, "dev", Request{Source: tt.source, Text: "hi", ClipURI: "file:///a"})

			assert.ErrorIs(t, err, ErrConsentRequired)
			assert.ErrorIs(t, err, apperr.ErrForbidden)
			assert.Equal(t, 0, f.classifier.calls, "classifier must not run without consent")
		})
	}
}

func TestAnalyzeValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"unknown source", Request{Source: "video"}},
		{"text without text", Request{Source: consent.SourceText, Text: "  "}},
		{"voice without clip", Request{Source: consent.SourceVoice}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Analyze(context.Background(), "dev", tt.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAnalyzeClassifierFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.classifier.err = errors.New("connection refused")
	require.NoError(t, f.consent.Save(ctx, "dev", consent.Consent{Text: true}))

	_, err := f.svc.Analyze(ctx, "dev", Request{Source: consent.SourceText, Text: "hi"})

	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.ErrorContains(t, err, "connection refused")
}

func TestAnalyzeHistoryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	cs := consent.NewMemoryStore()
	require.NoError(t, cs.Save(ctx, "dev", consent.Consent{Text: true, History: true}))
	svc := NewService(cs, &brokenHistory{}, emotion.Mock{}, playlist.NewService(catalog.Default()), logger.Discard())

	res, err := svc.Analyze(ctx, "dev", Request{Source: consent.SourceText, Text: "hi", K: 2})
	require.NoError(t, err)

	assert.False(t, res.Recorded)
	assert.Equal(t, "calm", res.Emotion)
	assert.Len(t, res.Playlist.Items, 2)
}
