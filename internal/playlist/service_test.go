package playlist

import (
	"sync"
	"testing"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/policy"
)

func TestGenerate(t *testing.T) {
	svc := NewService(catalog.Default())

	tests := []struct {
		name         string
		req          Request
		wantLen      int
		wantTitle    string
		wantSubtitle string
		wantFirst    string
		wantMood     string
	}{
		{
			name:         "sad reflect",
			req:          Request{Emotion: "sad", Mode: policy.ModeReflect, K: 5},
			wantLen:      5,
			wantTitle:    "Sad Playlist",
			wantSubtitle: "Reflecting your mood",
			wantFirst:    "Someone Like You",
			wantMood:     "Reflective & Melancholy (Slow)",
		},
		{
			name:         "happy work",
			req:          Request{Emotion: "happy", Mode: policy.ModeWork, K: DefaultSize},
			wantLen:      DefaultSize,
			wantTitle:    "Happy Playlist",
			wantSubtitle: "Working with your mood",
			wantFirst:    "Get Lucky",
			wantMood:     "Upbeat Party",
		},
		{
			name:         "no emotion",
			req:          Request{K: 3},
			wantLen:      3,
			wantTitle:    "Playlist",
			wantSubtitle: "Reflecting your mood",
			wantFirst:    "Dreams",
			wantMood:     "Reflective & Melancholy",
		},
		{
			name:         "zero k",
			req:          Request{Emotion: "calm", K: 0},
			wantLen:      0,
			wantTitle:    "Calm Playlist",
			wantSubtitle: "Reflecting your mood",
			wantMood:     "Chill & Happy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Generate(tt.req)

			if len(got.Items) != tt.wantLen {
				t.Fatalf("len(Items) = %d, want %d", len(got.Items), tt.wantLen)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Subtitle != tt.wantSubtitle {
				t.Errorf("Subtitle = %q, want %q", got.Subtitle, tt.wantSubtitle)
			}
			if tt.wantFirst != "" && got.Items[0].Track.Title != tt.wantFirst {
				t.Errorf("first item = %q, want %q", got.Items[0].Track.Title, tt.wantFirst)
			}
			if got.Mood.Name != tt.wantMood {
				t.Errorf("Mood = %q, want %q", got.Mood.Name, tt.wantMood)
			}
			if len(got.Summary) < 3 {
				t.Errorf("Summary = %v, want at least 3 chips", got.Summary)
			}
		})
	}
}

func TestGenerateConcurrent(t *testing.T) {
	svc := NewService(catalog.Default())
	want := svc.Generate(Request{Emotion: "angry", K: 5})

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := svc.Generate(Request{Emotion: "angry", K: 5})
			for j := range got.Items {
				if got.Items[j].ID != want.Items[j].ID {
					errs <- got.Items[j].ID
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for id := range errs {
		t.Errorf("concurrent result diverged: %s", id)
	}
}
