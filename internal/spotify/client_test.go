package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zmb3/spotify/v2"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	api := spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/"))
	return New(api, nil)
}

func TestFindTrack(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    spotify.ID
		wantErr error
	}{
		{
			name: "prefers exact artist",
			body: `{"tracks":{"items":[
				{"id":"cover","name":"Creep","artists":[{"name":"Karaoke Stars"}]},
				{"id":"orig","name":"Creep","artists":[{"name":"radiohead"}]}
			]}}`,
			want: "orig",
		},
		{
			name: "falls back to top hit",
			body: `{"tracks":{"items":[{"id":"first","name":"Creep","artists":[{"name":"Someone"}]}]}}`,
			want: "first",
		},
		{
			name:    "no results",
			body:    `{"tracks":{"items":[]}}`,
			wantErr: ErrTrackNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/search") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("type") != "track" {
					t.Errorf("type = %q, want track", q.Get("type"))
				}
				if want := `track:"Creep" artist:"Radiohead"`; q.Get("q") != want {
					t.Errorf("q = %q, want %q", q.Get("q"), want)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			})

			got, err := c.FindTrack(context.Background(), "Creep", "Radiohead")

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FindTrack() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FindTrack() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchQueryStripsQuotes(t *testing.T) {
	got := searchQuery(`Say "Hi"`, `The "Band"`)
	want := `track:"Say Hi" artist:"The Band"`
	if got != want {
		t.Errorf("searchQuery() = %q, want %q", got, want)
	}
}

func TestFetchAudioFeaturesBatches(t *testing.T) {
	var batches []int

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio-features") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		batches = append(batches, len(ids))

		items := make([]string, len(ids))
		for i, id := range ids {
			if id == "t-5" {
				items[i] = "null"
				continue
			}
			items[i] = fmt.Sprintf(`{"id":%q,"tempo":120.5,"energy":0.5,"valence":0.25}`, id)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"audio_features":[%s]}`, strings.Join(items, ","))
	})

	ids := make([]spotify.ID, 150)
	for i := range ids {
		ids[i] = spotify.ID(fmt.Sprintf("t-%d", i))
	}

	got, err := c.FetchAudioFeatures(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchAudioFeatures() error = %v", err)
	}

	if len(batches) != 2 || batches[0] != 100 || batches[1] != 50 {
		t.Errorf("batches = %v, want [100 50]", batches)
	}
	if len(got) != 149 {
		t.Errorf("got %d features, want 149", len(got))
	}
	if _, ok := got["t-5"]; ok {
		t.Error("track without features should be absent")
	}
	if f := got["t-0"]; f != (Features{Tempo: 120.5, Energy: 0.5, Valence: 0.25}) {
		t.Errorf("t-0 features = %+v", f)
	}
}

func TestFetchAudioFeaturesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	got, err := c.FetchAudioFeatures(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchAudioFeatures() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d features, want 0", len(got))
	}
}
