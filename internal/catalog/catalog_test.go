package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Len() != 28 {
		t.Fatalf("Default().Len() = %d, want 28", c.Len())
	}

	first := c.Tracks()[0]
	if first.Title != "Happy" || first.Artist != "Pharrell Williams" {
		t.Errorf("first track = %q by %q, want Happy by Pharrell Williams", first.Title, first.Artist)
	}
	if first.Tempo == nil || *first.Tempo != 160 {
		t.Errorf("first track tempo = %v, want 160", first.Tempo)
	}
	if first.Genre == nil || *first.Genre != "pop" {
		t.Errorf("first track genre = %v, want pop", first.Genre)
	}
}

func TestTracksReturnsCopy(t *testing.T) {
	c := Default()

	tracks := c.Tracks()
	tracks[0].Title = "Mutated"
	*tracks[0].Energy = 0

	again := c.Tracks()
	if again[0].Title != "Happy" {
		t.Errorf("title mutated through copy: %q", again[0].Title)
	}
	if *again[0].Energy != 0.9 {
		t.Errorf("energy mutated through copy: %v", *again[0].Energy)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{name: "title only", track: Track{Title: "Untitled"}},
		{name: "full", track: Track{Title: "A", Tempo: Float(120), Energy: Float(0), Valence: Float(1), Genre: String("pop")}},
		{name: "empty title", track: Track{Title: "  "}, wantErr: true},
		{name: "zero tempo", track: Track{Title: "A", Tempo: Float(0)}, wantErr: true},
		{name: "energy above one", track: Track{Title: "A", Energy: Float(1.2)}, wantErr: true},
		{name: "negative valence", track: Track{Title: "A", Valence: Float(-0.1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTrack) {
					t.Errorf("Validate() error = %v, want ErrInvalidTrack", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestParseMissingAttributes(t *testing.T) {
	tracks, err := Parse(strings.NewReader(`[{"title": "Mystery", "artist": "Nobody"}]`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("len = %d, want 1", len(tracks))
	}
	tr := tracks[0]
	if tr.Tempo != nil || tr.Energy != nil || tr.Valence != nil || tr.Genre != nil {
		t.Errorf("absent attributes should stay nil, got %+v", tr)
	}
	if tr.HasFeatures() {
		t.Error("HasFeatures() = true, want false")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`[{"title": "Weightless", "artist": "Marconi Union", "tempo": 60}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(good)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"title": "", "artist": "x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("LoadFile(bad) error = %v, want ErrInvalidTrack", err)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFile(missing) expected error")
	}
}

func TestKey(t *testing.T) {
	tr := Track{Title: "Killing in the Name", Artist: "Rage Against the Machine"}
	want := "rage-against-the-machine:killing-in-the-name"
	if got := tr.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
