package retrieval

import (
	"math"
	"reflect"
	"regexp"
	"testing"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/policy"
)

func TestRetrieveSadReflect(t *testing.T) {
	tracks := catalog.Default().Tracks()
	got := Retrieve(policy.Map("sad", policy.ModeReflect), tracks, 5)

	wantTitles := []string{"Someone Like You", "Stay With Me", "Hallelujah", "Creep", "Someone You Loved"}
	if len(got) != len(wantTitles) {
		t.Fatalf("len = %d, want %d", len(got), len(wantTitles))
	}

	idPattern := regexp.MustCompile(`^real-[0-4]-[^\s]+$`)
	for i, st := range got {
		if st.Track.Title != wantTitles[i] {
			t.Errorf("rank %d = %q, want %q", i, st.Track.Title, wantTitles[i])
		}
		if !idPattern.MatchString(st.ID) {
			t.Errorf("rank %d id %q does not match %s", i, st.ID, idPattern)
		}
	}

	if got[0].ID != "real-0-someone-like-you" {
		t.Errorf("first id = %q, want real-0-someone-like-you", got[0].ID)
	}
	if math.Abs(got[0].Distance-0.057827) > 1e-6 {
		t.Errorf("first distance = %v, want ~0.057827", got[0].Distance)
	}
}

func TestRetrieveHappyRanksAboveSad(t *testing.T) {
	tracks := catalog.Default().Tracks()
	all := Retrieve(policy.Map("sad", policy.ModeReflect), tracks, len(tracks))

	rank := make(map[string]int, len(all))
	for i, st := range all {
		rank[st.Track.Title] = i
	}
	for _, low := range []string{"Someone Like You", "Hallelujah"} {
		for _, high := range []string{"Happy", "Blinding Lights"} {
			if rank[low] >= rank[high] {
				t.Errorf("%q (rank %d) should rank above %q (rank %d)", low, rank[low], high, rank[high])
			}
		}
	}
}

func TestRetrieveLength(t *testing.T) {
	tracks := catalog.Default().Tracks()
	p := policy.Map("happy", policy.ModeNone)

	tests := []struct {
		name string
		k    int
		want int
	}{
		{"negative k", -3, 0},
		{"zero k", 0, 0},
		{"one", 1, 1},
		{"ten", 10, 10},
		{"exact size", len(tracks), len(tracks)},
		{"more than catalog", 1000, len(tracks)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Retrieve(p, tracks, tt.k)
			if got == nil {
				t.Fatal("Retrieve returned nil, want non-nil slice")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRetrieveEmptyCatalog(t *testing.T) {
	got := Retrieve(policy.Map("calm", policy.ModeNone), nil, 5)
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestRetrieveSortedAndBounded(t *testing.T) {
	tracks := catalog.Default().Tracks()
	for _, emotion := range []string{"happy", "sad", "calm", "angry", "focused", "meh"} {
		for _, mode := range []policy.Mode{policy.ModeNone, policy.ModeWork} {
			got := Retrieve(policy.Map(emotion, mode), tracks, len(tracks))
			for i, st := range got {
				if st.Distance < 0 || st.Distance > 1 {
					t.Errorf("%s/%s rank %d distance %v out of [0,1]", emotion, mode, i, st.Distance)
				}
				if i > 0 && got[i-1].Distance > st.Distance {
					t.Errorf("%s/%s not sorted at %d: %v > %v", emotion, mode, i, got[i-1].Distance, st.Distance)
				}
			}
		}
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	tracks := catalog.Default().Tracks()
	p := policy.Map("focused", policy.ModeWork)

	first := Retrieve(p, tracks, 7)
	second := Retrieve(p, tracks, 7)
	if !reflect.DeepEqual(first, second) {
		t.Error("Retrieve is not deterministic for identical inputs")
	}
}

func TestRetrieveTiesKeepCatalogOrder(t *testing.T) {
	// Happy, Shake It Off and Blinding Lights all clamp to 1 for the sad policy.
	tracks := catalog.Default().Tracks()
	all := Retrieve(policy.Map("sad", policy.ModeNone), tracks, len(tracks))

	tail := all[len(all)-3:]
	want := []string{"Happy", "Shake It Off", "Blinding Lights"}
	for i, st := range tail {
		if st.Distance != 1 {
			t.Errorf("tail[%d] distance = %v, want 1", i, st.Distance)
		}
		if st.Track.Title != want[i] {
			t.Errorf("tail[%d] = %q, want %q", i, st.Track.Title, want[i])
		}
	}
}

func TestRetrieveIDsAreDense(t *testing.T) {
	tracks := []catalog.Track{
		{Title: "B  Side", Tempo: catalog.Float(100)},
		{Title: "A Side", Tempo: catalog.Float(101)},
	}
	got := Retrieve(policy.Map("", policy.ModeNone), tracks, 5)
	want := []string{"real-0-b-side", "real-1-a-side"}
	for i, st := range got {
		if st.ID != want[i] {
			t.Errorf("id[%d] = %q, want %q", i, st.ID, want[i])
		}
	}
}

func TestDistanceMissingAttributesUsePolicy(t *testing.T) {
	p := policy.Policy{Tempo: 120, Energy: 0.7, Valence: 0.4, Genres: []string{"rock"}}

	bare := catalog.Track{Title: "Unknown"}
	if got := Distance(p, bare); got != 0 {
		t.Errorf("Distance(bare) = %v, want 0", got)
	}

	onlyEnergy := catalog.Track{Title: "Energy only", Energy: catalog.Float(0.3)}
	if got := Distance(p, onlyEnergy); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("Distance(onlyEnergy) = %v, want 0.4", got)
	}

	onlyTempo := catalog.Track{Title: "Tempo only", Tempo: catalog.Float(80)}
	if got := Distance(p, onlyTempo); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("Distance(onlyTempo) = %v, want 0.2", got)
	}

	for _, tempo := range []float64{0, -10} {
		unknownTempo := catalog.Track{Title: "No tempo", Tempo: catalog.Float(tempo)}
		if got := Distance(p, unknownTempo); got != 0 {
			t.Errorf("Distance(tempo %v) = %v, want 0", tempo, got)
		}
	}
}

func TestDistanceGenreBonus(t *testing.T) {
	p := policy.Policy{Tempo: 100, Energy: 0.5, Valence: 0.5, Genres: []string{"indie", "folk"}}

	base := catalog.Track{Title: "X", Tempo: catalog.Float(140), Energy: catalog.Float(0.7), Valence: catalog.Float(0.2)}
	plain := base
	plain.Genre = catalog.String("metal")
	matching := base
	matching.Genre = catalog.String("folk")

	dPlain := Distance(p, plain)
	dMatch := Distance(p, matching)
	if dMatch >= dPlain {
		t.Fatalf("matching distance %v should be below plain %v", dMatch, dPlain)
	}
	if math.Abs(dMatch-dPlain*GenreBonus) > 1e-12 {
		t.Errorf("matching distance = %v, want %v", dMatch, dPlain*GenreBonus)
	}
	if got := Distance(p, base); got != dPlain {
		t.Errorf("missing genre distance = %v, want %v", got, dPlain)
	}

	ranked := Retrieve(p, []catalog.Track{plain, matching}, 2)
	if ranked[0].Track.Genre == nil || *ranked[0].Track.Genre != "folk" {
		t.Errorf("genre match should rank first, got %+v", ranked[0].Track)
	}
}

func TestDistanceClamped(t *testing.T) {
	p := policy.Policy{Tempo: 50, Energy: 0, Valence: 0}
	far := catalog.Track{Title: "Far", Tempo: catalog.Float(250), Energy: catalog.Float(1), Valence: catalog.Float(1)}
	if got := Distance(p, far); got != 1 {
		t.Errorf("Distance(far) = %v, want 1", got)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Someone Like You", "someone-like-you"},
		{"Don't Know Why", "don't-know-why"},
		{"Killing  in\tthe Name", "killing-in-the-name"},
		{" Padded ", "-padded-"},
		{"Time", "time"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
