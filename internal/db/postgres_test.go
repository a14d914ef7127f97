package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/logger"
	"github.com/justestif/moodmix/internal/policy"
	"github.com/justestif/moodmix/internal/sync"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties the
// tables. Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(database.Close)

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := database.Pool().Exec(ctx, `TRUNCATE tracks, history, consent, sync_state`); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	return database
}

func titles(tracks []catalog.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestPostgresReplaceAll(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	repo := database.Tracks()

	first := []catalog.Track{
		{Title: "Old A", Artist: "Band"},
		{Title: "Keep", Artist: "Band", Tempo: catalog.Float(100)},
		{Title: "Old B", Artist: "Band"},
	}
	if err := repo.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	second := []catalog.Track{
		{Title: "New", Artist: "Band"},
		{Title: "Keep", Artist: "Band", Genre: catalog.String("rock")},
	}
	if err := repo.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fmt.Sprint(titles(got)) != "[New Keep]" {
		t.Fatalf("titles = %v, want [New Keep]", titles(got))
	}
	if got[1].Tempo != nil {
		t.Errorf("Keep tempo = %v, want nil", *got[1].Tempo)
	}
	if got[1].Genre == nil || *got[1].Genre != "rock" {
		t.Errorf("Keep genre = %v, want rock", got[1].Genre)
	}

	if err := repo.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("ReplaceAll(nil) error = %v", err)
	}
	got, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(List()) = %d after empty replace, want 0", len(got))
	}
}

func TestPostgresSyncLoadsBaseOrder(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	svc := sync.New(database.CatalogStore(), sync.WithLogger(logger.Discard()))

	base := catalog.Default().Tracks()
	if _, err := svc.SyncCatalog(ctx, base, false); err != nil {
		t.Fatalf("SyncCatalog() error = %v", err)
	}
	cat, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fmt.Sprint(titles(cat.Tracks())) != fmt.Sprint(titles(base)) {
		t.Errorf("stored order = %v, want %v", titles(cat.Tracks()), titles(base))
	}

	last, err := database.Meta().LastCatalogSync(ctx)
	if err != nil {
		t.Fatalf("LastCatalogSync() error = %v", err)
	}
	if last == nil {
		t.Error("LastCatalogSync() = nil after sync")
	}
}

func TestPostgresHistoryTrim(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	repo := database.History()

	total := history.MaxItems + 5
	for i := 0; i < total; i++ {
		item, err := history.NewItem(consent.SourceText, policy.ModeNone, fmt.Sprintf("entry %d", i), "", "happy", 0.5)
		if err != nil {
			t.Fatalf("NewItem() error = %v", err)
		}
		item.CreatedAt = time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)
		if err := repo.Append(ctx, "dev-1", item); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	other, _ := history.NewItem(consent.SourceText, policy.ModeNone, "other", "", "sad", 0.5)
	if err := repo.Append(ctx, "dev-2", other); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	items, err := repo.List(ctx, "dev-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != history.MaxItems {
		t.Fatalf("len(items) = %d, want %d", len(items), history.MaxItems)
	}
	if want := fmt.Sprintf("entry %d", total-1); items[0].Text != want {
		t.Errorf("newest = %q, want %q", items[0].Text, want)
	}
	if want := fmt.Sprintf("entry %d", total-history.MaxItems); items[len(items)-1].Text != want {
		t.Errorf("oldest = %q, want %q", items[len(items)-1].Text, want)
	}

	if err := repo.Clear(ctx, "dev-1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	items, _ = repo.List(ctx, "dev-1")
	if len(items) != 0 {
		t.Errorf("len(items) after Clear = %d, want 0", len(items))
	}
	items, _ = repo.List(ctx, "dev-2")
	if len(items) != 1 {
		t.Errorf("dev-2 items = %d, want 1", len(items))
	}
}
