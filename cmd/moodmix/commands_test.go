package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LASTFM_API_KEY", "")
	t.Setenv("SPOTIFY_ID", "")
	t.Setenv("SPOTIFY_SECRET", "")
	t.Setenv("CATALOG_PATH", "")
}

func TestPlaylistCommand(t *testing.T) {
	memoryEnv(t)

	out, err := runCmd(t, playlistCmd(), "--emotion", "sad", "--mode", "reflect", "-k", "3")
	if err != nil {
		t.Fatalf("playlist: %v", err)
	}

	for _, want := range []string{"Sad Playlist", "Reflecting your mood", "Someone Like You"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "\n"); n != 8 {
		t.Errorf("got %d lines, want 8:\n%s", n, out)
	}
}

func TestPlaylistCommandRejectsBadMode(t *testing.T) {
	memoryEnv(t)

	if _, err := runCmd(t, playlistCmd(), "--emotion", "sad", "--mode", "party"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestMoodsCommand(t *testing.T) {
	memoryEnv(t)

	out, err := runCmd(t, moodsCmd(), "--clusters", "3")
	if err != nil {
		t.Fatalf("moods: %v", err)
	}
	if !strings.Contains(out, "Group 1:") {
		t.Errorf("output missing groups:\n%s", out)
	}
}

func TestSearchCommand(t *testing.T) {
	memoryEnv(t)

	out, err := runCmd(t, searchCmd(), "daft", "punk")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, `"Get Lucky" - Daft Punk`) {
		t.Errorf("output missing Get Lucky:\n%s", out)
	}
}

func TestSyncCommandNeedsPersistentStorage(t *testing.T) {
	memoryEnv(t)

	_, err := runCmd(t, syncCmd())
	if err == nil || !strings.Contains(err.Error(), "persistent storage") {
		t.Fatalf("err = %v, want persistent storage error", err)
	}
}

func TestSyncCommandSQLite(t *testing.T) {
	memoryEnv(t)
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "moodmix.db"))

	out, err := runCmd(t, syncCmd())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Synced 28 tracks") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := runCmd(t, syncCmd()); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second sync err = %v, want cooldown error", err)
	}

	if _, err := runCmd(t, syncCmd(), "--force"); err != nil {
		t.Errorf("forced sync: %v", err)
	}

	out, err = runCmd(t, playlistCmd(), "--emotion", "happy", "--mode", "work", "-k", "1")
	if err != nil {
		t.Fatalf("playlist from stored catalog: %v", err)
	}
	if !strings.Contains(out, "Get Lucky") {
		t.Errorf("stored catalog playlist missing Get Lucky:\n%s", out)
	}
}
