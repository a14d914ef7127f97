package clustering

import (
	"fmt"
	"strings"

	"github.com/justestif/moodmix/internal/catalog"
)

const sampleTrackCount = 3

// FormatMoodSummary returns a human-readable summary of mood groups.
// Shows centroid, track count and the first 3 sample tracks for each group.
// Outliers are summarized by count only.
func FormatMoodSummary(groups []MoodGroup, outliers []catalog.Track) string {
	var sb strings.Builder

	totalTracks := len(outliers)
	for _, g := range groups {
		totalTracks += len(g.Tracks)
	}

	if len(groups) == 0 {
		fmt.Fprintf(&sb, "No mood groups found from %d tracks", totalTracks)
		if len(outliers) > 0 {
			fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	groupWord := "mood group"
	if len(groups) > 1 {
		groupWord = "mood groups"
	}

	fmt.Fprintf(&sb, "Found %d %s from %d tracks", len(groups), groupWord, totalTracks)
	if len(outliers) > 0 {
		fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
	}
	sb.WriteString("\n")

	for i, g := range groups {
		sb.WriteString("\n")
		sb.WriteString(formatGroup(i+1, g))
	}

	return sb.String()
}

// formatGroup formats a single group with its sample tracks.
func formatGroup(num int, g MoodGroup) string {
	var sb strings.Builder

	trackWord := "track"
	if len(g.Tracks) > 1 {
		trackWord = "tracks"
	}

	fmt.Fprintf(&sb, "Group %d: %s (%d %s)\n", num, g.Name, len(g.Tracks), trackWord)
	fmt.Fprintf(&sb, "  Mood: Energy=%.0f%% Valence=%.0f%% Tempo=%.0f BPM\n",
		g.Centroid.Energy*100, g.Centroid.Valence*100, g.Centroid.Tempo)

	sampleCount := min(sampleTrackCount, len(g.Tracks))
	for i := 0; i < sampleCount; i++ {
		track := g.Tracks[i]
		fmt.Fprintf(&sb, "  • \"%s\" - %s\n", track.Title, track.Artist)
	}

	remaining := len(g.Tracks) - sampleTrackCount
	if remaining > 0 {
		fmt.Fprintf(&sb, "  ... and %d more\n", remaining)
	}

	return sb.String()
}
