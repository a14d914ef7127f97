// Package clustering groups catalog tracks into mood regions using k-means
// over energy, valence and scaled tempo.
package clustering

import (
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/moodmix/internal/catalog"
)

// tempoScale matches the scale the retriever uses for tempo distance.
const tempoScale = 200.0

// MoodConfig holds mood-based clustering parameters.
type MoodConfig struct {
	NumClusters    int // Number of clusters to create (default: 4)
	MinClusterSize int // Minimum tracks per group (smaller clusters become outliers)
}

// DefaultMoodConfig returns the recommended default configuration.
func DefaultMoodConfig() MoodConfig {
	return MoodConfig{
		NumClusters:    4,
		MinClusterSize: 2,
	}
}

// Centroid is the average feature vector of a group.
type Centroid struct {
	Energy  float64 `json:"energy"`
	Valence float64 `json:"valence"`
	Tempo   float64 `json:"tempo"` // BPM
}

// MoodGroup is a cluster of catalog tracks that share a mood.
type MoodGroup struct {
	Name     string          `json:"name"`
	Category MoodCategory    `json:"category"`
	Centroid Centroid        `json:"centroid"`
	Tracks   []catalog.Track `json:"tracks"`
}

// trackObservation wraps a Track to implement clusters.Observation interface.
type trackObservation struct {
	track  catalog.Track
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectMoodGroups clusters tracks by audio features.
// Returns the mood groups, most energetic first, and the outlier tracks.
// Tracks missing tempo, energy or valence are always outliers.
func DetectMoodGroups(tracks []catalog.Track, cfg MoodConfig) ([]MoodGroup, []catalog.Track) {
	if len(tracks) == 0 {
		return nil, nil
	}

	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultMoodConfig().NumClusters
	}

	var valid []catalog.Track
	var outliers []catalog.Track
	for _, t := range tracks {
		if t.HasFeatures() {
			valid = append(valid, t)
		} else {
			outliers = append(outliers, t)
		}
	}

	// If fewer valid tracks than clusters, everything is an outlier
	if len(valid) < cfg.NumClusters {
		return nil, append(valid, outliers...)
	}

	var obs clusters.Observations
	for _, t := range valid {
		obs = append(obs, trackObservation{track: t, coords: extractFeatures(t)})
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		// On error, treat all as outliers
		return nil, append(valid, outliers...)
	}

	var groups []MoodGroup
	for _, cluster := range result {
		var members []catalog.Track
		for _, o := range cluster.Observations {
			if to, ok := o.(trackObservation); ok {
				members = append(members, to.track)
			}
		}

		if len(members) == 0 {
			continue
		}
		if len(members) < cfg.MinClusterSize {
			outliers = append(outliers, members...)
			continue
		}

		centroid := Centroid{
			Energy:  cluster.Center[0],
			Valence: cluster.Center[1],
			Tempo:   cluster.Center[2] * tempoScale,
		}
		category := CategoryFor(centroid.Energy, centroid.Valence, centroid.Tempo)

		groups = append(groups, MoodGroup{
			Name:     category.Name,
			Category: category,
			Centroid: centroid,
			Tracks:   members,
		})
	}

	slices.SortStableFunc(groups, func(a, b MoodGroup) int {
		switch {
		case a.Centroid.Energy > b.Centroid.Energy:
			return -1
		case a.Centroid.Energy < b.Centroid.Energy:
			return 1
		default:
			return 0
		}
	})

	return groups, outliers
}

// extractFeatures returns the coordinate vector used for clustering.
// The track must have all features present.
func extractFeatures(t catalog.Track) clusters.Coordinates {
	return clusters.Coordinates{
		*t.Energy,
		*t.Valence,
		*t.Tempo / tempoScale,
	}
}
