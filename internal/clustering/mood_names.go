package clustering

// Tempo thresholds for the name modifier, in BPM.
const (
	fastTempo = 140
	slowTempo = 75
)

// generateMoodName creates a descriptive name from energy, valence and tempo.
// Uses a 2x2 energy/valence quadrant system with a tempo modifier.
//
// Quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
//
// Tempo modifier: above 140 BPM appends "(Fast)", below 75 BPM "(Slow)".
func generateMoodName(energy, valence, tempo float64) string {
	var baseName string

	highEnergy := energy > 0.6
	highValence := valence > 0.5

	switch {
	case highEnergy && highValence:
		baseName = "Upbeat Party"
	case highEnergy && !highValence:
		baseName = "Intense & Dark"
	case !highEnergy && highValence:
		baseName = "Chill & Happy"
	default: // low energy, low valence
		baseName = "Reflective & Melancholy"
	}

	switch {
	case tempo > fastTempo:
		return baseName + " (Fast)"
	case tempo > 0 && tempo < slowTempo:
		return baseName + " (Slow)"
	}

	return baseName
}

// MoodCategory represents a mood classification for display purposes.
type MoodCategory struct {
	Name        string  `json:"name"`
	Energy      float64 `json:"energy"`
	Valence     float64 `json:"valence"`
	Tempo       float64 `json:"tempo"`
	Description string  `json:"description"`
}

// CategoryFor returns the mood category for a point in feature space.
func CategoryFor(energy, valence, tempo float64) MoodCategory {
	var description string
	switch {
	case energy > 0.6 && valence > 0.5:
		description = "High-energy, positive vibes - perfect for dancing and celebrations"
	case energy > 0.6 && valence <= 0.5:
		description = "Intense, driving energy with darker emotional tones"
	case energy <= 0.6 && valence > 0.5:
		description = "Relaxed and uplifting - great for unwinding"
	default:
		description = "Contemplative and introspective - ideal for quiet moments"
	}

	return MoodCategory{
		Name:        generateMoodName(energy, valence, tempo),
		Energy:      energy,
		Valence:     valence,
		Tempo:       tempo,
		Description: description,
	}
}
