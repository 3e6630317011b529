// Package output provides shared result serialization for the CLI output
// formats.
package output

import (
	"fmt"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
)

// ResultToMap converts an analysis result into the canonical map structure
// used for console, JSON and markdown serialization.
func ResultToMap(result *musicanalysis.AnalysisResult) map[string]any {
	return map[string]any{
		"analyzed": result.Analyzed,

		"rhythm": map[string]any{
			"bpm":            result.BPM,
			"time_signature": result.TimeSignature,
		},

		"harmony": map[string]any{
			"key":  result.Key,
			"mode": result.Mode,
		},

		"loudness": result.Loudness,

		"perceptual": map[string]any{
			"energy":           result.Energy,
			"danceability":     result.Danceability,
			"valence":          result.Valence,
			"acousticness":     result.Acousticness,
			"instrumentalness": result.Instrumentalness,
			"speechiness":      result.Speechiness,
			"liveness":         result.Liveness,
		},

		"similarity": map[string]any{
			"harmonicity": result.Similarity.Harmonicity,
			"melodicity":  result.Similarity.Melodicity,
			"rhythmicity": result.Similarity.Rhythmicity,
			"timbrality":  result.Similarity.Timbrality,
			"dynamics":    result.Similarity.Dynamics,
			"tonality":    result.Similarity.Tonality,
			"temporality": result.Similarity.Temporality,
		},

		"tags": map[string]any{
			"characteristics":  result.Characteristics,
			"mood":             result.Mood,
			"occasion":         result.Occasion,
			"subgenres":        result.Subgenres,
			"era":              result.Era,
			"cultural_context": result.CulturalContext,
		},

		"confidence": result.Confidence,
	}
}

// Summary renders the one-line human description used by the console
// formatter header.
func Summary(result *musicanalysis.AnalysisResult) string {
	return fmt.Sprintf("%.0f BPM %s %s, %.1f dB, %s",
		result.BPM, result.Key, result.Mode, result.Loudness, result.Mood)
}
