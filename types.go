package musicanalysis

import (
	"errors"
	"math"
)

var (
	// ErrInvalidInput flags a buffer the pipeline refuses to analyze:
	// nil, empty or carrying a non-positive sample rate.
	ErrInvalidInput = errors.New("invalid input buffer")

	// ErrNumericalFailure flags a stage that produced no usable numbers.
	ErrNumericalFailure = errors.New("numerical failure")

	// ErrBudgetExceeded flags an analysis cancelled by its time budget.
	ErrBudgetExceeded = errors.New("analysis budget exceeded")
)

// AnalysisResult is the single authoritative output record per track.
// All bounded fields are clamped to their documented ranges before the
// record is handed out; it is never mutated afterwards. Downstream
// consumers should overwrite any previous record for the same track,
// never merge.
type AnalysisResult struct {
	Analyzed bool `json:"analyzed"`

	// Rhythm and harmony
	BPM           float64 `json:"bpm"`            // [60, 200]
	Key           string  `json:"key"`            // pitch-class name, "C".."B"
	Mode          string  `json:"mode"`           // "Major" or "Minor"
	TimeSignature int     `json:"time_signature"` // 3, 4, 5, 6 or 7

	// Perceptual descriptors, each in [0, 1]
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
	Liveness         float64 `json:"liveness"`

	// Loudness in dB, clamped to [-60, 0]. -60 reads as silence.
	Loudness float64 `json:"loudness"`

	// Similarity positions the track for track-to-track comparison.
	Similarity SimilarityVector `json:"similarity"`

	// Categorical tags
	Characteristics []string `json:"characteristics"` // 3-5 entries
	Mood            string   `json:"mood"`
	Occasion        []string `json:"occasion"`  // 2-3 entries
	Subgenres       []string `json:"subgenres"` // 2-3 entries
	Era             string   `json:"era"`
	CulturalContext string   `json:"cultural_context"`

	Confidence float64 `json:"confidence"` // [0, 1]
}

// SimilarityVector positions a track on seven descriptor axes, each in
// [0, 1]. Tracks with nearby vectors share harmonic, rhythmic, timbral
// and dynamic character.
type SimilarityVector struct {
	Harmonicity float64 `json:"harmonicity"`
	Melodicity  float64 `json:"melodicity"`
	Rhythmicity float64 `json:"rhythmicity"`
	Timbrality  float64 `json:"timbrality"`
	Dynamics    float64 `json:"dynamics"`
	Tonality    float64 `json:"tonality"`
	Temporality float64 `json:"temporality"`
}

// Distance returns the Euclidean distance to another vector, scaled so
// that fully opposed vectors measure 1.
func (v SimilarityVector) Distance(o SimilarityVector) float64 {
	a := [7]float64{
		v.Harmonicity - o.Harmonicity,
		v.Melodicity - o.Melodicity,
		v.Rhythmicity - o.Rhythmicity,
		v.Timbrality - o.Timbrality,
		v.Dynamics - o.Dynamics,
		v.Tonality - o.Tonality,
		v.Temporality - o.Temporality,
	}

	var sum float64
	for _, d := range a {
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(a)))
}
