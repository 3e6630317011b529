package classify

import (
	"slices"
	"testing"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

func baseInputs() Inputs {
	return Inputs{
		Spectral:   &types.SpectralResult{Centroid: 2000, Rolloff: 5000, ZeroCrossingRate: 0.05},
		Tempo:      &types.TempoResult{BPM: 120, TimeSignature: 4, OnsetDensity: 2},
		Loudness:   &types.LoudnessResult{IntegratedLUFS: -14},
		Quality:    &types.QualityResult{},
		Perceptual: &types.PerceptualResult{Energy: 0.5, Valence: 0.5, Acousticness: 0.5},
	}
}

func TestTagCardinality(t *testing.T) {
	// Cardinality must hold across the feature extremes.
	grid := []Inputs{
		baseInputs(),
		{
			Spectral:   &types.SpectralResult{},
			Tempo:      &types.TempoResult{BPM: 120, TimeSignature: 4},
			Loudness:   &types.LoudnessResult{IntegratedLUFS: -120},
			Quality:    &types.QualityResult{},
			Perceptual: &types.PerceptualResult{Mode: "Major", Instrumentalness: 1},
		},
		{
			Spectral: &types.SpectralResult{
				Centroid: 5000, Rolloff: 12000, ZeroCrossingRate: 0.12,
				AvgMagnitude: []float64{0.2, 0.8}, BinHz: 8000,
			},
			Tempo:      &types.TempoResult{BPM: 170, TimeSignature: 4, OnsetDensity: 8},
			Loudness:   &types.LoudnessResult{IntegratedLUFS: -6},
			Quality:    &types.QualityResult{Compressed: true},
			Perceptual: &types.PerceptualResult{Energy: 0.95, Valence: 0.9, Danceability: 0.9, Liveness: 0.5},
		},
	}

	for i, in := range grid {
		result := Tag(in)

		if n := len(result.Characteristics); n < 3 || n > 5 {
			t.Errorf("case %d: %d characteristics, want 3-5: %v", i, n, result.Characteristics)
		}

		if n := len(result.Occasions); n < 2 || n > 3 {
			t.Errorf("case %d: %d occasions, want 2-3: %v", i, n, result.Occasions)
		}

		if n := len(result.Subgenres); n < 2 || n > 3 {
			t.Errorf("case %d: %d subgenres, want 2-3: %v", i, n, result.Subgenres)
		}

		if result.Mood == "" || result.Era == "" || result.CulturalContext == "" {
			t.Errorf("case %d: empty scalar tag in %+v", i, result)
		}
	}
}

func TestCharacteristicsTimbre(t *testing.T) {
	in := baseInputs()
	in.Spectral.Centroid = 4500
	in.Spectral.Rolloff = 9000

	tags := characteristics(in)

	if !slices.Contains(tags, "Bright") {
		t.Errorf("want Bright in %v", tags)
	}

	if !slices.Contains(tags, "Full-spectrum") {
		t.Errorf("want Full-spectrum in %v", tags)
	}

	in.Spectral.Centroid = 600
	in.Spectral.Rolloff = 2000

	tags = characteristics(in)

	if !slices.Contains(tags, "Dark") || !slices.Contains(tags, "Muffled") {
		t.Errorf("want Dark and Muffled in %v", tags)
	}
}

func TestMoodMatrix(t *testing.T) {
	cases := []struct {
		energy, valence float64
		want            string
	}{
		{0.9, 0.9, "Energetic, Joyful, Euphoric"},
		{0.9, 0.2, "Aggressive, Intense, Powerful"},
		{0.5, 0.5, "Positive, Moderate"},
		{0.2, 0.7, "Peaceful, Content, Relaxed"},
		{0.2, 0.1, "Sad, Melancholic, Contemplative"},
	}

	for _, c := range cases {
		got := mood(&types.PerceptualResult{Energy: c.energy, Valence: c.valence})
		if got != c.want {
			t.Errorf("mood(%v, %v) = %q, want %q", c.energy, c.valence, got, c.want)
		}
	}
}

func TestOccasionsPartyTrack(t *testing.T) {
	in := baseInputs()
	in.Tempo.BPM = 128
	in.Perceptual.Energy = 0.85

	tags := occasions(in)

	if !slices.Contains(tags, "Party") || !slices.Contains(tags, "Workout") {
		t.Errorf("want Party and Workout in %v", tags)
	}
}

func TestSubgenresHouse(t *testing.T) {
	in := baseInputs()
	in.Tempo.BPM = 126
	in.Perceptual = &types.PerceptualResult{
		Energy:       0.8,
		Acousticness: 0.1,
		Danceability: 0.9,
	}

	tags := subgenres(in)

	if !slices.Contains(tags, "House") {
		t.Errorf("want House in %v", tags)
	}

	if !slices.Contains(tags, "High Energy") {
		t.Errorf("want the High Energy fallback in %v", tags)
	}
}

func TestSubgenresAcoustic(t *testing.T) {
	in := baseInputs()
	in.Perceptual = &types.PerceptualResult{
		Energy:           0.3,
		Valence:          0.7,
		Acousticness:     0.85,
		Instrumentalness: 0.5,
	}

	tags := subgenres(in)

	if !slices.Contains(tags, "Folk") {
		t.Errorf("want Folk in %v", tags)
	}
}

func TestEraRules(t *testing.T) {
	loud := baseInputs()
	loud.Loudness.IntegratedLUFS = -6
	loud.Perceptual.Acousticness = 0.2
	loud.Perceptual.Energy = 0.8

	if got := era(loud); got != "2010s" {
		t.Errorf("loud modern master era = %q, want 2010s", got)
	}

	vintage := baseInputs()
	vintage.Spectral = &types.SpectralResult{Centroid: 1200, Rolloff: 6000, ZeroCrossingRate: 0.02}
	vintage.Loudness.IntegratedLUFS = -24
	vintage.Perceptual.Acousticness = 0.4
	vintage.Perceptual.Energy = 0.3

	if got := era(vintage); got != "1960s" {
		t.Errorf("quiet vintage master era = %q, want 1960s", got)
	}
}

func TestCulturalContextElectronic(t *testing.T) {
	in := baseInputs()
	in.Tempo.BPM = 140
	in.Perceptual = &types.PerceptualResult{Energy: 0.9, Acousticness: 0.1}

	if got := culturalContext(in, []string{"Trance"}); got != "European electronic tradition" {
		t.Errorf("context = %q, want European electronic tradition", got)
	}

	if got := culturalContext(baseInputs(), nil); got != "Western popular music" {
		t.Errorf("default context = %q, want Western popular music", got)
	}
}
