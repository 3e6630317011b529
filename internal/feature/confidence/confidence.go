// Package confidence scores how much to trust a finished analysis. The
// score blends measured audio quality, cross-feature consistency and
// per-feature certainty with 0.3/0.4/0.3 weights.
package confidence

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// Inputs collects the finished analysis artifacts the score reads from.
type Inputs struct {
	Tempo          *types.TempoResult
	Key            *types.KeyResult
	Loudness       *types.LoudnessResult
	Quality        *types.QualityResult
	Perceptual     *types.PerceptualResult
	Classification *types.ClassificationResult
}

// Score returns the overall analysis confidence in [0, 1].
func Score(in Inputs) float64 {
	overall := audioQuality(in.Quality)*0.3 +
		consistency(in)*0.4 +
		certainty(in)*0.3

	return math.Min(overall, 1)
}

// audioQuality rewards clean, full-range, dynamic source material.
func audioQuality(q *types.QualityResult) float64 {
	score := 0.0

	switch {
	case q.SNRDb > 40:
		score += 0.3
	case q.SNRDb > 20:
		score += 0.2
	case q.SNRDb > 10:
		score += 0.1
	}

	score += q.DynamicRange * 0.3

	if q.CompleteSpectrum {
		score += 0.2
	}

	score += (1 - q.ArtifactScore) * 0.2

	return math.Min(score, 1)
}

// consistency runs four cross-feature sanity checks, each worth 0.25:
// tempo vs danceability, energy vs valence, speechiness vs
// instrumentalness, and detected key mode vs perceived mode.
func consistency(in Inputs) float64 {
	score := 0.0

	bpm := in.Tempo.BPM
	p := in.Perceptual

	if (bpm >= 90 && bpm <= 160 && p.Danceability > 0.5) ||
		(bpm < 80 && p.Danceability < 0.5) {
		score += 0.25
	}

	if (p.Energy > 0.7 && p.Valence > 0.6) ||
		(p.Energy < 0.3 && p.Valence < 0.4) ||
		(p.Energy >= 0.3 && p.Energy <= 0.7) {
		score += 0.25
	}

	// Vocal presence should show up in both measures.
	vocalSum := p.Speechiness + (1 - p.Instrumentalness)
	if vocalSum >= 0.8 && vocalSum <= 1.2 {
		score += 0.25
	}

	if in.Key.Mode == p.Mode {
		score += 0.25
	}

	return score
}

// certainty accumulates small bonuses for every feature that landed inside
// its plausible range, with extremes counting as more decisive reads.
func certainty(in Inputs) float64 {
	score := 0.0
	p := in.Perceptual

	if in.Tempo.BPM >= 60 && in.Tempo.BPM <= 200 {
		score += 0.1
	}

	if p.Energy < 0.2 || p.Energy > 0.8 {
		score += 0.1
	} else {
		score += 0.05
	}

	if p.Valence < 0.2 || p.Valence > 0.8 {
		score += 0.1
	} else {
		score += 0.05
	}

	score += 0.08 // danceability always resolves

	if p.Acousticness < 0.2 || p.Acousticness > 0.8 {
		score += 0.08
	} else {
		score += 0.04
	}

	if in.Key.Key != "" && in.Key.Mode != "" {
		score += 0.1
	}

	if in.Tempo.TimeSignature >= 3 && in.Tempo.TimeSignature <= 7 {
		score += 0.05
	}

	if len(in.Classification.Characteristics) > 0 {
		score += 0.05
	}

	if in.Loudness.IntegratedLUFS >= -60 && in.Loudness.IntegratedLUFS <= 0 {
		score += 0.05
	}

	if p.Liveness >= 0 && p.Liveness <= 1 {
		score += 0.05
	}

	return math.Min(score, 1)
}
