// Package key implements Krumhansl-Schmuckler key finding over an aggregated
// pitch-class profile.
package key

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// Krumhansl-Schmuckler probe-tone profiles.
//
//nolint:gochecknoglobals // reference data, effectively const
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}

	pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
)

// Detect correlates the chroma vector against 24 templates (12 roots x
// major/minor) and picks the best-scoring pair. Confidence is the gap
// between the best and second-best score, normalized by the best score.
// Silent chroma returns C Major with confidence 0 instead of a guess.
func Detect(chromaResult *types.ChromaResult) *types.KeyResult {
	if chromaResult.Silent() {
		return &types.KeyResult{
			Root:       0,
			Key:        pitchNames[0],
			Mode:       "Major",
			Margin:     0,
			Confidence: 0,
		}
	}

	var best, second float64
	bestRoot := 0
	bestMode := "Major"

	for root := range 12 {
		majorScore := correlate(chromaResult.Chroma, majorProfile, root)
		minorScore := correlate(chromaResult.Chroma, minorProfile, root)

		for _, cand := range []struct {
			score float64
			mode  string
		}{
			{majorScore, "Major"},
			{minorScore, "Minor"},
		} {
			switch {
			case cand.score > best:
				second = best
				best = cand.score
				bestRoot = root
				bestMode = cand.mode
			case cand.score > second:
				second = cand.score
			}
		}
	}

	margin := best - second

	confidence := 0.0
	if best > 0 {
		confidence = margin / best
		if confidence > 1 {
			confidence = 1
		}
	}

	return &types.KeyResult{
		Root:       bestRoot,
		Key:        pitchNames[bestRoot],
		Mode:       bestMode,
		Margin:     margin,
		Confidence: confidence,
	}
}

// correlate computes the Pearson correlation between the chroma vector and
// the profile rotated so that the profile's tonic lands on root. Means are
// subtracted and both vectors are norm-divided, so templates with different
// total mass compete on shape alone.
func correlate(chroma [12]float64, profile [12]float64, root int) float64 {
	var chromaMean, profileMean float64

	for i := range 12 {
		chromaMean += chroma[i]
		profileMean += profile[i]
	}

	chromaMean /= 12
	profileMean /= 12

	var cross, chromaVar, profileVar float64

	for i := range 12 {
		cd := chroma[(i+root)%12] - chromaMean
		pd := profile[i] - profileMean

		cross += cd * pd
		chromaVar += cd * cd
		profileVar += pd * pd
	}

	if chromaVar == 0 || profileVar == 0 {
		return 0
	}

	return cross / math.Sqrt(chromaVar*profileVar)
}
