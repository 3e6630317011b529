// Package chroma folds spectral energy into a 12-bin pitch-class profile.
package chroma

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// minFrequency excludes bins below the musical bass range, where bin
// resolution is too coarse to assign a pitch class reliably.
const minFrequency = 80.0

// Extract maps each FFT bin of the aggregated magnitude spectrum to a pitch
// class using the equal-temperament relation f = 440*2^((n-69)/12), and
// accumulates magnitude-weighted energy per class. The final vector is
// normalized to sum to 1; an all-zero signal yields an all-zero vector.
func Extract(spec *types.SpectralResult) *types.ChromaResult {
	result := &types.ChromaResult{}

	for i, mag := range spec.AvgMagnitude {
		if mag <= 0 {
			continue
		}

		freq := float64(i) * spec.BinHz
		if freq < minFrequency {
			continue
		}

		midiNote := 12*math.Log2(freq/440.0) + 69
		pitchClass := int(math.Round(midiNote)) % 12

		if pitchClass < 0 {
			pitchClass += 12
		}

		result.Chroma[pitchClass] += mag
		result.Energy += mag
	}

	if result.Energy > 0 {
		for i := range result.Chroma {
			result.Chroma[i] /= result.Energy
		}
	}

	return result
}
