package perceptual

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// deriveInstrumentalness is the inverse of vocal-content probability.
func deriveInstrumentalness(in Inputs) float64 {
	return clamp01(1 - vocalContent(in))
}

// vocalContent accumulates vocal markers: formant pairs in the F1/F2
// ranges, a centroid in the vocal register, and strong sustained pitch.
func vocalContent(in Inputs) float64 {
	score := 0.0

	hasF1, hasF2 := false, false

	for _, formant := range formantFrequencies(in.Spectral) {
		if formant >= 200 && formant <= 1000 {
			hasF1 = true
		}

		if formant >= 800 && formant <= 2500 {
			hasF2 = true
		}
	}

	if hasF1 && hasF2 {
		score += 0.6
	}

	if in.Spectral.Centroid >= 500 && in.Spectral.Centroid <= 2000 {
		score += 0.2
	}

	var maxChroma float64
	for _, c := range in.Chroma.Chroma {
		if c > maxChroma {
			maxChroma = c
		}
	}

	if maxChroma > 0.3 {
		score += 0.2 // strong pitch suggests vocals
	}

	return math.Min(score, 1)
}

// formantFrequencies peak-picks the 100-3000 Hz band of the averaged
// spectrum as formant candidates.
func formantFrequencies(spec *types.SpectralResult) []float64 {
	magnitude := spec.AvgMagnitude

	var formants []float64

	for i := 2; i < len(magnitude)-2; i++ {
		freq := float64(i) * spec.BinHz
		if freq <= 100 || freq >= 3000 {
			continue
		}

		if magnitude[i] > magnitude[i-1] && magnitude[i] > magnitude[i+1] &&
			magnitude[i] > magnitude[i-2] && magnitude[i] > magnitude[i+2] {
			formants = append(formants, freq)
		}
	}

	return formants
}

// deriveSpeechiness blends spectral speech patterns, consonant markers and
// speech-rate amplitude modulation with 0.4/0.3/0.3 weights.
func deriveSpeechiness(in Inputs) float64 {
	return clamp01(speechPatterns(in.Spectral)*0.4 +
		consonants(in.Spectral)*0.3 +
		rhythmicSpeech(in.Buffer)*0.3)
}

func speechPatterns(spec *types.SpectralResult) float64 {
	score := 0.0

	if spec.ZeroCrossingRate > 0.1 {
		score += 0.4
	}

	if spec.Centroid > 1000 && spec.Centroid < 3000 {
		score += 0.3
	}

	if spec.Rolloff > 3000 && spec.Rolloff < 8000 {
		score += 0.3
	}

	return math.Min(score, 1)
}

func consonants(spec *types.SpectralResult) float64 {
	score := 0.0

	if spec.ZeroCrossingRate > 0.15 {
		score += 0.5
	}

	if spec.Centroid > 2000 {
		score += 0.3
	}

	// Fricatives show up as high-frequency energy share.
	nyquist := spec.BinHz * float64(len(spec.AvgMagnitude)-1)
	if spec.BandRatio(4000, nyquist) > 0.2 {
		score += 0.2
	}

	return math.Min(score, 1)
}

// rhythmicSpeech measures amplitude-modulation rate over 20 ms windows;
// speech syllables modulate in the 3-8 Hz range.
func rhythmicSpeech(buf *types.AudioBuffer) float64 {
	windowSize := int(0.02 * float64(buf.SampleRate))
	if windowSize <= 0 {
		return 0
	}

	var amplitudes []float64

	for pos := 0; pos+windowSize <= len(buf.Samples); pos += windowSize / 2 {
		var sum float64
		for _, s := range buf.Samples[pos : pos+windowSize] {
			sum += s * s
		}

		amplitudes = append(amplitudes, math.Sqrt(sum/float64(windowSize)))
	}

	if len(amplitudes) < 3 {
		return 0
	}

	modulationCount := 0

	for i := 2; i < len(amplitudes); i++ {
		if (amplitudes[i] > amplitudes[i-1]) != (amplitudes[i-1] > amplitudes[i-2]) {
			modulationCount++
		}
	}

	modulationRate := float64(modulationCount) / float64(len(amplitudes))

	if modulationRate > 0.1 && modulationRate < 0.5 {
		return modulationRate * 2
	}

	return 0
}
