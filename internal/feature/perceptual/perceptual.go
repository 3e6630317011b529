// Package perceptual derives the higher-level descriptors (energy,
// danceability, valence, mode, acousticness, instrumentalness, speechiness,
// liveness) from the low-level analysis results using fixed, documented
// weighted formulas.
package perceptual

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// Inputs collects the upstream analysis artifacts. All fields are treated
// as read-only.
type Inputs struct {
	Buffer   *types.AudioBuffer
	Spectral *types.SpectralResult
	Chroma   *types.ChromaResult
	Tempo    *types.TempoResult
	Loudness *types.LoudnessResult
	Quality  *types.QualityResult
}

// Derive computes all perceptual descriptors. A silent buffer yields zero
// energy and neutral defaults instead of failing.
func Derive(in Inputs) *types.PerceptualResult {
	result := &types.PerceptualResult{Mode: "Major"}

	if in.Spectral.TotalEnergy == 0 {
		// No signal. Everything stays at its floor.
		result.Instrumentalness = 1
		return result
	}

	result.Energy = deriveEnergy(in)
	result.Danceability = deriveDanceability(in.Tempo)
	result.Mode = deriveMode(in.Chroma)
	result.Valence = deriveValence(in, result.Mode)
	result.Acousticness = deriveAcousticness(in)
	result.Instrumentalness = deriveInstrumentalness(in)
	result.Speechiness = deriveSpeechiness(in)
	result.RT60 = reverbTime(in.Buffer)
	result.Liveness = deriveLiveness(in, result.RT60)

	return result
}

// deriveEnergy blends loudness, spectral brightness and rhythmic density
// with 0.3/0.3/0.4 weights.
func deriveEnergy(in Inputs) float64 {
	return clamp01(loudnessEnergy(in.Buffer)*0.3 +
		spectralEnergy(in.Spectral)*0.3 +
		rhythmicEnergy(in.Tempo, in.Quality)*0.4)
}

// loudnessEnergy maps overall RMS level onto a stepped energy scale.
func loudnessEnergy(buf *types.AudioBuffer) float64 {
	rms := bufferRMS(buf.Samples)

	switch {
	case rms > 0.5:
		return 1.0
	case rms > 0.3:
		return 0.8
	case rms > 0.1:
		return 0.6
	case rms > 0.05:
		return 0.4
	case rms > 0.01:
		return 0.2
	default:
		return 0.1
	}
}

func spectralEnergy(spec *types.SpectralResult) float64 {
	nyquist := spec.BinHz * float64(len(spec.AvgMagnitude)-1)

	energy := spec.BandRatio(2000, nyquist) * 0.5
	energy += math.Min(spec.Centroid/4000.0, 1) * 0.3
	energy += math.Min(spec.Rolloff/10000.0, 1) * 0.2

	return clamp01(energy)
}

func rhythmicEnergy(tempoRes *types.TempoResult, qual *types.QualityResult) float64 {
	return clamp01(onsetDensityScore(tempoRes.OnsetDensity)*0.6 + qual.DynamicRange*0.4)
}

// onsetDensityScore maps onsets-per-second to a stepped 0-1 scale.
func onsetDensityScore(density float64) float64 {
	switch {
	case density > 10:
		return 1.0
	case density > 5:
		return 0.8
	case density > 2:
		return 0.6
	case density > 1:
		return 0.4
	case density > 0.5:
		return 0.2
	default:
		return 0.1
	}
}

// deriveDanceability blends beat strength, tempo suitability and rhythm
// regularity with 0.4/0.3/0.3 weights.
func deriveDanceability(tempoRes *types.TempoResult) float64 {
	return clamp01(beatStrength(tempoRes)*0.4 +
		tempoSuitability(tempoRes.BPM)*0.3 +
		rhythmRegularity(tempoRes.BeatTimes)*0.3)
}

// beatStrength rewards strong, consistent beats.
func beatStrength(tempoRes *types.TempoResult) float64 {
	if len(tempoRes.BeatStrengths) == 0 {
		return 0
	}

	var sum, maxStrength float64

	for _, s := range tempoRes.BeatStrengths {
		sum += s
		if s > maxStrength {
			maxStrength = s
		}
	}

	avg := sum / float64(len(tempoRes.BeatStrengths))

	consistency := 0.0
	if maxStrength > 0 {
		consistency = avg / maxStrength
	}

	strength := math.Min(avg*10, 1)

	return consistency*0.6 + strength*0.4
}

// tempoSuitability peaks over the dance-floor tempo bands.
func tempoSuitability(bpm float64) float64 {
	switch {
	case bpm >= 90 && bpm <= 130:
		return 1.0 // optimal for most dancing
	case bpm > 130 && bpm <= 160:
		return 0.9
	case bpm >= 70 && bpm < 90:
		return 0.6
	case bpm > 160 && bpm <= 180:
		return 0.7
	case bpm >= 60 && bpm < 70:
		return 0.3
	case bpm > 180 && bpm <= 200:
		return 0.4
	default:
		return 0.1
	}
}

// rhythmRegularity maps the coefficient of variation of inter-beat
// intervals onto [0, 1]; a steady grid scores high.
func rhythmRegularity(beatTimes []float64) float64 {
	if len(beatTimes) < 3 {
		return 0
	}

	intervals := make([]float64, 0, len(beatTimes)-1)
	for i := 1; i < len(beatTimes); i++ {
		intervals = append(intervals, beatTimes[i]-beatTimes[i-1])
	}

	var sum float64
	for _, iv := range intervals {
		sum += iv
	}

	mean := sum / float64(len(intervals))

	var varianceSum float64

	for _, iv := range intervals {
		d := iv - mean
		varianceSum += d * d
	}

	cv := 1.0
	if mean > 0 {
		cv = math.Sqrt(varianceSum/float64(len(intervals))) / mean
	}

	return math.Max(0, 1-cv*2)
}

// deriveMode compares total major-third against minor-third interval mass
// in the chroma vector.
func deriveMode(chromaRes *types.ChromaResult) string {
	var majorStrength, minorStrength float64

	for root := range 12 {
		majorStrength += chromaRes.Chroma[root] * chromaRes.Chroma[(root+4)%12]
		minorStrength += chromaRes.Chroma[root] * chromaRes.Chroma[(root+3)%12]
	}

	if majorStrength > minorStrength*1.2 {
		return "Major"
	}

	return "Minor"
}

// deriveValence blends harmonic majorness, melodic positivity, tempo and
// timbral brightness with 0.3/0.2/0.2/0.3 weights.
func deriveValence(in Inputs, _ string) float64 {
	return clamp01(majorHarmony(in.Chroma)*0.3 +
		melodicPositivity(in.Spectral, in.Chroma)*0.2 +
		valenceTempoFactor(in.Tempo.BPM)*0.2 +
		timbralBrightness(in.Spectral)*0.3)
}

// majorHarmony matches major and minor triad templates over all 12
// transpositions and reports the major share.
func majorHarmony(chromaRes *types.ChromaResult) float64 {
	majorTriad := [12]float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0}
	minorTriad := [12]float64{1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0}

	var majorScore, minorScore float64

	for root := range 12 {
		var majorCorr, minorCorr float64

		for i := range 12 {
			c := chromaRes.Chroma[(i+root)%12]
			majorCorr += c * majorTriad[i]
			minorCorr += c * minorTriad[i]
		}

		majorScore = math.Max(majorScore, majorCorr)
		minorScore = math.Max(minorScore, minorCorr)
	}

	total := majorScore + minorScore
	if total == 0 {
		return 0.5
	}

	return majorScore / total
}

func melodicPositivity(spec *types.SpectralResult, chromaRes *types.ChromaResult) float64 {
	normalizedCentroid := math.Min(spec.Centroid/3000.0, 1)

	return normalizedCentroid*0.4 + consonance(chromaRes)*0.6
}

// consonance accumulates perfect-fifth and third co-occurrence in the
// chroma vector, weighted by interval pleasantness.
func consonance(chromaRes *types.ChromaResult) float64 {
	var score float64

	for root := range 12 {
		score += chromaRes.Chroma[root] * chromaRes.Chroma[(root+7)%12] * 0.8
		score += chromaRes.Chroma[root] * chromaRes.Chroma[(root+4)%12] * 0.6
		score += chromaRes.Chroma[root] * chromaRes.Chroma[(root+3)%12] * 0.3
	}

	return math.Min(score*5, 1)
}

func valenceTempoFactor(bpm float64) float64 {
	switch {
	case bpm >= 120 && bpm <= 140:
		return 0.9
	case bpm >= 100 && bpm <= 160:
		return 0.8
	case bpm >= 80 && bpm < 100:
		return 0.6
	case bpm >= 60 && bpm < 80:
		return 0.3
	case bpm < 60:
		return 0.1
	case bpm > 160:
		return 0.7
	default:
		return 0.5
	}
}

func timbralBrightness(spec *types.SpectralResult) float64 {
	brightness := math.Min(spec.Centroid/4000.0, 1)

	nyquist := spec.BinHz * float64(len(spec.AvgMagnitude)-1)
	highFreqRatio := spec.BandRatio(2000, nyquist)

	return brightness*0.7 + highFreqRatio*0.3
}

func bufferRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s * s
	}

	return math.Sqrt(sum / float64(len(samples)))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
