package perceptual

import (
	"math"
	"sort"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// deriveLiveness blends room-acoustic cues: reverberation and spatial
// character at 0.4, background noise at 0.4, crowd noise at 0.2.
func deriveLiveness(in Inputs, rt60 float64) float64 {
	reverbScore := reverbScoreFromRT60(rt60)
	spatialScore := spatialCharacteristics(in)
	noiseScore := backgroundNoise(in.Buffer)
	crowdScore := crowdNoise(in.Spectral)

	return clamp01((reverbScore+spatialScore)*0.4 + noiseScore*0.4 + crowdScore*0.2)
}

// reverbScoreFromRT60 maps reverberation time onto venue tiers.
func reverbScoreFromRT60(rt60 float64) float64 {
	switch {
	case rt60 > 0.5:
		return 0.8 // concert hall
	case rt60 > 0.2:
		return 0.6 // club
	case rt60 > 0.1:
		return 0.3 // room
	default:
		return 0.1 // studio, dry
	}
}

// reverbTime estimates RT60 via Schroeder backward integration of decay
// segments after detected impulses, falling back to overall energy decay
// when the material has no clear transients.
func reverbTime(buf *types.AudioBuffer) float64 {
	impulses := detectImpulses(buf)
	if len(impulses) == 0 {
		return rt60FromDecay(buf)
	}

	windowSize := int(0.005 * float64(buf.SampleRate))
	if windowSize < 2 {
		return rt60FromDecay(buf)
	}

	hop := windowSize / 2
	timeStep := float64(hop) / float64(buf.SampleRate)

	var estimates []float64

	for _, impulseIdx := range impulses {
		endIdx := impulseIdx + buf.SampleRate*2
		if endIdx > len(buf.Samples) {
			continue
		}

		energy := energyCurve(buf.Samples[impulseIdx:endIdx], windowSize, hop)
		schroeder := schroederIntegration(energy)

		rt60 := fitRT60(schroeder, timeStep)
		if rt60 > 0.05 && rt60 < 10 {
			estimates = append(estimates, rt60)
		}
	}

	if len(estimates) == 0 {
		return rt60FromDecay(buf)
	}

	sort.Float64s(estimates)

	return estimates[len(estimates)/2]
}

// detectImpulses finds energy peaks at least 4x the mean, spaced 500 ms.
func detectImpulses(buf *types.AudioBuffer) []int {
	windowSize := int(0.01 * float64(buf.SampleRate))
	if windowSize < 2 {
		return nil
	}

	var energy []float64

	for pos := 0; pos+windowSize <= len(buf.Samples); pos += windowSize / 2 {
		var e float64
		for _, s := range buf.Samples[pos : pos+windowSize] {
			e += s * s
		}

		energy = append(energy, e/float64(windowSize))
	}

	if len(energy) < 3 {
		return nil
	}

	var mean float64
	for _, e := range energy {
		mean += e
	}

	mean /= float64(len(energy))
	threshold := mean * 4

	minSpacing := buf.SampleRate / 2

	var impulses []int

	for i := 1; i < len(energy)-1; i++ {
		if energy[i] > threshold && energy[i] > energy[i-1] && energy[i] > energy[i+1] {
			sampleIdx := i * windowSize / 2

			if len(impulses) == 0 || sampleIdx-impulses[len(impulses)-1] > minSpacing {
				impulses = append(impulses, sampleIdx)
			}
		}
	}

	return impulses
}

func energyCurve(signal []float64, windowSize, hop int) []float64 {
	var energy []float64

	for pos := 0; pos+windowSize <= len(signal); pos += hop {
		var e float64
		for _, s := range signal[pos : pos+windowSize] {
			e += s * s
		}

		energy = append(energy, e)
	}

	return energy
}

// schroederIntegration computes the backward-integrated decay curve in dB
// relative to total energy.
func schroederIntegration(energy []float64) []float64 {
	schroeder := make([]float64, len(energy))

	var total float64
	for _, e := range energy {
		total += e
	}

	if total <= 0 {
		return schroeder
	}

	var cumulative float64

	for i := len(energy) - 1; i >= 0; i-- {
		cumulative += energy[i]
		schroeder[i] = 10 * math.Log10(cumulative/total+1e-10)
	}

	return schroeder
}

// fitRT60 fits a line between the -5 dB and -35 dB points of the Schroeder
// curve and extrapolates the 60 dB decay time.
func fitRT60(schroeder []float64, timeStep float64) float64 {
	if len(schroeder) < 10 {
		return 0.1
	}

	idx5, idx35 := -1, -1

	for i, v := range schroeder {
		if idx5 < 0 && v <= -5 {
			idx5 = i
		}

		if idx35 < 0 && v <= -35 {
			idx35 = i

			break
		}
	}

	if idx5 < 0 || idx35 < 0 || idx35 <= idx5 {
		// Fallback: use the available range.
		idx5 = len(schroeder) / 10
		idx35 = len(schroeder) / 2
	}

	var sumX, sumY, sumXY, sumX2 float64
	count := 0

	for i := idx5; i <= idx35; i++ {
		x := float64(i) * timeStep
		y := schroeder[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
		count++
	}

	n := float64(count)
	if count < 2 || sumX2*n-sumX*sumX == 0 {
		return 0.1
	}

	slope := (sumXY*n - sumX*sumY) / (sumX2*n - sumX*sumX)
	if slope >= 0 {
		return 0.1 // no decay
	}

	rt60 := -60 / slope

	return math.Max(0.05, math.Min(10, rt60))
}

// rt60FromDecay is the fallback: find the energy peak among 100 ms blocks,
// time the 20 dB drop and extrapolate by three.
func rt60FromDecay(buf *types.AudioBuffer) float64 {
	blockSize := int(0.1 * float64(buf.SampleRate))
	if blockSize <= 0 {
		return 0.1
	}

	var blockEnergy []float64

	for pos := 0; pos+blockSize <= len(buf.Samples); pos += blockSize {
		var e float64
		for _, s := range buf.Samples[pos : pos+blockSize] {
			e += s * s
		}

		blockEnergy = append(blockEnergy, 10*math.Log10(e/float64(blockSize)+1e-10))
	}

	if len(blockEnergy) < 5 {
		return 0.1
	}

	peakIdx := 0
	for i, e := range blockEnergy {
		if e > blockEnergy[peakIdx] {
			peakIdx = i
		}
	}

	if peakIdx >= len(blockEnergy)-2 {
		return 0.1
	}

	threshold := blockEnergy[peakIdx] - 20

	decayIdx := -1

	for i := peakIdx + 1; i < len(blockEnergy); i++ {
		if blockEnergy[i] <= threshold {
			decayIdx = i

			break
		}
	}

	if decayIdx < 0 {
		return 0.1
	}

	time20dB := float64(decayIdx-peakIdx) * 0.1
	rt60 := time20dB * 3

	return math.Max(0.05, math.Min(2, rt60))
}

// backgroundNoise averages RMS over quiet 100 ms windows; a raised floor
// points at a live room.
func backgroundNoise(buf *types.AudioBuffer) float64 {
	windowSize := int(0.1 * float64(buf.SampleRate))
	if windowSize <= 0 {
		return 0
	}

	var noiseEstimates []float64

	for pos := 0; pos+windowSize <= len(buf.Samples); pos += windowSize {
		var sum float64
		for _, s := range buf.Samples[pos : pos+windowSize] {
			sum += s * s
		}

		rms := math.Sqrt(sum / float64(windowSize))
		if rms < 0.1 {
			noiseEstimates = append(noiseEstimates, rms)
		}
	}

	if len(noiseEstimates) == 0 {
		return 0
	}

	var avg float64
	for _, n := range noiseEstimates {
		avg += n
	}

	avg /= float64(len(noiseEstimates))

	switch {
	case avg > 0.05:
		return 0.8
	case avg > 0.02:
		return 0.5
	case avg > 0.01:
		return 0.2
	default:
		return 0.1
	}
}

// spatialCharacteristics checks for broad frequency response, room
// reflection register and wide peak-to-peak swing.
func spatialCharacteristics(in Inputs) float64 {
	score := 0.0

	if in.Spectral.Rolloff > 8000 {
		score += 0.3
	}

	if in.Spectral.Centroid > 2000 && in.Spectral.Centroid < 5000 {
		score += 0.4
	}

	var maxSample, minSample float64

	for _, s := range in.Buffer.Samples {
		if s > maxSample {
			maxSample = s
		}

		if s < minSample {
			minSample = s
		}
	}

	if maxSample-minSample > 1.5 {
		score += 0.3
	}

	return math.Min(score, 1)
}

// crowdNoise looks for the spectral footprint of many voices.
func crowdNoise(spec *types.SpectralResult) float64 {
	score := 0.0

	if spec.Centroid > 500 && spec.Centroid < 2000 {
		score += 0.3
	}

	if spec.ZeroCrossingRate > 0.05 {
		score += 0.4
	}

	if spec.Centroid > 0 && spec.Rolloff/spec.Centroid > 3 {
		score += 0.3
	}

	return math.Min(score, 1)
}
