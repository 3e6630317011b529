package perceptual

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// deriveAcousticness scores how acoustic (vs. synthetic) the material is.
// Strong harmonic content with no synthetic markers wins outright; heavy
// synthetic markers lose outright; everything else blends harmonic content,
// instrument envelope cues and the inverse synthetic score.
func deriveAcousticness(in Inputs) float64 {
	harmonic := harmonicContent(in.Spectral)
	synthetic := syntheticElements(in.Spectral)
	instrument := instrumentScore(in)

	if harmonic > 0.7 && synthetic < 0.3 {
		return math.Max(0.7, harmonic)
	}

	if synthetic > 0.8 {
		return math.Min(0.2, 1-synthetic)
	}

	return clamp01(harmonic*0.5 + instrument*0.3 + (1-synthetic)*0.2)
}

// harmonicContent computes a harmonic-to-noise ratio: find the fundamental,
// mark bins around its first ten harmonics as harmonic energy, everything
// else as noise, then squash the ratio through tanh.
func harmonicContent(spec *types.SpectralResult) float64 {
	fundamental := findFundamental(spec)
	if fundamental <= 0 {
		return 0
	}

	magnitude := spec.AvgMagnitude
	fundamentalBin := int(fundamental / spec.BinHz)

	harmonicBins := make([]bool, len(magnitude))

	for harmonic := 1; harmonic <= 10; harmonic++ {
		targetBin := fundamentalBin * harmonic
		if targetBin >= len(magnitude) {
			break
		}

		// Search for a peak near the expected position (+/- 3 bins).
		peakBin := -1
		maxMag := 0.0

		for offset := -3; offset <= 3; offset++ {
			bin := targetBin + offset
			if bin >= 0 && bin < len(magnitude) && magnitude[bin] > maxMag && isSpectralPeak(magnitude, bin) {
				maxMag = magnitude[bin]
				peakBin = bin
			}
		}

		if peakBin >= 0 {
			for offset := -2; offset <= 2; offset++ {
				if bin := peakBin + offset; bin >= 0 && bin < len(magnitude) {
					harmonicBins[bin] = true
				}
			}
		}
	}

	var harmonicEnergy, noiseEnergy float64

	for i, m := range magnitude {
		energy := m * m
		if harmonicBins[i] {
			harmonicEnergy += energy
		} else {
			noiseEnergy += energy
		}
	}

	if harmonicEnergy+noiseEnergy <= 0 {
		return 0
	}

	hnr := harmonicEnergy / (noiseEnergy + 1e-10)

	return math.Tanh(hnr * 0.5)
}

// findFundamental picks the peak whose harmonic series aligns best with the
// other spectral peaks, within the 80-2000 Hz melodic range.
func findFundamental(spec *types.SpectralResult) float64 {
	magnitude := spec.AvgMagnitude
	if len(magnitude) < 100 {
		return 0
	}

	type peak struct {
		bin int
		mag float64
	}

	var peaks []peak

	var magMax float64
	for _, m := range magnitude {
		if m > magMax {
			magMax = m
		}
	}

	if magMax == 0 {
		return 0
	}

	for i := 1; i < len(magnitude)-1; i++ {
		// Relative floor keeps noise bins out regardless of input scale.
		if isSpectralPeak(magnitude, i) && magnitude[i] > magMax*0.01 {
			peaks = append(peaks, peak{i, magnitude[i]})
		}
	}

	if len(peaks) == 0 {
		return 0
	}

	// Strongest peaks first.
	for i := range peaks {
		for j := i + 1; j < len(peaks); j++ {
			if peaks[j].mag > peaks[i].mag {
				peaks[i], peaks[j] = peaks[j], peaks[i]
			}
		}
	}

	var bestFundamental, bestScore float64

	for i := 0; i < len(peaks) && i < 5; i++ {
		candidateFreq := float64(peaks[i].bin) * spec.BinHz
		if candidateFreq < 80 || candidateFreq > 2000 {
			continue
		}

		score := 0.0
		harmonicsFound := 0

		for h := 2; h <= 8; h++ {
			harmonicBin := int(candidateFreq * float64(h) / spec.BinHz)

			for _, p := range peaks {
				if abs(p.bin-harmonicBin) <= 3 {
					score += p.mag / float64(h*h)
					harmonicsFound++

					break
				}
			}
		}

		if harmonicsFound >= 2 && score > bestScore {
			bestScore = score
			bestFundamental = candidateFreq
		}
	}

	return bestFundamental
}

// isSpectralPeak requires a local maximum against two neighbors either side.
func isSpectralPeak(magnitude []float64, index int) bool {
	if index <= 0 || index >= len(magnitude)-1 {
		return false
	}

	for offset := 1; offset <= 2; offset++ {
		if index-offset >= 0 && magnitude[index] <= magnitude[index-offset] {
			return false
		}

		if index+offset < len(magnitude) && magnitude[index] <= magnitude[index+offset] {
			return false
		}
	}

	return true
}

// syntheticElements accumulates synthesis markers: extreme brightness,
// razor-sharp digital rolloff, and quantized stillness.
func syntheticElements(spec *types.SpectralResult) float64 {
	score := 0.0

	if spec.Centroid > 8000 {
		score += 0.3
	}

	if spec.Rolloff > 12000 {
		score += 0.4
	}

	if spec.ZeroCrossingRate < 0.01 && spec.Centroid > 2000 {
		score += 0.3
	}

	return math.Min(score, 1)
}

// instrumentScore checks for acoustic-instrument character: a centroid in
// the acoustic range, natural attack/decay envelopes, and a natural rolloff.
func instrumentScore(in Inputs) float64 {
	score := 0.0

	if in.Spectral.Centroid > 1000 && in.Spectral.Centroid < 4000 {
		score += 0.3
	}

	score += attackDecayScore(in.Buffer) * 0.4

	if in.Spectral.Rolloff < 8000 {
		score += 0.3
	}

	return math.Min(score, 1)
}

// attackDecayScore models the amplitude envelope at 2 ms resolution and
// scores each transient for acoustic attack and decay character.
func attackDecayScore(buf *types.AudioBuffer) float64 {
	envelope := amplitudeEnvelope(buf)
	if len(envelope) < 10 {
		return 0.5
	}

	smoothed := smoothEnvelope(envelope, 3)
	onsets := envelopeOnsets(smoothed)

	if len(onsets) == 0 {
		return 0.5
	}

	var total float64

	for _, onsetIdx := range onsets {
		attackDur, attackSharpness, peakIdx := analyzeAttack(smoothed, onsetIdx)
		decayRate := analyzeDecay(smoothed, peakIdx)

		total += scoreEnvelope(attackDur, attackSharpness, decayRate)
	}

	return total / float64(len(onsets))
}

// envelopeHop is the envelope sample spacing in seconds (2 ms windows at
// 75% overlap).
const envelopeHop = 0.0005

func amplitudeEnvelope(buf *types.AudioBuffer) []float64 {
	windowSize := int(0.002 * float64(buf.SampleRate))
	if windowSize < 4 {
		return nil
	}

	hop := windowSize / 4

	var envelope []float64

	for pos := 0; pos+windowSize <= len(buf.Samples); pos += hop {
		var sum float64
		for _, s := range buf.Samples[pos : pos+windowSize] {
			sum += s * s
		}

		envelope = append(envelope, math.Sqrt(sum/float64(windowSize)))
	}

	return envelope
}

func smoothEnvelope(envelope []float64, radius int) []float64 {
	smoothed := make([]float64, len(envelope))

	for i := range envelope {
		var sum float64
		count := 0

		for j := -radius; j <= radius; j++ {
			if idx := i + j; idx >= 0 && idx < len(envelope) {
				sum += envelope[idx]
				count++
			}
		}

		smoothed[i] = sum / float64(count)
	}

	return smoothed
}

// envelopeOnsets finds velocity peaks with a 100 ms refractory spacing.
func envelopeOnsets(envelope []float64) []int {
	if len(envelope) < 3 {
		return nil
	}

	velocity := make([]float64, len(envelope)-1)
	for i := range velocity {
		velocity[i] = envelope[i+1] - envelope[i]
	}

	var onsets []int

	for i := 1; i < len(velocity)-1; i++ {
		if velocity[i] > 0.001 && velocity[i] > velocity[i-1] && velocity[i] > velocity[i+1] {
			if len(onsets) == 0 || i-onsets[len(onsets)-1] > 20 {
				onsets = append(onsets, i)
			}
		}
	}

	return onsets
}

// analyzeAttack measures the 10%-to-90% rise of the envelope after an onset.
func analyzeAttack(envelope []float64, onsetIdx int) (duration, sharpness float64, peakIdx int) {
	peakIdx = onsetIdx
	peakValue := envelope[onsetIdx]

	for i := onsetIdx; i < min(onsetIdx+50, len(envelope)); i++ {
		if envelope[i] > peakValue {
			peakValue = envelope[i]
			peakIdx = i
		}
	}

	threshold10 := peakValue * 0.1
	threshold90 := peakValue * 0.9

	idx10 := onsetIdx
	idx90 := peakIdx

	for i := onsetIdx; i <= peakIdx; i++ {
		if envelope[i] >= threshold10 && idx10 == onsetIdx {
			idx10 = i
		}

		if envelope[i] >= threshold90 {
			idx90 = i

			break
		}
	}

	duration = float64(idx90-idx10) * envelopeHop
	sharpness = 1.0 / (duration + 0.001)

	return duration, sharpness, peakIdx
}

// analyzeDecay fits an exponential decay rate to the envelope after a peak.
func analyzeDecay(envelope []float64, peakIdx int) float64 {
	if peakIdx >= len(envelope)-10 {
		return 10.0
	}

	peakValue := envelope[peakIdx]
	threshold := peakValue * 0.4

	decayIdx := peakIdx

	for i := peakIdx + 1; i < len(envelope); i++ {
		if envelope[i] <= threshold {
			decayIdx = i

			break
		}
	}

	// Exponential fit in log space.
	var sumX, sumY, sumXY, sumX2 float64
	points := 0

	for i := peakIdx; i <= decayIdx && i < len(envelope); i++ {
		if envelope[i] > 0 && peakValue > 0 {
			x := float64(i-peakIdx) * envelopeHop
			y := math.Log(envelope[i] / peakValue)
			sumX += x
			sumY += y
			sumXY += x * y
			sumX2 += x * x
			points++
		}
	}

	n := float64(points)
	if points > 2 && sumX2*n-sumX*sumX != 0 {
		return math.Abs((sumXY*n - sumX*sumY) / (sumX2*n - sumX*sumX))
	}

	return 10.0
}

// scoreEnvelope rewards moderate attacks with natural decay rates.
func scoreEnvelope(attackDur, attackSharpness, decayRate float64) float64 {
	score := 0.0

	switch {
	case attackDur >= 0.005 && attackDur <= 0.05:
		score += 0.3
	case attackDur < 0.005:
		score += 0.2 // very fast, percussive
	}

	switch {
	case decayRate >= 5 && decayRate < 20: // natural
		score += 0.4
	case decayRate < 5: // sustained, could be bowed strings
		score += 0.2
	}

	if attackSharpness > 20 && attackSharpness < 200 {
		score += 0.3
	}

	return math.Min(score, 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
