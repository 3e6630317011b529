// Package tempo derives onsets from the spectral flux envelope, estimates
// tempo from inter-onset periodicity, and classifies the meter from beat
// accent patterns.
package tempo

import (
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

const (
	// DefaultBPM is emitted when no usable periodicity exists.
	DefaultBPM = 120.0

	// BPM clamp range.
	MinBPM = 60.0
	MaxBPM = 200.0

	// Adaptive threshold: local mean + thresholdK * local stddev over
	// +/- thresholdRadius flux frames.
	thresholdK      = 0.5
	thresholdRadius = 5

	// refractorySec suppresses double triggers on one transient.
	refractorySec = 0.05

	// Inter-onset intervals outside this range carry no tempo vote.
	minIntervalSec = 0.2
	maxIntervalSec = 2.0

	// beatStrengthRatio selects onsets strong enough to count as beats.
	beatStrengthRatio = 1.2
)

// Estimate computes onsets, BPM, tempo confidence and time signature from
// the flux envelope of a spectral analysis. Arrhythmic input yields the
// default BPM with low confidence rather than an error.
func Estimate(spec *types.SpectralResult) *types.TempoResult {
	result := &types.TempoResult{
		BPM:           DefaultBPM,
		Confidence:    0.1,
		TimeSignature: 4,
	}

	detectOnsets(result, spec)

	if len(result.OnsetTimes) >= 2 {
		span := result.OnsetTimes[len(result.OnsetTimes)-1] - result.OnsetTimes[0]
		if span > 0 {
			result.OnsetDensity = float64(len(result.OnsetTimes)) / span
		}
	}

	if bpm, ok := voteBPM(result.OnsetTimes); ok {
		result.BPM = foldToRange(bpm)
		result.Confidence = envelopeConfidence(spec, result.BPM)
	}

	selectBeats(result)
	result.TimeSignature = analyzeMeter(result.BeatStrengths)

	return result
}

// detectOnsets peak-picks the flux envelope with an adaptive threshold and a
// refractory period.
func detectOnsets(result *types.TempoResult, spec *types.SpectralResult) {
	flux := spec.Flux
	if len(flux) < 3 || spec.HopSeconds <= 0 {
		return
	}

	lastOnset := -math.MaxFloat64

	for i := 1; i < len(flux)-1; i++ {
		// Local maximum first, threshold second.
		if flux[i] <= flux[i-1] || flux[i] < flux[i+1] {
			continue
		}

		mean, stddev := localStats(flux, i)
		if flux[i] <= mean+thresholdK*stddev {
			continue
		}

		t := float64(i) * spec.HopSeconds
		if t-lastOnset < refractorySec {
			continue
		}

		lastOnset = t

		result.OnsetTimes = append(result.OnsetTimes, t)
		result.OnsetStrengths = append(result.OnsetStrengths, flux[i])
	}
}

// localStats computes mean and standard deviation of the flux envelope over
// a window of +/- thresholdRadius around index center.
func localStats(flux []float64, center int) (mean, stddev float64) {
	lo := max(center-thresholdRadius, 0)
	hi := min(center+thresholdRadius, len(flux)-1)

	count := float64(hi - lo + 1)

	var sum float64
	for i := lo; i <= hi; i++ {
		sum += flux[i]
	}

	mean = sum / count

	var varianceSum float64

	for i := lo; i <= hi; i++ {
		d := flux[i] - mean
		varianceSum += d * d
	}

	return mean, math.Sqrt(varianceSum / count)
}

// voteBPM runs histogram voting over inter-onset intervals, quantizing each
// interval's implied tempo to the nearest whole BPM.
func voteBPM(onsetTimes []float64) (float64, bool) {
	if len(onsetTimes) < 2 {
		return 0, false
	}

	votes := make(map[int]int)

	for i := 1; i < len(onsetTimes); i++ {
		interval := onsetTimes[i] - onsetTimes[i-1]
		if interval < minIntervalSec || interval > maxIntervalSec {
			continue
		}

		bpm := int(math.Round(60.0 / interval))
		votes[bpm]++
	}

	if len(votes) == 0 {
		return 0, false
	}

	bestBPM := 0
	bestCount := 0

	for bpm, count := range votes {
		if count > bestCount || (count == bestCount && bpm < bestBPM) {
			bestBPM = bpm
			bestCount = count
		}
	}

	return float64(bestBPM), true
}

// foldToRange resolves octave ambiguity by folding half/double tempo
// candidates into the clamp range.
func foldToRange(bpm float64) float64 {
	for bpm < MinBPM {
		bpm *= 2
	}

	for bpm > MaxBPM {
		bpm /= 2
	}

	if bpm < MinBPM {
		return MinBPM
	}

	return bpm
}

// envelopeConfidence measures autocorrelation peak prominence of the flux
// envelope at the lag implied by the winning BPM. A sharp, dominant peak
// against the mean correlation reads as a confident tempo.
func envelopeConfidence(spec *types.SpectralResult, bpm float64) float64 {
	flux := spec.Flux
	if len(flux) < 4 || spec.HopSeconds <= 0 || bpm <= 0 {
		return 0.1
	}

	lag := int(math.Round(60.0 / bpm / spec.HopSeconds))
	if lag <= 0 || lag >= len(flux) {
		return 0.1
	}

	zero := autocorrelate(flux, 0)
	if zero <= 0 {
		return 0.1
	}

	// Mean correlation over the musically plausible lag range.
	minLag := max(int(60.0/MaxBPM/spec.HopSeconds), 1)
	maxLag := min(int(60.0/MinBPM/spec.HopSeconds), len(flux)-1)

	if maxLag <= minLag {
		return 0.1
	}

	var sum float64
	for l := minLag; l <= maxLag; l++ {
		sum += autocorrelate(flux, l)
	}

	mean := sum / float64(maxLag-minLag+1)
	peak := autocorrelate(flux, lag)

	prominence := (peak - mean) / (zero - mean + 1e-12)

	switch {
	case prominence < 0:
		return 0.1
	case prominence > 1:
		return 1
	default:
		return math.Max(prominence, 0.1)
	}
}

func autocorrelate(flux []float64, lag int) float64 {
	var sum float64

	for i := 0; i+lag < len(flux); i++ {
		sum += flux[i] * flux[i+lag]
	}

	return sum / float64(len(flux)-lag)
}

// selectBeats keeps the onsets whose strength clears beatStrengthRatio times
// the average onset strength.
func selectBeats(result *types.TempoResult) {
	if len(result.OnsetStrengths) == 0 {
		return
	}

	var sum float64
	for _, s := range result.OnsetStrengths {
		sum += s
	}

	avg := sum / float64(len(result.OnsetStrengths))

	for i, s := range result.OnsetStrengths {
		if s > avg*beatStrengthRatio {
			result.BeatTimes = append(result.BeatTimes, result.OnsetTimes[i])
			result.BeatStrengths = append(result.BeatStrengths, s)
		}
	}
}

// analyzeMeter classifies the meter from the accent pattern of the first
// beats. Falls back to 4/4 whenever the pattern is too short or ambiguous.
func analyzeMeter(beatStrengths []float64) int {
	pattern := beatStrengths
	if len(pattern) > 16 {
		pattern = pattern[:16]
	}

	if len(pattern) < 4 {
		return 4
	}

	if isTripleMeter(pattern) {
		return 3
	}

	if isCompoundMeter(pattern) {
		return 6
	}

	if isIrregularMeter(pattern) {
		return oddMeter(pattern)
	}

	return 4
}

// isTripleMeter looks for a strong-weak-weak accent cycle.
func isTripleMeter(pattern []float64) bool {
	if len(pattern) < 6 {
		return false
	}

	var accent1, accent2, accent3 float64
	count := 0

	for i := 0; i+2 < len(pattern); i += 3 {
		accent1 += pattern[i]
		accent2 += pattern[i+1]
		accent3 += pattern[i+2]
		count++
	}

	if count == 0 {
		return false
	}

	accent1 /= float64(count)
	accent2 /= float64(count)
	accent3 /= float64(count)

	return accent1 > accent2*1.2 && accent1 > accent3*1.2
}

// isCompoundMeter looks for the strong-weak-weak-medium-weak-weak cycle of 6/8.
func isCompoundMeter(pattern []float64) bool {
	if len(pattern) < 6 {
		return false
	}

	var accent1, accent4, others float64
	count := 0

	for i := 0; i+5 < len(pattern); i += 6 {
		accent1 += pattern[i]
		accent4 += pattern[i+3]
		others += (pattern[i+1] + pattern[i+2] + pattern[i+4] + pattern[i+5]) / 4.0
		count++
	}

	if count == 0 {
		return false
	}

	accent1 /= float64(count)
	accent4 /= float64(count)
	others /= float64(count)

	return accent1 > others*1.3 && accent4 > others*1.1 && accent1 > accent4*1.1
}

// isIrregularMeter flags accent patterns too uneven for 3/4 or 4/4.
func isIrregularMeter(pattern []float64) bool {
	if len(pattern) < 5 {
		return false
	}

	var sum float64
	for _, a := range pattern {
		sum += a
	}

	mean := sum / float64(len(pattern))
	if mean <= 0 {
		return false
	}

	var varianceSum float64

	for _, a := range pattern {
		d := a - mean
		varianceSum += d * d
	}

	cv := math.Sqrt(varianceSum/float64(len(pattern))) / mean

	return cv > 0.5
}

// oddMeter decides between 5/4 and 7/4 by comparing downbeat-aligned
// accent mass at the two cycle lengths.
func oddMeter(pattern []float64) int {
	if len(pattern) < 7 {
		return 7
	}

	var strength5, strength7 float64

	for i := 0; i < len(pattern); i += 5 {
		strength5 += pattern[i]
	}

	for i := 0; i < len(pattern); i += 7 {
		strength7 += pattern[i]
	}

	if strength7 > strength5 {
		return 7
	}

	if strength5 > 0 {
		return 5
	}

	return 7
}
