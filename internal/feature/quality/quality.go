// Package quality measures signal-quality cues: windowed RMS statistics,
// signal-to-noise ratio, dynamic range and lossy-artifact indicators. These
// feed the overall confidence score and a handful of classification rules.
package quality

import (
	"math"
	"sort"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

const (
	// windowSec is the RMS scan window. 100 ms follows the usual
	// level-tracking granularity for program material.
	windowSec = 0.1

	// compressedRangeDb: below this windowed dynamic range the material
	// reads as heavily compressed.
	compressedRangeDb = 15.0

	// fullRangeDb normalizes dynamic range into [0, 1].
	fullRangeDb = 40.0
)

// Assess scans the buffer in 100 ms RMS windows and derives quality
// measurements. A constant or empty signal yields zero SNR and zero
// dynamic range rather than an error.
func Assess(buf *types.AudioBuffer, spec *types.SpectralResult) *types.QualityResult {
	result := &types.QualityResult{}

	rmsValues := windowedRMS(buf)
	if len(rmsValues) > 0 {
		result.SNRDb = snrFromRMS(rmsValues)
		result.DynamicRangeDb = dynamicRangeDb(rmsValues)
		result.DynamicRange = math.Min(result.DynamicRangeDb/fullRangeDb, 1)
		result.Compressed = result.DynamicRangeDb < compressedRangeDb
	}

	result.CompleteSpectrum = completeSpectrum(spec)
	result.ArtifactScore = artifactScore(spec, result.Compressed)

	return result
}

// windowedRMS slices the buffer into consecutive windows and returns the
// RMS of each.
func windowedRMS(buf *types.AudioBuffer) []float64 {
	windowSize := int(windowSec * float64(buf.SampleRate))
	if windowSize <= 0 || len(buf.Samples) < windowSize {
		return nil
	}

	var values []float64

	for pos := 0; pos+windowSize <= len(buf.Samples); pos += windowSize {
		var sum float64
		for _, s := range buf.Samples[pos : pos+windowSize] {
			sum += s * s
		}

		values = append(values, math.Sqrt(sum/float64(windowSize)))
	}

	return values
}

// snrFromRMS treats the 10th percentile window as the noise floor and the
// 90th percentile as the signal level.
func snrFromRMS(rmsValues []float64) float64 {
	sorted := make([]float64, len(rmsValues))
	copy(sorted, rmsValues)
	sort.Float64s(sorted)

	noiseFloor := sorted[len(sorted)/10]
	signalLevel := sorted[len(sorted)*9/10]

	if signalLevel == 0 {
		return 0 // no signal at all, nothing to measure against
	}

	if noiseFloor == 0 {
		return 60 // very quiet noise floor
	}

	return 20 * math.Log10(signalLevel/noiseFloor)
}

func dynamicRangeDb(rmsValues []float64) float64 {
	maxRMS := rmsValues[0]
	minRMS := rmsValues[0]

	for _, v := range rmsValues {
		if v > maxRMS {
			maxRMS = v
		}

		if v < minRMS {
			minRMS = v
		}
	}

	if maxRMS == 0 {
		return 0
	}

	db := 20 * math.Log10(maxRMS/(minRMS+1e-10))
	if db < 0 {
		return 0
	}

	return db
}

// completeSpectrum checks that energy is present across low, mid and high
// bands; lossy transcodes and band-limited sources fail this.
func completeSpectrum(spec *types.SpectralResult) bool {
	if len(spec.AvgMagnitude) == 0 {
		return false
	}

	nyquist := spec.BinHz * float64(len(spec.AvgMagnitude)-1)

	low := spec.BandRatio(0, 500)
	mid := spec.BandRatio(500, 4000)
	high := spec.BandRatio(4000, nyquist)

	return low > 0.05 && mid > 0.3 && high > 0.02
}

// artifactScore accumulates lossy-compression indicators: an aggressive
// zero-crossing rate, missing ultrasonic content and a squashed dynamic
// range.
func artifactScore(spec *types.SpectralResult, compressed bool) float64 {
	score := 0.0

	if spec.ZeroCrossingRate > 0.2 {
		score += 0.3
	}

	nyquist := spec.BinHz * float64(len(spec.AvgMagnitude)-1)
	if nyquist > 15000 && spec.BandRatio(15000, nyquist) < 0.01 {
		score += 0.4
	}

	if compressed {
		score += 0.3
	}

	return math.Min(score, 1)
}
