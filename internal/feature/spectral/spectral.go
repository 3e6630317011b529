// Package spectral computes short-time spectral features: per-frame magnitude
// spectra via FFT, the aggregated magnitude spectrum, spectral centroid and
// rolloff, half-wave rectified flux, zero-crossing rate and flatness.
package spectral

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

const (
	// DefaultWindowSize is the analysis frame length in samples.
	DefaultWindowSize = 2048
	// DefaultHopSize is the advance between consecutive frames.
	DefaultHopSize = 512

	rolloffFraction = 0.85
)

// Options configures frame segmentation.
type Options struct {
	WindowSize int
	HopSize    int
}

var (
	errWindowSize = errors.New("window size must be a positive power of two")
	errHopSize    = errors.New("hop size must be positive and no larger than the window")
)

// Analyze segments the buffer into overlapping Hann-windowed frames and
// derives the aggregated spectral feature set. Buffers shorter than one
// window are zero-padded to a single frame.
func Analyze(buf *types.AudioBuffer, opts Options) (*types.SpectralResult, error) {
	if opts.WindowSize == 0 {
		opts.WindowSize = DefaultWindowSize
	}

	if opts.HopSize == 0 {
		opts.HopSize = DefaultHopSize
	}

	if opts.WindowSize <= 0 || opts.WindowSize&(opts.WindowSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", errWindowSize, opts.WindowSize)
	}

	if opts.HopSize <= 0 || opts.HopSize > opts.WindowSize {
		return nil, fmt.Errorf("%w: %d", errHopSize, opts.HopSize)
	}

	samples := buf.Samples
	if len(samples) < opts.WindowSize {
		padded := make([]float64, opts.WindowSize)
		copy(padded, samples)
		samples = padded
	}

	winSize := opts.WindowSize
	binCount := winSize/2 + 1
	binHz := float64(buf.SampleRate) / float64(winSize)

	coeffs := hannCoefficients(winSize)
	fft := fourier.NewFFT(winSize)
	fftIn := make([]float64, winSize)

	frameCount := 1 + (len(samples)-winSize)/opts.HopSize

	magnitudeSum := make([]float64, binCount)
	flux := make([]float64, frameCount)
	centroids := make([]float64, frameCount)
	prevMagnitude := make([]float64, binCount)
	magnitude := make([]float64, binCount)

	for frame := range frameCount {
		pos := frame * opts.HopSize

		for i := range winSize {
			fftIn[i] = samples[pos+i] * coeffs[i]
		}

		spectrum := fft.Coefficients(nil, fftIn)

		for i, c := range spectrum {
			mag := math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
			if math.IsNaN(mag) || math.IsInf(mag, 0) {
				mag = 0
			}

			magnitude[i] = mag
			magnitudeSum[i] += mag
		}

		if frame > 0 {
			var f float64

			for i := range binCount {
				if d := magnitude[i] - prevMagnitude[i]; d > 0 {
					f += d
				}
			}

			flux[frame] = f
		}

		centroids[frame] = calculateCentroid(magnitude, binHz)

		copy(prevMagnitude, magnitude)
	}

	avgMagnitude := make([]float64, binCount)
	for i := range avgMagnitude {
		avgMagnitude[i] = magnitudeSum[i] / float64(frameCount)
	}

	var totalEnergy float64
	for _, s := range buf.Samples {
		totalEnergy += s * s
	}

	return &types.SpectralResult{
		Centroid:         calculateCentroid(avgMagnitude, binHz),
		Rolloff:          calculateRolloff(avgMagnitude, binHz),
		ZeroCrossingRate: zeroCrossingRate(buf.Samples),
		Flatness:         spectralFlatness(avgMagnitude),
		Flux:             flux,
		Centroids:        centroids,
		HopSeconds:       float64(opts.HopSize) / float64(buf.SampleRate),
		AvgMagnitude:     avgMagnitude,
		BinHz:            binHz,
		TotalEnergy:      totalEnergy,
		Frames:           frameCount,
	}, nil
}

// hannCoefficients precomputes one Hann window of the given length.
func hannCoefficients(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	window.Hann(coeffs)

	return coeffs
}

// calculateCentroid computes the magnitude-weighted mean frequency.
func calculateCentroid(magnitude []float64, binHz float64) float64 {
	var weightedSum, magSum float64

	for i, mag := range magnitude {
		freq := float64(i) * binHz
		weightedSum += freq * mag
		magSum += mag
	}

	if magSum == 0 {
		return 0
	}

	return weightedSum / magSum
}

// calculateRolloff returns the lowest frequency below which rolloffFraction
// of the total spectral magnitude is contained.
func calculateRolloff(magnitude []float64, binHz float64) float64 {
	var total float64
	for _, mag := range magnitude {
		total += mag
	}

	if total == 0 {
		return 0
	}

	target := total * rolloffFraction

	var running float64

	for i, mag := range magnitude {
		running += mag
		if running >= target {
			return float64(i) * binHz
		}
	}

	return float64(len(magnitude)-1) * binHz
}

// zeroCrossingRate counts sign changes per sample over the whole buffer.
func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	crossings := 0

	for i := 1; i < len(samples); i++ {
		if (samples[i] >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(samples))
}

// spectralFlatness computes the Wiener entropy: geometric mean / arithmetic mean.
// Returns 1.0 for white noise (flat spectrum), lower for tonal content.
func spectralFlatness(magnitudes []float64) float64 {
	if len(magnitudes) == 0 {
		return 0
	}

	var arithmeticSum float64
	var logSum float64
	count := 0

	for _, m := range magnitudes {
		if m > 0 {
			arithmeticSum += m
			logSum += math.Log(m)
			count++
		}
	}

	if count == 0 || arithmeticSum == 0 {
		return 0
	}

	arithmeticMean := arithmeticSum / float64(count)
	geometricMean := math.Exp(logSum / float64(count))

	return geometricMean / arithmeticMean
}
