// Package similarity derives a seven-axis descriptor vector positioning a
// track for track-to-track comparison: harmonicity, melodicity,
// rhythmicity, timbrality, dynamics, tonality and temporality, each in
// [0, 1]. Two vectors compare by normalized Euclidean distance.
package similarity

import (
	"math"
	"sort"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/chroma"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/spectral"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/tempo"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

const (
	// assumedFundamentalHz anchors the harmonic grid the harmonic-to-noise
	// ratio measures against.
	assumedFundamentalHz = 100.0
	harmonicToleranceHz  = 20.0
	harmonicCount        = 10

	// contourWindow is the autocorrelation window for pitch tracking.
	contourWindow = 2048
	minPitchLag   = 20
)

// Inputs collects the buffer and earlier stage results the vector reads from.
type Inputs struct {
	Buffer   *types.AudioBuffer
	Spectral *types.SpectralResult
	Chroma   *types.ChromaResult
	Tempo    *types.TempoResult
}

// Compute derives the descriptor vector. Silent input lands at zero on the
// content axes; the stability axes read as stable when there is too little
// material to measure variation over.
func Compute(in Inputs) *types.SimilarityResult {
	return &types.SimilarityResult{
		Harmonicity: harmonicity(in.Spectral),
		Melodicity:  melodicity(in.Buffer),
		Rhythmicity: rhythmicity(in.Tempo),
		Timbrality:  timbrality(in.Spectral),
		Dynamics:    dynamics(in.Buffer),
		Tonality:    tonality(in.Buffer, in.Chroma),
		Temporality: temporality(in.Buffer, in.Tempo),
	}
}

// Distance returns the Euclidean distance between two vectors, scaled so
// that fully opposed vectors measure 1.
func Distance(a, b *types.SimilarityResult) float64 {
	av := axes(a)
	bv := axes(b)

	var sum float64

	for i := range av {
		d := av[i] - bv[i]
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(av)))
}

func axes(v *types.SimilarityResult) [7]float64 {
	return [7]float64{
		v.Harmonicity,
		v.Melodicity,
		v.Rhythmicity,
		v.Timbrality,
		v.Dynamics,
		v.Tonality,
		v.Temporality,
	}
}

// harmonicity blends the harmonic-to-noise ratio with the presence of an
// integer-ratio peak series in the averaged spectrum.
func harmonicity(spec *types.SpectralResult) float64 {
	if len(spec.AvgMagnitude) == 0 || spec.TotalEnergy == 0 {
		return 0
	}

	return 0.6*harmonicNoiseRatio(spec) + 0.4*harmonicSeriesScore(spec.AvgMagnitude)
}

func harmonicNoiseRatio(spec *types.SpectralResult) float64 {
	var harmonic, total float64

	for i, m := range spec.AvgMagnitude {
		power := m * m
		total += power

		freq := float64(i) * spec.BinHz
		for h := 1; h <= harmonicCount; h++ {
			if math.Abs(freq-assumedFundamentalHz*float64(h)) < harmonicToleranceHz {
				harmonic += power

				break
			}
		}
	}

	if total == 0 {
		return 0
	}

	return harmonic / total
}

func harmonicSeriesScore(magnitude []float64) float64 {
	var peaks []float64

	for i := 1; i < len(magnitude)-1; i++ {
		if magnitude[i] > magnitude[i-1] && magnitude[i] > magnitude[i+1] {
			peaks = append(peaks, float64(i))
		}
	}

	if len(peaks) < 2 {
		return 0
	}

	fundamental := peaks[0]

	var score float64

	for i := 1; i < len(peaks) && i < 5; i++ {
		ratio := peaks[i] / fundamental

		if deviation := math.Abs(ratio - math.Round(ratio)); deviation < 0.1 {
			score += 1 - deviation
		}
	}

	return math.Min(1, score/4)
}

// melodicity measures pitch-contour movement: an autocorrelation pitch
// track over half-overlapping windows, total step size normalized against
// a 1 kHz swing.
func melodicity(buf *types.AudioBuffer) float64 {
	contour := pitchContour(buf)
	if len(contour) < 2 {
		return 0
	}

	var variation float64

	for i := 1; i < len(contour); i++ {
		variation += math.Abs(contour[i] - contour[i-1])
	}

	return math.Min(1, variation/float64(len(contour))/1000)
}

func pitchContour(buf *types.AudioBuffer) []float64 {
	hop := contourWindow / 2

	var pitches []float64

	for pos := 0; pos+contourWindow <= len(buf.Samples); pos += hop {
		if lag := dominantLag(buf.Samples[pos : pos+contourWindow]); lag > 0 {
			pitches = append(pitches, float64(buf.SampleRate)/float64(lag))
		}
	}

	return pitches
}

func dominantLag(window []float64) int {
	bestLag := 0

	var bestCorr float64

	for lag := minPitchLag; lag < len(window)/2; lag++ {
		var corr float64

		for i := 0; i+lag < len(window); i++ {
			corr += window[i] * window[i+lag]
		}

		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	return bestLag
}

// rhythmicity rises with inter-onset irregularity: a metronomic pattern
// scores 0, free timing approaches 1.
func rhythmicity(tempoResult *types.TempoResult) float64 {
	if len(tempoResult.OnsetTimes) < 3 {
		return 0
	}

	cv := coefficientOfVariation(intervals(tempoResult.OnsetTimes))

	return 1 - math.Exp(-cv)
}

// timbrality blends spectral entropy with centroid movement over time.
func timbrality(spec *types.SpectralResult) float64 {
	return 0.5*spectralEntropy(spec.AvgMagnitude) + 0.5*centroidVariation(spec.Centroids)
}

func spectralEntropy(magnitude []float64) float64 {
	var total float64
	for _, m := range magnitude {
		total += m * m
	}

	if total == 0 {
		return 0
	}

	var entropy float64

	for _, m := range magnitude {
		if p := m * m / total; p > 0 {
			entropy -= p * math.Log2(p)
		}
	}

	return math.Min(1, entropy/10)
}

func centroidVariation(centroids []float64) float64 {
	if len(centroids) < 2 {
		return 0
	}

	return math.Min(1, stddev(centroids)/5000)
}

// dynamics blends the 10th-to-90th percentile level spread with short-term
// envelope movement.
func dynamics(buf *types.AudioBuffer) float64 {
	return 0.7*levelSpread(buf) + 0.3*envelopeVariation(buf)
}

func levelSpread(buf *types.AudioBuffer) float64 {
	blockSize := buf.SampleRate / 10
	if blockSize <= 0 {
		return 0
	}

	var levels []float64

	for pos := 0; pos+blockSize <= len(buf.Samples); pos += blockSize {
		if rms := blockRMS(buf.Samples[pos : pos+blockSize]); rms > 0.001 {
			levels = append(levels, 20*math.Log10(rms))
		}
	}

	if len(levels) == 0 {
		return 0
	}

	sort.Float64s(levels)

	spread := levels[len(levels)*9/10] - levels[len(levels)/10]

	return math.Min(1, spread/60)
}

func envelopeVariation(buf *types.AudioBuffer) float64 {
	const blockSize = 1024

	var envelope []float64

	for pos := 0; pos+blockSize <= len(buf.Samples); pos += blockSize {
		envelope = append(envelope, blockRMS(buf.Samples[pos:pos+blockSize]))
	}

	if len(envelope) < 2 {
		return 0
	}

	var change float64

	for i := 1; i < len(envelope); i++ {
		change += math.Abs(envelope[i] - envelope[i-1])
	}

	return math.Min(1, change/float64(len(envelope))*10)
}

func blockRMS(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// tonality blends pitch-class clarity with chroma stability over time.
func tonality(buf *types.AudioBuffer, chromaResult *types.ChromaResult) float64 {
	if chromaResult.Silent() {
		return 0
	}

	return 0.6*tonalClarity(chromaResult) + 0.4*chromaStability(buf)
}

// tonalClarity is the share of chroma mass held by the three strongest
// pitch classes.
func tonalClarity(chromaResult *types.ChromaResult) float64 {
	sorted := make([]float64, len(chromaResult.Chroma))
	copy(sorted, chromaResult.Chroma[:])
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var total float64
	for _, v := range sorted {
		total += v
	}

	if total == 0 {
		return 0
	}

	return (sorted[0] + sorted[1] + sorted[2]) / total
}

// chromaStability correlates consecutive two-second chroma windows at a
// one-second hop. Fewer than two windows read as stable.
func chromaStability(buf *types.AudioBuffer) float64 {
	windowLen := 2 * buf.SampleRate
	hop := buf.SampleRate

	var (
		prev  *types.ChromaResult
		sum   float64
		pairs int
	)

	for pos := 0; pos+windowLen <= len(buf.Samples); pos += hop {
		segment := &types.AudioBuffer{
			Samples:    buf.Samples[pos : pos+windowLen],
			SampleRate: buf.SampleRate,
		}

		spec, err := spectral.Analyze(segment, spectral.Options{})
		if err != nil {
			return 1
		}

		current := chroma.Extract(spec)

		if prev != nil {
			var dot float64
			for i := range current.Chroma {
				dot += current.Chroma[i] * prev.Chroma[i]
			}

			sum += dot
			pairs++
		}

		prev = current
	}

	if pairs == 0 {
		return 1
	}

	return math.Min(1, sum/float64(pairs))
}

// temporality blends tempo stability across ten-second segments with beat
// interval consistency.
func temporality(buf *types.AudioBuffer, tempoResult *types.TempoResult) float64 {
	return 0.5*tempoStability(buf) + 0.5*beatConsistency(tempoResult.BeatTimes)
}

func tempoStability(buf *types.AudioBuffer) float64 {
	segmentLen := 10 * buf.SampleRate
	if segmentLen <= 0 {
		return 1
	}

	var bpms []float64

	for pos := 0; pos+segmentLen <= len(buf.Samples); pos += segmentLen / 2 {
		segment := &types.AudioBuffer{
			Samples:    buf.Samples[pos : pos+segmentLen],
			SampleRate: buf.SampleRate,
		}

		spec, err := spectral.Analyze(segment, spectral.Options{})
		if err != nil {
			return 1
		}

		bpms = append(bpms, tempo.Estimate(spec).BPM)
	}

	if len(bpms) < 2 {
		return 1
	}

	return math.Exp(-coefficientOfVariation(bpms) * 10)
}

// beatConsistency trims the outer 10% of beat intervals so a single tempo
// change does not dominate, then scores the remaining spread.
func beatConsistency(beatTimes []float64) float64 {
	if len(beatTimes) < 3 {
		return 1
	}

	gaps := intervals(beatTimes)
	sort.Float64s(gaps)

	trim := len(gaps) / 10
	if len(gaps) > 2*trim {
		gaps = gaps[trim : len(gaps)-trim]
	}

	return math.Exp(-coefficientOfVariation(gaps) * 20)
}

func intervals(times []float64) []float64 {
	out := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		out = append(out, times[i]-times[i-1])
	}

	return out
}

func coefficientOfVariation(values []float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	if mean == 0 {
		return 0
	}

	return stddev(values) / mean
}

func stddev(values []float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	return math.Sqrt(variance / float64(len(values)))
}
