// Package musicanalysis derives musical features from decoded PCM audio:
// tempo, key, loudness, perceptual descriptors and categorical tags,
// assembled into one AnalysisResult per track. The package performs no
// I/O; callers hand it a mono AudioBuffer and get a record back.
package musicanalysis

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/chroma"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/classify"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/confidence"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/key"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/loudness"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/perceptual"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/quality"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/similarity"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/spectral"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/feature/tempo"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

/*
Usage:

result, err := musicanalysis.Analyze(buffer, musicanalysis.DefaultOptions())
if err != nil {
    return err
}
fmt.Printf("%.0f BPM, %s %s, %.1f dB\n", result.BPM, result.Key, result.Mode, result.Loudness)

// With a hard time budget
opts := musicanalysis.DefaultOptions()
opts.Budget = 10 * time.Second
result, err := musicanalysis.AnalyzeContext(ctx, buffer, opts)

// Batch, bounded concurrency
items := musicanalysis.AnalyzeAll(ctx, buffers, musicanalysis.DefaultOptions())
for i, item := range items {
    if item.Err != nil {
        log.Printf("track %d failed: %v", i, item.Err)
    }
}
*/

// Options configures the analysis pipeline.
type Options struct {
	// WindowSize and HopSize drive the short-time spectral pass.
	// Both must be powers of two (defaults: 2048 / 512).
	WindowSize int
	HopSize    int

	// Budget is the wall-clock limit for one track (default: 30s).
	// Exceeding it fails the analysis with ErrBudgetExceeded.
	Budget time.Duration

	// Workers bounds AnalyzeAll concurrency (default: GOMAXPROCS).
	Workers int
}

// DefaultOptions returns sensible defaults for full-track analysis.
func DefaultOptions() Options {
	return Options{
		WindowSize: 2048,
		HopSize:    512,
		Budget:     30 * time.Second,
		Workers:    runtime.GOMAXPROCS(0),
	}
}

// QuickOptions trades frequency resolution for speed: half the window,
// a tighter budget. Suitable for previews and large library scans.
func QuickOptions() Options {
	opts := DefaultOptions()
	opts.WindowSize = 1024
	opts.Budget = 10 * time.Second

	return opts
}

func applyDefaults(opts *Options) {
	defaults := DefaultOptions()

	if opts.WindowSize == 0 {
		opts.WindowSize = defaults.WindowSize
	}

	if opts.HopSize == 0 {
		opts.HopSize = defaults.HopSize
	}

	if opts.Budget == 0 {
		opts.Budget = defaults.Budget
	}

	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
}

// Analyze runs the full pipeline with a background context.
func Analyze(buf *types.AudioBuffer, opts Options) (*AnalysisResult, error) {
	return AnalyzeContext(context.Background(), buf, opts)
}

// AnalyzeContext runs the full pipeline: spectral pass, chroma and key,
// onset and tempo, loudness, quality, perceptual derivation, tagging and
// confidence scoring. The context plus the Budget option bound the run;
// cancellation is checked between stages, so a cancelled analysis returns
// promptly without a partial result.
func AnalyzeContext(ctx context.Context, buf *types.AudioBuffer, opts Options) (*AnalysisResult, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidInput)
	}

	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidInput, buf.SampleRate)
	}

	applyDefaults(&opts)

	ctx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	processed := preprocess(buf)

	spectralResult, err := spectral.Analyze(processed, spectral.Options{
		WindowSize: opts.WindowSize,
		HopSize:    opts.HopSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := budgetCheck(ctx); err != nil {
		return nil, err
	}

	chromaResult := chroma.Extract(spectralResult)
	keyResult := key.Detect(chromaResult)
	tempoResult := tempo.Estimate(spectralResult)

	if err := budgetCheck(ctx); err != nil {
		return nil, err
	}

	loudnessResult, err := loudness.Measure(processed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNumericalFailure, err)
	}

	qualityResult := quality.Assess(processed, spectralResult)

	if err := budgetCheck(ctx); err != nil {
		return nil, err
	}

	perceptualResult := perceptual.Derive(perceptual.Inputs{
		Buffer:   processed,
		Spectral: spectralResult,
		Chroma:   chromaResult,
		Tempo:    tempoResult,
		Loudness: loudnessResult,
		Quality:  qualityResult,
	})

	if err := budgetCheck(ctx); err != nil {
		return nil, err
	}

	classification := classify.Tag(classify.Inputs{
		Spectral:   spectralResult,
		Tempo:      tempoResult,
		Loudness:   loudnessResult,
		Quality:    qualityResult,
		Perceptual: perceptualResult,
	})

	if err := budgetCheck(ctx); err != nil {
		return nil, err
	}

	similarityResult := similarity.Compute(similarity.Inputs{
		Buffer:   processed,
		Spectral: spectralResult,
		Chroma:   chromaResult,
		Tempo:    tempoResult,
	})

	score := confidence.Score(confidence.Inputs{
		Tempo:          tempoResult,
		Key:            keyResult,
		Loudness:       loudnessResult,
		Quality:        qualityResult,
		Perceptual:     perceptualResult,
		Classification: classification,
	})

	return assemble(keyResult, tempoResult, loudnessResult, perceptualResult, classification, similarityResult, score), nil
}

// BatchItem is one AnalyzeAll outcome, positionally matching the input.
type BatchItem struct {
	Result *AnalysisResult
	Err    error
}

// AnalyzeAll analyzes tracks concurrently with a bounded worker pool.
// Output order matches input order; per-track failures land in their
// BatchItem instead of aborting the batch.
func AnalyzeAll(ctx context.Context, buffers []*types.AudioBuffer, opts Options) []BatchItem {
	applyDefaults(&opts)

	items := make([]BatchItem, len(buffers))
	indexes := make(chan int)

	var wg sync.WaitGroup

	workers := opts.Workers
	if workers > len(buffers) {
		workers = len(buffers)
	}

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for idx := range indexes {
				result, err := AnalyzeContext(ctx, buffers[idx], opts)
				items[idx] = BatchItem{Result: result, Err: err}
			}
		}()
	}

	for idx := range buffers {
		indexes <- idx
	}

	close(indexes)
	wg.Wait()

	return items
}

func budgetCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrBudgetExceeded, ctx.Err())
	default:
		return nil
	}
}

// highPassAlpha is the one-pole high-pass coefficient used to strip DC
// and subsonic rumble before analysis.
const highPassAlpha = 0.95

// preprocess peak-normalizes a copy of the buffer and runs a one-pole
// high-pass over it. The caller's buffer is never touched.
func preprocess(buf *types.AudioBuffer) *types.AudioBuffer {
	samples := make([]float64, len(buf.Samples))

	var peak float64

	for _, s := range buf.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	gain := 1.0
	if peak > 0 {
		gain = 1.0 / peak
	}

	var prevIn, prevOut float64

	for i, s := range buf.Samples {
		in := s * gain
		out := highPassAlpha * (prevOut + in - prevIn)
		prevIn, prevOut = in, out
		samples[i] = out
	}

	return &types.AudioBuffer{Samples: samples, SampleRate: buf.SampleRate}
}

// assemble clamps every bounded field and freezes the output record.
func assemble(
	keyResult *types.KeyResult,
	tempoResult *types.TempoResult,
	loudnessResult *types.LoudnessResult,
	perceptualResult *types.PerceptualResult,
	classification *types.ClassificationResult,
	similarityResult *types.SimilarityResult,
	score float64,
) *AnalysisResult {
	return &AnalysisResult{
		Analyzed: true,

		BPM:           clampRange(tempoResult.BPM, 60, 200),
		Key:           keyResult.Key,
		Mode:          keyResult.Mode,
		TimeSignature: tempoResult.TimeSignature,

		Energy:           clampUnit(perceptualResult.Energy),
		Danceability:     clampUnit(perceptualResult.Danceability),
		Valence:          clampUnit(perceptualResult.Valence),
		Acousticness:     clampUnit(perceptualResult.Acousticness),
		Instrumentalness: clampUnit(perceptualResult.Instrumentalness),
		Speechiness:      clampUnit(perceptualResult.Speechiness),
		Liveness:         clampUnit(perceptualResult.Liveness),

		Loudness: clampRange(loudnessResult.IntegratedLUFS, -60, 0),

		Similarity: SimilarityVector{
			Harmonicity: clampUnit(similarityResult.Harmonicity),
			Melodicity:  clampUnit(similarityResult.Melodicity),
			Rhythmicity: clampUnit(similarityResult.Rhythmicity),
			Timbrality:  clampUnit(similarityResult.Timbrality),
			Dynamics:    clampUnit(similarityResult.Dynamics),
			Tonality:    clampUnit(similarityResult.Tonality),
			Temporality: clampUnit(similarityResult.Temporality),
		},

		Characteristics: classification.Characteristics,
		Mood:            classification.Mood,
		Occasion:        classification.Occasions,
		Subgenres:       classification.Subgenres,
		Era:             classification.Era,
		CulturalContext: classification.CulturalContext,

		Confidence: clampUnit(score),
	}
}

func clampUnit(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
