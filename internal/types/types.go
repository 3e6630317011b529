//nolint:staticcheck // too dumb on Db vs. DB
package types

import "time"

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// PCMFormat of the original input before PCM extraction. The pipeline itself
// only consumes mono float buffers; this describes what the decoder handed us.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}

// AudioBuffer is the pipeline input: decoded PCM, already collapsed to mono.
// Immutable once constructed; stages never write into Samples.
type AudioBuffer struct {
	Samples    []float64
	SampleRate int
}

// Duration of the buffer.
func (b *AudioBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Seconds of audio in the buffer.
func (b *AudioBuffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}

	return float64(len(b.Samples)) / float64(b.SampleRate)
}

/*
Spectral Analysis Interpretation

## Spectral centroid

| Centroid     | Character                               |
|--------------|-----------------------------------------|
| < 1000 Hz    | Dark. Bass-heavy or muffled material.   |
| 1000-3000 Hz | Balanced. Most full-range mixes.        |
| 3000-4000 Hz | Bright. Prominent upper mids.           |
| > 4000 Hz    | Very bright. Cymbals, synths, sibilance.|

## Zero-crossing rate

| ZCR          | Character                               |
|--------------|-----------------------------------------|
| < 0.02       | Smooth, sustained tonal content.        |
| 0.02-0.10    | Mixed tonal and transient content.      |
| > 0.10       | Percussive or noisy content.            |
| > 0.15       | Distortion territory when paired with a bright centroid. |

## Spectral flatness

Wiener entropy of the averaged spectrum. Approaches 1.0 for noise,
drops toward 0 for strongly tonal material. Useful to separate
harmonic content from broadband noise.
*/

// SpectralResult contains aggregated short-time spectral features.
type SpectralResult struct {
	Centroid         float64 // Hz, magnitude-weighted average across frames
	Rolloff          float64 // Hz below which 85% of spectral energy sits
	ZeroCrossingRate float64 // fraction of sign changes per sample
	Flatness         float64 // Wiener entropy of the averaged spectrum

	// Flux is the per-frame half-wave rectified spectral difference,
	// time-aligned at HopSeconds intervals. Feeds onset detection.
	Flux []float64

	// Centroids holds the per-frame spectral centroid in Hz, one entry
	// per analysis frame. Feeds timbral variation measurement.
	Centroids  []float64
	HopSeconds float64

	// AvgMagnitude is the magnitude spectrum averaged over all frames,
	// BinHz the width of one bin. Chroma folding and band-energy ratios
	// are derived from these instead of retained per-frame spectra.
	AvgMagnitude []float64
	BinHz        float64

	TotalEnergy float64 // sum of squared samples
	Frames      int
}

// BandRatio returns the share of averaged spectral magnitude between lo and hi Hz.
func (r *SpectralResult) BandRatio(lo, hi float64) float64 {
	if len(r.AvgMagnitude) == 0 || r.BinHz <= 0 {
		return 0
	}

	var total, band float64

	for i, m := range r.AvgMagnitude {
		total += m

		freq := float64(i) * r.BinHz
		if freq >= lo && freq < hi {
			band += m
		}
	}

	if total == 0 {
		return 0
	}

	return band / total
}

// ChromaResult is the 12-bin pitch-class profile aggregated over the track.
// Bins follow pitch-class order C..B and sum to 1, except for silence where
// the whole vector stays zero and Energy reports 0.
type ChromaResult struct {
	Chroma [12]float64
	Energy float64 // pre-normalization magnitude mass, 0 means no tonal content
}

// Silent reports whether no tonal energy was accumulated.
func (r *ChromaResult) Silent() bool {
	return r.Energy == 0
}

/*
Onset And Tempo Interpretation

| Confidence | Interpretation                                 |
|------------|------------------------------------------------|
| > 0.7      | Strong, stable periodicity. Trust the BPM.     |
| 0.3-0.7    | Usable estimate; octave errors possible.       |
| < 0.3      | Arrhythmic or ambient. BPM is a fallback value.|

OnsetDensity is onsets per second over the span between first and last
onset; above 5/s reads as dense/complex, below 1/s as sparse.
*/

// TempoResult contains onset, beat and meter estimates.
type TempoResult struct {
	BPM        float64 // clamped to [60, 200]
	Confidence float64 // normalized autocorrelation peak prominence

	OnsetTimes     []float64 // seconds, strictly increasing
	OnsetStrengths []float64
	OnsetDensity   float64 // onsets per second

	// Beats are the onsets whose strength clears 1.2x the average,
	// the subset regular enough to carry meter analysis.
	BeatTimes     []float64
	BeatStrengths []float64

	TimeSignature int // beats per bar: 3, 4, 5, 6 or 7
}

// KeyResult contains the Krumhansl-Schmuckler template match.
type KeyResult struct {
	Root       int    // pitch class 0-11, C = 0
	Key        string // pitch-class name, "C".."B"
	Mode       string // "Major" or "Minor"
	Margin     float64
	Confidence float64 // normalized best-minus-second template margin
}

/*
Loudness Interpretation

| IntegratedLUFS | Interpretation                          |
|----------------|-----------------------------------------|
| > -8           | Loudness-war mastering.                 |
| -8 to -14      | Modern streaming-normalized masters.    |
| -14 to -20     | Dynamic masters, broadcast levels.      |
| -20 to -40     | Quiet material or low-level transfers.  |
| < -60          | Effectively silence.                    |
*/

// LoudnessResult contains K-weighted gated loudness measurements.
type LoudnessResult struct {
	IntegratedLUFS float64 // BS.1770 gated integration, unclamped
	GatedBlocks    int     // blocks surviving the relative gate
	TotalBlocks    int
}

// QualityResult contains signal-quality measurements feeding the
// confidence score.
type QualityResult struct {
	SNRDb            float64 // 90th vs 10th percentile windowed RMS
	DynamicRange     float64 // normalized 0-1, from windowed RMS spread
	DynamicRangeDb   float64
	Compressed       bool    // dynamic range under 15 dB
	CompleteSpectrum bool    // energy present in low, mid and high bands
	ArtifactScore    float64 // 0-1, lossy/quantization artifact likelihood
}

// PerceptualResult contains the derived perceptual descriptors, each in
// [0, 1] unless noted.
type PerceptualResult struct {
	Energy           float64
	Danceability     float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
	Speechiness      float64
	Liveness         float64
	Mode             string  // "Major" or "Minor"
	RT60             float64 // estimated reverberation time, seconds
}

// SimilarityResult positions a track on seven descriptor axes used for
// track-to-track comparison. Each axis is in [0, 1].
type SimilarityResult struct {
	Harmonicity float64 // share of spectral energy on a harmonic grid
	Melodicity  float64 // pitch-contour movement over time
	Rhythmicity float64 // inter-onset interval irregularity
	Timbrality  float64 // spectral entropy plus centroid variation
	Dynamics    float64 // level spread plus envelope movement
	Tonality    float64 // pitch-class clarity plus chroma stability
	Temporality float64 // tempo stability plus beat consistency
}

// ClassificationResult contains the rule-based categorical tags.
type ClassificationResult struct {
	Characteristics []string // 3-5 entries
	Mood            string
	Occasions       []string // 2-3 entries
	Subgenres       []string // 2-3 entries
	Era             string
	CulturalContext string
}
