// Package loudness implements ITU-R BS.1770 / EBU R128 integrated loudness
// for a mono analysis buffer: two-stage K-weighting, 400 ms gating blocks at
// 75% overlap, and two-pass absolute/relative gated integration.
package loudness

import (
	"errors"
	"fmt"
	"math"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// Biquad filter coefficients.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Biquad filter state.
type biquadState struct {
	z1, z2 float64
}

func (s *biquadState) process(b *biquad, in float64) float64 {
	out := b.b0*in + s.z1
	s.z1 = b.b1*in - b.a1*out + s.z2
	s.z2 = b.b2*in - b.a2*out

	return out
}

// kWeightingFilters returns the pre-filter (high shelf modelling the
// acoustic effect of the head) and the RLB high-pass, designed from the
// BS.1770-4 analog prototypes at the given sample rate.
func kWeightingFilters(sampleRate int) (pre, rlb biquad) {
	fs := float64(sampleRate)

	// Pre-filter (high shelf).
	f0 := 1681.974450955533
	gain := 3.999843853973347
	q := 0.7071752369554196

	k := math.Tan(math.Pi * f0 / fs)
	vh := math.Pow(10, gain/20)
	vb := math.Pow(vh, 0.4996667741545416)

	a0 := 1 + k/q + k*k
	pre.b0 = (vh + vb*k/q + k*k) / a0
	pre.b1 = 2 * (k*k - vh) / a0
	pre.b2 = (vh - vb*k/q + k*k) / a0
	pre.a1 = 2 * (k*k - 1) / a0
	pre.a2 = (1 - k/q + k*k) / a0

	// RLB weighting (high pass).
	f0 = 38.13547087602444
	q = 0.5003270373238773

	k = math.Tan(math.Pi * f0 / fs)

	a0 = 1 + k/q + k*k
	rlb.b0 = 1 / a0
	rlb.b1 = -2 / a0
	rlb.b2 = 1 / a0
	rlb.a1 = 2 * (k*k - 1) / a0
	rlb.a2 = (1 - k/q + k*k) / a0

	return pre, rlb
}

var errSampleRate = errors.New("sample rate must be positive")

// Measure computes the gated integrated loudness of the buffer. Input
// shorter than one 400 ms block is treated as one block. Silence comes out
// near -120 LUFS; the orchestrator clamps to its documented output range.
func Measure(buf *types.AudioBuffer) (*types.LoudnessResult, error) {
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", errSampleRate, buf.SampleRate)
	}

	pre, rlb := kWeightingFilters(buf.SampleRate)

	var preState, rlbState biquadState

	weighted := make([]float64, len(buf.Samples))
	for i, s := range buf.Samples {
		filtered := preState.process(&pre, s)
		weighted[i] = rlbState.process(&rlb, filtered)
	}

	blockSize := buf.SampleRate * 400 / 1000 // 400ms
	hopSize := buf.SampleRate * 100 / 1000   // 100ms, 75% overlap

	var blockPowers []float64

	if len(weighted) < blockSize {
		blockPowers = append(blockPowers, meanSquare(weighted))
	} else {
		for pos := 0; pos+blockSize <= len(weighted); pos += hopSize {
			blockPowers = append(blockPowers, meanSquare(weighted[pos:pos+blockSize]))
		}
	}

	integrated, gatedCount := integrate(blockPowers)

	return &types.LoudnessResult{
		IntegratedLUFS: integrated,
		GatedBlocks:    gatedCount,
		TotalBlocks:    len(blockPowers),
	}, nil
}

func meanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s * s
	}

	return sum / float64(len(samples))
}

func blockLoudness(power float64) float64 {
	if power <= 0 {
		return math.Inf(-1)
	}

	return -0.691 + 10*math.Log10(power)
}

// integrate applies the two-pass EBU R128 gate: absolute at -70 LUFS, then
// relative at -10 LU below the mean of the surviving blocks.
func integrate(powers []float64) (lufs float64, gated int) {
	if len(powers) == 0 {
		return -120, 0
	}

	// First pass: absolute gate at -70 LUFS.
	var (
		sum   float64
		count int
	)

	for _, p := range powers {
		if blockLoudness(p) > -70 {
			sum += p
			count++
		}
	}

	if count == 0 {
		return -120, 0
	}

	// Relative threshold: -10 LU below ungated mean.
	relativeThreshold := blockLoudness(sum/float64(count)) - 10

	// Second pass: relative gate.
	sum = 0
	count = 0

	for _, p := range powers {
		if blockLoudness(p) > relativeThreshold {
			sum += p
			count++
		}
	}

	if count == 0 {
		return -120, 0
	}

	return blockLoudness(sum / float64(count)), count
}
