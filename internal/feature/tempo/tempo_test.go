package tempo

import (
	"math"
	"testing"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

const hopSeconds = 512.0 / 44100.0

// impulseFlux builds a flux envelope of frames length with unit impulses
// every period frames, starting at period.
func impulseFlux(frames, period int) *types.SpectralResult {
	flux := make([]float64, frames)

	for i := period; i < frames-1; i += period {
		flux[i] = 1.0
	}

	return &types.SpectralResult{Flux: flux, HopSeconds: hopSeconds}
}

func TestEstimateImpulseTrain(t *testing.T) {
	// Impulses every 43 hops, roughly 0.5 s apart, imply 120 BPM.
	result := Estimate(impulseFlux(400, 43))

	if math.Abs(result.BPM-120) > 5 {
		t.Errorf("bpm = %.1f, want near 120", result.BPM)
	}

	if result.Confidence < 0.5 {
		t.Errorf("confidence = %.2f, want strong periodicity above 0.5", result.Confidence)
	}

	if len(result.OnsetTimes) < 7 {
		t.Errorf("detected %d onsets, want at least 7", len(result.OnsetTimes))
	}

	for i := 1; i < len(result.OnsetTimes); i++ {
		if result.OnsetTimes[i] <= result.OnsetTimes[i-1] {
			t.Fatal("onset times not strictly increasing")
		}
	}

	if result.OnsetDensity < 1.5 || result.OnsetDensity > 2.5 {
		t.Errorf("onset density = %.2f/s, want near 2", result.OnsetDensity)
	}
}

func TestEstimateEmptyFluxDefaults(t *testing.T) {
	result := Estimate(&types.SpectralResult{HopSeconds: hopSeconds})

	if result.BPM != DefaultBPM {
		t.Errorf("bpm = %v, want default %v", result.BPM, DefaultBPM)
	}

	if result.Confidence != 0.1 {
		t.Errorf("confidence = %v, want 0.1", result.Confidence)
	}

	if result.TimeSignature != 4 {
		t.Errorf("time signature = %d, want 4", result.TimeSignature)
	}
}

func TestEstimateSlowPulseFoldsIntoRange(t *testing.T) {
	// Impulses 1.5 s apart imply 40 BPM, which folds up to 80.
	result := Estimate(impulseFlux(800, 129))

	if result.BPM < MinBPM || result.BPM > MaxBPM {
		t.Errorf("bpm = %.1f outside [%v, %v]", result.BPM, MinBPM, MaxBPM)
	}

	if math.Abs(result.BPM-80) > 5 {
		t.Errorf("bpm = %.1f, want near 80 after octave folding", result.BPM)
	}
}

func TestVoteBPMTieBreaksLower(t *testing.T) {
	// One 0.5 s interval and one 0.4 s interval: one vote each for 120
	// and 150, the tie resolves to the lower tempo.
	bpm, ok := voteBPM([]float64{0, 0.5, 0.9})
	if !ok {
		t.Fatal("expected a vote")
	}

	if bpm != 120 {
		t.Errorf("bpm = %v, want 120", bpm)
	}
}

func TestVoteBPMIgnoresOutOfRangeIntervals(t *testing.T) {
	if _, ok := voteBPM([]float64{0, 0.05, 2.6}); ok {
		t.Error("expected no vote from implausible intervals")
	}
}

func TestFoldToRange(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{30, 60},
		{240, 120},
		{500, 125},
		{90, 90},
	}

	for _, c := range cases {
		if got := foldToRange(c.in); got != c.want {
			t.Errorf("foldToRange(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestEstimateTripleMeter(t *testing.T) {
	// Onset strengths cycle strong-weak-weak once the faint in-between
	// onsets drag the beat threshold down.
	flux := make([]float64, 400)
	cycle := []float64{5, 0.1, 2, 0.1, 2, 0.1}

	for i, pos := 0, 12; pos < len(flux)-1; i, pos = i+1, pos+12 {
		flux[pos] = cycle[i%len(cycle)]
	}

	result := Estimate(&types.SpectralResult{Flux: flux, HopSeconds: hopSeconds})

	if result.TimeSignature != 3 {
		t.Errorf("time signature = %d, want 3", result.TimeSignature)
	}
}

func TestEstimateUniformBeatsReadAsCommonTime(t *testing.T) {
	result := Estimate(impulseFlux(400, 43))

	if result.TimeSignature != 4 {
		t.Errorf("time signature = %d, want 4", result.TimeSignature)
	}
}
