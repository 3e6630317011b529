package perceptual

import (
	"math"
	"testing"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

func silentInputs() Inputs {
	return Inputs{
		Buffer:   &types.AudioBuffer{Samples: make([]float64, 44100), SampleRate: 44100},
		Spectral: &types.SpectralResult{},
		Chroma:   &types.ChromaResult{},
		Tempo:    &types.TempoResult{BPM: 120, Confidence: 0.1, TimeSignature: 4},
		Loudness: &types.LoudnessResult{IntegratedLUFS: -120},
		Quality:  &types.QualityResult{},
	}
}

func TestDeriveSilence(t *testing.T) {
	result := Derive(silentInputs())

	if result.Energy != 0 || result.Danceability != 0 || result.Valence != 0 {
		t.Errorf("silent input should floor energy/danceability/valence, got %+v", result)
	}

	if result.Instrumentalness != 1 {
		t.Errorf("instrumentalness = %v, want 1 for silence", result.Instrumentalness)
	}

	if result.Mode != "Major" {
		t.Errorf("mode = %q, want the Major default", result.Mode)
	}
}

func TestDeriveModeMajorThird(t *testing.T) {
	chromaRes := &types.ChromaResult{Energy: 1}
	chromaRes.Chroma[0] = 0.5 // C
	chromaRes.Chroma[4] = 0.5 // E

	if got := deriveMode(chromaRes); got != "Major" {
		t.Errorf("mode = %q, want Major for a bare major third", got)
	}
}

func TestDeriveModeMinorThird(t *testing.T) {
	chromaRes := &types.ChromaResult{Energy: 1}
	chromaRes.Chroma[9] = 0.5 // A
	chromaRes.Chroma[0] = 0.5 // C

	if got := deriveMode(chromaRes); got != "Minor" {
		t.Errorf("mode = %q, want Minor for a bare minor third", got)
	}
}

func TestTempoSuitability(t *testing.T) {
	if got := tempoSuitability(120); got != 1.0 {
		t.Errorf("suitability(120) = %v, want 1.0", got)
	}

	if got := tempoSuitability(65); got != 0.3 {
		t.Errorf("suitability(65) = %v, want 0.3", got)
	}

	if tempoSuitability(120) <= tempoSuitability(190) {
		t.Error("dance tempo should outscore an extreme tempo")
	}
}

func TestRhythmRegularity(t *testing.T) {
	grid := []float64{0, 0.5, 1.0, 1.5, 2.0}
	if got := rhythmRegularity(grid); got != 1 {
		t.Errorf("regular grid = %v, want 1", got)
	}

	jittery := []float64{0, 0.3, 1.1, 1.3, 2.4}
	if got := rhythmRegularity(jittery); got >= rhythmRegularity(grid) {
		t.Errorf("jittery beats = %v, want below the regular grid", got)
	}

	if got := rhythmRegularity([]float64{0, 1}); got != 0 {
		t.Errorf("two beats = %v, want 0", got)
	}
}

func TestBeatStrength(t *testing.T) {
	uniform := &types.TempoResult{BeatStrengths: []float64{0.5, 0.5, 0.5}}
	if got := beatStrength(uniform); math.Abs(got-1) > 1e-9 {
		t.Errorf("uniform strong beats = %v, want 1", got)
	}

	if got := beatStrength(&types.TempoResult{}); got != 0 {
		t.Errorf("no beats = %v, want 0", got)
	}
}

func TestMajorHarmony(t *testing.T) {
	majorChord := &types.ChromaResult{Energy: 1}
	majorChord.Chroma[0] = 0.4 // C
	majorChord.Chroma[4] = 0.3 // E
	majorChord.Chroma[7] = 0.3 // G

	if got := majorHarmony(majorChord); got <= 0.5 {
		t.Errorf("major chord harmony = %v, want above 0.5", got)
	}

	minorChord := &types.ChromaResult{Energy: 1}
	minorChord.Chroma[9] = 0.4 // A
	minorChord.Chroma[0] = 0.3 // C
	minorChord.Chroma[4] = 0.3 // E

	if majorHarmony(minorChord) >= majorHarmony(majorChord) {
		t.Error("minor chord should not outscore major chord")
	}

	if got := majorHarmony(&types.ChromaResult{}); got != 0.5 {
		t.Errorf("empty chroma harmony = %v, want neutral 0.5", got)
	}
}

func TestValenceOrdersBrightAgainstDark(t *testing.T) {
	bright := silentInputs()
	bright.Spectral = &types.SpectralResult{
		TotalEnergy:  1,
		Centroid:     3500,
		Rolloff:      9000,
		AvgMagnitude: []float64{0, 1, 1, 1},
		BinHz:        4000,
	}
	bright.Chroma.Chroma[0] = 0.4
	bright.Chroma.Chroma[4] = 0.3
	bright.Chroma.Chroma[7] = 0.3
	bright.Chroma.Energy = 1
	bright.Tempo.BPM = 128

	dark := silentInputs()
	dark.Spectral = &types.SpectralResult{
		TotalEnergy:  1,
		Centroid:     600,
		Rolloff:      2000,
		AvgMagnitude: []float64{1, 1, 0, 0},
		BinHz:        4000,
	}
	dark.Chroma.Chroma[9] = 0.4
	dark.Chroma.Chroma[0] = 0.3
	dark.Chroma.Chroma[4] = 0.3
	dark.Chroma.Energy = 1
	dark.Tempo.BPM = 70

	brightResult := Derive(bright)
	darkResult := Derive(dark)

	if brightResult.Valence <= darkResult.Valence {
		t.Errorf("bright valence %v not above dark valence %v",
			brightResult.Valence, darkResult.Valence)
	}

	if brightResult.Valence <= 0.5 {
		t.Errorf("bright input valence = %v, want above 0.5", brightResult.Valence)
	}
}

func TestReverbScoreFromRT60(t *testing.T) {
	cases := []struct {
		rt60 float64
		want float64
	}{
		{1.2, 0.8},
		{0.35, 0.6},
		{0.15, 0.3},
		{0.05, 0.1},
	}

	for _, c := range cases {
		if got := reverbScoreFromRT60(c.rt60); got != c.want {
			t.Errorf("reverbScoreFromRT60(%v) = %v, want %v", c.rt60, got, c.want)
		}
	}
}

func TestDeriveOutputsStayInRange(t *testing.T) {
	in := silentInputs()
	in.Spectral = &types.SpectralResult{
		TotalEnergy:      5,
		Centroid:         2500,
		Rolloff:          8000,
		ZeroCrossingRate: 0.06,
		Flatness:         0.3,
		AvgMagnitude:     []float64{0.2, 0.5, 0.3, 0.1},
		BinHz:            4000,
	}
	in.Chroma.Chroma[0] = 0.5
	in.Chroma.Chroma[7] = 0.5
	in.Chroma.Energy = 1
	in.Quality = &types.QualityResult{DynamicRange: 0.6, SNRDb: 30}

	result := Derive(in)

	fields := map[string]float64{
		"energy":           result.Energy,
		"danceability":     result.Danceability,
		"valence":          result.Valence,
		"acousticness":     result.Acousticness,
		"instrumentalness": result.Instrumentalness,
		"speechiness":      result.Speechiness,
		"liveness":         result.Liveness,
	}

	for name, v := range fields {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Errorf("%s = %v, want within [0, 1]", name, v)
		}
	}

	if result.Mode != "Major" && result.Mode != "Minor" {
		t.Errorf("mode = %q, want Major or Minor", result.Mode)
	}
}
