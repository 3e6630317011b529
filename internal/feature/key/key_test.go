package key

import (
	"math"
	"testing"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// profileChroma builds a chroma vector shaped like the given key profile,
// rotated so the tonic sits at root, and normalized to sum 1.
func profileChroma(profile [12]float64, root int) *types.ChromaResult {
	result := &types.ChromaResult{}

	var sum float64
	for _, v := range profile {
		sum += v
	}

	for i, v := range profile {
		result.Chroma[(i+root)%12] = v / sum
	}

	result.Energy = 1

	return result
}

func TestDetectMajorKeys(t *testing.T) {
	major := [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

	for root := range 12 {
		result := Detect(profileChroma(major, root))

		if result.Root != root || result.Mode != "Major" {
			t.Errorf("root %d: got %s %s, want %s Major", root, result.Key, result.Mode, names[root])
		}

		if result.Key != names[root] {
			t.Errorf("root %d: key name = %q, want %q", root, result.Key, names[root])
		}

		if result.Confidence <= 0 {
			t.Errorf("root %d: confidence = %v, want positive", root, result.Confidence)
		}
	}
}

func TestDetectMinorKey(t *testing.T) {
	minor := [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}

	result := Detect(profileChroma(minor, 9))

	if result.Key != "A" || result.Mode != "Minor" {
		t.Errorf("got %s %s, want A Minor", result.Key, result.Mode)
	}
}

// Template matching must compare profile shapes, not magnitudes: scaling
// the chroma vector cannot move the decision toward the template with the
// larger total mass.
func TestDetectScaleInvariant(t *testing.T) {
	major := [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}

	reference := Detect(profileChroma(major, 7))

	if reference.Key != "G" || reference.Mode != "Major" {
		t.Fatalf("got %s %s, want G Major", reference.Key, reference.Mode)
	}

	scaled := profileChroma(major, 7)
	for i := range scaled.Chroma {
		scaled.Chroma[i] *= 0.25
	}

	result := Detect(scaled)

	if result.Key != reference.Key || result.Mode != reference.Mode {
		t.Errorf("scaled chroma: got %s %s, want %s %s",
			result.Key, result.Mode, reference.Key, reference.Mode)
	}

	if math.Abs(result.Confidence-reference.Confidence) > 1e-9 {
		t.Errorf("scaled chroma confidence %v differs from %v",
			result.Confidence, reference.Confidence)
	}
}

func TestDetectSilence(t *testing.T) {
	result := Detect(&types.ChromaResult{})

	if result.Key != "C" || result.Mode != "Major" {
		t.Errorf("got %s %s, want the C Major fallback", result.Key, result.Mode)
	}

	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for silence", result.Confidence)
	}
}

func TestDetectConfidenceReflectsAmbiguity(t *testing.T) {
	major := [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	clear := Detect(profileChroma(major, 0))

	flat := &types.ChromaResult{Energy: 1}
	for i := range flat.Chroma {
		flat.Chroma[i] = 1.0 / 12.0
	}

	ambiguous := Detect(flat)

	if ambiguous.Confidence >= clear.Confidence {
		t.Errorf("flat chroma confidence %v not below clear profile confidence %v",
			ambiguous.Confidence, clear.Confidence)
	}
}
