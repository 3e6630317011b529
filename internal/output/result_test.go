package output

import (
	"strings"
	"testing"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
)

func sampleResult() *musicanalysis.AnalysisResult {
	return &musicanalysis.AnalysisResult{
		Analyzed:        true,
		BPM:             124,
		Key:             "A",
		Mode:            "Minor",
		TimeSignature:   4,
		Energy:          0.8,
		Danceability:    0.9,
		Loudness:        -11.5,
		Characteristics: []string{"Bright", "Driving rhythm", "Compressed"},
		Mood:            "Energetic, Uplifting",
		Occasion:        []string{"Party", "Workout"},
		Subgenres:       []string{"House", "High Energy"},
		Era:             "2010s",
		CulturalContext: "European electronic tradition",
		Similarity:      musicanalysis.SimilarityVector{Harmonicity: 0.6, Rhythmicity: 0.4},
		Confidence:      0.82,
	}
}

func TestResultToMap(t *testing.T) {
	m := ResultToMap(sampleResult())

	for _, section := range []string{"analyzed", "rhythm", "harmony", "loudness", "perceptual", "similarity", "tags", "confidence"} {
		if _, ok := m[section]; !ok {
			t.Errorf("missing %q section", section)
		}
	}

	sim, ok := m["similarity"].(map[string]any)
	if !ok {
		t.Fatal("similarity section is not a map")
	}

	if sim["harmonicity"] != 0.6 || sim["rhythmicity"] != 0.4 {
		t.Errorf("similarity = %v, want the vector axes carried through", sim)
	}

	rhythm, ok := m["rhythm"].(map[string]any)
	if !ok {
		t.Fatal("rhythm section is not a map")
	}

	if rhythm["bpm"] != 124.0 || rhythm["time_signature"] != 4 {
		t.Errorf("rhythm = %v, want bpm 124 in 4/4", rhythm)
	}

	tags, ok := m["tags"].(map[string]any)
	if !ok {
		t.Fatal("tags section is not a map")
	}

	if tags["era"] != "2010s" {
		t.Errorf("era = %v, want 2010s", tags["era"])
	}
}

func TestSummary(t *testing.T) {
	got := Summary(sampleResult())

	for _, want := range []string{"124 BPM", "A Minor", "-11.5 dB", "Energetic"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}
