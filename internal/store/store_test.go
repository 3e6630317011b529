package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "analyses.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func sampleResult(bpm float64) *musicanalysis.AnalysisResult {
	return &musicanalysis.AnalysisResult{
		Analyzed:        true,
		BPM:             bpm,
		Key:             "A",
		Mode:            "Minor",
		TimeSignature:   4,
		Energy:          0.8,
		Loudness:        -11.5,
		Characteristics: []string{"Bright", "Driving rhythm", "Compressed"},
		Mood:            "Energetic, Uplifting",
		Occasion:        []string{"Party", "Workout"},
		Subgenres:       []string{"House", "High Energy"},
		Era:             "2010s",
		CulturalContext: "European electronic tradition",
		Confidence:      0.82,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sampleResult(124)

	if err := s.Put(ctx, "digest-1", "/music/track.wav", want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "digest-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.BPM != want.BPM || got.Key != want.Key || got.Confidence != want.Confidence {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if len(got.Characteristics) != 3 || got.Characteristics[0] != "Bright" {
		t.Errorf("characteristics did not survive the round trip: %v", got.Characteristics)
	}
}

func TestGetMissingDigest(t *testing.T) {
	s := testStore(t)

	_, err := s.Get(context.Background(), "no-such-digest")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "digest-1", "/a.wav", sampleResult(100)); err != nil {
		t.Fatalf("first put: %v", err)
	}

	if err := s.Put(ctx, "digest-1", "/b.wav", sampleResult(140)); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, "digest-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.BPM != 140 {
		t.Errorf("bpm = %v, want the replacing row's 140", got.BPM)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(entries) != 1 {
		t.Errorf("%d entries after overwrite, want exactly 1", len(entries))
	}

	if entries[0].Path != "/b.wav" {
		t.Errorf("path = %q, want the replacing row's /b.wav", entries[0].Path)
	}
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, digest := range []string{"d1", "d2", "d3"} {
		if err := s.Put(ctx, digest, "/t.wav", sampleResult(float64(100+i))); err != nil {
			t.Fatalf("put %s: %v", digest, err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("%d entries, want 3", len(entries))
	}

	for _, e := range entries {
		if e.Result == nil || e.Digest == "" {
			t.Errorf("incomplete entry: %+v", e)
		}
	}
}

func TestDigest(t *testing.T) {
	first, err := Digest(strings.NewReader("same content"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	second, err := Digest(strings.NewReader("same content"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	if first != second {
		t.Error("identical content should produce identical digests")
	}

	if len(first) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(first))
	}

	other, err := Digest(strings.NewReader("different content"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	if other == first {
		t.Error("different content should produce different digests")
	}
}
