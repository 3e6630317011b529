package decode

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, channels int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating wav: %v", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, 44100, 16, channels, 1)

	frames := 4410
	data := make([]int, frames*channels)

	for frame := range frames {
		v := int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(frame)/44100))
		for ch := range channels {
			data[frame*channels+ch] = v
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing wav: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("closing wav: %v", err)
	}

	return path
}

func TestWAVDecode(t *testing.T) {
	path := writeTestWAV(t, 1)

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening wav: %v", err)
	}
	defer file.Close()

	buf, format, err := WAV(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", buf.SampleRate)
	}

	if len(buf.Samples) != 4410 {
		t.Errorf("decoded %d samples, want 4410", len(buf.Samples))
	}

	if format.Channels != 1 || format.BitDepth != 16 {
		t.Errorf("format = %+v, want mono 16-bit", format)
	}

	var peak float64
	for _, s := range buf.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}

		if s < -1 || s > 1 {
			t.Fatalf("sample %v outside [-1, 1]", s)
		}
	}

	if math.Abs(peak-0.5) > 0.01 {
		t.Errorf("peak = %.3f, want near 0.5", peak)
	}
}

func TestWAVStereoDownmixes(t *testing.T) {
	path := writeTestWAV(t, 2)

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening wav: %v", err)
	}
	defer file.Close()

	buf, format, err := WAV(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(buf.Samples) != 4410 {
		t.Errorf("downmixed to %d samples, want 4410 frames", len(buf.Samples))
	}

	if format.Channels != 2 {
		t.Errorf("source channels = %d, want 2", format.Channels)
	}
}

func TestWAVRejectsGarbage(t *testing.T) {
	if _, _, err := WAV(strings.NewReader("not a riff container at all")); err == nil {
		t.Error("expected error for non-wav input")
	}
}

func TestPCMFloat32RoundTrip(t *testing.T) {
	want := []float32{0, 0.5, -0.5, 1, -1, 0.25}

	data := make([]byte, len(want)*4)
	for i, v := range want {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	buf, err := PCMFloat32(data, 48000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", buf.SampleRate)
	}

	for i, v := range want {
		if buf.Samples[i] != float64(v) {
			t.Errorf("sample %d = %v, want %v", i, buf.Samples[i], v)
		}
	}
}

func TestPCMFloat32Errors(t *testing.T) {
	if _, err := PCMFloat32([]byte{1, 2, 3}, 44100); err == nil {
		t.Error("expected error for truncated pcm")
	}

	if _, err := PCMFloat32(nil, 44100); err == nil {
		t.Error("expected error for empty pcm")
	}
}

func TestDownmix(t *testing.T) {
	stereo := []float64{1, 0, 0.5, 0.5, -1, 1}

	mono := Downmix(stereo, 2)

	want := []float64{0.5, 0.5, 0}
	for i, v := range want {
		if mono[i] != v {
			t.Errorf("frame %d = %v, want %v", i, mono[i], v)
		}
	}

	passthrough := []float64{0.1, 0.2}
	if got := Downmix(passthrough, 1); &got[0] != &passthrough[0] {
		t.Error("mono input should pass through without copying")
	}
}
