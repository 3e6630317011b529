// Package decode turns encoded audio into the mono float buffer the
// analysis pipeline consumes. WAV files are decoded natively; everything
// else arrives as raw f32le PCM from the ffmpeg integration.
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/farcloser/primordium/fault"
	"github.com/go-audio/wav"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

var (
	errNotWAV     = errors.New("not a valid wav file")
	errNoSamples  = errors.New("no samples decoded")
	errOddPCMSize = errors.New("pcm byte length not a multiple of 4")
)

// WAV decodes a RIFF/WAVE stream into a mono AudioBuffer plus the source
// format description. Multi-channel input is downmixed by averaging.
func WAV(r io.ReadSeeker) (*types.AudioBuffer, *types.PCMFormat, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, nil, errNotWAV
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	if pcm == nil || len(pcm.Data) == 0 {
		return nil, nil, errNoSamples
	}

	channels := pcm.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float64(v) / scale
	}

	buf := &types.AudioBuffer{
		Samples:    Downmix(samples, channels),
		SampleRate: pcm.Format.SampleRate,
	}

	format := &types.PCMFormat{
		SampleRate: pcm.Format.SampleRate,
		BitDepth:   types.BitDepth(bitDepth), //nolint:gosec // 16/24/32 only
		Channels:   uint(channels),           //nolint:gosec // validated positive value
	}

	return buf, format, nil
}

// PCMFloat32 parses raw little-endian 32-bit float PCM, the format the
// ffmpeg extraction emits. Input is expected to already be mono.
func PCMFloat32(data []byte, sampleRate int) (*types.AudioBuffer, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", errOddPCMSize, len(data))
	}

	if len(data) == 0 {
		return nil, errNoSamples
	}

	samples := make([]float64, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}

	return &types.AudioBuffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Downmix collapses interleaved multi-channel samples to mono by
// averaging each frame. Mono input passes through untouched.
func Downmix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float64, frames)

	for frame := range frames {
		var sum float64
		for ch := range channels {
			sum += samples[frame*channels+ch]
		}

		mono[frame] = sum / float64(channels)
	}

	return mono
}
