//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/farcloser/primordium/fault"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/integration/binary"
)

// Result contains the marshalled output of ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one stream in the container. Only the audio properties
// the pipeline cares about are mapped; everything else stays in the raw
// JSON and is dropped.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"` // flac, aac, pcm_s16le, ...
	CodecType     string `json:"codec_type"` // audio
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	ChannelLayout string `json:"channel_layout,omitempty"`
	Duration      string `json:"duration,omitempty"` // seconds as float string
	BitRate       string `json:"bit_rate,omitempty"`

	// Bit depth reporting is codec-dependent: FLAC/ALAC populate
	// bits_per_raw_sample, PCM containers populate bits_per_sample,
	// lossy codecs populate neither.
	BitsPerRawSample string `json:"bits_per_raw_sample,omitempty"`
	BitsPerSample    int    `json:"bits_per_sample,omitempty"`
}

// Format represents container-level information.
type Format struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"` // e.g. "flac", "mov,mp4,m4a,3gp,3g2,mj2"
	Duration   string `json:"duration,omitempty"`
	BitRate    string `json:"bit_rate,omitempty"`
	Size       string `json:"size,omitempty"`
	ProbeScore int    `json:"probe_score"` // format detection confidence, 100 = certain
}

// Probe runs ffprobe on the given file path and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, filePath string) (*Result, error) {
	slog.Debug("ffprobe.Probe", "file path", filePath)

	ffprobePath, found := binary.Available(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input for probing media files
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	var result Result
	if err = json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}
