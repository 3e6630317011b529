package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/integration/binary"
)

// ExtractMono decodes one audio stream from a container to raw mono f32le
// PCM at the given sample rate, the exact shape the analysis pipeline
// consumes. A non-positive sample rate keeps the source rate.
func ExtractMono(
	ctx context.Context,
	input io.Reader,
	output io.Writer,
	streamIndex int,
	sampleRate int,
) error {
	slog.Debug("ffmpeg.ExtractMono", "stream index", streamIndex, "stage", "start")

	ffmpegPath, found := binary.Available(name)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-i", "-",
		"-map", "0:a:" + strconv.Itoa(streamIndex),
		"-f", sampleFormat,
		"-acodec", codec,
		"-ac", "1",
	}

	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}

	args = append(args, "-v", "quiet", "-")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	cmd.Stdout = output
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.ExtractMono", "stream index", streamIndex, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.ExtractMono", "stream index", streamIndex, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	return nil
}
