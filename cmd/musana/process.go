//nolint:wrapcheck
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/decode"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/integration/ffmpeg"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/integration/ffprobe"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

var errProcessArgs = errors.New("expected exactly one argument: file path")

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Decode any audio container via ffmpeg and analyze its musical features",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "stream",
				Usage: "Audio stream index (0-based)",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "sample-rate",
				Usage: "Resample to this rate before analysis (0 = keep source rate)",
				Value: 0,
			},
			&cli.DurationFlag{
				Name:  "budget",
				Usage: "Hard time limit per track",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: console, json, markdown",
				Value:   "console",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite cache path; reuses stored results by content digest",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errProcessArgs, cmd.NArg())
			}

			filePath := cmd.Args().First()
			streamIndex := cmd.Int("stream")

			data, err := os.ReadFile(filePath) //nolint:gosec // CLI tool opens user-specified audio files
			if err != nil {
				return fmt.Errorf("cannot access %s: %w", filePath, err)
			}

			cache, digest, err := openCache(cmd.String("db"), data)
			if err != nil {
				return err
			}

			if cache != nil {
				defer cache.Close()

				if cached, err := cache.Get(ctx, digest); err == nil {
					return outputResult(filePath, cached, cmd.String("format"))
				}
			}

			buffer, err := extractBuffer(ctx, data, filePath, streamIndex, cmd.Int("sample-rate"))
			if err != nil {
				return err
			}

			opts := musicanalysis.DefaultOptions()
			opts.Budget = cmd.Duration("budget")

			result, err := musicanalysis.AnalyzeContext(ctx, buffer, opts)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if cache != nil {
				if err := cache.Put(ctx, digest, filePath, result); err != nil {
					return fmt.Errorf("caching result: %w", err)
				}
			}

			return outputResult(filePath, result, cmd.String("format"))
		},
	}
}

// extractBuffer probes the container, decodes the selected audio stream to
// mono f32le via ffmpeg, and wraps the PCM into an analysis buffer.
func extractBuffer(
	ctx context.Context,
	data []byte,
	filePath string,
	streamIndex, targetRate int,
) (*types.AudioBuffer, error) {
	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("probing file: %w", err)
	}

	stream, err := findAudioStream(probeResult, streamIndex)
	if err != nil {
		return nil, err
	}

	sampleRate := targetRate
	if sampleRate <= 0 {
		sampleRate, err = strconv.Atoi(stream.SampleRate)
		if err != nil || sampleRate <= 0 {
			return nil, fmt.Errorf("invalid sample rate from probe: %q", stream.SampleRate)
		}
	}

	var pcmBuf bytes.Buffer

	if err := ffmpeg.ExtractMono(ctx, bytes.NewReader(data), &pcmBuf, streamIndex, targetRate); err != nil {
		return nil, fmt.Errorf("extracting PCM: %w", err)
	}

	return decode.PCMFloat32(pcmBuf.Bytes(), sampleRate)
}

func findAudioStream(result *ffprobe.Result, streamIndex int) (*ffprobe.Stream, error) {
	audioCount := 0

	for i := range result.Streams {
		if result.Streams[i].CodecType == "audio" {
			if audioCount == streamIndex {
				return &result.Streams[i], nil
			}

			audioCount++
		}
	}

	return nil, fmt.Errorf("audio stream index %d not found (file has %d audio streams)", streamIndex, audioCount)
}
