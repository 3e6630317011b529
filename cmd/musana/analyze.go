//nolint:wrapcheck
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/decode"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/store"
)

var errInvalidArgCount = errors.New("expected exactly one argument: file path or \"-\" for stdin")

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a WAV file and report its musical features",
		ArgsUsage: "<file | ->",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "window-size",
				Usage: "FFT window size in samples (power of two)",
				Value: 2048,
			},
			&cli.IntFlag{
				Name:  "hop-size",
				Usage: "FFT hop size in samples",
				Value: 512,
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
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			inputPath := cmd.Args().First()

			data, err := readInput(inputPath)
			if err != nil {
				return err
			}

			cache, digest, err := openCache(cmd.String("db"), data)
			if err != nil {
				return err
			}

			if cache != nil {
				defer cache.Close()

				if cached, err := cache.Get(ctx, digest); err == nil {
					return outputResult(inputPath, cached, cmd.String("format"))
				}
			}

			buffer, _, err := decode.WAV(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("decoding %s: %w", inputPath, err)
			}

			result, err := musicanalysis.AnalyzeContext(ctx, buffer, analysisOptions(cmd))
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if cache != nil {
				if err := cache.Put(ctx, digest, inputPath, result); err != nil {
					return fmt.Errorf("caching result: %w", err)
				}
			}

			return outputResult(inputPath, result, cmd.String("format"))
		},
	}
}

func analysisOptions(cmd *cli.Command) musicanalysis.Options {
	opts := musicanalysis.DefaultOptions()
	opts.WindowSize = cmd.Int("window-size")
	opts.HopSize = cmd.Int("hop-size")
	opts.Budget = cmd.Duration("budget")

	return opts
}

func readInput(source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(source) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", source, err)
	}

	return data, nil
}

// openCache opens the SQLite cache when a path is given and computes the
// content digest of the input. Both come back zero-valued when caching is
// disabled.
func openCache(dbPath string, data []byte) (*store.Store, string, error) {
	if dbPath == "" {
		return nil, "", nil
	}

	digest, err := store.Digest(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	cache, err := store.Open(dbPath)
	if err != nil {
		return nil, "", err
	}

	return cache, digest, nil
}
