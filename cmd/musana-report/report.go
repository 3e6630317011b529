//nolint:wrapcheck
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/decode"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/integration/ffmpeg"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/integration/ffprobe"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/store"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

const outputFile = "musana-report.jsonl"

var (
	errNotDirectory  = errors.New("not a directory")
	errNoAudioFiles  = errors.New("no supported audio files found")
	errNoAudioStream = errors.New("no audio streams found")
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Scan a music collection and write a JSONL analysis report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite store path; results are persisted by content digest",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one argument: folder path")
			}

			folder := cmd.Args().First()
			redact := cmd.Bool("redact-path")
			workers := max(cmd.Int("workers"), 1)

			return runReport(ctx, folder, redact, workers, cmd.String("db"))
		},
	}
}

func runReport(ctx context.Context, folder string, redact bool, workers int, dbPath string) error {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", folder, errNotDirectory)
	}

	files, err := collectAudioFiles(folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", folder, errNoAudioFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to analyze (%d workers)\n", len(files), workers)

	var db *store.Store

	if dbPath != "" {
		db, err = store.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	// Process files concurrently.
	startTime := time.Now()
	results := make([]Record, len(files))

	var progress atomic.Int64

	sem := make(chan struct{}, workers)

	var waitGroup sync.WaitGroup

	for idx, filePath := range files {
		waitGroup.Add(1)

		go func(idx int, filePath string) {
			defer waitGroup.Done()

			sem <- struct{}{}

			defer func() { <-sem }()

			results[idx] = processFile(ctx, filePath, db)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)
		}(idx, filePath)
	}

	waitGroup.Wait()

	// Write results in file order.
	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	var totalDecode, totalAnalyze time.Duration

	for idx := range results {
		record := &results[idx]

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalDecode += millisToDuration(record.Timing.DecodeMs)
			totalAnalyze += millisToDuration(record.Timing.AnalyzeMs)
		}

		if redact {
			record.File = ""
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "file", files[idx], "error", err)
		}
	}

	out.Close()

	if err := compressFile(outputFile); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60

	fmt.Fprintf(os.Stderr, "\nDone: %d files in %dm %ds (%d failed)\n", len(files), minutes, seconds, failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", outputFile, outputFile)

	analyzed := len(files) - failed

	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  decode:      %s (cumulative)\n", totalDecode.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  analysis:    %s (cumulative)\n", totalAnalyze.Truncate(time.Millisecond))

	if analyzed > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s (decode: %s, analyze: %s)\n",
			(totalDecode+totalAnalyze)/time.Duration(analyzed),
			totalDecode/time.Duration(analyzed),
			totalAnalyze/time.Duration(analyzed),
		)
	}

	// Print digest summary.
	fmt.Fprintln(os.Stderr)

	return runDigest(outputFile)
}

func processFile(ctx context.Context, filePath string, db *store.Store) Record {
	fileStart := time.Now()
	timing := &RecordTiming{}

	data, err := os.ReadFile(filePath) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("open failed: %v", err)}
	}

	digest, err := store.Digest(bytes.NewReader(data))
	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("digest failed: %v", err)}
	}

	// Reuse a stored result when the content is unchanged.
	if db != nil {
		if cached, err := db.Get(ctx, digest); err == nil {
			timing.TotalMs = durationMs(time.Since(fileStart))

			return Record{File: filePath, Digest: digest, Analysis: cached, Timing: timing}
		}
	}

	decodeStart := time.Now()

	buffer, err := decodeFile(ctx, filePath, data)

	timing.DecodeMs = durationMs(time.Since(decodeStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("decode failed: %v", err), Timing: timing}
	}

	analyzeStart := time.Now()

	result, err := musicanalysis.AnalyzeContext(ctx, buffer, musicanalysis.DefaultOptions())

	timing.AnalyzeMs = durationMs(time.Since(analyzeStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("analysis failed: %v", err), Timing: timing}
	}

	if db != nil {
		if err := db.Put(ctx, digest, filePath, result); err != nil {
			slog.Error("storing result", "file", filePath, "error", err)
		}
	}

	return Record{File: filePath, Digest: digest, Analysis: result, Timing: timing}
}

// decodeFile picks the decode path by extension: WAV natively, everything
// else through ffprobe and ffmpeg.
func decodeFile(ctx context.Context, filePath string, data []byte) (*types.AudioBuffer, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".wav") {
		buffer, _, err := decode.WAV(bytes.NewReader(data))

		return buffer, err
	}

	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("probing: %w", err)
	}

	stream, err := firstAudioStream(probeResult)
	if err != nil {
		return nil, err
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate from probe: %q", stream.SampleRate)
	}

	var pcmBuf bytes.Buffer

	if err := ffmpeg.ExtractMono(ctx, bytes.NewReader(data), &pcmBuf, 0, 0); err != nil {
		return nil, fmt.Errorf("extracting: %w", err)
	}

	return decode.PCMFloat32(pcmBuf.Bytes(), sampleRate)
}

func firstAudioStream(result *ffprobe.Result) (*ffprobe.Stream, error) {
	for i := range result.Streams {
		if result.Streams[i].CodecType == "audio" {
			return &result.Streams[i], nil
		}
	}

	return nil, errNoAudioStream
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".wav", ".flac", ".m4a", ".mp3", ".ogg":
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := gzWriter.Write(data); err != nil {
		return err
	}

	return gzWriter.Close()
}
