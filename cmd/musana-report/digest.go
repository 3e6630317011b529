package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
)

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a JSONL analysis report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tag",
				Usage: "List files carrying a specific tag (subgenre, characteristic, occasion, era or mood)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one argument: path to report.jsonl")
			}

			records, err := readRecords(cmd.Args().First())
			if err != nil {
				return err
			}

			printDigest(records)

			if tag := cmd.String("tag"); tag != "" {
				printTagDetail(records, tag)
			}

			return nil
		},
	}
}

func runDigest(reportPath string) error {
	records, err := readRecords(reportPath)
	if err != nil {
		return err
	}

	printDigest(records)

	return nil
}

func readRecords(path string) ([]Record, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	var records []Record

	scanner := bufio.NewScanner(file)

	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)

	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, Record{Error: "parse error"})

			continue
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

//nolint:gochecknoglobals
var bpmBuckets = []struct {
	label string
	lo    float64
	hi    float64
}{
	{"60-79   (slow)", 60, 80},
	{"80-99   (moderate)", 80, 100},
	{"100-119 (mid)", 100, 120},
	{"120-139 (dance)", 120, 140},
	{"140-159 (fast)", 140, 160},
	{"160-200 (very fast)", 160, 201},
}

func printDigest(records []Record) {
	total := len(records)
	failed := 0

	bpmDist := make([]int, len(bpmBuckets))
	keyDist := map[string]int{}
	modeDist := map[string]int{}
	moodDist := map[string]int{}
	eraDist := map[string]int{}
	genreDist := map[string]int{}

	var loudnessSum, confidenceSum float64

	for _, rec := range records {
		if rec.Error != "" || rec.Analysis == nil {
			failed++

			continue
		}

		a := rec.Analysis

		for i, bucket := range bpmBuckets {
			if a.BPM >= bucket.lo && a.BPM < bucket.hi {
				bpmDist[i]++

				break
			}
		}

		keyDist[a.Key+" "+a.Mode]++
		modeDist[a.Mode]++
		moodDist[a.Mood]++
		eraDist[a.Era]++

		for _, genre := range a.Subgenres {
			genreDist[genre]++
		}

		loudnessSum += a.Loudness
		confidenceSum += a.Confidence
	}

	analyzed := total - failed

	fmt.Println("=== Library Digest ===")
	fmt.Println()
	fmt.Printf("Total tracks:  %d\n", total)
	fmt.Printf("Failed:        %d\n", failed)
	fmt.Printf("Analyzed:      %d\n", analyzed)
	fmt.Println()

	if analyzed == 0 {
		return
	}

	fmt.Println("--- Tempo ---")

	for i, bucket := range bpmBuckets {
		if bpmDist[i] > 0 {
			fmt.Printf("  %s:  %d\n", bucket.label, bpmDist[i])
		}
	}

	fmt.Println()

	fmt.Println("--- Keys ---")
	printCounts(keyDist, 0)
	fmt.Println()

	fmt.Println("--- Mode ---")
	printCounts(modeDist, 0)
	fmt.Println()

	fmt.Println("--- Moods ---")
	printCounts(moodDist, 10)
	fmt.Println()

	fmt.Println("--- Eras ---")
	printCounts(eraDist, 0)
	fmt.Println()

	fmt.Println("--- Subgenres ---")
	printCounts(genreDist, 15)
	fmt.Println()

	fmt.Printf("Average loudness:    %.1f dB\n", loudnessSum/float64(analyzed))
	fmt.Printf("Average confidence:  %.2f\n", confidenceSum/float64(analyzed))
}

// printCounts prints a map of counts in descending order, truncated to
// limit entries (0 = all).
func printCounts(counts map[string]int, limit int) {
	type entry struct {
		label string
		count int
	}

	entries := make([]entry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, entry{label, count})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if a.count != b.count {
			return b.count - a.count
		}

		return strings.Compare(a.label, b.label)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	for _, e := range entries {
		fmt.Printf("  %-28s %d\n", e.label, e.count)
	}
}

func printTagDetail(records []Record, tag string) {
	fmt.Println()

	var matches []Record

	for _, rec := range records {
		if rec.Error != "" || rec.Analysis == nil {
			continue
		}

		if hasTag(rec, tag) {
			matches = append(matches, rec)
		}
	}

	if len(matches) == 0 {
		fmt.Printf("No tracks tagged %q\n", tag)

		return
	}

	fmt.Printf("=== %s: %d tracks ===\n\n", tag, len(matches))

	for _, rec := range matches {
		file := rec.File
		if file == "" {
			file = "(redacted)"
		}

		a := rec.Analysis
		fmt.Printf("  %s\n", file)
		fmt.Printf("    %.0f BPM %s %s  energy %.2f  confidence %.2f\n",
			a.BPM, a.Key, a.Mode, a.Energy, a.Confidence)
	}
}

func hasTag(rec Record, tag string) bool {
	a := rec.Analysis

	if strings.EqualFold(a.Era, tag) || strings.EqualFold(a.Mood, tag) {
		return true
	}

	for _, group := range [][]string{a.Characteristics, a.Subgenres, a.Occasion} {
		for _, t := range group {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
	}

	return false
}
