//nolint:tagliatelle
package main

import (
	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
)

// Record is a single line in the JSONL report file.
type Record struct {
	File     string                        `json:"file,omitempty"`
	Digest   string                        `json:"digest,omitempty"`
	Analysis *musicanalysis.AnalysisResult `json:"analysis,omitempty"`
	Error    string                        `json:"error,omitempty"`
	Timing   *RecordTiming                 `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	DecodeMs  float64 `json:"decode_ms"`
	AnalyzeMs float64 `json:"analyze_ms"`
	TotalMs   float64 `json:"total_ms"`
}
