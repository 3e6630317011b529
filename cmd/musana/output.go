//nolint:wrapcheck
package main

import (
	"os"

	"github.com/farcloser/primordium/format"

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/output"
)

func outputResult(filePath string, result *musicanalysis.AnalysisResult, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	meta := output.ResultToMap(result)
	meta["summary"] = output.Summary(result)

	data := &format.Data{
		Object: filePath,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}
