// Package metrics turns raw comparison-tool output into structured metrics or
// a single-line failure reason. The upstream output format is free text the
// runner does not control, so both halves are openly best-effort.
package metrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tao-codec/coverage/internal/model"
)

// Cheap markers checked before the full pattern runs; a metrics line always
// carries both.
const (
	sampleMarker = "Tao对比样本="
	ratioMarker  = "Tao/FFmpeg:"
)

// metricsLine matches the comparison summary printed by the decoder harness.
// lag= is optional (only some codec harnesses emit it), max_err may use
// scientific notation, and psnr may be a word sentinel such as "inf".
var metricsLine = regexp.MustCompile(
	`Tao对比样本=(\d+), Tao=(\d+), FFmpeg=(\d+), (?:lag=[-+]?\d+, )?Tao/FFmpeg: ` +
		`max_err=([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?), ` +
		`psnr=([A-Za-z]+|[-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)dB, ` +
		`精度=([-+]?[0-9]*\.?[0-9]+)%`)

// Parse scans output line by line for the comparison summary and extracts its
// fields. Only the first matching line is used; ok is false when no line
// matches.
func Parse(output string) (m model.Metrics, ok bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, sampleMarker) || !strings.Contains(line, ratioMarker) {
			continue
		}
		sub := metricsLine.FindStringSubmatch(line)
		if sub == nil {
			continue
		}
		tao, err := strconv.Atoi(sub[2])
		if err != nil {
			continue
		}
		ff, err := strconv.Atoi(sub[3])
		if err != nil {
			continue
		}
		return model.Metrics{
			TaoSamples:    tao,
			FFmpegSamples: ff,
			MaxErr:        sub[4],
			PSNR:          sub[5],
			Precision:     normalizePrecision(sub[6]),
		}, true
	}
	return model.Metrics{}, false
}

// normalizePrecision re-renders the precision percentage with two fractional
// digits so report cells compare stably across harness versions.
func normalizePrecision(raw string) string {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%.2f", v)
}
