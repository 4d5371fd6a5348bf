// Package report loads and persists the coverage report: a text document
// containing one pipe-delimited table with a fixed header, one data row per
// tracked sample, and arbitrary opaque text before and after the table.
package report

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tao-codec/coverage/internal/model"
)

// Table region markers. The header is located by prefix so the document may
// carry any amount of prose above the table.
const (
	HeaderPrefix = "| 序号 |"
	SepPrefix    = "| --- |"
)

// Column names as they appear in the header row. Column order in the document
// is free; positions are resolved once at load time.
const (
	ColIndex      = "序号"
	ColURL        = "URL"
	ColStatus     = "状态"
	ColReason     = "失败原因"
	ColTaoSamples = "Tao样本数"
	ColFFSamples  = "FFmpeg样本数"
	ColSampleDiff = "样本数差异"
	ColMaxErr     = "max_err"
	ColPSNR       = "psnr(dB)"
	ColPrecision  = "精度(%)"
	ColRemark     = "备注"
)

// RequiredColumns is the schema every report must carry; checked once at
// startup via RequireColumns.
var RequiredColumns = []string{
	ColIndex, ColURL, ColStatus, ColReason,
	ColTaoSamples, ColFFSamples, ColSampleDiff,
	ColMaxErr, ColPSNR, ColPrecision, ColRemark,
}

var (
	ErrMissingHeader    = errors.New("report header row not found")
	ErrMissingSeparator = errors.New("report separator row not found")
	ErrMissingColumn    = errors.New("report column missing")
)

// Report is the in-memory form of the document. Rows keep their on-disk
// order at all times; the row count never changes during a run.
type Report struct {
	path      string
	lines     []string // full document, table rows excluded
	headerIdx int
	sep       string
	rows      [][]string
	cols      map[string]int
}

// Load reads and parses the report document at path.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	r, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	r.path = path
	return r, nil
}

// Parse parses a report document from memory. Used by Load and by watch/status
// readers that already hold the bytes.
func Parse(doc string) (*Report, error) {
	doc = strings.TrimSuffix(doc, "\n")
	lines := strings.Split(doc, "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(line, HeaderPrefix) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 || headerIdx+1 >= len(lines) {
		return nil, ErrMissingHeader
	}

	header := splitRow(lines[headerIdx])
	sep := lines[headerIdx+1]
	if !strings.HasPrefix(sep, SepPrefix) {
		return nil, ErrMissingSeparator
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	var rows [][]string
	end := headerIdx + 2
	for _, line := range lines[headerIdx+2:] {
		if !strings.HasPrefix(line, "|") {
			break
		}
		cells := splitRow(line)
		if len(cells) == 0 {
			break
		}
		rows = append(rows, cells)
		end++
	}

	// Keep prefix and suffix verbatim; the table body is regenerated on write.
	kept := make([]string, 0, len(lines)-len(rows))
	kept = append(kept, lines[:headerIdx+1]...)
	kept = append(kept, lines[end:]...)

	return &Report{
		lines:     kept,
		headerIdx: headerIdx,
		sep:       sep,
		rows:      rows,
		cols:      cols,
	}, nil
}

// splitRow splits a pipe-delimited row into trimmed cells, discarding the
// empty leading/trailing cells the delimiters produce. Inverse of formatRow.
func splitRow(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 3 {
		return nil
	}
	cells := parts[1 : len(parts)-1]
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

func formatRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// RequireColumns fails fast when any of the named columns is absent from the
// header. Run once at startup, before any subprocess is spawned.
func (r *Report) RequireColumns(names ...string) error {
	for _, name := range names {
		if _, ok := r.cols[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// Len returns the number of data rows.
func (r *Report) Len() int {
	return len(r.rows)
}

// Row returns a typed view over the 1-based row idx. The view mutates the
// report's backing cells in place.
func (r *Report) Row(idx int) RowView {
	return RowView{cells: r.rows[idx-1], cols: r.cols}
}

// Render reconstructs the full document: unchanged prefix, header, separator,
// one formatted line per row in original order, unchanged suffix.
func (r *Report) Render() string {
	out := make([]string, 0, len(r.lines)+len(r.rows)+1)
	out = append(out, r.lines[:r.headerIdx+1]...)
	out = append(out, r.sep)
	for _, cells := range r.rows {
		out = append(out, formatRow(cells))
	}
	out = append(out, r.lines[r.headerIdx+1:]...)
	return strings.Join(out, "\n") + "\n"
}

// Write persists the document atomically so a concurrent reader never
// observes a half-written table.
func (r *Report) Write() error {
	if r.path == "" {
		return errors.New("report has no backing file")
	}
	if err := atomicWrite(r.path, []byte(r.Render())); err != nil {
		return fmt.Errorf("write report %s: %w", r.path, err)
	}
	return nil
}

// RowView exposes named accessors over one row, backed by the column index
// resolved from the header.
type RowView struct {
	cells []string
	cols  map[string]int
}

func (v RowView) get(col string) string {
	if i, ok := v.cols[col]; ok && i < len(v.cells) {
		return v.cells[i]
	}
	return ""
}

func (v RowView) set(col, value string) {
	if i, ok := v.cols[col]; ok && i < len(v.cells) {
		v.cells[i] = value
	}
}

func (v RowView) URL() string          { return v.get(ColURL) }
func (v RowView) Status() model.Status { return model.Status(v.get(ColStatus)) }
func (v RowView) Reason() string       { return v.get(ColReason) }
func (v RowView) Precision() string    { return v.get(ColPrecision) }
func (v RowView) Remark() string       { return v.get(ColRemark) }

func (v RowView) SetStatus(s model.Status) { v.set(ColStatus, string(s)) }
func (v RowView) SetReason(reason string)  { v.set(ColReason, reason) }
func (v RowView) SetRemark(remark string)  { v.set(ColRemark, remark) }
func (v RowView) SetPrecision(p string)    { v.set(ColPrecision, p) }

// SetMetrics fills the metric columns from a successful comparison.
func (v RowView) SetMetrics(m model.Metrics) {
	v.set(ColTaoSamples, fmt.Sprintf("%d", m.TaoSamples))
	v.set(ColFFSamples, fmt.Sprintf("%d", m.FFmpegSamples))
	v.set(ColSampleDiff, fmt.Sprintf("%d", m.SampleDiff()))
	v.set(ColMaxErr, m.MaxErr)
	v.set(ColPSNR, m.PSNR)
	v.set(ColPrecision, m.Precision)
}

// ClearMetrics empties the metric columns, used when a row is recorded as
// failed or skipped so stale numbers never survive next to a non-success
// status.
func (v RowView) ClearMetrics() {
	for _, col := range []string{ColTaoSamples, ColFFSamples, ColSampleDiff, ColMaxErr, ColPSNR, ColPrecision} {
		v.set(col, "")
	}
}
