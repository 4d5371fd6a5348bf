// Package status summarizes a coverage report for operators: row counts per
// status plus the successes still short of full precision.
package status

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tao-codec/coverage/internal/model"
	"github.com/tao-codec/coverage/internal/policy"
	"github.com/tao-codec/coverage/internal/report"
)

type Summary struct {
	Report    string `json:"report"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Success   int    `json:"success"`
	Failure   int    `json:"failure"`
	Skipped   int    `json:"skipped"`
	Imprecise int    `json:"imprecise"`
}

// Summarize counts rows by status. Imprecise counts successful rows whose
// recorded precision is below a fully passing 100.00%.
func Summarize(rep *report.Report) Summary {
	s := Summary{Total: rep.Len()}
	for idx := 1; idx <= rep.Len(); idx++ {
		row := rep.Row(idx)
		switch row.Status() {
		case model.StatusSuccess:
			s.Success++
			if !policy.FullPrecision(row.Precision()) {
				s.Imprecise++
			}
		case model.StatusFailure:
			s.Failure++
		case model.StatusSkipped:
			s.Skipped++
		default:
			s.Pending++
		}
	}
	return s
}

// Line renders the summary as a single line, used by watch mode.
func (s Summary) Line() string {
	return fmt.Sprintf("total=%d success=%d(imprecise=%d) failure=%d skipped=%d pending=%d",
		s.Total, s.Success, s.Imprecise, s.Failure, s.Skipped, s.Pending)
}

// Run loads the report and writes its summary to w, as text or JSON.
func Run(reportPath string, jsonOutput bool, w io.Writer) error {
	rep, err := report.Load(reportPath)
	if err != nil {
		return err
	}
	s := Summarize(rep)
	s.Report = reportPath

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	printSummary(w, s)
	return nil
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "report: %s\n", s.Report)
	fmt.Fprintf(w, "  total:     %d\n", s.Total)
	fmt.Fprintf(w, "  success:   %d (imprecise: %d)\n", s.Success, s.Imprecise)
	fmt.Fprintf(w, "  failure:   %d\n", s.Failure)
	fmt.Fprintf(w, "  skipped:   %d\n", s.Skipped)
	fmt.Fprintf(w, "  pending:   %d\n", s.Pending)
}
