// Package exempt applies maintainer-curated overrides to report rows: hard
// skips (never run) and reporting tolerances (ran, failed the strict
// threshold, reported as passing with the true value kept for traceability).
// The rule set is built once at startup and never mutated by a run.
package exempt

import (
	"fmt"
	"path"
	"strings"

	"github.com/tao-codec/coverage/internal/model"
	"github.com/tao-codec/coverage/internal/policy"
	"github.com/tao-codec/coverage/internal/report"
)

const (
	// DefaultSkipReason is recorded when a hard-skip rule carries no reason.
	DefaultSkipReason = "按规则跳过"
	// SkippedRemark marks a row forced to 跳过 by the pre-pass.
	SkippedRemark = "已跳过"
	// FullPrecisionCell is the displayed precision after a tolerance rewrite.
	FullPrecisionCell = "100.00"
)

// RuleSet holds the static exemption rules. Hard skips match by 1-based row
// index or by sample basename; tolerances match by basename only.
type RuleSet struct {
	skipByIndex map[int]string
	skipByBase  map[string]string
	tolByBase   map[string]string
}

func NewRuleSet() *RuleSet {
	return &RuleSet{
		skipByIndex: make(map[int]string),
		skipByBase:  make(map[string]string),
		tolByBase:   make(map[string]string),
	}
}

func (rs *RuleSet) AddSkipIndex(idx int, reason string) {
	rs.skipByIndex[idx] = reason
}

func (rs *RuleSet) AddSkipSample(sample, reason string) {
	rs.skipByBase[sample] = reason
}

func (rs *RuleSet) AddTolerance(sample, reason string) {
	rs.tolByBase[sample] = reason
}

// HardSkip reports whether the row is permanently excluded, and the reason to
// record. A rule without a reason falls back to DefaultSkipReason.
func (rs *RuleSet) HardSkip(idx int, url string) (string, bool) {
	if reason, ok := rs.skipByIndex[idx]; ok {
		return orDefault(reason), true
	}
	if reason, ok := rs.skipByBase[Basename(url)]; ok {
		return orDefault(reason), true
	}
	return "", false
}

// Tolerance reports whether the sample has a reporting-tolerance rule.
func (rs *RuleSet) Tolerance(url string) (string, bool) {
	reason, ok := rs.tolByBase[Basename(url)]
	return reason, ok
}

func orDefault(reason string) string {
	if reason == "" {
		return DefaultSkipReason
	}
	return reason
}

// Basename extracts the sample file name from a locator, ignoring any query
// or fragment a download URL may carry.
func Basename(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}

// ApplyHardSkips is the pre-pass: every hard-skipped row not already marked
// with the matching reason is forced to 跳过 with its metric columns emptied.
// Idempotent; returns whether anything changed and therefore needs
// persisting.
func ApplyHardSkips(rep *report.Report, rs *RuleSet) bool {
	changed := false
	for idx := 1; idx <= rep.Len(); idx++ {
		row := rep.Row(idx)
		reason, ok := rs.HardSkip(idx, row.URL())
		if !ok {
			continue
		}
		if row.Status() == model.StatusSkipped && row.Reason() == reason {
			continue
		}
		row.SetStatus(model.StatusSkipped)
		row.SetReason(reason)
		row.ClearMetrics()
		row.SetRemark(SkippedRemark)
		changed = true
	}
	return changed
}

// ApplyTolerance is the post-pass: a successful row below full precision
// whose sample matches a tolerance rule is reported as fully passing, with
// the true value retained in the remark. max_err and psnr columns are left
// untouched. Returns whether the row was rewritten.
func ApplyTolerance(row report.RowView, rs *RuleSet) bool {
	if row.Status() != model.StatusSuccess {
		return false
	}
	reason, ok := rs.Tolerance(row.URL())
	if !ok || policy.FullPrecision(row.Precision()) {
		return false
	}
	remark := fmt.Sprintf("按容忍规则通过, 实际精度=%s%%", row.Precision())
	if reason != "" {
		remark = fmt.Sprintf("%s, 实际精度=%s%%", reason, row.Precision())
	}
	row.SetRemark(remark)
	row.SetPrecision(FullPrecisionCell)
	return true
}
