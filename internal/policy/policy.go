// Package policy decides which report rows are pending (need (re)testing)
// and which are settled for this invocation. Decisions are pure functions of
// row state and run flags; nothing here mutates rows.
package policy

import (
	"strconv"

	"github.com/tao-codec/coverage/internal/model"
)

// Mode is the global run mode. Exactly one is active per invocation.
type Mode int

const (
	// ModeResume retests only rows that have never been tested.
	ModeResume Mode = iota
	// ModeRetestFailed retests rows whose status is 失败.
	ModeRetestFailed
	// ModeRetestImprecise retests failed rows, untested rows, and successes
	// below full precision.
	ModeRetestImprecise
	// ModeRetestAll retests every selected row regardless of prior state.
	ModeRetestAll
)

// Full precision is 100.00%; the epsilon absorbs the rounding applied when
// the percentage was rendered into the report cell.
const (
	fullPrecisionThreshold = 100.0
	precisionEpsilon       = 1e-9
)

// Selection carries the run-mode flags of one invocation.
type Selection struct {
	Mode           Mode
	Indexes        []int // explicit 1-based allow-list; empty means all rows
	IncludeSkipped bool
}

// RowState is the slice of row data the policy looks at.
type RowState struct {
	Status      model.Status
	Precision   string
	HardSkipped bool // matched a hard-skip exemption rule
}

// Pending reports whether the 1-based row idx needs testing this run.
//
// Precedence: a hard-skip rule wins over everything except IncludeSkipped;
// an explicit index list wins over run modes in both directions (listed rows
// run regardless of prior status, unlisted rows never run).
func (s Selection) Pending(idx int, row RowState) bool {
	if row.HardSkipped && !s.IncludeSkipped {
		return false
	}
	if len(s.Indexes) > 0 {
		return s.containsIndex(idx)
	}
	if row.Status == model.StatusSkipped && !s.IncludeSkipped {
		return false
	}

	switch s.Mode {
	case ModeRetestAll:
		return true
	case ModeRetestFailed:
		return row.Status == model.StatusFailure
	case ModeRetestImprecise:
		switch row.Status {
		case model.StatusFailure:
			return true
		case model.StatusSuccess:
			return !FullPrecision(row.Precision)
		default:
			return true
		}
	default:
		return !row.Status.Settled()
	}
}

func (s Selection) containsIndex(idx int) bool {
	for _, i := range s.Indexes {
		if i == idx {
			return true
		}
	}
	return false
}

// FullPrecision reports whether a recorded precision cell represents a fully
// passing 100.00%. Unparsable or empty cells count as imprecise.
func FullPrecision(cell string) bool {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return false
	}
	return v >= fullPrecisionThreshold-precisionEpsilon
}
