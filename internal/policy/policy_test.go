package policy

import (
	"testing"

	"github.com/tao-codec/coverage/internal/model"
)

var rowStates = map[string]RowState{
	"untested":          {Status: model.StatusPending},
	"success-full":      {Status: model.StatusSuccess, Precision: "100.00"},
	"success-imprecise": {Status: model.StatusSuccess, Precision: "87.30"},
	"failure":           {Status: model.StatusFailure},
	"skipped":           {Status: model.StatusSkipped},
}

func TestPendingByMode(t *testing.T) {
	want := map[Mode]map[string]bool{
		ModeResume: {
			"untested":          true,
			"success-full":      false,
			"success-imprecise": false,
			"failure":           false,
			"skipped":           false,
		},
		ModeRetestFailed: {
			"untested":          false,
			"success-full":      false,
			"success-imprecise": false,
			"failure":           true,
			"skipped":           false,
		},
		ModeRetestImprecise: {
			"untested":          true,
			"success-full":      false,
			"success-imprecise": true,
			"failure":           true,
			"skipped":           false,
		},
		ModeRetestAll: {
			"untested":          true,
			"success-full":      true,
			"success-imprecise": true,
			"failure":           true,
			"skipped":           false,
		},
	}

	for mode, table := range want {
		sel := Selection{Mode: mode}
		for name, pending := range table {
			if got := sel.Pending(1, rowStates[name]); got != pending {
				t.Errorf("mode %d, row %s: Pending = %v, want %v", mode, name, got, pending)
			}
		}
	}
}

func TestPendingIndexList(t *testing.T) {
	sel := Selection{Mode: ModeResume, Indexes: []int{2, 5}}

	// Listed rows run regardless of prior status.
	if !sel.Pending(2, rowStates["success-full"]) {
		t.Error("listed settled row should be pending")
	}
	if !sel.Pending(5, rowStates["failure"]) {
		t.Error("listed failed row should be pending")
	}
	// Unlisted rows never run, even when untested.
	if sel.Pending(1, rowStates["untested"]) {
		t.Error("unlisted untested row should be settled")
	}
}

func TestPendingHardSkipPrecedence(t *testing.T) {
	hardSkipped := RowState{Status: model.StatusSkipped, HardSkipped: true}

	// A hard skip wins over every mode and over an explicit index list.
	for _, sel := range []Selection{
		{Mode: ModeRetestAll},
		{Mode: ModeResume, Indexes: []int{1}},
	} {
		if sel.Pending(1, hardSkipped) {
			t.Errorf("hard-skipped row pending under %+v", sel)
		}
	}

	// IncludeSkipped overrides the exclusion.
	sel := Selection{Mode: ModeRetestAll, IncludeSkipped: true}
	if !sel.Pending(1, hardSkipped) {
		t.Error("hard-skipped row should be pending with IncludeSkipped")
	}
}

func TestPendingIncludeSkippedStatus(t *testing.T) {
	sel := Selection{Mode: ModeRetestAll}
	if sel.Pending(1, rowStates["skipped"]) {
		t.Error("跳过 row should stay settled by default")
	}
	sel.IncludeSkipped = true
	if !sel.Pending(1, rowStates["skipped"]) {
		t.Error("跳过 row should be pending with IncludeSkipped")
	}
}

func TestFullPrecision(t *testing.T) {
	cases := []struct {
		cell string
		want bool
	}{
		{"100.00", true},
		{"100", true},
		{"99.999999999999", true}, // within rendering epsilon
		{"99.99", false},
		{"87.30", false},
		{"", false},
		{"n/a", false},
	}
	for _, tc := range cases {
		if got := FullPrecision(tc.cell); got != tc.want {
			t.Errorf("FullPrecision(%q) = %v, want %v", tc.cell, got, tc.want)
		}
	}
}
