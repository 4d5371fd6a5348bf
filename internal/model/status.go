// Package model defines the data structures shared across the coverage runner:
// row status values and comparison metrics.
package model

// Status is the recorded state of one sample row. The values are the literal
// cell contents of the report's 状态 column; an empty cell means the sample
// has never been tested.
type Status string

const (
	StatusPending Status = ""
	StatusSuccess Status = "成功"
	StatusFailure Status = "失败"
	StatusSkipped Status = "跳过"
)

var settledStatuses = map[Status]bool{
	StatusSuccess: true,
	StatusFailure: true,
	StatusSkipped: true,
}

// Settled reports whether a row carries a recorded outcome. Unknown cell
// contents are treated as pending so a hand-edited report is retested rather
// than silently ignored.
func (s Status) Settled() bool {
	return settledStatuses[s]
}

func (s Status) String() string {
	if s == StatusPending {
		return "pending"
	}
	return string(s)
}
