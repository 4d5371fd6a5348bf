package model

import "testing"

func TestSettled(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusSuccess, true},
		{StatusFailure, true},
		{StatusSkipped, true},
		{Status("手工备注"), false}, // unknown cell content stays retestable
	}
	for _, tc := range cases {
		if got := tc.status.Settled(); got != tc.want {
			t.Errorf("Status(%q).Settled() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	if got := StatusPending.String(); got != "pending" {
		t.Errorf("pending String() = %q", got)
	}
	if got := StatusFailure.String(); got != "失败" {
		t.Errorf("failure String() = %q", got)
	}
}

func TestSampleDiff(t *testing.T) {
	m := Metrics{TaoSamples: 441, FFmpegSamples: 440}
	if got := m.SampleDiff(); got != 1 {
		t.Errorf("SampleDiff() = %d, want 1", got)
	}
}
