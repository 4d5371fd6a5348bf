package model

// Metrics is the structured result of one successful comparison. MaxErr, PSNR
// and Precision stay strings: they are copied verbatim into report cells, and
// PSNR may be a word sentinel ("inf") rather than a number.
type Metrics struct {
	TaoSamples    int
	FFmpegSamples int
	MaxErr        string
	PSNR          string
	Precision     string
}

// SampleDiff is the decoder-minus-reference sample count delta recorded in
// the 样本数差异 column.
func (m Metrics) SampleDiff() int {
	return m.TaoSamples - m.FFmpegSamples
}
