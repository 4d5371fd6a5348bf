package metrics

import "strings"

// NoOutput is the reason recorded when the comparison process produced
// nothing at all.
const NoOutput = "无输出"

// defaultKeywords are the failure markers every decoder harness prints.
// Codec-specific markers come in through the profile configuration.
var defaultKeywords = []string{
	"缺少对比输入参数",
	"未找到可解码音频流",
	"ffmpeg 解码失败",
	"打开输入失败",
	"单样本测试超时",
	"解析失败",
}

// ClassifyFailure produces a single-line failure reason from output that
// yielded no metrics. Non-empty lines are scanned in reverse so the most
// recent diagnostic wins; when no keyword matches, the last three lines are
// joined as a best-effort reason. Table delimiters are escaped so the reason
// can never corrupt the report's row structure.
func ClassifyFailure(output string, extraKeywords []string) string {
	var lines []string
	for _, ln := range strings.Split(output, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return NoOutput
	}

	keywords := make([]string, 0, len(defaultKeywords)+len(extraKeywords))
	keywords = append(keywords, defaultKeywords...)
	keywords = append(keywords, extraKeywords...)

	for i := len(lines) - 1; i >= 0; i-- {
		for _, k := range keywords {
			if strings.Contains(lines[i], k) {
				return escapeCell(lines[i])
			}
		}
	}

	tail := lines
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	escaped := make([]string, len(tail))
	for i, ln := range tail {
		escaped[i] = escapeCell(ln)
	}
	return strings.Join(escaped, " / ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}
