package match

import (
	"regexp"
	"sort"
	"strings"
)

// bankColumns holds one question bank's resolved column roles. Banks carry
// wildly different layouts, so resolution is header-driven per file with
// positional fallbacks when headers are absent.
type bankColumns struct {
	question    int
	qtype       int
	options     []optionCol
	answer      int
	explanation int
}

type optionCol struct {
	label string
	idx   int
}

var (
	optionABRe     = regexp.MustCompile(`^[AaBb]$`)
	optionPrefixRe = regexp.MustCompile(`(?i)^选项[A-E]$`)
	optionSuffixRe = regexp.MustCompile(`(?i)^[A-E]选项$`)
	optionCDERe    = regexp.MustCompile(`^[CcDdEe]$`)
	spaceReplacer  = strings.NewReplacer(" ", "", "\t", "", "　", "")
	optionStripper = strings.NewReplacer("选项", "")
)

func resolveColumns(headers []string) bankColumns {
	trimmed := make([]string, len(headers))
	lowered := make([]string, len(headers))
	for i, h := range headers {
		trimmed[i] = strings.TrimSpace(h)
		lowered[i] = strings.ToLower(trimmed[i])
	}

	cols := bankColumns{question: -1, qtype: -1, answer: -1, explanation: -1}

	for i, h := range lowered {
		if strings.Contains(h, "题目") || strings.Contains(h, "题干") || strings.Contains(h, "试题") {
			cols.question = i
			break
		}
	}
	if cols.question < 0 {
		cols.question = 0
	}

	for i, h := range lowered {
		if strings.Contains(h, "题型") || (strings.Contains(h, "类型") && !strings.Contains(h, "设备")) {
			cols.qtype = i
			break
		}
	}

	for i, h := range trimmed {
		normalized := spaceReplacer.Replace(h)
		switch {
		case optionABRe.MatchString(normalized), optionCDERe.MatchString(normalized):
			cols.options = append(cols.options, optionCol{label: strings.ToUpper(normalized), idx: i})
		case optionPrefixRe.MatchString(normalized), optionSuffixRe.MatchString(normalized):
			label := strings.ToUpper(optionStripper.Replace(normalized))
			cols.options = append(cols.options, optionCol{label: label, idx: i})
		}
	}
	sort.SliceStable(cols.options, func(a, b int) bool {
		return cols.options[a].label < cols.options[b].label
	})

	for i, h := range lowered {
		if strings.Contains(h, "答案") || strings.Contains(h, "正确") {
			cols.answer = i
			break
		}
	}
	for i, h := range lowered {
		if strings.Contains(h, "解析") || strings.Contains(h, "说明") || strings.Contains(h, "解释") {
			cols.explanation = i
			break
		}
	}

	// Positional fallbacks for headerless or terse banks.
	if cols.answer < 0 && len(cols.options) > 0 {
		cols.answer = cols.options[len(cols.options)-1].idx + 1
	}
	if cols.answer < 0 && len(headers) >= 3 {
		cols.answer = len(headers) - 2
	}
	if cols.explanation < 0 && len(headers) >= 2 {
		cols.explanation = len(headers) - 1
	}

	return cols
}

type parsedQuestion struct {
	text        string
	qtype       string
	options     []string
	answer      string
	explanation string
}

func parseQuestion(row []string, cols bankColumns) parsedQuestion {
	var q parsedQuestion
	q.text = cell(row, cols.question)
	q.qtype = cell(row, cols.qtype)
	for _, o := range cols.options {
		if v := cell(row, o.idx); v != "" {
			q.options = append(q.options, o.label+"."+v)
		}
	}
	q.answer = cell(row, cols.answer)
	q.explanation = cell(row, cols.explanation)
	return q
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
