package match

import (
	"reflect"
	"testing"
)

func TestResolveColumnsLabeled(t *testing.T) {
	headers := []string{"序号", "题目", "题型", "A", "B", "C", "D", "答案", "解析"}
	cols := resolveColumns(headers)

	if cols.question != 1 {
		t.Errorf("question = %d, want 1", cols.question)
	}
	if cols.qtype != 2 {
		t.Errorf("qtype = %d, want 2", cols.qtype)
	}
	if cols.answer != 7 {
		t.Errorf("answer = %d, want 7", cols.answer)
	}
	if cols.explanation != 8 {
		t.Errorf("explanation = %d, want 8", cols.explanation)
	}
	want := []optionCol{{"A", 3}, {"B", 4}, {"C", 5}, {"D", 6}}
	if !reflect.DeepEqual(cols.options, want) {
		t.Errorf("options = %v, want %v", cols.options, want)
	}
}

func TestResolveColumnsOptionVariants(t *testing.T) {
	headers := []string{"试题内容", "选项A", "B选项", "正确答案", "说明"}
	cols := resolveColumns(headers)

	if cols.question != 0 {
		t.Errorf("question = %d, want 0", cols.question)
	}
	want := []optionCol{{"A", 1}, {"B", 2}}
	if !reflect.DeepEqual(cols.options, want) {
		t.Errorf("options = %v, want %v", cols.options, want)
	}
	if cols.answer != 3 {
		t.Errorf("answer = %d, want 3", cols.answer)
	}
	if cols.explanation != 4 {
		t.Errorf("explanation = %d, want 4", cols.explanation)
	}
}

func TestResolveColumnsPositionalFallback(t *testing.T) {
	headers := []string{"内容", "备注一", "备注二"}
	cols := resolveColumns(headers)

	if cols.question != 0 {
		t.Errorf("question = %d, want first column fallback", cols.question)
	}
	if cols.qtype != -1 {
		t.Errorf("qtype = %d, want -1", cols.qtype)
	}
	if cols.answer != 1 {
		t.Errorf("answer = %d, want second-to-last fallback", cols.answer)
	}
	if cols.explanation != 2 {
		t.Errorf("explanation = %d, want last-column fallback", cols.explanation)
	}
}

func TestResolveColumnsAnswerAfterOptions(t *testing.T) {
	headers := []string{"题干", "A", "B", "C", ""}
	cols := resolveColumns(headers)
	if cols.answer != 4 {
		t.Errorf("answer = %d, want column after last option", cols.answer)
	}
}

func TestResolveColumnsDeviceTypeNotQuestionType(t *testing.T) {
	cols := resolveColumns([]string{"题目", "设备类型", "答案"})
	if cols.qtype != -1 {
		t.Errorf("qtype = %d, want 设备类型 ignored", cols.qtype)
	}
}

func TestParseQuestion(t *testing.T) {
	cols := resolveColumns([]string{"题目", "题型", "A", "B", "C", "答案", "解析"})
	row := []string{" 信号机显示红色灯光表示什么？ ", "单选", "停车", "", "注意", "A", "红色为停车信号。"}

	q := parseQuestion(row, cols)
	if q.text != "信号机显示红色灯光表示什么？" {
		t.Errorf("text = %q", q.text)
	}
	if q.qtype != "单选" {
		t.Errorf("qtype = %q, want 单选", q.qtype)
	}
	// Empty option cells are dropped; kept ones carry "LABEL.value".
	want := []string{"A.停车", "C.注意"}
	if !reflect.DeepEqual(q.options, want) {
		t.Errorf("options = %v, want %v", q.options, want)
	}
	if q.answer != "A" {
		t.Errorf("answer = %q, want A", q.answer)
	}
	if q.explanation != "红色为停车信号。" {
		t.Errorf("explanation = %q", q.explanation)
	}
}

func TestParseQuestionShortRow(t *testing.T) {
	cols := resolveColumns([]string{"题目", "A", "B", "答案"})
	q := parseQuestion([]string{"只有题干"}, cols)
	if q.text != "只有题干" {
		t.Errorf("text = %q", q.text)
	}
	if len(q.options) != 0 || q.answer != "" || q.explanation != "" {
		t.Errorf("short row leaked values: %+v", q)
	}
}
