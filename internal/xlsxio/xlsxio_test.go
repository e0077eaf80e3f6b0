package xlsxio

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"safereport/internal/model"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]any, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatal(err)
			}
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "violations.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		"一月": {
			{"责任人", "部门", "问题描述"},
			{" 张某 ", "一车队", "未执行一站二看三通过"},
			{"", "", ""},
			{"李某", "二车队", "手册填记漏项"},
		},
		// Same layout, different column order: merged by header name.
		"二月": {
			{"问题描述", "责任人", "部门"},
			{"交接班未确认", "王某", "三车队"},
		},
		// Unrelated layout: ignored.
		"统计": {
			{"月份", "合计"},
			{"一月", "2"},
		},
	}, []string{"一月", "二月", "统计"})

	headers, rows, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"责任人", "部门", "问题描述"}
	for i := range want {
		if headers[i] != want[i] {
			t.Fatalf("headers = %v, want %v", headers, want)
		}
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (blank dropped, unrelated sheet ignored)", len(rows))
	}
	if rows[0][0] != "张某" {
		t.Errorf("rows[0][0] = %q, want trimmed 张某", rows[0][0])
	}
	if rows[2][0] != "王某" || rows[2][2] != "交接班未确认" {
		t.Errorf("merged row not remapped: %v", rows[2])
	}
}

func TestReadTableMissing(t *testing.T) {
	if _, _, err := ReadTable(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Error("want error for missing file")
	}
}

func TestReadQuestionBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		"题库": {
			{"题目", "A", "B", "答案"},
			{"信号机显示红色表示？", "停车", "注意", "A"},
			{"", "", "", ""},
		},
	}, []string{"题库"})

	bank, err := ReadQuestionBank(path, "安全题库")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bank.Label != "安全题库" {
		t.Errorf("label = %q", bank.Label)
	}
	if len(bank.Headers) != 4 || bank.Headers[0] != "题目" {
		t.Errorf("headers = %v", bank.Headers)
	}
	if len(bank.Rows) != 1 {
		t.Errorf("rows = %d, want blank row dropped", len(bank.Rows))
	}
}

func sampleReports() []model.Report {
	return []model.Report{{
		Person: model.Person{
			Name:         "张某",
			Fleet:        "一车队",
			SalaryNumber: "10086",
			Violations: []model.Violation{
				{Type: "人身安全", Description: "未执行一站二看三通过", Standard: "机运18第5条"},
			},
			Exams: []model.ExamRecord{
				{Device: model.DeviceRiskRig, TaskName: "制动力弱处置", Score: 55},
			},
		},
		Analysis: model.AnalysisResult{
			RiskAnalysis: "1. 人身安全方面",
			Suggestions:  []model.Suggestion{{Title: "人身安全培训", Content: "加强学习"}},
		},
		Questions: []model.MatchedQuestion{{
			QuestionText: "横越线路须执行什么制度？",
			Options:      []string{"A.一站二看三通过", "B.随意通过"},
			Answer:       "A",
			Relevance:    20,
		}},
	}, {
		Person: model.Person{Name: "李某", Fleet: "二车队"},
	}}
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	if err := WriteSummary(path, sampleReports()); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 people", len(rows))
	}
	if rows[0][0] != "序号" || rows[0][8] != "考试题目" {
		t.Errorf("header = %v", rows[0])
	}

	zhang := rows[1]
	if zhang[1] != "张某" || zhang[2] != "一车队" || zhang[3] != "10086" {
		t.Errorf("identity cells = %v", zhang[:4])
	}
	if !strings.Contains(zhang[4], "1.[人身安全]未执行一站二看三通过 违反：机运18第5条") {
		t.Errorf("violation cell = %q", zhang[4])
	}
	if !strings.Contains(zhang[5], "制动力弱处置：55分") {
		t.Errorf("training cell = %q", zhang[5])
	}
	if !strings.Contains(zhang[7], "1.人身安全培训") {
		t.Errorf("suggestions cell = %q", zhang[7])
	}
	if !strings.Contains(zhang[8], "答案：A") {
		t.Errorf("questions cell = %q", zhang[8])
	}

	// A person with no records gets dashes, never empty cells.
	li := rows[2]
	for _, idx := range []int{3, 4, 5, 6, 7, 8} {
		if idx >= len(li) {
			t.Fatalf("李某 row too short: %v", li)
		}
		if li[idx] != "-" {
			t.Errorf("李某 cell %d = %q, want -", idx, li[idx])
		}
	}
}

func TestWriteReportsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportsJSON(&buf, sampleReports()); err != nil {
		t.Fatalf("write: %v", err)
	}

	var decoded []model.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded = %d reports, want 2", len(decoded))
	}
	if decoded[0].Person.Name != "张某" {
		t.Errorf("name = %q", decoded[0].Person.Name)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("output missing trailing newline")
	}
}
