package xlsxio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"safereport/internal/model"
)

const summarySheet = "培训分析汇总表"

var summaryHeader = []any{"序号", "责任人", "部门", "工资号", "两违情况", "培训实训情况", "风险倾向", "培训建议", "考试题目"}

var summaryWidths = []float64{6, 10, 18, 12, 60, 50, 60, 60, 70}

// WriteSummary writes one spreadsheet row per person with all text fields
// unabridged.
func WriteSummary(path string, reports []model.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range reports {
		row := summaryRow(i+1, r)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for i, w := range summaryWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(summarySheet, col, col, w); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastCell, err := excelize.CoordinatesToCellName(len(summaryHeader), len(reports)+1)
	if err != nil {
		return fmt.Errorf("style range: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A1", lastCell, style); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save summary %s: %w", path, err)
	}
	return nil
}

func summaryRow(n int, r model.Report) []any {
	return []any{
		n,
		r.Person.Name,
		r.Person.Fleet,
		orDash(r.Person.SalaryNumber),
		violationText(r.Person),
		trainingText(r.Person),
		orDash(r.Analysis.RiskAnalysis),
		suggestionsText(r.Analysis.Suggestions),
		questionsText(r.Questions),
	}
}

func violationText(p model.Person) string {
	if len(p.Violations) == 0 {
		return "-"
	}
	var lines []string
	for i, v := range p.Violations {
		line := fmt.Sprintf("%d.", i+1)
		if v.Type != "" {
			line += "[" + v.Type + "]"
		}
		line += v.Description
		if v.Standard != "" {
			line += " 违反：" + v.Standard
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func trainingText(p model.Person) string {
	if len(p.Exams) == 0 {
		return "-"
	}
	var lines []string
	for _, e := range p.Exams {
		lines = append(lines, fmt.Sprintf("%s：%s分", e.Label(), e.FormatScore()))
	}
	return strings.Join(lines, "\n")
}

func suggestionsText(suggestions []model.Suggestion) string {
	if len(suggestions) == 0 {
		return "-"
	}
	var lines []string
	for i, s := range suggestions {
		lines = append(lines, fmt.Sprintf("%d.%s\n%s", i+1, s.Title, s.Content))
	}
	return strings.Join(lines, "\n")
}

func questionsText(questions []model.MatchedQuestion) string {
	if len(questions) == 0 {
		return "-"
	}
	var lines []string
	for i, q := range questions {
		line := fmt.Sprintf("%d.%s", i+1, q.QuestionText)
		if len(q.Options) > 0 {
			line += "\n  " + strings.Join(q.Options, "; ")
		}
		line += "\n  答案：" + q.Answer
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteReportsJSON dumps every report as indented JSON, one array.
func WriteReportsJSON(w io.Writer, reports []model.Report) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal reports: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
