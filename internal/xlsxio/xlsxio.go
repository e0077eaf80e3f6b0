// Package xlsxio decodes the uploaded workbooks into (header row, body rows)
// and writes the summary spreadsheet. The rest of the system only ever sees
// trimmed string cells; no column order or naming is assumed here.
package xlsxio

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"safereport/internal/model"
)

// ReadTable decodes a workbook into one header row plus trimmed body rows.
// The first non-empty sheet is the base; additional sheets are appended when
// more than half their headers overlap the base's, remapped by header name.
// Blank rows are dropped.
func ReadTable(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	var headers []string
	var rows [][]string

	for _, sheet := range f.GetSheetList() {
		got, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(got) == 0 {
			continue
		}
		sheetHeaders := trimCells(got[0])
		sheetRows := bodyRows(got[1:])

		if headers == nil {
			headers = sheetHeaders
			rows = sheetRows
			continue
		}
		if len(sheetHeaders) == 0 {
			continue
		}

		overlap := 0
		for _, h := range sheetHeaders {
			if indexOf(headers, h) >= 0 {
				overlap++
			}
		}
		if overlap <= len(sheetHeaders)/2 {
			continue
		}
		for _, row := range sheetRows {
			remapped := make([]string, len(headers))
			for i, h := range sheetHeaders {
				if t := indexOf(headers, h); t >= 0 && i < len(row) {
					remapped[t] = row[i]
				}
			}
			rows = append(rows, remapped)
		}
	}

	return headers, rows, nil
}

// ReadQuestionBank decodes the first sheet of a question file. Banks resolve
// their own column layout later, so only headers and raw rows are returned.
func ReadQuestionBank(path, label string) (model.QuestionBank, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return model.QuestionBank{}, fmt.Errorf("open question bank %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.QuestionBank{}, fmt.Errorf("question bank %s has no sheets", path)
	}
	got, err := f.GetRows(sheets[0])
	if err != nil {
		return model.QuestionBank{}, fmt.Errorf("read question bank %s: %w", path, err)
	}
	if len(got) == 0 {
		return model.QuestionBank{}, fmt.Errorf("question bank %s is empty", path)
	}

	return model.QuestionBank{
		Label:   label,
		Headers: trimCells(got[0]),
		Rows:    bodyRows(got[1:]),
	}, nil
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func bodyRows(raw [][]string) [][]string {
	var out [][]string
	for _, row := range raw {
		trimmed := trimCells(row)
		blank := true
		for _, c := range trimmed {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, trimmed)
		}
	}
	return out
}

func indexOf(items []string, s string) int {
	for i, it := range items {
		if it == s {
			return i
		}
	}
	return -1
}
