package schema

import (
	"strconv"
	"strings"

	"safereport/internal/model"
)

// Value returns the trimmed cell for a mapped field, or "" when the field is
// unmatched or the row is shorter than its column index.
func (m ColumnMap) Value(row []string, key string) string {
	idx, ok := m[key]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseResult is the outcome of turning two raw tables into Person records.
type ParseResult struct {
	Persons []model.Person

	ViolationMap ColumnMap
	ExamMap      ColumnMap

	// Rows dropped because no name could be resolved; diagnostics only.
	SkippedViolationRows int
	SkippedExamRows      int
}

// Device classification markers. The device/task text decides the canonical
// category; unrecognized devices keep their raw label.
var (
	riskRigMarkers   = []string{"实训风险演练", "模架", "风险演练装置"}
	selfServeMarkers = []string{"自助培训演练", "自助机", "自助培训", "自助"}
)

func classifyDevice(deviceRaw, taskName string) string {
	combined := deviceRaw + " " + taskName
	switch {
	case containsAny(combined, riskRigMarkers):
		return model.DeviceRiskRig
	case containsAny(combined, selfServeMarkers):
		return model.DeviceSelfServe
	case deviceRaw != "":
		return deviceRaw
	default:
		return model.DeviceOther
	}
}

type violationAgg struct {
	fleet        string
	salaryNumber string
	violations   []model.Violation
}

type examAgg struct {
	fleet string
	exams []model.ExamRecord
}

// ParseDatasets maps both tables, corrects the violation mapping, and builds
// deduplicated Person records. Either table may be empty. Rows without a
// resolvable name are skipped and counted.
func (mp *Mapper) ParseDatasets(vHeaders []string, vRows [][]string, eHeaders []string, eRows [][]string) *ParseResult {
	res := &ParseResult{
		ViolationMap: mp.MapViolations(vHeaders),
		ExamMap:      mp.MapExams(eHeaders),
	}

	violationsByName := make(map[string]*violationAgg)
	var nameOrder []string

	for _, row := range vRows {
		name := res.ViolationMap.Value(row, "name")
		if name == "" {
			res.SkippedViolationRows++
			continue
		}
		agg, ok := violationsByName[name]
		if !ok {
			agg = &violationAgg{}
			violationsByName[name] = agg
			nameOrder = append(nameOrder, name)
		}
		if fleet := res.ViolationMap.Value(row, "fleet"); fleet != "" {
			agg.fleet = fleet
		}
		if sn := res.ViolationMap.Value(row, "salaryNumber"); sn != "" {
			agg.salaryNumber = sn
		}
		agg.violations = append(agg.violations, model.Violation{
			Date:        res.ViolationMap.Value(row, "date"),
			Type:        res.ViolationMap.Value(row, "type"),
			Description: res.ViolationMap.Value(row, "description"),
			Standard:    res.ViolationMap.Value(row, "standard"),
			Level:       res.ViolationMap.Value(row, "level"),
			Penalty:     res.ViolationMap.Value(row, "penalty"),
		})
	}

	examsByName := make(map[string]*examAgg)

	for _, row := range eRows {
		name := res.ExamMap.Value(row, "name")
		if name == "" {
			res.SkippedExamRows++
			continue
		}
		agg, ok := examsByName[name]
		if !ok {
			agg = &examAgg{}
			examsByName[name] = agg
			if _, seen := violationsByName[name]; !seen {
				nameOrder = append(nameOrder, name)
			}
		}
		if fleet := res.ExamMap.Value(row, "fleet"); fleet != "" {
			agg.fleet = fleet
		}

		deviceRaw := res.ExamMap.Value(row, "device")
		taskName := res.ExamMap.Value(row, "task")
		if taskName == "" {
			taskName = deviceRaw
		}
		scoreStr := res.ExamMap.Value(row, "score")
		score := parseScore(scoreStr)
		agg.exams = append(agg.exams, model.ExamRecord{
			Device:    classifyDevice(deviceRaw, taskName),
			DeviceRaw: deviceRaw,
			TaskName:  taskName,
			Score:     score,
			ScoreStr:  scoreStr,
			Result:    res.ExamMap.Value(row, "result"),
			Date:      res.ExamMap.Value(row, "date"),
		})
	}

	for _, agg := range examsByName {
		agg.exams = bestPerTask(agg.exams)
	}

	for _, name := range nameOrder {
		var (
			fleet, salaryNumber string
			violations          []model.Violation
			exams               []model.ExamRecord
			examFleet           string
		)
		if v, ok := violationsByName[name]; ok {
			fleet = v.fleet
			salaryNumber = v.salaryNumber
			violations = v.violations
		}
		if e, ok := examsByName[name]; ok {
			examFleet = e.fleet
			exams = e.exams
		}
		// Prefer the violation table's fleet: it is the responsible
		// person's department after correction.
		if fleet == "" {
			fleet = examFleet
		}
		if fleet == "" {
			fleet = "未分类"
		}
		res.Persons = append(res.Persons, model.Person{
			Name:         name,
			Fleet:        fleet,
			SalaryNumber: salaryNumber,
			Violations:   violations,
			Exams:        exams,
		})
	}

	return res
}

// parseScore reads the leading numeric prefix of a score cell, so unit
// suffixes like "85分" still yield 85. Cells with no numeric prefix fall
// back to 0.
func parseScore(s string) float64 {
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || c == '.' || (end == 0 && (c == '+' || c == '-')) {
			end++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

// bestPerTask keeps at most one record per distinct task name, highest score
// wins, preserving first-seen task order.
func bestPerTask(exams []model.ExamRecord) []model.ExamRecord {
	best := make(map[string]int)
	var out []model.ExamRecord
	for _, e := range exams {
		key := e.TaskName
		if key == "" {
			key = e.DeviceRaw
		}
		if key == "" {
			key = e.Device
		}
		if i, ok := best[key]; ok {
			if e.Score > out[i].Score {
				out[i] = e
			}
			continue
		}
		best[key] = len(out)
		out = append(out, e)
	}
	return out
}
