package schema

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Mapper resolves canonical fields against arbitrary header rows. Mapping
// never fails: fields without a plausible column stay Unmatched and the
// corresponding values read as empty downstream.
type Mapper struct {
	log *slog.Logger
}

// NewMapper creates a Mapper. A nil logger falls back to slog.Default.
func NewMapper(log *slog.Logger) *Mapper {
	if log == nil {
		log = slog.Default()
	}
	return &Mapper{log: log}
}

// AutoMatch builds a ColumnMap for the given header row. Pass 1 takes exact
// (trimmed, case-sensitive) alias equality, first unclaimed column wins.
// Pass 2 takes case-insensitive containment, longest alias wins. A column is
// claimed by at most one field.
func AutoMatch(headers []string, fields []FieldSpec) ColumnMap {
	m := make(ColumnMap, len(fields))
	used := make(map[int]bool)

	for _, f := range fields {
		if _, ok := m[f.Key]; ok {
			continue
		}
	scan:
		for idx, h := range headers {
			if used[idx] {
				continue
			}
			hl := strings.TrimSpace(h)
			for _, alias := range f.Aliases {
				if alias == hl {
					m[f.Key] = idx
					used[idx] = true
					break scan
				}
			}
		}
	}

	for _, f := range fields {
		if _, ok := m[f.Key]; ok {
			continue
		}
		bestIdx, bestLen := Unmatched, 0
		for idx, h := range headers {
			if used[idx] {
				continue
			}
			hl := strings.ToLower(h)
			for _, alias := range f.Aliases {
				n := utf8.RuneCountInString(alias)
				if n > bestLen && strings.Contains(hl, strings.ToLower(alias)) {
					bestLen = n
					bestIdx = idx
				}
			}
		}
		if bestIdx >= 0 {
			m[f.Key] = bestIdx
			used[bestIdx] = true
		}
	}

	for _, f := range fields {
		if _, ok := m[f.Key]; !ok {
			m[f.Key] = Unmatched
		}
	}
	return m
}

// MapViolations resolves the violation table's columns and applies the
// examiner/responsible-person correction pass.
func (mp *Mapper) MapViolations(headers []string) ColumnMap {
	m := AutoMatch(headers, ViolationFields)
	mp.correctViolationMap(headers, m)
	mp.logMap("violation table mapping", headers, ViolationFields, m)
	return m
}

// MapExams resolves the exam table's columns.
func (mp *Mapper) MapExams(headers []string) ColumnMap {
	m := AutoMatch(headers, ExamFields)
	mp.logMap("exam table mapping", headers, ExamFields, m)
	return m
}

// correctViolationMap fixes the known wrong-subject mismatches: the name and
// fleet fields must describe the responsible person, not the examiner who
// recorded the violation. Only name and fleet are ever reassigned, and only
// to columns no other field claims.
func (mp *Mapper) correctViolationMap(headers []string, m ColumnMap) {
	nameIdx := m["name"]
	fleetIdx := m["fleet"]

	used := make(map[int]bool, len(m))
	for _, idx := range m {
		if idx >= 0 {
			used[idx] = true
		}
	}

	// Name resolved to an examiner column: look for an explicit 责任人 column.
	if nameIdx >= 0 {
		h := headers[nameIdx]
		if strings.Contains(h, inspectorNameMarker) && !strings.Contains(h, responsibleMarker) {
			for i, cand := range headers {
				if i == nameIdx || i == fleetIdx || used[i] {
					continue
				}
				if strings.Contains(cand, responsibleNameMarker) {
					mp.log.Debug("remapped name column", "from", h, "to", cand, "column", i+1)
					m["name"] = i
					break
				}
			}
		}
	}

	// Fleet resolved to the examiner's department: prefer the responsible
	// person's department column.
	if fleetIdx := m["fleet"]; fleetIdx >= 0 {
		h := headers[fleetIdx]
		if containsAny(h, inspectorDeptMarkers) && !strings.Contains(h, responsibleMarker) {
			if better := findResponsibleDept(headers, m); better >= 0 {
				mp.log.Debug("remapped fleet column", "from", h, "to", headers[better], "column", better+1)
				m["fleet"] = better
			}
		}
	}

	// Even without an examiner marker, a column naming the responsible
	// person's department beats a generic one.
	if fleetIdx := m["fleet"]; fleetIdx >= 0 {
		h := headers[fleetIdx]
		if !strings.Contains(h, responsibleMarker) {
			if better := findResponsibleDept(headers, m); better >= 0 && better != fleetIdx {
				mp.log.Debug("remapped fleet column to responsible department", "from", h, "to", headers[better], "column", better+1)
				m["fleet"] = better
			}
		}
	}
}

// findResponsibleDept locates an unclaimed column holding the responsible
// person's department. First choice: a header combining the responsibility
// marker with a department keyword. Fallback: a department-like header in the
// columns adjacent to the resolved name column.
func findResponsibleDept(headers []string, m ColumnMap) int {
	used := make(map[int]bool, len(m))
	for _, idx := range m {
		if idx >= 0 {
			used[idx] = true
		}
	}

	for i, h := range headers {
		if used[i] {
			continue
		}
		if strings.Contains(h, responsibleMarker) && containsAny(h, deptKeywords) {
			return i
		}
	}

	if nameIdx := m["name"]; nameIdx >= 0 {
		for _, off := range []int{1, -1, 2, -2} {
			i := nameIdx + off
			if i < 0 || i >= len(headers) || used[i] {
				continue
			}
			h := headers[i]
			if containsAny(h, deptKeywords) && !strings.Contains(h, "考核") {
				return i
			}
		}
	}

	return Unmatched
}

func (mp *Mapper) logMap(msg string, headers []string, fields []FieldSpec, m ColumnMap) {
	for _, f := range fields {
		idx := m[f.Key]
		if idx >= 0 && idx < len(headers) {
			mp.log.Debug(msg, "field", f.Label, "column", idx+1, "header", headers[idx])
		} else {
			mp.log.Debug(msg, "field", f.Label, "column", "unmatched")
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
