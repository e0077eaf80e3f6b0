package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"safereport/internal/model"
)

// decodeGenAnalysis parses a model reply into a GenAnalysis. Replies are
// expected to be one JSON object, possibly wrapped in incidental noise such
// as markdown code fences or lead-in prose. Tolerance policy: strip fence
// markers, extract the first balanced-brace span, unmarshal, and require at
// least one of the two fields to be present.
func decodeGenAnalysis(raw string) (*model.GenAnalysis, error) {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")

	obj := extractObject(s)
	if obj == "" {
		return nil, fmt.Errorf("no JSON object in generation reply")
	}

	var out model.GenAnalysis
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, fmt.Errorf("parse generation reply: %w", err)
	}
	if out.RiskAnalysis == "" && len(out.Suggestions) == 0 {
		return nil, fmt.Errorf("generation reply has neither riskAnalysis nor suggestions")
	}
	return &out, nil
}

// extractObject returns the first balanced {...} span in s, honoring JSON
// string literals so braces inside strings do not confuse the depth count.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
