// Package match selects question-bank entries relevant to one person's
// violations and training weaknesses. Scoring combines four weighted signal
// sources; questions hit by more than one source get a cross-source bonus,
// biasing results toward questions relevant to both a concrete violation and
// a concrete training gap rather than generically topical text.
package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"safereport/internal/model"
)

// Config holds the matcher's tuning knobs. The default threshold and bonus
// were tuned empirically against real violation and question-bank data.
type Config struct {
	// Threshold is the minimum score a question must reach to be kept.
	Threshold float64
	// MultiSourceBonus multiplies the score when at least two distinct
	// signal sources contributed a hit.
	MultiSourceBonus float64
	// WeakScoreCutoff separates weak exam items from passing ones.
	WeakScoreCutoff float64
	// MaxResults caps the returned list.
	MaxResults int
	// MinUnclipped: result sets at or below this size are returned whole.
	MinUnclipped int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:        8,
		MultiSourceBonus: 1.3,
		WeakScoreCutoff:  model.PassScore,
		MaxResults:       10,
		MinUnclipped:     5,
	}
}

// Matcher scores question banks against person profiles.
type Matcher struct {
	cfg Config
}

// New creates a Matcher. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.Threshold == 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MultiSourceBonus == 0 {
		cfg.MultiSourceBonus = def.MultiSourceBonus
	}
	if cfg.WeakScoreCutoff == 0 {
		cfg.WeakScoreCutoff = def.WeakScoreCutoff
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MinUnclipped == 0 {
		cfg.MinUnclipped = def.MinUnclipped
	}
	return &Matcher{cfg: cfg}
}

// signal holds the per-person term weights, built once before any bank scan.
type signal struct {
	violationNgrams map[string]float64
	violationTerms  map[string]float64
	weakExamTerms   map[string]float64
	passingKeywords map[string]float64
}

func (s *signal) empty() bool {
	return len(s.violationNgrams) == 0 && len(s.violationTerms) == 0 &&
		len(s.weakExamTerms) == 0 && len(s.passingKeywords) == 0
}

func (m *Matcher) buildSignal(p model.Person) *signal {
	s := &signal{
		violationNgrams: make(map[string]float64),
		violationTerms:  make(map[string]float64),
		weakExamTerms:   make(map[string]float64),
		passingKeywords: make(map[string]float64),
	}

	for _, v := range p.Violations {
		if v.Description != "" {
			for _, ng := range ngrams(v.Description, 3, 6) {
				s.violationNgrams[ng] += 5
			}
			for _, t := range domainTerms(v.Description) {
				s.violationTerms[t] += 6
			}
		}
		if v.Standard != "" {
			for _, ng := range ngrams(v.Standard, 3, 6) {
				s.violationNgrams[ng] += 4
			}
			for _, t := range domainTerms(v.Standard) {
				s.violationTerms[t] += 5
			}
		}
		if v.Type != "" {
			for _, w := range keywords(v.Type) {
				s.violationTerms[w] += 4
			}
		}
	}

	for _, e := range p.Exams {
		if e.Score < m.cfg.WeakScoreCutoff {
			// Weak items fall back to the device label; passing ones
			// only ever contribute their task name.
			task := e.TaskName
			if task == "" {
				task = e.DeviceRaw
			}
			if task == "" {
				continue
			}
			for _, ng := range ngrams(task, 3, 8) {
				s.weakExamTerms[ng] += 4
			}
			for _, w := range keywords(task) {
				s.weakExamTerms[w] += 3
			}
			for _, t := range domainTerms(task) {
				s.weakExamTerms[t] += 4
			}
		} else if e.TaskName != "" {
			// Capped, not additive: repeat passes carry no extra weight.
			for _, w := range keywords(e.TaskName) {
				if s.passingKeywords[w] < 1 {
					s.passingKeywords[w] = 1
				}
			}
		}
	}

	return s
}

// Match returns 5-10 scored questions for the person, or nothing when no
// banks are supplied or the person carries no matchable signal.
func (m *Matcher) Match(p model.Person, banks []model.QuestionBank) []model.MatchedQuestion {
	if len(banks) == 0 {
		return nil
	}
	sig := m.buildSignal(p)
	if sig.empty() {
		return nil
	}

	var results []model.MatchedQuestion

	for bankIdx, bank := range banks {
		cols := resolveColumns(bank.Headers)
		label := bank.Label
		if label == "" {
			label = fmt.Sprintf("题库%d", bankIdx+1)
		}

		for _, row := range bank.Rows {
			q := parseQuestion(row, cols)
			if q.text == "" {
				continue
			}

			fullText := q.text + strings.Join(q.options, "") + q.explanation
			cleanText := stripText(fullText, false)

			score := 0.0
			sources := 0

			hit := false
			for ng, weight := range sig.violationNgrams {
				if strings.Contains(cleanText, ng) {
					score += weight
					hit = true
				}
			}
			if hit {
				sources++
			}

			hit = false
			for term, weight := range sig.violationTerms {
				if strings.Contains(fullText, term) {
					score += weight
					hit = true
				}
			}
			if hit {
				sources++
			}

			hit = false
			for term, weight := range sig.weakExamTerms {
				if strings.Contains(cleanText, term) || strings.Contains(fullText, term) {
					score += weight
					hit = true
				}
			}
			if hit {
				sources++
			}

			for kw, weight := range sig.passingKeywords {
				if strings.Contains(fullText, kw) {
					score += weight
				}
			}

			if sources >= 2 {
				score *= m.cfg.MultiSourceBonus
			}
			if score < m.cfg.Threshold {
				continue
			}

			results = append(results, model.MatchedQuestion{
				Row:          row,
				Relevance:    int(math.Round(score)),
				Category:     label,
				Headers:      bank.Headers,
				QuestionText: q.text,
				QuestionType: q.qtype,
				Options:      q.options,
				Answer:       q.answer,
				Explanation:  q.explanation,
			})
		}
	}

	results = dedupeByText(results)
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Relevance > results[b].Relevance
	})

	if len(results) <= m.cfg.MinUnclipped {
		return results
	}
	if len(results) > m.cfg.MaxResults {
		results = results[:m.cfg.MaxResults]
	}
	return results
}

// dedupeByText drops questions repeating another's first 60 runes of text;
// the first occurrence wins.
func dedupeByText(in []model.MatchedQuestion) []model.MatchedQuestion {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, q := range in {
		key := q.QuestionText
		if r := []rune(key); len(r) > 60 {
			key = string(r[:60])
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
