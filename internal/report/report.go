// Package report assembles per-person reports: deterministic baseline
// analysis plus matched questions, with generated text merged on top when a
// batch run produced any.
package report

import (
	"context"
	"log/slog"

	"safereport/internal/analysis"
	"safereport/internal/match"
	"safereport/internal/model"
)

// chunkSize is how many people are processed between progress emissions and
// cancellation checks. Responsiveness only; no ordering significance.
const chunkSize = 20

// Builder computes baseline reports for whole person lists.
type Builder struct {
	matcher *match.Matcher
}

// NewBuilder creates a Builder around the given matcher.
func NewBuilder(m *match.Matcher) *Builder {
	return &Builder{matcher: m}
}

// BuildAll computes the baseline report for every person. onProgress, when
// non-nil, fires after each chunk; the context is checked at the same points
// so large runs stay cancellable. Reports built before cancellation are
// returned alongside ctx.Err().
func (b *Builder) BuildAll(ctx context.Context, persons []model.Person, banks []model.QuestionBank, onProgress func(done, total int)) ([]model.Report, error) {
	reports := make([]model.Report, 0, len(persons))
	for i, p := range persons {
		reports = append(reports, model.Report{
			Person:    p,
			Analysis:  analysis.Analyze(p),
			Questions: b.matcher.Match(p, banks),
		})
		if (i+1)%chunkSize == 0 || i == len(persons)-1 {
			if onProgress != nil {
				onProgress(i+1, len(persons))
			}
			if err := ctx.Err(); err != nil {
				return reports, err
			}
		}
	}
	return reports, nil
}

// Pairs extracts the (person, baseline analysis) pairs a batch run consumes.
func Pairs(reports []model.Report) []model.PersonAnalysis {
	pairs := make([]model.PersonAnalysis, 0, len(reports))
	for _, r := range reports {
		pairs = append(pairs, model.PersonAnalysis{Person: r.Person, Analysis: r.Analysis})
	}
	return pairs
}

// PersonGenerator produces generated text for one person from their own
// records instead of a shared group template. Implemented by llm.Client.
type PersonGenerator interface {
	GeneratePerson(ctx context.Context, p model.Person, analysis model.AnalysisResult) (*model.GenAnalysis, error)
}

// EnrichPerPerson overwrites the generated sections report by report, one
// call per person. Slower than grouped batching but every report gets text
// derived from its own data. A failed call keeps that person's baseline; a
// cancelled context stops the loop and returns ctx.Err() with the reports
// enriched so far left in place.
func EnrichPerPerson(ctx context.Context, gen PersonGenerator, reports []model.Report, log *slog.Logger, onProgress func(done, total int)) error {
	if log == nil {
		log = slog.Default()
	}
	for i := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := gen.GeneratePerson(ctx, reports[i].Person, reports[i].Analysis)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Warn("person generation failed, keeping baseline analysis",
				"person", reports[i].Person.Key(), "error", err)
		default:
			reports[i].Analysis.RiskAnalysis = res.RiskAnalysis
			reports[i].Analysis.Suggestions = res.Suggestions
		}
		if onProgress != nil {
			onProgress(i+1, len(reports))
		}
	}
	return nil
}

// MergeBatch overwrites the risk text and suggestions of every report the
// batch produced a result for. Absent people keep the baseline: enrichment
// is best-effort on top of guaranteed content.
func MergeBatch(reports []model.Report, results map[string]model.GenAnalysis) {
	for i := range reports {
		if r, ok := results[reports[i].Person.Key()]; ok {
			reports[i].Analysis.RiskAnalysis = r.RiskAnalysis
			reports[i].Analysis.Suggestions = r.Suggestions
		}
	}
}
