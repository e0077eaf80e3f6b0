// Package batch drives concurrent generation for many people at once. People
// sharing a violation/weakness signature form one group; a single generation
// call produces a placeholder template the whole group shares, which is then
// personalized per member. Group failures degrade those members to their
// baseline analysis, never the whole run.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"safereport/internal/llm/prompts"
	"safereport/internal/model"
)

// Generator produces one template per violation group. Implemented by
// llm.Client; tests substitute fakes.
type Generator interface {
	GenerateGroupTemplate(ctx context.Context, g model.ViolationGroup) (*model.GenAnalysis, error)
}

// Orchestrator runs grouped generation with bounded concurrency.
type Orchestrator struct {
	gen         Generator
	concurrency int
	log         *slog.Logger
}

// New creates an Orchestrator. Concurrency below 1 is clamped to 1; a nil
// logger falls back to slog.Default.
func New(gen Generator, concurrency int, log *slog.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{gen: gen, concurrency: concurrency, log: log}
}

// GroupKey derives the grouping signature: sorted distinct violation types
// plus sorted distinct weak-exam device categories. Two people with the same
// signature always land in the same group.
func GroupKey(p model.Person) string {
	var types []string
	seen := make(map[string]bool)
	for _, v := range p.Violations {
		t := v.Type
		if t == "" {
			t = "其他"
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)

	var weak []string
	seenWeak := make(map[string]bool)
	for _, e := range p.WeakExams() {
		d := e.Device
		if d == "" {
			d = "其他"
		}
		if !seenWeak[d] {
			seenWeak[d] = true
			weak = append(weak, d)
		}
	}
	sort.Strings(weak)

	return "V:" + strings.Join(types, ",") + "|W:" + strings.Join(weak, ",")
}

// GroupPersons partitions pairs into violation groups in discovery order,
// aggregating each group's distinct descriptions, standards and weak items.
func GroupPersons(pairs []model.PersonAnalysis) []model.ViolationGroup {
	byKey := make(map[string]int)
	var groups []model.ViolationGroup

	for _, pa := range pairs {
		key := GroupKey(pa.Person)
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			var types []string
			seen := make(map[string]bool)
			for _, v := range pa.Person.Violations {
				t := v.Type
				if t == "" {
					t = "其他"
				}
				if !seen[t] {
					seen[t] = true
					types = append(types, t)
				}
			}
			groups = append(groups, model.ViolationGroup{Key: key, ViolationTypes: types})
		}

		g := &groups[idx]
		for _, v := range pa.Person.Violations {
			if v.Description != "" && !contains(g.ViolationDescriptions, v.Description) {
				g.ViolationDescriptions = append(g.ViolationDescriptions, v.Description)
			}
			if v.Standard != "" && !contains(g.ViolationStandards, v.Standard) {
				g.ViolationStandards = append(g.ViolationStandards, v.Standard)
			}
		}
		for _, e := range pa.Person.WeakExams() {
			if name := e.Label(); name != "" && !contains(g.WeakExams, name) {
				g.WeakExams = append(g.WeakExams, name)
			}
		}
		g.Members = append(g.Members, pa)
	}

	return groups
}

// Run drives one batch: group the pairs, then process groups in sequential
// waves of the configured concurrency, one generation call per group. The
// returned map holds personalized results keyed by model.Person.Key; members
// of failed groups are absent, which callers treat as "keep the baseline".
// A cancelled context stops new work and returns the results accumulated so
// far together with ctx.Err() — cancellation is an outcome, not a failure.
func (o *Orchestrator) Run(ctx context.Context, pairs []model.PersonAnalysis, onProgress func(model.BatchProgress)) (map[string]model.GenAnalysis, error) {
	if onProgress == nil {
		onProgress = func(model.BatchProgress) {}
	}

	groups := GroupPersons(pairs)
	results := make(map[string]model.GenAnalysis)
	total := len(pairs)
	completed, failed := 0, 0
	var mu sync.Mutex

	onProgress(model.BatchProgress{
		Total:        total,
		CurrentGroup: fmt.Sprintf("共%d个类型组", len(groups)),
	})

	for start := 0; start < len(groups); start += o.concurrency {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := min(start+o.concurrency, len(groups))

		var wave errgroup.Group
		for _, grp := range groups[start:end] {
			grp := grp
			wave.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				tmpl, err := o.gen.GenerateGroupTemplate(ctx, grp)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil && ctx.Err() != nil:
					// Aborted mid-call: not counted as a failure.
					return nil
				case err != nil:
					o.log.Warn("group generation failed, members keep baseline analysis",
						"group", grp.Key, "members", len(grp.Members), "error", err)
					failed += len(grp.Members)
					completed += len(grp.Members)
				default:
					for _, m := range grp.Members {
						results[m.Person.Key()] = personalize(*tmpl, m.Person)
					}
					completed += len(grp.Members)
				}
				onProgress(model.BatchProgress{
					Total:        total,
					Completed:    min(completed, total),
					CurrentGroup: fmt.Sprintf("%d组中已完成%d人", len(groups), min(completed, total)),
					Failed:       failed,
				})
				return nil
			})
		}
		_ = wave.Wait()
	}

	return results, ctx.Err()
}

// personalize substitutes the group template's placeholder tokens with one
// member's own name and weak-item list. Either every member of a group gets a
// personalized result or none does; there is no partial state.
func personalize(tmpl model.GenAnalysis, p model.Person) model.GenAnalysis {
	var labels []string
	for _, e := range p.WeakExams() {
		if name := e.Label(); name != "" {
			labels = append(labels, name)
		}
	}
	weak := strings.Join(labels, "、")
	if weak == "" {
		weak = "相关科目"
	}

	rep := strings.NewReplacer(prompts.NamePlaceholder, p.Name, prompts.WeakPlaceholder, weak)
	out := model.GenAnalysis{RiskAnalysis: rep.Replace(tmpl.RiskAnalysis)}
	for _, s := range tmpl.Suggestions {
		out.Suggestions = append(out.Suggestions, model.Suggestion{
			Title:   rep.Replace(s.Title),
			Content: rep.Replace(s.Content),
		})
	}
	return out
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
