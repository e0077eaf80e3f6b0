package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"safereport/internal/llm/prompts"
	"safereport/internal/model"
)

type fakeGenerator struct {
	calls int32
	fn    func(g model.ViolationGroup) (*model.GenAnalysis, error)
}

func (f *fakeGenerator) GenerateGroupTemplate(ctx context.Context, g model.ViolationGroup) (*model.GenAnalysis, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fn != nil {
		return f.fn(g)
	}
	return &model.GenAnalysis{
		RiskAnalysis: "根据" + prompts.NamePlaceholder + "的分析",
		Suggestions: []model.Suggestion{
			{Title: "专项培训", Content: "针对" + prompts.WeakPlaceholder + "进行培训"},
		},
	}, nil
}

func pair(name string, vTypes []string, weakDevices ...string) model.PersonAnalysis {
	p := model.Person{Name: name, Fleet: "一车队"}
	for _, t := range vTypes {
		p.Violations = append(p.Violations, model.Violation{Type: t, Description: t + "问题"})
	}
	for i, d := range weakDevices {
		p.Exams = append(p.Exams, model.ExamRecord{
			Device:   d,
			TaskName: fmt.Sprintf("%s科目%d", d, i+1),
			Score:    50,
		})
	}
	return model.PersonAnalysis{Person: p}
}

func TestGroupKey(t *testing.T) {
	a := pair("甲", []string{"人身安全", "作业标准"}, model.DeviceRiskRig)
	b := pair("乙", []string{"作业标准", "人身安全"}, model.DeviceRiskRig)
	if GroupKey(a.Person) != GroupKey(b.Person) {
		t.Errorf("type order changed the key: %q vs %q", GroupKey(a.Person), GroupKey(b.Person))
	}

	// Repeated types collapse.
	c := pair("丙", []string{"人身安全", "人身安全", "作业标准"}, model.DeviceRiskRig)
	if GroupKey(a.Person) != GroupKey(c.Person) {
		t.Errorf("duplicate types changed the key: %q vs %q", GroupKey(a.Person), GroupKey(c.Person))
	}

	// A passing exam contributes no weak category.
	d := model.Person{Exams: []model.ExamRecord{{Device: model.DeviceRiskRig, TaskName: "甲", Score: 95}}}
	if got := GroupKey(d); got != "V:|W:" {
		t.Errorf("key for clean profile = %q, want V:|W:", got)
	}

	e := pair("丁", []string{"人身安全"}, model.DeviceSelfServe)
	if GroupKey(a.Person) == GroupKey(e.Person) {
		t.Error("different signatures produced the same key")
	}

	untyped := model.Person{Violations: []model.Violation{{Description: "违章"}}}
	if got := GroupKey(untyped); got != "V:其他|W:" {
		t.Errorf("untyped violation key = %q, want V:其他|W:", got)
	}
}

func TestGroupPersons(t *testing.T) {
	pairs := []model.PersonAnalysis{
		pair("甲", []string{"人身安全"}, model.DeviceRiskRig),
		pair("乙", []string{"出退勤管理"}),
		pair("丙", []string{"人身安全"}, model.DeviceRiskRig),
	}
	// 甲 and 丙 report the same description; it must appear once.
	pairs[2].Person.Violations[0].Description = pairs[0].Person.Violations[0].Description

	groups := GroupPersons(pairs)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	first := groups[0]
	if len(first.Members) != 2 {
		t.Errorf("first group members = %d, want 甲 and 丙", len(first.Members))
	}
	if len(first.ViolationDescriptions) != 1 {
		t.Errorf("descriptions = %v, want shared text deduplicated", first.ViolationDescriptions)
	}
	if len(first.WeakExams) != 2 {
		t.Errorf("weak exams = %v, want both members' distinct weak items", first.WeakExams)
	}
	if groups[1].Members[0].Person.Name != "乙" {
		t.Errorf("second group member = %q, want 乙", groups[1].Members[0].Person.Name)
	}
}

func TestRunPersonalizesPerMember(t *testing.T) {
	gen := &fakeGenerator{}
	o := New(gen, 2, nil)
	pairs := []model.PersonAnalysis{
		pair("张某", []string{"人身安全"}, model.DeviceRiskRig),
		pair("李某", []string{"人身安全"}, model.DeviceRiskRig),
		pair("王某", []string{"出退勤管理"}),
	}

	got, err := o.Run(context.Background(), pairs, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
	// Two groups, one call each.
	if n := atomic.LoadInt32(&gen.calls); n != 2 {
		t.Errorf("generator calls = %d, want 2", n)
	}

	zhang := got[pairs[0].Person.Key()]
	if zhang.RiskAnalysis != "根据张某的分析" {
		t.Errorf("risk analysis = %q", zhang.RiskAnalysis)
	}
	if !strings.Contains(zhang.Suggestions[0].Content, "模架科目1") {
		t.Errorf("weak placeholder not substituted: %q", zhang.Suggestions[0].Content)
	}

	// 王某 has no weak exams; the placeholder falls back to 相关科目.
	wang := got[pairs[2].Person.Key()]
	if !strings.Contains(wang.Suggestions[0].Content, "相关科目") {
		t.Errorf("fallback weak text missing: %q", wang.Suggestions[0].Content)
	}
}

func TestRunProgress(t *testing.T) {
	gen := &fakeGenerator{}
	o := New(gen, 1, nil)
	pairs := []model.PersonAnalysis{
		pair("甲", []string{"人身安全"}),
		pair("乙", []string{"人身安全"}),
		pair("丙", []string{"出退勤管理"}),
	}

	var progress []model.BatchProgress
	_, err := o.Run(context.Background(), pairs, func(p model.BatchProgress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(progress) != 3 {
		t.Fatalf("progress updates = %d, want initial + one per group", len(progress))
	}
	if progress[0].CurrentGroup != "共2个类型组" {
		t.Errorf("initial update = %q", progress[0].CurrentGroup)
	}
	last := 0
	for _, p := range progress[1:] {
		if p.Completed < last {
			t.Errorf("completed went backwards: %v", progress)
		}
		last = p.Completed
		if p.Total != 3 {
			t.Errorf("total = %d, want 3", p.Total)
		}
	}
	if last != 3 {
		t.Errorf("final completed = %d, want 3", last)
	}
	if progress[len(progress)-1].CurrentGroup != "2组中已完成3人" {
		t.Errorf("final update = %q", progress[len(progress)-1].CurrentGroup)
	}
}

func TestRunFailedGroupKeepsOthers(t *testing.T) {
	gen := &fakeGenerator{fn: func(g model.ViolationGroup) (*model.GenAnalysis, error) {
		if strings.Contains(g.Key, "出退勤管理") {
			return nil, errors.New("model unavailable")
		}
		return &model.GenAnalysis{RiskAnalysis: "文本"}, nil
	}}
	o := New(gen, 2, nil)
	pairs := []model.PersonAnalysis{
		pair("甲", []string{"人身安全"}),
		pair("乙", []string{"出退勤管理"}),
		pair("丙", []string{"出退勤管理"}),
	}

	var final model.BatchProgress
	got, err := o.Run(context.Background(), pairs, func(p model.BatchProgress) { final = p })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want only the healthy group's member", len(got))
	}
	if _, ok := got[pairs[0].Person.Key()]; !ok {
		t.Error("甲 missing from results")
	}
	if final.Failed != 2 {
		t.Errorf("failed = %d, want both members of the failed group", final.Failed)
	}
	if final.Completed != 3 {
		t.Errorf("completed = %d, want 3 (failures still count as processed)", final.Completed)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeGenerator{}
	o := New(gen, 2, nil)
	pairs := []model.PersonAnalysis{pair("甲", []string{"人身安全"})}

	got, err := o.Run(ctx, pairs, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(got) != 0 {
		t.Errorf("results = %d, want none", len(got))
	}
	if n := atomic.LoadInt32(&gen.calls); n != 0 {
		t.Errorf("generator calls = %d, want 0", n)
	}
}

func TestRunCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{fn: func(g model.ViolationGroup) (*model.GenAnalysis, error) {
		cancel()
		return &model.GenAnalysis{RiskAnalysis: "文本"}, nil
	}}
	o := New(gen, 1, nil)
	pairs := []model.PersonAnalysis{
		pair("甲", []string{"人身安全"}),
		pair("乙", []string{"出退勤管理"}),
	}

	got, err := o.Run(ctx, pairs, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// The first group finished before the cancel took effect; its result is
	// kept, the second group was never attempted.
	if len(got) != 1 {
		t.Errorf("results = %d, want the first group only", len(got))
	}
	if n := atomic.LoadInt32(&gen.calls); n != 1 {
		t.Errorf("generator calls = %d, want 1", n)
	}
}

func TestNewClampsConcurrency(t *testing.T) {
	o := New(&fakeGenerator{}, 0, nil)
	if o.concurrency != 1 {
		t.Errorf("concurrency = %d, want clamped to 1", o.concurrency)
	}
}
