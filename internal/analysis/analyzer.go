// Package analysis derives the four report sections deterministically from a
// person's parsed records. It is the guaranteed baseline the generated text
// is layered on top of: every section has fixed wording and never fails.
package analysis

import (
	"fmt"
	"strings"

	"safereport/internal/model"
)

// Analyze produces a full AnalysisResult for one person without any external
// calls.
func Analyze(p model.Person) model.AnalysisResult {
	var result model.AnalysisResult

	result.ViolationAnalysis = violationSection(p)

	riskRig := filterDevice(p.Exams, model.DeviceRiskRig)
	selfServe := filterDevice(p.Exams, model.DeviceSelfServe)
	var other []model.ExamRecord
	for _, e := range p.Exams {
		if e.Device != model.DeviceRiskRig && e.Device != model.DeviceSelfServe {
			other = append(other, e)
		}
	}
	result.TrainingAnalysis = trainingSection(p, riskRig, selfServe, other)

	weakRiskRig := filterWeak(riskRig)
	result.RiskAnalysis = riskSection(p, weakRiskRig)
	result.Suggestions = suggestions(p, weakRiskRig, filterWeak(selfServe))

	return result
}

func violationSection(p model.Person) string {
	if len(p.Violations) == 0 {
		return fmt.Sprintf("%s在统计期间内未发生两违问题，安全意识较强，能够严格遵守各项规章制度和作业标准。", p.Name)
	}
	var lines []string
	for i, v := range p.Violations {
		typeLabel := ""
		if v.Type != "" {
			typeLabel = "（" + v.Type + "）"
		}
		lines = append(lines, fmt.Sprintf("问题%d%s", i+1, typeLabel))
		if v.Description != "" {
			prefix := ""
			if v.Date != "" {
				prefix = v.Date + "，"
			}
			lines = append(lines, "问题描述："+prefix+v.Description)
		}
		if v.Standard != "" {
			lines = append(lines, "违反考核标准："+v.Standard)
		}
	}
	return strings.Join(lines, "\n")
}

func trainingSection(p model.Person, riskRig, selfServe, other []model.ExamRecord) string {
	var tp []string

	if len(riskRig) > 0 {
		tp = append(tp, "1. 实训风险演练装置（模架）成绩")
		desc := p.Name + "在模架培训中" + overallDescriptor(mean(riskRig))
		if len(filterWeak(riskRig)) > 0 {
			desc += "，存在以下薄弱环节："
		} else {
			desc += "："
		}
		tp = append(tp, desc)
		var items []string
		for _, e := range riskRig {
			items = append(items, fmt.Sprintf("%s：%s分（%s）", e.Label(), e.FormatScore(), remark(e.Score)))
		}
		tp = append(tp, strings.Join(items, "；")+"。")
	}

	if len(selfServe) > 0 {
		idx := "1"
		if len(riskRig) > 0 {
			idx = "2"
		}
		tp = append(tp, idx+". 自助培训演练设备（自助机）成绩")
		avg := mean(selfServe)
		desc := p.Name + "在自助机培训中"
		switch {
		case avg >= 90:
			desc += "表现优秀："
		case avg >= 80:
			desc += "表现良好："
		default:
			desc += "表现一般，存在薄弱环节："
		}
		tp = append(tp, desc)
		tp = append(tp, joinScores(selfServe))
	}

	if len(other) > 0 {
		idx := 1
		if len(riskRig) > 0 {
			idx++
		}
		if len(selfServe) > 0 {
			idx++
		}
		tp = append(tp, fmt.Sprintf("%d. 其他培训成绩", idx))
		tp = append(tp, joinScores(other))
	}

	if len(tp) == 0 {
		tp = append(tp, p.Name+"暂无实训培训记录，建议尽快安排自助培训演练设备（自助机）和实训风险演练装置（模架）培训考核。")
	}
	return strings.Join(tp, "\n")
}

func riskSection(p model.Person, weakRiskRig []model.ExamRecord) string {
	risks := []string{fmt.Sprintf("根据%s的两违情况和培训成绩分析，该责任人存在以下不足之处：", p.Name)}

	idx := 1
	if len(p.Violations) > 0 {
		types, byType := groupViolationsByType(p.Violations)
		for _, t := range types {
			risks = append(risks, fmt.Sprintf("%d. %s方面", idx, t))
			risks = append(risks, strings.Join(byType[t].descriptions, "；")+"。")
			idx++
		}
	}

	if len(weakRiskRig) > 0 {
		risks = append(risks, fmt.Sprintf("%d. 应急处置能力方面", idx))
		var items []string
		for _, e := range weakRiskRig {
			items = append(items, e.Label()+"处置掌握不熟练")
		}
		risks = append(risks, strings.Join(items, "；")+"。")
		idx++
	}

	if idx == 1 {
		return fmt.Sprintf("根据%s的两违情况和培训成绩分析，该责任人整体表现良好，安全意识较强，建议继续保持。", p.Name)
	}
	return strings.Join(risks, "\n")
}

func suggestions(p model.Person, weakRiskRig, weakSelfServe []model.ExamRecord) []model.Suggestion {
	var out []model.Suggestion

	if len(p.Violations) > 0 {
		types, _ := groupViolationsByType(p.Violations)
		for _, t := range types {
			out = append(out, model.Suggestion{
				Title:   t + "培训",
				Content: fmt.Sprintf("加强与“%s”相关的规章制度学习，重点学习相关规程和操作规范，强化标准作业培训。", t),
			})
		}
	}

	if len(weakRiskRig) > 0 {
		out = append(out, model.Suggestion{
			Title:   "应急处置能力培训",
			Content: fmt.Sprintf("针对%s进行专项培训，重点掌握故障判断和处置流程。增加模架实作演练频次，重点练习低分项目。", joinLabels(weakRiskRig)),
		})
	}

	if len(weakSelfServe) > 0 {
		out = append(out, model.Suggestion{
			Title:   "自助机操作技能提升",
			Content: fmt.Sprintf("针对%s加强操作培训，熟练掌握各项操作规程和技能要求。", joinLabels(weakSelfServe)),
		})
	}

	if len(out) == 0 {
		out = append(out, model.Suggestion{
			Title:   "巩固提升业务素质",
			Content: "该人员整体表现良好，建议继续保持良好的工作状态，积极参加各项安全教育和业务培训活动，持续提升业务技能水平。",
		})
	}
	return out
}

type violationTexts struct {
	descriptions []string
	standards    []string
}

// groupViolationsByType groups non-empty descriptions and standards under each
// distinct type (其他 for untyped), preserving first-seen type order.
func groupViolationsByType(violations []model.Violation) ([]string, map[string]*violationTexts) {
	byType := make(map[string]*violationTexts)
	var order []string
	for _, v := range violations {
		t := v.Type
		if t == "" {
			t = "其他"
		}
		g, ok := byType[t]
		if !ok {
			g = &violationTexts{}
			byType[t] = g
			order = append(order, t)
		}
		if v.Description != "" {
			g.descriptions = append(g.descriptions, v.Description)
		}
		if v.Standard != "" {
			g.standards = append(g.standards, v.Standard)
		}
	}
	return order, byType
}

func filterDevice(exams []model.ExamRecord, device string) []model.ExamRecord {
	var out []model.ExamRecord
	for _, e := range exams {
		if e.Device == device {
			out = append(out, e)
		}
	}
	return out
}

func filterWeak(exams []model.ExamRecord) []model.ExamRecord {
	var out []model.ExamRecord
	for _, e := range exams {
		if e.Score < model.PassScore {
			out = append(out, e)
		}
	}
	return out
}

func mean(exams []model.ExamRecord) float64 {
	if len(exams) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range exams {
		sum += e.Score
	}
	return sum / float64(len(exams))
}

func overallDescriptor(avg float64) string {
	switch {
	case avg >= 90:
		return "整体表现优秀"
	case avg >= 80:
		return "整体表现良好"
	default:
		return "整体表现一般"
	}
}

func remark(score float64) string {
	switch {
	case score < 60:
		return "不及格，需重点加强"
	case score < 80:
		return "不及格"
	case score >= 90:
		return "优秀"
	default:
		return "良好"
	}
}

func joinScores(exams []model.ExamRecord) string {
	var items []string
	for _, e := range exams {
		items = append(items, fmt.Sprintf("%s：%s分", e.Label(), e.FormatScore()))
	}
	return strings.Join(items, "；")
}

func joinLabels(exams []model.ExamRecord) string {
	var labels []string
	for _, e := range exams {
		labels = append(labels, e.Label())
	}
	return strings.Join(labels, "、")
}
