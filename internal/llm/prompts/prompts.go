// Package prompts builds the generation prompts and holds the embedded format
// template the model is asked to follow.
package prompts

import (
	"fmt"
	"strings"

	"safereport/internal/model"
)

// System is the persona and output-contract instruction sent with every
// generation request.
const System = "你是一名资深的铁路机务段安全教育培训专家，精通铁路安全管理规定（如《机运18》等），" +
	"擅长分析两违问题和培训薄弱环节，提供专业的风险评估和培训建议。" +
	"请直接返回纯JSON格式结果，不要使用markdown代码块包裹。"

// Placeholder tokens substituted during personalization of a group template.
// Real data must not contain these marker strings; guarding against a
// person's actual name colliding with the marker syntax is out of scope.
const (
	NamePlaceholder = "{姓名}"
	WeakPlaceholder = "{薄弱项}"
)

// templateExample is the reference format embedded in every prompt so the
// model reproduces the report's section structure.
const templateExample = `
三、风险倾向 示例格式：
根据张宇的两违情况和培训成绩分析，该责任人存在以下不足之处：
1. 人身安全方面
机班出退勤、交接班时未严格执行机班同行制度，横越线路时未严格执行"一站、二看、三通过"规定，职场安全意识有待加强。
2. 出退勤管理方面
运行揭示相关内容填记不完整，存在漏项，手持运行揭示确认、签认程序执行不到位司机手册填记规范性需加强。
3. 应急处置能力方面
制动力弱故障处置掌握不熟练；严重晃车应急处置流程不熟悉；轴温报警处置措施掌握不到位；非正常行车（路票、引导等）操作需加强。

四、培训建议 示例格式：
1. 人身安全培训
加强《机运18》人身安全相关条款学习，重点学习出退勤、交接班安全规定。强化"一站、二看、三通过"横越线路标准作业培训。
2. 出退勤管理培训
加强运行揭示核对、确认、签认流程培训，规范司机手册填记标准，开展填记规范性练习，学习手持运行揭示使用管理规定。
3. 应急处置能力培训
针对制动力弱故障进行专项培训，重点掌握故障判断和处置流程，加强严重晃车应急处置演练，熟悉紧急制动、报告、记录等操作。开展轴温报警处置培训，掌握后部瞭望、停车检查等要点，强化非正常行车（路票、引导、绿色许可证等）操作培训。增加模架实作演练频次，重点练习低分项目。
`

// GroupPrompt asks for one generic template covering every member of a
// violation group, with placeholder tokens instead of concrete values.
func GroupPrompt(g model.ViolationGroup) string {
	var sb strings.Builder
	sb.WriteString("你是一名铁路机务段安全教育培训专家。请根据以下两违类型和培训薄弱项的组合，生成通用的\"三、风险倾向\"和\"四、培训建议\"模版。\n\n")
	sb.WriteString("这是一组具有相同两违类型组合的责任人的共性数据：\n")
	sb.WriteString("- 两违类别：" + joinOr(g.ViolationTypes, "、") + "\n")
	sb.WriteString("- 典型问题描述：" + joinOr(head(g.ViolationDescriptions, 5), "；") + "\n")
	sb.WriteString("- 违反考核标准：" + joinOr(head(g.ViolationStandards, 5), "；") + "\n")
	sb.WriteString("- 培训薄弱项（模架/自助机低分科目）：" + joinOr(head(g.WeakExams, 5), "、") + "\n\n")
	sb.WriteString("要求：\n")
	sb.WriteString("1. 风险倾向要根据两违问题类别和培训薄弱环节逐项分析\n")
	sb.WriteString("2. 培训建议要针对每个风险倾向给出具体培训方案\n")
	sb.WriteString("3. 每个编号对应一个方面，先写标题，换行后写具体内容\n")
	sb.WriteString("4. 语言专业、简洁、准确\n")
	sb.WriteString("5. 风险倾向以\"根据" + NamePlaceholder + "的两违情况和培训成绩分析，该责任人存在以下不足之处：\"开头（用" + NamePlaceholder + "占位）\n")
	sb.WriteString("6. 如果没有两违且成绩良好，写\"该责任人整体表现良好\"\n")
	sb.WriteString("7. 严格按模版格式\n")
	sb.WriteString(templateExample)
	sb.WriteString("\n请返回纯JSON格式（不要markdown代码块）：\n")
	sb.WriteString(`{
  "riskAnalysis": "风险倾向完整文本（用` + NamePlaceholder + `作为人名占位符）",
  "suggestions": [
    {"title": "培训建议标题", "content": "具体内容（用` + NamePlaceholder + `作为占位符，用` + WeakPlaceholder + `代表具体低分科目）"}
  ]
}`)
	return sb.String()
}

// PersonPrompt asks for risk and suggestion text for a single person, using
// their concrete data rather than placeholders.
func PersonPrompt(p model.Person, analysis model.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString("你是一名铁路机务段安全教育培训专家。请根据以下责任人的两违情况和培训成绩，按照模版格式生成\"三、风险倾向\"和\"四、培训建议\"两个部分。\n\n")
	sb.WriteString("要求：\n")
	sb.WriteString("1. 风险倾向要根据责任人的具体两违问题类别和培训薄弱环节逐项分析，列出具体的不足之处\n")
	sb.WriteString("2. 培训建议要针对每个风险倾向给出具体、有针对性的培训方案\n")
	sb.WriteString("3. 每个编号对应一个方面，先写标题（如\"人身安全方面\"），换行后写具体内容\n")
	sb.WriteString("4. 语言要专业、简洁、准确，符合铁路安全管理规范\n")
	sb.WriteString(fmt.Sprintf("5. 风险倾向必须以\"根据%s的两违情况和培训成绩分析，该责任人存在以下不足之处：\"开头\n", p.Name))
	sb.WriteString("6. 如果该人员没有两违问题且培训成绩良好，则风险倾向写\"该责任人整体表现良好，安全意识较强，建议继续保持\"\n")
	sb.WriteString("7. 严格按照以下模版示例的格式和风格书写\n")
	sb.WriteString(templateExample)
	sb.WriteString("\n以下是该责任人的数据：\n")
	sb.WriteString("责任人：" + p.Name + "\n部门：" + p.Fleet + "\n\n")
	sb.WriteString("一、两违情况：\n" + analysis.ViolationAnalysis + "\n\n")
	sb.WriteString("二、培训情况：\n" + analysis.TrainingAnalysis + "\n\n")
	sb.WriteString("请严格按照以下JSON格式返回结果（不要包含markdown代码块标记）：\n")
	sb.WriteString(`{
  "riskAnalysis": "风险倾向的完整文本内容（包含开头语和编号列表，编号之间用换行分隔）",
  "suggestions": [
    {"title": "培训建议标题（如：人身安全培训）", "content": "具体培训内容"}
  ]
}`)
	return sb.String()
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func joinOr(items []string, sep string) string {
	if len(items) == 0 {
		return "无"
	}
	return strings.Join(items, sep)
}
