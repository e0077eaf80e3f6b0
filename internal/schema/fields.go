package schema

// FieldSpec describes one canonical field: its key, a human label, and the
// ordered header aliases it may appear under in uploaded files.
type FieldSpec struct {
	Key     string
	Label   string
	Aliases []string
}

// Unmatched marks a field no column could be resolved for.
const Unmatched = -1

// ColumnMap maps a canonical field key to a column index, or Unmatched.
type ColumnMap map[string]int

// ViolationFields are the canonical columns of a 两违 (rule violation) table.
var ViolationFields = []FieldSpec{
	{Key: "name", Label: "责任人/姓名", Aliases: []string{"责任人", "姓名", "名字", "人员", "职工", "当事人", "违章人", "被考核人"}},
	{Key: "fleet", Label: "责任人部门", Aliases: []string{
		"责任人所属部门", "责任人部门", "责任人所属单位", "责任人单位", "责任人所属车间", "责任人车间", "责任人所属",
		"所属车队", "车队", "班组", "部门", "单位", "车间", "所属", "所在单位", "所在车队",
	}},
	{Key: "salaryNumber", Label: "工资号", Aliases: []string{"工资号", "员工号", "工号", "职工号", "编号", "人员编号"}},
	{Key: "date", Label: "日期", Aliases: []string{"发生日期", "发生时间", "检查日期", "日期", "时间", "违章日期", "两违日期"}},
	{Key: "type", Label: "问题类别/性质", Aliases: []string{"问题类别", "问题性质", "类型", "类别", "违章类型", "两违类型", "性质", "违规类型"}},
	{Key: "description", Label: "问题描述", Aliases: []string{"问题描述", "具体问题", "描述", "内容", "违章内容", "违章描述", "事由", "简要", "摘要", "问题"}},
	{Key: "standard", Label: "考核标准", Aliases: []string{"考核标准", "违反标准", "标准", "依据", "规定", "条款", "考核依据", "违反条款"}},
	{Key: "level", Label: "严重程度", Aliases: []string{"程度", "严重", "等级", "级别", "严重程度"}},
	{Key: "penalty", Label: "处理结果", Aliases: []string{"处理结果", "考核结果", "处理", "处罚", "结果", "考核", "扣分"}},
}

// ExamFields are the canonical columns of a training/exam result table.
var ExamFields = []FieldSpec{
	{Key: "name", Label: "姓名", Aliases: []string{"姓名", "名字", "人员", "职工", "学员", "司机", "学员姓名"}},
	{Key: "fleet", Label: "车队/单位", Aliases: []string{"所属车队", "车队", "班组", "部门", "单位", "车间", "所属"}},
	{Key: "task", Label: "任务/项目名称", Aliases: []string{"任务名称", "实训项目", "培训项目", "训练项目", "项目名称", "科目名称", "任务", "项目", "科目"}},
	{Key: "device", Label: "设备类型", Aliases: []string{"设备类型", "设备名称", "实训设备", "演练装置", "培训设备", "设备", "装置"}},
	{Key: "score", Label: "成绩/得分", Aliases: []string{"成绩", "得分", "分数", "分值", "总分", "考核成绩", "总成绩", "评分", "考试成绩"}},
	{Key: "result", Label: "考核结果", Aliases: []string{"考核结果", "是否合格", "合格", "通过", "评定", "结果"}},
	{Key: "date", Label: "日期", Aliases: []string{"日期", "时间", "考试日期", "考试时间", "实训日期", "培训日期", "培训时间"}},
}

// Correction keyword tables. Many real violation tables carry columns for
// both the examiner (考核人) and the responsible person (责任人); the tables
// below drive the heuristics that keep the mapping on the responsible person.
// Kept as data so new terminology extends without touching matching logic.
var (
	inspectorNameMarker   = "考核人"
	inspectorDeptMarkers  = []string{"考核", "检查人", "通知"}
	responsibleMarker     = "责任"
	responsibleNameMarker = "责任人"
	deptKeywords          = []string{"部门", "单位", "车间", "所属"}
)
