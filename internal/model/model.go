package model

import "strconv"

// Device categories exam records are normalized into. Anything that is not a
// risk-drill rig (模架) or a self-service trainer (自助机) keeps its raw label,
// falling back to DeviceOther when the raw label is empty.
const (
	DeviceRiskRig   = "模架"
	DeviceSelfServe = "自助机"
	DeviceOther     = "其他"
)

// PassScore is the cutoff below which an exam record counts as a weak item.
const PassScore = 80

// Violation is one recorded rule infraction (两违 record) attributed to a
// responsible person.
type Violation struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Standard    string `json:"standard"`
	Level       string `json:"level"`
	Penalty     string `json:"penalty"`
}

// ExamRecord is one training or exam result, with the device classified into
// a canonical category alongside the raw label.
type ExamRecord struct {
	Device    string  `json:"device"`
	DeviceRaw string  `json:"device_raw"`
	TaskName  string  `json:"task_name"`
	Score     float64 `json:"score"`
	ScoreStr  string  `json:"score_str"`
	Result    string  `json:"result"`
	Date      string  `json:"date"`
}

// Label returns the best display name for the record.
func (e ExamRecord) Label() string {
	if e.TaskName != "" {
		return e.TaskName
	}
	if e.DeviceRaw != "" {
		return e.DeviceRaw
	}
	return e.Device
}

// FormatScore renders the score without trailing zeros (55, 82.5).
func (e ExamRecord) FormatScore() string {
	return strconv.FormatFloat(e.Score, 'f', -1, 64)
}

// Person aggregates everything known about one responsible person. Identity
// is the (name, fleet) pair.
type Person struct {
	Name         string       `json:"name"`
	Fleet        string       `json:"fleet"`
	SalaryNumber string       `json:"salary_number"`
	Violations   []Violation  `json:"violations"`
	Exams        []ExamRecord `json:"exams"`
}

// Key returns the lookup key used for reports and batch results.
func (p Person) Key() string {
	return p.Name + "__" + p.Fleet
}

// WeakExams returns the exam records scoring below PassScore, in order.
func (p Person) WeakExams() []ExamRecord {
	var weak []ExamRecord
	for _, e := range p.Exams {
		if e.Score < PassScore {
			weak = append(weak, e)
		}
	}
	return weak
}

// QuestionBank holds one uploaded question file: its header row and raw body
// rows. Column roles are resolved per bank by header inspection.
type QuestionBank struct {
	Label   string     `json:"label"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// MatchedQuestion is a question-bank row enriched with a relevance score and
// resolved display fields.
type MatchedQuestion struct {
	Row          []string `json:"row"`
	Relevance    int      `json:"relevance"`
	Category     string   `json:"category"`
	Headers      []string `json:"headers"`
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	Options      []string `json:"options"`
	Answer       string   `json:"answer"`
	Explanation  string   `json:"explanation"`
}

// Suggestion is one titled training suggestion.
type Suggestion struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AnalysisResult holds the four narrative sections of a person's report.
type AnalysisResult struct {
	ViolationAnalysis string       `json:"violation_analysis"`
	TrainingAnalysis  string       `json:"training_analysis"`
	RiskAnalysis      string       `json:"risk_analysis"`
	Suggestions       []Suggestion `json:"suggestions"`
}

// GenAnalysis is the payload shape the generation service returns: risk text
// plus suggestions, the two sections that benefit from generated prose.
type GenAnalysis struct {
	RiskAnalysis string       `json:"riskAnalysis"`
	Suggestions  []Suggestion `json:"suggestions"`
}

// PersonAnalysis pairs a person with their baseline analysis.
type PersonAnalysis struct {
	Person   Person
	Analysis AnalysisResult
}

// ViolationGroup is a set of people sharing the same violation-type and
// weak-exam-category signature. One generation call serves the whole group.
type ViolationGroup struct {
	Key                   string
	ViolationTypes        []string
	ViolationDescriptions []string
	ViolationStandards    []string
	WeakExams             []string
	Members               []PersonAnalysis
}

// Report is the finished product for one person.
type Report struct {
	Person    Person            `json:"person"`
	Analysis  AnalysisResult    `json:"analysis"`
	Questions []MatchedQuestion `json:"questions"`
}

// BatchProgress is re-emitted on every state change during a batch run.
type BatchProgress struct {
	Total        int
	Completed    int
	CurrentGroup string
	Failed       int
}

// AIConfig holds the generation endpoint settings passed in from the CLI.
type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Enabled bool
}
