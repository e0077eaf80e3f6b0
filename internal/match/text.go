package match

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation stripped before n-gram extraction and keyword splitting.
var punctRunes = map[rune]bool{
	'，': true, ',': true, '、': true, '。': true, '；': true, ';': true,
	'：': true, ':': true, '（': true, '）': true, '(': true, ')': true,
	'[': true, ']': true, '【': true, '】': true, '“': true, '”': true,
	'‘': true, '’': true, '"': true, '\'': true, '《': true, '》': true,
	'-': true, '—': true, '/': true, '\\': true,
}

func isSeparator(r rune) bool {
	return punctRunes[r] || unicode.IsSpace(r) || unicode.IsDigit(r)
}

// stripText removes punctuation and whitespace; digits too when dropDigits is
// set (n-gram sources drop digits, question display text keeps them).
func stripText(s string, dropDigits bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if punctRunes[r] || unicode.IsSpace(r) {
			continue
		}
		if dropDigits && unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ngrams extracts every contiguous rune substring of length minLen..maxLen
// from the cleaned text.
func ngrams(text string, minLen, maxLen int) []string {
	if text == "" {
		return nil
	}
	clean := []rune(stripText(text, true))
	var out []string
	for n := minLen; n <= maxLen && n <= len(clean); n++ {
		for i := 0; i+n <= len(clean); i++ {
			out = append(out, string(clean[i:i+n]))
		}
	}
	return out
}

// Words too generic to carry matching signal.
var stopWords = map[string]bool{
	"培训": true, "考试": true, "项目": true, "成绩": true, "机车": true,
	"司机": true, "人员": true, "设备": true, "装置": true,
	"乘务": true, "乘务员": true, "进行": true, "开展": true, "要求": true,
	"规定": true, "相关": true, "情况": true,
	"以下": true, "其中": true, "以及": true, "通过": true, "执行": true,
	"操作": true, "应当": true, "必须": true,
	"问题": true, "描述": true, "标准": true, "考核": true, "违反": true,
	"记录": true, "发生": true, "检查": true,
	"公司": true, "段": true, "车间": true, "班组": true, "负责": true,
	"管理": true, "按照": true, "根据": true,
	"当日": true, "当天": true, "发现": true, "未按": true, "应该": true,
	"不得": true,
}

// keywords splits text on punctuation, whitespace and digits and keeps
// 2..20-rune words that are not stop words.
func keywords(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, w := range strings.FieldsFunc(text, isSeparator) {
		n := utf8.RuneCountInString(w)
		if n >= 2 && n <= 20 && !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// Recognized railway safety and operations phrases. These match verbatim and
// outweigh generic keywords.
var domainPhrases = []string{
	"机班同行",
	"出退勤", "交接班", "走行路线",
	"运行揭示", "司机手册", "手册填记",
	"紧急制动", "制动力弱", "严重晃车", "轴温报警",
	"信号机", "进站信号", "出站信号",
	"折角塞门", "列尾装置",
	"非正常行车", "电话闭塞", "绿色许可证", "引导接车",
	"LKJ", "LSP", "GSM-R", "ATP",
	"人身安全", "劳动安全", "作业安全",
	"路票", "调车",
}

var (
	// 一站二看三通过 and numbered variants of the line-crossing rule.
	crossingRuleRe = regexp.MustCompile(`[一二三四五六七八九十]+站[一二三四五六七八九十]*看[一二三四五六七八九十]*通过`)
	cjkSpanRe      = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{3,6}`)
)

// domainTerms extracts recognized phrases plus generic 3-6 character CJK
// spans (minus stop words) from the text, deduplicated in first-seen order.
func domainTerms(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, m := range crossingRuleRe.FindAllString(text, -1) {
		add(m)
	}
	for _, p := range domainPhrases {
		if strings.Contains(text, p) {
			add(p)
		}
	}
	for _, seg := range cjkSpanRe.FindAllString(text, -1) {
		if !stopWords[seg] {
			add(seg)
		}
	}
	return out
}
