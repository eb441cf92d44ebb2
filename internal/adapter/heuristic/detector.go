package heuristic

import (
	"fmt"
	"math"
	"strings"

	"github-assignment-grader/internal/domain"
)

// Detector 实现了 port.Detector 接口
// 纯函数式启发法：不碰网络、不调模型、没有共享状态，同样的输入永远产出同样的结果
// 所有阈值都是经验默认值，不是对真实数据调参的产物，改的时候别迷信原始数字
type Detector struct{}

// NewDetector 创建启发式检测器
func NewDetector() *Detector {
	return &Detector{}
}

// 维度权重：固定常量，必须恒等于 1（有测试盯着）
const (
	weightComments      = 0.2
	weightStructure     = 0.2
	weightNaming        = 0.2
	weightErrorHandling = 0.2
	weightMetadata      = 0.2
)

// 没有可分析代码时，代码维度的中性默认贡献
const neutralContribution = 0.5

// 注释维度：AI 代码的注释密度往往落在一个"过于工整"的区间里
// 低于区间线性爬坡，区间内封顶，超过区间再往下衰减（驼峰形状，不是单调的）
const (
	commentBandLow  = 0.20 // 可疑区间下界
	commentBandHigh = 0.40 // 可疑区间上界
	commentPeak     = 0.85 // 区间内的贡献
	commentFloor    = 0.25 // 零注释时的贡献
	commentTail     = 0.45 // 密度 100% 时衰减到的贡献

	aiPhraseBonus      = 0.05 // 命中一条 AI 味注释短语
	aiPhraseCap        = 0.15
	humanMarkerPenalty = 0.10 // 命中一条人味标记 (TODO/FIXME/...)
	humanMarkerCap     = 0.30
)

// 结构维度
const (
	uniformLineCV         = 0.50 // 行长变异系数低于它算"模板化"
	organicLineCV         = 0.90 // 高于它算"有机生长"
	uniformLineBonus      = 0.20
	organicLinePenalty    = 0.15
	mixedIndentPenalty    = 0.15
	consistentIndentBonus = 0.10
	headerUniformBonus    = 0.10 // 每个文件都以注释头开场
	entrypointBonus       = 0.05 // Python 的 main 守卫样板
)

// 命名维度
const (
	genericNameStep   = 0.03
	genericNameCap    = 0.25
	adhocNameStep     = 0.04
	adhocNameCap      = 0.25
	casingUniformMin  = 0.90 // 带风格的标识符里单一风格的占比
	casingSampleMin   = 5    // 样本太少不谈风格统一
	casingUniformBump = 0.10
)

// 错误处理维度
const (
	genericHandlerMin    = 3 // 至少这么多个处理块才谈"千篇一律"
	genericUniformBonus  = 0.30
	bareCatchPenalty     = 0.20
	exhaustiveDensity    = 8.0 // 每百行处理块数，高于它算"逢函数必包"
	sparseDensity        = 2.0 // 低于它算"想起来才写"
	densityAdjust        = 0.10
)

// 元数据维度
const (
	lowCommitMax         = 3 // 提交数不超过它算"一把梭上传"
	lowCommitBonus       = 0.20
	lowCommitLargeSizeKB = 100 // 提交少但代码量大，更可疑
	lowCommitSizeBonus   = 0.10
	organicCommitMin     = 20 // 超过它算有机的增量历史
	organicCommitCredit  = 0.15
	generatedDescBonus   = 0.25
	teamContributorMin   = 2 // 贡献者多于它说明有协作痕迹
	teamCredit           = 0.10
)

// AI 味注释短语（全部小写匹配）
var aiCommentPhrases = []string{
	"this function",
	"this method",
	"initialize the",
	"create a new",
	"returns the result",
	"performs the operation",
	"handles the request",
}

// 人味注释标记
var humanMarkers = []string{
	"todo",
	"fixme",
	"hack",
	"note:",
	"bug:",
	"xxx",
	"wtf",
	"quick fix",
}

// 各语言的单行/块注释起始标记（trim 后前缀匹配）
var commentMarkers = map[string][]string{
	"python":     {"#", `"""`, "'''"},
	"ruby":       {"#", "=begin"},
	"go":         {"//", "/*", "*", "*/"},
	"javascript": {"//", "/*", "*", "*/"},
	"typescript": {"//", "/*", "*", "*/"},
	"java":       {"//", "/*", "*", "*/"},
	"c":          {"//", "/*", "*", "*/"},
	"cpp":        {"//", "/*", "*", "*/"},
}

// 通用到没有信息量的命名（AI 爱用）
var genericNames = map[string]bool{
	"data": true, "result": true, "results": true, "temp": true,
	"value": true, "values": true, "item": true, "items": true,
	"response": true, "output": true, "input": true, "obj": true,
	"user_input": true, "result_data": true, "response_object": true,
	"input_parameter": true, "output_value": true, "temp_variable": true,
	"current_index": true,
}

// 懒得起名的人类命名
var adhocNames = map[string]bool{
	"i": true, "j": true, "k": true, "x": true, "y": true,
	"tmp": true, "val": true, "idx": true, "foo": true, "bar": true,
}

// 各语言的错误处理构造
var handlerPatterns = map[string]string{
	"python":     "except",
	"ruby":       "rescue",
	"go":         "if err != nil",
	"javascript": "catch",
	"typescript": "catch",
	"java":       "catch",
	"c":          "catch",
	"cpp":        "catch",
}

// 千篇一律的"兜底全捕获"写法（AI 味）
var genericHandlerPatterns = []string{
	"except exception as e",
	"catch (error)",
	"catch (exception e)",
}

// 偷懒的裸捕获写法（人味）
var bareHandlerPatterns = []string{
	"except:",
	"rescue =>",
}

// 生成物味道很重的仓库描述关键词
var generatedDescWords = map[string]bool{
	"generated": true, "automated": true, "ai": true,
	"chatgpt": true, "gpt": true, "copilot": true, "claude": true,
}

// Detect 计算一份检测报告
// 对任何合法输入都不会失败：空采样、不认识的语言都按中性/跳过处理
func (d *Detector) Detect(sample domain.FileSample, meta *domain.RepositoryMetadata) *domain.DetectionResult {
	files := analyzableFiles(sample)

	dims := []domain.DimensionScore{
		scoreComments(files),
		scoreStructure(files),
		scoreNaming(files),
		scoreErrorHandling(files),
		scoreMetadata(meta),
	}

	score := weightComments*dims[0].Contribution +
		weightStructure*dims[1].Contribution +
		weightNaming*dims[2].Contribution +
		weightErrorHandling*dims[3].Contribution +
		weightMetadata*dims[4].Contribution

	return &domain.DetectionResult{
		Score:      score,
		Assessment: domain.AssessmentFor(score),
		Confidence: domain.ConfidenceFor(score),
		Dimensions: dims,
	}
}

// analyzableFiles 过滤出能做代码分析的文件：语言可识别，内容强制截断
// 截断是契约的一部分，哪怕调用方塞进来没截断的内容也要在这里兜住
func analyzableFiles(sample domain.FileSample) []domain.SourceFile {
	var files []domain.SourceFile
	for _, f := range sample {
		if f.Language == "" {
			continue // 不认识的语言：跳过分析，但体积照旧计入采样总量
		}
		f.Content = domain.TruncateChars(f.Content, domain.MaxFileChars)
		files = append(files, f)
	}
	return files
}

// --- 维度 1：注释密度 ---

func scoreComments(files []domain.SourceFile) domain.DimensionScore {
	if len(files) == 0 {
		return domain.DimensionScore{
			Dimension:    domain.DimComments,
			Evidence:     "No files available for comment analysis",
			Contribution: neutralContribution,
		}
	}

	totalLines := 0
	commentLines := 0
	var joined strings.Builder
	for _, f := range files {
		lines := strings.Split(f.Content, "\n")
		totalLines += len(lines)
		markers := commentMarkers[f.Language]
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			for _, m := range markers {
				if strings.HasPrefix(trimmed, m) {
					commentLines++
					break
				}
			}
		}
		joined.WriteString(f.Content)
		joined.WriteString("\n")
	}

	density := float64(commentLines) / float64(totalLines)
	base := commentHump(density)

	lower := strings.ToLower(joined.String())
	aiAdj := 0.0
	for _, phrase := range aiCommentPhrases {
		if strings.Contains(lower, phrase) {
			aiAdj += aiPhraseBonus
		}
	}
	humanAdj := 0.0
	for _, marker := range humanMarkers {
		if strings.Contains(lower, marker) {
			humanAdj += humanMarkerPenalty
		}
	}

	contribution := domain.Clamp01(base + math.Min(aiAdj, aiPhraseCap) - math.Min(humanAdj, humanMarkerCap))

	return domain.DimensionScore{
		Dimension:    domain.DimComments,
		Evidence:     fmt.Sprintf("Comment density: %d/%d lines", commentLines, totalLines),
		Contribution: contribution,
	}
}

// commentHump 是注释密度到基础贡献的驼峰映射：爬坡 → 平台 → 衰减
func commentHump(density float64) float64 {
	switch {
	case density < commentBandLow:
		return commentFloor + (density/commentBandLow)*(commentPeak-commentFloor)
	case density <= commentBandHigh:
		return commentPeak
	default:
		return commentPeak - (density-commentBandHigh)/(1-commentBandHigh)*(commentPeak-commentTail)
	}
}

// --- 维度 2：结构规整度 ---

type structSignal struct {
	delta float64
	label string
}

func scoreStructure(files []domain.SourceFile) domain.DimensionScore {
	if len(files) == 0 {
		return domain.DimensionScore{
			Dimension:    domain.DimStructure,
			Evidence:     "No files available for structure analysis",
			Contribution: neutralContribution,
		}
	}

	var signals []structSignal

	// 信号一：行长变异系数，越低越像模板产物
	cv := lineLengthCV(files)
	if cv < uniformLineCV {
		signals = append(signals, structSignal{uniformLineBonus, "uniform line lengths"})
	} else if cv > organicLineCV {
		signals = append(signals, structSignal{-organicLinePenalty, "irregular line lengths"})
	}

	// 信号二：缩进风格
	hasSpace, hasTab := indentStyles(files)
	if hasSpace && hasTab {
		signals = append(signals, structSignal{-mixedIndentPenalty, "mixed indentation"})
	} else if hasSpace || hasTab {
		signals = append(signals, structSignal{consistentIndentBonus, "consistent indentation"})
	}

	// 信号三：每个文件都以注释头开场（docstring 体操）
	if len(files) >= 2 && allOpenWithHeader(files) {
		signals = append(signals, structSignal{headerUniformBonus, "uniform file headers"})
	}

	// 信号四：Python 的标准 main 守卫样板
	for _, f := range files {
		if f.Language == "python" &&
			strings.Contains(f.Content, "def main(") &&
			strings.Contains(f.Content, "__name__") {
			signals = append(signals, structSignal{entrypointBonus, "boilerplate entrypoint"})
			break
		}
	}

	contribution := neutralContribution
	dominant := "no dominant signal"
	best := 0.0
	for _, s := range signals {
		contribution += s.delta
		if math.Abs(s.delta) > best {
			best = math.Abs(s.delta)
			dominant = s.label
		}
	}

	return domain.DimensionScore{
		Dimension:    domain.DimStructure,
		Evidence:     fmt.Sprintf("Structure: %s (line length CV %.2f)", dominant, cv),
		Contribution: domain.Clamp01(contribution),
	}
}

// lineLengthCV 计算所有非空行长度的变异系数 (标准差/均值)
func lineLengthCV(files []domain.SourceFile) float64 {
	var lengths []float64
	for _, f := range files {
		for _, line := range strings.Split(f.Content, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lengths = append(lengths, float64(len(line)))
		}
	}
	if len(lengths) == 0 {
		return 0
	}

	mean := 0.0
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))

	return math.Sqrt(variance) / mean
}

// indentStyles 统计采样里出现过的缩进风格
func indentStyles(files []domain.SourceFile) (hasSpace, hasTab bool) {
	for _, f := range files {
		for _, line := range strings.Split(f.Content, "\n") {
			if strings.HasPrefix(line, " ") {
				hasSpace = true
			}
			if strings.HasPrefix(line, "\t") {
				hasTab = true
			}
		}
	}
	return hasSpace, hasTab
}

// allOpenWithHeader 判断是否每个文件的首个非空行都是注释
func allOpenWithHeader(files []domain.SourceFile) bool {
	for _, f := range files {
		markers := commentMarkers[f.Language]
		opened := false
		for _, line := range strings.Split(f.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			for _, m := range markers {
				if strings.HasPrefix(trimmed, m) {
					opened = true
					break
				}
			}
			break
		}
		if !opened {
			return false
		}
	}
	return true
}

// --- 维度 3：命名习惯 ---

func scoreNaming(files []domain.SourceFile) domain.DimensionScore {
	if len(files) == 0 {
		return domain.DimensionScore{
			Dimension:    domain.DimNaming,
			Evidence:     "No files available for naming analysis",
			Contribution: neutralContribution,
		}
	}

	genericHits := 0
	adhocHits := 0
	snakeCount := 0
	camelCount := 0

	for _, f := range files {
		for _, token := range identifierTokens(f.Content) {
			lower := strings.ToLower(token)
			if genericNames[lower] {
				genericHits++
			}
			if adhocNames[lower] {
				adhocHits++
			}
			if strings.Contains(token, "_") {
				snakeCount++
			} else if hasInnerUpper(token) {
				camelCount++
			}
		}
	}

	contribution := neutralContribution +
		math.Min(float64(genericHits)*genericNameStep, genericNameCap) -
		math.Min(float64(adhocHits)*adhocNameStep, adhocNameCap)

	// 全部采样统一一种命名风格也算一点 AI 痕迹：人类混用起来毫无心理负担
	styled := snakeCount + camelCount
	if styled >= casingSampleMin {
		ratio := math.Max(float64(snakeCount), float64(camelCount)) / float64(styled)
		if ratio >= casingUniformMin {
			contribution += casingUniformBump
		}
	}

	return domain.DimensionScore{
		Dimension:    domain.DimNaming,
		Evidence:     fmt.Sprintf("Naming: %d generic, %d ad-hoc identifiers", genericHits, adhocHits),
		Contribution: domain.Clamp01(contribution),
	}
}

// identifierTokens 用简单切分提取标识符，不做完整语法解析
func identifierTokens(content string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			t := cur.String()
			// 纯数字不是标识符
			if t[0] == '_' || isLetter(rune(t[0])) {
				tokens = append(tokens, t)
			}
			cur.Reset()
		}
	}
	for _, r := range content {
		if isLetter(r) || (r >= '0' && r <= '9') || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func hasInnerUpper(token string) bool {
	for i, r := range token {
		if i > 0 && r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

// --- 维度 4：错误处理 ---

func scoreErrorHandling(files []domain.SourceFile) domain.DimensionScore {
	if len(files) == 0 {
		return domain.DimensionScore{
			Dimension:    domain.DimErrorHandling,
			Evidence:     "No files available for error handling analysis",
			Contribution: neutralContribution,
		}
	}

	handlers := 0
	totalLines := 0
	var joined strings.Builder
	for _, f := range files {
		lower := strings.ToLower(f.Content)
		totalLines += strings.Count(f.Content, "\n") + 1
		if pattern, ok := handlerPatterns[f.Language]; ok {
			handlers += strings.Count(lower, pattern)
		}
		joined.WriteString(lower)
		joined.WriteString("\n")
	}

	// 完全没有错误处理是中性信号：判断不了是谁写的
	if handlers == 0 {
		return domain.DimensionScore{
			Dimension:    domain.DimErrorHandling,
			Evidence:     "No error handling constructs found",
			Contribution: neutralContribution,
		}
	}

	lower := joined.String()
	genericHits := 0
	for _, p := range genericHandlerPatterns {
		genericHits += strings.Count(lower, p)
	}
	bareHits := 0
	for _, p := range bareHandlerPatterns {
		bareHits += strings.Count(lower, p)
	}

	contribution := neutralContribution
	style := "ad hoc"

	// 逢处理必是同一句兜底全捕获 → 典型的生成物
	if handlers >= genericHandlerMin && genericHits >= handlers {
		contribution += genericUniformBonus
		style = "uniform"
	}
	if bareHits > 0 {
		contribution -= bareCatchPenalty
		style = "bare"
	}

	density := float64(handlers) / float64(totalLines) * 100
	if density > exhaustiveDensity {
		contribution += densityAdjust
	} else if density < sparseDensity {
		contribution -= densityAdjust
	}

	return domain.DimensionScore{
		Dimension:    domain.DimErrorHandling,
		Evidence:     fmt.Sprintf("Error handling: %d handlers, %s style", handlers, style),
		Contribution: domain.Clamp01(contribution),
	}
}

// --- 维度 5：仓库元数据 ---

func scoreMetadata(meta *domain.RepositoryMetadata) domain.DimensionScore {
	if meta == nil {
		return domain.DimensionScore{
			Dimension:    domain.DimMetadata,
			Evidence:     "No repository metadata available",
			Contribution: neutralContribution,
		}
	}

	contribution := neutralContribution

	// 提交历史：一把梭上传 vs 有机的增量提交
	if meta.TotalCommits <= lowCommitMax {
		contribution += lowCommitBonus
		if meta.SizeKB > lowCommitLargeSizeKB {
			// 没几个提交却有一大坨代码
			contribution += lowCommitSizeBonus
		}
	} else if meta.TotalCommits > organicCommitMin {
		contribution -= organicCommitCredit
	}

	// 描述里带着生成物的味道
	for _, word := range strings.Fields(strings.ToLower(meta.Description)) {
		if generatedDescWords[strings.Trim(word, ".,!?:;()")] {
			contribution += generatedDescBonus
			break
		}
	}

	if meta.Contributors > teamContributorMin {
		contribution -= teamCredit
	}

	return domain.DimensionScore{
		Dimension:    domain.DimMetadata,
		Evidence:     fmt.Sprintf("Commits: %d, Description analyzed", meta.TotalCommits),
		Contribution: domain.Clamp01(contribution),
	}
}
