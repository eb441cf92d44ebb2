package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// 采样契约常量
// 截断不是性能优化，而是硬性契约：控制 Token 成本，同时避免大文件在评分里占便宜
const (
	MaxSampleFiles = 5    // 每个仓库最多采样的文件数
	MaxFileChars   = 2000 // 每个文件进入评分前保留的最大字符数
)

// 扩展名 → 语言标签
// 只认这几种语言，不认识的文件会被代码维度跳过（但体积仍计入采样总量）
var extLanguage = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".c":    "c",
	".cpp":  "cpp",
	".rb":   "ruby",
}

// LanguageForPath 根据文件扩展名推断语言标签
// 推断不出来就返回空字符串，调用方自己决定怎么处理
func LanguageForPath(p string) string {
	return extLanguage[strings.ToLower(path.Ext(p))]
}

// SourceFile 代表一个从仓库采样的源码文件，抓取后不再修改
type SourceFile struct {
	Path     string `json:"path"`
	Language string `json:"language"` // 由扩展名推断，例如 "python"；不认识为空
	Content  string `json:"content"`  // 已截断到 MaxFileChars
	Size     int    `json:"size"`     // 截断前的原始字节数
}

// NewSourceFile 构造采样文件并执行截断
func NewSourceFile(filePath, content string) SourceFile {
	return SourceFile{
		Path:     filePath,
		Language: LanguageForPath(filePath),
		Content:  TruncateChars(content, MaxFileChars),
		Size:     len(content),
	}
}

// TruncateChars 按字符（不是字节）截断，避免把多字节字符切坏
func TruncateChars(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// FileSample 是有序的采样文件序列
// 选取必须是确定性的：同一仓库状态重复分析，检测器的输入必须一字不差
type FileSample []SourceFile

// TotalSize 返回采样文件的原始字节总量（含被跳过的文件，用于成本核算）
func (s FileSample) TotalSize() int {
	total := 0
	for _, f := range s {
		total += f.Size
	}
	return total
}

// RepositoryMetadata 是仓库的元数据快照，来自 GitHub API
type RepositoryMetadata struct {
	RepoID       int64    `json:"repo_id"`
	FullName     string   `json:"full_name"` // 例如 "octocat/hello-world"
	Description  string   `json:"description"`
	Languages    []string `json:"languages"`
	SizeKB       int      `json:"size_kb"`
	Stars        int      `json:"stars"`
	TotalCommits int      `json:"total_commits"`
	Contributors int      `json:"contributors"`
}

// MatchReport 是作业匹配裁判（LLM）的输出
// 对我们来说它是个黑盒：只消费结果，不关心推理过程
type MatchReport struct {
	MatchScore  float64  `json:"match_score"` // [0,1]
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions"`
}

// FallbackMatchReport 是 AI 裁判挂掉时的降级结果，保证整次分析不会因此失败
func FallbackMatchReport(err error) *MatchReport {
	return &MatchReport{
		MatchScore:  0.5,
		Explanation: fmt.Sprintf("AI 分析暂不可用: %v。已基于仓库结构完成基础分析。", err),
		Suggestions: []string{
			"确认作业要求的功能都已实现",
			"补充必要的文档说明",
			"加上合理的错误处理",
		},
	}
}

// AnalysisReport 是一次完整分析的落库记录：元数据 + 作业匹配 + AI 代码检测
type AnalysisReport struct {
	ID          string `json:"id" gorm:"primaryKey"` // "github-<repo_id>"
	RepoName    string `json:"repo_name"`            // 例如 "octocat/hello-world"
	RepoURL     string `json:"repo_url"`
	Description string `json:"description"`
	Languages   string `json:"languages"` // 逗号连接
	Stars       int    `json:"stars"`
	SizeKB      int    `json:"size_kb"`

	// 提交历史信息（检测器的 metadata 维度也用它）
	TotalCommits int `json:"total_commits"`
	Contributors int `json:"contributors"`

	// 作业描述原文，供历史查询时回放
	Assignment string `json:"assignment" gorm:"type:text"`

	// --- LLM 作业匹配结果 ---
	MatchScore  float64 `json:"match_score"`
	Explanation string  `json:"explanation" gorm:"type:text"`
	Suggestions string  `json:"suggestions" gorm:"type:text"` // 用 " | " 连接

	// --- 启发式 AI 代码检测结果 ---
	AIScore       float64 `json:"ai_detection_score"`
	Assessment    string  `json:"assessment"`
	Confidence    float64 `json:"confidence"`
	CommentsNote  string  `json:"comments_note"`
	StructureNote string  `json:"structure_note"`
	NamingNote    string  `json:"naming_note"`
	ErrHandleNote string  `json:"error_handling_note"`
	MetadataNote  string  `json:"metadata_note"`

	AlreadyNotified bool      `json:"already_notified"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// IsSuspicious 判断这份提交是否值得推送人工复核
func (r *AnalysisReport) IsSuspicious() bool {
	return r.Assessment == AssessmentAI
}
