package heuristic

import (
	"fmt"
	"strings"
	"testing"

	"github-assignment-grader/internal/domain"
	"github.com/stretchr/testify/assert"
)

// pyFile 构造一个 python 采样文件，省得每个用例都写一遍结构体
func pyFile(content string) domain.SourceFile {
	return domain.SourceFile{Path: "main.py", Language: "python", Content: content, Size: len(content)}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := weightComments + weightStructure + weightNaming + weightErrorHandling + weightMetadata
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCommentHump(t *testing.T) {
	tests := []struct {
		name     string
		density  float64
		expected float64
	}{
		{"零注释落在地板", 0.0, 0.25},
		{"爬坡段中点", 0.1, 0.55},
		{"可疑区间下界封顶", 0.2, 0.85},
		{"可疑区间上界封顶", 0.4, 0.85},
		{"衰减段中点", 0.7, 0.65},
		{"全是注释衰减到尾部", 1.0, 0.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, commentHump(tt.density), 1e-9)
		})
	}

	// 驼峰形状：爬坡段单调升，衰减段单调降
	assert.Less(t, commentHump(0.0), commentHump(0.1))
	assert.Less(t, commentHump(0.1), commentHump(0.2))
	assert.Greater(t, commentHump(0.4), commentHump(0.7))
	assert.Greater(t, commentHump(0.7), commentHump(1.0))
}

func TestScoreComments(t *testing.T) {
	tests := []struct {
		name         string
		files        []domain.SourceFile
		expected     float64
		wantEvidence string
	}{
		{
			name:         "空采样给中性分",
			files:        nil,
			expected:     0.5,
			wantEvidence: "No files available for comment analysis",
		},
		{
			name: "密度落在可疑区间",
			files: []domain.SourceFile{pyFile(
				"# setup\n# config\n# run\nx1 = 1\nx2 = 2\nx3 = 3\nx4 = 4\nx5 = 5\nx6 = 6\nx7 = 7")},
			expected:     0.85,
			wantEvidence: "Comment density: 3/10 lines",
		},
		{
			name: "AI味短语加分到上限",
			files: []domain.SourceFile{pyFile(
				"# this function loads config\n# create a new parser\n# initialize the cache\nx1 = 1\nx2 = 2\nx3 = 3\nx4 = 4\nx5 = 5\nx6 = 6\nx7 = 7")},
			expected:     1.0, // 0.85 + 0.15 上限后再 clamp
			wantEvidence: "Comment density: 3/10 lines",
		},
		{
			name: "人味标记扣分",
			files: []domain.SourceFile{pyFile(
				"# todo revisit this\n# hack around parser\n# fixme later\nx1 = 1\nx2 = 2\nx3 = 3\nx4 = 4\nx5 = 5\nx6 = 6\nx7 = 7")},
			expected:     0.55, // 0.85 - 3 个标记
			wantEvidence: "Comment density: 3/10 lines",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreComments(tt.files)
			assert.Equal(t, domain.DimComments, got.Dimension)
			assert.Equal(t, tt.wantEvidence, got.Evidence)
			assert.InDelta(t, tt.expected, got.Contribution, 1e-9)
		})
	}
}

func TestScoreStructure(t *testing.T) {
	longLine := " " + strings.Repeat("q", 59) // 60 列，空格缩进

	tests := []struct {
		name         string
		files        []domain.SourceFile
		expected     float64
		wantDominant string
	}{
		{
			name:         "空采样给中性分",
			files:        nil,
			expected:     0.5,
			wantDominant: "No files available for structure analysis",
		},
		{
			name:         "行长完全一致算模板化",
			files:        []domain.SourceFile{pyFile("total = 111\ncount = 222\nvalue = 333")},
			expected:     0.7, // 0.5 + 行长信号
			wantDominant: "uniform line lengths",
		},
		{
			name: "行长参差算有机生长",
			files: []domain.SourceFile{pyFile(strings.Join(
				[]string{"ab", longLine, "ab", longLine, "ab", longLine}, "\n"))},
			expected:     0.45, // 0.5 - 有机行长 + 统一缩进
			wantDominant: "irregular line lengths",
		},
		{
			name: "混用缩进是人味信号",
			files: []domain.SourceFile{
				{Path: "a.py", Language: "python", Content: "def a():\n\tx = 1\n"},
				{Path: "b.py", Language: "python", Content: "def b():\n    y = 2\n"},
			},
			expected:     0.55, // 0.5 + 行长统一 - 混用缩进
			wantDominant: "uniform line lengths",
		},
		{
			name: "main守卫样板",
			files: []domain.SourceFile{pyFile(
				"def main(): run()\nx = 1\nif __name__ == '__main__': main()")},
			expected:     0.55, // 0.5 + 入口样板，行长 CV 落在中间区
			wantDominant: "boilerplate entrypoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreStructure(tt.files)
			assert.Equal(t, domain.DimStructure, got.Dimension)
			assert.Contains(t, got.Evidence, tt.wantDominant)
			assert.InDelta(t, tt.expected, got.Contribution, 1e-9)
		})
	}
}

func TestLineLengthCV(t *testing.T) {
	// 三行等长 → 变异系数为 0；空行不计入
	files := []domain.SourceFile{pyFile("aaa\n\nbbb\n\nccc")}
	assert.InDelta(t, 0.0, lineLengthCV(files), 1e-9)

	// 没有非空行 → 0
	assert.InDelta(t, 0.0, lineLengthCV([]domain.SourceFile{pyFile("\n\n")}), 1e-9)
}

func TestIndentStyles(t *testing.T) {
	hasSpace, hasTab := indentStyles([]domain.SourceFile{pyFile("def f():\n\tx = 1\n    y = 2\n")})
	assert.True(t, hasSpace)
	assert.True(t, hasTab)

	hasSpace, hasTab = indentStyles([]domain.SourceFile{pyFile("a = 1\nb = 2\n")})
	assert.False(t, hasSpace)
	assert.False(t, hasTab)
}

func TestAllOpenWithHeader(t *testing.T) {
	withHeader := []domain.SourceFile{
		{Path: "a.py", Language: "python", Content: "\n# module a\nx = 1\n"},
		{Path: "b.py", Language: "python", Content: "# module b\ny = 2\n"},
	}
	assert.True(t, allOpenWithHeader(withHeader))

	mixed := append(withHeader, pyFile("z = 3\n"))
	assert.False(t, allOpenWithHeader(mixed))
}

func TestScoreNaming(t *testing.T) {
	tests := []struct {
		name         string
		files        []domain.SourceFile
		expected     float64
		wantEvidence string
	}{
		{
			name:         "空采样给中性分",
			files:        nil,
			expected:     0.5,
			wantEvidence: "No files available for naming analysis",
		},
		{
			name:         "通用命名加分",
			files:        []domain.SourceFile{pyFile("result = data\noutput = value\n")},
			expected:     0.62, // 4 个通用命名
			wantEvidence: "Naming: 4 generic, 0 ad-hoc identifiers",
		},
		{
			name:         "随手命名扣到上限",
			files:        []domain.SourceFile{pyFile("i = 1\nj = 2\nx = 3\ny = 4\nk = 5\ntmp = 6\nval = 7\n")},
			expected:     0.25, // 7 × 0.04 被 0.25 上限截住
			wantEvidence: "Naming: 0 generic, 7 ad-hoc identifiers",
		},
		{
			name:         "命名风格铁板一块算AI痕迹",
			files:        []domain.SourceFile{pyFile("user_name = one\nuser_age = two\nuser_email = three\nuser_addr = four\nuser_tel = five")},
			expected:     0.6, // 5 个 snake_case，占比 100%
			wantEvidence: "Naming: 0 generic, 0 ad-hoc identifiers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreNaming(tt.files)
			assert.Equal(t, domain.DimNaming, got.Dimension)
			assert.Equal(t, tt.wantEvidence, got.Evidence)
			assert.InDelta(t, tt.expected, got.Contribution, 1e-9)
		})
	}
}

func TestIdentifierTokens(t *testing.T) {
	tokens := identifierTokens("count = 42 + offset_total\n3abc invalid")
	assert.Equal(t, []string{"count", "offset_total", "invalid"}, tokens)
}

func TestHasInnerUpper(t *testing.T) {
	assert.True(t, hasInnerUpper("userName"))
	assert.False(t, hasInnerUpper("username"))
	assert.False(t, hasInnerUpper("Username")) // 首字母大写不算驼峰内部
}

func TestScoreErrorHandling(t *testing.T) {
	uniformPy := strings.Repeat("try:\n    pass\nexcept Exception as e:\n    pass\n", 3)
	sparsePy := "try:\n    pass\nexcept ValueError:\n    pass\n" + strings.Repeat("x = 1\n", 96)

	tests := []struct {
		name         string
		files        []domain.SourceFile
		expected     float64
		wantEvidence string
	}{
		{
			name:         "空采样给中性分",
			files:        nil,
			expected:     0.5,
			wantEvidence: "No files available for error handling analysis",
		},
		{
			name:         "完全没有错误处理也是中性",
			files:        []domain.SourceFile{pyFile("x = 1\ny = 2\n")},
			expected:     0.5,
			wantEvidence: "No error handling constructs found",
		},
		{
			name:         "千篇一律的兜底全捕获",
			files:        []domain.SourceFile{pyFile(uniformPy)},
			expected:     0.9, // 0.5 + 统一兜底 + 高密度
			wantEvidence: "Error handling: 3 handlers, uniform style",
		},
		{
			name:         "裸捕获是偷懒的人味",
			files:        []domain.SourceFile{pyFile("try:\n    x = 1\nexcept:\n    pass\n")},
			expected:     0.4, // 0.5 - 裸捕获 + 高密度
			wantEvidence: "Error handling: 1 handlers, bare style",
		},
		{
			name:         "稀疏的针对性处理",
			files:        []domain.SourceFile{pyFile(sparsePy)},
			expected:     0.4, // 0.5 - 低密度
			wantEvidence: "Error handling: 1 handlers, ad hoc style",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreErrorHandling(tt.files)
			assert.Equal(t, domain.DimErrorHandling, got.Dimension)
			assert.Equal(t, tt.wantEvidence, got.Evidence)
			assert.InDelta(t, tt.expected, got.Contribution, 1e-9)
		})
	}
}

func TestScoreMetadata(t *testing.T) {
	tests := []struct {
		name     string
		meta     *domain.RepositoryMetadata
		expected float64
	}{
		{"缺元数据给中性分", nil, 0.5},
		{"一把梭上传且体积大", &domain.RepositoryMetadata{TotalCommits: 1, SizeKB: 500, Contributors: 1}, 0.8},
		{"提交少但体积小", &domain.RepositoryMetadata{TotalCommits: 2, SizeKB: 50, Contributors: 1}, 0.7},
		{"有机的增量历史", &domain.RepositoryMetadata{TotalCommits: 50, Contributors: 1}, 0.35},
		{"描述自带生成物味道", &domain.RepositoryMetadata{TotalCommits: 10, Description: "Generated with ChatGPT", Contributors: 1}, 0.75},
		{"多人协作减分", &domain.RepositoryMetadata{TotalCommits: 10, Contributors: 5}, 0.4},
		{"多信号叠加", &domain.RepositoryMetadata{TotalCommits: 25, Description: "AI generated project", Contributors: 3}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreMetadata(tt.meta)
			assert.Equal(t, domain.DimMetadata, got.Dimension)
			assert.InDelta(t, tt.expected, got.Contribution, 1e-9)
			if tt.meta != nil {
				assert.Equal(t, fmt.Sprintf("Commits: %d, Description analyzed", tt.meta.TotalCommits), got.Evidence)
			}
		})
	}
}

func TestDetect_EmptySampleIsNeutral(t *testing.T) {
	d := NewDetector()
	meta := &domain.RepositoryMetadata{TotalCommits: 10, Contributors: 1}

	result := d.Detect(domain.FileSample{}, meta)

	assert.InDelta(t, 0.5, result.Score, 1e-9)
	assert.Equal(t, domain.AssessmentMixed, result.Assessment)
	assert.InDelta(t, 0.0, result.Confidence, 1e-9)

	// 维度顺序固定
	assert.Len(t, result.Dimensions, 5)
	for i, name := range domain.DimensionNames {
		assert.Equal(t, name, result.Dimensions[i].Dimension)
	}
	assert.Equal(t, "No files available for comment analysis", result.EvidenceFor(domain.DimComments))
}

func TestDetect_PinnedScenario(t *testing.T) {
	d := NewDetector()
	sample := domain.FileSample{pyFile("total = 111\ncount = 222\nvalue = 333")}
	meta := &domain.RepositoryMetadata{TotalCommits: 1, Contributors: 1}

	result := d.Detect(sample, meta)

	// 逐维度手算: comments 0.25, structure 0.70, naming 0.53, error_handling 0.50, metadata 0.70
	assert.InDelta(t, 0.25, result.Dimensions[0].Contribution, 1e-9)
	assert.InDelta(t, 0.70, result.Dimensions[1].Contribution, 1e-9)
	assert.InDelta(t, 0.53, result.Dimensions[2].Contribution, 1e-9)
	assert.InDelta(t, 0.50, result.Dimensions[3].Contribution, 1e-9)
	assert.InDelta(t, 0.70, result.Dimensions[4].Contribution, 1e-9)

	assert.InDelta(t, 0.536, result.Score, 1e-9)
	assert.Equal(t, domain.AssessmentMixed, result.Assessment)
	assert.InDelta(t, 0.072, result.Confidence, 1e-9)
}

func TestDetect_Deterministic(t *testing.T) {
	d := NewDetector()
	sample := domain.FileSample{
		pyFile("# setup\nresult = compute()\ntry:\n    run()\nexcept Exception as e:\n    pass\n"),
		{Path: "util.js", Language: "javascript", Content: "// helpers\nconst data = load();\n", Size: 30},
	}
	meta := &domain.RepositoryMetadata{TotalCommits: 3, SizeKB: 200, Description: "automated homework", Contributors: 1}

	first := d.Detect(sample, meta)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Detect(sample, meta))
	}
}

func TestDetect_TruncatesOversizedContent(t *testing.T) {
	// 调用方塞进来没截断的内容也必须在检测器里兜住：
	// 第 2000 字符之后的注释行不能影响评分
	long := strings.Repeat("ab", 1000) + "\n# hidden\n# hidden"
	var sample domain.FileSample
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py"} {
		sample = append(sample, domain.SourceFile{Path: name, Language: "python", Content: long, Size: len(long)})
	}

	result := NewDetector().Detect(sample, nil)

	// 每个文件截断后只剩 1 行，第 2000 字符之后的两行注释不参与评分
	assert.Equal(t, "Comment density: 0/5 lines", result.EvidenceFor(domain.DimComments))
}

func TestDetect_SkipsUnrecognizedLanguages(t *testing.T) {
	sample := domain.FileSample{domain.NewSourceFile("README.md", "# Title\nsome text\n")}

	result := NewDetector().Detect(sample, nil)

	assert.Equal(t, "No files available for comment analysis", result.EvidenceFor(domain.DimComments))
	assert.InDelta(t, 0.5, result.Score, 1e-9)
}
