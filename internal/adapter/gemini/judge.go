package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github-assignment-grader/internal/common"
	"github-assignment-grader/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Judge 实现了 port.Judge 接口，把作业匹配评估外包给 Gemini
type Judge struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// 最多回传给调用方的改进建议条数
const maxSuggestions = 3

// 内部结构体，接收 AI 返回的 JSON
type aiResponse struct {
	MatchScore  float64  `json:"match_score"`
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions"`
}

// NewJudge 创建 Gemini 裁判
func NewJudge(ctx context.Context, apiKey string) (*Judge, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel("gemini-2.5-flash-lite")
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"

	return &Judge{
		client: client,
		model:  model,
	}, nil
}

// JudgeMatch 评估采样代码和作业要求的匹配程度
// 裁判是黑盒：这里只负责喂上下文、收 JSON，不对它的推理过程做任何假设
func (j *Judge) JudgeMatch(ctx context.Context, meta *domain.RepositoryMetadata, sample domain.FileSample, assignment string) (*domain.MatchReport, error) {
	// 1. 构造 Prompt
	var files strings.Builder
	for _, f := range sample {
		fmt.Fprintf(&files, "\n--- %s ---\n%s\n", f.Path, f.Content)
	}

	prompt := fmt.Sprintf(`
你是一位资深的编程课助教。请对照作业要求，评估下面这个 GitHub 仓库的完成情况：

作业要求:
%s

仓库信息:
- 名称: %s
- 描述: %s
- 语言: %s
- 提交数: %d
- 贡献者数: %d

采样代码:
%s

请严格按照 JSON 格式返回分析结果，包含以下字段：
1. match_score (0.0-1.0): 代码完成作业要求的程度。
2. explanation: 详细的中文分析。
3. suggestions: 最多3条具体的改进建议（字符串数组）。

请直接返回 JSON，不要包含 Markdown 格式标记。
`, assignment, meta.FullName, meta.Description, strings.Join(meta.Languages, ", "),
		meta.TotalCommits, meta.Contributors, files.String())

	// 2. 调用 AI
	resp, err := j.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIJudge, "AI 调用失败", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, common.NewError(common.ErrCodeAIJudge, "AI 返回内容为空")
	}

	part := resp.Candidates[0].Content.Parts[0]
	jsonStr, ok := part.(genai.Text)
	if !ok {
		return nil, common.NewError(common.ErrCodeAIJudge, "AI 返回格式错误")
	}

	// 3. 解析结果（智能清洗：哪怕包着 ```json 也能抠出中间的花括号部分）
	report, err := parseJudgeReply(string(jsonStr))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIJudge, "解析 AI 回复失败", err)
	}

	return report, nil
}

// parseJudgeReply 从 AI 的原始回复里提取并校验 MatchReport
func parseJudgeReply(rawContent string) (*domain.MatchReport, error) {
	start := strings.Index(rawContent, "{")
	end := strings.LastIndex(rawContent, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("无法提取 JSON, AI 原文: %s", rawContent)
	}

	cleanJson := rawContent[start : end+1]

	var res aiResponse
	if err := json.Unmarshal([]byte(cleanJson), &res); err != nil {
		return nil, fmt.Errorf("JSON 解析失败: %s | 原文: %s", err, cleanJson)
	}

	// 分数收敛到 [0,1]，建议最多3条，别让 AI 的发挥破坏下游契约
	report := &domain.MatchReport{
		MatchScore:  domain.Clamp01(res.MatchScore),
		Explanation: res.Explanation,
		Suggestions: res.Suggestions,
	}
	if len(report.Suggestions) > maxSuggestions {
		report.Suggestions = report.Suggestions[:maxSuggestions]
	}
	return report, nil
}

// SemanticSearch 用自然语言在历史分析报告里做问答检索
func (j *Judge) SemanticSearch(ctx context.Context, reports []*domain.AnalysisReport, userQuery string) (string, error) {
	var listing strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&listing, "- %s | 匹配度 %.2f | %s | 作业: %s\n",
			r.RepoName, r.MatchScore, r.Assessment, r.Assignment)
	}

	prompt := fmt.Sprintf(`
下面是历史作业分析报告的清单：

%s

用户的问题是: %s

请基于清单用中文回答，引用具体的仓库名。答不上来就直说。
`, listing.String(), userQuery)

	resp, err := j.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIJudge, "AI 调用失败", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewError(common.ErrCodeAIJudge, "AI 返回内容为空")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", common.NewError(common.ErrCodeAIJudge, "AI 返回格式错误")
	}
	return string(text), nil
}
