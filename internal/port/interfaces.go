package port

import (
	"context"

	"github-assignment-grader/internal/domain"
)

// MetadataProvider (情报员): 负责从 GitHub 拉仓库元数据和源码采样
// 它可以是 REST API 客户端，将来也可以换成本地 clone
type MetadataProvider interface {
	// 拉取仓库元数据：语言分布、提交数、贡献者数等
	FetchMetadata(ctx context.Context, owner, name string) (*domain.RepositoryMetadata, error)

	// 按确定性规则采样最多 MaxSampleFiles 个源码文件（内容已截断）
	FetchSample(ctx context.Context, owner, name string) (domain.FileSample, error)
}

// Judge (裁判): 负责调用 LLM (Gemini) 评估代码和作业要求的匹配度
// 黑盒：只消费 {分数, 解释, 建议}，不依赖它的内部推理
type Judge interface {
	JudgeMatch(ctx context.Context, meta *domain.RepositoryMetadata, sample domain.FileSample, assignment string) (*domain.MatchReport, error)

	// SemanticSearch 对应历史报告的自然语言查询功能
	SemanticSearch(ctx context.Context, reports []*domain.AnalysisReport, userQuery string) (string, error)
}

// Detector (鉴定师): 启发式 AI 代码检测，纯函数、确定性、不碰网络
type Detector interface {
	Detect(sample domain.FileSample, meta *domain.RepositoryMetadata) *domain.DetectionResult
}

// ReportStore (档案员): 负责分析报告的存储和查询
type ReportStore interface {
	// 保存报告（同一仓库重复分析做 Upsert）
	Save(ctx context.Context, report *domain.AnalysisReport) error

	// 判断是否已经分析过（防重）
	Exists(ctx context.Context, reportID string) (bool, error)

	// 标记为已推送
	MarkAsNotified(ctx context.Context, reportID string) error

	// 关键词搜索历史报告
	Search(ctx context.Context, query string) ([]*domain.AnalysisReport, error)

	// 取最近的报告，供 AI 语义查询当上下文
	GetRecent(ctx context.Context, limit int) ([]*domain.AnalysisReport, error)

	// 取还没推送过的可疑报告
	GetUnnotified(ctx context.Context) ([]*domain.AnalysisReport, error)
}

// Notifier (信使): 把可疑报告推送给老师/审核人 (飞书)
type Notifier interface {
	Notify(ctx context.Context, report *domain.AnalysisReport) error
}
