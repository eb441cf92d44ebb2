package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github-assignment-grader/internal/common"
	"github-assignment-grader/internal/domain"
	"github-assignment-grader/internal/port"
)

// AnalysisService 串起一次完整的作业分析流程
type AnalysisService struct {
	provider port.MetadataProvider
	detector port.Detector
	judge    port.Judge
	store    port.ReportStore
	notifier port.Notifier
	nowFunc  func() time.Time
}

// 语义查询时取多少份历史报告当上下文
const searchContextLimit = 100

// NewAnalysisService 创建分析服务
func NewAnalysisService(
	provider port.MetadataProvider,
	detector port.Detector,
	judge port.Judge,
	store port.ReportStore,
	notifier port.Notifier,
) *AnalysisService {
	return &AnalysisService{
		provider: provider,
		detector: detector,
		judge:    judge,
		store:    store,
		notifier: notifier,
		nowFunc:  time.Now, // 便于测试注入当前时间
	}
}

// AnalyzeRepository 执行一次完整分析：
// 解析URL → 拉元数据和代码采样 → 并行跑 AI 裁判和启发式检测 → 合并落库 → 可疑就推送
func (s *AnalysisService) AnalyzeRepository(ctx context.Context, repoURL, assignment string) (*domain.AnalysisReport, error) {
	// 1. 解析仓库地址
	owner, name, err := common.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	fmt.Printf("🚀 开始分析仓库 %s/%s ...\n", owner, name)

	// 2. 拉取元数据（仓库不存在等硬错误直接往上抛）
	meta, err := s.provider.FetchMetadata(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	fmt.Printf("✅ 元数据就绪: %d 个提交, %d 位贡献者\n", meta.TotalCommits, meta.Contributors)

	// 3. 采样源码（采样失败不是致命错误，空采样检测器照样能算）
	sample, err := s.provider.FetchSample(ctx, owner, name)
	if err != nil {
		log.Printf("⚠️ 采样源码失败: %v，按空采样继续", err)
		sample = domain.FileSample{}
	}
	fmt.Printf("✅ 已采样 %d 个文件 (共 %d 字节)\n", len(sample), sample.TotalSize())

	// 4. AI 裁判和启发式检测互不依赖，消费同一份采样，并行跑
	type judgeOutcome struct {
		report *domain.MatchReport
		err    error
	}
	judgeCh := make(chan judgeOutcome, 1)
	go func() {
		mr, jerr := s.judge.JudgeMatch(ctx, meta, sample, assignment)
		judgeCh <- judgeOutcome{report: mr, err: jerr}
	}()

	detection := s.detector.Detect(sample, meta)
	fmt.Printf("🔍 启发式检测: %.2f (%s)\n", detection.Score, detection.Assessment)

	outcome := <-judgeCh
	match := outcome.report
	if outcome.err != nil {
		// AI 挂了就降级，分析本身照常产出
		log.Printf("⚠️ AI 裁判失败: %v，使用降级结果", outcome.err)
		match = domain.FallbackMatchReport(outcome.err)
	} else {
		fmt.Printf("🤖 作业匹配度: %.2f\n", match.MatchScore)
	}

	// 5. 合并成报告并落库
	report := s.buildReport(meta, repoURL, assignment, match, detection)
	if s.store != nil {
		if seen, exErr := s.store.Exists(ctx, report.ID); exErr == nil && seen {
			fmt.Printf("♻️ 仓库 %s 已分析过，本次结果将覆盖旧报告\n", report.RepoName)
		}
		if err := s.store.Save(ctx, report); err != nil {
			log.Printf("❌ 保存报告 %s 失败: %v", report.ID, err)
		}
	}

	// 6. 可疑的提交推送人工复核
	if report.IsSuspicious() {
		s.pushForReview(ctx, report)
	}

	fmt.Printf("🎉 分析完成: %s\n", report.RepoName)
	return report, nil
}

// buildReport 把元数据、裁判结果和检测结果拼成一份落库报告
func (s *AnalysisService) buildReport(
	meta *domain.RepositoryMetadata,
	repoURL, assignment string,
	match *domain.MatchReport,
	detection *domain.DetectionResult,
) *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ID:           fmt.Sprintf("github-%d", meta.RepoID), // 加上前缀防止冲突
		RepoName:     meta.FullName,
		RepoURL:      repoURL,
		Description:  meta.Description,
		Languages:    strings.Join(meta.Languages, ","),
		Stars:        meta.Stars,
		SizeKB:       meta.SizeKB,
		TotalCommits: meta.TotalCommits,
		Contributors: meta.Contributors,
		Assignment:   assignment,

		MatchScore:  match.MatchScore,
		Explanation: match.Explanation,
		Suggestions: strings.Join(match.Suggestions, " | "),

		AIScore:       detection.Score,
		Assessment:    detection.Assessment,
		Confidence:    detection.Confidence,
		CommentsNote:  detection.EvidenceFor(domain.DimComments),
		StructureNote: detection.EvidenceFor(domain.DimStructure),
		NamingNote:    detection.EvidenceFor(domain.DimNaming),
		ErrHandleNote: detection.EvidenceFor(domain.DimErrorHandling),
		MetadataNote:  detection.EvidenceFor(domain.DimMetadata),

		AnalyzedAt: s.nowFunc(),
	}
}

// pushForReview 推送可疑报告，推完打标记；任何一步失败都只记日志
func (s *AnalysisService) pushForReview(ctx context.Context, report *domain.AnalysisReport) {
	if s.notifier == nil {
		log.Printf("⚠️ 未配置通知通道，跳过推送报告 %s", report.ID)
		return
	}
	if err := s.notifier.Notify(ctx, report); err != nil {
		log.Printf("❌ 推送报告 %s 到通知通道失败: %v", report.ID, err)
		return
	}
	if s.store != nil {
		if err := s.store.MarkAsNotified(ctx, report.ID); err != nil {
			log.Printf("⚠️ 标记报告 %s 为已通知失败: %v", report.ID, err)
			return
		}
	}
	fmt.Printf("📲 已推送可疑报告 %s\n", report.RepoName)
}

// SearchReports 用自然语言在历史报告里做问答查询
func (s *AnalysisService) SearchReports(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", common.NewError(common.ErrCodeInvalidInput, "查询内容不能为空")
	}

	reports, err := s.store.GetRecent(ctx, searchContextLimit)
	if err != nil {
		return "", common.WrapError(common.ErrCodeDatabase, "读取历史报告失败", err)
	}
	if len(reports) == 0 {
		return "", common.NewError(common.ErrCodeNotFound, "还没有任何分析报告，先跑一次 analyze 吧")
	}

	answer, err := s.judge.SemanticSearch(ctx, reports, query)
	if err != nil {
		// AI 不可用时降级成关键词检索，查询功能不跟着瘫痪
		log.Printf("⚠️ AI 语义查询失败: %v，降级为关键词检索", err)
		return s.keywordFallback(ctx, query)
	}
	return answer, nil
}

// keywordFallback 是语义查询的降级路径：LIKE 匹配仓库名、作业和点评
func (s *AnalysisService) keywordFallback(ctx context.Context, query string) (string, error) {
	matches, err := s.store.Search(ctx, query)
	if err != nil {
		return "", common.WrapError(common.ErrCodeDatabase, "关键词检索失败", err)
	}
	if len(matches) == 0 {
		return "没有找到和查询相关的报告", nil
	}

	var b strings.Builder
	b.WriteString("AI 语义查询暂不可用，以下是关键词匹配的报告：\n")
	for _, r := range matches {
		fmt.Fprintf(&b, "- %s | 匹配度 %.2f | %s\n", r.RepoName, r.MatchScore, r.Assessment)
	}
	return b.String(), nil
}

// FlushPendingNotifications 补推积压的可疑报告（定时模式每轮收尾时调用）
func (s *AnalysisService) FlushPendingNotifications(ctx context.Context) {
	if s.store == nil || s.notifier == nil {
		return
	}
	pending, err := s.store.GetUnnotified(ctx)
	if err != nil {
		log.Printf("⚠️ 读取待推送报告失败: %v", err)
		return
	}
	for _, report := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.pushForReview(ctx, report)
	}
}
