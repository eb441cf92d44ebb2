package repository

import (
	"context"
	"fmt"

	"github-assignment-grader/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresRepo 实现了 port.ReportStore 接口
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	// 1. 连接数据库
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 2. 自动迁移：analysis_reports 表跟着结构体走，字段变了自动更新
	err = db.AutoMigrate(&domain.AnalysisReport{})
	if err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &PostgresRepo{db: db}, nil
}

// Save 保存或更新报告（同一仓库重复分析就是 Upsert）
func (r *PostgresRepo) Save(ctx context.Context, report *domain.AnalysisReport) error {
	result := r.db.WithContext(ctx).Save(report)
	return result.Error
}

// Exists 检查报告是否存在
func (r *PostgresRepo) Exists(ctx context.Context, reportID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.AnalysisReport{}).Where("id = ?", reportID).Count(&count).Error
	return count > 0, err
}

// MarkAsNotified 标记报告为已推送
func (r *PostgresRepo) MarkAsNotified(ctx context.Context, reportID string) error {
	result := r.db.WithContext(ctx).Model(&domain.AnalysisReport{}).Where("id = ?", reportID).Update("already_notified", true)
	return result.Error
}

// Search 按关键词搜索历史报告
func (r *PostgresRepo) Search(ctx context.Context, query string) ([]*domain.AnalysisReport, error) {
	var reports []*domain.AnalysisReport
	// MVP 简单粗暴：LIKE 模糊匹配仓库名、作业描述和 AI 分析内容
	likeQuery := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("repo_name LIKE ? OR assignment LIKE ? OR explanation LIKE ?", likeQuery, likeQuery, likeQuery).
		Order("match_score DESC"). // 优先展示完成度高的提交
		Limit(10).                 // 只返回前10条
		Find(&reports).Error

	return reports, err
}

// GetRecent 取最近的 N 份报告，供 AI 语义查询当上下文
func (r *PostgresRepo) GetRecent(ctx context.Context, limit int) ([]*domain.AnalysisReport, error) {
	var reports []*domain.AnalysisReport
	err := r.db.WithContext(ctx).
		Order("analyzed_at desc").
		Limit(limit). // 限制数量，防止 Token 爆炸
		Find(&reports).Error
	return reports, err
}

// GetUnnotified 取还没推送过的可疑报告
func (r *PostgresRepo) GetUnnotified(ctx context.Context) ([]*domain.AnalysisReport, error) {
	var reports []*domain.AnalysisReport
	err := r.db.WithContext(ctx).
		Where("already_notified = ? AND assessment = ?", false, domain.AssessmentAI).
		Order("ai_score DESC"). // 最可疑的排前面
		Find(&reports).Error
	return reports, err
}
