package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github-assignment-grader/internal/adapter/feishu"
	"github-assignment-grader/internal/adapter/gemini"
	"github-assignment-grader/internal/adapter/github"
	"github-assignment-grader/internal/adapter/heuristic"
	"github-assignment-grader/internal/adapter/repository"
	"github-assignment-grader/internal/domain"
	"github-assignment-grader/internal/service"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// analyzeOutput 是 analyze 模式打印的响应形状
// ai_detection_* 两个字段的名字和顺序是跟下游的兼容性契约
type analyzeOutput struct {
	RepositoryName       string                  `json:"repository_name"`
	LanguagesFound       []string                `json:"languages_found"`
	AssignmentMatchScore float64                 `json:"assignment_match_score"`
	Explanation          string                  `json:"explanation"`
	Suggestions          []string                `json:"suggestions"`
	TotalCommits         int                     `json:"total_commits"`
	Contributors         int                     `json:"contributors"`
	AIDetectionScore     float64                 `json:"ai_detection_score"`
	AIDetectionDetails   domain.DetectionDetails `json:"ai_detection_details"`
}

func main() {
	// .env 里放 GITHUB_TOKEN / GEMINI_API_KEY / FEISHU_WEBHOOK / DATABASE_DSN
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ 未找到 .env 文件，使用系统环境变量")
	}

	// 1. 定义命令行参数
	mode := flag.String("mode", "analyze", "运行模式: analyze (分析) 或 search (查询)")
	repoURL := flag.String("url", "", "GitHub 仓库地址")
	assignment := flag.String("assignment", "", "作业要求描述")
	assignmentFile := flag.String("assignment-file", "", "作业要求文件路径 (和 -assignment 二选一)")
	query := flag.String("q", "", "查询内容 (仅在 search 模式下有效)")
	interval := flag.Int("interval", 0, "定时重新分析间隔（分钟），0表示只执行一次")
	flag.Parse()

	// 2. 初始化公共依赖 (数据库)
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=123456 dbname=assignment_grader port=5432 sslmode=disable TimeZone=Asia/Shanghai"
	}
	store, err := repository.NewPostgresRepo(dsn)
	if err != nil {
		log.Fatalf("❌ DB 初始化失败: %v", err)
	}

	// 3. 初始化 AI 依赖
	ctx := context.Background()
	judge, err := gemini.NewJudge(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatalf("❌ AI 初始化失败: %v", err)
	}

	// 4. 组装分析服务
	fetcher := github.NewFetcher(os.Getenv("GITHUB_TOKEN"))
	detector := heuristic.NewDetector()
	notifier := feishu.NewNotifier(os.Getenv("FEISHU_WEBHOOK"))
	svc := service.NewAnalysisService(fetcher, detector, judge, store, notifier)

	// 5. 根据模式分流
	switch *mode {
	case "search":
		runSearch(svc, *query)
	case "analyze":
		text := loadAssignment(*assignment, *assignmentFile)
		if *repoURL == "" || text == "" {
			fmt.Println("❌ analyze 模式需要 -url 和 -assignment (或 -assignment-file)")
			return
		}
		if *interval > 0 {
			runScheduled(svc, *repoURL, text, *interval)
		} else {
			runAnalyze(svc, *repoURL, text)
		}
	default:
		fmt.Println("❌ 未知模式，请使用 -mode=analyze 或 -mode=search")
	}
}

// loadAssignment 作业要求支持命令行直接给，也支持从文件读
func loadAssignment(inline, filePath string) string {
	if filePath == "" {
		return inline
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("❌ 读取作业文件失败: %v", err)
		return ""
	}
	return string(data)
}

// runAnalyze 执行一次分析并打印响应 JSON
func runAnalyze(svc *service.AnalysisService, repoURL, assignment string) {
	// 为整次分析设置超时时间(5分钟)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := svc.AnalyzeRepository(ctx, repoURL, assignment)
	if err != nil {
		log.Printf("❌ 分析失败: %v", err)
		return
	}

	printReport(report)
}

// printReport 把报告转成响应形状输出
func printReport(report *domain.AnalysisReport) {
	out := analyzeOutput{
		RepositoryName:       report.RepoName,
		LanguagesFound:       splitNonEmpty(report.Languages, ","),
		AssignmentMatchScore: report.MatchScore,
		Explanation:          report.Explanation,
		Suggestions:          splitNonEmpty(report.Suggestions, " | "),
		TotalCommits:         report.TotalCommits,
		Contributors:         report.Contributors,
		AIDetectionScore:     report.AIScore,
		AIDetectionDetails: domain.DetectionDetails{
			Assessment:    report.Assessment,
			Confidence:    report.Confidence,
			Comments:      report.CommentsNote,
			Structure:     report.StructureNote,
			Naming:        report.NamingNote,
			ErrorHandling: report.ErrHandleNote,
			Metadata:      report.MetadataNote,
		},
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Printf("❌ 序列化报告失败: %v", err)
		return
	}
	fmt.Println(string(data))
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, sep)
}

// runScheduled 定时模式：按间隔重新分析同一个仓库，盯着提交有没有被悄悄替换
func runScheduled(svc *service.AnalysisService, repoURL, assignment string, interval int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 设置信号处理，优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %dm", interval), func() {
		runAnalyze(svc, repoURL, assignment)
		svc.FlushPendingNotifications(ctx)
	})
	if err != nil {
		log.Fatalf("❌ 定时任务注册失败: %v", err)
	}

	fmt.Printf("⏰ 定时模式已启动，每 %d 分钟重新分析一次\n", interval)
	fmt.Println("按下 Ctrl+C 可以优雅停止程序")

	// 立即执行一次
	runAnalyze(svc, repoURL, assignment)
	c.Start()

	<-sigChan
	fmt.Println("\n👋 收到停止信号，正在退出...")
	stopCtx := c.Stop()
	<-stopCtx.Done()
}

// --- 查询模式逻辑 ---
func runSearch(svc *service.AnalysisService, query string) {
	if query == "" {
		fmt.Println("⚠️ 请输入你的问题，用大白话就行。")
		fmt.Println("例如: -q '哪些提交疑似AI生成' 或 -q '爬虫作业里完成度最高的是哪个'")
		return
	}

	fmt.Println("🤖 正在读取历史报告，并进行 AI 语义分析...")

	answer, err := svc.SearchReports(context.Background(), query)
	if err != nil {
		log.Printf("❌ 查询失败: %v", err)
		return
	}

	fmt.Println("\n================ [ 智能查询结果 ] ================")
	fmt.Println(answer)
	fmt.Println("==================================================")
}
