package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github-assignment-grader/internal/adapter/github"
	"github-assignment-grader/internal/adapter/heuristic"
	"github-assignment-grader/internal/common"

	"github.com/joho/godotenv"
)

// 调试入口：只跑 抓取 + 启发式检测，不碰数据库、不调 AI、不推送
// 用来快速验证某个仓库的检测维度表现
func main() {
	_ = godotenv.Load()

	repoURL := flag.String("url", "", "GitHub 仓库地址")
	flag.Parse()

	if *repoURL == "" {
		fmt.Println("用法: debug -url https://github.com/owner/repo")
		return
	}

	owner, name, err := common.ParseRepoURL(*repoURL)
	if err != nil {
		log.Fatalf("❌ URL 解析失败: %v", err)
	}

	ctx := context.Background()
	fetcher := github.NewFetcher(os.Getenv("GITHUB_TOKEN"))

	fmt.Printf("🔍 调试模式：分析 %s/%s\n", owner, name)

	fmt.Println("📥 正在拉取仓库元数据...")
	meta, err := fetcher.FetchMetadata(ctx, owner, name)
	if err != nil {
		log.Fatalf("❌ 拉取元数据失败: %v", err)
	}
	fmt.Printf("✅ %s | %d 提交 | %d 贡献者 | %d KB\n",
		meta.FullName, meta.TotalCommits, meta.Contributors, meta.SizeKB)

	fmt.Println("📥 正在采样源码文件...")
	sample, err := fetcher.FetchSample(ctx, owner, name)
	if err != nil {
		log.Printf("⚠️ 采样失败: %v", err)
	}
	for i, f := range sample {
		lang := f.Language
		if lang == "" {
			lang = "(跳过分析)"
		}
		fmt.Printf("  #%d %s [%s] %d 字节\n", i+1, f.Path, lang, f.Size)
	}

	fmt.Println("🧠 运行启发式检测...")
	result := heuristic.NewDetector().Detect(sample, meta)

	fmt.Println()
	fmt.Printf("总评分: %.3f → %s (置信度 %.2f)\n", result.Score, result.Assessment, result.Confidence)
	for _, dim := range result.Dimensions {
		fmt.Printf("  %-14s %.2f  %s\n", dim.Dimension, dim.Contribution, dim.Evidence)
	}
}
