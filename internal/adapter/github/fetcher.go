package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github-assignment-grader/internal/common"
	"github-assignment-grader/internal/domain"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

// Fetcher 实现了 port.MetadataProvider 接口
type Fetcher struct {
	client *github.Client
}

// NewFetcher 初始化 GitHub 客户端
// token: GitHub Personal Access Token (空字符串就是匿名访问，限制 60次/小时)
func NewFetcher(token string) *Fetcher {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &Fetcher{client: client}
}

// 采样允许的扩展名，按出现顺序取前 MaxSampleFiles 个命中的文件
// 列表顺序无所谓，匹配与否才重要；遍历顺序来自 GitHub 的目录列表，是确定性的
var sampleExtensions = []string{".go", ".py", ".js", ".ts", ".java", ".c", ".cpp", ".rb", ".md", ".txt"}

// 单次提交列表最多取 100 条；满页时说明提交更多，退化成按仓库体积估算
const commitsPerPage = 100

// isTransient 判断 GitHub API 错误是否值得重试
// 404/422 这种重试一万次也没用，网络错误和 5xx 才有意义
func isTransient(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return false // 限流了，重试只会更糟，交给上层处理
	}
	return true
}

// FetchMetadata 拉取仓库元数据：基础信息、语言分布、提交数、贡献者数
func (f *Fetcher) FetchMetadata(ctx context.Context, owner, name string) (*domain.RepositoryMetadata, error) {
	var repo *github.Repository
	err := common.Do(ctx, func() error {
		var apiErr error
		repo, _, apiErr = f.client.Repositories.Get(ctx, owner, name)
		return apiErr
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(time.Second),
		common.WithRetryIf(isTransient),
	)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return nil, common.WrapError(common.ErrCodeRepoNotFound,
				fmt.Sprintf("仓库 %s/%s 不存在或不是公开仓库", owner, name), err)
		}
		return nil, common.WrapError(common.ErrCodeGitHubAPI, "GitHub API 调用失败", err)
	}

	meta := &domain.RepositoryMetadata{
		RepoID:      repo.GetID(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		SizeKB:      repo.GetSize(),
		Stars:       repo.GetStargazersCount(),
	}

	// 语言列表排序后返回，保证同一仓库状态的输出逐字节一致
	langs, _, err := f.client.Repositories.ListLanguages(ctx, owner, name)
	if err == nil {
		for lang := range langs {
			meta.Languages = append(meta.Languages, lang)
		}
		sort.Strings(meta.Languages)
	}

	meta.TotalCommits = f.countCommits(ctx, owner, name, repo.GetSize())
	meta.Contributors = f.countContributors(ctx, owner, name)

	return meta, nil
}

// countCommits 数最近的提交；满一页时退化成 size/10 估算（够检测器用了）
func (f *Fetcher) countCommits(ctx context.Context, owner, name string, sizeKB int) int {
	commits, _, err := f.client.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: commitsPerPage},
	})
	if err != nil {
		return 0 // 空仓库会报 409，当作没有提交
	}
	total := len(commits)
	if total == commitsPerPage {
		if estimate := sizeKB / 10; estimate > total {
			total = estimate
		}
	}
	return total
}

// countContributors 数贡献者；拿不到就按 1 算
func (f *Fetcher) countContributors(ctx context.Context, owner, name string) int {
	contributors, _, err := f.client.Repositories.ListContributors(ctx, owner, name, &github.ListContributorsOptions{})
	if err != nil || len(contributors) == 0 {
		return 1
	}
	return len(contributors)
}

// FetchSample 按确定性规则采样源码文件：
// 根目录列表顺序遍历，取前 MaxSampleFiles 个扩展名命中的文件，内容截断到 MaxFileChars
// 单个文件下载失败就跳过，绝不让一个坏文件毁掉整次分析
func (f *Fetcher) FetchSample(ctx context.Context, owner, name string) (domain.FileSample, error) {
	var listing []*github.RepositoryContent
	err := common.Do(ctx, func() error {
		_, dir, _, apiErr := f.client.Repositories.GetContents(ctx, owner, name, "", nil)
		if apiErr != nil {
			return apiErr
		}
		listing = dir
		return nil
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(time.Second),
		common.WithRetryIf(isTransient),
	)
	if err != nil {
		// 空仓库、纯二进制仓库都可能走到这里；采样为空不是分析失败
		return domain.FileSample{}, nil
	}

	var sample domain.FileSample
	for _, entry := range listing {
		if len(sample) >= domain.MaxSampleFiles {
			break
		}
		if entry.GetType() != "file" || !hasSampleExtension(entry.GetName()) {
			continue
		}

		content, fetchErr := f.fetchFileContent(ctx, owner, name, entry.GetPath())
		if fetchErr != nil || content == "" {
			continue
		}
		sample = append(sample, domain.NewSourceFile(entry.GetName(), content))
	}

	return sample, nil
}

// fetchFileContent 下载并解码单个文件内容
func (f *Fetcher) fetchFileContent(ctx context.Context, owner, name, path string) (string, error) {
	file, _, _, err := f.client.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return "", fmt.Errorf("下载文件 %s 失败: %w", path, err)
	}
	if file == nil {
		return "", fmt.Errorf("路径 %s 不是文件", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("解码文件 %s 失败: %w", path, err)
	}
	return content, nil
}

func hasSampleExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range sampleExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
