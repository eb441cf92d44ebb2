package common

import (
	"net/url"
	"strings"
)

// ParseRepoURL 从仓库 URL 里抠出 owner 和 repo
// 接受 https://github.com/owner/repo 以及带后缀的变体 (.git、/tree/main/...)
func ParseRepoURL(raw string) (owner, name string, err error) {
	u, parseErr := url.Parse(strings.TrimSpace(raw))
	if parseErr != nil {
		return "", "", WrapError(ErrCodeInvalidURL, "无法解析仓库URL", parseErr)
	}

	host := strings.TrimPrefix(u.Host, "www.")
	if host != "github.com" {
		return "", "", NewError(ErrCodeInvalidURL, "请提供 github.com 的仓库地址")
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", NewError(ErrCodeInvalidURL, "URL 里找不到 owner/repo")
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
