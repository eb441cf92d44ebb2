package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github-assignment-grader/internal/common"
	"github-assignment-grader/internal/domain"
)

type Notifier struct {
	webhookURL string
}

func NewNotifier(webhook string) *Notifier {
	if webhook == "" {
		log.Println("⚠️ 警告: 飞书 Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{webhookURL: webhook}
}

// Notify 把可疑的作业提交推送成飞书卡片消息 (Schema 2.0)
func (n *Notifier) Notify(ctx context.Context, report *domain.AnalysisReport) error {
	if n.webhookURL == "" {
		return fmt.Errorf("Webhook URL 为空")
	}

	// 1. 准备标题
	title := fmt.Sprintf("🚨 疑似AI生成的提交: %s", report.RepoName)

	// 2. 构造 Markdown 内容
	mdContent := fmt.Sprintf(`**🤖 AI检测评分:** %.2f (%s)  |  **置信度:** %.2f
**🎯 作业匹配度:** %.2f

**📝 作业要求:**
%s

**🔍 检测依据:**
- %s
- %s
- %s
- %s
- %s

**💬 AI点评:**
%s
`,
		report.AIScore, report.Assessment, report.Confidence,
		report.MatchScore,
		report.Assignment,
		report.CommentsNote, report.StructureNote, report.NamingNote,
		report.ErrHandleNote, report.MetadataNote,
		report.Explanation)

	// 3. 构造 Schema 2.0 JSON 结构
	payload := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "red",
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements": []map[string]interface{}{
					{
						"tag":       "markdown",
						"content":   mdContent,
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]interface{}{
							"tag":     "plain_text",
							"content": "🔗 查看仓库",
						},
						"type": "primary",
						"behaviors": []map[string]interface{}{
							{
								"type":        "open_url",
								"default_url": report.RepoURL,
							},
						},
					},
				},
			},
		},
	}

	// 4. 发送请求 (带重试机制)
	body, _ := json.Marshal(payload)
	err := common.Do(ctx, func() error {
		resp, postErr := http.Post(n.webhookURL, "application/json", bytes.NewBuffer(body))
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
		}
		return nil
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(500*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}

	return nil
}
