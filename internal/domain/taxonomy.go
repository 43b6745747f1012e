package domain

import (
	"errors"
	"fmt"
	"strings"
)

// IntentRule maps an intent category to its ordered trigger keywords.
type IntentRule struct {
	Intent   string   `json:"intent"`
	Label    string   `json:"label,omitempty"`
	Keywords []string `json:"keywords"`
}

// DisplayLabel returns the human-readable label, falling back to the intent id.
func (r IntentRule) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Intent
}

// Taxonomy configures intent detection and the catalog categories each intent satisfies.
type Taxonomy struct {
	Intents []IntentRule `json:"intents"`
	// CategoryIntents maps a catalog category to the intents it satisfies.
	CategoryIntents map[string][]string `json:"categoryIntents"`
}

// Rule returns the rule for an intent id.
func (t Taxonomy) Rule(intent string) (IntentRule, bool) {
	for _, rule := range t.Intents {
		if rule.Intent == intent {
			return rule, true
		}
	}
	return IntentRule{}, false
}

// Validate checks that intent ids are unique and keywords are usable.
func (t Taxonomy) Validate() error {
	if len(t.Intents) == 0 {
		return errors.New("taxonomy requires at least one intent")
	}
	var errs []string
	seen := make(map[string]struct{}, len(t.Intents))
	for i, rule := range t.Intents {
		if strings.TrimSpace(rule.Intent) == "" {
			errs = append(errs, fmt.Sprintf("intents[%d]: intent is required", i))
			continue
		}
		if _, ok := seen[rule.Intent]; ok {
			errs = append(errs, fmt.Sprintf("intents[%d]: duplicate intent %q", i, rule.Intent))
		}
		seen[rule.Intent] = struct{}{}
		if len(rule.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("intents[%d]: keywords are required", i))
		}
		for j, keyword := range rule.Keywords {
			if strings.TrimSpace(keyword) == "" {
				errs = append(errs, fmt.Sprintf("intents[%d].keywords[%d]: empty keyword", i, j))
			}
		}
	}
	for category, intents := range t.CategoryIntents {
		for _, intent := range intents {
			if _, ok := seen[intent]; !ok {
				errs = append(errs, fmt.Sprintf("categoryIntents[%s]: unknown intent %q", category, intent))
			}
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Normalized lowercases keywords so matching is case-insensitive and drops
// keywords that repeat within one intent.
func (t Taxonomy) Normalized() Taxonomy {
	out := Taxonomy{
		Intents:         make([]IntentRule, len(t.Intents)),
		CategoryIntents: make(map[string][]string, len(t.CategoryIntents)),
	}
	for i, rule := range t.Intents {
		keywords := make([]string, 0, len(rule.Keywords))
		seen := make(map[string]struct{}, len(rule.Keywords))
		for _, keyword := range rule.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				continue
			}
			if _, dup := seen[keyword]; dup {
				continue
			}
			seen[keyword] = struct{}{}
			keywords = append(keywords, keyword)
		}
		out.Intents[i] = IntentRule{Intent: rule.Intent, Label: rule.Label, Keywords: keywords}
	}
	for category, intents := range t.CategoryIntents {
		out.CategoryIntents[category] = append([]string(nil), intents...)
	}
	return out
}

// DefaultTaxonomy returns the built-in intent table for the desktop assistant catalog.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Intents: []IntentRule{
			{Intent: "code", Label: "coding", Keywords: []string{"code", "coding", "develop", "program", "debug", "script", "write code", "代码", "编程", "开发", "调试", "脚本"}},
			{Intent: "data", Label: "data analysis", Keywords: []string{"data", "analy", "chart", "statistic", "excel", "csv", "数据", "分析", "统计", "图表", "表格"}},
			{Intent: "file", Label: "file management", Keywords: []string{"file", "folder", "directory", "document", "文件", "文件夹", "目录", "文档"}},
			{Intent: "web", Label: "web browsing", Keywords: []string{"search", "web", "browse", "url", "download", "网页", "搜索", "浏览", "下载"}},
			{Intent: "system", Label: "system administration", Keywords: []string{"system", "process", "memory", "cpu", "disk", "系统", "进程", "内存", "磁盘"}},
			{Intent: "communication", Label: "communication", Keywords: []string{"email", "mail", "message", "send", "邮件", "消息", "发送", "通知"}},
			{Intent: "media", Label: "media", Keywords: []string{"image", "photo", "video", "audio", "music", "图片", "照片", "视频", "音频"}},
			{Intent: "productivity", Label: "productivity", Keywords: []string{"schedule", "calendar", "todo", "task", "remind", "日程", "日历", "待办", "任务", "提醒"}},
			{Intent: "text", Label: "writing", Keywords: []string{"translate", "summar", "write", "text", "翻译", "总结", "写作", "文本"}},
		},
		CategoryIntents: map[string][]string{
			"code":          {"code"},
			"development":   {"code"},
			"data":          {"data"},
			"analysis":      {"data"},
			"file":          {"file"},
			"filesystem":    {"file"},
			"document":      {"file", "text"},
			"web":           {"web"},
			"network":       {"web"},
			"system":        {"system"},
			"communication": {"communication"},
			"media":         {"media"},
			"productivity":  {"productivity"},
			"office":        {"productivity", "data", "text"},
			"text":          {"text"},
		},
	}
}
