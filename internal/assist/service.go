package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	draftTemperature   = 0.7
	summaryTemperature = 0.3
	polishTemperature  = 0.5

	// excerptRunes bounds how much of the current post goes into a
	// connections prompt.
	excerptRunes = 300
)

// Service implements Capability by prompting a Generator.
type Service struct {
	gen Generator
}

func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

func (s *Service) GenerateDraft(ctx context.Context, topic string) (string, error) {
	return s.text(ctx, "generateDraft", Request{
		Prompt: fmt.Sprintf("你是一位专业的博客作家。请围绕以下主题撰写一篇深度、富有启发性的文章：%s。\n"+
			"要求：1. 包含引人注目的标题；2. 结构清晰，包含小标题；3. 语言优雅且具有感染力；4. 约800字。", topic),
		Temperature: genai.Ptr[float32](draftTemperature),
	})
}

func (s *Service) GenerateTags(ctx context.Context, content string) ([]string, error) {
	var tags []string
	err := s.structured(ctx, "generateTags", Request{
		Prompt: "请根据以下文章内容，提取5个最合适的标签（每个标签2-4个字）：\n\n" + content,
		Schema: stringList,
	}, &tags)
	return tags, err
}

func (s *Service) Summarize(ctx context.Context, content string) (string, error) {
	return s.text(ctx, "summarize", Request{
		Prompt:      "请为以下博文内容提供一个简短精炼的摘要（100字以内）：\n\n" + content,
		Temperature: genai.Ptr[float32](summaryTemperature),
	})
}

func (s *Service) FindConnections(ctx context.Context, current CurrentPost, others []Candidate) ([]Connection, error) {
	var list strings.Builder
	for _, p := range others {
		fmt.Fprintf(&list, "ID: %s, Title: %s, Excerpt: %s\n", p.ID, p.Title, p.Excerpt)
	}
	prompt := fmt.Sprintf("作为花园园丁，请分析当前文章与花园中其他文章的潜在联系。\n"+
		"当前文章标题: %s\n当前文章内容摘要: %s...\n\n可选文章列表:\n%s\n"+
		"请找出最相关的2-3篇文章，并说明关联理由。请以JSON数组格式返回，包含id和reason字段。",
		current.Title, truncate(current.Content, excerptRunes), list.String())

	var conns []Connection
	err := s.structured(ctx, "findConnections", Request{Prompt: prompt, Schema: connectionList}, &conns)
	return conns, err
}

func (s *Service) PolishContent(ctx context.Context, content string) (string, error) {
	return s.text(ctx, "polishContent", Request{
		Prompt:      "你是一位文学编辑。请对以下文字进行润色，使其表达更优雅、更具表现力，同时保持原意不变：\n\n" + content,
		Temperature: genai.Ptr[float32](polishTemperature),
	})
}

func (s *Service) SuggestTitles(ctx context.Context, content string) ([]string, error) {
	var titles []string
	err := s.structured(ctx, "suggestTitles", Request{
		Prompt: "根据以下内容，提供5个更具吸引力和SEO友好性的标题：\n\n" + content,
		Schema: stringList,
	}, &titles)
	return titles, err
}

func (s *Service) text(ctx context.Context, action string, req Request) (string, error) {
	out, err := s.gen.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", action, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s: %w", action, ErrEmptyResponse)
	}
	return out, nil
}

// structured decodes a JSON answer into dst. An empty answer decodes as an
// empty list.
func (s *Service) structured(ctx context.Context, action string, req Request, dst any) error {
	out, err := s.gen.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if strings.TrimSpace(out) == "" {
		out = "[]"
	}
	if err := json.Unmarshal([]byte(out), dst); err != nil {
		return &ParseError{Action: action, Raw: out, Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
