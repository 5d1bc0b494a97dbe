package assist

import (
	"context"

	"go.uber.org/zap"
)

// Placeholder results served when the model cannot give a usable answer.
const (
	DraftPlaceholder   = "未能生成内容，请稍后再试。"
	SummaryPlaceholder = "摘要生成失败。"
)

var (
	defaultTags  = []string{"写作", "思绪"}
	noTitleIdeas = []string{"无法获取建议"}
)

func DefaultTags() []string  { return append([]string(nil), defaultTags...) }
func NoTitleIdeas() []string { return append([]string(nil), noTitleIdeas...) }

// Fallback wraps a Capability and substitutes a placeholder for every
// failure, so its methods always return a nil error.
type Fallback struct {
	next Capability
	log  *zap.Logger
}

func NewFallback(next Capability, log *zap.Logger) *Fallback {
	return &Fallback{next: next, log: log}
}

func (f *Fallback) GenerateDraft(ctx context.Context, topic string) (string, error) {
	out, err := f.next.GenerateDraft(ctx, topic)
	if err != nil {
		f.degraded("generateDraft", err)
		return DraftPlaceholder, nil
	}
	return out, nil
}

func (f *Fallback) GenerateTags(ctx context.Context, content string) ([]string, error) {
	out, err := f.next.GenerateTags(ctx, content)
	if err != nil {
		f.degraded("generateTags", err)
		return DefaultTags(), nil
	}
	return out, nil
}

func (f *Fallback) Summarize(ctx context.Context, content string) (string, error) {
	out, err := f.next.Summarize(ctx, content)
	if err != nil {
		f.degraded("summarize", err)
		return SummaryPlaceholder, nil
	}
	return out, nil
}

func (f *Fallback) FindConnections(ctx context.Context, current CurrentPost, others []Candidate) ([]Connection, error) {
	out, err := f.next.FindConnections(ctx, current, others)
	if err != nil {
		f.degraded("findConnections", err)
		return []Connection{}, nil
	}
	if out == nil {
		out = []Connection{}
	}
	return out, nil
}

// PolishContent hands back the unpolished content when polishing fails.
func (f *Fallback) PolishContent(ctx context.Context, content string) (string, error) {
	out, err := f.next.PolishContent(ctx, content)
	if err != nil {
		f.degraded("polishContent", err)
		return content, nil
	}
	return out, nil
}

func (f *Fallback) SuggestTitles(ctx context.Context, content string) ([]string, error) {
	out, err := f.next.SuggestTitles(ctx, content)
	if err != nil {
		f.degraded("suggestTitles", err)
		return NoTitleIdeas(), nil
	}
	return out, nil
}

func (f *Fallback) degraded(action string, err error) {
	f.log.Warn("assist degraded to placeholder", zap.String("action", action), zap.Bool("parse", Degraded(err)), zap.Error(err))
}
