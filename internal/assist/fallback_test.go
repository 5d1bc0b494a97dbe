package assist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFallbackNeverFails(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := NewFallback(NewService(&fakeGenerator{err: errors.New("down")}), zap.New(core))
	ctx := context.Background()

	draft, err := f.GenerateDraft(ctx, "t")
	assert.NoError(t, err)
	assert.Equal(t, DraftPlaceholder, draft)

	tags, err := f.GenerateTags(ctx, "c")
	assert.NoError(t, err)
	assert.Equal(t, []string{"写作", "思绪"}, tags)

	sum, err := f.Summarize(ctx, "c")
	assert.NoError(t, err)
	assert.Equal(t, SummaryPlaceholder, sum)

	conns, err := f.FindConnections(ctx, CurrentPost{}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, conns)
	assert.Empty(t, conns)

	polished, err := f.PolishContent(ctx, "原文")
	assert.NoError(t, err)
	assert.Equal(t, "原文", polished)

	titles, err := f.SuggestTitles(ctx, "c")
	assert.NoError(t, err)
	assert.Equal(t, []string{"无法获取建议"}, titles)

	assert.Equal(t, 6, logs.Len())
}

func TestFallbackPassesThrough(t *testing.T) {
	f := NewFallback(NewService(&fakeGenerator{reply: "好"}), zap.NewNop())
	out, err := f.PolishContent(context.Background(), "原文")
	assert.NoError(t, err)
	assert.Equal(t, "好", out)
}

func TestDefaultTagsIsACopy(t *testing.T) {
	tags := DefaultTags()
	tags[0] = "changed"
	assert.Equal(t, "写作", DefaultTags()[0])
}
