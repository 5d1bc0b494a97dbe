package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply string
	err   error
	got   []Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.got = append(f.got, req)
	return f.reply, f.err
}

func TestServiceTextActions(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "一篇文章"}
	svc := NewService(gen)

	text, err := svc.GenerateDraft(ctx, "雨")
	require.NoError(t, err)
	assert.Equal(t, "一篇文章", text)
	require.NotNil(t, gen.got[0].Temperature)
	assert.InDelta(t, 0.7, *gen.got[0].Temperature, 1e-6)
	assert.Nil(t, gen.got[0].Schema)
	assert.Contains(t, gen.got[0].Prompt, "雨")

	_, err = svc.Summarize(ctx, "c")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, *gen.got[1].Temperature, 1e-6)

	_, err = svc.PolishContent(ctx, "c")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, *gen.got[2].Temperature, 1e-6)
}

func TestServiceEmptyText(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: "  "})
	_, err := svc.GenerateDraft(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.True(t, Degraded(err))
}

func TestServiceListActions(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: `["花园","雨季"]`}
	svc := NewService(gen)

	tags, err := svc.GenerateTags(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"花园", "雨季"}, tags)
	assert.NotNil(t, gen.got[0].Schema)

	titles, err := svc.SuggestTitles(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, titles, 2)

	gen.reply = ""
	tags, err = svc.GenerateTags(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestServiceParseError(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: "not json"})
	_, err := svc.GenerateTags(context.Background(), "c")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "generateTags", pe.Action)
	assert.Equal(t, "not json", pe.Raw)
	assert.True(t, Degraded(err))
}

func TestServiceUpstreamError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewService(&fakeGenerator{err: boom})
	_, err := svc.Summarize(context.Background(), "c")
	assert.ErrorIs(t, err, boom)
	assert.False(t, Degraded(err))
}

func TestFindConnections(t *testing.T) {
	gen := &fakeGenerator{reply: `[{"id":"2","reason":"同样写雨"}]`}
	svc := NewService(gen)
	long := strings.Repeat("字", 400)

	conns, err := svc.FindConnections(context.Background(),
		CurrentPost{Title: "雨", Content: long},
		[]Candidate{{ID: "2", Title: "雨季", Excerpt: "…"}})
	require.NoError(t, err)
	if diff := cmp.Diff([]Connection{{ID: "2", Reason: "同样写雨"}}, conns); diff != "" {
		t.Errorf("connections mismatch (-want +got):\n%s", diff)
	}
	prompt := gen.got[0].Prompt
	assert.Contains(t, prompt, "ID: 2, Title: 雨季")
	assert.Contains(t, prompt, strings.Repeat("字", excerptRunes)+"...")
	assert.NotContains(t, prompt, strings.Repeat("字", excerptRunes+1))
}
