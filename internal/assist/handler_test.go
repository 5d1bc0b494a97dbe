package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return rr, out
}

func TestHandlerRejectsWrongMethod(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{}), zap.NewNop())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ai", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandlerWithoutService(t *testing.T) {
	rr, out := post(t, NewHandler(nil, zap.NewNop()), `{"action":"generateDraft"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotEmpty(t, out["error"])
}

func TestHandlerActionValidation(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{}), zap.NewNop())

	rr, out := post(t, h, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing action", out["error"])

	rr, out = post(t, h, `{"action":"dance"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Unknown action: dance", out["error"])

	rr, _ = post(t, h, `{"action":"generateTags","payload":{"content":5}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerActions(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		body  string
		key   string
		want  any
	}{
		{"draft", "正文", `{"action":"generateDraft","payload":{"topic":"雨"}}`, "text", "正文"},
		{"summarize alias", "摘要", `{"action":"summarizePost","payload":{"content":"c"}}`, "text", "摘要"},
		{"tags", `["a"]`, `{"action":"generateTags","payload":{"content":"c"}}`, "tags", []any{"a"}},
		{"titles", `["t"]`, `{"action":"suggestTitles","payload":{"content":"c"}}`, "titles", []any{"t"}},
		{"connections", `[{"id":"1","reason":"r"}]`, `{"action":"findConnections","payload":{"currentPost":{"title":"x","content":"y"},"otherPosts":[]}}`,
			"connections", []any{map[string]any{"id": "1", "reason": "r"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewService(&fakeGenerator{reply: tt.reply}), zap.NewNop())
			rr, out := post(t, h, tt.body)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, out[tt.key])
		})
	}
}

func TestHandlerDegradedAnswersUsePlaceholders(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{reply: "{broken"}), zap.NewNop())

	rr, out := post(t, h, `{"action":"generateTags","payload":{"content":"c"}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"写作", "思绪"}, out["tags"])

	rr, out = post(t, h, `{"action":"findConnections","payload":{}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{}, out["connections"])

	empty := NewHandler(NewService(&fakeGenerator{reply: ""}), zap.NewNop())
	_, out = post(t, empty, `{"action":"polishContent","payload":{"content":"原文"}}`)
	assert.Equal(t, "原文", out["text"])
	_, out = post(t, empty, `{"action":"generateDraft","payload":{"topic":"t"}}`)
	assert.Equal(t, DraftPlaceholder, out["text"])
}

func TestHandlerUpstreamFailure(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{err: errors.New("quota exceeded")}), zap.NewNop())
	rr, out := post(t, h, `{"action":"summarize","payload":{"content":"c"}}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, out["error"], "quota exceeded")
}

func TestClientRoundTrip(t *testing.T) {
	gen := &fakeGenerator{reply: `["x","y"]`}
	srv := httptest.NewServer(NewHandler(NewService(gen), zap.NewNop()))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client())
	tags, err := c.GenerateTags(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, tags)

	gen.err = errors.New("quota exceeded")
	_, err = c.Summarize(context.Background(), "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	f := NewFallback(c, zap.NewNop())
	sum, err := f.Summarize(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, SummaryPlaceholder, sum)
}
