package assist

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type actionRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type contentPayload struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

type connectionsPayload struct {
	CurrentPost CurrentPost `json:"currentPost"`
	OtherPosts  []Candidate `json:"otherPosts"`
}

// Handler serves the action-dispatched assist endpoint. A nil svc means no
// model credential was configured.
type Handler struct {
	svc Capability
	log *zap.Logger
}

func NewHandler(svc Capability, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Only POST method allowed"})
		return
	}
	if h.svc == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "AI service is not configured"})
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing action"})
		return
	}

	var (
		body any
		err  error
	)
	ctx := r.Context()
	switch req.Action {
	case "generateDraft":
		var p contentPayload
		if err = decodePayload(req.Payload, &p); err == nil {
			var text string
			text, err = h.svc.GenerateDraft(ctx, p.Topic)
			body = textBody(text, err, DraftPlaceholder)
		}
	case "generateTags":
		var p contentPayload
		if err = decodePayload(req.Payload, &p); err == nil {
			var tags []string
			tags, err = h.svc.GenerateTags(ctx, p.Content)
			if Degraded(err) {
				tags = DefaultTags()
			}
			body = map[string][]string{"tags": nonNil(tags)}
		}
	case "summarize", "summarizePost":
		var p contentPayload
		if err = decodePayload(req.Payload, &p); err == nil {
			var text string
			text, err = h.svc.Summarize(ctx, p.Content)
			body = textBody(text, err, SummaryPlaceholder)
		}
	case "findConnections":
		var p connectionsPayload
		if err = decodePayload(req.Payload, &p); err == nil {
			var conns []Connection
			conns, err = h.svc.FindConnections(ctx, p.CurrentPost, p.OtherPosts)
			if conns == nil {
				conns = []Connection{}
			}
			body = map[string][]Connection{"connections": conns}
		}
	case "polishContent":
		var p contentPayload
		if err = decodePayload(req.Payload, &p); err == nil {
			var text string
			text, err = h.svc.PolishContent(ctx, p.Content)
			body = textBody(text, err, p.Content)
		}
	case "suggestTitles":
		var p contentPayload
		if err = decodePayload(req.Payload, &p); err == nil {
			var titles []string
			titles, err = h.svc.SuggestTitles(ctx, p.Content)
			if Degraded(err) {
				titles = NoTitleIdeas()
			}
			body = map[string][]string{"titles": nonNil(titles)}
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown action: " + req.Action})
		return
	}

	var bad *payloadError
	switch {
	case errors.As(err, &bad):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": bad.Error()})
	case err != nil && !Degraded(err):
		h.log.Error("assist request failed", zap.String("action", req.Action), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		if err != nil {
			h.log.Warn("assist degraded to placeholder", zap.String("action", req.Action), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, body)
	}
}

type payloadError struct{ err error }

func (e *payloadError) Error() string { return "invalid payload: " + e.err.Error() }

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &payloadError{err: err}
	}
	return nil
}

func textBody(text string, err error, placeholder string) map[string]string {
	if Degraded(err) {
		text = placeholder
	}
	return map[string]string{"text": text}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
