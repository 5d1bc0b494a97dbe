package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garden/internal/activity"
	"garden/internal/assist"
	"garden/internal/auth"
	"garden/internal/links"
	"garden/internal/models"
	"garden/internal/moderation"
	"garden/internal/store"
)

const maxBody = 1 << 20

type Handler struct {
	store    store.Store
	sessions *auth.Manager
	engine   *moderation.Engine
	tracker  *activity.Tracker
	ai       *assist.Handler
	log      *zap.Logger
}

func New(st store.Store, sessions *auth.Manager, engine *moderation.Engine, tracker *activity.Tracker, ai *assist.Handler, log *zap.Logger) *Handler {
	return &Handler{store: st, sessions: sessions, engine: engine, tracker: tracker, ai: ai, log: log}
}

// Routes returns the API mux wrapped in logging and panic recovery.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/me", h.RequireAuth(h.Me))
	mux.HandleFunc("POST /api/heartbeat", h.RequireAuth(h.Heartbeat))

	mux.HandleFunc("GET /api/posts", h.ListPosts)
	mux.HandleFunc("POST /api/posts", h.RequireAuth(h.CreatePost))
	mux.HandleFunc("GET /api/posts/{id}", h.PostByID)
	mux.HandleFunc("POST /api/posts/{id}/approve", h.RequireAdmin(h.ApprovePost))
	mux.HandleFunc("DELETE /api/posts/{id}", h.RequireAdmin(h.RejectPost))
	mux.HandleFunc("GET /api/posts/{id}/comments", h.ListComments)
	mux.HandleFunc("POST /api/posts/{id}/comments", h.CreateComment)

	mux.HandleFunc("GET /api/moments", h.ListMoments)
	mux.HandleFunc("POST /api/moments", h.RequireAuth(h.CreateMoment))
	mux.HandleFunc("POST /api/moments/{id}/like", h.LikeMoment)
	mux.HandleFunc("POST /api/moments/{id}/approve", h.RequireAdmin(h.ApproveMoment))
	mux.HandleFunc("DELETE /api/moments/{id}", h.RequireAdmin(h.RejectMoment))

	mux.HandleFunc("POST /api/join-requests", h.CreateJoinRequest)
	mux.HandleFunc("GET /api/join-requests", h.RequireAdmin(h.ListJoinRequests))
	mux.HandleFunc("POST /api/join-requests/{id}/approve", h.RequireAdmin(h.decideJoinRequest(models.RequestApproved)))
	mux.HandleFunc("POST /api/join-requests/{id}/reject", h.RequireAdmin(h.decideJoinRequest(models.RequestRejected)))

	mux.HandleFunc("GET /api/users", h.RequireAdmin(h.ListUsers))
	mux.HandleFunc("GET /api/presence", h.Presence)

	mux.HandleFunc("POST /api/password/code", h.SendResetCode)
	mux.HandleFunc("POST /api/password/reset", h.ResetPassword)
	mux.HandleFunc("PUT /api/admin/password", h.RequireAdmin(h.ChangeAdminPassword))

	mux.Handle("/api/ai", h.ai)

	return WithRecover(WithLogging(mux, h.log), h.log)
}

// -------- Session

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	u, err := h.sessions.Login(r.Context(), w, in.Email, in.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.tracker.Touch(r.Context(), u.Email); err != nil {
		h.log.Warn("touch on login", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())
	if err := h.tracker.Touch(r.Context(), u.Email); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -------- Posts

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(moderation.Visible(posts, h.isAdmin(r))))
}

type postDetail struct {
	Post      models.Post      `json:"post"`
	Comments  []models.Comment `json:"comments"`
	Backlinks []models.Post    `json:"backlinks"`
}

func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	p, ok := h.visiblePost(w, r)
	if !ok {
		return
	}
	comments, err := h.store.ListComments(r.Context(), p.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	all, err := h.store.ListPosts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	backlinks := links.Backlinks(p, moderation.Visible(all, h.isAdmin(r)))
	writeJSON(w, http.StatusOK, postDetail{Post: p, Comments: nonNil(comments), Backlinks: nonNil(backlinks)})
}

// visiblePost loads {id} and hides pending posts from non-admins.
func (h *Handler) visiblePost(w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	p, err := h.store.GetPost(r.Context(), r.PathValue("id"))
	if err == nil && !p.Approved() && !h.isAdmin(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		h.fail(w, err)
		return models.Post{}, false
	}
	return p, true
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())
	var in struct {
		Title      string   `json:"title"`
		Excerpt    string   `json:"excerpt"`
		Content    string   `json:"content"`
		Author     string   `json:"author"`
		Category   string   `json:"category"`
		Tags       []string `json:"tags"`
		CoverImage string   `json:"coverImage"`
		ReadTime   string   `json:"readTime"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	if in.Author == "" {
		in.Author = u.Email
	}
	p, err := h.engine.SubmitPost(r.Context(), models.Post{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		Author:     in.Author,
		Category:   in.Category,
		Tags:       in.Tags,
		CoverImage: in.CoverImage,
		ReadTime:   in.ReadTime,
	}, u.Role)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ApprovePost(w http.ResponseWriter, r *http.Request) {
	h.outcome(w)(h.engine.ApprovePost(r.Context(), r.PathValue("id")))
}

func (h *Handler) RejectPost(w http.ResponseWriter, r *http.Request) {
	h.outcome(w)(h.engine.RejectPost(r.Context(), r.PathValue("id")))
}

// -------- Comments

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	p, ok := h.visiblePost(w, r)
	if !ok {
		return
	}
	comments, err := h.store.ListComments(r.Context(), p.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(comments))
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.visiblePost(w, r)
	if !ok {
		return
	}
	var in struct {
		Name     string `json:"name"`
		Text     string `json:"text"`
		ParentID string `json:"parentId"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		writeError(w, http.StatusBadRequest, "comment text required")
		return
	}
	if in.Name = strings.TrimSpace(in.Name); in.Name == "" {
		if u, ok := h.sessions.CurrentUser(r); ok {
			in.Name = u.Email
		} else {
			in.Name = "Anonymous"
		}
	}
	if in.ParentID != "" {
		existing, err := h.store.ListComments(r.Context(), p.ID)
		if err != nil {
			h.fail(w, err)
			return
		}
		if !hasComment(existing, in.ParentID) {
			writeError(w, http.StatusBadRequest, "parent comment not found")
			return
		}
	}
	c := models.Comment{
		ID:       uuid.NewString(),
		PostID:   p.ID,
		ParentID: in.ParentID,
		Name:     in.Name,
		Text:     in.Text,
		Date:     models.Day(timeNow()),
	}
	if err := h.store.InsertComment(r.Context(), c); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func hasComment(cs []models.Comment, id string) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// -------- Moments

func (h *Handler) ListMoments(w http.ResponseWriter, r *http.Request) {
	moments, err := h.store.ListMoments(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(moderation.Visible(moments, h.isAdmin(r))))
}

func (h *Handler) CreateMoment(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())
	var in struct {
		Content string   `json:"content"`
		Images  []string `json:"images"`
		Author  string   `json:"author"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	if in.Author == "" {
		in.Author = u.Email
	}
	m, err := h.engine.SubmitMoment(r.Context(), models.Moment{
		Content:     in.Content,
		Images:      in.Images,
		Author:      in.Author,
		AuthorEmail: u.Email,
	}, u.Role)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) LikeMoment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := h.store.GetMoment(r.Context(), id)
	if err == nil && !m.Approved() && !h.isAdmin(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	likes, err := h.store.LikeMoment(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"likes": likes})
}

func (h *Handler) ApproveMoment(w http.ResponseWriter, r *http.Request) {
	h.outcome(w)(h.engine.ApproveMoment(r.Context(), r.PathValue("id")))
}

func (h *Handler) RejectMoment(w http.ResponseWriter, r *http.Request) {
	h.outcome(w)(h.engine.RejectMoment(r.Context(), r.PathValue("id")))
}

// -------- Join requests

func (h *Handler) CreateJoinRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Reason   string `json:"reason"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	req, err := h.engine.SubmitJoinRequest(r.Context(), in.Email, in.Reason, in.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.store.ListJoinRequests(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(reqs))
}

func (h *Handler) decideJoinRequest(d moderation.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.outcome(w)(h.engine.HandleJoinRequest(r.Context(), r.PathValue("id"), d))
	}
}

// -------- Users and presence

type userView struct {
	models.User
	Online bool `json:"online"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{User: u, Online: h.tracker.IsOnline(u, activity.SessionWindow)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	present, err := h.tracker.AdminPresent(r.Context(), activity.AuthorshipWindow)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"adminPresent": present})
}

// -------- Passwords

func (h *Handler) SendResetCode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.sessions.SendResetCode(r.Context(), strings.TrimSpace(in.Email)); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.sessions.ResetPassword(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Code), in.Password); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) ChangeAdminPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.sessions.ChangeAdminPassword(r.Context(), in.Password); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// -------- Helpers

func (h *Handler) isAdmin(r *http.Request) bool {
	u, ok := h.sessions.CurrentUser(r)
	return ok && u.Role == models.RoleAdmin
}

// outcome writes a moderation result. Missing targets are reported in the
// body, not as an HTTP error.
func (h *Handler) outcome(w http.ResponseWriter) func(moderation.Outcome, error) {
	return func(out moderation.Outcome, err error) {
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]moderation.Outcome{"outcome": out})
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, moderation.ErrValidation),
		errors.Is(err, moderation.ErrInvalidDecision),
		errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrBadCode),
		errors.Is(err, auth.ErrCodeExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, auth.ErrUnknownEmail):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
