package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"garden/internal/models"
)

// Memory is an in-process Store. Collections are kept most-recent-first,
// the same order the SQL stores return.
type Memory struct {
	mu       sync.Mutex
	posts    []models.Post
	moments  []models.Moment
	requests []models.JoinRequest
	users    []models.User
	comments []models.Comment
	codes    map[string]models.ResetCode
	sessions map[string]models.Session
}

func NewMemory() *Memory {
	return &Memory{
		codes:    map[string]models.ResetCode{},
		sessions: map[string]models.Session{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) InsertPost(_ context.Context, p models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.ContainsFunc(m.posts, func(x models.Post) bool { return x.ID == p.ID }) {
		return ErrDuplicate
	}
	p.Version = 1
	p.Tags = slices.Clone(p.Tags)
	m.posts = append([]models.Post{p}, m.posts...)
	return nil
}

func (m *Memory) GetPost(_ context.Context, id string) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.posts, func(x models.Post) bool { return x.ID == id })
	if i < 0 {
		return models.Post{}, ErrNotFound
	}
	p := m.posts[i]
	p.Tags = slices.Clone(p.Tags)
	return p, nil
}

func (m *Memory) ListPosts(_ context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.posts)
	for i := range out {
		out[i].Tags = slices.Clone(out[i].Tags)
	}
	return out, nil
}

func (m *Memory) UpdatePostStatus(_ context.Context, id string, to models.PostStatus, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.posts, func(x models.Post) bool { return x.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	if m.posts[i].Version != version {
		return ErrStale
	}
	m.posts[i].Status = to
	m.posts[i].Version++
	return nil
}

func (m *Memory) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.posts)
	m.posts = slices.DeleteFunc(m.posts, func(x models.Post) bool { return x.ID == id })
	if len(m.posts) == n {
		return ErrNotFound
	}
	m.comments = slices.DeleteFunc(m.comments, func(c models.Comment) bool { return c.PostID == id })
	return nil
}

func (m *Memory) InsertMoment(_ context.Context, mo models.Moment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.ContainsFunc(m.moments, func(x models.Moment) bool { return x.ID == mo.ID }) {
		return ErrDuplicate
	}
	mo.Version = 1
	mo.Images = slices.Clone(mo.Images)
	m.moments = append([]models.Moment{mo}, m.moments...)
	return nil
}

func (m *Memory) GetMoment(_ context.Context, id string) (models.Moment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.moments, func(x models.Moment) bool { return x.ID == id })
	if i < 0 {
		return models.Moment{}, ErrNotFound
	}
	mo := m.moments[i]
	mo.Images = slices.Clone(mo.Images)
	return mo, nil
}

func (m *Memory) ListMoments(_ context.Context) ([]models.Moment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.moments)
	for i := range out {
		out[i].Images = slices.Clone(out[i].Images)
	}
	return out, nil
}

func (m *Memory) UpdateMomentStatus(_ context.Context, id string, to models.MomentStatus, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.moments, func(x models.Moment) bool { return x.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	if m.moments[i].Version != version {
		return ErrStale
	}
	m.moments[i].Status = to
	m.moments[i].Version++
	return nil
}

func (m *Memory) DeleteMoment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.moments)
	m.moments = slices.DeleteFunc(m.moments, func(x models.Moment) bool { return x.ID == id })
	if len(m.moments) == n {
		return ErrNotFound
	}
	return nil
}

func (m *Memory) LikeMoment(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.moments, func(x models.Moment) bool { return x.ID == id })
	if i < 0 {
		return 0, ErrNotFound
	}
	m.moments[i].Likes++
	return m.moments[i].Likes, nil
}

func (m *Memory) InsertJoinRequest(_ context.Context, r models.JoinRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.ContainsFunc(m.requests, func(x models.JoinRequest) bool { return x.ID == r.ID }) {
		return ErrDuplicate
	}
	r.Version = 1
	m.requests = append([]models.JoinRequest{r}, m.requests...)
	return nil
}

func (m *Memory) GetJoinRequest(_ context.Context, id string) (models.JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.requests, func(x models.JoinRequest) bool { return x.ID == id })
	if i < 0 {
		return models.JoinRequest{}, ErrNotFound
	}
	return m.requests[i], nil
}

func (m *Memory) ListJoinRequests(_ context.Context) ([]models.JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests), nil
}

func (m *Memory) UpdateJoinRequestStatus(_ context.Context, id string, to models.RequestStatus, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.requests, func(x models.JoinRequest) bool { return x.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	if m.requests[i].Version != version {
		return ErrStale
	}
	m.requests[i].Status = to
	m.requests[i].Version++
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.ContainsFunc(m.users, func(x models.User) bool { return x.Email == u.Email }) {
		return ErrDuplicate
	}
	m.users = append(m.users, u)
	return nil
}

func (m *Memory) GetUser(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.users, func(x models.User) bool { return x.Email == email })
	if i < 0 {
		return models.User{}, ErrNotFound
	}
	return m.users[i], nil
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.users), nil
}

func (m *Memory) TouchUser(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.users, func(x models.User) bool { return x.Email == email })
	if i < 0 {
		return ErrNotFound
	}
	m.users[i].LastActive = &at
	return nil
}

func (m *Memory) SetPassword(_ context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.users, func(x models.User) bool { return x.Email == email })
	if i < 0 {
		return ErrNotFound
	}
	m.users[i].PasswordHash = hash
	return nil
}

func (m *Memory) SetRolePassword(_ context.Context, role models.Role, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Role == role {
			m.users[i].PasswordHash = hash
		}
	}
	return nil
}

func (m *Memory) InsertComment(_ context.Context, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, c)
	return nil
}

// ListComments returns a post's comments oldest first.
func (m *Memory) ListComments(_ context.Context, postID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) PutResetCode(_ context.Context, c models.ResetCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.Email] = c
	return nil
}

func (m *Memory) GetResetCode(_ context.Context, email string) (models.ResetCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[email]
	if !ok {
		return models.ResetCode{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) DeleteResetCode(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, email)
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) DeleteUserSessions(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.Email == email {
			delete(m.sessions, id)
		}
	}
	return nil
}
