// Package moderation decides the initial status of submitted content and
// join requests, and applies the admin transitions between those states.
//
// Content:      pending -> approved (Approve) | pending -> deleted (Reject)
// Join request: pending -> approved (user created) | pending -> rejected
//
// Missing targets and targets already in their final state are reported as
// outcomes, never as errors.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"garden/internal/models"
	"garden/internal/store"
)

type Outcome string

const (
	Transitioned Outcome = "transitioned"
	AlreadyDone  Outcome = "already_done"
	NotFound     Outcome = "not_found"
)

// Decision is an admin's verdict on a join request.
type Decision = models.RequestStatus

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
)

// maxAttempts bounds the read/compare-and-swap loop of a transition.
const maxAttempts = 3

type Repository interface {
	store.Posts
	store.Moments
	store.JoinRequests
	store.Users
}

type Engine struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time

	// mu serializes moderation writes within this process; versions guard
	// against writers in other processes.
	mu sync.Mutex
}

func New(repo Repository, log *zap.Logger) *Engine {
	return &Engine{repo: repo, log: log, now: time.Now}
}

func (e *Engine) SubmitPost(ctx context.Context, p models.Post, role models.Role) (models.Post, error) {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		return p, fmt.Errorf("%w: title and content required", ErrValidation)
	}
	p.Status = models.PostPending
	if role == models.RoleAdmin {
		p.Status = models.PostApproved
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Date.IsZero() {
		p.Date = models.Day(e.now())
	}
	if err := e.repo.InsertPost(ctx, p); err != nil {
		return p, fmt.Errorf("insert post: %w", err)
	}
	p.Version = 1
	e.log.Info("post submitted", zap.String("id", p.ID), zap.String("role", string(role)), zap.String("status", string(p.Status)))
	return p, nil
}

func (e *Engine) SubmitMoment(ctx context.Context, m models.Moment, role models.Role) (models.Moment, error) {
	if strings.TrimSpace(m.Content) == "" {
		return m, fmt.Errorf("%w: content required", ErrValidation)
	}
	if m.Likes < 0 {
		return m, fmt.Errorf("%w: likes must not be negative", ErrValidation)
	}
	m.Status = models.MomentPending
	if role == models.RoleAdmin {
		m.Status = models.MomentApproved
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Date.IsZero() {
		m.Date = models.Day(e.now())
	}
	if err := e.repo.InsertMoment(ctx, m); err != nil {
		return m, fmt.Errorf("insert moment: %w", err)
	}
	m.Version = 1
	e.log.Info("moment submitted", zap.String("id", m.ID), zap.String("role", string(role)), zap.String("status", string(m.Status)))
	return m, nil
}

func (e *Engine) ApprovePost(ctx context.Context, id string) (Outcome, error) {
	return e.transition(ctx, "post", id, func() (bool, int64, error) {
		p, err := e.repo.GetPost(ctx, id)
		return p.Status == models.PostApproved, p.Version, err
	}, func(version int64) error {
		return e.repo.UpdatePostStatus(ctx, id, models.PostApproved, version)
	})
}

func (e *Engine) ApproveMoment(ctx context.Context, id string) (Outcome, error) {
	return e.transition(ctx, "moment", id, func() (bool, int64, error) {
		m, err := e.repo.GetMoment(ctx, id)
		return m.Status == models.MomentApproved, m.Version, err
	}, func(version int64) error {
		return e.repo.UpdateMomentStatus(ctx, id, models.MomentApproved, version)
	})
}

// RejectPost removes the post. Content has no retained rejected state.
func (e *Engine) RejectPost(ctx context.Context, id string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed(id, "post", e.repo.DeletePost(ctx, id))
}

func (e *Engine) RejectMoment(ctx context.Context, id string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed(id, "moment", e.repo.DeleteMoment(ctx, id))
}

func (e *Engine) removed(id, kind string, err error) (Outcome, error) {
	out := Transitioned
	switch {
	case errors.Is(err, store.ErrNotFound):
		out = NotFound
	case err != nil:
		return "", fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	e.log.Info("content rejected", zap.String("kind", kind), zap.String("id", id), zap.String("outcome", string(out)))
	return out, nil
}

// SubmitJoinRequest records a pending application. The password, when given,
// is stored hashed and becomes the new user's password on approval.
func (e *Engine) SubmitJoinRequest(ctx context.Context, email, reason, password string) (models.JoinRequest, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.JoinRequest{}, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return models.JoinRequest{}, fmt.Errorf("%w: reason required", ErrValidation)
	}
	r := models.JoinRequest{
		ID:     "req-" + uuid.NewString(),
		Email:  email,
		Reason: reason,
		Date:   models.Day(e.now()),
		Status: models.RequestPending,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return r, fmt.Errorf("hash password: %w", err)
		}
		r.PasswordHash = string(hash)
	}
	if err := e.repo.InsertJoinRequest(ctx, r); err != nil {
		return r, fmt.Errorf("insert join request: %w", err)
	}
	r.Version = 1
	e.log.Info("join request submitted", zap.String("id", r.ID), zap.String("email", email))
	return r, nil
}

// HandleJoinRequest moves a pending request to decision. Approval also
// creates the applicant's account unless one with that email exists.
func (e *Engine) HandleJoinRequest(ctx context.Context, id string, decision Decision) (Outcome, error) {
	if !decision.Terminal() {
		return "", ErrInvalidDecision
	}
	var req models.JoinRequest
	out, err := e.transition(ctx, "join_request", id, func() (bool, int64, error) {
		var err error
		req, err = e.repo.GetJoinRequest(ctx, id)
		return req.Status.Terminal(), req.Version, err
	}, func(version int64) error {
		return e.repo.UpdateJoinRequestStatus(ctx, id, decision, version)
	})
	if err != nil || decision != models.RequestApproved {
		return out, err
	}
	// Re-approving an approved request repairs a missing account.
	if out == Transitioned || (out == AlreadyDone && req.Status == models.RequestApproved) {
		return out, e.createMember(ctx, req)
	}
	return out, nil
}

func (e *Engine) createMember(ctx context.Context, req models.JoinRequest) error {
	if _, err := e.repo.GetUser(ctx, req.Email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup user %s: %w", req.Email, err)
	}
	hash := req.PasswordHash
	if hash == "" {
		b, err := bcrypt.GenerateFromPassword([]byte(models.DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash default password: %w", err)
		}
		hash = string(b)
	}
	err := e.repo.CreateUser(ctx, models.User{Email: req.Email, PasswordHash: hash, Role: models.RoleUser})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		e.log.Debug("member already exists", zap.String("email", req.Email))
		return nil
	case err != nil:
		return fmt.Errorf("create user %s: %w", req.Email, err)
	}
	e.log.Info("member created", zap.String("email", req.Email), zap.String("request", req.ID))
	return nil
}

// transition runs read -> compare-and-swap, retrying when another writer
// bumped the version between the two.
func (e *Engine) transition(ctx context.Context, kind, id string, read func() (done bool, version int64, err error), write func(version int64) error) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for attempt := 1; ; attempt++ {
		done, version, err := read()
		if errors.Is(err, store.ErrNotFound) {
			e.log.Info("moderation target missing", zap.String("kind", kind), zap.String("id", id))
			return NotFound, nil
		} else if err != nil {
			return "", fmt.Errorf("read %s %s: %w", kind, id, err)
		}
		if done {
			return AlreadyDone, nil
		}
		err = write(version)
		switch {
		case err == nil:
			e.log.Info("moderation transition", zap.String("kind", kind), zap.String("id", id), zap.Int64("version", version+1))
			return Transitioned, nil
		case errors.Is(err, store.ErrNotFound):
			return NotFound, nil
		case errors.Is(err, store.ErrStale) && attempt < maxAttempts:
			e.log.Debug("stale moderation write, retrying", zap.String("kind", kind), zap.String("id", id), zap.Int("attempt", attempt))
			continue
		default:
			return "", fmt.Errorf("update %s %s: %w", kind, id, err)
		}
	}
}
