// Package store holds the garden's persisted collections behind small
// repository interfaces so the moderation and auth layers can run against
// memory, SQLite or Postgres interchangeably.
package store

import (
	"context"
	"errors"
	"time"

	"garden/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrStale is returned by conditional updates when the record's version
	// no longer matches the one the caller read.
	ErrStale = errors.New("stale version")
)

// Posts lists in collection order: most recent submission first.
type Posts interface {
	InsertPost(ctx context.Context, p models.Post) error
	GetPost(ctx context.Context, id string) (models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	UpdatePostStatus(ctx context.Context, id string, to models.PostStatus, version int64) error
	DeletePost(ctx context.Context, id string) error
}

type Moments interface {
	InsertMoment(ctx context.Context, m models.Moment) error
	GetMoment(ctx context.Context, id string) (models.Moment, error)
	ListMoments(ctx context.Context) ([]models.Moment, error)
	UpdateMomentStatus(ctx context.Context, id string, to models.MomentStatus, version int64) error
	DeleteMoment(ctx context.Context, id string) error
	LikeMoment(ctx context.Context, id string) (int, error)
}

type JoinRequests interface {
	InsertJoinRequest(ctx context.Context, r models.JoinRequest) error
	GetJoinRequest(ctx context.Context, id string) (models.JoinRequest, error)
	ListJoinRequests(ctx context.Context) ([]models.JoinRequest, error)
	UpdateJoinRequestStatus(ctx context.Context, id string, to models.RequestStatus, version int64) error
}

type Users interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	TouchUser(ctx context.Context, email string, at time.Time) error
	SetPassword(ctx context.Context, email, hash string) error
	SetRolePassword(ctx context.Context, role models.Role, hash string) error
}

type Comments interface {
	InsertComment(ctx context.Context, c models.Comment) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

type ResetCodes interface {
	PutResetCode(ctx context.Context, c models.ResetCode) error
	GetResetCode(ctx context.Context, email string) (models.ResetCode, error)
	DeleteResetCode(ctx context.Context, email string) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, email string) error
}

// Store is every collection the garden persists.
type Store interface {
	Posts
	Moments
	JoinRequests
	Users
	Comments
	ResetCodes
	Sessions
	Close() error
}
