// Package activity records when users were last seen and derives presence
// from it.
package activity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"garden/internal/models"
	"garden/internal/store"
)

const (
	// SessionWindow is how recently a user must have sent a heartbeat to
	// count as online on the dashboard.
	SessionWindow = 5 * time.Minute
	// AuthorshipWindow is how recently an admin must have been active for
	// the garden to treat its owner as present.
	AuthorshipWindow = 24 * time.Hour
)

type Tracker struct {
	users store.Users
	log   *zap.Logger
	now   func() time.Time
}

func NewTracker(users store.Users, log *zap.Logger) *Tracker {
	return &Tracker{users: users, log: log, now: time.Now}
}

// Touch marks email as active now. Unknown users are ignored.
func (t *Tracker) Touch(ctx context.Context, email string) error {
	err := t.users.TouchUser(ctx, email, t.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// IsOnline reports whether lastActive is set and within threshold of now.
func IsOnline(lastActive *time.Time, threshold time.Duration, now time.Time) bool {
	return lastActive != nil && now.Sub(*lastActive) < threshold
}

func (t *Tracker) IsOnline(u models.User, threshold time.Duration) bool {
	return IsOnline(u.LastActive, threshold, t.now())
}

// Online returns the users active within threshold.
func (t *Tracker) Online(ctx context.Context, threshold time.Duration) ([]models.User, error) {
	users, err := t.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	now := t.now()
	var out []models.User
	for _, u := range users {
		if IsOnline(u.LastActive, threshold, now) {
			out = append(out, u)
		}
	}
	return out, nil
}

// AdminPresent reports whether any admin was active within threshold.
func (t *Tracker) AdminPresent(ctx context.Context, threshold time.Duration) (bool, error) {
	online, err := t.Online(ctx, threshold)
	if err != nil {
		return false, err
	}
	for _, u := range online {
		if u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// Heartbeat calls beat every interval until ctx is done. Failed beats are
// logged and the loop keeps going. Ticks missed while the process is busy are
// dropped, not replayed.
func Heartbeat(ctx context.Context, interval time.Duration, beat func(context.Context) error, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := beat(ctx); err != nil && ctx.Err() == nil {
				log.Warn("heartbeat failed", zap.Error(err))
			}
		}
	}
}
