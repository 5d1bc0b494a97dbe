package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"garden/internal/models"
)

// Seed installs the initial content and the admin account into a store that
// has no admin yet. The admin is created last and marks the store as seeded,
// so content an admin later rejects is never reinstalled.
func Seed(ctx context.Context, s Store, adminEmail, adminPasswordHash string) error {
	seeded, err := hasAdmin(ctx, s)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if seeded {
		return nil
	}
	// Inserted oldest first so prepend order leaves the newest on top.
	posts := models.InitialPosts()
	slices.Reverse(posts)
	for _, p := range posts {
		if err := s.InsertPost(ctx, p); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("seed post %s: %w", p.ID, err)
		}
	}
	moments := models.InitialMoments()
	slices.Reverse(moments)
	for _, m := range moments {
		if err := s.InsertMoment(ctx, m); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("seed moment %s: %w", m.ID, err)
		}
	}
	err = s.CreateUser(ctx, models.User{Email: adminEmail, PasswordHash: adminPasswordHash, Role: models.RoleAdmin})
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func hasAdmin(ctx context.Context, s Users) (bool, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(users, func(u models.User) bool { return u.Role == models.RoleAdmin }), nil
}
