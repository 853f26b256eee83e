package memory

import (
	"context"
	"strings"
	"time"

	"estatehub/internal/models"
	"estatehub/internal/repositories"
)

type userRepo struct {
	s   *state
	log *undoLog
}

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	now := time.Now()
	user.ID = r.s.id()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleSeeker
	}
	if user.TokenVersion == 0 {
		user.TokenVersion = 1
	}
	remember(r.log, r.s.users, user.ID)
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *userRepo) TouchLogin(_ context.Context, id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.LastLoginAt = &at
	remember(r.log, r.s.users, id)
	r.s.users[id] = u
	return nil
}

func (r *userRepo) GetCredits(_ context.Context, id uint) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return 0, repositories.ErrUserNotFound
	}
	return u.Credits, nil
}

func (r *userRepo) AdjustCredits(_ context.Context, id uint, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return 0, repositories.ErrUserNotFound
	}
	if u.Credits+delta < 0 {
		return u.Credits, repositories.ErrInsufficientCredits
	}
	u.Credits += delta
	u.UpdatedAt = time.Now()
	remember(r.log, r.s.users, id)
	r.s.users[id] = u
	return u.Credits, nil
}
