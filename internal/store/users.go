package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skufu/healthrec/internal/models"
)

// ProfileUpdate carries the optional profile fields; nil leaves a column untouched.
type ProfileUpdate struct {
	Age         *int
	Gender      *string
	Preferences *string
}

// CreateUser inserts u, returning ErrDuplicateUsername if the name is taken.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	_, err := s.UserByUsername(ctx, u.Username)
	switch {
	case err == nil:
		return ErrDuplicateUsername
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if terr := translate(err); errors.Is(terr, ErrDuplicateUsername) {
			return terr
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if terr := translate(err); errors.Is(terr, ErrNotFound) {
			return nil, terr
		}
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if terr := translate(err); errors.Is(terr, ErrNotFound) {
			return nil, terr
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uint, upd ProfileUpdate) (*models.User, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if upd.Age != nil {
		changes["age"] = *upd.Age
	}
	if upd.Gender != nil {
		changes["gender"] = *upd.Gender
	}
	if upd.Preferences != nil {
		changes["preferences"] = *upd.Preferences
	}
	if len(changes) == 0 {
		return u, nil
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update profile %d: %w", id, err)
	}
	return s.UserByID(ctx, id)
}

// ListUsers returns every account ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
