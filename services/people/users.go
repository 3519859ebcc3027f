package people

import (
	"context"
	"strings"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
)

// Account is the public view of a user plus its role profile, if any.
type Account struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Role     string      `json:"role"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	IsActive bool        `json:"is_active"`
	Profile  interface{} `json:"profile"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Authenticate checks credentials. Unknown users, inactive users and wrong
// passwords all fail with the same message.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperrors.Validation("Please provide username and password")
	}
	invalid := apperrors.New(apperrors.KindUnauthorized, "Invalid credentials")
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, invalid
	}
	if err := utils.CheckPassword(in.Password, user.Password); err != nil {
		return nil, invalid
	}
	return user, nil
}

// Account loads a user and the student or teacher profile behind it.
func (s *Service) Account(ctx context.Context, userID uint) (*Account, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User")
	}
	return s.toAccount(ctx, user), nil
}

func (s *Service) toAccount(ctx context.Context, u *models.User) *Account {
	acc := &Account{ID: u.ID, Username: u.Username, Role: u.Role, Email: u.Email, Phone: u.Phone, IsActive: u.IsActive}
	switch u.Role {
	case models.RoleStudent:
		if st, err := s.repo.GetStudentByUserID(ctx, u.ID); err == nil {
			acc.Profile = st
		}
	case models.RoleTeacher:
		if t, err := s.repo.GetTeacherByUserID(ctx, u.ID); err == nil {
			acc.Profile = t
		}
	}
	return acc
}

// ListUsers returns accounts ordered by role then username.
func (s *Service) ListUsers(ctx context.Context, role string) ([]Account, error) {
	if role != "" && !utils.IsValidRole(role) {
		return nil, apperrors.Validation("role must be one of admin, teacher, student")
	}
	users, err := s.repo.ListUsers(ctx, role)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list users")
	}
	out := make([]Account, 0, len(users))
	for i := range users {
		out = append(out, *s.toAccount(ctx, &users[i]))
	}
	return out, nil
}

func (s *Service) SetActive(ctx context.Context, userID uint, active bool) (*Account, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User")
	}
	user.IsActive = active
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, apperrors.Internal(err, "failed to update user")
	}
	s.log.WithField("user_id", userID).WithField("active", active).Info("User status changed")
	return s.toAccount(ctx, user), nil
}

// EnsureAdmin creates the bootstrap admin account when no user holds username.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.CreateUser(ctx, &models.User{Username: username, Password: hash, Role: models.RoleAdmin, IsActive: true}); err != nil {
		return err
	}
	s.log.WithField("username", username).Info("Bootstrap admin created")
	return nil
}
