package services

import (
	"context"
	"errors"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/core/domain"
	"bibliotrack/internal/pkg/password"
	"bibliotrack/internal/pkg/validation"

	"gorm.io/gorm"
)

// User service errors
var (
	ErrUserNotFoundSvc     = errors.New("user not found")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotDeleteSelf    = errors.New("cannot deactivate your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
	audit    *AuditService
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, audit *AuditService) *UserService {
	return &UserService{
		userRepo: userRepo,
		audit:    audit,
	}
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	Email *string `json:"email"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListUsers lists one page of active users as id/username summaries.
// The directory listing deliberately exposes only id and username; full
// records go through GetUserByID, which is admin territory.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*models.UserSummary, int64, error) {
	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]*models.UserSummary, len(users))
	for i, user := range users {
		summaries[i] = user.ToSummary()
	}

	return summaries, total, nil
}

// GetUserByID gets a user by ID, deactivated accounts included
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByIDAny(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	return user.ToResponse(), nil
}

// UpdateUserByAdmin updates a user by admin
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id string, adminID string, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByIDAny(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	// Prevent admin from changing own role
	if id == adminID && input.Role != nil {
		return nil, ErrCannotChangeOwnRole
	}

	// Update fields
	if input.Email != nil && *input.Email != user.Email {
		if !validation.ValidateEmail(*input.Email) {
			return nil, ErrInvalidEmail
		}
		// Email uniqueness spans deactivated accounts too
		exists, _ := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if exists {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = *input.Email
	}

	if input.Role != nil {
		if !domain.ValidRole(*input.Role) {
			return nil, ErrInvalidRole
		}
		user.Role = *input.Role
	}

	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "User updated by admin: "+user.Username, nil)

	return user.ToResponse(), nil
}

// DeactivateUser deactivates a user account. The row stays in place so
// the username and email remain reserved and loan history keeps its
// references.
func (s *UserService) DeactivateUser(ctx context.Context, id string, adminID string) error {
	// Prevent admin from deactivating self
	if id == adminID {
		return ErrCannotDeleteSelf
	}

	user, err := s.userRepo.GetByIDAny(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFoundSvc
		}
		return err
	}

	ok, err := s.userRepo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFoundSvc
	}

	s.audit.Record(ctx, domain.LogLevelWarning, "User deactivated: "+user.Username, nil)

	return nil
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	return user.ToResponse(), nil
}

// UpdateProfile updates own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input *UpdateProfileInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFoundSvc
	}

	if input.Email != nil && *input.Email != user.Email {
		if !validation.ValidateEmail(*input.Email) {
			return nil, ErrInvalidEmail
		}
		exists, _ := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if exists {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = *input.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "Profile updated: "+user.Username, nil)

	return user.ToResponse(), nil
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID string, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFoundSvc
	}

	// Verify old password
	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}

	// Validate new password
	if !validation.ValidatePassword(input.NewPassword) {
		return ErrWeakPassword
	}

	// Hash new password
	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "Password changed: "+user.Username, nil)

	return nil
}

// SetUserRole sets a user's role
func (s *UserService) SetUserRole(ctx context.Context, id string, adminID string, role string) (*models.UserResponse, error) {
	if id == adminID {
		return nil, ErrCannotChangeOwnRole
	}

	if !domain.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	user, err := s.userRepo.GetByIDAny(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelWarning, "Role changed: "+user.Username+" is now "+role, nil)

	return user.ToResponse(), nil
}
