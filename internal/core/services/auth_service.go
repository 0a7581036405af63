package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/config"
	"bibliotrack/internal/core/domain"
	"bibliotrack/internal/pkg/jwt"
	"bibliotrack/internal/pkg/password"
	"bibliotrack/internal/pkg/validation"

	"gorm.io/gorm"
)

// Auth errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("username or email already registered")
	ErrMissingFields      = errors.New("username, email and password are required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 5 characters with upper, lower and digit")
	ErrInvalidRole        = errors.New("invalid role")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo repositories.UserRepository
	audit    *AuditService
	cfg      *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, audit *AuditService, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		audit:    audit,
		cfg:      cfg,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
	Role     string `json:"role"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
	ExpiresAt   time.Time            `json:"expires_at"`
}

// Register registers a new user account. The caller never gets a token
// back; a fresh account signs in through Login like everyone else.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*models.UserResponse, error) {
	// 1. Normalize and require the identity fields
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	// 2. Validate email shape
	if !validation.ValidateEmail(input.Email) {
		return nil, ErrInvalidEmail
	}

	// 3. Enforce password policy
	if !validation.ValidatePassword(input.Password) {
		return nil, ErrWeakPassword
	}

	// 4. Resolve role, defaulting to USER
	role := domain.Role(strings.ToUpper(strings.TrimSpace(input.Role)))
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(string(role)) {
		return nil, ErrInvalidRole
	}

	// 5. Check if username was ever used. Deactivated accounts keep
	// their username reserved, so the check spans inactive rows too.
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// 6. Check if email was ever used
	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// 7. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 8. Create user
	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashedPassword,
		Role:     string(role),
		IsActive: true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "User registered: "+user.Username, nil)
	log.Printf("✅ User registered: %s (%s)", user.Username, user.Role)

	return user.ToResponse(), nil
}

// Login authenticates a user and issues an access token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	// 1. Find user by username, inactive accounts included. Unknown
	// username, deactivated account and wrong password all collapse
	// into the same invalid-credentials answer for the caller.
	user, err := s.userRepo.GetByUsernameAny(ctx, input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.audit.Record(ctx, domain.LogLevelWarning, "Login failed for unknown username: "+input.Username, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Reject deactivated accounts
	if !user.IsActive {
		s.audit.Record(ctx, domain.LogLevelWarning, "Login attempt on deactivated account: "+user.Username, nil)
		return nil, ErrInvalidCredentials
	}

	// 3. Verify password
	if !password.Verify(input.Password, user.Password) {
		s.audit.Record(ctx, domain.LogLevelWarning, "Login failed for user: "+user.Username, nil)
		return nil, ErrInvalidCredentials
	}

	// 4. Generate access token
	token, err := jwt.GenerateAccessToken(
		user.ID,
		user.Username,
		user.Email,
		user.Role,
		user.IsActive,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Audience,
		s.cfg.JWT.ExpiryHours,
	)
	if err != nil {
		s.audit.Record(ctx, domain.LogLevelError, "Token generation failed for user: "+user.Username, err)
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "User logged in: "+user.Username, nil)
	log.Printf("✅ User logged in: %s", user.Username)

	return &AuthResponse{
		User:        user.ToResponse(),
		AccessToken: token,
		ExpiresAt:   time.Now().Add(time.Duration(s.cfg.JWT.ExpiryHours) * time.Hour),
	}, nil
}

// Verify parses and validates an access token
func (s *AuthService) Verify(tokenString string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(tokenString, s.cfg.JWT.Secret)
}

// Logout records the sign-out. Access tokens are stateless and stay
// technically valid until expiry; the entry is for the audit trail.
func (s *AuthService) Logout(ctx context.Context, username string) {
	s.audit.Record(ctx, domain.LogLevelInformation, "User logged out: "+username, nil)
	log.Printf("✅ User logged out: %s", username)
}
