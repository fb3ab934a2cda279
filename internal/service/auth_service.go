package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/auth"
	"github.com/spec-kit/repair-desk/internal/config"
	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/repository"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates staff login and account management.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// LoginResult is a successful sign-in.
type LoginResult struct {
	Staff *domain.StaffMember
	domain.Session
}

// StaffCreateInput describes a new staff account.
type StaffCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.StaffRole
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, staff repository.StaffRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		staff:      staff,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Login authenticates staff and returns a role-bearing token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	staff, err := s.staff.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, apperrors.NewForbidden("account disabled")
	}

	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{
		Staff:   staff,
		Session: domain.Session{StaffID: staff.ID, Role: staff.Role, Token: token, ExpiresAt: exp},
	}, nil
}

// Me returns the staff member behind a token subject.
func (s *AuthService) Me(ctx context.Context, staffID string) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, notFoundOr(err, "staff member", staffID)
	}
	return staff, nil
}

// SignOut is a no-op for stateless tokens.
func (s *AuthService) SignOut(_ context.Context, _ string) error {
	return nil
}

// CreateStaff registers a new back-office account.
func (s *AuthService) CreateStaff(ctx context.Context, input StaffCreateInput) (*domain.StaffMember, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}
	role := input.Role
	if role == "" {
		role = domain.StaffRoleStaff
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}

	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	staff := &domain.StaffMember{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, staffID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "new_password"})
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return notFoundOr(err, "staff member", staffID)
	}
	if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	staff.PasswordHash = hash
	return s.staff.Update(ctx, staff)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// It is a no-op when email or password is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	staff, err := s.CreateStaff(ctx, StaffCreateInput{Name: name, Email: email, Password: password, Role: domain.StaffRoleAdmin})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("staff_id", staff.ID), zap.String("email", staff.Email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
