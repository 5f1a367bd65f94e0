package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"taskmarket/internal/authz"
	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
)

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	GetUserRoles(ctx context.Context, id int64) ([]models.Role, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

type userService struct {
	repo         repositories.UserRepository
	roles        repositories.RoleRepository
	emailService EmailService
	authService  AuthService
}

func NewUserService(repo repositories.UserRepository, roles repositories.RoleRepository, emailService EmailService, authService AuthService) UserService {
	return &userService{
		repo:         repo,
		roles:        roles,
		emailService: emailService,
		authService:  authService,
	}
}

// Register creates the account in taskDoer mode with the member role. The
// account and its role are written in one transaction.
func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", models.ErrInvalidInput)
	}
	hashed, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hashed,
		Role:         authz.RoleTaskDoer,
		Mode:         models.ModeTaskDoer,
	}
	member, err := s.roles.GetRoleByKey(ctx, authz.RoleTaskDoer)
	if err != nil {
		return nil, fmt.Errorf("default role: %w", err)
	}
	if err := s.repo.Create(ctx, user, member.ID); err != nil {
		return nil, err
	}

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email, user.Username); err != nil {
			// warn but do not fail registration
			log.Printf("[user][register] warning: failed to send welcome email to %s: %v", user.Email, err)
		}
	}
	log.Printf("[user][register][ok] userID=%d", user.ID)
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *userService) GetUserRoles(ctx context.Context, id int64) ([]models.Role, error) {
	return s.roles.GetUserRoles(ctx, id)
}

// AssignRole takes effect on the user's next login, refresh or mode switch.
func (s *userService) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.roles.GetRoleByID(ctx, roleID); err != nil {
		return err
	}
	return s.roles.AssignRoleToUser(ctx, userID, roleID)
}

func (s *userService) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.roles.RemoveRoleFromUser(ctx, userID, roleID)
}
