package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskmarket/internal/authz"
	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
	"taskmarket/internal/utils"
)

type AuthService interface {
	HashPassword(password string) (string, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	// SwitchMode persists the new operating mode, revokes the token the
	// request came with and returns one carrying the permissions of mode.
	SwitchMode(ctx context.Context, claims *authz.Claims, mode models.Mode) (*models.TokenPair, error)
	Logout(ctx context.Context, claims *authz.Claims) error
}

type authService struct {
	users      repositories.UserRepository
	perms      PermissionService
	tokens     *authz.Tokens
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(users repositories.UserRepository, perms PermissionService, tokens *authz.Tokens, refreshTTL time.Duration) AuthService {
	return &authService{
		users:      users,
		perms:      perms,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *authService) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error) {
	// адреса хранятся в нижнем регистре (см. Register)
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		log.Printf("[auth][login] user not found email=%q", email)
		return nil, nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	ph := strings.TrimSpace(user.PasswordHash)
	if ph == "" {
		log.Printf("[auth][login] empty password_hash userID=%d", user.ID)
		return nil, nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ph), []byte(password)); err != nil {
		log.Printf("[auth][login] bcrypt mismatch userID=%d", user.ID)
		return nil, nil, models.ErrInvalidCredentials
	}

	mode := user.Mode
	if !mode.IsOperating() {
		mode = models.ModeTaskDoer
	}
	pair, err := s.issueAccess(ctx, user.ID, mode)
	if err != nil {
		return nil, nil, err
	}

	// refresh (opaque), хранится в БД
	rt, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, nil, fmt.Errorf("new refresh token: %w", err)
	}
	if err := s.users.UpdateRefresh(ctx, user.ID, rt, s.now().Add(s.refreshTTL)); err != nil {
		return nil, nil, err
	}
	pair.RefreshToken = rt

	log.Printf("[auth][login][ok] userID=%d mode=%s", user.ID, mode)
	return user, pair, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	old := strings.TrimSpace(refreshToken)
	user, err := s.users.GetByRefreshToken(ctx, old)
	if errors.Is(err, models.ErrNotFound) {
		return nil, authz.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if user.RefreshRevoked || user.RefreshExpiresAt == nil || s.now().After(*user.RefreshExpiresAt) {
		return nil, authz.ErrInvalidToken
	}

	newRT, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, fmt.Errorf("new refresh token: %w", err)
	}
	rotated, err := s.users.RotateRefresh(ctx, old, newRT, s.now().Add(s.refreshTTL))
	if errors.Is(err, models.ErrNotFound) {
		// rotated concurrently by another request
		return nil, authz.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	mode := rotated.Mode
	if !mode.IsOperating() {
		mode = models.ModeTaskDoer
	}
	pair, err := s.issueAccess(ctx, rotated.ID, mode)
	if err != nil {
		return nil, err
	}
	pair.RefreshToken = newRT
	log.Printf("[auth][refresh][ok] userID=%d", rotated.ID)
	return pair, nil
}

func (s *authService) SwitchMode(ctx context.Context, claims *authz.Claims, mode models.Mode) (*models.TokenPair, error) {
	if !mode.IsOperating() {
		return nil, fmt.Errorf("switch mode: %w: %q", models.ErrInvalidMode, mode)
	}
	pair, err := s.issueAccess(ctx, claims.UserID, mode)
	if err != nil {
		return nil, err
	}
	// mode first: a failed update must leave the caller's token usable
	if err := s.users.UpdateMode(ctx, claims.UserID, mode); err != nil {
		return nil, err
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return nil, fmt.Errorf("revoke previous token: %w", err)
	}
	log.Printf("[auth][mode][ok] userID=%d %s -> %s", claims.UserID, claims.Mode, mode)
	return pair, nil
}

func (s *authService) Logout(ctx context.Context, claims *authz.Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if err := s.users.ClearRefresh(ctx, claims.UserID); err != nil {
		return err
	}
	log.Printf("[auth][logout][ok] userID=%d", claims.UserID)
	return nil
}

func (s *authService) issueAccess(ctx context.Context, userID int64, mode models.Mode) (*models.TokenPair, error) {
	eff, err := s.perms.EffectivePermissions(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	signed, claims, err := s.tokens.Issue(userID, mode, authz.RoleRefs(eff.Roles), eff.Permissions)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}
