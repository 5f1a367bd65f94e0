package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taskmarket/internal/authz"
	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
	"taskmarket/internal/utils"
)

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	userRepo repositories.UserRepository
	repo     repositories.PasswordResetRepository
	emails   EmailService
	auth     AuthService
	ttl      time.Duration
	now      func() time.Time
}

func NewPasswordResetService(userRepo repositories.UserRepository, repo repositories.PasswordResetRepository, emails EmailService, auth AuthService, ttl time.Duration) PasswordResetService {
	return &passwordResetService{
		userRepo: userRepo,
		repo:     repo,
		emails:   emails,
		auth:     auth,
		ttl:      ttl,
		now:      time.Now,
	}
}

// RequestReset answers the same way whether or not the address is known.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrInvalidInput)
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		// don't leak existence
		log.Printf("[password-reset] request for unknown email=%q", email)
		return nil
	}
	if err != nil {
		return err
	}

	token, err := utils.NewRefreshToken(32)
	if err != nil {
		return err
	}
	if _, err := s.repo.Create(ctx, user.ID, token, s.now().Add(s.ttl)); err != nil {
		return err
	}

	if s.emails != nil {
		if err := s.emails.SendPasswordResetEmail(user.Email, token); err != nil {
			log.Printf("[password-reset] failed to send email to %s: %v", user.Email, err)
		}
	}
	log.Printf("[password-reset][ok] token issued userID=%d", user.ID)
	return nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", models.ErrInvalidInput)
	}
	if len(strings.TrimSpace(newPassword)) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", models.ErrInvalidInput)
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	userID, err := s.repo.Redeem(ctx, token, hash, s.now())
	if errors.Is(err, models.ErrNotFound) {
		return authz.ErrInvalidToken
	}
	if err != nil {
		return err
	}
	log.Printf("[password-reset][ok] password changed userID=%d", userID)
	return nil
}
