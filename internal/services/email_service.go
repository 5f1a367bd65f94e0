package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, username string) error
	SendPasswordResetEmail(email, token string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService returns nil when no SMTP host is configured; callers treat
// a nil EmailService as "mail disabled".
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	if smtpHost == "" {
		return nil
	}
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to TaskMarket!")

	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your account is ready. You start in task doer mode: browse open tasks,
		claim one and submit proof before the reservation runs out.</p>
		<p>Switch to task giver mode any time to publish your own tasks.</p>
		<p>The TaskMarket Team</p>
	`, username)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordResetEmail(email, token string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "TaskMarket password reset")

	body := fmt.Sprintf(`
		<p>Someone asked to reset the password of your TaskMarket account.</p>
		<p>Your reset code: <b>%s</b></p>
		<p>If it wasn't you, ignore this message; the code expires on its own.</p>
	`, token)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
