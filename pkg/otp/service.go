package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"launchpad/pkg/sendemail"
)

const codeLength = 6

var ErrInvalidEmail = errors.New("invalid email")

// Verifier records a successful verification on the account.
type Verifier interface {
	MarkVerified(ctx context.Context, email string) error
}

type OTPService interface {
	GenerateAndSendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
}

type otpService struct {
	repo     OTPRepository
	verifier Verifier
	es       sendemail.EmailService
	logger   *zap.Logger
	now      func() time.Time
}

func NewOTPService(repo OTPRepository, verifier Verifier, es sendemail.EmailService, logger *zap.Logger) OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &otpService{repo: repo, verifier: verifier, es: es, logger: logger, now: time.Now}
}

func (s *otpService) GenerateAndSendOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	code, err := generateCode(codeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.repo.CreateOTP(ctx, email, code, s.now()); err != nil {
		return err
	}
	if err := s.sendOTPEmail(ctx, email, code); err != nil {
		return fmt.Errorf("send OTP email: %w", err)
	}
	s.logger.Info("otp sent", zap.String("email", email))
	return nil
}

func (s *otpService) VerifyOTP(ctx context.Context, email, code string) error {
	if err := s.repo.ConsumeOTP(ctx, email, strings.TrimSpace(code), s.now()); err != nil {
		return err
	}
	if err := s.verifier.MarkVerified(ctx, email); err != nil {
		return fmt.Errorf("mark account verified: %w", err)
	}
	return nil
}

func generateCode(length int) (string, error) {
	ten := big.NewInt(10)
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}

func (s *otpService) sendOTPEmail(ctx context.Context, toEmail, code string) error {
	subject := "Your verification code"
	plainTextContent := fmt.Sprintf("Your verification code is: %s. This code will expire in 10 minutes.", code)
	htmlContent := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px;">
			<h2>Your verification code</h2>
			<div style="font-size: 24px; font-weight: bold; color: #333; padding: 10px; background-color: #f5f5f5; border-radius: 5px; display: inline-block;">
				%s
			</div>
			<p>This code will expire in 10 minutes.</p>
			<p>If you didn't request this code, please ignore this email.</p>
		</div>
	`, code)

	return s.es.SendEmail(ctx, subject, toEmail, plainTextContent, htmlContent)
}
