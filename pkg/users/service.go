package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"launchpad/pkg/profiles"
	"launchpad/pkg/session"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be between 8 and 72 characters")
)

// Tokens issues and revokes bearer tokens.
type Tokens interface {
	Issue(ctx context.Context, user session.User) (string, error)
	Revoke(ctx context.Context, token string) error
}

type UserService interface {
	Signup(ctx context.Context, email, password, accType string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	Logout(ctx context.Context, s session.State) (session.State, error)
	Me(ctx context.Context, s session.State) (Account, error)
	// MarkVerified stamps the account behind email as verified now.
	MarkVerified(ctx context.Context, email string) error
}

type userService struct {
	repo   AccountRepository
	tokens Tokens
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(repo AccountRepository, tokens Tokens, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{repo: repo, tokens: tokens, logger: logger, now: time.Now}
}

func (s *userService) Signup(ctx context.Context, email, password, accType string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return AuthResult{}, ErrWeakPassword
	}
	at, err := profiles.ParseAccType(accType)
	if err != nil {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	a := Account{
		ID:           uuid.NewString(),
		Email:        email,
		AccType:      at,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return AuthResult{}, err
	}
	s.logger.Info("account created", zap.String("user_id", a.ID), zap.String("acc_type", string(at)))
	return s.issue(ctx, a)
}

func (s *userService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(ctx, a)
}

func (s *userService) issue(ctx context.Context, a Account) (AuthResult, error) {
	token, err := s.tokens.Issue(ctx, session.User{ID: a.ID, Email: a.Email})
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, Account: a.Public()}, nil
}

func (s *userService) Logout(ctx context.Context, st session.State) (session.State, error) {
	next, err := session.Transition(st, session.Event{Kind: session.EventLogout})
	if err != nil {
		return st, session.ErrUnauthenticated
	}
	if st.Token != "" {
		if err := s.tokens.Revoke(ctx, st.Token); err != nil {
			return st, err
		}
	}
	return next, nil
}

func (s *userService) Me(ctx context.Context, st session.State) (Account, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Account{}, err
	}
	a, err := s.repo.GetByID(ctx, user.ID)
	if err != nil {
		return Account{}, err
	}
	return a.Public(), nil
}

func (s *userService) MarkVerified(ctx context.Context, email string) error {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.repo.SetVerifiedAt(ctx, a.ID, s.now().UnixMilli())
}
