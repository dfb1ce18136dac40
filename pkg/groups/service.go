package groups

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/pkg/session"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
	maxNameLen          = 100
	maxMessageLen       = 10000
)

type GroupService interface {
	CreateGroup(ctx context.Context, s session.State, name string) (Group, error)
	JoinGroup(ctx context.Context, s session.State, name string) (Member, error)
	ListGroups(ctx context.Context) ([]Group, error)
	ListMembers(ctx context.Context, name string) ([]Member, error)
	PostMessage(ctx context.Context, s session.State, name, text string) (Message, error)
	ListMessages(ctx context.Context, s session.State, name string, limit int) ([]Message, error)
}

type groupService struct {
	repo   GroupRepository
	logger *zap.Logger

	clockMu sync.Mutex
	last    int64
	now     func() time.Time
}

func NewGroupService(repo GroupRepository, logger *zap.Logger) GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &groupService{repo: repo, logger: logger, now: time.Now}
}

func (s *groupService) timestamp() int64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}

// normalizeName trims the name and rejects ones that cannot be used as a
// document key.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidGroupName)
	case utf8.RuneCountInString(name) > maxNameLen:
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidGroupName, maxNameLen)
	case strings.Contains(name, "/"):
		return "", fmt.Errorf("%w: may not contain '/'", ErrInvalidGroupName)
	}
	return name, nil
}

func (s *groupService) CreateGroup(ctx context.Context, st session.State, name string) (Group, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Group{}, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return Group{}, err
	}
	g := Group{Name: name, CreatedBy: user.ID, CreatedAt: s.now().UnixMilli()}
	if err := s.repo.Create(ctx, g); err != nil {
		return Group{}, err
	}
	s.logger.Info("group created", zap.String("group", name), zap.String("user_id", user.ID))
	return g, nil
}

func (s *groupService) JoinGroup(ctx context.Context, st session.State, name string) (Member, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Member{}, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return Member{}, err
	}
	if _, err := s.repo.Get(ctx, name); err != nil {
		return Member{}, err
	}
	m := Member{UserID: user.ID, Email: user.Email, JoinedAt: s.now().UnixMilli()}
	if err := s.repo.AddMember(ctx, name, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

func (s *groupService) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.List(ctx)
}

func (s *groupService) ListMembers(ctx context.Context, name string) ([]Member, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, name); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, name)
}

func (s *groupService) PostMessage(ctx context.Context, st session.State, name, text string) (Message, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Message{}, err
	}
	name, err = s.requireMember(ctx, name, user.ID)
	if err != nil {
		return Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return Message{}, fmt.Errorf("%w: over %d characters", ErrMessageTooLong, maxMessageLen)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, err
	}
	msg := Message{ID: id.String(), SenderID: user.ID, Email: user.Email, Text: text, Timestamp: s.timestamp()}
	if err := s.repo.AddMessage(ctx, name, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (s *groupService) ListMessages(ctx context.Context, st session.State, name string, limit int) ([]Message, error) {
	user, err := st.RequireUser()
	if err != nil {
		return nil, err
	}
	name, err = s.requireMember(ctx, name, user.ID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	return s.repo.RecentMessages(ctx, name, limit)
}

func (s *groupService) requireMember(ctx context.Context, name, userID string) (string, error) {
	name, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	if _, err := s.repo.Get(ctx, name); err != nil {
		return "", err
	}
	ok, err := s.repo.IsMember(ctx, name, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotMember
	}
	return name, nil
}
