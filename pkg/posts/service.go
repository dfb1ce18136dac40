package posts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/pkg/objectstore"
	"launchpad/pkg/session"
)

const maxCaptionLen = 2200

var ErrCaptionTooLong = errors.New("caption too long")

type PostService interface {
	CreatePost(ctx context.Context, s session.State, image io.Reader, contentType, caption string) (Post, error)
	Feed(ctx context.Context) ([]Post, error)
	SubscribeFeed(ctx context.Context) (*Feed, error)
	Like(ctx context.Context, s session.State, postID string) error
	LikedPosts(ctx context.Context, s session.State) ([]string, error)
}

type postService struct {
	repo    PostRepository
	objects objectstore.Store
	logger  *zap.Logger

	clockMu sync.Mutex
	last    int64
	now     func() time.Time
}

func NewPostService(repo PostRepository, objects objectstore.Store, logger *zap.Logger) PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postService{repo: repo, objects: objects, logger: logger, now: time.Now}
}

// timestamp never repeats within the process so the feed order is strict.
func (s *postService) timestamp() int64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}

func (s *postService) CreatePost(ctx context.Context, st session.State, image io.Reader, contentType, caption string) (Post, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Post{}, err
	}
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		return Post{}, ErrCaptionTooLong
	}
	if image == nil {
		return Post{}, ErrImageMissing
	}
	data, err := objectstore.ReadAll(image)
	if err != nil {
		return Post{}, err
	}
	if len(data) == 0 {
		return Post{}, ErrImageMissing
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Post{}, err
	}
	path := fmt.Sprintf("posts/%s/%s", user.ID, id)
	if err := s.objects.Upload(ctx, path, contentType, bytes.NewReader(data)); err != nil {
		return Post{}, fmt.Errorf("upload post image: %w", err)
	}
	url, err := s.objects.ResolveDownloadURL(ctx, path)
	if err != nil {
		return Post{}, fmt.Errorf("resolve post image: %w", err)
	}

	p := Post{
		ID:        id.String(),
		UserID:    user.ID,
		Email:     user.Email,
		ImageURL:  url,
		Caption:   caption,
		Likes:     0,
		Timestamp: s.timestamp(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Post{}, err
	}
	s.logger.Info("post created", zap.String("post_id", p.ID), zap.String("user_id", user.ID))
	return p, nil
}

func (s *postService) Feed(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx)
}

func (s *postService) SubscribeFeed(ctx context.Context) (*Feed, error) {
	src, err := s.repo.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe feed: %w", err)
	}
	return newFeed(src, s.logger), nil
}

func (s *postService) Like(ctx context.Context, st session.State, postID string) error {
	user, err := st.RequireUser()
	if err != nil {
		return err
	}
	if postID == "" {
		return ErrPostNotFound
	}
	return s.repo.Like(ctx, user.ID, postID, s.now().UnixMilli())
}

func (s *postService) LikedPosts(ctx context.Context, st session.State) ([]string, error) {
	user, err := st.RequireUser()
	if err != nil {
		return nil, err
	}
	return s.repo.LikedPostIDs(ctx, user.ID)
}
