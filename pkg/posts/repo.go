package posts

import (
	"context"
	"errors"
	"fmt"

	"launchpad/pkg/docstore"
)

const postsCollection = "posts"

var (
	ErrPostNotFound = errors.New("post not found")
	ErrAlreadyLiked = errors.New("post already liked")
	ErrImageMissing = errors.New("image is required")
)

func likedCollection(userID string) string {
	return "likedPosts/" + userID
}

var feedQuery = docstore.Query{Collection: postsCollection, OrderBy: "timestamp", Desc: true}

type PostRepository interface {
	Create(ctx context.Context, p Post) error
	List(ctx context.Context) ([]Post, error)
	Subscribe(ctx context.Context) (*docstore.Subscription, error)
	// Like records the viewer's like and bumps the counter in one
	// transaction.
	Like(ctx context.Context, userID, postID string, at int64) error
	LikedPostIDs(ctx context.Context, userID string) ([]string, error)
}

type docPostRepository struct {
	store docstore.Store
}

func NewPostRepository(store docstore.Store) PostRepository {
	return &docPostRepository{store: store}
}

func (r *docPostRepository) Create(ctx context.Context, p Post) error {
	body, err := docstore.Encode(p)
	if err != nil {
		return err
	}
	if err := r.store.CreateDoc(ctx, postsCollection, p.ID, body); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *docPostRepository) List(ctx context.Context) ([]Post, error) {
	docs, err := r.store.Query(ctx, feedQuery)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return docstore.DecodeAll[Post](docs)
}

func (r *docPostRepository) Subscribe(ctx context.Context) (*docstore.Subscription, error) {
	return r.store.Subscribe(ctx, feedQuery)
}

func (r *docPostRepository) Like(ctx context.Context, userID, postID string, at int64) error {
	return r.store.RunInTx(ctx, func(tx docstore.Tx) error {
		marker, err := docstore.Encode(likeRecord{Timestamp: at})
		if err != nil {
			return err
		}
		if err := tx.CreateDoc(ctx, likedCollection(userID), postID, marker); err != nil {
			if errors.Is(err, docstore.ErrAlreadyExists) {
				return ErrAlreadyLiked
			}
			return err
		}
		if err := tx.Increment(ctx, postsCollection, postID, "likes", 1); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		return nil
	})
}

func (r *docPostRepository) LikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	docs, err := r.store.ListCollection(ctx, likedCollection(userID))
	if err != nil {
		return nil, fmt.Errorf("list liked posts: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
