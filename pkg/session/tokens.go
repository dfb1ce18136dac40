package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"launchpad/pkg/docstore"
)

const sessionsCollection = "sessions"

type Resolver interface {
	Resolve(ctx context.Context, token string) (User, error)
}

// TokenStore keeps opaque bearer tokens in the sessions collection.
type TokenStore struct {
	store docstore.Store
	now   func() time.Time
}

func NewTokenStore(store docstore.Store) *TokenStore {
	return &TokenStore{store: store, now: time.Now}
}

type tokenRecord struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
}

func (t *TokenStore) Issue(ctx context.Context, user User) (string, error) {
	token := uuid.NewString()
	body, err := docstore.Encode(tokenRecord{UserID: user.ID, Email: user.Email, CreatedAt: t.now().UnixMilli()})
	if err != nil {
		return "", err
	}
	if err := t.store.CreateDoc(ctx, sessionsCollection, token, body); err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return token, nil
}

func (t *TokenStore) Resolve(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	doc, err := t.store.GetDoc(ctx, sessionsCollection, token)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, fmt.Errorf("resolve session: %w", err)
	}
	var rec tokenRecord
	if err := doc.Decode(&rec); err != nil {
		return User{}, err
	}
	return User{ID: rec.UserID, Email: rec.Email}, nil
}

// Revoke deletes the token. Revoking an unknown token is not an error.
func (t *TokenStore) Revoke(ctx context.Context, token string) error {
	err := t.store.DeleteDoc(ctx, sessionsCollection, token)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
