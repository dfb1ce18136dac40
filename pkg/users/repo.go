package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"launchpad/pkg/docstore"
	"launchpad/pkg/profiles"
)

const (
	accountsCollection = profiles.AccountsCollection
	emailsCollection   = "accountEmails"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("user exists with that email")
)

type AccountRepository interface {
	// Create reserves the email, writes the account and its starting profile
	// atomically.
	Create(ctx context.Context, a Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	SetVerifiedAt(ctx context.Context, id string, ts int64) error
}

type docAccountRepository struct {
	store docstore.Store
}

func NewAccountRepository(store docstore.Store) AccountRepository {
	return &docAccountRepository{store: store}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type emailRecord struct {
	AccountID string `json:"accountId"`
}

func (r *docAccountRepository) Create(ctx context.Context, a Account) error {
	account, err := docstore.Encode(a)
	if err != nil {
		return err
	}
	reservation, err := docstore.Encode(emailRecord{AccountID: a.ID})
	if err != nil {
		return err
	}
	profile, err := docstore.Encode(profiles.Profile{ID: a.ID, Email: a.Email, AccType: a.AccType})
	if err != nil {
		return err
	}

	return r.store.RunInTx(ctx, func(tx docstore.Tx) error {
		if err := tx.CreateDoc(ctx, emailsCollection, emailKey(a.Email), reservation); err != nil {
			if errors.Is(err, docstore.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		if err := tx.CreateDoc(ctx, accountsCollection, a.ID, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		return tx.SetDoc(ctx, profiles.Collection, a.ID, profile)
	})
}

func (r *docAccountRepository) GetByID(ctx context.Context, id string) (Account, error) {
	doc, err := r.store.GetDoc(ctx, accountsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	var a Account
	if err := doc.Decode(&a); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *docAccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	doc, err := r.store.GetDoc(ctx, emailsCollection, emailKey(email))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	var rec emailRecord
	if err := doc.Decode(&rec); err != nil {
		return Account{}, err
	}
	return r.GetByID(ctx, rec.AccountID)
}

func (r *docAccountRepository) SetVerifiedAt(ctx context.Context, id string, ts int64) error {
	if err := r.store.UpdateDoc(ctx, accountsCollection, id, map[string]any{"verifiedAt": ts}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}
