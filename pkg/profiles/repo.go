package profiles

import (
	"context"
	"errors"
	"fmt"

	"launchpad/pkg/docstore"
)

// Collection holds one profile document per account id.
const Collection = "users"

// AccountsCollection holds the login accounts that share ids with profiles.
// Both records carry accType, so a change is written to both.
const AccountsCollection = "accounts"

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrInvalidAccType    = errors.New("invalid account type")
	ErrEmptySeries       = errors.New("no numeric values found in csv")
	ErrInvalidSeriesName = errors.New("invalid series name")
)

type ProfileRepository interface {
	Get(ctx context.Context, id string) (Profile, error)
	ListByAccType(ctx context.Context, accType AccType) ([]Profile, error)
	SearchByEmailPrefix(ctx context.Context, prefix string) ([]Profile, error)
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, id string, patch map[string]any) error
}

type docProfileRepository struct {
	store docstore.Store
}

func NewProfileRepository(store docstore.Store) ProfileRepository {
	return &docProfileRepository{store: store}
}

func (r *docProfileRepository) Get(ctx context.Context, id string) (Profile, error) {
	doc, err := r.store.GetDoc(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	var p Profile
	if err := doc.Decode(&p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (r *docProfileRepository) ListByAccType(ctx context.Context, accType AccType) ([]Profile, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: Collection,
		Where:      []docstore.Filter{{Field: "accType", Value: string(accType)}},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s profiles: %w", accType, err)
	}
	return docstore.DecodeAll[Profile](docs)
}

func (r *docProfileRepository) SearchByEmailPrefix(ctx context.Context, prefix string) ([]Profile, error) {
	docs, err := r.store.QueryRange(ctx, Collection, "email", prefix, prefix+"\uf8ff")
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return docstore.DecodeAll[Profile](docs)
}

func (r *docProfileRepository) Create(ctx context.Context, p Profile) error {
	p.Image = ""
	body, err := docstore.Encode(p)
	if err != nil {
		return err
	}
	return r.store.SetDoc(ctx, Collection, p.ID, body)
}

func (r *docProfileRepository) Update(ctx context.Context, id string, patch map[string]any) error {
	accType, changesAccType := patch["accType"]
	return r.store.RunInTx(ctx, func(tx docstore.Tx) error {
		if err := tx.UpdateDoc(ctx, Collection, id, patch); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrProfileNotFound
			}
			return err
		}
		if !changesAccType {
			return nil
		}
		// Imported profiles may have no account.
		err := tx.UpdateDoc(ctx, AccountsCollection, id, map[string]any{"accType": accType})
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("update account type: %w", err)
		}
		return nil
	})
}
