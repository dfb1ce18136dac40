package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"launchpad/pkg/docstore"
	"launchpad/pkg/profiles"
)

func TestAccountRepository_CreateWritesProfile(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewAccountRepository(store)

	require.NoError(t, repo.Create(ctx, Account{ID: "u1", Email: "Ana@X.com", AccType: profiles.AccStartup, PasswordHash: "h"}))

	a, err := repo.GetByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	require.Equal(t, "u1", a.ID)
	require.Equal(t, "h", a.PasswordHash)

	p, err := profiles.NewProfileRepository(store).Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ana@X.com", p.Email)
	require.Equal(t, profiles.AccStartup, p.AccType)
}

func TestAccountRepository_EmailTakenRollsBack(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewAccountRepository(store)

	require.NoError(t, repo.Create(ctx, Account{ID: "u1", Email: "ana@x.com", AccType: profiles.AccStartup}))
	err := repo.Create(ctx, Account{ID: "u2", Email: " ANA@x.com", AccType: profiles.AccMentor})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = repo.GetByID(ctx, "u2")
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = store.GetDoc(ctx, profiles.Collection, "u2")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestAccountRepository_SetVerifiedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(docstore.NewMemoryStore())
	require.NoError(t, repo.Create(ctx, Account{ID: "u1", Email: "a@x.com", AccType: profiles.AccInvestor}))

	require.NoError(t, repo.SetVerifiedAt(ctx, "u1", 1700000000000))
	a, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, a.VerifiedAt)
	require.EqualValues(t, 1700000000000, *a.VerifiedAt)

	require.ErrorIs(t, repo.SetVerifiedAt(ctx, "ghost", 1), ErrAccountNotFound)
}

func TestAccountRepository_AccTypeFollowsProfileEdit(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewAccountRepository(store)
	require.NoError(t, repo.Create(ctx, Account{ID: "u1", Email: "a@x.com", AccType: profiles.AccStartup}))

	require.NoError(t, profiles.NewProfileRepository(store).Update(ctx, "u1", map[string]any{"accType": "mentor"}))

	a, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, profiles.AccMentor, a.AccType)
}
