package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// collectionName keeps runs against a shared database from seeing each
// other's rows.
func collectionName(base string) string {
	return base + "_" + uuid.NewString()[:8]
}

func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("set get delete", func(t *testing.T) {
		coll := collectionName("users")
		require.NoError(t, store.SetDoc(ctx, coll, "u1", map[string]any{"email": "a@x.com", "revenue": 10}))

		doc, err := store.GetDoc(ctx, coll, "u1")
		require.NoError(t, err)
		require.Equal(t, "u1", doc.ID)
		require.Equal(t, "a@x.com", doc.Data["email"])
		require.Equal(t, float64(10), doc.Data["revenue"])

		require.NoError(t, store.DeleteDoc(ctx, coll, "u1"))
		_, err = store.GetDoc(ctx, coll, "u1")
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, store.DeleteDoc(ctx, coll, "u1"), ErrNotFound)
	})

	t.Run("create if absent", func(t *testing.T) {
		coll := collectionName("groups")
		require.NoError(t, store.CreateDoc(ctx, coll, "founders", map[string]any{"owner": "u1"}))
		err := store.CreateDoc(ctx, coll, "founders", map[string]any{"owner": "u2"})
		require.ErrorIs(t, err, ErrAlreadyExists)

		doc, err := store.GetDoc(ctx, coll, "founders")
		require.NoError(t, err)
		require.Equal(t, "u1", doc.Data["owner"])
	})

	t.Run("update nested field", func(t *testing.T) {
		coll := collectionName("users")
		require.NoError(t, store.SetDoc(ctx, coll, "u1", map[string]any{
			"email":          "a@x.com",
			"startupDetails": map[string]any{"sector": "fintech"},
		}))
		require.NoError(t, store.UpdateDoc(ctx, coll, "u1", map[string]any{
			"startupDetails.revenueSeries": []float64{1, 2},
		}))

		doc, err := store.GetDoc(ctx, coll, "u1")
		require.NoError(t, err)
		details := doc.Data["startupDetails"].(map[string]any)
		require.Equal(t, "fintech", details["sector"])
		require.Equal(t, []any{float64(1), float64(2)}, details["revenueSeries"])
		require.Equal(t, "a@x.com", doc.Data["email"])

		err = store.UpdateDoc(ctx, coll, "missing", map[string]any{"x": 1})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("increment", func(t *testing.T) {
		coll := collectionName("posts")
		require.NoError(t, store.SetDoc(ctx, coll, "p1", map[string]any{"text": "hi"}))
		require.NoError(t, store.Increment(ctx, coll, "p1", "likes", 1))
		require.NoError(t, store.Increment(ctx, coll, "p1", "likes", 2))

		doc, err := store.GetDoc(ctx, coll, "p1")
		require.NoError(t, err)
		require.Equal(t, float64(3), doc.Data["likes"])

		require.ErrorIs(t, store.Increment(ctx, coll, "nope", "likes", 1), ErrNotFound)
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		coll := collectionName("posts")
		require.NoError(t, store.SetDoc(ctx, coll, "p1", map[string]any{"likes": 0}))

		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(tx Tx) error {
			if err := tx.Increment(ctx, coll, "p1", "likes", 1); err != nil {
				return err
			}
			if err := tx.SetDoc(ctx, coll, "p2", map[string]any{"likes": 5}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		doc, err := store.GetDoc(ctx, coll, "p1")
		require.NoError(t, err)
		require.Equal(t, float64(0), doc.Data["likes"])
		_, err = store.GetDoc(ctx, coll, "p2")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transaction commits", func(t *testing.T) {
		coll := collectionName("likes")
		err := store.RunInTx(ctx, func(tx Tx) error {
			if err := tx.CreateDoc(ctx, coll, "a", map[string]any{"n": 1}); err != nil {
				return err
			}
			return tx.CreateDoc(ctx, coll, "b", map[string]any{"n": 2})
		})
		require.NoError(t, err)

		docs, err := store.ListCollection(ctx, coll)
		require.NoError(t, err)
		require.Len(t, docs, 2)
	})

	t.Run("locked read modify write does not lose updates", func(t *testing.T) {
		coll := collectionName("counters")
		const workers = 8

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.RunInTx(ctx, func(tx Tx) error {
					if err := tx.CreateDoc(ctx, coll, "c", map[string]any{"seen": []any{}}); err != nil && !errors.Is(err, ErrAlreadyExists) {
						return err
					}
					doc, err := tx.GetDocForUpdate(ctx, coll, "c")
					if err != nil {
						return err
					}
					seen, _ := doc.Data["seen"].([]any)
					return tx.SetDoc(ctx, coll, "c", map[string]any{"seen": append(seen, len(seen))})
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		doc, err := store.GetDoc(ctx, coll, "c")
		require.NoError(t, err)
		require.Len(t, doc.Data["seen"], workers)
	})

	t.Run("query filters orders limits", func(t *testing.T) {
		coll := collectionName("users")
		seed := map[string]map[string]any{
			"a": {"accType": "startup", "revenue": 300},
			"b": {"accType": "startup", "revenue": 100},
			"c": {"accType": "investor", "revenue": 900},
			"d": {"accType": "startup", "revenue": 200},
		}
		for id, body := range seed {
			require.NoError(t, store.SetDoc(ctx, coll, id, body))
		}

		docs, err := store.Query(ctx, Query{
			Collection: coll,
			Where:      []Filter{{Field: "accType", Value: "startup"}},
			OrderBy:    "revenue",
			Desc:       true,
			Limit:      2,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "d"}, ids(docs))

		docs, err = store.Query(ctx, Query{Collection: coll, OrderBy: "revenue"})
		require.NoError(t, err)
		require.Equal(t, []string{"b", "d", "a", "c"}, ids(docs))
	})

	t.Run("query range is a prefix search", func(t *testing.T) {
		coll := collectionName("users")
		for id, email := range map[string]string{"1": "ana@x.com", "2": "andy@x.com", "3": "bob@x.com", "4": "an@x.com"} {
			require.NoError(t, store.SetDoc(ctx, coll, id, map[string]any{"email": email}))
		}

		docs, err := store.QueryRange(ctx, coll, "email", "ana", "ana\uf8ff")
		require.NoError(t, err)
		require.Equal(t, []string{"1"}, ids(docs))

		docs, err = store.QueryRange(ctx, coll, "email", "an", "an\uf8ff")
		require.NoError(t, err)
		require.Equal(t, []string{"4", "1", "2"}, ids(docs))
	})

	t.Run("subscription sees initial snapshot and changes", func(t *testing.T) {
		coll := collectionName("posts")
		require.NoError(t, store.SetDoc(ctx, coll, "p1", map[string]any{"timestamp": 1}))

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		sub, err := store.Subscribe(subCtx, Query{Collection: coll, OrderBy: "timestamp", Desc: true})
		require.NoError(t, err)
		defer sub.Close()

		require.Equal(t, []string{"p1"}, ids(next(t, sub)))

		require.NoError(t, store.SetDoc(ctx, coll, "p2", map[string]any{"timestamp": 2}))
		require.Eventually(t, func() bool {
			select {
			case docs := <-sub.Updates():
				return len(docs) == 2 && docs[0].ID == "p2"
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond)
	})
}

func next(t *testing.T, sub *Subscription) []Document {
	t.Helper()
	select {
	case docs, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return docs
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
