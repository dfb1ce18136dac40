package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"launchpad/pkg/docstore"
	"launchpad/pkg/profiles"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type MessageStore interface {
	SaveMessage(ctx context.Context, msg Message) error
	// MarkRead flags the given messages from peerID to readerID as read and
	// returns the ids that changed.
	MarkRead(ctx context.Context, readerID, peerID string, ids []string) ([]string, error)
	// History returns up to limit messages between the two users older than
	// before (0 means now), oldest first.
	History(ctx context.Context, userID, peerID string, limit int, before int64) ([]Message, error)
	UpdateLastActive(ctx context.Context, userID string, ts int64) error
}

// PairKey names the conversation between a and b independent of direction.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

func messagesCollection(a, b string) string {
	return "chats/" + PairKey(a, b) + "/messages"
}

type docMessageStore struct {
	store docstore.Store
}

func NewMessageStore(store docstore.Store) MessageStore {
	return &docMessageStore{store: store}
}

func (r *docMessageStore) SaveMessage(ctx context.Context, msg Message) error {
	body, err := docstore.Encode(msg)
	if err != nil {
		return err
	}
	if err := r.store.CreateDoc(ctx, messagesCollection(msg.SenderID, msg.ReceiverID), msg.ID, body); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (r *docMessageStore) MarkRead(ctx context.Context, readerID, peerID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	coll := messagesCollection(readerID, peerID)
	var marked []string
	err := r.store.RunInTx(ctx, func(tx docstore.Tx) error {
		marked = marked[:0]
		for _, id := range ids {
			doc, err := tx.GetDoc(ctx, coll, id)
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var msg Message
			if err := doc.Decode(&msg); err != nil {
				return err
			}
			// Only the receiver acknowledges.
			if msg.ReceiverID != readerID || msg.IsRead {
				continue
			}
			if err := tx.UpdateDoc(ctx, coll, id, map[string]any{"is_read": true}); err != nil {
				return err
			}
			marked = append(marked, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	return marked, nil
}

func (r *docMessageStore) History(ctx context.Context, userID, peerID string, limit int, before int64) ([]Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	q := docstore.Query{
		Collection: messagesCollection(userID, peerID),
		OrderBy:    "timestamp",
		Desc:       true,
	}
	if before <= 0 {
		q.Limit = limit
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query conversation history: %w", err)
	}
	all, err := docstore.DecodeAll[Message](docs)
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, limit)
	for _, m := range all {
		if before > 0 && m.Timestamp >= before {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	slices.Reverse(out)
	return out, nil
}

// UpdateLastActive stamps lastActiveAt on the profile. A user without a
// profile is ignored.
func (r *docMessageStore) UpdateLastActive(ctx context.Context, userID string, ts int64) error {
	err := r.store.UpdateDoc(ctx, profiles.Collection, userID, map[string]any{"lastActiveAt": ts})
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("update last active: %w", err)
	}
	return nil
}
