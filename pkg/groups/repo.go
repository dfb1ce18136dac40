package groups

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"launchpad/pkg/docstore"
)

const groupsCollection = "groups"

var (
	ErrInvalidGroupName   = errors.New("invalid group name")
	ErrDuplicateGroupName = errors.New("group with this name already exists")
	ErrGroupNotFound      = errors.New("group not found")
	ErrAlreadyMember      = errors.New("already a member of this group")
	ErrNotMember          = errors.New("not a member of this group")
	ErrEmptyMessage       = errors.New("message text cannot be empty")
	ErrMessageTooLong     = errors.New("message too long")
)

func membersCollection(group string) string {
	return groupsCollection + "/" + group + "/members"
}

func messagesCollection(group string) string {
	return groupsCollection + "/" + group + "/messages"
}

type GroupRepository interface {
	Create(ctx context.Context, g Group) error
	Get(ctx context.Context, name string) (Group, error)
	List(ctx context.Context) ([]Group, error)
	AddMember(ctx context.Context, group string, m Member) error
	IsMember(ctx context.Context, group, userID string) (bool, error)
	ListMembers(ctx context.Context, group string) ([]Member, error)
	AddMessage(ctx context.Context, group string, msg Message) error
	// RecentMessages returns up to limit of the newest messages, oldest
	// first.
	RecentMessages(ctx context.Context, group string, limit int) ([]Message, error)
}

type docGroupRepository struct {
	store docstore.Store
}

func NewGroupRepository(store docstore.Store) GroupRepository {
	return &docGroupRepository{store: store}
}

func (r *docGroupRepository) Create(ctx context.Context, g Group) error {
	body, err := docstore.Encode(g)
	if err != nil {
		return err
	}
	if err := r.store.CreateDoc(ctx, groupsCollection, g.Name, body); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrDuplicateGroupName
		}
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (r *docGroupRepository) Get(ctx context.Context, name string) (Group, error) {
	doc, err := r.store.GetDoc(ctx, groupsCollection, name)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, err
	}
	var g Group
	if err := doc.Decode(&g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (r *docGroupRepository) List(ctx context.Context) ([]Group, error) {
	docs, err := r.store.ListCollection(ctx, groupsCollection)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return docstore.DecodeAll[Group](docs)
}

func (r *docGroupRepository) AddMember(ctx context.Context, group string, m Member) error {
	body, err := docstore.Encode(m)
	if err != nil {
		return err
	}
	if err := r.store.CreateDoc(ctx, membersCollection(group), m.UserID, body); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *docGroupRepository) IsMember(ctx context.Context, group, userID string) (bool, error) {
	_, err := r.store.GetDoc(ctx, membersCollection(group), userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *docGroupRepository) ListMembers(ctx context.Context, group string) ([]Member, error) {
	docs, err := r.store.Query(ctx, docstore.Query{Collection: membersCollection(group), OrderBy: "joinedAt"})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return docstore.DecodeAll[Member](docs)
}

func (r *docGroupRepository) AddMessage(ctx context.Context, group string, msg Message) error {
	body, err := docstore.Encode(msg)
	if err != nil {
		return err
	}
	if err := r.store.CreateDoc(ctx, messagesCollection(group), msg.ID, body); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

func (r *docGroupRepository) RecentMessages(ctx context.Context, group string, limit int) ([]Message, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: messagesCollection(group),
		OrderBy:    "timestamp",
		Desc:       true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs, err := docstore.DecodeAll[Message](docs)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}
