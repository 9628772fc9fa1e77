package reconcile

import "context"

// Adapter defines the model-specific part of a merge: how to load what is stored,
// how to key both sides, and how to compare a stored entity with a remote one.
type Adapter interface {
	// Name returns the unique name of this adapter (e.g., "runners").
	Name() string

	// LoadLocalIndex loads the stored entities in scope indexed by merge key.
	// Implementations should use one batch query.
	LoadLocalIndex(ctx context.Context) (map[string]LocalItem, error)

	// RemoteKey returns the merge key of a remote entity. An empty key is never planned.
	RemoteKey(item RemoteItem) string

	// CompareFields lists the differences the remote entity would write over the stored one.
	// Both items are non-nil.
	CompareFields(local LocalItem, remote RemoteItem) []string
}

// Mutator executes planned actions one at a time.
type Mutator interface {
	// Insert stores a remote entity. It reports false when the store already had the key.
	Insert(ctx context.Context, key string, remote RemoteItem) (bool, error)

	// Update overwrites the stored entity from a remote one.
	Update(ctx context.Context, key string, remote RemoteItem) error
}

// InsertBatcher is implemented by mutators able to insert many actions in one write.
// It returns how many rows were actually inserted.
type InsertBatcher interface {
	InsertBatch(ctx context.Context, actions []Action) (int, error)
}

// UpdateBatcher is implemented by mutators able to update many actions in one write.
type UpdateBatcher interface {
	UpdateBatch(ctx context.Context, actions []Action) error
}

// Spec bundles an adapter with the remote entities of one merge.
type Spec struct {
	Adapter Adapter
	Remote  []RemoteItem
}
