package reconcile

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Index holds both sides of a merge keyed by merge key.
type Index struct {
	// Local is the stored side.
	Local map[string]LocalItem

	// Remote is the remote side. The first item wins when a key repeats.
	Remote map[string]RemoteItem

	// Order lists remote keys in first-seen order.
	Order []string

	// Duplicates counts remote items whose key was already seen.
	Duplicates int

	// Unkeyed counts remote items with an empty key.
	Unkeyed int

	// Built is the timestamp when this index was built.
	Built time.Time
}

// BuildIndex loads the local index and keys the remote items concurrently.
func BuildIndex(ctx context.Context, spec *Spec) (*Index, error) {
	idx := &Index{Remote: make(map[string]RemoteItem, len(spec.Remote))}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		local, err := spec.Adapter.LoadLocalIndex(gctx)
		if err != nil {
			return fmt.Errorf("failed to load %s index: %w", spec.Adapter.Name(), err)
		}
		if local == nil {
			local = map[string]LocalItem{}
		}
		idx.Local = local
		return nil
	})
	g.Go(func() error {
		for _, item := range spec.Remote {
			key := spec.Adapter.RemoteKey(item)
			if key == "" {
				idx.Unkeyed++
				continue
			}
			if _, seen := idx.Remote[key]; seen {
				idx.Duplicates++
				continue
			}
			idx.Remote[key] = item
			idx.Order = append(idx.Order, key)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx.Built = time.Now()
	return idx, nil
}
