// Package reconcile merges entities reported by a remote source into a local store.
//
// A merge compares two keyed sides:
//   - the local index, loaded by the Adapter in one batch query
//   - the remote items, keyed by the Adapter
//
// Both sides are indexed concurrently. Every remote key then becomes exactly one
// planned Action:
//
//   - insert when nothing is stored under the key
//   - update when UpdateExisting is set and CompareFields reports differences
//   - skip otherwise, with a reason code (exists, unchanged, duplicate_row)
//
// Local-only keys are reported in the results but never acted on. A merge adds
// and corrects; it never deletes.
//
// # Usage Example
//
//	spec := &reconcile.Spec{Adapter: adapter, Remote: rows}
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, reconcile.Options{UpdateExisting: true})
//	res, err := reconcile.ApplyPlan(ctx, spec, plan, opts)
//
// ApplyPlan prefers the InsertBatcher and UpdateBatcher interfaces and falls back
// to the per-item Mutator. Inserts the store rejects as duplicates are counted as
// conflicts, not errors.
//
// Flight coalesces concurrent runs of the same key, so two manual imports of one
// campaign share a single run.
package reconcile
