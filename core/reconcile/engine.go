package reconcile

import (
	"context"
	"sort"
)

// Compare builds the index for spec and returns one result per remote key, in
// remote order, followed by local-only keys sorted by key.
func Compare(ctx context.Context, spec *Spec) ([]Result, *Index, error) {
	idx, err := BuildIndex(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	return compareIndex(idx, spec.Adapter), idx, nil
}

func compareIndex(idx *Index, adapter Adapter) []Result {
	results := make([]Result, 0, len(idx.Order)+len(idx.Local))
	for _, key := range idx.Order {
		results = append(results, buildResult(key, idx, adapter))
	}

	var localOnly []string
	for key := range idx.Local {
		if _, ok := idx.Remote[key]; !ok {
			localOnly = append(localOnly, key)
		}
	}
	sort.Strings(localOnly)
	for _, key := range localOnly {
		results = append(results, buildResult(key, idx, adapter))
	}
	return results
}

// buildResult creates a Result for a single key.
func buildResult(key string, idx *Index, adapter Adapter) Result {
	local, localPresent := idx.Local[key]
	remote, remotePresent := idx.Remote[key]

	result := Result{
		Key:           key,
		LocalPresent:  localPresent,
		RemotePresent: remotePresent,
		Mismatch:      []string{},
	}
	if localPresent && remotePresent {
		if mismatch := adapter.CompareFields(local, remote); len(mismatch) > 0 {
			result.Mismatch = mismatch
		}
	}
	return result
}
