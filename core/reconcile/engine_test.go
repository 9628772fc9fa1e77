package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Key  string
	Name string
}

// mockAdapter is a test implementation of Adapter over in-memory items.
type mockAdapter struct {
	local   map[string]LocalItem
	loadErr error
}

func (m *mockAdapter) Name() string { return "mock" }

func (m *mockAdapter) LoadLocalIndex(ctx context.Context) (map[string]LocalItem, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.local, nil
}

func (m *mockAdapter) RemoteKey(it RemoteItem) string {
	return it.(item).Key
}

func (m *mockAdapter) CompareFields(local LocalItem, remote RemoteItem) []string {
	l, r := local.(item), remote.(item)
	if l.Name != r.Name {
		return []string{fmt.Sprintf("name: remote=%s local=%s", r.Name, l.Name)}
	}
	return nil
}

func localOf(items ...item) map[string]LocalItem {
	out := make(map[string]LocalItem, len(items))
	for _, it := range items {
		out[it.Key] = it
	}
	return out
}

func remoteOf(items ...item) []RemoteItem {
	out := make([]RemoteItem, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func TestBuildIndex_ErrorHandling(t *testing.T) {
	spec := &Spec{Adapter: &mockAdapter{loadErr: errors.New("db down")}}

	_, err := BuildIndex(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Contains(t, err.Error(), "mock")
}

func TestBuildIndex_DuplicatesAndUnkeyed(t *testing.T) {
	spec := &Spec{
		Adapter: &mockAdapter{},
		Remote:  remoteOf(item{Key: "a", Name: "first"}, item{Key: ""}, item{Key: "a", Name: "second"}, item{Key: "b"}),
	}

	idx, err := BuildIndex(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, idx.Order)
	assert.Equal(t, 1, idx.Duplicates)
	assert.Equal(t, 1, idx.Unkeyed)
	assert.Equal(t, "first", idx.Remote["a"].(item).Name)
	assert.NotNil(t, idx.Local)
}

func TestCompare_PresenceAndOrder(t *testing.T) {
	spec := &Spec{
		Adapter: &mockAdapter{local: localOf(item{Key: "z"}, item{Key: "b", Name: "x"}, item{Key: "m"})},
		Remote:  remoteOf(item{Key: "c"}, item{Key: "b", Name: "y"}),
	}

	results, _, err := Compare(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, results, 4)

	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"c", "b", "m", "z"}, keys)

	assert.True(t, results[0].RemotePresent)
	assert.False(t, results[0].LocalPresent)
	assert.True(t, results[1].LocalPresent)
	assert.Equal(t, []string{"name: remote=y local=x"}, results[1].Mismatch)
	assert.False(t, results[2].RemotePresent)
	assert.Empty(t, results[2].Mismatch)
}
