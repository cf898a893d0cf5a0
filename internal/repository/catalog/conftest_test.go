package catalog

import (
	"context"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// mockStore is an in-memory hash store.
type mockStore struct {
	hashes  map[string]map[string]string
	scanErr error
	getErr  error
	setErr  error
	// vanish lists keys returned by Scan but already deleted.
	vanish map[string]bool
}

func newMockStore() *mockStore {
	return &mockStore{hashes: map[string]map[string]string{}}
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		h := m.hashes[it.Key]
		if h == nil {
			h = map[string]string{}
			m.hashes[it.Key] = h
		}
		for k, v := range it.Fields {
			h[k] = v
		}
	}
	return nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		if m.vanish[k] {
			out[i] = map[string]string{}
			continue
		}
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for k := range m.vanish {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}
