package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sonoscribe/sonoscribe/pkg/kv"
)

const kvPrefix = "meeting:"

// KVStore is a Store over a key-value backend, for headless deployments
// where per-record files are impractical. Values are msgpack-encoded.
type KVStore struct {
	store kv.Store
}

// NewKVStore wraps an open kv.Store. The caller retains ownership and
// closes it.
func NewKVStore(store kv.Store) *KVStore {
	return &KVStore{store: store}
}

func (s *KVStore) Save(ctx context.Context, m *Meeting) error {
	if m.ID == "" {
		return errors.New("meeting: save with empty id")
	}
	data, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("meeting: encode %s: %w", m.ID, err)
	}
	return s.store.Set(ctx, kvPrefix+m.ID, data)
}

func (s *KVStore) Load(ctx context.Context, id string) (*Meeting, error) {
	data, err := s.store.Get(ctx, kvPrefix+id)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m Meeting
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("meeting: decode %s: %w", id, err)
	}
	return &m, nil
}

func (s *KVStore) LoadAll(ctx context.Context) ([]*Meeting, error) {
	var out []*Meeting
	for e, err := range s.store.List(ctx, kvPrefix) {
		if err != nil {
			return nil, err
		}
		var m Meeting
		// Same skip policy as the file store: one bad record must not
		// take down the whole load.
		if err := msgpack.Unmarshal(e.Value, &m); err != nil || m.ID == "" {
			continue
		}
		out = append(out, &m)
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *KVStore) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, kvPrefix+id)
}
