package credentials

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV is an in-memory KV with call counting and error injection.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	gets    map[string]int
	failAll error
}

func newFakeKV(seed map[string]string) *fakeKV {
	data := make(map[string]string)
	for k, v := range seed {
		data[k] = v
	}
	return &fakeKV{data: data, gets: make(map[string]int)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets[key]++
	if f.failAll != nil {
		return nil, f.failAll
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.data[key] = string(value)
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Close() error { return nil }

func (f *fakeKV) getCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[key]
}

func (f *fakeKV) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func TestStoreLazyReadThroughAndMemoization(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV(map[string]string{KeyAuthToken: "tok-1"})
	s := NewStore(kv, nil)

	assert.Equal(t, "tok-1", s.Token(ctx))
	assert.Equal(t, 1, kv.getCount(KeyAuthToken))

	// Durable value changes are not observed once memoized.
	require.NoError(t, kv.Set(ctx, KeyAuthToken, []byte("tok-2")))
	assert.Equal(t, "tok-1", s.Token(ctx))
	assert.Equal(t, 1, kv.getCount(KeyAuthToken))
}

func TestStoreTenantLegacyFallback(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV(map[string]string{KeyLegacyTenantID: "t-legacy"})
	s := NewStore(kv, nil)

	assert.Equal(t, "t-legacy", s.TenantID(ctx))

	// Primary key wins when present.
	kv2 := newFakeKV(map[string]string{
		KeyTenantID:       "t-primary",
		KeyLegacyTenantID: "t-legacy",
	})
	s2 := NewStore(kv2, nil)
	assert.Equal(t, "t-primary", s2.TenantID(ctx))
	assert.Equal(t, 0, kv2.getCount(KeyLegacyTenantID))
}

func TestStoreSetWritesThrough(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV(nil)
	s := NewStore(kv, nil)

	s.SetToken(ctx, "tok")
	s.SetRefreshToken(ctx, "rt")
	s.SetTenantID(ctx, "t1")

	v, ok := kv.value(KeyAuthToken)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
	v, ok = kv.value(KeyRefreshToken)
	assert.True(t, ok)
	assert.Equal(t, "rt", v)
	v, ok = kv.value(KeyTenantID)
	assert.True(t, ok)
	assert.Equal(t, "t1", v)

	// Empty value removes the durable key.
	s.SetToken(ctx, "")
	_, ok = kv.value(KeyAuthToken)
	assert.False(t, ok)
	assert.Equal(t, "", s.Token(ctx))
}

func TestStoreClearRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV(map[string]string{
		KeyAuthToken:      "tok",
		KeyRefreshToken:   "rt",
		KeyTenantID:       "t1",
		KeyLegacyTenantID: "t0",
	})
	s := NewStore(kv, nil)
	require.Equal(t, "tok", s.Token(ctx))

	s.Clear(ctx)

	assert.Equal(t, "", s.Token(ctx))
	assert.Equal(t, "", s.RefreshToken(ctx))
	assert.Equal(t, "", s.TenantID(ctx))
	for _, key := range []string{KeyAuthToken, KeyRefreshToken, KeyTenantID, KeyLegacyTenantID} {
		_, ok := kv.value(key)
		assert.False(t, ok, key)
	}
}

func TestStoreMemoryOnlyMode(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil)

	assert.Equal(t, "", s.Token(ctx))
	s.SetToken(ctx, "tok")
	assert.Equal(t, "tok", s.Token(ctx))
	s.Clear(ctx)
	assert.Equal(t, "", s.Token(ctx))
}

func TestStoreOperationsAreTotalOnKVFailure(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV(nil)
	kv.failAll = errors.New("backend down")
	s := NewStore(kv, nil)

	// None of these may panic or surface the failure.
	assert.Equal(t, "", s.Token(ctx))
	assert.Equal(t, "", s.TenantID(ctx))
	s.SetToken(ctx, "tok")
	assert.Equal(t, "tok", s.Token(ctx), "memory state still updated")
	s.Clear(ctx)
	assert.Equal(t, "", s.Token(ctx))
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV(map[string]string{KeyAuthToken: "tok"})
	s := NewStore(kv, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Token(ctx)
			s.SetTenantID(ctx, "t1")
			_ = s.TenantID(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, "t1", s.TenantID(ctx))
}
