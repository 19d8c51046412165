package risk

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) DelByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) RiskKey(canonical string) string { return "od:risk:" + canonical }
func (m *memoryStore) RiskKeyPattern() string          { return "od:risk:*" }

type stubClient struct {
	calls  atomic.Int32
	signal *fraud.Signal
	err    error
	gate   chan struct{}
}

func (s *stubClient) Check(_ context.Context, raw string) (*fraud.Signal, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	out := *s.signal
	out.Phone = raw
	out.FetchedAt = time.Now().UTC()
	return &out, nil
}

func signal(total, success, cancelled int, ratio float64) *fraud.Signal {
	return &fraud.Signal{Total: total, Success: success, Cancelled: cancelled, SuccessRatio: ratio}
}

func TestCacheRoundTripAndNormalization(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cache := NewCache(store, time.Hour, nil)

	cache.Put(ctx, "+880 1712-345678", signal(10, 9, 1, 90))
	_, stored := store.data["od:risk:01712345678"]
	require.True(t, stored, "entries are keyed by the canonical phone")

	got, ok := cache.Get(ctx, "01712345678")
	require.True(t, ok)
	assert.Equal(t, 10, got.Total)
	assert.False(t, got.FetchedAt.IsZero())

	_, ok = cache.Get(ctx, "12345")
	assert.False(t, ok, "unusable phones are misses")

	cache.Put(ctx, "garbage", signal(1, 1, 0, 100))
	assert.Len(t, store.data, 1, "unusable phones are not stored")
}

func TestCacheExpiresLazily(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cache := NewCache(store, time.Hour, nil)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Put(ctx, "01712345678", signal(3, 3, 0, 100))

	now = now.Add(59 * time.Minute)
	_, ok := cache.Get(ctx, "01712345678")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = cache.Get(ctx, "01712345678")
	assert.False(t, ok)
	assert.Empty(t, store.data, "expired entries are evicted on read")
}

func TestCacheStoreFailureIsMiss(t *testing.T) {
	store := newMemoryStore()
	store.failGet = true
	cache := NewCache(store, time.Hour, nil)
	_, ok := cache.Get(context.Background(), "01712345678")
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.data["od:counter:orders:20261015"] = "4"
	cache := NewCache(store, time.Hour, nil)
	cache.Put(ctx, "01712345678", signal(1, 1, 0, 100))
	cache.Put(ctx, "01812345678", signal(1, 1, 0, 100))

	removed, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Len(t, store.data, 1)
}

func TestServiceCheckUsesCache(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{signal: signal(20, 17, 3, 85)}
	svc, err := NewService(NewCache(newMemoryStore(), time.Hour, nil), client, DefaultGatePolicy(), nil, nil)
	require.NoError(t, err)

	first, err := svc.Check(ctx, "8801712345678")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, enums.RiskTierSafe, first.Tier)

	second, err := svc.Check(ctx, "01712345678")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestServiceCheckCollapsesConcurrentLookups(t *testing.T) {
	client := &stubClient{signal: signal(5, 2, 3, 40), gate: make(chan struct{})}
	svc, err := NewService(NewCache(newMemoryStore(), time.Hour, nil), client, DefaultGatePolicy(), nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Assessment, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Check(context.Background(), "01712345678")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	require.Eventually(t, func() bool { return client.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(client.gate)
	wg.Wait()

	assert.Less(t, client.calls.Load(), int32(len(results)))
	for _, res := range results {
		assert.Equal(t, enums.RiskTierRisk, res.Tier)
	}
}

func TestServiceCheckErrors(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{err: pkgerrors.New(pkgerrors.CodeDependency, "down").WithReason(pkgerrors.ReasonUpstreamUnavailable)}
	store := newMemoryStore()
	svc, err := NewService(NewCache(store, time.Hour, nil), client, DefaultGatePolicy(), nil, nil)
	require.NoError(t, err)

	_, err = svc.Check(ctx, "123")
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidPhone))
	assert.Zero(t, client.calls.Load(), "invalid phones never reach the provider")

	_, err = svc.Check(ctx, "01712345678")
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonUpstreamUnavailable))
	assert.Empty(t, store.data, "failures are not cached")

	_, err = NewService(nil, client, DefaultGatePolicy(), nil, nil)
	assert.Error(t, err)
}

func TestGatePolicyEvaluate(t *testing.T) {
	policy := DefaultGatePolicy()

	cases := []struct {
		name    string
		signal  *fraud.Signal
		blocked bool
		reasons []string
	}{
		{name: "no history", signal: signal(0, 0, 0, 0), blocked: false},
		{name: "healthy", signal: signal(20, 18, 2, 90), blocked: false},
		{name: "ratio at threshold", signal: signal(10, 7, 3, 70), blocked: false},
		{name: "low ratio", signal: signal(10, 6, 4, 60), blocked: true, reasons: []string{ReasonLowSuccessRatio}},
		{name: "cancels at threshold", signal: signal(100, 95, 5, 95), blocked: false},
		{name: "too many cancels", signal: signal(100, 94, 6, 94), blocked: true, reasons: []string{ReasonTooManyCancels}},
		{name: "both", signal: signal(20, 8, 12, 40), blocked: true, reasons: []string{ReasonLowSuccessRatio, ReasonTooManyCancels}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.Evaluate(*tc.signal)
			assert.Equal(t, tc.blocked, decision.Blocked)
			assert.Equal(t, tc.reasons, decision.Reasons)
			assert.Equal(t, tc.signal.Total, decision.Metrics.TotalParcels)
			assert.Equal(t, tc.signal.SuccessRatio, decision.Metrics.SuccessRatio)
		})
	}
}
