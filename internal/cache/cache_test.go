package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/hexmap-backend-go/internal/metrics"
	"github.com/jengzang/hexmap-backend-go/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, size int, ttl time.Duration) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c, err := New(Config{MaxSize: size, TTL: ttl}, WithClock(clock.Now))
	require.NoError(t, err)
	return c, clock
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{MaxSize: 0, TTL: time.Minute})
	assert.Error(t, err)
	_, err = New(Config{MaxSize: 1, TTL: 0})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	k := Key{Column: models.ColumnSpeed, Resolution: 9}
	assert.Equal(t, "speed:9", k.Label())
	assert.Equal(t, "none:10", Key{Resolution: 10}.Label())
	assert.Equal(t, k.Hash(), Key{Column: models.ColumnSpeed, Resolution: 9}.Hash())
	assert.NotEqual(t, k.Hash(), Key{Column: models.ColumnSpeed, Resolution: 8}.Hash())
}

func TestCache_GetAdd(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Column: models.ColumnAltitude, Resolution: 8}

	_, ok := c.Get(k)
	assert.False(t, ok)

	stored := c.Add(k, []byte(`[1]`))
	assert.Equal(t, []byte(`[1]`), stored)

	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte(`[1]`), got)
}

func TestCache_AddKeepsExisting(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Resolution: 10}

	c.Add(k, []byte("first"))
	stored := c.Add(k, []byte("second"))
	assert.Equal(t, []byte("first"), stored)

	got, _ := c.Get(k)
	assert.Equal(t, []byte("first"), got)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clock := newTestCache(t, 4, time.Minute)
	k := Key{Column: models.ColumnSpeed, Resolution: 9}
	c.Add(k, []byte("x"))

	clock.Advance(59 * time.Second)
	_, ok := c.Get(k)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(k)
	assert.False(t, ok, "entry must expire exactly at ttl")
	assert.Zero(t, c.Len())

	// An expired entry is replaced by Add
	c.Add(k, []byte("y"))
	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("y"), got)
}

func TestCache_CapacityEvictsOldest(t *testing.T) {
	c, _ := newTestCache(t, 3, time.Hour)

	for res := 0; res < 5; res++ {
		c.Add(Key{Resolution: res}, []byte{byte(res)})
		assert.LessOrEqual(t, c.Len(), 3)
	}

	info := c.Info()
	assert.Equal(t, 3, info.CacheSize)
	assert.Equal(t, []string{"none:2", "none:3", "none:4"}, info.CachedKeys)

	_, ok := c.Get(Key{Resolution: 0})
	assert.False(t, ok)
}

func TestCache_RecentlyUsedSurvives(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Hour)
	a, b, d := Key{Resolution: 1}, Key{Resolution: 2}, Key{Resolution: 3}

	c.Add(a, []byte("a"))
	c.Add(b, []byte("b"))
	_, ok := c.Get(a)
	require.True(t, ok)

	c.Add(d, []byte("d"))

	_, ok = c.Get(a)
	assert.True(t, ok)
	_, ok = c.Get(b)
	assert.False(t, ok)
}

func TestCache_InfoDropsExpired(t *testing.T) {
	c, clock := newTestCache(t, 4, time.Minute)
	c.Add(Key{Resolution: 1}, []byte("a"))
	clock.Advance(30 * time.Second)
	c.Add(Key{Resolution: 2}, []byte("b"))
	clock.Advance(30 * time.Second)

	info := c.Info()
	assert.Equal(t, 1, info.CacheSize)
	assert.Equal(t, 4, info.MaxSize)
	assert.Equal(t, 60.0, info.TTLSeconds)
	assert.Equal(t, []string{"none:2"}, info.CachedKeys)
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	c.Add(Key{Resolution: 1}, []byte("a"))
	c.Add(Key{Resolution: 2}, []byte("b"))

	c.Clear()

	info := c.Info()
	assert.Zero(t, info.CacheSize)
	assert.NotNil(t, info.CachedKeys)
	assert.Empty(t, info.CachedKeys)
}

func TestCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Column: models.ColumnAzimuth, Resolution: 7}

	var calls int
	load := func() ([]byte, error) {
		calls++
		return []byte(`[{"weight":1}]`), nil
	}

	first, hit, err := c.GetOrLoad(k, load)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrLoad(k, load)
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrLoadErrorNotCached(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Resolution: 5}
	boom := errors.New("boom")

	_, _, err := c.GetOrLoad(k, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	payload, hit, err := c.GetOrLoad(k, func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("ok"), payload)
}

func TestCache_GetOrLoadConcurrent(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Column: models.ColumnSpeed, Resolution: 10}

	var calls atomic.Int32
	release := make(chan struct{})
	load := func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("shared"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload, _, err := c.GetOrLoad(k, load)
			assert.NoError(t, err)
			results[i] = payload
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, []byte("shared"), r)
	}
}

func TestCache_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c, err := New(Config{MaxSize: 1, TTL: time.Minute}, WithMetrics(m))
	require.NoError(t, err)

	c.Get(Key{Resolution: 1})
	c.Add(Key{Resolution: 1}, []byte("a"))
	c.Get(Key{Resolution: 1})
	c.Add(Key{Resolution: 2}, []byte("b"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEvictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEntries))
}

func TestCache_GetOrLoadMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c, err := New(Config{MaxSize: 4, TTL: time.Minute}, WithMetrics(m))
	require.NoError(t, err)
	k := Key{Column: models.ColumnSpeed, Resolution: 9}
	load := func() ([]byte, error) { return []byte("body"), nil }

	_, hit, err := c.GetOrLoad(k, load)
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = c.GetOrLoad(k, load)
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
}

func TestCache_GetOrLoadConcurrentMetricsMatchResults(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c, err := New(Config{MaxSize: 4, TTL: time.Minute}, WithMetrics(m))
	require.NoError(t, err)
	k := Key{Column: models.ColumnAltitude, Resolution: 6}

	load := func() ([]byte, error) {
		time.Sleep(time.Millisecond)
		return []byte("body"), nil
	}

	const callers = 64
	var hits atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i%8) * 500 * time.Microsecond)
			_, hit, err := c.GetOrLoad(k, load)
			assert.NoError(t, err)
			if hit {
				hits.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, float64(hits.Load()), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(callers), testutil.ToFloat64(m.CacheHits)+testutil.ToFloat64(m.CacheMisses))
}

func TestCache_ClearDuringLoadDropsResult(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Column: models.ColumnSpeed, Resolution: 8}

	payload, hit, err := c.GetOrLoad(k, func() ([]byte, error) {
		c.Clear()
		return []byte("stale"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("stale"), payload, "the caller still gets its result")
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Info().CachedKeys)

	var calls int
	payload, hit, err = c.GetOrLoad(k, func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("fresh"), payload)
	assert.Equal(t, 1, calls)
}

func TestCache_LoadAfterClearDoesNotJoinStaleLoad(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	k := Key{Resolution: 10}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan []byte)
	go func() {
		payload, _, err := c.GetOrLoad(k, func() ([]byte, error) {
			close(started)
			<-release
			return []byte("stale"), nil
		})
		assert.NoError(t, err)
		done <- payload
	}()

	<-started
	c.Clear()

	payload, hit, err := c.GetOrLoad(k, func() ([]byte, error) { return []byte("fresh"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("fresh"), payload)

	close(release)
	assert.Equal(t, []byte("stale"), <-done)

	cached, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("fresh"), cached)
	assert.Equal(t, 1, c.Len())
}
