package query_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	wasActive := !t.stopped && !t.fired
	t.stopped = true

	return wasActive
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) query.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)

	return timer
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	var due []*fakeTimer

	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

func countingLoader(calls *int32, value any) query.Loader {
	return func(ctx context.Context) (any, error) {
		atomic.AddInt32(calls, 1)

		return value, nil
	}
}

func TestKeyPrefix(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	all := query.NewKey("board-tasks")
	seven := query.NewKey("board-tasks", 7)
	eight := query.NewKey("board-tasks", 8)

	assert.True(seven.HasPrefix(all))
	assert.True(seven.HasPrefix(seven))
	assert.False(eight.HasPrefix(seven))
	assert.False(all.HasPrefix(seven))
	assert.False(query.NewKey("tasks", 7).HasPrefix(all))
	assert.Equal("board-tasks/7", seven.String())
	assert.True(seven.Equal(query.NewKey("board-tasks", "7")))
}

func TestFetchCachesFreshData(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	clock := newFakeClock()
	cache := query.NewCache(query.Options{Clock: clock, StalePolicy: query.MaxAge(time.Minute)})
	key := query.NewKey("boards")

	var calls int32

	data, err := cache.Fetch(context.Background(), key, countingLoader(&calls, "a"))
	assert.Nil(err)
	assert.Equal("a", data)

	data, err = cache.Fetch(context.Background(), key, countingLoader(&calls, "b"))
	assert.Nil(err)
	assert.Equal("a", data)
	assert.Equal(int32(1), atomic.LoadInt32(&calls))

	clock.Advance(time.Minute)

	data, err = cache.Fetch(context.Background(), key, countingLoader(&calls, "c"))
	assert.Nil(err)
	assert.Equal("c", data)
	assert.Equal(int32(2), atomic.LoadInt32(&calls))
}

func TestFetchRetriesOnce(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{})

	var calls int32

	_, err := cache.Fetch(context.Background(), query.NewKey("users"), func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)

		return nil, errors.New("boom")
	})
	assert.NotNil(err)
	assert.Equal(int32(2), atomic.LoadInt32(&calls))

	state, ok := cache.State(query.NewKey("users"))
	assert.True(ok)
	assert.Equal(query.StatusError, state.Status)
}

func TestSetDataReturnsPrevious(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{})
	key := query.NewKey("task", 1)

	prev := cache.SetData(key, func(old any) any { return "first" })
	assert.Nil(prev)

	prev = cache.SetData(key, func(old any) any {
		assert.Equal("first", old)

		return "second"
	})
	assert.Equal("first", prev)

	data, ok := cache.GetData(key)
	assert.True(ok)
	assert.Equal("second", data)
}

func TestTypedHelpers(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{})
	key := query.NewKey("numbers")

	values, err := query.FetchAs(context.Background(), cache, key, func(ctx context.Context) ([]int, error) {
		return []int{1, 2}, nil
	})
	assert.Nil(err)
	assert.Equal([]int{1, 2}, values)

	prev, ok := query.SetAs(cache, key, func(old []int, ok bool) []int {
		return append(append([]int{}, old...), 3)
	})
	assert.True(ok)
	assert.Equal([]int{1, 2}, prev)

	current, ok := query.GetAs[[]int](cache, key)
	assert.True(ok)
	assert.Equal([]int{1, 2, 3}, current)
}

func TestInvalidatePrefixRefetchesSubscribers(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{StalePolicy: query.Never{}})
	ctx := context.Background()

	var sevenCalls, eightCalls, tasksCalls int32

	seven := cache.Subscribe(query.NewKey("board-tasks", 7), countingLoader(&sevenCalls, "seven"), nil)
	eight := cache.Subscribe(query.NewKey("board-tasks", 8), countingLoader(&eightCalls, "eight"), nil)
	tasks := cache.Subscribe(query.NewKey("tasks"), countingLoader(&tasksCalls, "tasks"), nil)

	defer seven.Unsubscribe()
	defer eight.Unsubscribe()
	defer tasks.Unsubscribe()

	for _, sub := range []*query.Subscription{seven, eight, tasks} {
		_, err := sub.Fetch(ctx)
		assert.Nil(err)
	}

	assert.Nil(cache.Invalidate(ctx, query.NewKey("board-tasks", 7)))
	assert.Equal(int32(2), atomic.LoadInt32(&sevenCalls))
	assert.Equal(int32(1), atomic.LoadInt32(&eightCalls))

	assert.Nil(cache.Invalidate(ctx, query.NewKey("board-tasks")))
	assert.Equal(int32(3), atomic.LoadInt32(&sevenCalls))
	assert.Equal(int32(2), atomic.LoadInt32(&eightCalls))
	assert.Equal(int32(1), atomic.LoadInt32(&tasksCalls))
}

func TestInvalidateWithoutSubscribersRefetchesOnNextFetch(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{StalePolicy: query.Never{}})
	ctx := context.Background()
	key := query.NewKey("tasks")

	var calls int32

	_, err := cache.Fetch(ctx, key, countingLoader(&calls, "v"))
	assert.Nil(err)

	assert.Nil(cache.Invalidate(ctx, key))
	assert.Equal(int32(1), atomic.LoadInt32(&calls))

	state, _ := cache.State(key)
	assert.True(state.Invalidated)

	_, err = cache.Fetch(ctx, key, countingLoader(&calls, "v"))
	assert.Nil(err)
	assert.Equal(int32(2), atomic.LoadInt32(&calls))
}

func TestCancelDiscardsLateResolution(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{Retry: -1})
	key := query.NewKey("task", 3)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
			close(started)
			<-release

			return "stale read", nil
		})
	}()

	<-started
	cache.Cancel(key)
	cache.SetData(key, func(old any) any { return "optimistic" })
	close(release)
	<-done

	data, ok := cache.GetData(key)
	assert.True(ok)
	assert.Equal("optimistic", data)
}

func TestNewerFetchWins(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{Retry: -1, StalePolicy: query.Always{}})
	key := query.NewKey("tasks")
	ctx := context.Background()

	oldStarted := make(chan struct{})
	oldRelease := make(chan struct{})
	oldDone := make(chan struct{})

	sub := cache.Subscribe(key, func(ctx context.Context) (any, error) {
		return "new", nil
	}, nil)
	defer sub.Unsubscribe()

	go func() {
		defer close(oldDone)

		_, _ = cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
			close(oldStarted)
			<-oldRelease

			return "old", nil
		})
	}()

	<-oldStarted

	data, err := cache.Refetch(ctx, key)
	require.Nil(t, err)
	assert.Equal("new", data)

	close(oldRelease)
	<-oldDone

	current, _ := cache.GetData(key)
	assert.Equal("new", current)
}

func TestListenerNotified(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	cache := query.NewCache(query.Options{})
	key := query.NewKey("boards")

	var (
		mu       sync.Mutex
		statuses []query.Status
	)

	sub := cache.Subscribe(key, countingLoader(new(int32), "x"), func(s query.Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		statuses = append(statuses, s.Status)
	})
	defer sub.Unsubscribe()

	_, err := sub.Fetch(context.Background())
	assert.Nil(err)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal([]query.Status{query.StatusLoading, query.StatusSuccess}, statuses)
}

func TestEvictionAfterLastUnsubscribe(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	clock := newFakeClock()
	cache := query.NewCache(query.Options{Clock: clock, CacheTime: time.Minute})
	key := query.NewKey("users")

	first := cache.Subscribe(key, countingLoader(new(int32), "u"), nil)
	second := cache.Subscribe(key, nil, nil)
	assert.Equal(2, cache.Subscribers(key))

	_, err := first.Fetch(context.Background())
	assert.Nil(err)

	first.Unsubscribe()
	first.Unsubscribe()
	clock.Advance(2 * time.Minute)
	assert.Equal(1, cache.Len())

	second.Unsubscribe()
	clock.Advance(30 * time.Second)
	assert.Equal(1, cache.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(0, cache.Len())
}

func TestFetchWithoutLoader(t *testing.T) {
	t.Parallel()

	cache := query.NewCache(query.Options{})

	_, err := cache.Fetch(context.Background(), query.NewKey("nothing"), nil)
	assert.NotNil(t, err)
}
