package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrCanceled is returned by Fetch when the load was cancelled or superseded
// before any data was cached for the key.
var ErrCanceled = errors.New("query canceled")

const (
	defaultStaleTime = 5 * time.Minute
	defaultCacheTime = 5 * time.Minute
	defaultRetry     = 1
)

// Loader produces the data for a key.
type Loader func(ctx context.Context) (any, error)

// Listener is called after every change to an entry the listener subscribed to.
type Listener func(Snapshot)

// Status is the lifecycle state of an entry.
type Status int

// These constants refer to the states of a cache entry.
const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// Snapshot is a copy of an entry's state handed to listeners.
type Snapshot struct {
	Key         Key
	Data        any
	HasData     bool
	Err         error
	Status      Status
	FetchedAt   time.Time
	Invalidated bool
}

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	// StalePolicy defaults to MaxAge(5 * time.Minute).
	StalePolicy StalePolicy
	// CacheTime is how long an entry without subscribers is kept. Defaults to 5 minutes.
	CacheTime time.Duration
	// Retry is the number of extra attempts after a failed load. Defaults to 1;
	// use a negative value to disable retries.
	Retry int
	Clock Clock
}

type entry struct {
	key         Key
	data        any
	hasData     bool
	err         error
	status      Status
	fetchedAt   time.Time
	invalidated bool
	// generation increases whenever in-flight loads must be ignored.
	generation  uint64
	cancel      context.CancelFunc
	loader      Loader
	subscribers map[int]Listener
	gcTimer     Timer
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:         e.key,
		Data:        e.data,
		HasData:     e.hasData,
		Err:         e.err,
		Status:      e.status,
		FetchedAt:   e.fetchedAt,
		Invalidated: e.invalidated,
	}
}

// Cache is a registry of query results keyed by Key. All reads and writes go
// through Fetch, SetData, Invalidate and Cancel.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	stale     StalePolicy
	cacheTime time.Duration
	retry     int
	clock     Clock
	group     singleflight.Group
	nextSubID int
}

// NewCache creates an empty cache.
func NewCache(opts Options) *Cache {
	c := &Cache{
		entries:   map[string]*entry{},
		stale:     opts.StalePolicy,
		cacheTime: opts.CacheTime,
		retry:     opts.Retry,
		clock:     opts.Clock,
	}

	if c.stale == nil {
		c.stale = MaxAge(defaultStaleTime)
	}

	if c.cacheTime <= 0 {
		c.cacheTime = defaultCacheTime
	}

	switch {
	case c.retry == 0:
		c.retry = defaultRetry
	case c.retry < 0:
		c.retry = 0
	}

	if c.clock == nil {
		c.clock = realClock{}
	}

	return c
}

// entryLocked returns the entry for key, creating it if needed. c.mu must be held.
func (c *Cache) entryLocked(key Key) *entry {
	id := key.String()

	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, subscribers: map[int]Listener{}}
		c.entries[id] = e
		c.scheduleGCLocked(e)
	}

	return e
}

func (c *Cache) scheduleGCLocked(e *entry) {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}

	e.gcTimer = c.clock.AfterFunc(c.cacheTime, func() {
		c.evict(e)
	})
}

func (c *Cache) evict(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := e.key.String()
	if c.entries[id] != e || len(e.subscribers) > 0 {
		return
	}

	if e.cancel != nil {
		e.cancel()
	}

	delete(c.entries, id)

	log.Debug().Str("key", id).Msg("evicted query")
}

func (c *Cache) notify(e *entry) {
	c.mu.Lock()
	snapshot := e.snapshot()

	listeners := make([]Listener, 0, len(e.subscribers))
	for _, listener := range e.subscribers {
		listeners = append(listeners, listener)
	}
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// Fetch returns the cached data for key if it is fresh, otherwise it runs loader
// (or the loader registered by a subscriber when loader is nil) and caches the result.
func (c *Cache) Fetch(ctx context.Context, key Key, loader Loader) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)

	if e.hasData && !e.invalidated && !c.stale.IsStale(e.fetchedAt, c.clock.Now()) {
		data := e.data
		c.mu.Unlock()

		return data, nil
	}

	if loader == nil {
		loader = e.loader
	} else if e.loader == nil {
		e.loader = loader
	}

	gen := e.generation
	c.mu.Unlock()

	if loader == nil {
		return nil, fmt.Errorf("error fetching %s: no loader registered", key)
	}

	return c.load(ctx, e, gen, loader)
}

// load runs loader once per (key, generation) no matter how many callers ask.
func (c *Cache) load(ctx context.Context, e *entry, gen uint64, loader Loader) (any, error) {
	flight := fmt.Sprintf("%s#%d", e.key, gen)

	ch := c.group.DoChan(flight, func() (interface{}, error) {
		return c.runLoader(ctx, e, gen, loader)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ErrCanceled
	}
}

func (c *Cache) runLoader(ctx context.Context, e *entry, gen uint64, loader Loader) (any, error) {
	// the load outlives any single caller; Cancel stops it
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	c.mu.Lock()
	if e.generation != gen {
		c.mu.Unlock()

		return c.current(e)
	}

	e.cancel = cancel
	e.status = StatusLoading
	c.mu.Unlock()

	c.notify(e)

	var (
		data any
		err  error
	)

	for attempt := 0; attempt <= c.retry; attempt++ {
		data, err = loader(fetchCtx)
		if err == nil || fetchCtx.Err() != nil {
			break
		}

		log.Debug().Err(err).Str("key", e.key.String()).Int("attempt", attempt+1).Msg("query load failed")
	}

	cancelled := fetchCtx.Err() != nil

	c.mu.Lock()
	if cancelled || e.generation != gen {
		c.mu.Unlock()

		return c.current(e)
	}

	e.cancel = nil

	if err != nil {
		e.err = err
		e.status = StatusError
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.status = StatusSuccess
		e.fetchedAt = c.clock.Now()
		e.invalidated = false
	}
	c.mu.Unlock()

	c.notify(e)

	return data, err
}

// current returns what a superseded load should report to its callers.
func (c *Cache) current(e *entry) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.hasData {
		return e.data, nil
	}

	return nil, ErrCanceled
}

// GetData returns the cached data for key without fetching.
func (c *Cache) GetData(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, false
	}

	return e.data, true
}

// State returns a snapshot of the entry for key.
func (c *Cache) State(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{}, false
	}

	return e.snapshot(), true
}

// SetData synchronously replaces the data for key with updater(old) and returns
// the previous value (nil if there was none). It does not cancel in-flight loads;
// call Cancel first when an optimistic write must not be overwritten.
func (c *Cache) SetData(key Key, updater func(old any) any) any {
	c.mu.Lock()
	e := c.entryLocked(key)

	var prev any
	if e.hasData {
		prev = e.data
	}

	next := updater(prev)

	e.data = next
	e.hasData = next != nil
	e.err = nil
	e.status = StatusSuccess
	e.fetchedAt = c.clock.Now()
	e.invalidated = false
	c.mu.Unlock()

	c.notify(e)

	return prev
}

// UpdateData is SetData for keys that already hold data; other keys are left
// untouched and ok is false.
func (c *Cache) UpdateData(key Key, updater func(old any) any) (prev any, ok bool) {
	c.mu.Lock()

	e, exists := c.entries[key.String()]
	if !exists || !e.hasData {
		c.mu.Unlock()

		return nil, false
	}

	prev = e.data
	e.data = updater(prev)
	e.fetchedAt = c.clock.Now()
	c.mu.Unlock()

	c.notify(e)

	return prev, true
}

func (c *Cache) matchingLocked(prefix Key) []*entry {
	var matches []*entry

	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			matches = append(matches, e)
		}
	}

	return matches
}

// Cancel stops in-flight loads for every key with the given prefix. Their results
// are discarded even if they arrive later.
func (c *Cache) Cancel(prefix Key) {
	c.mu.Lock()
	matches := c.matchingLocked(prefix)

	var changed []*entry

	for _, e := range matches {
		e.generation++

		if e.cancel == nil {
			continue
		}

		e.cancel()
		e.cancel = nil

		if e.status == StatusLoading {
			e.status = StatusIdle
			if e.hasData {
				e.status = StatusSuccess
			}
		}

		changed = append(changed, e)
	}
	c.mu.Unlock()

	for _, e := range changed {
		log.Debug().Str("key", e.key.String()).Msg("cancelled query")
		c.notify(e)
	}
}

// Invalidate marks every entry with the given prefix stale. Entries with
// subscribers are refetched before Invalidate returns; the others refetch on
// their next Fetch.
func (c *Cache) Invalidate(ctx context.Context, prefix Key) error {
	c.mu.Lock()
	matches := c.matchingLocked(prefix)

	var active []*entry

	for _, e := range matches {
		e.invalidated = true

		if len(e.subscribers) > 0 && e.loader != nil {
			active = append(active, e)
		}
	}
	c.mu.Unlock()

	log.Debug().Str("prefix", prefix.String()).Int("matched", len(matches)).Int("refetch", len(active)).
		Msg("invalidated queries")

	group, ctx := errgroup.WithContext(ctx)

	for _, e := range active {
		e := e

		group.Go(func() error {
			_, err := c.refetch(ctx, e)
			if errors.Is(err, ErrCanceled) {
				return nil
			}

			return err
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("error refetching %s: %w", prefix, err)
	}

	return nil
}

// Refetch reloads key even if its data is fresh, superseding any load in flight.
func (c *Cache) Refetch(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.mu.Unlock()

	return c.refetch(ctx, e)
}

func (c *Cache) refetch(ctx context.Context, e *entry) (any, error) {
	c.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	e.generation++
	gen := e.generation
	loader := e.loader
	c.mu.Unlock()

	if loader == nil {
		return nil, fmt.Errorf("error refetching %s: no loader registered", e.key)
	}

	return c.load(ctx, e, gen, loader)
}

// Subscription is a live registration on a key. Entries are kept while they have
// at least one subscription and evicted CacheTime after the last one ends.
type Subscription struct {
	cache *Cache
	key   Key
	id    int
	once  sync.Once
}

// Subscribe registers interest in key. loader is remembered for background
// refetches after invalidation; listener may be nil.
func (c *Cache) Subscribe(key Key, loader Loader, listener Listener) *Subscription {
	if listener == nil {
		listener = func(Snapshot) {}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)

	if loader != nil {
		e.loader = loader
	}

	c.nextSubID++
	e.subscribers[c.nextSubID] = listener

	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}

	return &Subscription{cache: c, key: key, id: c.nextSubID}
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.key
}

// Fetch fetches the subscribed key using the registered loader.
func (s *Subscription) Fetch(ctx context.Context) (any, error) {
	return s.cache.Fetch(ctx, s.key, nil)
}

// Unsubscribe ends the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		c := s.cache

		c.mu.Lock()
		defer c.mu.Unlock()

		e, ok := c.entries[s.key.String()]
		if !ok {
			return
		}

		delete(e.subscribers, s.id)

		if len(e.subscribers) == 0 {
			c.scheduleGCLocked(e)
		}
	})
}

// Subscribers returns the number of live subscriptions on key.
func (c *Cache) Subscribers(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key.String()]; ok {
		return len(e.subscribers)
	}

	return 0
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// FetchAs is Fetch with a typed loader and result.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, loader func(ctx context.Context) (T, error)) (T, error) {
	var wrapped Loader
	if loader != nil {
		wrapped = func(ctx context.Context) (any, error) {
			return loader(ctx)
		}
	}

	data, err := c.Fetch(ctx, key, wrapped)

	value, _ := data.(T)

	return value, err
}

// GetAs is GetData with a typed result.
func GetAs[T any](c *Cache, key Key) (T, bool) {
	data, ok := c.GetData(key)
	if !ok {
		var zero T

		return zero, false
	}

	value, ok := data.(T)

	return value, ok
}

// UpdateAs is UpdateData with a typed updater. Entries holding another type are left untouched.
func UpdateAs[T any](c *Cache, key Key, updater func(old T) T) (prev T, ok bool) {
	var matched bool

	raw, ok := c.UpdateData(key, func(old any) any {
		typed, isT := old.(T)
		if !isT {
			return old
		}

		matched = true

		return updater(typed)
	})

	if !ok || !matched {
		return prev, false
	}

	prev, ok = raw.(T)

	return prev, ok
}

// SetAs is SetData with a typed updater. ok is false when there was no previous value.
func SetAs[T any](c *Cache, key Key, updater func(old T, ok bool) T) (prev T, ok bool) {
	raw := c.SetData(key, func(old any) any {
		typed, ok := old.(T)

		return updater(typed, ok)
	})

	prev, ok = raw.(T)

	return prev, ok
}
