package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Sontara444/taskmanager-client/logging"
)

// FetchFunc loads the authoritative value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// FetchError is returned by Read when the underlying fetch failed. The last
// known value, if any, is returned alongside it and stays cached.
type FetchError struct {
	Key Key
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type EventKind int

const (
	// Updated means the entry's data changed (fetch, Set, Update, Restore).
	Updated EventKind = iota
	// Invalidated asks subscribers to read again.
	Invalidated
	// Cleared means the entry was dropped with the rest of the cache.
	Cleared
)

func (k EventKind) String() string {
	switch k {
	case Updated:
		return "updated"
	case Invalidated:
		return "invalidated"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

type Event struct {
	Key  Key
	Kind EventKind
}

// EntryState is a read-only view of one entry, mostly for diagnostics.
type EntryState struct {
	HasData   bool
	Stale     bool
	Fetching  bool
	Err       error
	UpdatedAt time.Time
}

// Snapshot holds entry values captured by Snapshot for a later Restore.
type Snapshot map[Key]any

type Options struct {
	// StaleTime makes data stale once it is older than this. Zero means only
	// Invalidate marks data stale.
	StaleTime time.Duration
	Now       func() time.Time
}

// Cache is a keyed store of server-derived collections.
//
// Every fetch gets a request token from a cache-wide counter. A completion is
// stored only if its token is newer than the data already stored and not
// below the entry's cancellation floor, so responses arriving out of order
// never overwrite newer data. At most one fetch per key is in flight;
// concurrent readers share it.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	holds   map[uint64]Pattern
	seq     uint64
	nextID  uint64
	group   singleflight.Group
	stale   time.Duration
	now     func() time.Time
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	stale     bool
	updatedAt time.Time
	err       error

	epoch       uint64 // bumped by Invalidate
	applied     uint64 // token of the stored fetch result
	floor       uint64 // completions with a lower token are discarded
	inflight    uint64 // token of the running fetch, 0 when idle
	flightEpoch uint64 // epoch the running fetch started under
	flight      func() (any, error)

	subs map[uint64]func(Event)
}

type outcome struct {
	data any
}

func New(opts Options) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[Key]*entry),
		holds:   make(map[uint64]Pattern),
		stale:   opts.StaleTime,
		now:     now,
	}
}

func (c *Cache) lookup(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) isStale(e *entry) bool {
	if e.stale {
		return true
	}
	return c.stale > 0 && c.now().Sub(e.updatedAt) > c.stale
}

func (c *Cache) held(key Key) bool {
	for _, p := range c.holds {
		if p.Match(key) {
			return true
		}
	}
	return false
}

func flightKey(key Key, token uint64) string {
	return key.String() + "#" + strconv.FormatUint(token, 10)
}

// Read returns the cached value for key when it is fresh. Otherwise it
// fetches, or joins the fetch already running for key when that fetch
// started after the last invalidation. Held entries with data are served as
// they are.
func (c *Cache) Read(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	e := c.lookup(key)
	if e.hasData && (!c.isStale(e) || c.held(key)) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}

	// A fetch started before the last Invalidate may miss the change, so it
	// is superseded. Its completion loses to the newer token in settle.
	if e.inflight == 0 || e.flightEpoch != e.epoch {
		c.seq++
		token, epoch := c.seq, e.epoch
		fetchCtx := context.WithoutCancel(ctx)
		e.inflight = token
		e.flightEpoch = epoch
		e.flight = func() (any, error) {
			logging.Logger.Debugf("Event ID: CACHE_FETCH_START, Description: fetching %s (token %d)", key, token)
			data, err := fetch(fetchCtx)
			return c.settle(e, token, epoch, data, err)
		}
	}
	ch := c.group.DoChan(flightKey(key, e.inflight), e.flight)
	c.mu.Unlock()

	select {
	case res := <-ch:
		var data any
		if out, ok := res.Val.(outcome); ok {
			data = out.data
		}
		return data, res.Err
	case <-ctx.Done():
		c.mu.Lock()
		var data any
		if e.hasData {
			data = e.data
		}
		c.mu.Unlock()
		return data, ctx.Err()
	}
}

func (c *Cache) settle(e *entry, token, epoch uint64, data any, fetchErr error) (any, error) {
	c.mu.Lock()
	if e.inflight == token {
		e.inflight = 0
		e.flight = nil
	}
	current := token >= e.floor && token > e.applied

	if fetchErr != nil {
		if current {
			e.err = fetchErr
		}
		var last any
		if e.hasData {
			last = e.data
		}
		c.mu.Unlock()
		logging.Logger.Warnf("Event ID: CACHE_FETCH_FAILED, Description: fetching %s failed: %v", e.key, fetchErr)
		return outcome{data: last}, &FetchError{Key: e.key, Err: fetchErr}
	}

	if !current {
		out := data
		if e.hasData {
			out = e.data
		}
		c.mu.Unlock()
		logging.Logger.Debugf("Event ID: CACHE_FETCH_DISCARDED, Description: discarded result for %s (token %d, applied %d, floor %d)", e.key, token, e.applied, e.floor)
		return outcome{data: out}, nil
	}

	e.data = data
	e.hasData = true
	e.applied = token
	e.err = nil
	e.updatedAt = c.now()
	// Invalidated again while this fetch was running.
	e.stale = e.epoch != epoch
	subs := e.subscribers()
	c.mu.Unlock()

	notify(subs, Event{Key: e.key, Kind: Updated})
	return outcome{data: data}, nil
}

func (e *entry) subscribers() []func(Event) {
	if len(e.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, e.subs[id])
	}
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

type pending struct {
	subs []func(Event)
	ev   Event
}

func (c *Cache) flush(batch []pending) {
	for _, p := range batch {
		notify(p.subs, p.ev)
	}
}

// matching returns the entries matched by p in key order.
func (c *Cache) matching(p Pattern) []*entry {
	out := make([]*entry, 0)
	for k, e := range c.entries {
		if p.Match(k) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.String() < out[j].key.String() })
	return out
}

// Invalidate marks every matching entry stale and tells its subscribers to
// read again. Cached data is kept and served until the refetch completes.
func (c *Cache) Invalidate(p Pattern) int {
	c.mu.Lock()
	var batch []pending
	matched := c.matching(p)
	for _, e := range matched {
		e.stale = true
		e.epoch++
		batch = append(batch, pending{subs: e.subscribers(), ev: Event{Key: e.key, Kind: Invalidated}})
	}
	c.mu.Unlock()

	logging.Logger.Debugf("Event ID: CACHE_INVALIDATED, Description: invalidated %d entries matching %s", len(matched), p)
	c.flush(batch)
	return len(matched)
}

// Cancel makes completions of fetches already running for matching entries
// be discarded. The next Read starts a new fetch.
func (c *Cache) Cancel(p Pattern) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := c.matching(p)
	for _, e := range matched {
		e.floor = c.seq + 1
		e.inflight = 0
		e.flight = nil
	}
	return len(matched)
}

// Hold keeps Read from refetching matching entries that already have data
// until release is called. Optimistic state is protected this way while a
// mutation is in flight.
func (c *Cache) Hold(p Pattern) (release func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.holds[id] = p
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.holds, id)
			c.mu.Unlock()
		})
	}
}

// Snapshot captures the current value of every matching entry that has data.
func (c *Cache) Snapshot(p Pattern) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := make(Snapshot)
	for _, e := range c.matching(p) {
		if e.hasData {
			snap[e.key] = e.data
		}
	}
	return snap
}

// Restore writes snapshot values back verbatim into the entries that still
// exist. Entries evicted since the snapshot are skipped.
func (c *Cache) Restore(snap Snapshot) {
	c.mu.Lock()
	var batch []pending
	keys := make([]Key, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		e, ok := c.entries[k]
		if !ok {
			continue
		}
		e.data = snap[k]
		e.hasData = true
		batch = append(batch, pending{subs: e.subscribers(), ev: Event{Key: k, Kind: Updated}})
	}
	c.mu.Unlock()

	c.flush(batch)
}

// Update applies fn to the value of every matching entry that has data. fn
// reports whether it changed the value; it must not modify the value in
// place because snapshots share it.
func (c *Cache) Update(p Pattern, fn func(Key, any) (any, bool)) int {
	c.mu.Lock()
	var batch []pending
	for _, e := range c.matching(p) {
		if !e.hasData {
			continue
		}
		next, changed := fn(e.key, e.data)
		if !changed {
			continue
		}
		e.data = next
		batch = append(batch, pending{subs: e.subscribers(), ev: Event{Key: e.key, Kind: Updated}})
	}
	c.mu.Unlock()

	c.flush(batch)
	return len(batch)
}

// Set stores data for key without fetching.
func (c *Cache) Set(key Key, data any) {
	c.mu.Lock()
	e := c.lookup(key)
	e.data = data
	e.hasData = true
	e.updatedAt = c.now()
	subs := e.subscribers()
	c.mu.Unlock()

	notify(subs, Event{Key: key, Kind: Updated})
}

// Peek returns the cached value without fetching.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Inspect(key Key) (EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return EntryState{}, false
	}
	return EntryState{
		HasData:   e.hasData,
		Stale:     e.hasData && c.isStale(e),
		Fetching:  e.inflight != 0,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
	}, true
}

// Keys lists the keys matched by p in a stable order.
func (c *Cache) Keys(p Pattern) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := c.matching(p)
	keys := make([]Key, 0, len(matched))
	for _, e := range matched {
		keys = append(keys, e.key)
	}
	return keys
}

// Subscribe registers fn for events on key. The entry is evicted when its
// last subscriber disposes.
func (c *Cache) Subscribe(key Key, fn func(Event)) (dispose func()) {
	c.mu.Lock()
	e := c.lookup(key)
	if e.subs == nil {
		e.subs = make(map[uint64]func(Event))
	}
	c.nextID++
	id := c.nextID
	e.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			delete(e.subs, id)
			if len(e.subs) == 0 && c.entries[key] == e {
				delete(c.entries, key)
				logging.Logger.Debugf("Event ID: CACHE_EVICTED, Description: evicted %s, no subscribers left", key)
			}
		})
	}
}

// Clear drops every entry. Fetches still running are discarded when they
// complete.
func (c *Cache) Clear() {
	c.mu.Lock()
	var batch []pending
	for _, e := range c.matching(All()) {
		e.floor = c.seq + 1
		e.inflight = 0
		e.flight = nil
		batch = append(batch, pending{subs: e.subscribers(), ev: Event{Key: e.key, Kind: Cleared}})
	}
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()

	c.flush(batch)
}

// Read is the typed form of (*Cache).Read.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	out, _ := v.(T)
	return out, err
}
