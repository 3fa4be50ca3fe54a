package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/cache"
)

var (
	keyA = cache.Key{Scope: "tasks", Params: "status=To+Do"}
	keyB = cache.Key{Scope: "tasks", Params: "status=Review"}
	keyN = cache.Key{Scope: "notifications"}
)

func constant(v any, calls *atomic.Int32) cache.FetchFunc {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return v, nil
	}
}

func Test_Read_Serves_Cached_Data_When_Entry_Is_Fresh(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	var calls atomic.Int32

	v, err := c.Read(context.Background(), keyA, constant("first", &calls))
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = c.Read(context.Background(), keyA, constant("second", &calls))
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	assert.Equal(t, int32(1), calls.Load())
}

// Contract: distinct keys populate distinct entries and a scope pattern
// invalidates all of them.
func Test_Invalidate_Marks_Every_Key_Stale_When_Scope_Matches(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	var calls atomic.Int32
	ctx := context.Background()

	_, err := c.Read(ctx, keyA, constant("a", &calls))
	require.NoError(t, err)
	_, err = c.Read(ctx, keyB, constant("b", &calls))
	require.NoError(t, err)
	_, err = c.Read(ctx, keyN, constant("n", &calls))
	require.NoError(t, err)

	a, _ := c.Peek(keyA)
	b, _ := c.Peek(keyB)
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)

	assert.Equal(t, 2, c.Invalidate(cache.Scope("tasks")))

	for _, k := range []cache.Key{keyA, keyB} {
		st, ok := c.Inspect(k)
		require.True(t, ok)
		assert.True(t, st.Stale, "%s should be stale", k)
		assert.True(t, st.HasData, "stale entries keep their data")
	}
	st, _ := c.Inspect(keyN)
	assert.False(t, st.Stale)

	v, err := c.Read(ctx, keyA, constant("a2", &calls))
	require.NoError(t, err)
	assert.Equal(t, "a2", v)
}

// Contract: concurrent reads of one key share one fetch.
func Test_Read_Fetches_Once_When_Reads_Are_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]any, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Read(context.Background(), keyA, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool {
		st, ok := c.Inspect(keyA)
		return ok && st.Fetching
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

// Contract: a completion of an older request never overwrites newer data.
func Test_Read_Discards_Completion_When_Fetch_Was_Cancelled(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	ctx := context.Background()

	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		close(slowStarted)
		<-slowRelease
		return "old", nil
	}

	slowDone := make(chan any, 1)
	go func() {
		v, _ := c.Read(ctx, keyA, slow)
		slowDone <- v
	}()
	<-slowStarted

	assert.Equal(t, 1, c.Cancel(cache.Exact(keyA)))

	var calls atomic.Int32
	v, err := c.Read(ctx, keyA, constant("new", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(slowRelease)
	assert.Equal(t, "new", <-slowDone, "discarded completion returns the current value")

	got, _ := c.Peek(keyA)
	assert.Equal(t, "new", got)
}

func Test_Read_Leaves_Entry_Stale_When_Invalidated_During_Fetch(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Read(context.Background(), keyA, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "before-change", nil
		})
	}()
	<-started
	c.Invalidate(cache.Exact(keyA))
	close(release)
	<-done

	st, ok := c.Inspect(keyA)
	require.True(t, ok)
	assert.True(t, st.HasData)
	assert.True(t, st.Stale)
}

// Contract: a read issued after Invalidate never joins a fetch that started
// before it; the older completion is discarded when it lands last.
func Test_Read_Starts_New_Fetch_When_Invalidated_During_Fetch(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	first := make(chan any, 1)
	go func() {
		v, _ := c.Read(ctx, keyA, func(ctx context.Context) (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return "before-change", nil
		})
		first <- v
	}()
	<-started

	c.Invalidate(cache.Exact(keyA))

	v, err := c.Read(ctx, keyA, constant("after-change", &calls))
	require.NoError(t, err)
	assert.Equal(t, "after-change", v)
	assert.Equal(t, int32(2), calls.Load())

	close(release)
	// The superseded fetch hands its waiters the newer stored data.
	assert.Equal(t, "after-change", <-first)

	got, _ := c.Peek(keyA)
	assert.Equal(t, "after-change", got)
	st, ok := c.Inspect(keyA)
	require.True(t, ok)
	assert.False(t, st.Stale)
	assert.False(t, st.Fetching)
}

// Contract: without an invalidation in between, concurrent readers still
// share the running fetch.
func Test_Read_Joins_Running_Fetch_When_Epoch_Is_Unchanged(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	first := make(chan any, 1)
	go func() {
		v, _ := c.Read(ctx, keyA, func(ctx context.Context) (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return "shared", nil
		})
		first <- v
	}()
	<-started

	second := make(chan any, 1)
	go func() {
		v, _ := c.Read(ctx, keyA, constant("other", &calls))
		second <- v
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.Equal(t, "shared", <-first)
	assert.Equal(t, "shared", <-second)
	assert.Equal(t, int32(1), calls.Load())
}

func Test_Read_Returns_Last_Data_With_FetchError_When_Refetch_Fails(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Read(ctx, keyA, constant("kept", &calls))
	require.NoError(t, err)
	c.Invalidate(cache.All())

	boom := errors.New("boom")
	v, err := c.Read(ctx, keyA, func(ctx context.Context) (any, error) { return nil, boom })

	var fetchErr *cache.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, keyA, fetchErr.Key)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "kept", v)

	st, _ := c.Inspect(keyA)
	assert.True(t, st.Stale)
	assert.ErrorIs(t, st.Err, boom)
}

func Test_Read_Stops_Waiting_When_Context_Ends(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Read(ctx, keyA, func(ctx context.Context) (any, error) {
			<-release
			return "late", nil
		})
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		st, ok := c.Inspect(keyA)
		return ok && st.Fetching
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		v, ok := c.Peek(keyA)
		return ok && v == "late"
	}, time.Second, time.Millisecond, "the shared fetch still settles")
}

// Contract: held entries with data are served without refetching.
func Test_Read_Serves_Held_Data_When_Entry_Is_Stale(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Read(ctx, keyA, constant("optimistic", &calls))
	require.NoError(t, err)
	release := c.Hold(cache.Scope("tasks"))
	c.Invalidate(cache.All())

	v, err := c.Read(ctx, keyA, constant("server", &calls))
	require.NoError(t, err)
	assert.Equal(t, "optimistic", v)
	assert.Equal(t, int32(1), calls.Load())

	release()
	v, err = c.Read(ctx, keyA, constant("server", &calls))
	require.NoError(t, err)
	assert.Equal(t, "server", v)
}

func Test_Read_Refetches_When_StaleTime_Elapsed(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := cache.New(cache.Options{StaleTime: time.Minute, Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}})
	var calls atomic.Int32

	_, err := c.Read(context.Background(), keyA, constant("v", &calls))
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	_, _ = c.Read(context.Background(), keyA, constant("v", &calls))
	assert.Equal(t, int32(1), calls.Load())

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()
	_, _ = c.Read(context.Background(), keyA, constant("v", &calls))
	assert.Equal(t, int32(2), calls.Load())
}

func Test_Snapshot_Restores_Values_Verbatim_When_Updated_Then_Restored(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	c.Set(keyA, []string{"A", "B"})
	c.Set(keyB, []string{"B"})

	snap := c.Snapshot(cache.Scope("tasks"))
	n := c.Update(cache.Scope("tasks"), func(_ cache.Key, v any) (any, bool) {
		list := v.([]string)
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s != "A" {
				out = append(out, s)
			}
		}
		return out, len(out) != len(list)
	})
	assert.Equal(t, 1, n)

	a, _ := c.Peek(keyA)
	assert.Equal(t, []string{"B"}, a)

	c.Restore(snap)
	a, _ = c.Peek(keyA)
	b, _ := c.Peek(keyB)
	assert.Equal(t, []string{"A", "B"}, a)
	assert.Equal(t, []string{"B"}, b)
}

func Test_Subscribe_Receives_Events_And_Evicts_When_Last_Disposed(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	var mu sync.Mutex
	var events []cache.EventKind
	record := func(ev cache.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Kind)
	}

	dispose1 := c.Subscribe(keyA, record)
	dispose2 := c.Subscribe(keyA, func(cache.Event) {})

	var calls atomic.Int32
	_, err := c.Read(context.Background(), keyA, constant("x", &calls))
	require.NoError(t, err)
	c.Invalidate(cache.Exact(keyA))

	mu.Lock()
	assert.Equal(t, []cache.EventKind{cache.Updated, cache.Invalidated}, events)
	mu.Unlock()

	dispose1()
	dispose1()
	_, ok := c.Peek(keyA)
	assert.True(t, ok, "entry survives while a subscriber remains")

	dispose2()
	_, ok = c.Peek(keyA)
	assert.False(t, ok, "entry is evicted with its last subscriber")
}

func Test_Clear_Drops_Entries_And_Discards_Running_Fetches(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	c.Set(keyN, "n")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Read(context.Background(), keyA, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "previous user", nil
		})
	}()
	<-started

	c.Clear()
	close(release)
	<-done

	assert.Empty(t, c.Keys(cache.All()))
	_, ok := c.Peek(keyA)
	assert.False(t, ok)
}

func Test_Read_Typed_Returns_Zero_Value_When_Fetch_Fails_Without_Data(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	got, err := cache.Read(context.Background(), c, keyA, func(ctx context.Context) ([]int, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)
	assert.Nil(t, got)

	got, err = cache.Read(context.Background(), c, keyA, func(ctx context.Context) ([]int, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func Test_Pattern_Match_Selects_Keys_When_Kind_Differs(t *testing.T) {
	t.Parallel()

	assert.True(t, cache.All().Match(keyN))
	assert.True(t, cache.Scope("tasks").Match(keyB))
	assert.False(t, cache.Scope("tasks").Match(keyN))
	assert.True(t, cache.Exact(keyA).Match(keyA))
	assert.False(t, cache.Exact(keyA).Match(keyB))
}
