package commands_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/internal/testutil"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/commands"
	"github.com/Sontara444/taskmanager-client/services/queries"
	"github.com/Sontara444/taskmanager-client/transport"
)

var (
	taskA = models.Task{ID: "A", Title: "Alpha", Status: models.StatusToDo, Priority: models.PriorityHigh}
	taskB = models.Task{ID: "B", Title: "Beta", Status: models.StatusReview, Priority: models.PriorityLow}

	allTasks  = models.TaskFilters{}
	todoTasks = models.TaskFilters{Status: models.StatusToDo}
)

type fixture struct {
	cache   *cache.Cache
	svc     *testutil.TaskService
	session *testutil.Session
	tasks   *queries.TaskQueryHandler
	del     *commands.DeleteTaskHandler
}

func newFixture(t *testing.T, tasks ...models.Task) *fixture {
	t.Helper()

	c := cache.New(cache.Options{})
	svc := testutil.NewTaskService(tasks...)
	session := testutil.SignedIn(models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"})
	return &fixture{
		cache:   c,
		svc:     svc,
		session: session,
		tasks:   queries.NewTaskQueryHandler(c, svc, session),
		del:     commands.NewDeleteTaskHandler(c, svc, session),
	}
}

func (f *fixture) read(t *testing.T, filters models.TaskFilters) []models.Task {
	t.Helper()
	tasks, err := f.tasks.Handle(context.Background(), queries.GetTasksQuery{Filters: filters})
	require.NoError(t, err)
	return tasks
}

func (f *fixture) cached(t *testing.T, filters models.TaskFilters) []models.Task {
	t.Helper()
	v, ok := f.cache.Peek(queries.TasksKey(filters))
	require.True(t, ok, "no cached list for %+v", filters)
	return v.([]models.Task)
}

// startDelete runs the delete in the background and returns once the
// request reached the service.
func (f *fixture) startDelete(t *testing.T, id string) (release func(), result <-chan error) {
	t.Helper()

	started := make(chan string, 1)
	gate := make(chan struct{})
	f.svc.DeleteStarted = started
	f.svc.DeleteGate = gate

	errCh := make(chan error, 1)
	go func() {
		errCh <- f.del.Handle(context.Background(), commands.DeleteTaskCommand{TaskID: id})
	}()

	select {
	case got := <-started:
		require.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("delete request never started")
	}
	return func() { close(gate) }, errCh
}

// Contract: scenario [A, B], delete A succeeds.
func Test_DeleteTask_Removes_Task_Before_Request_Resolves_And_Refetches_When_It_Succeeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, taskA, taskB)
	require.Equal(t, []models.Task{taskA, taskB}, f.read(t, allTasks))
	require.Equal(t, []models.Task{taskA}, f.read(t, todoTasks))

	release, result := f.startDelete(t, "A")

	assert.Empty(t, cmp.Diff([]models.Task{taskB}, f.cached(t, allTasks)))
	assert.Empty(t, cmp.Diff([]models.Task{}, f.cached(t, todoTasks)))

	release()
	require.NoError(t, <-result)

	st, _ := f.cache.Inspect(queries.TasksKey(allTasks))
	assert.True(t, st.Stale, "success invalidates every task list")

	gets := f.svc.Gets()
	assert.Equal(t, []models.Task{taskB}, f.read(t, allTasks))
	assert.Equal(t, gets+1, f.svc.Gets())
}

// Contract: scenario [A, B], delete A fails with 500.
func Test_DeleteTask_Restores_Every_List_Exactly_When_Request_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, taskA, taskB)
	f.read(t, allTasks)
	f.read(t, todoTasks)
	f.svc.SetErr(&transport.HTTPError{Status: http.StatusInternalServerError, Message: "Server error"})

	release, result := f.startDelete(t, "A")
	assert.Equal(t, []models.Task{taskB}, f.cached(t, allTasks))

	release()
	err := <-result

	var httpErr *transport.HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)

	assert.Empty(t, cmp.Diff([]models.Task{taskA, taskB}, f.cached(t, allTasks)))
	assert.Empty(t, cmp.Diff([]models.Task{taskA}, f.cached(t, todoTasks)))
	st, _ := f.cache.Inspect(queries.TasksKey(allTasks))
	assert.False(t, st.Stale, "rollback does not invalidate")
}

func Test_DeleteTask_Leaves_Lists_Unchanged_When_Id_Is_Not_Cached(t *testing.T) {
	t.Parallel()

	f := newFixture(t, taskA, taskB)
	f.read(t, allTasks)

	release, result := f.startDelete(t, "Z")
	assert.Equal(t, []models.Task{taskA, taskB}, f.cached(t, allTasks))
	release()
	require.NoError(t, <-result)

	assert.Equal(t, []string{"Z"}, f.svc.Deletes())
}

// Contract: a refetch while the delete is in flight cannot bring the task back.
func Test_DeleteTask_Keeps_Optimistic_List_When_Read_During_Request(t *testing.T) {
	t.Parallel()

	f := newFixture(t, taskA, taskB)
	f.read(t, allTasks)
	f.cache.Invalidate(queries.AllTasks())

	release, result := f.startDelete(t, "A")
	gets := f.svc.Gets()

	assert.Equal(t, []models.Task{taskB}, f.read(t, allTasks))
	assert.Equal(t, gets, f.svc.Gets(), "held lists are not refetched")

	release()
	require.NoError(t, <-result)
}

func Test_DeleteTask_Discards_List_Fetch_When_It_Started_Before_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t, taskA, taskB)
	f.read(t, allTasks)
	f.cache.Invalidate(queries.AllTasks())

	getGate := make(chan struct{})
	f.svc.GetGate = getGate
	readDone := make(chan []models.Task, 1)
	go func() {
		tasks, _ := f.tasks.Handle(context.Background(), queries.GetTasksQuery{Filters: allTasks})
		readDone <- tasks
	}()
	require.Eventually(t, func() bool { return f.svc.Gets() == 2 }, time.Second, time.Millisecond)

	release, result := f.startDelete(t, "A")
	close(getGate)

	assert.Equal(t, []models.Task{taskB}, <-readDone, "stale completion is discarded")
	assert.Equal(t, []models.Task{taskB}, f.cached(t, allTasks))

	release()
	require.NoError(t, <-result)
}

func Test_DeleteTask_Rejects_Request_When_Not_Authenticated_Or_Id_Empty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, taskA)

	err := f.del.Handle(context.Background(), commands.DeleteTaskCommand{TaskID: " "})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))

	f.session.SignOut()
	err = f.del.Handle(context.Background(), commands.DeleteTaskCommand{TaskID: "A"})
	require.ErrorIs(t, err, models.ErrNotAuthenticated)
	assert.Empty(t, f.svc.Deletes())
}
