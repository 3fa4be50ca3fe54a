package app_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/app"
	"github.com/Sontara444/taskmanager-client/config"
	"github.com/Sontara444/taskmanager-client/internal/fakeapi"
	"github.com/Sontara444/taskmanager-client/internal/testutil"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/realtime"
	"github.com/Sontara444/taskmanager-client/services/commands"
	"github.com/Sontara444/taskmanager-client/services/queries"
	"github.com/Sontara444/taskmanager-client/session"
	"github.com/Sontara444/taskmanager-client/transport"
)

const waitFor = 2 * time.Second

func testConfig(b *testutil.Backend) *config.Config {
	return &config.Config{
		BackendURL:         b.Server.URL,
		APIPrefix:          "/api",
		PushPath:           "/ws",
		RequestTimeout:     5 * time.Second,
		ReconnectDelay:     20 * time.Millisecond,
		BreakerMaxFailures: 50,
		BreakerTimeout:     time.Second,
	}
}

func newApp(t *testing.T, b *testutil.Backend, opts ...app.Option) *app.App {
	t.Helper()

	opts = append([]app.Option{app.WithTokenStore(&session.MemoryTokenStore{})}, opts...)
	a, err := app.New(testConfig(b), opts...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func Test_App_Keeps_Task_Lists_In_Sync_With_Pushed_Events(t *testing.T) {
	t.Parallel()

	b := testutil.NewBackend(t, fakeapi.Options{})
	ana := b.AddUser("Ana", "ana@example.com", "secret1")
	bob := b.AddUser("Bob", "bob@example.com", "secret2")
	ctx := context.Background()

	pushed := make(chan models.PushNotification, 4)
	anaApp := newApp(t, b, app.WithNotificationHandler(func(p models.PushNotification) { pushed <- p }))
	bobApp := newApp(t, b, app.WithoutPush())

	_, err := anaApp.Session.Login(ctx, models.LoginData{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = bobApp.Session.Login(ctx, models.LoginData{Email: "bob@example.com", Password: "secret2"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.Connected(ana.ID) == 1 }, waitFor, 5*time.Millisecond)
	assert.Zero(t, b.Connected(bob.ID))

	mine := models.TaskFilters{AssignedToMe: true}
	tasks, err := anaApp.Tasks.Handle(ctx, queries.GetTasksQuery{Filters: mine})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	created, err := bobApp.CreateTask.Handle(ctx, commands.CreateTaskCommand{Data: models.CreateTaskData{
		Title:       "Review budget",
		Description: "Q3 numbers",
		DueDate:     models.NewDate(2031, time.May, 1),
		Priority:    models.PriorityHigh,
		AssigneeID:  ana.ID,
	}})
	require.NoError(t, err)

	select {
	case p := <-pushed:
		assert.Equal(t, created.ID, p.TaskID)
	case <-time.After(waitFor):
		t.Fatal("assignment notification not pushed")
	}
	require.Eventually(t, func() bool {
		st, _ := anaApp.Cache.Inspect(queries.TasksKey(mine))
		return st.Stale
	}, waitFor, 5*time.Millisecond)

	tasks, err = anaApp.Tasks.Handle(ctx, queries.GetTasksQuery{Filters: mine})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)

	unread, err := anaApp.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

// Contract: a refused delete puts the list back exactly as it was.
func Test_App_Restores_List_When_Delete_Is_Forbidden(t *testing.T) {
	t.Parallel()

	b := testutil.NewBackend(t, fakeapi.Options{Quiet: true})
	ana := b.AddUser("Ana", "ana@example.com", "secret1")
	bob := b.AddUser("Bob", "bob@example.com", "secret2")
	assignee := models.UserRef{ID: ana.ID}
	b.AddTask(bob.ID, models.Task{ID: "shared", Title: "Shared", Assignee: &assignee})
	b.AddTask(ana.ID, models.Task{ID: "own", Title: "Own"})
	ctx := context.Background()

	a := newApp(t, b, app.WithoutPush())
	_, err := a.Session.Login(ctx, models.LoginData{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	before, err := a.Tasks.Handle(ctx, queries.GetTasksQuery{})
	require.NoError(t, err)
	require.Len(t, before, 2)

	err = a.DeleteTask.Handle(ctx, commands.DeleteTaskCommand{TaskID: "shared"})
	require.True(t, transport.IsStatus(err, http.StatusForbidden))

	after, err := a.Tasks.Handle(ctx, queries.GetTasksQuery{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, b.Count(http.MethodGet, "/tasks"), "rollback does not refetch")

	require.NoError(t, a.DeleteTask.Handle(ctx, commands.DeleteTaskCommand{TaskID: "own"}))
	after, err = a.Tasks.Handle(ctx, queries.GetTasksQuery{})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "shared", after[0].ID)
}

func Test_App_Shows_Task_Gone_While_Delete_Is_Pending(t *testing.T) {
	t.Parallel()

	b := testutil.NewBackend(t, fakeapi.Options{Quiet: true})
	ana := b.AddUser("Ana", "ana@example.com", "secret1")
	b.AddTask(ana.ID, models.Task{ID: "A", Title: "A"})
	b.AddTask(ana.ID, models.Task{ID: "B", Title: "B"})
	ctx := context.Background()

	a := newApp(t, b, app.WithoutPush())
	_, err := a.Session.Login(ctx, models.LoginData{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = a.Tasks.Handle(ctx, queries.GetTasksQuery{})
	require.NoError(t, err)

	release := b.Gate(http.MethodDelete, "/tasks/A")
	done := make(chan error, 1)
	go func() { done <- a.DeleteTask.Handle(ctx, commands.DeleteTaskCommand{TaskID: "A"}) }()
	require.True(t, b.WaitForCount(ctx, http.MethodDelete, "/tasks/A", 1))

	pending, err := a.Tasks.Handle(ctx, queries.GetTasksQuery{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "B", pending[0].ID)

	release()
	require.NoError(t, <-done)
}

func Test_App_Logout_Closes_Push_Channel_And_Requires_Login(t *testing.T) {
	t.Parallel()

	b := testutil.NewBackend(t, fakeapi.Options{})
	ana := b.AddUser("Ana", "ana@example.com", "secret1")
	ctx := context.Background()

	a := newApp(t, b)
	_, err := a.Session.Login(ctx, models.LoginData{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.Connected(ana.ID) == 1 }, waitFor, 5*time.Millisecond)

	require.NoError(t, a.Session.Logout(ctx))
	assert.Equal(t, realtime.Disconnected, a.Channel.State())
	require.Eventually(t, func() bool { return b.Connected(ana.ID) == 0 }, waitFor, 5*time.Millisecond)

	_, err = a.Tasks.Handle(ctx, queries.GetTasksQuery{})
	assert.True(t, errors.Is(err, models.ErrNotAuthenticated))
}

func Test_App_Rejects_Invalid_Configuration(t *testing.T) {
	t.Parallel()

	_, err := app.New(&config.Config{BackendURL: "ftp://host"}, app.WithTokenStore(&session.MemoryTokenStore{}))
	require.Error(t, err)
}
