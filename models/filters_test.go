package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/models"
)

// Contract: unset filter fields never reach the query string.
func Test_TaskFilters_Values_Omits_Unset_Fields_When_Filters_Are_Partial(t *testing.T) {
	t.Parallel()

	f := models.TaskFilters{Status: models.StatusInProgress, AssignedToMe: true}

	v := f.Values()
	assert.Equal(t, "In Progress", v.Get("status"))
	assert.Equal(t, "true", v.Get("assignedToMe"))
	for _, name := range []string{"priority", "search", "sortBy", "sortOrder", "createdByMe", "overdue"} {
		assert.False(t, v.Has(name), "%s should not be sent", name)
	}
}

func Test_TaskFilters_Values_Is_Empty_When_Filters_Are_Zero(t *testing.T) {
	t.Parallel()

	assert.Empty(t, models.TaskFilters{}.Values())
	assert.Equal(t, "", models.TaskFilters{}.Key())
}

// Contract: filter sets differing in any field have distinct cache keys.
func Test_TaskFilters_Key_Differs_When_Any_Field_Differs(t *testing.T) {
	t.Parallel()

	base := models.TaskFilters{}
	variants := []models.TaskFilters{
		{Status: models.StatusToDo},
		{Priority: models.PriorityHigh},
		{Search: "report"},
		{SortBy: models.SortByDueDate},
		{SortOrder: models.SortAsc},
		{AssignedToMe: true},
		{CreatedByMe: true},
		{Overdue: true},
	}

	seen := map[string]bool{base.Key(): true}
	for _, f := range variants {
		key := f.Key()
		require.False(t, seen[key], "key %q collides", key)
		seen[key] = true
	}
}

func Test_TaskFilters_Key_Is_Stable_When_Filters_Are_Equal(t *testing.T) {
	t.Parallel()

	a := models.TaskFilters{Status: models.StatusReview, Search: "a b&c", Overdue: true}
	b := models.TaskFilters{Overdue: true, Search: "a b&c", Status: models.StatusReview}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "overdue=true&search=a+b%26c&status=Review", a.Key())
}
