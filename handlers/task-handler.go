package handlers

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/commands"
	"github.com/Sontara444/taskmanager-client/services/queries"
)

type filterFlags struct {
	status       string
	priority     string
	search       string
	sortBy       string
	sortOrder    string
	assignedToMe bool
	createdByMe  bool
	overdue      bool
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.status, "status", "", `filter by status ("To Do", "In Progress", "Review", "Completed")`)
	fs.StringVar(&f.priority, "priority", "", "filter by priority (Low, Medium, High, Urgent)")
	fs.StringVarP(&f.search, "search", "s", "", "search title and description")
	fs.StringVar(&f.sortBy, "sort-by", "", "sort key (createdAt, dueDate, priority)")
	fs.StringVar(&f.sortOrder, "order", "", "sort order (asc, desc)")
	fs.BoolVar(&f.assignedToMe, "assigned-to-me", false, "only tasks assigned to me")
	fs.BoolVar(&f.createdByMe, "created-by-me", false, "only tasks I created")
	fs.BoolVar(&f.overdue, "overdue", false, "only overdue tasks")
}

func (f *filterFlags) filters() models.TaskFilters {
	return models.TaskFilters{
		Status:       models.TaskStatus(f.status),
		Priority:     models.TaskPriority(f.priority),
		Search:       f.search,
		SortBy:       models.SortKey(f.sortBy),
		SortOrder:    models.SortOrder(f.sortOrder),
		AssignedToMe: f.assignedToMe,
		CreatedByMe:  f.createdByMe,
		Overdue:      f.overdue,
	}
}

func today() models.Date {
	return models.DateOf(time.Now())
}

func (c *CLI) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks",
	}
	cmd.AddCommand(c.tasksListCmd(), c.tasksCreateCmd(), c.tasksUpdateCmd(), c.tasksDeleteCmd(), c.tasksStatsCmd())
	return cmd
}

func (c *CLI) tasksListCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := c.app.Tasks.Handle(cmd.Context(), queries.GetTasksQuery{Filters: f.filters()})
			if err != nil {
				return err
			}
			return c.render(tasks, taskTable(tasks, today()))
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (c *CLI) tasksStatsCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count tasks by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.app.Tasks.Stats(cmd.Context(), f.filters(), today())
			if err != nil {
				return err
			}
			return c.render(stats, statsTable(stats))
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (c *CLI) tasksCreateCmd() *cobra.Command {
	var (
		data models.CreateTaskData
		due  string
		prio string
		stat string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if due != "" {
				d, err := models.ParseDate(due)
				if err != nil {
					return models.NewValidationError("dueDate", "date", "Due date must look like 2024-12-31")
				}
				data.DueDate = d
			}
			data.Priority = models.TaskPriority(prio)
			data.Status = models.TaskStatus(stat)

			task, err := c.app.CreateTask.Handle(cmd.Context(), commands.CreateTaskCommand{Data: data})
			if err != nil {
				return err
			}
			return c.render(task, taskTable([]models.Task{task}, today()))
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&data.Title, "title", "t", "", "task title")
	fs.StringVarP(&data.Description, "description", "d", "", "task description")
	fs.StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	fs.StringVar(&prio, "priority", string(models.PriorityMedium), "priority (Low, Medium, High, Urgent)")
	fs.StringVar(&stat, "status", "", "initial status")
	fs.StringVar(&data.AssigneeID, "assignee", "", "id of the user to assign")
	return cmd
}

func (c *CLI) tasksUpdateCmd() *cobra.Command {
	var (
		title, description, due, prio, stat, assignee string
	)
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			var data models.UpdateTaskData
			if fs.Changed("title") {
				data.Title = &title
			}
			if fs.Changed("description") {
				data.Description = &description
			}
			if fs.Changed("due") {
				d, err := models.ParseDate(due)
				if err != nil {
					return models.NewValidationError("dueDate", "date", "Due date must look like 2024-12-31")
				}
				data.DueDate = &d
			}
			if fs.Changed("priority") {
				p := models.TaskPriority(prio)
				data.Priority = &p
			}
			if fs.Changed("status") {
				s := models.TaskStatus(stat)
				data.Status = &s
			}
			if fs.Changed("assignee") {
				data.AssigneeID = &assignee
			}

			task, err := c.app.UpdateTask.Handle(cmd.Context(), commands.UpdateTaskCommand{TaskID: args[0], Data: data})
			if err != nil {
				return err
			}
			return c.render(task, taskTable([]models.Task{task}, today()))
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&title, "title", "t", "", "new title")
	fs.StringVarP(&description, "description", "d", "", "new description")
	fs.StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	fs.StringVar(&prio, "priority", "", "new priority")
	fs.StringVar(&stat, "status", "", "new status")
	fs.StringVar(&assignee, "assignee", "", "id of the user to assign")
	return cmd
}

func (c *CLI) tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.DeleteTask.Handle(cmd.Context(), commands.DeleteTaskCommand{TaskID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted task %s\n", args[0])
			return nil
		},
	}
}
