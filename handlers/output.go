package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/Sontara444/taskmanager-client/models"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// render writes v as JSON or YAML, or calls table for the table format.
func (c *CLI) render(v any, table func(w io.Writer) error) error {
	switch c.output {
	case outputJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	if err := table(tw); err != nil {
		return err
	}
	return tw.Flush()
}

func taskTable(tasks []models.Task, today models.Date) func(io.Writer) error {
	return func(w io.Writer) error {
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tASSIGNEE")
		for _, t := range tasks {
			due := t.DueDate.String()
			if t.IsOverdue(today) {
				due += " (overdue)"
			}
			assignee := "-"
			if t.Assignee != nil {
				assignee = t.Assignee.DisplayName()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, due, assignee)
		}
		return nil
	}
}

func userTable(users []models.User) func(io.Writer) error {
	return func(w io.Writer) error {
		fmt.Fprintln(w, "ID\tNAME\tEMAIL")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
		}
		return nil
	}
}

func notificationTable(list []models.Notification) func(io.Writer) error {
	return func(w io.Writer) error {
		fmt.Fprintln(w, "ID\tREAD\tCREATED\tMESSAGE")
		for _, n := range list {
			read := "no"
			if n.IsRead {
				read = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, read, n.CreatedAt.Format("2006-01-02 15:04"), n.Message)
		}
		return nil
	}
}

func statsTable(stats models.TaskStats) func(io.Writer) error {
	return func(w io.Writer) error {
		fmt.Fprintf(w, "Total\t%d\n", stats.Total)
		for _, s := range models.Statuses {
			fmt.Fprintf(w, "%s\t%d\n", s, stats.TasksByStatus[s])
		}
		fmt.Fprintf(w, "Overdue\t%d\n", stats.Overdue)
		return nil
	}
}

func userLine(u models.User) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s <%s>\t%s\n", u.Name, u.Email, u.ID)
		return err
	}
}
