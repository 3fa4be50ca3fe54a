package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/realtime"
	"github.com/Sontara444/taskmanager-client/services/queries"
)

func (c *CLI) watchCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:         "watch",
		Short:       "Keep a task list on screen and reprint it whenever the server reports a change",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationPush: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filters := f.filters()

			refresh := make(chan struct{}, 1)
			dispose := c.app.Tasks.Subscribe(filters, func(ev cache.Event) {
				if ev.Kind != cache.Invalidated {
					return
				}
				select {
				case refresh <- struct{}{}:
				default:
				}
			})
			defer dispose()

			stopState := c.app.Channel.OnStateChange(func(s realtime.State) {
				fmt.Fprintf(c.errOut, "push channel: %s\n", s)
			})
			defer stopState()

			for {
				tasks, err := c.app.Tasks.Handle(ctx, queries.GetTasksQuery{Filters: filters})
				if err != nil {
					fmt.Fprintf(c.errOut, "error: %v\n", err)
				} else if err := c.render(tasks, taskTable(tasks, today())); err != nil {
					return err
				}

				select {
				case <-ctx.Done():
					return nil
				case <-refresh:
				}
			}
		},
	}
	f.register(cmd.Flags())
	return cmd
}
