package handlers

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sontara444/taskmanager-client/services/commands"
)

func (c *CLI) notificationsCmd() *cobra.Command {
	var unreadOnly bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "List notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.app.Notifications.Handle(cmd.Context())
			if err != nil {
				return err
			}
			if unreadOnly {
				filtered := list[:0:0]
				for _, n := range list {
					if !n.IsRead {
						filtered = append(filtered, n)
					}
				}
				list = filtered
			}
			return c.render(list, notificationTable(list))
		},
	}
	cmd.Flags().BoolVarP(&unreadOnly, "unread", "u", false, "only unread notifications")
	cmd.AddCommand(c.notificationReadCmd(), c.notificationReadAllCmd(), c.notificationCountCmd())
	return cmd
}

func (c *CLI) notificationReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.app.MarkRead.Handle(cmd.Context(), commands.MarkNotificationReadCommand{NotificationID: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Marked %s as read\n", n.ID)
			return nil
		},
	}
}

func (c *CLI) notificationReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.MarkAllRead.Handle(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "All notifications marked as read")
			return nil
		},
	}
}

func (c *CLI) notificationCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of unread notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.app.Notifications.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(map[string]int{"unread": n}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d\n", n)
				return err
			})
		},
	}
}
