package handlers

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sontara444/taskmanager-client/models"
)

func (c *CLI) password(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if c.Prompt == nil {
		return "", errors.New("password is required")
	}
	return c.Prompt("Password: ")
}

func (c *CLI) loginCmd() *cobra.Command {
	var data models.LoginData
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in and store the session token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationAuth: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := c.password(data.Password)
			if err != nil {
				return err
			}
			data.Password = pw

			user, err := c.app.Session.Login(cmd.Context(), data)
			if err != nil {
				return err
			}
			return c.render(user, userLine(user))
		},
	}
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&data.Password, "password", "p", "", "account password (prompted when empty)")
	return cmd
}

func (c *CLI) registerCmd() *cobra.Command {
	var data models.RegisterData
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account and sign in",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationAuth: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := c.password(data.Password)
			if err != nil {
				return err
			}
			data.Password = pw

			user, err := c.app.Session.Register(cmd.Context(), data)
			if err != nil {
				return err
			}
			return c.render(user, userLine(user))
		},
	}
	cmd.Flags().StringVarP(&data.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&data.Password, "password", "p", "", "account password (prompted when empty)")
	return cmd
}

func (c *CLI) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func (c *CLI) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, ok := c.app.Session.CurrentUser()
			if !ok {
				return models.ErrNotAuthenticated
			}
			return c.render(user, userLine(user))
		},
	}
}

func (c *CLI) profileCmd() *cobra.Command {
	var data models.ProfileData
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the signed in user's name and email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, ok := c.app.Session.CurrentUser()
			if !ok {
				return models.ErrNotAuthenticated
			}
			if !cmd.Flags().Changed("name") {
				data.Name = current.Name
			}
			if !cmd.Flags().Changed("email") {
				data.Email = current.Email
			}

			user, err := c.app.Session.UpdateProfile(cmd.Context(), data)
			if err != nil {
				return err
			}
			return c.render(user, userLine(user))
		},
	}
	cmd.Flags().StringVarP(&data.Name, "name", "n", "", "new display name")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "new email")
	return cmd
}

func (c *CLI) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the users tasks can be assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := c.app.Users.Handle(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(users, userTable(users))
		},
	}
}
