package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/Sontara444/taskmanager-client/app"
	"github.com/Sontara444/taskmanager-client/config"
	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
)

// Command annotations read by the root command before every run.
const (
	annotationAuth = "auth" // "none" skips session restore
	annotationPush = "push" // "true" opens the push channel
)

// CLI holds the state shared by every command of one invocation.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	envFile    string
	configFile string
	output     string
	logLevel   string

	app *app.App
	// Prompt reads a secret from the terminal. Tests replace it.
	Prompt func(label string) (string, error)
}

func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{out: out, errOut: errOut, Prompt: promptPassword}
}

// NewRootCommand builds the command tree.
func (c *CLI) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskmanager",
		Short:         "Command line client for the task manager backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&c.configFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVarP(&c.output, "output", "o", "table", "output format: table, json or yaml")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (defaults to the configured level)")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.profileCmd(),
		c.usersCmd(),
		c.tasksCmd(),
		c.notificationsCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *CLI) setup(cmd *cobra.Command) error {
	switch c.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.output)
	}

	cfg, err := config.Load(c.envFile, c.configFile)
	if err != nil {
		return err
	}

	level := c.logLevel
	if level == "" {
		level = cfg.LogLevel
		if cfg.LogFile == "" {
			// Keep stderr quiet for interactive use.
			level = "warn"
		}
	}
	if err := logging.InitLogger(logging.Options{SystemName: "taskmanager-cli", File: cfg.LogFile, Level: level, Output: logOutput(cfg, c.errOut)}); err != nil {
		return err
	}

	opts := []app.Option{app.WithNotificationHandler(func(n models.PushNotification) {
		fmt.Fprintf(c.out, "notification: %s\n", n.Message)
	})}
	if cmd.Annotations[annotationPush] != "true" {
		opts = append(opts, app.WithoutPush())
	}
	a, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	c.app = a

	if cmd.Annotations[annotationAuth] == "none" {
		return nil
	}
	if _, err := a.Session.Restore(cmd.Context()); err != nil {
		if errors.Is(err, models.ErrNotAuthenticated) {
			return errors.New("not logged in, run \"taskmanager login\" first")
		}
		return err
	}
	return nil
}

func logOutput(cfg *config.Config, errOut io.Writer) io.Writer {
	if cfg.LogFile != "" {
		return nil
	}
	return errOut
}

func promptPassword(label string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	pw, err := line.PasswordPrompt(label)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", errors.New("aborted")
		}
		return "", err
	}
	return pw, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	c := NewCLI(os.Stdout, os.Stderr)
	root := c.NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
