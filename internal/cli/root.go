package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/render"
	"github.com/nhle/planeissues/internal/source"
)

// commandError carries the title shown above a failed command's message.
type commandError struct {
	title string
	err   error
}

func (e *commandError) Error() string { return e.title + ": " + e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func fail(title string, err error) error {
	return &commandError{title: title, err: err}
}

// newRootCmd builds the command tree around a fresh app.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "planeissues",
		Short: "Work with Plane issues from the terminal",
		Long: `planeissues lists, creates and inspects issues of one Plane project
and attaches files to them.

Configuration is read from ~/.config/planeissues/config.yaml, a .env file
and the environment (PLANE_API_KEY, WORKSPACE_SLUG, PROJECT_ID, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newCreateIssueCmd(a))
	rootCmd.AddCommand(newGetIssuesCmd(a))
	rootCmd.AddCommand(newViewIssueCmd(a))
	rootCmd.AddCommand(newUploadFileCmd(a))
	rootCmd.AddCommand(newUploadsCmd(a))
	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))

	return rootCmd, a
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, a := newRootCmd()
	rootCmd.Version = version
	defer a.close()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	title := "Error"
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		title = cmdErr.title
	}
	if a.logger != nil {
		a.logger.Error("command failed", "error", err, "phase", source.PhaseOf(err))
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), render.Failure(title, err))
	return err
}
