package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/planeissues/internal/credential"
	"github.com/nhle/planeissues/internal/model"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store the Plane API key and project settings",
		Long: `Prompt for connection settings. The API key goes to the system keyring;
everything else is written to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := loginForm{
				workspace: a.cfg.Plane.WorkspaceSlug,
				projectID: a.cfg.Plane.ProjectID,
				baseURL:   a.cfg.Plane.BaseURL,
			}
			if err := form.build().Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
				return fail("Login Failed", err)
			}

			if err := credential.Set(credential.APIKeyName, form.apiKey); err != nil {
				return fail("Login Failed", err)
			}

			a.cfg.Plane.WorkspaceSlug = form.workspace
			a.cfg.Plane.ProjectID = form.projectID
			a.cfg.Plane.BaseURL = form.baseURL
			if err := model.SaveConfig(a.configPath, a.cfg); err != nil {
				return fail("Login Failed", err)
			}

			a.logger.Info("credentials saved", "config", a.configPath, "workspace", form.workspace)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s and the API key to the keyring.\n", a.configPath)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Plane API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(credential.APIKeyName); err != nil {
				return fail("Logout Failed", err)
			}
			a.logger.Info("credentials removed")
			fmt.Fprintln(cmd.OutOrStdout(), "Removed the API key from the keyring.")
			return nil
		},
	}
}
