package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/render"
	"github.com/nhle/planeissues/internal/source"
)

func invalidInput(phase source.Phase, err error) error {
	return &source.ValidationError{Phase: phase, Message: err.Error(), Err: err}
}

func newCreateIssueCmd(a *app) *cobra.Command {
	var (
		form        issueForm
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "create-issue",
		Short: "Create a new issue in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive || form.title == "" {
				if err := form.build().Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
						return nil
					}
					return fail("Failed to Create Issue", err)
				}
			}

			priority, err := model.ParsePriority(form.priority)
			if err != nil {
				return fail("Failed to Create Issue", invalidInput(source.PhaseCreateIssue, err))
			}

			tracker, err := a.connect()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			raw, err := tracker.CreateIssue(ctx, form.title, form.description, priority)
			if err != nil {
				return fail("Failed to Create Issue", err)
			}

			issue, err := tracker.GetIssueByID(ctx, raw.ID)
			if err != nil {
				a.logger.Warn("reloading created issue failed", "issue_id", raw.ID, "error", err)
				issue = &model.EnrichedIssue{
					RawIssue:    *raw,
					StateDetail: model.UnknownState,
					FormattedID: fmt.Sprintf("#%d", raw.SequenceID),
					Description: form.description,
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.CreatedIssue(issue, tracker))
			return nil
		},
	}

	cmd.Flags().StringVarP(&form.title, "title", "t", "", "Issue title")
	cmd.Flags().StringVarP(&form.description, "description", "d", "", "Issue description")
	cmd.Flags().StringVarP(&form.priority, "priority", "p", string(model.PriorityNone),
		"Priority: urgent, high, medium, low or none")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the issue with a form")

	return cmd
}

func newGetIssuesCmd(a *app) *cobra.Command {
	var (
		state    string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "get-issues",
		Short: "List the newest issues of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := model.IssueFilter{StateNameContains: state}
			if priority != "" {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return fail("Failed to Fetch Issues", invalidInput(source.PhaseListIssues, err))
				}
				filter.Priority = p
			}

			tracker, err := a.connect()
			if err != nil {
				return err
			}

			page, err := tracker.ListIssues(cmd.Context(), filter)
			if err != nil {
				return fail("Failed to Fetch Issues", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.IssueList(page, tracker))
			return nil
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "", "Only issues whose state name contains this text")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Only issues with this priority")

	return cmd
}

func newViewIssueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "view-issue ISSUE",
		Short:   "Show one issue by its id, e.g. WEB-42 or 42",
		Args:    cobra.ExactArgs(1),
		Example: "  planeissues view-issue WEB-42",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := a.connect()
			if err != nil {
				return err
			}

			issue, err := tracker.GetIssueBySequenceID(cmd.Context(), args[0])
			if err != nil {
				return fail("Failed to Fetch Issue", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.IssueDetail(issue, tracker))
			return nil
		},
	}
}
