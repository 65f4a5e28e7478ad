package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/render"
	"github.com/nhle/planeissues/internal/store"
)

func newUploadsCmd(a *app) *cobra.Command {
	var (
		issueID   string
		failed    bool
		reconcile bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Show the journal of upload attempts",
		Long: `Show recorded upload attempts, newest first.

Attempts marked "stored, not linked" wrote a file to storage but Plane never
acknowledged it. Upload the file again, then remove the entry with
"uploads delete ID".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.UploadFilter{
				FailedOnly:          failed,
				NeedsReconciliation: reconcile,
				Limit:               limit,
			}
			if issueID != "" {
				filter.IssueID = &issueID
			}

			records, err := a.journal.ListUploadRecords(cmd.Context(), filter)
			if err != nil {
				return fail("Failed to Read Upload Journal", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.UploadJournal(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&issueID, "issue", "", "Only attempts for this issue id")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed attempts")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Only attempts that stored a file without linking it")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of attempts to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show one upload attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.journal.GetUploadRecord(cmd.Context(), args[0])
			if err != nil {
				return fail("Failed to Read Upload Journal", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, render.UploadJournal([]model.UploadRecord{*rec}))
			if rec.Error != "" {
				fmt.Fprintln(out, "Error:", rec.Error)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Remove an upload attempt from the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.journal.DeleteUploadRecord(cmd.Context(), args[0]); err != nil {
				return fail("Failed to Update Upload Journal", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed upload attempt %s.\n", args[0])
			return nil
		},
	})

	return cmd
}
