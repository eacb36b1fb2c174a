package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"treasury/internal/compliance/models"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "reconcile [record-id]",
		Short: "Mark a record, or a batch of pending records, reconciled",
		Long: `Mark a record reconciled at the current time.

With --pending, reconcile up to reconcile.batch_size unreconciled records,
oldest first, all at the same instant.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if pending {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pending {
				return runReconcilePending(cmd, rootOpts)
			}
			return runReconcile(cmd, rootOpts, args[0])
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "reconcile a batch of unreconciled records")

	return cmd
}

func runReconcile(cmd *cobra.Command, opts *RootOptions, recordID string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.service.Reconcile(cmd.Context(), recordID)
	if err != nil {
		return commandFailure(formatter, err)
	}
	return formatter.Success(rec.ToMap(), reconciledText(rec))
}

// reconciledText renders the outcome of a single reconcile. A record stamped
// at or before the epoch has no ISO time.
func reconciledText(rec *models.ComplianceRecord) string {
	if rec.ReconciledAtISO == nil {
		return fmt.Sprintf("%s reconciled (reconciledAt %d)", rec.RecordID, rec.ReconciledAt)
	}
	return fmt.Sprintf("%s reconciled at %s", rec.RecordID, rec.ReconciledAtISO.Format(time.RFC3339))
}

func runReconcilePending(cmd *cobra.Command, opts *RootOptions) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.service.ReconcilePending(cmd.Context())
	if err != nil {
		return commandFailure(formatter, err)
	}
	return formatter.Success(map[string]int{"reconciled": n}, fmt.Sprintf("%d records reconciled", n))
}
