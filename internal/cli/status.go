package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"treasury/internal/compliance/models"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	req := &models.UpdateStatusRequest{}

	cmd := &cobra.Command{
		Use:   "status <record-id>",
		Short: "Overwrite the KYC and AML status of a record",
		Long: `Overwrite the KYC and AML status of a record.

Both statuses are required. --gateway-tx-id and --transparency-id set the
external identifiers; omitting them keeps the stored values.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, rootOpts, args[0], req)
		},
	}
	cmd.Flags().StringVar(&req.KYCStatus, "kyc", "", "KYC status (PENDING|VERIFIED|REJECTED|EXEMPT|UNKNOWN)")
	cmd.Flags().StringVar(&req.AMLStatus, "aml", "", "AML status (PENDING|VERIFIED|REJECTED|EXEMPT|UNKNOWN)")
	cmd.Flags().StringVar(&req.CircleGatewayTxID, "gateway-tx-id", "", "Circle Gateway transaction id")
	cmd.Flags().StringVar(&req.ArcTransparencyID, "transparency-id", "", "Arc transparency id")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *RootOptions, recordID string, req *models.UpdateStatusRequest) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.service.UpdateComplianceStatus(cmd.Context(), recordID, req)
	if err != nil {
		return commandFailure(formatter, err)
	}
	text := fmt.Sprintf("%s kyc=%s aml=%s", rec.RecordID, rec.KYCStatus, rec.AMLStatus)
	return formatter.Success(rec.ToMap(), text)
}
