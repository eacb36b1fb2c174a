package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	dErrors "treasury/pkg/domain-errors"
	"treasury/pkg/requestcontext"
)

// IngestResult reports the outcome of one record in an ingest batch.
type IngestResult struct {
	Index    int    `json:"index"`
	RecordID string `json:"recordId"`
	Status   string `json:"status"` // "stored" | "rejected"
	Error    string `json:"error,omitempty"`
	Field    string `json:"field,omitempty"`
}

// IngestSummary is the output of the ingest command.
type IngestSummary struct {
	BatchID  string         `json:"batchId"`
	Stored   int            `json:"stored"`
	Rejected int            `json:"rejected"`
	Results  []IngestResult `json:"results"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Validate and store compliance records from a JSON or YAML file",
		Long: `Validate and store compliance records.

The file holds one record or a list of records. Files ending in .yaml or
.yml are read as YAML, anything else as JSON; "-" reads JSON from stdin.
Every record is attempted; the command fails if any record is rejected.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runIngest(cmd *cobra.Command, opts *RootOptions, path string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	raws, err := readRawRecords(path, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(err)
		return WrapExitError(ExitCommandError, "read input", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	summary := IngestSummary{BatchID: uuid.NewString()}
	ctx = requestcontext.WithBatchID(ctx, summary.BatchID)

	for i, raw := range raws {
		result := IngestResult{Index: i, RecordID: raw.RecordID, Status: "stored"}
		if _, err := a.service.Ingest(ctx, raw); err != nil {
			result.Status = "rejected"
			result.Error = err.Error()
			if de, ok := dErrors.As(err); ok {
				result.Field = de.Field
			}
			summary.Rejected++
		} else {
			summary.Stored++
		}
		summary.Results = append(summary.Results, result)
	}

	if err := formatter.Success(summary, ingestText(summary)); err != nil {
		return err
	}
	if summary.Rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d records rejected", summary.Rejected, len(raws)))
	}
	return nil
}

func ingestText(s IngestSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch %s: %d stored, %d rejected", s.BatchID, s.Stored, s.Rejected)
	for _, r := range s.Results {
		if r.Status == "rejected" {
			fmt.Fprintf(&b, "\n  [%d] %s: %s", r.Index, r.RecordID, r.Error)
		}
	}
	return b.String()
}
