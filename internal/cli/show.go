package cli

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"

	dErrors "treasury/pkg/domain-errors"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <record-id>",
		Short:         "Print the interchange document of a stored record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runShow(cmd *cobra.Command, opts *RootOptions, recordID string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.service.Export(cmd.Context(), recordID)
	if err != nil {
		return commandFailure(formatter, err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		return WrapExitError(ExitCommandError, "format record", err)
	}
	return formatter.Success(json.RawMessage(doc), pretty.String())
}

// commandFailure writes err and converts it to an exit code: rejected
// input exits with ExitFailure, everything else with ExitCommandError.
func commandFailure(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(err)
	code := ExitCommandError
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		code = ExitFailure
	}
	return WrapExitError(code, "command failed", err)
}
