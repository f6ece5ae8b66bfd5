package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewEventCmd создаёт группу команд для отправки событий.
func NewEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Submit events",
	}

	cmd.AddCommand(newEventSubmitCmd(clientFn, outputFn))

	return cmd
}

func newEventSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var kind string
	var branch string
	var revision string
	var runID string
	var paths []string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an event for trigger evaluation",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.SubmitEvent(SubmitEventRequest{
				Kind:         kind,
				Branch:       branch,
				Revision:     revision,
				RunID:        runID,
				ChangedPaths: paths,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event matched %d pipeline(s)", resp.Matched))

			headers := []string{"RUN_ID", "PIPELINE_ID", "VERSION", "STATUS"}
			rows := make([][]string, len(resp.Runs))
			for i, r := range resp.Runs {
				rows[i] = []string{r.ID, r.PipelineID, strconv.Itoa(r.Version), r.Status}
			}

			out.Print(headers, rows, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Event kind: pull_request, push, manual, schedule (required)")
	cmd.Flags().StringVar(&branch, "branch", "", "Target branch (required)")
	cmd.Flags().StringVar(&revision, "revision", "", "Source revision")
	cmd.Flags().StringVar(&runID, "run-id", "", "External run id used as the artifact run-key tag")
	cmd.Flags().StringSliceVar(&paths, "path", nil, "Changed path (repeatable)")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagRequired("branch")

	return cmd
}
