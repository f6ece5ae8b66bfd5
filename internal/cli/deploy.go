package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeployCmd создаёт группу команд для управления deployments.
func NewDeployCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Manage deployments",
	}

	cmd.AddCommand(
		newDeployShowCmd(clientFn, outputFn),
		newDeployHistoryCmd(clientFn, outputFn),
		newDeployRollbackCmd(clientFn, outputFn),
	)

	return cmd
}

func newDeployShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show deployment state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			dep, err := client.GetDeployment(args[0])
			if err != nil {
				return err
			}

			ref, state, appliedAt := "", "", ""
			if dep.Current != nil {
				ref, state, appliedAt = dep.Current.Ref, dep.Current.State, dep.Current.AppliedAt
			}

			out.Print(
				[]string{"NAME", "REF", "STATE", "APPLIED"},
				[][]string{{dep.Name, orDash(ref), orDash(state), orDash(appliedAt)}},
				dep,
			)
			return nil
		},
	}
}

func newDeployHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "history NAME",
		Short: "Show rollout history of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			dep, err := client.GetDeployment(args[0])
			if err != nil {
				return err
			}

			headers := []string{"REF", "STATE", "APPLIED"}
			rows := make([][]string, len(dep.History))
			for i, rec := range dep.History {
				rows[i] = []string{rec.Ref, rec.State, rec.AppliedAt}
			}

			out.Print(headers, rows, dep.History)
			return nil
		},
	}
}

func newDeployRollbackCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback NAME",
		Short: "Roll a deployment back to the previous rollout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.RollbackDeployment(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Deployment %s rolled back to %s (%d replicas replaced)",
				result.Deployment, result.Ref, result.Replaced))
			out.Print(
				[]string{"DEPLOYMENT", "REF", "STATE", "REPLACED"},
				[][]string{{result.Deployment, result.Ref, result.State, fmt.Sprintf("%d", result.Replaced)}},
				result,
			)
			return nil
		},
	}
}
