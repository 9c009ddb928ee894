package client

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rzbill/inferq/internal/codec"
	"github.com/rzbill/inferq/internal/runtime"
	"github.com/rzbill/inferq/pkg/id"
)

// NewJobCommand constructs the `job` command group.
func NewJobCommand(load ConfigLoader) *cobra.Command {
	jobCmd := &cobra.Command{Use: "job", Short: "Job producer helpers"}
	jobCmd.AddCommand(newJobSubmitCommand(load))
	return jobCmd
}

// newJobSubmitCommand constructs the `job submit` subcommand.
func newJobSubmitCommand(load ConfigLoader) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Encode a job and append it to the input stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			question, _ := cmd.Flags().GetString("question")
			qaContext, _ := cmd.Flags().GetString("context")
			jobID, _ := cmd.Flags().GetString("id")
			if question == "" {
				return errors.New("--question is required")
			}
			if jobID == "" {
				jobID = id.New().String()
			}
			return withRuntime(cmd, load, func(rt *runtime.Runtime) error {
				payload, err := rt.Codec().EncodeJob(codec.Job{JobID: jobID, Question: question, Context: qaContext})
				if err != nil {
					return err
				}
				input := rt.Config().InputStream
				msgID, err := rt.Client().Append(cmd.Context(), input, payload)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"stream": input,
					"id":     msgID,
					"job_id": jobID,
				})
			})
		},
	}
	submitCmd.Flags().String("question", "", "Question to answer (required)")
	submitCmd.Flags().String("context", "", "Context passage; blank uses the worker's default context")
	submitCmd.Flags().String("id", "", "Job id (default: a generated id)")
	return submitCmd
}
