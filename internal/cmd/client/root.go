package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the inferq client helpers.
// It registers the job, result and stream command groups.
func NewRoot(load ConfigLoader) *cobra.Command {
	root := &cobra.Command{
		Use:   "inferq",
		Short: "inferq client commands",
	}
	root.AddCommand(NewJobCommand(load))
	root.AddCommand(NewResultCommand(load))
	root.AddCommand(NewStreamCommand(load))
	return root
}
