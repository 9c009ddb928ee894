package client

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rzbill/inferq/internal/runtime"
)

// NewResultCommand constructs the `result` command group.
func NewResultCommand(load ConfigLoader) *cobra.Command {
	resultCmd := &cobra.Command{Use: "result", Short: "Result consumer helpers"}
	resultCmd.AddCommand(newResultTailCommand(load))
	return resultCmd
}

// newResultTailCommand constructs the `result tail` subcommand. It never
// acknowledges what it prints.
func newResultTailCommand(load ConfigLoader) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print results from the output stream as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cursor, _ := cmd.Flags().GetString("from")
			limit, _ := cmd.Flags().GetInt("limit")
			follow, _ := cmd.Flags().GetBool("follow")
			ctx := cmd.Context()
			enc := json.NewEncoder(cmd.OutOrStdout())
			return withRuntime(cmd, load, func(rt *runtime.Runtime) error {
				output := rt.Config().OutputStream
				printed := 0
				for limit == 0 || printed < limit {
					msgs, err := rt.Client().Read(ctx, output, cursor)
					if err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
					if len(msgs) == 0 {
						if !follow {
							return nil
						}
						continue
					}
					for _, m := range msgs {
						cursor = m.ID
						if err := enc.Encode(resultLine(rt.Codec(), m)); err != nil {
							return err
						}
						printed++
						if limit > 0 && printed >= limit {
							break
						}
					}
				}
				return nil
			})
		},
	}
	tailCmd.Flags().String("from", "", "Start after this message id (default: beginning of stream)")
	tailCmd.Flags().Int("limit", 0, "Stop after N results (0 = no limit)")
	tailCmd.Flags().BoolP("follow", "f", false, "Keep waiting for new results")
	return tailCmd
}
