package client

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/inferq/internal/runtime"
)

// NewStreamCommand constructs the `stream` command group and subcommands.
func NewStreamCommand(load ConfigLoader) *cobra.Command {
	streamCmd := &cobra.Command{Use: "stream", Short: "Stream operations"}
	streamCmd.AddCommand(
		newStreamAckCommand(load),
		newStreamLenCommand(load),
	)
	return streamCmd
}

// newStreamAckCommand constructs the `stream ack` subcommand.
func newStreamAckCommand(load ConfigLoader) *cobra.Command {
	ackCmd := &cobra.Command{
		Use:   "ack",
		Short: "Acknowledge (delete) a message by id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("stream")
			msgID, _ := cmd.Flags().GetString("id")
			if msgID == "" {
				return errors.New("--id is required")
			}
			return withRuntime(cmd, load, func(rt *runtime.Runtime) error {
				if name == "" {
					name = rt.Config().InputStream
				}
				if err := rt.Client().Ack(cmd.Context(), name, msgID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "acked %s/%s\n", name, msgID)
				return nil
			})
		},
	}
	ackCmd.Flags().String("stream", "", "Stream name (default: the input stream)")
	ackCmd.Flags().String("id", "", "Message id (required)")
	return ackCmd
}

// newStreamLenCommand constructs the `stream len` subcommand.
func newStreamLenCommand(load ConfigLoader) *cobra.Command {
	lenCmd := &cobra.Command{
		Use:   "len",
		Short: "Print the number of unacknowledged entries in the input and output streams",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("stream")
			return withRuntime(cmd, load, func(rt *runtime.Runtime) error {
				names := []string{rt.Config().InputStream, rt.Config().OutputStream}
				if name != "" {
					names = []string{name}
				}
				for _, s := range names {
					n, err := rt.Client().Len(cmd.Context(), s)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", s, n)
				}
				return nil
			})
		},
	}
	lenCmd.Flags().String("stream", "", "Stream name (default: both input and output)")
	return lenCmd
}
