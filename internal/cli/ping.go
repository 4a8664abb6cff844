package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/charmlink/internal/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the charmlink server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(), "", "")
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		if !c.Healthy(ctx) {
			return fmt.Errorf("server %s is not reachable", c.ServerURL())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "server %s is up\n", c.ServerURL())
		return nil
	},
}
