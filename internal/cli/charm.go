package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

var (
	charmType  string
	charmLabel string
)

var charmCmd = &cobra.Command{
	Use:   "charm",
	Short: "Manage charms",
}

var charmCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a charm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		charm, err := c.CreateCharm(ctx, charmType, charmLabel)
		if err != nil {
			return fmt.Errorf("create charm: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s charm %s\n", charm.ProductType, charm.ID)
		return nil
	},
}

var charmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your charms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		charms, err := c.Charms(ctx)
		if err != nil {
			return fmt.Errorf("list charms: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(charms) == 0 {
			fmt.Fprintln(out, "No charms found.")
			return nil
		}
		for _, ch := range charms {
			fmt.Fprintf(out, "%s  %-6s  %s\n", ch.ID, ch.ProductType, ch.Label)
		}
		return nil
	},
}

func init() {
	charmCreateCmd.Flags().StringVar(&charmType, "type", "habit", "Product type: memory, life or habit")
	charmCreateCmd.Flags().StringVar(&charmLabel, "label", "", "Label shown in listings")

	charmCmd.AddCommand(charmCreateCmd)
	charmCmd.AddCommand(charmListCmd)
}
