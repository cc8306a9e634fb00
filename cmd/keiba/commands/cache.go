package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or purge the Redis cache",
	}
	requireCache := func() error {
		if c.env.Cache == nil {
			return fmt.Errorf("cache requires REDIS_ENABLED=true")
		}
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Ping Redis",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := requireCache(); err != nil {
					return err
				}
				connected := c.env.Cache.IsConnected(cmd.Context())
				return c.render(cmd, map[string]bool{"connected": connected},
					table.Row{"connected"}, []table.Row{{connected}})
			},
		},
		&cobra.Command{
			Use:   "purge <product>",
			Short: "Delete every cached entry of one product (result, database, odds, race_ids, horse, umabashira, resolve)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireCache(); err != nil {
					return err
				}
				n, err := c.env.Cache.Purge(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return c.render(cmd, map[string]any{"product": args[0], "deleted": n},
					table.Row{"product", "deleted"}, []table.Row{{args[0], n}})
			},
		},
	)
	return cmd
}
