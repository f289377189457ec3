package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dakshkarigar/marketplace-api/internal/events"
)

func newReassignCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reassign",
		Short: "Run one reassignment cycle and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			ctx, cancel := contextWithTimeout(cmd, cfg.Reassignment.CycleTimeout)
			defer cancel()

			pool, err := openPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			publisher, err := events.New(cfg.Events, logger)
			if err != nil {
				return err
			}
			defer publisher.Close()

			svcs := newServices(pool, cfg, logger, publisher, nil)
			report, err := svcs.reassignment.RunCycle(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}
}
