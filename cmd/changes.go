package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"segment-sync/core/broker"
	"segment-sync/core/rows"
	"segment-sync/feature/changes"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var changesLimit int

// changesCmd is the parent command for change queue operations.
var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Inspect and acknowledge the change queue",
}

var changesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print queued members with their current segments as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		n := 0
		for member, err := range rt.store.DrainChanged(ctx) {
			if err != nil {
				return err
			}
			segs, err := rt.store.MemberSegments(ctx, member)
			if err != nil {
				return err
			}
			if err := enc.Encode(changes.Message{MemberID: member, Segments: segs}); err != nil {
				return err
			}
			n++
			if changesLimit > 0 && n >= changesLimit {
				break
			}
		}
		return nil
	},
}

var changesAckCmd = &cobra.Command{
	Use:   "ack <member-id>...",
	Short: "Remove members from the change queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		for _, arg := range args {
			member, ok := rows.IsValidMemberID(arg)
			if !ok {
				return fmt.Errorf("invalid member id: %s", arg)
			}
			if err := rt.store.AckChanged(ctx, member); err != nil {
				return err
			}
		}
		rt.logger.Info("Acknowledged members", zap.Int("count", len(args)))
		return nil
	},
}

var changesPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the change queue to NATS once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		conn, err := broker.Connect(rt.cfg.NATS)
		if err != nil {
			return err
		}
		defer conn.Close()

		n, err := changes.NewRelay(rt.store, conn, rt.cfg.NATS, rt.logger).Flush(ctx)
		if err != nil {
			return err
		}
		rt.logger.Info("Published membership changes", zap.Int("members", n), zap.String("subject", rt.cfg.NATS.Subject))
		return nil
	},
}

func init() {
	changesListCmd.Flags().IntVar(&changesLimit, "limit", 0, "Maximum members to print (0 for all)")

	changesCmd.AddCommand(changesListCmd)
	changesCmd.AddCommand(changesAckCmd)
	changesCmd.AddCommand(changesPublishCmd)
	RootCmd.AddCommand(changesCmd)
}
