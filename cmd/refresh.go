package cmd

import (
	"context"
	"fmt"
	"strconv"

	"segment-sync/feature/segments"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var refreshAll bool

// refreshCmd rebuilds segment membership once and exits.
var refreshCmd = &cobra.Command{
	Use:   "refresh [segment-id]",
	Short: "Refresh one segment or, with --all, every segment",
	Long: `Runs the segment definition, diffs it against the current membership and
propagates the difference to the member index and change queue.

Examples:
  # Refresh a single segment
  refresh 12

  # Refresh every segment, highest priority first
  refresh --all`,
	Args: func(cmd *cobra.Command, args []string) error {
		if refreshAll && len(args) > 0 {
			return fmt.Errorf("pass either a segment id or --all, not both")
		}
		if !refreshAll && len(args) != 1 {
			return fmt.Errorf("a segment id is required unless --all is set")
		}
		return nil
	},
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "Refresh every segment")
	RootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	db, err := rt.openDB()
	if err != nil {
		return err
	}

	feature := segments.NewFeature(db, rt.engine, rt.logger, rt.cfg.Segments)

	if refreshAll {
		sum, err := feature.Scheduler().RefreshAll(ctx)
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			return fmt.Errorf("%d of %d segments failed to refresh", sum.Failed, sum.Total)
		}
		return nil
	}

	id, err := parseSegmentID(args[0])
	if err != nil {
		return err
	}

	res, err := feature.Service().Refresh(ctx, id)
	if err != nil {
		return err
	}

	rt.logger.Info("Refresh complete",
		zap.String("segment_id", res.SegmentID),
		zap.Int64("cardinality", res.Cardinality),
		zap.Int64("added", res.Added),
		zap.Int64("removed", res.Removed),
		zap.Duration("duration", res.Duration),
	)
	return nil
}

func parseSegmentID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid segment id: %s", s)
	}
	return uint(id), nil
}
