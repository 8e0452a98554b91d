package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"segment-sync/core/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportList bool

// exportCmd writes a segment's current membership to object storage.
var exportCmd = &cobra.Command{
	Use:   "export <segment-id>",
	Short: "Export a segment snapshot to object storage",
	Long: `Streams the current members of a segment into a new snapshot object and prunes
snapshots beyond STORAGE_KEEP. With --list, prints the stored snapshots instead.

Examples:
  export 12
  export 12 --list`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportList, "list", false, "List stored snapshots instead of exporting")
	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseSegmentID(args[0])
	if err != nil {
		return err
	}
	segmentID := strconv.FormatUint(uint64(id), 10)

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	exp, err := rt.exporter(ctx)
	if errors.Is(err, storage.ErrDisabled) {
		return fmt.Errorf("snapshots need STORAGE_ENDPOINT to be set")
	}
	if err != nil {
		return err
	}

	if exportList {
		list, err := exp.List(ctx, segmentID)
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", s.Object, s.Size, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	snap, err := exp.Export(ctx, segmentID)
	if err != nil {
		return err
	}

	rt.logger.Info("Export complete",
		zap.String("segment_id", snap.SegmentID),
		zap.String("object", snap.Object),
		zap.Int64("members", snap.Members),
	)
	return nil
}
