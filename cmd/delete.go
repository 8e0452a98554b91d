package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"segment-sync/feature/segments"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	yesConfirm bool
	indexOnly  bool
)

// deleteCmd tears a segment down.
var deleteCmd = &cobra.Command{
	Use:   "delete <segment-id>",
	Short: "Delete a segment and retract it from every member",
	Long: `Queues every current member as changed, removes the segment from each member's
index entry and deletes the live set. Unless --index-only is set the catalog row is removed too.

Examples:
  # Delete with interactive confirmation
  delete 12

  # Only clear the index (e.g. the catalog row is already gone)
  delete 12 --index-only --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	deleteCmd.Flags().BoolVar(&indexOnly, "index-only", false, "Tear down the index without touching the catalog")
	RootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseSegmentID(args[0])
	if err != nil {
		return err
	}

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	if !confirmDestructiveAction() {
		rt.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	if indexOnly {
		n, err := rt.engine.Delete(ctx, strconv.FormatUint(uint64(id), 10))
		if err != nil {
			return err
		}
		rt.logger.Info("Segment index removed", zap.Uint("segment_id", id), zap.Int64("members", n))
		return nil
	}

	db, err := rt.openDB()
	if err != nil {
		return err
	}
	return segments.NewFeature(db, rt.engine, rt.logger, rt.cfg.Segments).Service().Delete(ctx, id)
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
