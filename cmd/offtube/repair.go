package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/offtube/offtube/internal/repair"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Reconcile the catalog with the files on disk",
	Long: `Walk the download directory against the catalog: completed videos
whose file vanished are reset to pending, and media files no record points
at are matched back to their video by title similarity.`,
	Args: cobra.NoArgs,
	RunE: runRepairCmd,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepairCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	report, err := repair.NewRepairer(a.store, a.cfg.Storage.DownloadDir, a.log).Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(report)
		return nil
	}
	for _, id := range report.ResetMissing {
		fmt.Printf("reset to pending (file missing): %s\n", id)
	}
	for _, m := range report.Reattached {
		fmt.Printf("reattached: %s <- %s (%.2f)\n", m.VideoID, m.FilePath, m.Score)
	}
	for _, path := range report.Unmatched {
		fmt.Printf("unmatched file: %s\n", path)
	}
	fmt.Printf("Repair: %d reset, %d reattached, %d unmatched\n",
		len(report.ResetMissing), len(report.Reattached), len(report.Unmatched))
	return nil
}
