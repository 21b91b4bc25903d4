package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the playlist snapshot against the catalog",
	Long: `Reconcile the playlist snapshot against the local catalog: new
videos become pending, failed and stuck downloads are reset, soft-deleted
videos stay deleted.

With --download, pending videos are downloaded after the reconcile.`,
	Args: cobra.NoArgs,
	RunE: runSyncCmd,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("download", false, "Download pending videos after sync")
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.source()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	remote, err := src.Fetch(ctx)
	if err != nil {
		return err
	}

	withDownload, _ := cmd.Flags().GetBool("download")
	res := a.engine().Reconcile(ctx, remote, withDownload)
	if res.Err != nil {
		return fmt.Errorf("sync failed: %w", res.Err)
	}

	if jsonOutput {
		printJSON(map[string]any{
			"total_videos":      res.TotalVideos,
			"new_videos":        res.NewVideos,
			"pending_downloads": res.PendingDownloads,
		})
	} else {
		fmt.Printf("Synced %d videos (%d new, %d pending download)\n",
			res.TotalVideos, res.NewVideos, res.PendingDownloads)
	}

	if res.Downloads != nil {
		batch, err := res.Downloads.Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Downloads: %d completed, %d failed, %d skipped\n",
			batch.Completed, batch.Failed, batch.Skipped)
	}
	return nil
}
