package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/offtube/offtube/internal/download"
	"github.com/offtube/offtube/internal/fetch"
)

var downloadCmd = &cobra.Command{
	Use:   "download [video-id]",
	Short: "Download a single video, or all pending videos",
	Long: `Download one video by id, or with no argument run the batch pass
over every pending/failed, non-deleted, unwatched video in playlist order.

Ctrl-C cancels the in-flight download; an interrupted video goes back to
pending and is picked up by the next pass.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownloadCmd,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().String("quality", "", "Override quality (max, 1080, 720, 360)")
}

func runDownloadCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	quality := fetch.Quality("")
	if q, _ := cmd.Flags().GetString("quality"); q != "" {
		if quality, err = fetch.ParseQuality(q); err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	if len(args) == 0 {
		res, err := a.orch.DownloadPending(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(res)
		} else {
			fmt.Printf("Batch: %d total, %d completed, %d failed, %d cancelled, %d skipped\n",
				res.Total, res.Completed, res.Failed, res.Cancelled, res.Skipped)
		}
		return nil
	}

	v, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	if v.IsDeleted {
		return fmt.Errorf("video %s is deleted; restore it first", v.VideoID)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		showProgress(a.orch, v.VideoID)
	}()

	path, err := a.orch.DownloadWithRetry(ctx, v, quality)
	wg.Wait()
	switch {
	case err == nil:
		fmt.Printf("\nDownloaded to %s\n", path)
		return nil
	case errors.Is(err, download.ErrCancelled):
		fmt.Println("\nCancelled")
		return nil
	case errors.Is(err, download.ErrPolicyDenied):
		fmt.Println("\nSkipped: network policy does not allow downloading right now")
		return nil
	default:
		return err
	}
}

// showProgress renders a terminal progress bar from the video's tracker.
func showProgress(orch *download.Orchestrator, videoID string) {
	// The tracker appears once the download starts.
	t := orch.Tracker(videoID)
	for i := 0; t == nil && i < 100; i++ {
		time.Sleep(50 * time.Millisecond)
		t = orch.Tracker(videoID)
	}
	if t == nil {
		return
	}

	bar := progressbar.NewOptions(1000,
		progressbar.OptionSetDescription(videoID),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	for ev := range t.Events() {
		_ = bar.Set(int(ev.Value * 1000))
	}
	_ = bar.Finish()
}
