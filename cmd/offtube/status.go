package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [video-id]",
	Short: "Sync state, or the state of one video",
	Long: `Without arguments, shows sync state and catalog counters.
With a video id, shows that video's record.

With --remote, also queries the remote service for its queue and the
downloads it is currently running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("remote", false, "Include remote queue/active state")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if len(args) == 1 {
		v, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(v)
			return nil
		}
		fmt.Printf("%s  %q\n", v.VideoID, v.Title)
		fmt.Printf("  status:   %s (%.0f%%)\n", v.DownloadStatus, v.DownloadProgress*100)
		if v.FilePath != nil {
			fmt.Printf("  file:     %s\n", *v.FilePath)
		}
		fmt.Printf("  watched:  %v (position %ds)\n", v.Watched, v.LastPositionSecs)
		if v.IsDeleted {
			fmt.Printf("  deleted:  %v\n", v.DeletedAt)
		}
		return nil
	}

	st, err := a.store.SyncState()
	if err != nil {
		return err
	}

	remote, _ := cmd.Flags().GetBool("remote")
	if jsonOutput && !remote {
		printJSON(st)
		return nil
	}

	fmt.Printf("Playlist:   %s\n", orDash(st.RemotePlaylistID))
	if st.LastFullSyncAt != nil {
		fmt.Printf("Last sync:  %s\n", st.LastFullSyncAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Last sync:  never")
	}
	fmt.Printf("Syncing:    %v\n", st.IsSyncing)
	if st.LastError != nil {
		fmt.Printf("Last error: %s\n", *st.LastError)
	}
	fmt.Printf("Videos:     %d total, %d downloaded, %d watched\n",
		st.TotalVideosInPlaylist, st.DownloadedVideos, st.WatchedVideos)

	if !remote {
		return nil
	}

	if err := a.client.Health(ctx); err != nil {
		fmt.Printf("\nRemote:     unreachable (%v)\n", err)
		return nil
	}
	snap, err := a.client.Queue(ctx)
	if err != nil {
		return err
	}
	active, err := a.client.Active(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nRemote:     healthy\n")
	fmt.Printf("Active:     %d", len(active))
	for _, id := range active {
		fmt.Printf("  %s", id)
	}
	fmt.Println()
	fmt.Printf("Queued:     %d\n", len(snap.Queued))
	for _, item := range snap.Queued {
		fmt.Printf("  #%d %s\n", item.Position, item.VideoID)
	}
	fmt.Printf("Cached:     %d\n", len(snap.Cached))
	return nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
