package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/offtube/offtube/internal/catalog"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <video-id>",
	Short: "Reset a video stuck in downloading back to pending",
	Long: `Reset a video whose status is stuck at downloading back to pending.

Downloads running in this process are cancelled with Ctrl-C; this command
recovers records left behind when a previous run was killed outright.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancelCmd,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancelCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	if v.DownloadStatus != catalog.StatusDownloading {
		return fmt.Errorf("video %s is %s, nothing to cancel", v.VideoID, v.DownloadStatus)
	}
	if err := a.store.ResetPending(v); err != nil {
		return err
	}
	fmt.Printf("Reset %s to pending\n", v.VideoID)
	return nil
}
