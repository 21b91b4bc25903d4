package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var watchedCmd = &cobra.Command{
	Use:   "watched <video-id>",
	Short: "Mark a video watched (or unwatched with --undo)",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchedCmd,
}

var positionCmd = &cobra.Command{
	Use:   "position <video-id> <seconds>",
	Short: "Record a playback position",
	Long: `Record a playback position. Crossing the completion threshold
marks the video watched and resets the position to zero.`,
	Args: cobra.ExactArgs(2),
	RunE: runPositionCmd,
}

func init() {
	rootCmd.AddCommand(watchedCmd)
	rootCmd.AddCommand(positionCmd)
	watchedCmd.Flags().Bool("undo", false, "Mark as unwatched")
}

func runWatchedCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	undo, _ := cmd.Flags().GetBool("undo")
	if err := a.store.SetWatched(args[0], !undo); err != nil {
		return err
	}
	if undo {
		fmt.Printf("Marked %s unwatched\n", args[0])
	} else {
		fmt.Printf("Marked %s watched\n", args[0])
	}
	return nil
}

func runPositionCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	secs, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[1])
	}
	if err := a.store.UpdatePlayback(args[0], secs); err != nil {
		return err
	}

	v, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	if v.Watched {
		fmt.Printf("%s: watched\n", v.VideoID)
	} else {
		fmt.Printf("%s: position %ds\n", v.VideoID, v.LastPositionSecs)
	}
	return nil
}
