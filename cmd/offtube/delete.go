package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <video-id>",
	Short: "Soft-delete a video and remove its media file",
	Long: `Soft-delete a video: the media file is removed, the record stays
with its history, and future syncs will not resurrect it.

With --purge, the record itself is removed too; a later sync will treat
the video as brand new.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeleteCmd,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <video-id>",
	Short: "Undo a soft-delete",
	Long: `Undo a soft-delete. The video rejoins the catalog as pending and
the next download pass fetches it again.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestoreCmd,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)
	deleteCmd.Flags().Bool("purge", false, "Remove the record permanently")
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	oldPath, err := a.store.SoftDelete(id)
	if err != nil {
		return err
	}
	if oldPath != nil {
		if err := os.Remove(*oldPath); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not remove %s: %v\n", *oldPath, err)
		}
	}

	if purge, _ := cmd.Flags().GetBool("purge"); purge {
		if err := a.store.PermanentDelete(id); err != nil {
			return err
		}
		fmt.Printf("Permanently deleted %s\n", id)
		return nil
	}
	fmt.Printf("Deleted %s\n", id)
	return nil
}

func runRestoreCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Restore(args[0]); err != nil {
		return err
	}
	fmt.Printf("Restored %s\n", args[0])
	return nil
}
