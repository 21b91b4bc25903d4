package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/offtube/offtube/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog videos",
	Args:  cobra.NoArgs,
	RunE:  runListCmd,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("status", "", "Filter by status (pending, downloading, completed, failed)")
	listCmd.Flags().Bool("deleted", false, "Show soft-deleted videos instead")
	listCmd.Flags().Bool("watched", false, "Only watched videos")
	listCmd.Flags().Bool("pending", false, "Only videos eligible for download")
}

func runListCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var f catalog.Filter
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		status := catalog.Status(s)
		switch status {
		case catalog.StatusPending, catalog.StatusDownloading, catalog.StatusCompleted, catalog.StatusFailed:
		default:
			return fmt.Errorf("invalid status %q", s)
		}
		f.Status = &status
	}
	deleted, _ := cmd.Flags().GetBool("deleted")
	f.Deleted = &deleted
	if w, _ := cmd.Flags().GetBool("watched"); w {
		f.Watched = &w
	}
	f.Downloadable, _ = cmd.Flags().GetBool("pending")

	videos, err := a.store.List(f)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(videos)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO ID\tSTATUS\tPROGRESS\tWATCHED\tTITLE")
	for _, v := range videos {
		watched := ""
		if v.Watched {
			watched = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%3.0f%%\t%s\t%s\n",
			v.VideoID, v.DownloadStatus, v.DownloadProgress*100, watched, v.Title)
	}
	return w.Flush()
}
