package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/offtube/offtube/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic sync/download daemon",
	Long: `Run in daemon mode: every sync interval, reload the playlist
snapshot, reconcile it against the catalog, and (when auto_download is
enabled) download the pending set. Stops cleanly on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCmd(cmd *cobra.Command, args []string) error {
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

	runner := server.NewRunner(a.engine(), src, a.orch, a.bus, server.Config{
		SyncInterval: time.Duration(a.cfg.Sync.Interval),
		AutoDownload: a.cfg.Sync.AutoDownload,
	}, a.log)

	a.log.Info("daemon starting",
		"interval", time.Duration(a.cfg.Sync.Interval),
		"auto_download", a.cfg.Sync.AutoDownload)
	return runner.Run(ctx)
}
