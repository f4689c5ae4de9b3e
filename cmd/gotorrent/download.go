package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gorent/torrent"
	"gorent/tracker"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <torrent-file>",
	Short: "Download the full file across every peer the tracker returns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if downloadOutput == "" {
			return fmt.Errorf("download: -o/--output is required")
		}

		t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		myPeerID, err := resolvePeerID()
		if err != nil {
			return err
		}

		client := &http.Client{Timeout: 15 * time.Second}
		addrs, err := tracker.Announce(client, t, myPeerID, clientPort)
		if err != nil {
			return fmt.Errorf("announce: %w", err)
		}
		log.WithField("count", len(addrs)).Info("tracker returned peers")

		d := torrent.NewDownloader(t, myPeerID, addrs, log)
		buf, err := d.Download(context.Background())
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}

		if err := os.WriteFile(downloadOutput, buf, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.WithField("path", downloadOutput).Info("download complete")
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
}
