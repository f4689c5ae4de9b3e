package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"gorent/tracker"
)

const clientPort uint16 = 6881

var peersCmd = &cobra.Command{
	Use:   "peers <torrent-file>",
	Short: "Announce to the tracker and print the returned peer list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		peerID, err := resolvePeerID()
		if err != nil {
			return err
		}

		client := &http.Client{Timeout: 15 * time.Second}
		addrs, err := tracker.Announce(client, t, peerID, clientPort)
		if err != nil {
			return fmt.Errorf("announce: %w", err)
		}

		for _, a := range addrs {
			fmt.Println(a.String())
		}
		return nil
	},
}
