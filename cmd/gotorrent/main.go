// Command gotorrent is a minimal BitTorrent leecher for single-file
// torrents: decode bencode, inspect a metainfo file, announce to its
// tracker, shake hands with a peer, and download one piece or the whole
// file.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gorent/torrent"
)

var (
	verbose    bool
	peerIDFlag string

	log = logrus.New()

	defaultPeerID = torrent.GeneratePeerID()
)

var rootCmd = &cobra.Command{
	Use:           "gotorrent",
	Short:         "A minimal single-file BitTorrent leecher",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&peerIDFlag, "peer-id", "", "override the 20-byte peer id (as 40 hex characters)")

	cobra.OnInitialize(func() {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	})

	rootCmd.AddCommand(decodeCmd, infoCmd, peersCmd, handshakeCmd, downloadPieceCmd, downloadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gotorrent:", err)
		os.Exit(1)
	}
}

// resolvePeerID returns the fixed, possibly operator-overridden, 20-byte
// peer id used to identify this client to trackers and peers.
func resolvePeerID() ([20]byte, error) {
	if peerIDFlag == "" {
		return defaultPeerID, nil
	}
	raw, err := hex.DecodeString(peerIDFlag)
	if err != nil {
		return [20]byte{}, fmt.Errorf("--peer-id must be 40 hex characters: %w", err)
	}
	if len(raw) != 20 {
		return [20]byte{}, fmt.Errorf("--peer-id must decode to 20 bytes, got %d", len(raw))
	}
	var id [20]byte
	copy(id[:], raw)
	return id, nil
}
