package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gorent/metainfo"
	"gorent/peer"
	"gorent/tracker"
)

var downloadPieceOutput string

var downloadPieceCmd = &cobra.Command{
	Use:   "download_piece <torrent-file> <piece-index>",
	Short: "Download and verify a single piece, writing it to -o",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if downloadPieceOutput == "" {
			return fmt.Errorf("download_piece: -o/--output is required")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid piece index %q: %w", args[1], err)
		}

		t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		if index < 0 || index >= t.NumPieces() {
			return fmt.Errorf("piece index %d out of range [0,%d)", index, t.NumPieces())
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

		var lastErr error
		for _, addr := range addrs {
			buf, err := downloadOnePiece(addr, t, myPeerID, index)
			if err != nil {
				log.WithError(err).WithField("peer", addr).Warn("peer failed, trying next")
				lastErr = err
				continue
			}
			return os.WriteFile(downloadPieceOutput, buf, 0644)
		}
		return fmt.Errorf("download_piece: no peers left: %w", lastErr)
	},
}

func downloadOnePiece(addr peer.Addr, t *metainfo.Torrent, myPeerID [20]byte, index int) ([]byte, error) {
	sess, err := peer.Dial(addr, myPeerID, t.InfoHash)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.SendUnchoke(); err != nil {
		return nil, err
	}
	if err := sess.SendInterested(); err != nil {
		return nil, err
	}
	if err := sess.AwaitUnchoke(); err != nil {
		return nil, err
	}

	return sess.DownloadPiece(index, t.PieceSize(index), t.PieceHashes[index])
}

func init() {
	downloadPieceCmd.Flags().StringVarP(&downloadPieceOutput, "output", "o", "", "output file path")
}
