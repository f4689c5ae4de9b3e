package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gorent/metainfo"
)

var infoCmd = &cobra.Command{
	Use:   "info <torrent-file>",
	Short: "Print a metainfo file's tracker URL, length, info hash and piece hashes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTorrent(args[0])
		if err != nil {
			return err
		}

		label := color.New(color.Bold)
		label.Print("Tracker URL: ")
		fmt.Println(t.Announce)
		label.Print("Length: ")
		fmt.Println(t.Length)
		label.Print("Info Hash: ")
		fmt.Println(hex.EncodeToString(t.InfoHash[:]))
		label.Print("Piece Length: ")
		fmt.Println(t.PieceLength)
		label.Println("Piece Hashes:")
		for _, h := range t.PieceHashes {
			fmt.Println(hex.EncodeToString(h[:]))
		}
		return nil
	},
}

// openTorrent reads and parses the metainfo file at path.
func openTorrent(path string) (*metainfo.Torrent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := metainfo.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}
