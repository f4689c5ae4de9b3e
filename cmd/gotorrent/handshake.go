package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gorent/peer"
	"gorent/tracker"
)

var handshakeCmd = &cobra.Command{
	Use:   "handshake <torrent-file> [ip:port]",
	Short: "Connect to a peer, perform the handshake and print its peer id",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		myPeerID, err := resolvePeerID()
		if err != nil {
			return err
		}

		var addr peer.Addr
		if len(args) == 2 {
			addr, err = parseAddr(args[1])
			if err != nil {
				return err
			}
		} else {
			client := &http.Client{Timeout: 15 * time.Second}
			addrs, err := tracker.Announce(client, t, myPeerID, clientPort)
			if err != nil {
				return fmt.Errorf("announce: %w", err)
			}
			if len(addrs) == 0 {
				return fmt.Errorf("handshake: tracker returned no peers")
			}
			addr = addrs[0]
		}

		sess, err := peer.Dial(addr, myPeerID, t.InfoHash)
		if err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
		defer sess.Close()

		fmt.Printf("Peer ID: %s\n", hex.EncodeToString(sess.PeerID[:]))
		return nil
	},
}

func parseAddr(s string) (peer.Addr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return peer.Addr{}, fmt.Errorf("invalid peer address %q: %w", s, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return peer.Addr{}, fmt.Errorf("invalid peer IP %q", host)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return peer.Addr{}, fmt.Errorf("invalid peer port %q: %w", portStr, err)
	}
	return peer.Addr{IP: ip, Port: uint16(port)}, nil
}
