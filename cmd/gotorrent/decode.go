package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gorent/bencode"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <bencoded-string>",
	Short: "Decode a bencoded string and print it in a JSON-like form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := bencode.DecodeFull([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		fmt.Println(v.GoString())
		return nil
	},
}
