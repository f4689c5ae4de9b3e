// Package tracker builds announce URLs and parses compact tracker
// responses into peer addresses.
package tracker

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"gorent/bencode"
	"gorent/metainfo"
	"gorent/peer"
)

// response mirrors the bencoded tracker reply of §4.3.
type response struct {
	Interval int    `bencode:"interval"`
	Peers    string `bencode:"peers"`
}

// unreserved reports whether b passes through percent-encoding unescaped.
func unreserved(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_' || b == '.' || b == '~':
		return true
	default:
		return false
	}
}

// PercentEncode applies per-byte percent-encoding, the exact rule the
// generic query-string escaper of net/url does not implement for binary
// data: unreserved bytes pass through, everything else becomes an
// uppercase %XX triplet.
func PercentEncode(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	for _, c := range b {
		if unreserved(c) {
			out = append(out, c)
		} else {
			out = append(out, '%', hexDigit(c>>4), hexDigit(c&0x0f))
		}
	}
	return string(out)
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'A' + (n - 10)
}

// BuildAnnounceURL assembles the tracker GET URL for t, splicing the
// manually percent-encoded info_hash and peer_id in after url.Values has
// encoded the remaining parameters (net/url's Values.Encode would mangle
// the binary info_hash if asked to encode it directly).
func BuildAnnounceURL(t *metainfo.Torrent, peerID [20]byte, port uint16) (string, error) {
	base, err := url.Parse(t.Announce)
	if err != nil {
		return "", fmt.Errorf("tracker: parse announce URL: %w", err)
	}

	params := url.Values{
		"port":       []string{strconv.Itoa(int(port))},
		"uploaded":   []string{"0"},
		"downloaded": []string{"0"},
		"left":       []string{strconv.Itoa(t.Length)},
		"compact":    []string{"1"},
	}
	base.RawQuery = params.Encode()
	base.RawQuery += "&info_hash=" + PercentEncode(t.InfoHash[:])
	base.RawQuery += "&peer_id=" + PercentEncode(peerID[:])
	return base.String(), nil
}

// HTTPGetter is the minimal transport collaborator the tracker client
// needs: a GET that returns a byte body. *http.Client satisfies it
// directly; tests can substitute a fake.
type HTTPGetter interface {
	Get(url string) (*http.Response, error)
}

// Announce builds the announce URL, performs the HTTP GET through client
// and parses the compact peer list out of the response.
func Announce(client HTTPGetter, t *metainfo.Torrent, peerID [20]byte, port uint16) ([]peer.Addr, error) {
	announceURL, err := BuildAnnounceURL(t, peerID, port)
	if err != nil {
		return nil, err
	}

	scheme, err := url.Parse(t.Announce)
	if err != nil {
		return nil, fmt.Errorf("tracker: parse announce URL: %w", err)
	}
	if scheme.Scheme != "http" && scheme.Scheme != "https" {
		return nil, fmt.Errorf("tracker: unsupported announce scheme %q", scheme.Scheme)
	}

	resp, err := client.Get(announceURL)
	if err != nil {
		return nil, fmt.Errorf("tracker: GET %s: %w", announceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker: non-200 status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tracker: read response body: %w", err)
	}

	var tr response
	if err := bencode.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("tracker: decode response: %w", err)
	}

	peers, err := peer.UnmarshalCompact([]byte(tr.Peers))
	if err != nil {
		return nil, fmt.Errorf("tracker: parse peers: %w", err)
	}
	return peers, nil
}
