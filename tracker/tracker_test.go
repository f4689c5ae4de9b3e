package tracker

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gorent/metainfo"
)

func TestPercentEncodeUnreservedPassthrough(t *testing.T) {
	in := []byte("Az09-_.~")
	require.Equal(t, "Az09-_.~", PercentEncode(in))
}

func TestPercentEncodeBinaryUppercaseHex(t *testing.T) {
	in := []byte{0x00, 0xFF, 0x12, 0xAB}
	require.Equal(t, "%00%FF%12%AB", PercentEncode(in))
}

func TestBuildAnnounceURLIncludesRawBinaryFields(t *testing.T) {
	tor := &metainfo.Torrent{
		Announce: "http://tracker.example.com:6969/announce",
		InfoHash: [20]byte{0xDE, 0xAD, 0xBE, 0xEF},
		Length:   1024,
	}
	peerID := [20]byte{0x01, 0x02, 0x03}

	got, err := BuildAnnounceURL(tor, peerID, 6881)
	require.NoError(t, err)
	require.Contains(t, got, "info_hash=%DE%AD%BE%EF")
	require.Contains(t, got, "peer_id=%01%02%03")
	require.Contains(t, got, "left=1024")
	require.Contains(t, got, "compact=1")

	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "tracker.example.com:6969", u.Host)
}

// fakeGetter returns a canned response for any GET, so tests never touch
// the network.
type fakeGetter struct {
	status int
	body   string
}

func (f *fakeGetter) Get(_ string) (*http.Response, error) {
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestAnnounceParsesCompactPeers(t *testing.T) {
	tor := &metainfo.Torrent{
		Announce: "http://tracker.example.com/announce",
		InfoHash: [20]byte{1},
		Length:   10,
	}
	peers := string([]byte{127, 0, 0, 1, 0x1A, 0xE1, 10, 0, 0, 2, 0x1A, 0xE2})
	body := "d8:intervali1800e5:peers" + "12:" + peers + "e"

	client := &fakeGetter{status: http.StatusOK, body: body}
	got, err := Announce(client, tor, [20]byte{9}, 6881)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "127.0.0.1", got[0].IP.String())
	require.EqualValues(t, 0x1AE1, got[0].Port)
	require.Equal(t, "10.0.0.2", got[1].IP.String())
}

func TestAnnounceRejectsNon200(t *testing.T) {
	tor := &metainfo.Torrent{Announce: "http://tracker.example.com/announce"}
	client := &fakeGetter{status: http.StatusInternalServerError, body: ""}
	_, err := Announce(client, tor, [20]byte{}, 6881)
	require.Error(t, err)
}

func TestAnnounceRejectsBadScheme(t *testing.T) {
	tor := &metainfo.Torrent{Announce: "udp://tracker.example.com/announce"}
	client := &fakeGetter{status: http.StatusOK, body: "de"}
	_, err := Announce(client, tor, [20]byte{}, 6881)
	require.Error(t, err)
}
