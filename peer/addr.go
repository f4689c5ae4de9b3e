package peer

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// Addr is an IPv4 peer address as advertised by the tracker.
type Addr struct {
	IP   net.IP
	Port uint16
}

// String renders the address as "ip:port" for dialing/printing.
func (a Addr) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// UnmarshalCompact parses the tracker's compact peer list: a concatenation
// of 6-byte records (4-byte IPv4 + 2-byte big-endian port).
func UnmarshalCompact(b []byte) ([]Addr, error) {
	const recordSize = 6
	if len(b)%recordSize != 0 {
		return nil, fmt.Errorf("peer: compact peer list length %d is not a multiple of %d", len(b), recordSize)
	}
	n := len(b) / recordSize
	addrs := make([]Addr, n)
	for i := 0; i < n; i++ {
		off := i * recordSize
		ip := make(net.IP, 4)
		copy(ip, b[off:off+4])
		addrs[i] = Addr{
			IP:   ip,
			Port: binary.BigEndian.Uint16(b[off+4 : off+6]),
		}
	}
	return addrs, nil
}
