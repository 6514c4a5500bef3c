// Package ipcidr implements the IPv4 CIDR arithmetic the mesh resolver
// needs: parsing, integer<->dotted conversion, and sequential address
// allocation from a base network.
package ipcidr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-karan/wgmesh/internal/apierr"
)

// Block is a parsed IPv4 CIDR: the network base, prefix length, total
// address-space size, and the last address in range.
type Block struct {
	Base   uint32
	Prefix int
	Size   uint32
	Last   uint32
}

// Parse validates and decomposes "A.B.C.D/p", p in [8,30].
func Parse(cidr string) (Block, error) {
	parts := strings.SplitN(cidr, "/", 2)
	if len(parts) != 2 {
		return Block{}, apierr.New(apierr.KindInvalidCIDR, fmt.Sprintf("malformed cidr %q", cidr))
	}

	base, err := DottedToInt(parts[0])
	if err != nil {
		return Block{}, apierr.New(apierr.KindInvalidCIDR, fmt.Sprintf("malformed cidr %q: %v", cidr, err))
	}

	prefix, err := strconv.Atoi(parts[1])
	if err != nil || prefix < 8 || prefix > 30 {
		return Block{}, apierr.New(apierr.KindInvalidCIDR, fmt.Sprintf("prefix must be in [8,30], got %q", parts[1]))
	}

	size := uint32(1) << uint(32-prefix)
	return Block{
		Base:   base,
		Prefix: prefix,
		Size:   size,
		Last:   base + size - 1,
	}, nil
}

// IntToDotted renders a uint32 as dotted-quad IPv4.
func IntToDotted(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// DottedToInt parses a dotted-quad IPv4 string into a uint32, rejecting
// non-numeric or out-of-range octets.
func DottedToInt(s string) (uint32, error) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, fmt.Errorf("expected 4 octets, got %d", len(octets))
	}

	var v uint32
	for _, o := range octets {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 || n > 255 {
			return 0, fmt.Errorf("invalid octet %q", o)
		}
		v = v<<8 | uint32(n)
	}
	return v, nil
}

// NodeAddressAt returns the node address at position i (0-based):
// base + 1 + i, /32.
func NodeAddressAt(b Block, i int) (string, error) {
	addr := b.Base + 1 + uint32(i)
	if addr > b.Last {
		return "", apierr.New(apierr.KindCapacityExceeded, fmt.Sprintf("node %d exceeds cidr capacity", i))
	}
	return IntToDotted(addr), nil
}

// ClientAddressAt returns the client address at position i (0-based):
// base + 101 + i, /32.
func ClientAddressAt(b Block, i int) (string, error) {
	addr := b.Base + 101 + uint32(i)
	if addr > b.Last {
		return "", apierr.New(apierr.KindCapacityExceeded, fmt.Sprintf("client %d exceeds cidr capacity", i))
	}
	return IntToDotted(addr), nil
}

// NetworkString renders the Block back as "A.B.C.D/p".
func (b Block) NetworkString() string {
	return fmt.Sprintf("%s/%d", IntToDotted(b.Base), b.Prefix)
}
