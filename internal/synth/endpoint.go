package synth

import (
	"fmt"
	"strings"

	"github.com/mr-karan/wgmesh/internal/mesh"
)

// FormatEndpoint renders "host:port" for ipv4, or "[host]:port" for ipv6
// (stripping any surrounding brackets from the host first).
func FormatEndpoint(version mesh.EndpointVersion, host string, port uint16) string {
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	if version == mesh.EndpointIPv6 {
		return fmt.Sprintf("[%s]:%d", host, port)
	}
	return fmt.Sprintf("%s:%d", host, port)
}
