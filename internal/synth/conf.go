// Package synth implements rendering a ResolvedMesh into per-node and
// per-client WireGuard config text, an optional Babel routing fragment,
// a JSON manifest, and a zip archive bundling all of it.
package synth

import (
	"fmt"
	"strings"

	"github.com/mr-karan/wgmesh/internal/mesh"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

// RenderNodeConfig builds the wg-quick style config text for node at
// index i in the resolved mesh.
func RenderNodeConfig(m mesh.ResolvedMesh, i int, psks *wgcrypto.Cache) (string, error) {
	node := m.Nodes[i]

	var b strings.Builder
	fmt.Fprintf(&b, "[Interface]\n")
	fmt.Fprintf(&b, "Address = %s/32\n", node.Address)
	fmt.Fprintf(&b, "ListenPort = %d\n", node.ListenPort)
	fmt.Fprintf(&b, "PrivateKey = %s\n", node.PrivateKey)
	if m.Spec.IncludeIPForwarding {
		fmt.Fprintf(&b, "PostUp = sysctl -w net.ipv4.ip_forward=1\n")
		fmt.Fprintf(&b, "PostDown = sysctl -w net.ipv4.ip_forward=0\n")
	}

	for _, neighborName := range m.NeighborsOf[node.Name] {
		peer, ok := m.NodeByName(neighborName)
		if !ok {
			continue
		}
		psk, err := psks.Get(node.Name, peer.Name)
		if err != nil {
			return "", err
		}
		endpoint := FormatEndpoint(m.Spec.EndpointVersion, peer.Endpoint, peer.ListenPort)

		b.WriteString("\n")
		fmt.Fprintf(&b, "# %s\n", peer.Name)
		b.WriteString("[Peer]\n")
		fmt.Fprintf(&b, "PublicKey = %s\n", peer.PublicKey)
		fmt.Fprintf(&b, "PresharedKey = %s\n", psk)
		fmt.Fprintf(&b, "AllowedIPs = %s/32\n", peer.Address)
		fmt.Fprintf(&b, "Endpoint = %s\n", endpoint)
		fmt.Fprintf(&b, "PersistentKeepalive = %d\n", m.Spec.PersistentKeepalive)
	}

	if m.GatewaySet[node.Name] {
		for _, client := range m.Clients {
			psk, err := psks.Get(client.Name, node.Name)
			if err != nil {
				return "", err
			}
			b.WriteString("\n")
			fmt.Fprintf(&b, "# %s\n", client.Name)
			b.WriteString("[Peer]\n")
			fmt.Fprintf(&b, "PublicKey = %s\n", client.PublicKey)
			fmt.Fprintf(&b, "PresharedKey = %s\n", psk)
			fmt.Fprintf(&b, "AllowedIPs = %s/32\n", client.Address)
		}
	}

	return b.String(), nil
}

// RenderClientConfig builds the config text for client at index i: one
// [Peer] section per gateway, with full-network AllowedIPs.
func RenderClientConfig(m mesh.ResolvedMesh, i int, psks *wgcrypto.Cache) (string, error) {
	client := m.Clients[i]

	var b strings.Builder
	fmt.Fprintf(&b, "[Interface]\n")
	fmt.Fprintf(&b, "Address = %s/32\n", client.Address)
	fmt.Fprintf(&b, "PrivateKey = %s\n", client.PrivateKey)

	for _, node := range m.Nodes {
		if !m.GatewaySet[node.Name] {
			continue
		}
		psk, err := psks.Get(client.Name, node.Name)
		if err != nil {
			return "", err
		}
		endpoint := FormatEndpoint(m.Spec.EndpointVersion, node.Endpoint, node.ListenPort)

		b.WriteString("\n")
		fmt.Fprintf(&b, "# %s\n", node.Name)
		b.WriteString("[Peer]\n")
		fmt.Fprintf(&b, "PublicKey = %s\n", node.PublicKey)
		fmt.Fprintf(&b, "PresharedKey = %s\n", psk)
		fmt.Fprintf(&b, "AllowedIPs = %s\n", m.CIDRBlock)
		fmt.Fprintf(&b, "Endpoint = %s\n", endpoint)
		fmt.Fprintf(&b, "PersistentKeepalive = %d\n", m.Spec.PersistentKeepalive)
	}

	return b.String(), nil
}

// InterfaceFilename returns "<sanitized-interface>.conf".
func InterfaceFilename(interfaceName string) string {
	return SanitizeFilename(interfaceName) + ".conf"
}
