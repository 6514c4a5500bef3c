package synth

import (
	"encoding/json"
	"sort"

	"github.com/mr-karan/wgmesh/internal/mesh"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

// ManifestNode is the node entry shape recorded in the manifest.
type ManifestNode struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Endpoint   string `json:"endpoint"`
	ListenPort uint16 `json:"listenPort"`
	PublicKey  string `json:"publicKey"`
}

// ManifestClient is the client entry shape recorded in the manifest.
type ManifestClient struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	PublicKey string   `json:"publicKey"`
	Gateways  []string `json:"gateways"`
}

// Manifest is the JSON document describing a synthesized mesh.
type Manifest struct {
	NetworkCIDR      string              `json:"networkCidr"`
	InterfaceName    string              `json:"interfaceName"`
	EndpointVersion  mesh.EndpointVersion `json:"endpointVersion"`
	AutoGenerateKeys bool                `json:"autoGenerateKeys"`
	Nodes            []ManifestNode      `json:"nodes"`
	Clients          []ManifestClient    `json:"clients"`
	Neighbors        map[string][]string `json:"neighbors"`
	PSKPairs         map[string]string   `json:"pskPairs"`
}

// BuildManifest assembles the Manifest for a resolved mesh, given the
// same PSK cache used to render the peer configs (so pskPairs reflects
// exactly the pairs that were actually emitted).
func BuildManifest(m mesh.ResolvedMesh, psks *wgcrypto.Cache) Manifest {
	gatewayNames := make([]string, 0, len(m.GatewaySet))
	for name := range m.GatewaySet {
		gatewayNames = append(gatewayNames, name)
	}
	sort.Strings(gatewayNames)

	nodes := make([]ManifestNode, len(m.Nodes))
	for i, n := range m.Nodes {
		nodes[i] = ManifestNode{
			Name:       n.Name,
			Address:    n.Address,
			Endpoint:   n.Endpoint,
			ListenPort: n.ListenPort,
			PublicKey:  n.PublicKey,
		}
	}

	clients := make([]ManifestClient, len(m.Clients))
	for i, c := range m.Clients {
		clients[i] = ManifestClient{
			Name:      c.Name,
			Address:   c.Address,
			PublicKey: c.PublicKey,
			Gateways:  gatewayNames,
		}
	}

	return Manifest{
		NetworkCIDR:      m.Spec.NetworkCIDR,
		InterfaceName:    m.Spec.InterfaceName,
		EndpointVersion:  m.Spec.EndpointVersion,
		AutoGenerateKeys: m.Spec.AutoGenerateKeys,
		Nodes:            nodes,
		Clients:          clients,
		Neighbors:        m.NeighborsOf,
		PSKPairs:         psks.Pairs(),
	}
}

// MarshalCanonical renders the manifest as pretty-printed, deterministic
// JSON (Go's encoding/json already emits struct fields in declaration
// order and sorts map keys, so canonical ordering falls out for free).
func (mf Manifest) MarshalCanonical() ([]byte, error) {
	return json.MarshalIndent(mf, "", "  ")
}
