// Package mesh resolves a declarative MeshSpec into a ResolvedMesh: an
// IP plan, filled-in keys, gateway<->client links, and neighbor
// adjacency. It is the pure, side-effect-free heart of mesh synthesis.
package mesh

// EndpointVersion selects how endpoints are rendered (bracket handling).
type EndpointVersion string

const (
	EndpointIPv4 EndpointVersion = "ipv4"
	EndpointIPv6 EndpointVersion = "ipv6"
)

// NodeInput describes one long-lived mesh node before resolution.
type NodeInput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PrivateKey string `json:"privateKey,omitempty"` // optional, base64
	PublicKey  string `json:"publicKey,omitempty"`  // optional, base64
	Endpoint   string `json:"endpoint"`              // host only, no port
	ListenPort uint16 `json:"listenPort"`
	SSHUser    string `json:"sshUser,omitempty"`
	SSHPort    uint16 `json:"sshPort,omitempty"`
}

// ClientInput describes one client peer (gateway-only) before resolution.
type ClientInput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PrivateKey string `json:"privateKey,omitempty"`
	PublicKey  string `json:"publicKey,omitempty"`
}

// MeshSpec is the declarative input to the resolver.
type MeshSpec struct {
	NetworkCIDR         string          `json:"networkCidr"`
	InterfaceName       string          `json:"interfaceName"`
	EndpointVersion     EndpointVersion `json:"endpointVersion"`
	PersistentKeepalive int             `json:"persistentKeepalive"`
	IncludeIPForwarding bool            `json:"includeIpForwarding"`
	EnableBabel         bool            `json:"enableBabel"`
	AutoGenerateKeys    bool            `json:"autoGenerateKeys"`
	Nodes               []NodeInput     `json:"nodes"`
	Clients             []ClientInput   `json:"clients"`
	GatewayNodeNames    []string        `json:"gatewayNodeNames"`
}

// ResolvedNode is a NodeInput plus its derived address and filled keys.
type ResolvedNode struct {
	NodeInput
	Address string // /32 host, no mask suffix
}

// ResolvedClient is a ClientInput plus its derived address and filled keys.
type ResolvedClient struct {
	ClientInput
	Address string
}

// ResolvedMesh is the deterministic output of Resolve.
type ResolvedMesh struct {
	Spec         MeshSpec
	Nodes        []ResolvedNode
	Clients      []ResolvedClient
	NeighborsOf  map[string][]string // node name -> neighbor node names
	GatewaySet   map[string]bool
	CIDRBlock    string // networkCidr, echoed for convenience
}

// NodeByName returns the resolved node with the given name, if any.
func (m ResolvedMesh) NodeByName(name string) (ResolvedNode, bool) {
	for _, n := range m.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return ResolvedNode{}, false
}
