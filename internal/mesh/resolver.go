package mesh

import (
	"fmt"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/ipcidr"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

// Resolve validates a MeshSpec and produces its ResolvedMesh: address
// assignment, key filling, and neighbor adjacency
func Resolve(spec MeshSpec) (ResolvedMesh, error) {
	if err := validate(spec); err != nil {
		return ResolvedMesh{}, err
	}

	block, err := ipcidr.Parse(spec.NetworkCIDR)
	if err != nil {
		return ResolvedMesh{}, err
	}

	if err := checkCapacity(block, len(spec.Nodes), len(spec.Clients)); err != nil {
		return ResolvedMesh{}, err
	}

	gatewaySet := make(map[string]bool, len(spec.GatewayNodeNames))
	for _, g := range spec.GatewayNodeNames {
		gatewaySet[g] = true
	}

	resolvedNodes := make([]ResolvedNode, len(spec.Nodes))
	for i, n := range spec.Nodes {
		addr, err := ipcidr.NodeAddressAt(block, i)
		if err != nil {
			return ResolvedMesh{}, err
		}
		filled, err := fillKeys(n.PrivateKey, n.PublicKey, spec.AutoGenerateKeys)
		if err != nil {
			return ResolvedMesh{}, err
		}
		n.PrivateKey, n.PublicKey = filled.PrivateKey, filled.PublicKey
		resolvedNodes[i] = ResolvedNode{NodeInput: n, Address: addr}
	}

	resolvedClients := make([]ResolvedClient, len(spec.Clients))
	for i, c := range spec.Clients {
		addr, err := ipcidr.ClientAddressAt(block, i)
		if err != nil {
			return ResolvedMesh{}, err
		}
		filled, err := fillKeys(c.PrivateKey, c.PublicKey, spec.AutoGenerateKeys)
		if err != nil {
			return ResolvedMesh{}, err
		}
		c.PrivateKey, c.PublicKey = filled.PrivateKey, filled.PublicKey
		resolvedClients[i] = ResolvedClient{ClientInput: c, Address: addr}
	}

	neighbors := make(map[string][]string, len(resolvedNodes))
	n := len(resolvedNodes)
	for i := range resolvedNodes {
		idxs := NeighborIndices(i, n)
		names := make([]string, 0, len(idxs))
		for _, j := range idxs {
			names = append(names, resolvedNodes[j].Name)
		}
		neighbors[resolvedNodes[i].Name] = names
	}

	return ResolvedMesh{
		Spec:        spec,
		Nodes:       resolvedNodes,
		Clients:     resolvedClients,
		NeighborsOf: neighbors,
		GatewaySet:  gatewaySet,
		CIDRBlock:   spec.NetworkCIDR,
	}, nil
}

// NeighborIndices implements the closed-form adjacency relation N(i, n)
// used to decide which nodes become WireGuard peers of each other. It
// is symmetric by construction: j in N(i,n) iff i in N(j,n).
func NeighborIndices(i, n int) []int {
	switch {
	case n <= 1:
		return nil
	case n == 2:
		return []int{1 - i}
	case n == 3:
		out := make([]int, 0, 2)
		for _, j := range []int{0, 1, 2} {
			if j != i {
				out = append(out, j)
			}
		}
		return out
	case n < 6:
		return dedupe([]int{mod(i+1, n), mod(i-1, n)})
	default:
		return dedupe([]int{mod(i+1, n), mod(i-1, n), mod(i+3, n), mod(i-3, n)})
	}
}

func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}

func dedupe(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func checkCapacity(block ipcidr.Block, nodeCount, clientCount int) error {
	if block.Base+1+uint32(nodeCount) > block.Last {
		return apierr.New(apierr.KindCapacityExceeded, "node count exceeds cidr capacity")
	}
	if clientCount > 0 && block.Base+101+uint32(clientCount) > block.Last {
		return apierr.New(apierr.KindCapacityExceeded, "client count exceeds cidr capacity")
	}
	return nil
}

func validate(spec MeshSpec) error {
	if spec.InterfaceName == "" || len(spec.InterfaceName) > 32 {
		return apierr.New(apierr.KindValidation, "interfaceName must be 1-32 chars")
	}
	for _, r := range spec.InterfaceName {
		if !isInterfaceChar(r) {
			return apierr.New(apierr.KindValidation, fmt.Sprintf("interfaceName contains invalid char %q", r))
		}
	}

	seenNodes := make(map[string]bool, len(spec.Nodes))
	for _, nd := range spec.Nodes {
		if nd.Name == "" {
			return apierr.New(apierr.KindValidation, "node name must not be empty")
		}
		if seenNodes[nd.Name] {
			return apierr.New(apierr.KindValidation, fmt.Sprintf("duplicate node name %q", nd.Name))
		}
		seenNodes[nd.Name] = true
	}

	seenClients := make(map[string]bool, len(spec.Clients))
	for _, c := range spec.Clients {
		if c.Name == "" {
			return apierr.New(apierr.KindValidation, "client name must not be empty")
		}
		if seenClients[c.Name] {
			return apierr.New(apierr.KindValidation, fmt.Sprintf("duplicate client name %q", c.Name))
		}
		seenClients[c.Name] = true
	}

	for _, g := range spec.GatewayNodeNames {
		if !seenNodes[g] {
			return apierr.New(apierr.KindUnknownGateway, fmt.Sprintf("gateway %q is not a known node", g))
		}
	}

	return nil
}

func isInterfaceChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	default:
		return false
	}
}

func fillKeys(privateKey, publicKey string, autoGenerate bool) (wgcrypto.Keypair, error) {
	switch {
	case privateKey != "" && publicKey != "":
		if err := wgcrypto.ValidateKey(privateKey); err != nil {
			return wgcrypto.Keypair{}, err
		}
		if err := wgcrypto.ValidateKey(publicKey); err != nil {
			return wgcrypto.Keypair{}, err
		}
		return wgcrypto.Keypair{PrivateKey: privateKey, PublicKey: publicKey}, nil
	case privateKey != "":
		if err := wgcrypto.ValidateKey(privateKey); err != nil {
			return wgcrypto.Keypair{}, err
		}
		pub, err := wgcrypto.DerivePublic(privateKey)
		if err != nil {
			return wgcrypto.Keypair{}, err
		}
		return wgcrypto.Keypair{PrivateKey: privateKey, PublicKey: pub}, nil
	case autoGenerate:
		return wgcrypto.GenerateKeypair()
	default:
		return wgcrypto.Keypair{}, apierr.New(apierr.KindMissingKey, "peer has no usable key and autoGenerateKeys is false")
	}
}
