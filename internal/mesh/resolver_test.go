package mesh

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func nodeSpec(names ...string) []NodeInput {
	nodes := make([]NodeInput, len(names))
	for i, name := range names {
		nodes[i] = NodeInput{
			Name:       name,
			Endpoint:   "1.1.1." + string(rune('1'+i)),
			ListenPort: 51820,
		}
	}
	return nodes
}

func TestResolveBasicFullMesh(t *testing.T) {
	spec := MeshSpec{
		NetworkCIDR:         "10.20.0.0/24",
		InterfaceName:       "wg0",
		EndpointVersion:     EndpointIPv4,
		PersistentKeepalive: 25,
		EnableBabel:         true,
		IncludeIPForwarding: true,
		AutoGenerateKeys:    true,
		Nodes:               nodeSpec("N1", "N2", "N3"),
		Clients:             []ClientInput{{Name: "C1"}},
		GatewayNodeNames:    []string{"N1"},
	}

	resolved, err := Resolve(spec)
	require.NoError(t, err)

	require.Equal(t, "10.20.0.1", resolved.Nodes[0].Address)
	require.Equal(t, "10.20.0.2", resolved.Nodes[1].Address)
	require.Equal(t, "10.20.0.3", resolved.Nodes[2].Address)
	require.Equal(t, "10.20.0.101", resolved.Clients[0].Address)

	require.ElementsMatch(t, []string{"N2", "N3"}, resolved.NeighborsOf["N1"])
}

func TestResolveRingTopologyAtSix(t *testing.T) {
	spec := MeshSpec{
		NetworkCIDR:      "10.30.0.0/24",
		InterfaceName:    "wg0",
		AutoGenerateKeys: true,
		Nodes:            nodeSpec("A", "B", "C", "D", "E", "F"),
	}

	resolved, err := Resolve(spec)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"B", "F", "D"}, resolved.NeighborsOf["A"])

	// symmetry: j in N(i) iff i in N(j)
	for i, ni := range resolved.Nodes {
		for _, nbName := range resolved.NeighborsOf[ni.Name] {
			nb, _ := resolved.NodeByName(nbName)
			found := false
			for _, back := range resolved.NeighborsOf[nb.Name] {
				if back == ni.Name {
					found = true
				}
			}
			require.Truef(t, found, "adjacency not symmetric for index %d", i)
		}
	}
}

func TestCapacityBoundaryAtPrefix30(t *testing.T) {
	base := MeshSpec{
		NetworkCIDR:      "10.40.0.0/30",
		InterfaceName:    "wg0",
		AutoGenerateKeys: true,
		Nodes:            nodeSpec("N1"),
	}
	_, err := Resolve(base)
	require.NoError(t, err)

	withClients := base
	withClients.Clients = []ClientInput{{Name: "C1"}, {Name: "C2"}}
	_, err = Resolve(withClients)
	require.Error(t, err)
}

func TestClientCapacityBoundaryAtPrefix24(t *testing.T) {
	// A /24 gives addresses .0-.255; clients start at .101 (base+101).
	// With one node, the last client that still fits is at .254
	// (clientCount=154), one short of .255 exceeding capacity.
	base := MeshSpec{
		NetworkCIDR:      "10.45.0.0/24",
		InterfaceName:    "wg0",
		AutoGenerateKeys: true,
		Nodes:            nodeSpec("N1"),
	}

	fits := base
	fits.Clients = make([]ClientInput, 154)
	for i := range fits.Clients {
		fits.Clients[i] = ClientInput{Name: "C" + strconv.Itoa(i)}
	}
	_, err := Resolve(fits)
	require.NoError(t, err)

	tooMany := base
	tooMany.Clients = make([]ClientInput, 155)
	for i := range tooMany.Clients {
		tooMany.Clients[i] = ClientInput{Name: "C" + strconv.Itoa(i)}
	}
	_, err = Resolve(tooMany)
	require.Error(t, err)
}

func TestUnknownGatewayFails(t *testing.T) {
	spec := MeshSpec{
		NetworkCIDR:      "10.50.0.0/24",
		InterfaceName:    "wg0",
		AutoGenerateKeys: true,
		Nodes:            nodeSpec("N1"),
		GatewayNodeNames: []string{"ghost"},
	}
	_, err := Resolve(spec)
	require.Error(t, err)
}

func TestMissingKeyWhenAutoGenerateDisabled(t *testing.T) {
	spec := MeshSpec{
		NetworkCIDR:      "10.60.0.0/24",
		InterfaceName:    "wg0",
		AutoGenerateKeys: false,
		Nodes:            nodeSpec("N1"),
	}
	_, err := Resolve(spec)
	require.Error(t, err)
}
