package provisioning

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mr-karan/wgmesh/internal/audit"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
	"github.com/mr-karan/wgmesh/internal/state"
)

func newTestService(t *testing.T) (*Service, *fakeAdapter) {
	t.Helper()
	dir := t.TempDir()
	store := state.New(filepath.Join(dir, "state.json"), "")
	adapter := newFakeAdapter()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, adapter, audit.New(), logger), adapter
}

func seedInterface(t *testing.T, s *Service, name string) {
	t.Helper()
	_, err := s.DeployMeshConfig(DeployRequest{
		Interface:   name,
		ListenPort:  51820,
		AddressCIDR: "10.0.0.1/24",
		PrivateKey:  "privkeybase64==",
		Peers: []state.Peer{
			{PeerID: "peer-a", Name: "a", PublicKey: "pubA", AllowedIPs: []string{"10.0.0.2/32"}, IsActive: true},
		},
	})
	require.NoError(t, err)
}

// S3: dry-run plan generation never touches runtime or state.
func TestApplyDryRunPlan(t *testing.T) {
	s, adapter := newTestService(t)
	seedInterface(t, s, "wg0")

	result, err := s.ApplyPeerOperations("wg0", ApplyRequest{
		Revision: 1,
		DryRun:   true,
		Operations: []PeerOperation{
			{Kind: OpAdd, Peer: state.Peer{PeerID: "peer-b", Name: "b", PublicKey: "pubB", AllowedIPs: []string{"10.0.0.3/32"}, IsActive: true}},
			{Kind: OpRemove, PeerID: "peer-a"},
		},
	})
	require.NoError(t, err)
	require.True(t, result.DryRun)
	require.Len(t, result.Plan, 2)
	require.Contains(t, result.Plan[0], "[ADD]")
	require.Contains(t, result.Plan[1], "[REMOVE]")

	iface, err := adapter.GetInterface("wg0")
	require.NoError(t, err)
	require.Len(t, iface.Peers, 1) // unchanged: only peer-a from deploy
	require.Equal(t, "pubA", iface.Peers[0].PublicKey)

	doc, err := s.store.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1), doc.Interfaces["wg0"].Revision) // unchanged
}

// S4: a failing op mid-batch triggers rollback of every already-committed
// runtime mutation, and nothing is persisted.
func TestApplyRollsBackOnPartialFailure(t *testing.T) {
	s, adapter := newTestService(t)
	seedInterface(t, s, "wg0")
	adapter.failOnAdd["pubC"] = true

	_, err := s.ApplyPeerOperations("wg0", ApplyRequest{
		Revision: 1,
		Operations: []PeerOperation{
			{Kind: OpAdd, Peer: state.Peer{PeerID: "peer-b", Name: "b", PublicKey: "pubB", AllowedIPs: []string{"10.0.0.3/32"}, IsActive: true}},
			{Kind: OpAdd, Peer: state.Peer{PeerID: "peer-c", Name: "c", PublicKey: "pubC", AllowedIPs: []string{"10.0.0.4/32"}, IsActive: true}},
		},
	})
	require.Error(t, err)

	iface, gerr := adapter.GetInterface("wg0")
	require.NoError(t, gerr)
	require.Len(t, iface.Peers, 1) // pubB's add was rolled back
	require.Equal(t, "pubA", iface.Peers[0].PublicKey)

	doc, err := s.store.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1), doc.Interfaces["wg0"].Revision) // no bump
	require.Len(t, doc.PeersForInterface("wg0"), 1)             // nothing persisted
}

// S5: a stale revision is rejected before any runtime mutation happens.
func TestApplyRevisionConflict(t *testing.T) {
	s, _ := newTestService(t)
	seedInterface(t, s, "wg0")

	_, err := s.ApplyPeerOperations("wg0", ApplyRequest{
		Revision: 99,
		Operations: []PeerOperation{
			{Kind: OpRemove, PeerID: "peer-a"},
		},
	})
	require.Error(t, err)

	doc, err := s.store.Load()
	require.NoError(t, err)
	require.Len(t, doc.PeersForInterface("wg0"), 1) // untouched
}

// A successful apply bumps the revision by exactly one and records an
// audit entry.
func TestApplySuccessBumpsRevisionOnce(t *testing.T) {
	s, adapter := newTestService(t)
	seedInterface(t, s, "wg0")

	result, err := s.ApplyPeerOperations("wg0", ApplyRequest{
		Revision: 1,
		Operations: []PeerOperation{
			{Kind: OpAdd, Peer: state.Peer{PeerID: "peer-b", Name: "b", PublicKey: "pubB", AllowedIPs: []string{"10.0.0.3/32"}, IsActive: true}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(2), result.Revision)

	iface, err := adapter.GetInterface("wg0")
	require.NoError(t, err)
	require.Len(t, iface.Peers, 2)

	page := s.Audit("wg0", 10, "")
	require.Len(t, page.Items, 2) // deploy + apply
	require.Equal(t, "apply", page.Items[0].Action)
}

// S6: reconcile(runtime_to_state) adopts a zombie peer that exists live
// but was never persisted, and deactivates a persisted peer the runtime
// no longer reports.
func TestReconcileRuntimeToStateAdoptsZombie(t *testing.T) {
	s, adapter := newTestService(t)
	seedInterface(t, s, "wg0")

	// A peer appears live that state never recorded.
	require.NoError(t, adapter.AddPeer("wg0", runtimeadapter.PeerConfig{PublicKey: "pubZ", AllowedIPs: []string{"10.0.0.9/32"}}))
	// The persisted peer pubA is removed out-of-band at the runtime layer.
	require.NoError(t, adapter.RemovePeer("wg0", "pubA", runtimeadapter.RemoveOpts{}))

	result, err := s.ReconcileInterface("wg0", ReconcileRequest{Revision: 1, Mode: ModeRuntimeToState})
	require.NoError(t, err)
	require.True(t, result.DriftFound)
	require.Contains(t, result.Zombies, "pubZ")
	require.Contains(t, result.MissingInRuntime, "pubA")
	require.Equal(t, uint64(2), result.Revision)

	doc, err := s.store.Load()
	require.NoError(t, err)
	peers := doc.PeersForInterface("wg0")

	var foundZ, foundA bool
	for _, p := range peers {
		if p.PublicKey == "pubZ" {
			foundZ = true
			require.True(t, p.IsActive)
		}
		if p.PublicKey == "pubA" {
			foundA = true
			require.False(t, p.IsActive)
		}
	}
	require.True(t, foundZ)
	require.True(t, foundA)
}

// reconcile(state_to_runtime) pushes the persisted intent back onto the
// runtime: missing peers get re-added, zombies get removed.
func TestReconcileStateToRuntimeFixesDrift(t *testing.T) {
	s, adapter := newTestService(t)
	seedInterface(t, s, "wg0")

	require.NoError(t, adapter.RemovePeer("wg0", "pubA", runtimeadapter.RemoveOpts{}))
	require.NoError(t, adapter.AddPeer("wg0", runtimeadapter.PeerConfig{PublicKey: "pubZ"}))

	result, err := s.ReconcileInterface("wg0", ReconcileRequest{Revision: 1, Mode: ModeStateToRuntime})
	require.NoError(t, err)
	require.True(t, result.DriftFound)

	iface, err := adapter.GetInterface("wg0")
	require.NoError(t, err)
	require.Len(t, iface.Peers, 1)
	require.Equal(t, "pubA", iface.Peers[0].PublicKey)
}

func TestToggleInterfaceState(t *testing.T) {
	s, _ := newTestService(t)
	seedInterface(t, s, "wg0")

	result, err := s.ToggleInterfaceState("wg0", ToggleRequest{Revision: 1, IsUp: false})
	require.NoError(t, err)
	require.Equal(t, uint64(2), result.Revision)

	doc, err := s.store.Load()
	require.NoError(t, err)
	require.False(t, doc.Interfaces["wg0"].IsUp)
}
