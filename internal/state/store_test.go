package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "state.json"), "")
}

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
	require.Empty(t, doc.Interfaces)
	require.Empty(t, doc.Peers)
}

func TestUpdateThenLoadRoundTrips(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(func(doc *Document) (any, error) {
		doc.Interfaces["wg0"] = InterfaceRecord{ListenPort: 51820, AddressCIDR: "10.0.0.0/24", Revision: 1, IsUp: true}
		doc.Peers = append(doc.Peers, Peer{PeerID: "p1", Name: "peer1", PublicKey: "pub1", AllowedIPs: []string{"10.0.0.2/32"}, IsActive: true, Interface: "wg0"})
		return nil, nil
	})
	require.NoError(t, err)

	doc, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1), doc.Interfaces["wg0"].Revision)
	require.Len(t, doc.Peers, 1)
	require.Equal(t, "peer1", doc.Peers[0].Name)
}

func TestUpdatePropagatesFnError(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(func(doc *Document) (any, error) {
		doc.Interfaces["wg0"] = InterfaceRecord{Revision: 99}
		return nil, errBoom
	})
	require.ErrorIs(t, err, errBoom)

	doc, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, doc.Interfaces) // nothing persisted
}

func TestCorruptStateRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"bogusField":true}`), 0o644))

	s := New(path, "")
	_, err := s.Load()
	require.Error(t, err)
}

func TestStaleLockIsReaped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	lockPath := path + ".lock"

	// Simulate a stale lock from a dead PID, aged past the stale window.
	require.NoError(t, os.WriteFile(lockPath, []byte("999999999:1"), 0o600))
	oldTime := time.Now().Add(-10 * time.Second)
	require.NoError(t, os.Chtimes(lockPath, oldTime, oldTime))

	s := New(path, "")
	_, err := s.Load()
	require.NoError(t, err)
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
