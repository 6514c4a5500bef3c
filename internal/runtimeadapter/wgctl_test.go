package runtimeadapter

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFakeWGCtl(runner commandRunner) *WGCtl {
	return &WGCtl{
		logger: slog.Default(),
		wgBin:  "wg",
		ipBin:  "ip",
		runner: runner,
	}
}

func TestGetInterfaceParsesDump(t *testing.T) {
	dump := "privkeyB64\tpubkeyB64\t51820\t0\n" +
		"peerpub\tpeerpsk\t1.2.3.4:51820\t10.0.0.2/32\t1690000000\t100\t200\t25\n"

	w := newFakeWGCtl(func(bin string, args ...string) (string, string, error) {
		return dump, "", nil
	})

	iface, err := w.GetInterface("wg0")
	require.NoError(t, err)
	require.Equal(t, 51820, iface.ListenPort)
	require.Len(t, iface.Peers, 1)
	require.Equal(t, "peerpub", iface.Peers[0].PublicKey)
	require.Equal(t, uint64(100), iface.Peers[0].TransferRx)
	require.Equal(t, uint16(25), iface.Peers[0].PersistentKeepalive)
}

func TestGetInterfaceNotExists(t *testing.T) {
	w := newFakeWGCtl(func(bin string, args ...string) (string, string, error) {
		return "", "Unable to access interface: No such device", errors.New("exit status 1")
	})

	_, err := w.GetInterface("ghost")
	require.Error(t, err)
}

func TestRemovePeerIgnoresMissingWhenRequested(t *testing.T) {
	w := newFakeWGCtl(func(bin string, args ...string) (string, string, error) {
		return "", "No such device", errors.New("exit status 1")
	})

	err := w.RemovePeer("wg0", "pub", RemoveOpts{IgnoreIfMissing: true})
	require.NoError(t, err)

	err = w.RemovePeer("wg0", "pub", RemoveOpts{IgnoreIfMissing: false})
	require.Error(t, err)
}
