package provisioning

import (
	"sync"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
)

// fakeAdapter is an in-memory runtimeadapter.Adapter for exercising the
// provisioning service's rollback and reconcile paths without a real
// kernel interface.
type fakeAdapter struct {
	mu         sync.Mutex
	interfaces map[string]*runtimeadapter.RuntimeInterface
	failOnAdd  map[string]bool // publicKey -> inject failure
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		interfaces: make(map[string]*runtimeadapter.RuntimeInterface),
		failOnAdd:  make(map[string]bool),
	}
}

func (f *fakeAdapter) ensure(name string) *runtimeadapter.RuntimeInterface {
	iface, ok := f.interfaces[name]
	if !ok {
		iface = &runtimeadapter.RuntimeInterface{Name: name}
		f.interfaces[name] = iface
	}
	return iface
}

func (f *fakeAdapter) ListInterfaces() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.interfaces))
	for name := range f.interfaces {
		out = append(out, name)
	}
	return out, nil
}

func (f *fakeAdapter) GetInterface(name string) (runtimeadapter.RuntimeInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	iface, ok := f.interfaces[name]
	if !ok {
		return runtimeadapter.RuntimeInterface{}, apierr.New(apierr.KindNotExists, "no such device")
	}
	return *iface, nil
}

func (f *fakeAdapter) AddPeer(name string, peer runtimeadapter.PeerConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnAdd[peer.PublicKey] {
		return apierr.Runtime("injected add failure", 1, "")
	}
	iface := f.ensure(name)
	for i, p := range iface.Peers {
		if p.PublicKey == peer.PublicKey {
			iface.Peers[i] = runtimeadapter.RuntimePeer{PublicKey: peer.PublicKey, AllowedIPs: peer.AllowedIPs, Endpoint: peer.Endpoint, PersistentKeepalive: peer.PersistentKeepalive}
			return nil
		}
	}
	iface.Peers = append(iface.Peers, runtimeadapter.RuntimePeer{PublicKey: peer.PublicKey, AllowedIPs: peer.AllowedIPs, Endpoint: peer.Endpoint, PersistentKeepalive: peer.PersistentKeepalive})
	return nil
}

func (f *fakeAdapter) RemovePeer(name, publicKey string, opts runtimeadapter.RemoveOpts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	iface, ok := f.interfaces[name]
	if !ok {
		if opts.IgnoreIfMissing {
			return nil
		}
		return apierr.New(apierr.KindNotExists, "no such device")
	}
	for i, p := range iface.Peers {
		if p.PublicKey == publicKey {
			iface.Peers = append(iface.Peers[:i], iface.Peers[i+1:]...)
			return nil
		}
	}
	if opts.IgnoreIfMissing {
		return nil
	}
	return apierr.New(apierr.KindNotExists, "no such peer")
}

func (f *fakeAdapter) UpdatePeer(name string, peer runtimeadapter.PeerConfig) error {
	return f.AddPeer(name, peer)
}

func (f *fakeAdapter) ToggleInterface(name string, isUp bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(name)
	return nil
}

func (f *fakeAdapter) UpInterface(name string, opts runtimeadapter.UpOpts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	iface := f.ensure(name)
	iface.ListenPort = opts.ListenPort
	return nil
}

func (f *fakeAdapter) GetSystemInfo() runtimeadapter.SystemInfo {
	return runtimeadapter.SystemInfo{Hostname: "test-host", Version: "wireguard-tools v1"}
}
