// Package runtimeadapter defines the contract for reading and mutating
// live WireGuard interfaces, plus an exec-backed implementation that
// shells out to the external `wg`/`ip` control tools to keep the
// kernel's interface state in sync with what's been provisioned.
//
// AddPeer/RemovePeer/Up operate on a real kernel interface via
// subprocess calls rather than an embedded userspace device.
// ParseKey exposes wgtypes.Key (golang.zx2c4.com/wireguard/wgctrl/wgtypes)
// parsing for key validation; keys read back from `wg show ... dump`
// output are kept as the raw strings the tool prints.
package runtimeadapter

// RuntimeInterface is the live, adapter-observed view of an interface.
type RuntimeInterface struct {
	Name       string
	PrivateKey string // optional
	PublicKey  string // optional
	ListenPort int
	FWMark     int
	MTU        int
	DNS        []string
	Table      string
	Peers      []RuntimePeer
}

// RuntimePeer is one peer as observed live, with transfer counters.
type RuntimePeer struct {
	PublicKey           string
	PresharedKey        string
	Endpoint            string
	AllowedIPs          []string
	LatestHandshake     int64
	TransferRx          uint64
	TransferTx          uint64
	PersistentKeepalive uint16
}

// PeerConfig is what callers supply to AddPeer/UpdatePeer; it is
// independent of internal/state.Peer so this package has no dependency
// on the persisted-state schema.
type PeerConfig struct {
	PublicKey           string
	PresharedKey        string // optional; passed via temp file, never argv
	AllowedIPs          []string
	Endpoint            string
	PersistentKeepalive uint16
}

// RemoveOpts configures RemovePeer.
type RemoveOpts struct {
	IgnoreIfMissing bool
}

// UpOpts configures UpInterface.
type UpOpts struct {
	PrivateKey string
	ListenPort int
	Address    string // CIDR to assign, e.g. "10.0.0.1/24"
}

// SystemInfo is a best-effort host probe; it never fails, falling back
// to "unknown" fields on any error.
type SystemInfo struct {
	Hostname string
	Version  string
}

// Adapter is the polymorphic runtime control-surface contract.
type Adapter interface {
	ListInterfaces() ([]string, error)
	GetInterface(name string) (RuntimeInterface, error) // returns an apierr.KindNotExists error if absent
	AddPeer(name string, peer PeerConfig) error
	RemovePeer(name, publicKey string, opts RemoveOpts) error
	UpdatePeer(name string, peer PeerConfig) error
	ToggleInterface(name string, isUp bool) error
	UpInterface(name string, opts UpOpts) error
	GetSystemInfo() SystemInfo
}
