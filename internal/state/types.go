// Package state implements the lock-guarded, atomically-replaced
// on-disk document describing managed interfaces and their peers.
package state

import "time"

// DefaultInterfaceName is used when a Peer's Interface field is empty.
const DefaultInterfaceName = "wg0"

// Peer is a managed peer persisted in the document.
type Peer struct {
	PeerID              string   `json:"peerId"`
	Name                string   `json:"name"`
	PublicKey           string   `json:"publicKey"`
	PrivateKey          string   `json:"privateKey,omitempty"`
	AllowedIPs          []string `json:"allowedIps"`
	Endpoint            string   `json:"endpoint,omitempty"`
	PersistentKeepalive uint16   `json:"persistentKeepalive,omitempty"`
	IsActive            bool     `json:"isActive"`
	Interface           string   `json:"interface"`
}

// InterfaceName returns p.Interface, or DefaultInterfaceName if empty.
func (p Peer) InterfaceName() string {
	if p.Interface == "" {
		return DefaultInterfaceName
	}
	return p.Interface
}

// InterfaceRecord is the persisted metadata for one managed interface.
type InterfaceRecord struct {
	ListenPort  int    `json:"listenPort"`
	AddressCIDR string `json:"addressCidr"`
	Revision    uint64 `json:"revision"`
	IsUp        bool   `json:"isUp"`
	PrivateKey  string `json:"privateKey,omitempty"`
}

// Document is the full on-disk PersistedState shape.
type Document struct {
	Version     int                        `json:"version"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
	Interfaces  map[string]InterfaceRecord `json:"interfaces"`
	Peers       []Peer                     `json:"peers"`
}

// NewEmptyDocument returns a fresh, empty, schema-version-1 document.
func NewEmptyDocument() Document {
	return Document{
		Version:    1,
		UpdatedAt:  time.Time{},
		Interfaces: make(map[string]InterfaceRecord),
		Peers:      make([]Peer, 0),
	}
}

// PeersForInterface returns the peers belonging to the named interface,
// honoring the empty-interface-means-wg0 back-compat rule.
func (d Document) PeersForInterface(name string) []Peer {
	out := make([]Peer, 0)
	for _, p := range d.Peers {
		if p.InterfaceName() == name {
			out = append(out, p)
		}
	}
	return out
}

// ReplacePeersForInterface returns a copy of all with all peers
// belonging to `name` removed and replaced with `newPeers`, preserving
// every other interface's peers untouched.
func ReplacePeersForInterface(all []Peer, name string, newPeers []Peer) []Peer {
	out := make([]Peer, 0, len(all)+len(newPeers))
	for _, p := range all {
		if p.InterfaceName() != name {
			out = append(out, p)
		}
	}
	out = append(out, newPeers...)
	return out
}
