// Package provisioning implements the transactional reconciler:
// revision-checked apply, dry-run planning, compensating rollback,
// drift detection, interface toggling, deploy-from-spec, and the audit
// trail. It sits in front of internal/state and internal/runtimeadapter,
// orchestrating mutations across both with revision checks and
// rollback on partial failure.
package provisioning

import (
	"time"

	"github.com/mr-karan/wgmesh/internal/state"
)

// OpKind tags the discriminated union of peer mutations accepted by
// ApplyPeerOperations
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
	OpToggle OpKind = "toggle"
	OpRemove OpKind = "remove"
)

// PeerPatch carries the optional fields an Update operation may change.
// Nil pointers/empty slices mean "leave unchanged".
type PeerPatch struct {
	Name                *string  `json:"name,omitempty"`
	AllowedIPs          []string `json:"allowedIps,omitempty"`
	Endpoint            *string  `json:"endpoint,omitempty"`
	PersistentKeepalive *uint16  `json:"persistentKeepalive,omitempty"`
	IsActive            *bool    `json:"isActive,omitempty"`
}

// PeerOperation is one tagged entry in an apply request's operation
// list.
type PeerOperation struct {
	Kind     OpKind     `json:"kind"`
	Peer     state.Peer `json:"peer,omitempty"`     // for Add: the full new peer
	PeerID   string     `json:"peerId,omitempty"`   // for Update/Toggle/Remove
	Patch    PeerPatch  `json:"patch,omitempty"`    // for Update
	IsActive bool       `json:"isActive,omitempty"` // for Toggle
}

// ApplyRequest is the input to ApplyPeerOperations.
type ApplyRequest struct {
	Revision   uint64
	DryRun     bool
	Operations []PeerOperation
}

// OpSummary counts how many operations of each kind were processed.
type OpSummary struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Toggled int `json:"toggled"`
	Removed int `json:"removed"`
}

// ApplyResult is returned by ApplyPeerOperations, either as a dry-run
// plan or as a committed result.
type ApplyResult struct {
	DryRun         bool      `json:"dryRun"`
	CurrentRevision uint64   `json:"currentRevision,omitempty"`
	NextRevision    uint64   `json:"nextRevision,omitempty"`
	Plan            []string `json:"plan,omitempty"`
	Applied         bool     `json:"applied,omitempty"`
	Revision        uint64   `json:"revision,omitempty"`
	Summary         OpSummary `json:"summary"`
}

// InterfaceSummary is one row of listInterfaces' output.
type InterfaceSummary struct {
	Name        string     `json:"name"`
	IsUp        bool       `json:"isUp"`
	ListenPort  int        `json:"listenPort"`
	PeerCount   int        `json:"peerCount"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
}

// ObservedPeer is a peer as returned in getInterfaceDetails: either a
// managed persisted peer (with live counters attached) or a
// runtime-only "unmanaged" peer.
type ObservedPeer struct {
	PeerID              string   `json:"peerId"`
	Name                string   `json:"name"`
	PublicKey           string   `json:"publicKey"`
	AllowedIPs          []string `json:"allowedIps"`
	Endpoint            string   `json:"endpoint,omitempty"`
	PersistentKeepalive uint16   `json:"persistentKeepalive,omitempty"`
	IsActive            bool     `json:"isActive"`
	IsUnmanaged         bool     `json:"isUnmanaged"`
	LatestHandshake     int64    `json:"latestHandshake"`
	TransferRx          uint64   `json:"transferRx"`
	TransferTx          uint64   `json:"transferTx"`
}

// InterfaceDetails is the merged view returned by getInterfaceDetails.
type InterfaceDetails struct {
	Name        string         `json:"name"`
	ListenPort  int            `json:"listenPort"`
	AddressCIDR string         `json:"addressCidr"`
	IsUp        bool           `json:"isUp"`
	Revision    uint64         `json:"revision"`
	PrivateKey  string         `json:"privateKey,omitempty"` // masked
	Peers       []ObservedPeer `json:"peers"`
}

// ToggleRequest is the input to ToggleInterfaceState.
type ToggleRequest struct {
	Revision uint64
	IsUp     bool
	DryRun   bool
}

// ReconcileMode selects drift-resolution direction.
type ReconcileMode string

const (
	ModeStateToRuntime ReconcileMode = "state_to_runtime"
	ModeRuntimeToState ReconcileMode = "runtime_to_state"
)

// ReconcileRequest is the input to ReconcileInterface.
type ReconcileRequest struct {
	Revision uint64
	Mode     ReconcileMode
}

// ReconcileResult reports the drift found and whether it was fixed.
type ReconcileResult struct {
	DriftFound       bool     `json:"driftFound"`
	MissingInRuntime []string `json:"missingInRuntime"`
	Zombies          []string `json:"zombies"`
	Revision         uint64   `json:"revision"`
}

// DeployRequest is the input to DeployMeshConfig.
type DeployRequest struct {
	Interface   string
	ListenPort  int
	AddressCIDR string
	PrivateKey  string
	Peers       []state.Peer
}

// DeployResult reports the post-deploy revision.
type DeployResult struct {
	Revision uint64 `json:"revision"`
}

// AuditPage is one page of audit entries.
type AuditPage struct {
	Items      []AuditItem `json:"items"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// AuditItem mirrors audit.Entry for the provisioning-facing API.
type AuditItem struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Summary   map[string]int `json:"summary,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
