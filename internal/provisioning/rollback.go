package provisioning

import (
	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
)

// scheduledOpKind tags one runtime mutation scheduled by ApplyPeerOperations
// or ReconcileInterface(state_to_runtime). Modeled as a plain value (not a
// closure) so the plan can be logged/serialized for post-mortems.
type scheduledOpKind string

const (
	scheduledAdd    scheduledOpKind = "add"
	scheduledRemove scheduledOpKind = "remove"
	scheduledUpdate scheduledOpKind = "update"
)

// scheduledOp is one runtime mutation to execute, plus what it takes to
// compensate for it if a later op in the same batch fails.
type scheduledOp struct {
	Kind      scheduledOpKind
	PublicKey string
	Next      runtimeadapter.PeerConfig // for add/update
	Previous  runtimeadapter.PeerConfig // for update's and remove's compensation
}

// planLine renders the dry-run textual command for this op.
func (op scheduledOp) planLine(interfaceName string) string {
	switch op.Kind {
	case scheduledAdd:
		return "[ADD] wg set " + interfaceName + " peer " + op.PublicKey + " allowed-ips " + joinCSV(op.Next.AllowedIPs)
	case scheduledUpdate:
		return "[UPDATE] wg set " + interfaceName + " peer " + op.PublicKey + " allowed-ips " + joinCSV(op.Next.AllowedIPs)
	default:
		return "[REMOVE] wg set " + interfaceName + " peer " + op.PublicKey + " remove"
	}
}

func joinCSV(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// executeOp runs one scheduled op against the runtime adapter.
func executeOp(adapter runtimeadapter.Adapter, interfaceName string, op scheduledOp) error {
	switch op.Kind {
	case scheduledAdd:
		return adapter.AddPeer(interfaceName, op.Next)
	case scheduledUpdate:
		return adapter.UpdatePeer(interfaceName, op.Next)
	default:
		return adapter.RemovePeer(interfaceName, op.PublicKey, runtimeadapter.RemoveOpts{})
	}
}

// compensate builds the inverse of a successfully-executed op:
// add -> remove(ignoreIfMissing), remove -> add, update -> update(previous).
func compensate(op scheduledOp) scheduledOp {
	switch op.Kind {
	case scheduledAdd:
		return scheduledOp{Kind: scheduledRemove, PublicKey: op.PublicKey}
	case scheduledUpdate:
		return scheduledOp{Kind: scheduledUpdate, PublicKey: op.PublicKey, Next: op.Previous}
	default: // scheduledRemove -> re-add using the op's stashed Previous config
		return scheduledOp{Kind: scheduledAdd, PublicKey: op.PublicKey, Next: op.Previous}
	}
}

// rollback executes compensating ops for everything already committed,
// in strict LIFO order. Each compensating op's own failure is logged
// and does not interrupt the rest of the rollback.
func rollback(adapter runtimeadapter.Adapter, interfaceName string, committed []scheduledOp, onErr func(op scheduledOp, err error)) {
	if len(committed) > 0 {
		metrics.RollbacksTotal.Inc()
	}
	for i := len(committed) - 1; i >= 0; i-- {
		comp := compensate(committed[i])
		var err error
		switch comp.Kind {
		case scheduledAdd:
			err = adapter.AddPeer(interfaceName, comp.Next)
		case scheduledUpdate:
			err = adapter.UpdatePeer(interfaceName, comp.Next)
		default:
			err = adapter.RemovePeer(interfaceName, comp.PublicKey, runtimeadapter.RemoveOpts{IgnoreIfMissing: true})
		}
		if err != nil && onErr != nil {
			onErr(comp, err)
		}
	}
}
