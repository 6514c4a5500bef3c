package provisioning

import (
	"fmt"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
	"github.com/mr-karan/wgmesh/internal/state"
)

func configFromPeer(p state.Peer) runtimeadapter.PeerConfig {
	return runtimeadapter.PeerConfig{
		PublicKey:           p.PublicKey,
		AllowedIPs:          p.AllowedIPs,
		Endpoint:            p.Endpoint,
		PersistentKeepalive: p.PersistentKeepalive,
	}
}

// ApplyPeerOperations processes an ordered batch of peer mutations
// against one interface. On DryRun it returns a textual plan without
// touching runtime or state. Otherwise it executes
// the scheduled runtime ops in order, rolling back everything already
// committed on the first failure, then persists the resulting peer list
// under a single revision bump.
func (s *Service) ApplyPeerOperations(name string, req ApplyRequest) (ApplyResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return ApplyResult{}, err
	}

	rec, _, err := s.resolveInterfaceRecord(doc, name)
	if err != nil {
		return ApplyResult{}, err
	}
	if err := checkRevision(req.Revision, rec.Revision); err != nil {
		return ApplyResult{}, err
	}

	peers := doc.PeersForInterface(name)
	byID := make(map[string]int, len(peers))
	for i, p := range peers {
		byID[p.PeerID] = i
	}

	var ops []scheduledOp
	summary := OpSummary{}

	for _, pop := range req.Operations {
		switch pop.Kind {
		case OpAdd:
			np := pop.Peer
			if np.Interface == "" {
				np.Interface = name
			}
			peers = append(peers, np)
			byID[np.PeerID] = len(peers) - 1
			if np.IsActive {
				ops = append(ops, scheduledOp{Kind: scheduledAdd, PublicKey: np.PublicKey, Next: configFromPeer(np)})
			}
			summary.Added++

		case OpUpdate:
			idx, ok := byID[pop.PeerID]
			if !ok {
				return ApplyResult{}, apierr.New(apierr.KindValidation, fmt.Sprintf("unknown peer id %q", pop.PeerID))
			}
			before := peers[idx]
			after := applyPatch(before, pop.Patch)
			peers[idx] = after

			switch {
			case before.IsActive && after.IsActive:
				ops = append(ops, scheduledOp{Kind: scheduledUpdate, PublicKey: after.PublicKey, Next: configFromPeer(after), Previous: configFromPeer(before)})
			case before.IsActive && !after.IsActive:
				ops = append(ops, scheduledOp{Kind: scheduledRemove, PublicKey: before.PublicKey, Previous: configFromPeer(before)})
			case !before.IsActive && after.IsActive:
				ops = append(ops, scheduledOp{Kind: scheduledAdd, PublicKey: after.PublicKey, Next: configFromPeer(after)})
			}
			summary.Updated++

		case OpToggle:
			idx, ok := byID[pop.PeerID]
			if !ok {
				return ApplyResult{}, apierr.New(apierr.KindValidation, fmt.Sprintf("unknown peer id %q", pop.PeerID))
			}
			before := peers[idx]
			after := before
			after.IsActive = pop.IsActive
			peers[idx] = after

			if !before.IsActive && after.IsActive {
				ops = append(ops, scheduledOp{Kind: scheduledAdd, PublicKey: after.PublicKey, Next: configFromPeer(after)})
			} else if before.IsActive && !after.IsActive {
				ops = append(ops, scheduledOp{Kind: scheduledRemove, PublicKey: before.PublicKey, Previous: configFromPeer(before)})
			}
			summary.Toggled++

		case OpRemove:
			idx, ok := byID[pop.PeerID]
			if !ok {
				return ApplyResult{}, apierr.New(apierr.KindValidation, fmt.Sprintf("unknown peer id %q", pop.PeerID))
			}
			removed := peers[idx]
			peers = append(peers[:idx], peers[idx+1:]...)
			delete(byID, pop.PeerID)
			for id, i := range byID {
				if i > idx {
					byID[id] = i - 1
				}
			}
			if removed.IsActive {
				ops = append(ops, scheduledOp{Kind: scheduledRemove, PublicKey: removed.PublicKey, Previous: configFromPeer(removed)})
			}
			summary.Removed++

		default:
			return ApplyResult{}, apierr.New(apierr.KindValidation, fmt.Sprintf("unknown operation kind %q", pop.Kind))
		}
	}

	if req.DryRun {
		plan := make([]string, 0, len(ops))
		for _, op := range ops {
			plan = append(plan, op.planLine(name))
		}
		return ApplyResult{DryRun: true, CurrentRevision: rec.Revision, NextRevision: rec.Revision + 1, Plan: plan, Summary: summary}, nil
	}

	metrics.ApplyTotal.Inc()

	var committed []scheduledOp
	for _, op := range ops {
		if err := executeOp(s.runtime, name, op); err != nil {
			rollback(s.runtime, name, committed, func(failed scheduledOp, rerr error) {
				s.logger.Error("rollback op failed", "interface", name, "op", failed.Kind, "error", rerr)
			})
			metrics.ApplyFailures.Inc()
			s.logOp(name, "apply", err)
			return ApplyResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
		}
		committed = append(committed, op)
	}

	result, err := s.store.Update(func(d *state.Document) (any, error) {
		latest, _, err := s.resolveInterfaceRecord(*d, name)
		if err != nil {
			return nil, err
		}
		if err := checkRevision(req.Revision, latest.Revision); err != nil {
			return nil, err
		}

		latest.Revision++
		d.Interfaces[name] = latest
		d.Peers = state.ReplacePeersForInterface(d.Peers, name, peers)
		refreshGauges(*d)
		return latest.Revision, nil
	})
	if err != nil {
		// Runtime mutations already committed; rolling them back here
		// would race a store that might already reflect a conflicting
		// revision. Leave the runtime ahead of state and surface
		// ApplyFailed so the operator can reconcile(runtime_to_state).
		metrics.ApplyFailures.Inc()
		s.logOp(name, "apply", err)
		return ApplyResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
	}

	nextRevision := result.(uint64)
	metrics.InterfaceRevisions.Inc()
	s.audit.Append(name, "apply", summaryCounts(summary), nil)
	s.logOp(name, "apply", nil)

	return ApplyResult{Applied: true, Revision: nextRevision, Summary: summary}, nil
}

func applyPatch(p state.Peer, patch PeerPatch) state.Peer {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if len(patch.AllowedIPs) > 0 {
		p.AllowedIPs = patch.AllowedIPs
	}
	if patch.Endpoint != nil {
		p.Endpoint = *patch.Endpoint
	}
	if patch.PersistentKeepalive != nil {
		p.PersistentKeepalive = *patch.PersistentKeepalive
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	return p
}
