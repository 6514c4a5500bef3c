package provisioning

import (
	"github.com/google/uuid"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
	"github.com/mr-karan/wgmesh/internal/state"
)

// ReconcileInterface compares persisted "intended" peers against the
// live runtime and resolves any drift. In
// state_to_runtime mode the runtime is pushed to match state (missing
// peers added, zombies removed). In runtime_to_state mode the persisted
// document is rewritten to match what's observed live.
func (s *Service) ReconcileInterface(name string, req ReconcileRequest) (ReconcileResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return ReconcileResult{}, err
	}

	rec, _, err := s.resolveInterfaceRecord(doc, name)
	if err != nil {
		return ReconcileResult{}, err
	}
	if err := checkRevision(req.Revision, rec.Revision); err != nil {
		return ReconcileResult{}, err
	}

	runtimeIface, err := s.runtime.GetInterface(name)
	if err != nil && !apierr.Is(err, apierr.KindNotExists) {
		return ReconcileResult{}, err
	}

	observed := make(map[string]runtimeadapter.RuntimePeer)
	for _, p := range runtimeIface.Peers {
		observed[p.PublicKey] = p
	}

	expected := make(map[string]state.Peer)
	for _, p := range doc.PeersForInterface(name) {
		if p.IsActive {
			expected[p.PublicKey] = p
		}
	}

	var missing, zombies []string
	for pub := range expected {
		if _, ok := observed[pub]; !ok {
			missing = append(missing, pub)
		}
	}
	for pub := range observed {
		if _, ok := expected[pub]; !ok {
			zombies = append(zombies, pub)
		}
	}

	driftFound := len(missing) > 0 || len(zombies) > 0
	if !driftFound {
		return ReconcileResult{DriftFound: false, Revision: rec.Revision}, nil
	}
	metrics.ReconcileDrifts.Inc()

	switch req.Mode {
	case ModeStateToRuntime:
		return s.reconcileStateToRuntime(name, rec, expected, missing, zombies)
	case ModeRuntimeToState:
		return s.reconcileRuntimeToState(name, doc, rec, observed, missing, zombies)
	default:
		return ReconcileResult{}, apierr.New(apierr.KindValidation, "unknown reconcile mode")
	}
}

func (s *Service) reconcileStateToRuntime(name string, rec state.InterfaceRecord, expected map[string]state.Peer, missing, zombies []string) (ReconcileResult, error) {
	var committed []scheduledOp
	for _, pub := range missing {
		op := scheduledOp{Kind: scheduledAdd, PublicKey: pub, Next: configFromPeer(expected[pub])}
		if err := executeOp(s.runtime, name, op); err != nil {
			rollback(s.runtime, name, committed, nil)
			return ReconcileResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
		}
		committed = append(committed, op)
	}
	for _, pub := range zombies {
		op := scheduledOp{Kind: scheduledRemove, PublicKey: pub}
		if err := s.runtime.RemovePeer(name, pub, runtimeadapter.RemoveOpts{IgnoreIfMissing: true}); err != nil {
			rollback(s.runtime, name, committed, nil)
			return ReconcileResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
		}
		committed = append(committed, op)
	}

	result, err := s.store.Update(func(d *state.Document) (any, error) {
		latest, _, err := s.resolveInterfaceRecord(*d, name)
		if err != nil {
			return nil, err
		}
		latest.Revision++
		d.Interfaces[name] = latest
		refreshGauges(*d)
		return latest.Revision, nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	nextRevision := result.(uint64)
	metrics.InterfaceRevisions.Inc()

	s.audit.Append(name, "reconcile_state_to_runtime", map[string]int{"added": len(missing), "removed": len(zombies)}, nil)
	s.logOp(name, "reconcile_state_to_runtime", nil)

	return ReconcileResult{DriftFound: true, MissingInRuntime: missing, Zombies: zombies, Revision: nextRevision}, nil
}

func (s *Service) reconcileRuntimeToState(name string, doc state.Document, rec state.InterfaceRecord, observed map[string]runtimeadapter.RuntimePeer, missing, zombies []string) (ReconcileResult, error) {
	result, err := s.store.Update(func(d *state.Document) (any, error) {
		peers := d.PeersForInterface(name)

		// Mark active peers the runtime no longer reports as inactive;
		// they stay in the persisted peer list.
		kept := peers[:0:0]
		for _, p := range peers {
			if isMissingPeer(missing, p.PublicKey) {
				p.IsActive = false
			}
			kept = append(kept, p)
		}

		// Adopt zombies (runtime peers the state never knew about) as
		// newly-managed peers.
		for _, pub := range zombies {
			rp := observed[pub]
			kept = append(kept, state.Peer{
				PeerID:     uuid.New().String(),
				Name:       "adopted-" + shortKey(pub),
				PublicKey:  rp.PublicKey,
				AllowedIPs: rp.AllowedIPs,
				Endpoint:   rp.Endpoint,
				IsActive:   true,
				Interface:  name,
			})
		}

		latest, _, err := s.resolveInterfaceRecord(*d, name)
		if err != nil {
			return nil, err
		}
		latest.Revision++
		d.Interfaces[name] = latest
		d.Peers = state.ReplacePeersForInterface(d.Peers, name, kept)
		refreshGauges(*d)
		return latest.Revision, nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	nextRevision := result.(uint64)
	metrics.InterfaceRevisions.Inc()
	s.audit.Append(name, "reconcile_runtime_to_state", map[string]int{"adopted": len(zombies), "deactivated": len(missing)}, nil)
	s.logOp(name, "reconcile_runtime_to_state", nil)

	return ReconcileResult{DriftFound: true, MissingInRuntime: missing, Zombies: zombies, Revision: nextRevision}, nil
}

func shortKey(pub string) string {
	if len(pub) > 8 {
		return pub[:8]
	}
	return pub
}

func isMissingPeer(missing []string, pub string) bool {
	for _, m := range missing {
		if m == pub {
			return true
		}
	}
	return false
}
