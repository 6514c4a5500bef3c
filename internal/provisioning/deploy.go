package provisioning

import (
	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
	"github.com/mr-karan/wgmesh/internal/state"
)

// DeployMeshConfig brings up a brand-new interface from a resolved mesh
// spec and populates it with its initial peer set in one shot. It is
// the only provisioning operation that does not require a starting
// revision, since it only applies to interfaces with no persisted
// record yet.
func (s *Service) DeployMeshConfig(req DeployRequest) (DeployResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return DeployResult{}, err
	}
	if _, ok := doc.Interfaces[req.Interface]; ok {
		return DeployResult{}, apierr.New(apierr.KindValidation, "interface already deployed; use apply/reconcile instead")
	}

	if err := s.runtime.UpInterface(req.Interface, runtimeadapter.UpOpts{
		PrivateKey: req.PrivateKey,
		ListenPort: req.ListenPort,
		Address:    req.AddressCIDR,
	}); err != nil {
		return DeployResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
	}

	// Purge any peers already present on the interface (e.g. left over
	// from a prior out-of-band configuration) before laying down the new
	// peer set, so deploy always starts from a clean slate.
	if existing, err := s.runtime.GetInterface(req.Interface); err == nil {
		for _, p := range existing.Peers {
			if err := s.runtime.RemovePeer(req.Interface, p.PublicKey, runtimeadapter.RemoveOpts{IgnoreIfMissing: true}); err != nil {
				_ = s.runtime.ToggleInterface(req.Interface, false)
				return DeployResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
			}
		}
	} else if !apierr.Is(err, apierr.KindNotExists) {
		_ = s.runtime.ToggleInterface(req.Interface, false)
		return DeployResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
	}

	var committed []scheduledOp
	for _, p := range req.Peers {
		if !p.IsActive {
			continue
		}
		op := scheduledOp{Kind: scheduledAdd, PublicKey: p.PublicKey, Next: configFromPeer(p)}
		if err := executeOp(s.runtime, req.Interface, op); err != nil {
			rollback(s.runtime, req.Interface, committed, nil)
			_ = s.runtime.ToggleInterface(req.Interface, false)
			return DeployResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
		}
		committed = append(committed, op)
	}

	result, err := s.store.Update(func(d *state.Document) (any, error) {
		d.Interfaces[req.Interface] = state.InterfaceRecord{
			ListenPort:  req.ListenPort,
			AddressCIDR: req.AddressCIDR,
			Revision:    1,
			IsUp:        true,
			PrivateKey:  req.PrivateKey,
		}
		peers := make([]state.Peer, len(req.Peers))
		for i, p := range req.Peers {
			p.Interface = req.Interface
			peers[i] = p
		}
		d.Peers = state.ReplacePeersForInterface(d.Peers, req.Interface, peers)
		refreshGauges(*d)
		return uint64(1), nil
	})
	if err != nil {
		rollback(s.runtime, req.Interface, committed, nil)
		return DeployResult{}, err
	}
	metrics.InterfaceRevisions.Inc()

	s.audit.Append(req.Interface, "deploy", map[string]int{"peers": len(req.Peers)}, nil)
	s.logOp(req.Interface, "deploy", nil)

	return DeployResult{Revision: result.(uint64)}, nil
}
