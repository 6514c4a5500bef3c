package provisioning

import (
	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/state"
)

// ToggleInterfaceState brings an interface up or down. A dry run
// reports the command that would run without touching runtime or
// state.
func (s *Service) ToggleInterfaceState(name string, req ToggleRequest) (ApplyResult, error) {
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

	if req.DryRun {
		verb := "down"
		if req.IsUp {
			verb = "up"
		}
		return ApplyResult{
			DryRun:          true,
			CurrentRevision: rec.Revision,
			NextRevision:    rec.Revision + 1,
			Plan:            []string{"[TOGGLE] ip link set " + name + " " + verb},
		}, nil
	}

	if err := s.runtime.ToggleInterface(name, req.IsUp); err != nil {
		s.logOp(name, "toggle", err)
		return ApplyResult{}, apierr.New(apierr.KindApplyFailed, err.Error())
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
		latest.IsUp = req.IsUp
		d.Interfaces[name] = latest
		refreshGauges(*d)
		return latest.Revision, nil
	})
	if err != nil {
		// best-effort compensation: flip it back.
		_ = s.runtime.ToggleInterface(name, !req.IsUp)
		s.logOp(name, "toggle", err)
		return ApplyResult{}, err
	}

	nextRevision := result.(uint64)
	metrics.InterfaceRevisions.Inc()
	s.audit.Append(name, "toggle", map[string]int{"toggled": 1}, map[string]string{"isUp": boolString(req.IsUp)})
	s.logOp(name, "toggle", nil)

	return ApplyResult{Applied: true, Revision: nextRevision}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
