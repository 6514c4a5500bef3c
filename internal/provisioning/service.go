package provisioning

import (
	"fmt"
	"log/slog"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/audit"
	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
	"github.com/mr-karan/wgmesh/internal/state"
)

// Service is the provisioning core. It depends on an explicit Store
// and Adapter, injected as constructor arguments rather than reached
// for as package-level singletons, plus an in-memory Audit ring.
type Service struct {
	store   *state.Store
	runtime runtimeadapter.Adapter
	audit   *audit.Ring
	logger  *slog.Logger
}

// New constructs a Service.
func New(store *state.Store, runtime runtimeadapter.Adapter, auditRing *audit.Ring, logger *slog.Logger) *Service {
	return &Service{store: store, runtime: runtime, audit: auditRing, logger: logger}
}

// resolveInterfaceRecord returns the persisted InterfaceRecord for name,
// or a synthetic placeholder (revision=0, isUp=true, listenPort=0) if
// it's absent from persisted state but present at runtime, so an
// interface provisioned out-of-band can be adopted on its first call
// rather than rejected outright.
func (s *Service) resolveInterfaceRecord(doc state.Document, name string) (state.InterfaceRecord, bool, error) {
	if rec, ok := doc.Interfaces[name]; ok {
		return rec, false, nil
	}

	if _, err := s.runtime.GetInterface(name); err != nil {
		if apierr.Is(err, apierr.KindNotExists) {
			return state.InterfaceRecord{}, false, apierr.New(apierr.KindInterfaceNotFound, fmt.Sprintf("interface %q not found", name))
		}
		return state.InterfaceRecord{}, false, err
	}

	return state.InterfaceRecord{ListenPort: 0, AddressCIDR: "unknown/24", Revision: 0, IsUp: true}, true, nil
}

func checkRevision(expected, received uint64) error {
	if expected != received {
		return apierr.RevisionConflict(expected, received)
	}
	return nil
}

func (s *Service) logOp(interfaceName, action string, err error) {
	if err != nil {
		s.logger.Error("provisioning op failed", "interface", interfaceName, "action", action, "error", err)
		return
	}
	s.logger.Info("provisioning op", "interface", interfaceName, "action", action)
}

// refreshGauges recomputes the interface/peer gauges from a freshly
// persisted document, called after every successful store mutation.
func refreshGauges(doc state.Document) {
	metrics.InterfacesActive.Set(float64(len(doc.Interfaces)))
	active := 0
	for _, p := range doc.Peers {
		if p.IsActive {
			active++
		}
	}
	metrics.PeersActive.Set(float64(active))
}

func summaryCounts(summary OpSummary) map[string]int {
	return map[string]int{
		"added":   summary.Added,
		"updated": summary.Updated,
		"toggled": summary.Toggled,
		"removed": summary.Removed,
	}
}
