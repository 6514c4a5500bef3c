package provisioning

import (
	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/state"
)

// ListInterfaces returns a summary row for the union of persisted
// interfaces, interfaces reported live by the runtime adapter, and
// interfaces only referenced by a peer's Interface field. Interfaces
// with no persisted record report isUp=true, listenPort=0, since
// they're known to exist only because something live or a dangling
// peer mentions them.
func (s *Service) ListInterfaces() ([]InterfaceSummary, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(doc.Interfaces))
	for name := range doc.Interfaces {
		names[name] = true
	}
	if runtimeNames, err := s.runtime.ListInterfaces(); err == nil {
		for _, name := range runtimeNames {
			names[name] = true
		}
	}
	for _, p := range doc.Peers {
		names[p.InterfaceName()] = true
	}

	out := make([]InterfaceSummary, 0, len(names))
	for name := range names {
		rec, ok := doc.Interfaces[name]
		if !ok {
			rec = state.InterfaceRecord{IsUp: true, ListenPort: 0}
		}
		summary := InterfaceSummary{
			Name:       name,
			IsUp:       rec.IsUp,
			ListenPort: rec.ListenPort,
			PeerCount:  len(doc.PeersForInterface(name)),
		}
		if ok {
			lastSync := doc.UpdatedAt
			summary.LastSyncAt = &lastSync
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetInterfaceDetails merges persisted peer metadata with live runtime
// counters. Peers observed live but absent from persisted state are
// reported with IsUnmanaged set.
func (s *Service) GetInterfaceDetails(name string) (InterfaceDetails, error) {
	doc, err := s.store.Load()
	if err != nil {
		return InterfaceDetails{}, err
	}

	rec, _, err := s.resolveInterfaceRecord(doc, name)
	if err != nil {
		return InterfaceDetails{}, err
	}

	persisted := doc.PeersForInterface(name)
	byPub := make(map[string]int, len(persisted))
	for i, p := range persisted {
		byPub[p.PublicKey] = i
	}

	peers := make([]ObservedPeer, 0, len(persisted))
	seen := make(map[string]bool, len(persisted))

	runtimeIface, err := s.runtime.GetInterface(name)
	if err != nil && !apierr.Is(err, apierr.KindNotExists) {
		return InterfaceDetails{}, err
	}

	for _, rp := range runtimeIface.Peers {
		if idx, ok := byPub[rp.PublicKey]; ok {
			p := persisted[idx]
			peers = append(peers, ObservedPeer{
				PeerID:              p.PeerID,
				Name:                p.Name,
				PublicKey:           p.PublicKey,
				AllowedIPs:          p.AllowedIPs,
				Endpoint:            rp.Endpoint,
				PersistentKeepalive: rp.PersistentKeepalive,
				IsActive:            p.IsActive,
				LatestHandshake:     rp.LatestHandshake,
				TransferRx:          rp.TransferRx,
				TransferTx:          rp.TransferTx,
			})
			seen[rp.PublicKey] = true
			continue
		}
		peers = append(peers, ObservedPeer{
			PeerID:              "discovered_" + truncateKey(rp.PublicKey, 12),
			Name:                "discovered-" + truncateKey(rp.PublicKey, 8),
			PublicKey:           rp.PublicKey,
			AllowedIPs:          rp.AllowedIPs,
			Endpoint:            rp.Endpoint,
			PersistentKeepalive: rp.PersistentKeepalive,
			IsActive:            true,
			IsUnmanaged:         true,
			LatestHandshake:     rp.LatestHandshake,
			TransferRx:          rp.TransferRx,
			TransferTx:          rp.TransferTx,
		})
	}

	for _, p := range persisted {
		if seen[p.PublicKey] {
			continue
		}
		peers = append(peers, ObservedPeer{
			PeerID:     p.PeerID,
			Name:       p.Name,
			PublicKey:  p.PublicKey,
			AllowedIPs: p.AllowedIPs,
			Endpoint:   p.Endpoint,
			IsActive:   p.IsActive,
		})
	}

	return InterfaceDetails{
		Name:        name,
		ListenPort:  rec.ListenPort,
		AddressCIDR: rec.AddressCIDR,
		IsUp:        rec.IsUp,
		Revision:    rec.Revision,
		PrivateKey:  maskKey(rec.PrivateKey),
		Peers:       peers,
	}, nil
}

// truncateKey returns the first n characters of pub, or pub unchanged
// if it's shorter than n.
func truncateKey(pub string, n int) string {
	if len(pub) > n {
		return pub[:n]
	}
	return pub
}

// maskKey renders a key as its first 4 and last 4 characters joined by
// "...", so full-length keys never appear whole in API responses. Keys of
// 8 characters or fewer are returned unchanged.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return key
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Audit returns one page of audit-log entries for an interface.
func (s *Service) Audit(name string, limit int, cursor string) AuditPage {
	items, next := s.audit.Page(name, limit, cursor)
	out := make([]AuditItem, len(items))
	for i, e := range items {
		out[i] = AuditItem{ID: e.ID, Action: e.Action, Summary: e.Summary, CreatedAt: e.CreatedAt}
	}
	return AuditPage{Items: out, NextCursor: next}
}
