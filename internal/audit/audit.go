// Package audit implements the bounded, process-local audit ring:
// a deque per interface name, newest-first, capacity 500, tail-drop
// eviction, with cursor-based pagination.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const ringCapacity = 500

// Entry is one audit-log record.
type Entry struct {
	ID        string            `json:"id"`
	Interface string            `json:"interface"`
	Action    string            `json:"action"`
	Summary   map[string]int    `json:"summary,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Ring is the bounded in-memory audit ring.
type Ring struct {
	mu      sync.Mutex
	entries map[string][]Entry // interface -> newest-first
}

// New constructs an empty Ring.
func New() *Ring {
	return &Ring{entries: make(map[string][]Entry)}
}

// Append records a new entry for the given interface, evicting the
// oldest entry if the ring is at capacity (tail-drop: newest-first, so
// the tail of the slice is the oldest).
func (r *Ring) Append(iface, action string, summary map[string]int, details map[string]string) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := Entry{
		ID:        uuid.New().String(),
		Interface: iface,
		Action:    action,
		Summary:   summary,
		Details:   details,
		CreatedAt: time.Now(),
	}

	list := append([]Entry{e}, r.entries[iface]...)
	if len(list) > ringCapacity {
		list = list[:ringCapacity]
	}
	r.entries[iface] = list
	return e
}

// Page returns up to limit entries for iface, newest-first, starting
// immediately after cursor (an entry ID). nextCursor is set only when a
// full page was returned
func (r *Ring) Page(iface string, limit int, cursor string) (items []Entry, nextCursor string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.entries[iface]
	start := 0
	if cursor != "" {
		for i, e := range all {
			if e.ID == cursor {
				start = i + 1
				break
			}
		}
	}

	if limit <= 0 {
		limit = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	if start >= len(all) {
		return []Entry{}, ""
	}

	page := append([]Entry{}, all[start:end]...)
	if len(page) == limit && end < len(all) {
		nextCursor = page[len(page)-1].ID
	}
	return page, nextCursor
}
