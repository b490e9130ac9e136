/*
state.go - Application state and its persistence

PURPOSE:
  State holds every collection the stock service works with. It is the
  in-memory mirror of what store.Collections keeps on disk: one JSON array
  per collection key.

PERSISTENCE MODEL:
  Each key is written as a full-array overwrite. A mutation persists only
  the keys it touched, and all of them in one PutMany call.

SNAPSHOTS:
  snapshot() deep-copies the state before a mutation; restore() puts it
  back when the remote backend refuses the change. See service.go.
*/
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/store"
)

// Collection keys in store.Collections and collection names on the remote.
const (
	KeySiteMovements      = "stockMovements"
	KeyWarehouseMovements = "pressedStockMovements"
	KeyDeliveries         = "farmerDeliveries"
	KeyTransfers          = "siteTransfers"
	KeyPressingSlips      = "pressingSlips"
	KeyExportDocuments    = "exportDocuments"
)

// AllKeys lists every collection in load order.
var AllKeys = []string{
	KeySiteMovements,
	KeyWarehouseMovements,
	KeyDeliveries,
	KeyTransfers,
	KeyPressingSlips,
	KeyExportDocuments,
}

type State struct {
	site       *ledger.Log[OnSiteKind]
	warehouse  *ledger.Log[WarehouseKind]
	deliveries []FarmerDelivery
	transfers  []SiteTransfer
	slips      []PressingSlip
	exports    []ExportDocument

	// skipped lists, per collection, loaded movements whose kind is unknown.
	skipped map[string][]string
}

func NewState() *State {
	return &State{
		site:      ledger.NewLog[OnSiteKind](),
		warehouse: ledger.NewLog[WarehouseKind](),
	}
}

// =============================================================================
// LOAD / PERSIST
// =============================================================================

// LoadState reads every collection. Missing keys load as empty collections.
func LoadState(ctx context.Context, st store.Collections) (*State, error) {
	var (
		site      []SiteMovement
		warehouse []WarehouseMovement
		s         = NewState()
	)
	targets := map[string]any{
		KeySiteMovements:      &site,
		KeyWarehouseMovements: &warehouse,
		KeyDeliveries:         &s.deliveries,
		KeyTransfers:          &s.transfers,
		KeyPressingSlips:      &s.slips,
		KeyExportDocuments:    &s.exports,
	}
	for _, key := range AllKeys {
		raw, err := st.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, targets[key]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	site, skippedSite := knownKinds(site)
	warehouse, skippedWarehouse := knownKinds(warehouse)
	s.skipped = map[string][]string{
		KeySiteMovements:      skippedSite,
		KeyWarehouseMovements: skippedWarehouse,
	}
	s.site = ledger.NewLog(site...)
	s.warehouse = ledger.NewLog(warehouse...)
	return s, nil
}

// knownKinds separates movements whose kind belongs to the ledger from
// those that do not. An unknown kind has no grade and no direction, so it
// cannot be replayed.
func knownKinds[K ledger.Kind](ms []ledger.Movement[K]) ([]ledger.Movement[K], []string) {
	var skipped []string
	kept := ms[:0]
	for _, m := range ms {
		if !m.Kind.Valid() {
			skipped = append(skipped, fmt.Sprintf("%s:%s", m.ID, m.Kind))
			continue
		}
		kept = append(kept, m)
	}
	return kept, skipped
}

// Persist writes the given keys (all keys when none are given).
func (s *State) Persist(ctx context.Context, st store.Collections, keys ...string) error {
	if len(keys) == 0 {
		keys = AllKeys
	}
	payloads := make(map[string][]byte, len(keys))
	for _, key := range keys {
		b, err := s.encode(key)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		payloads[key] = b
	}
	if err := st.PutMany(ctx, payloads); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *State) encode(key string) ([]byte, error) {
	switch key {
	case KeySiteMovements:
		return json.Marshal(nonNil(s.site.All()))
	case KeyWarehouseMovements:
		return json.Marshal(nonNil(s.warehouse.All()))
	case KeyDeliveries:
		return json.Marshal(nonNil(s.deliveries))
	case KeyTransfers:
		return json.Marshal(nonNil(s.transfers))
	case KeyPressingSlips:
		return json.Marshal(nonNil(s.slips))
	case KeyExportDocuments:
		return json.Marshal(nonNil(s.exports))
	}
	return nil, fmt.Errorf("unknown collection %q", key)
}

// nonNil makes empty collections encode as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

// =============================================================================
// SNAPSHOT / RESTORE
// =============================================================================

func (s *State) snapshot() *State {
	c := &State{
		site:       s.site.Clone(),
		warehouse:  s.warehouse.Clone(),
		deliveries: slices.Clone(s.deliveries),
		slips:      slices.Clone(s.slips),
	}
	c.transfers = make([]SiteTransfer, len(s.transfers))
	for i, t := range s.transfers {
		c.transfers[i] = t.clone()
	}
	c.exports = make([]ExportDocument, len(s.exports))
	for i, d := range s.exports {
		c.exports[i] = d.clone()
	}
	return c
}

func (s *State) restore(from *State) {
	*s = *from
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s *State) deliveryIndex(id string) int {
	return slices.IndexFunc(s.deliveries, func(d FarmerDelivery) bool { return d.ID == id })
}

func (s *State) transferIndex(id string) int {
	return slices.IndexFunc(s.transfers, func(t SiteTransfer) bool { return t.ID == id })
}

func (s *State) slipIndex(id string) int {
	return slices.IndexFunc(s.slips, func(p PressingSlip) bool { return p.ID == id })
}

func (s *State) exportIndex(id string) int {
	return slices.IndexFunc(s.exports, func(d ExportDocument) bool { return d.ID == id })
}

// count is the number of records held under key; 0 for foreign keys.
func (s *State) count(key string) int {
	switch key {
	case KeySiteMovements:
		return s.site.Len()
	case KeyWarehouseMovements:
		return s.warehouse.Len()
	case KeyDeliveries:
		return len(s.deliveries)
	case KeyTransfers:
		return len(s.transfers)
	case KeyPressingSlips:
		return len(s.slips)
	case KeyExportDocuments:
		return len(s.exports)
	}
	return 0
}

// record returns the current version of one record, as sent to the remote.
func (s *State) record(collection, id string) (any, bool) {
	switch collection {
	case KeySiteMovements:
		return findMovement(s.site, id)
	case KeyWarehouseMovements:
		return findMovement(s.warehouse, id)
	case KeyDeliveries:
		if i := s.deliveryIndex(id); i >= 0 {
			return s.deliveries[i], true
		}
	case KeyTransfers:
		if i := s.transferIndex(id); i >= 0 {
			return s.transfers[i], true
		}
	case KeyPressingSlips:
		if i := s.slipIndex(id); i >= 0 {
			return s.slips[i], true
		}
	case KeyExportDocuments:
		if i := s.exportIndex(id); i >= 0 {
			return s.exports[i], true
		}
	}
	return nil, false
}

func findMovement[K ledger.Kind](log *ledger.Log[K], id string) (any, bool) {
	for _, m := range log.All() {
		if string(m.ID) == id {
			return m, true
		}
	}
	return nil, false
}

// =============================================================================
// REMAP - Provisional ids replaced by backend ids
// =============================================================================

// remap replaces oldID everywhere it appears: as a record id, as a
// movement's related id, and in document cross-references. oldID is always
// a provisional id, unique across collections, so a global replace is safe
// even though backend ids may repeat from one collection to the next.
func (s *State) remap(oldID, newID string) {
	s.site.Remap(oldID, newID)
	s.warehouse.Remap(oldID, newID)
	for i := range s.deliveries {
		if s.deliveries[i].ID == oldID {
			s.deliveries[i].ID = newID
		}
	}
	for i := range s.transfers {
		if s.transfers[i].ID == oldID {
			s.transfers[i].ID = newID
		}
	}
	for i := range s.slips {
		p := &s.slips[i]
		if p.ID == oldID {
			p.ID = newID
		}
		if p.ExportDocID == oldID {
			p.ExportDocID = newID
		}
	}
	for i := range s.exports {
		d := &s.exports[i]
		if d.ID == oldID {
			d.ID = newID
		}
		for j, id := range d.PressingSlipIDs {
			if id == oldID {
				d.PressingSlipIDs[j] = newID
			}
		}
	}
}
