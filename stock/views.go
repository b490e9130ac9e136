/*
views.go - Read side of the stock service

PURPOSE:
  Every view is computed on demand from the movement logs with the
  reducer in package ledger. Nothing here is cached, so a view taken right
  after a mutation (or after a rollback) reflects it.

VIEWS:
  SiteBalance / SiteHistory:           one (site, material) pair
  SiteSummary:                         every pair, hiding empty rows
  WarehouseBalance / WarehouseHistory: one material (or all) in one grade
  WarehouseSummary:                    every (material, grade), hiding empty rows
  StoreStatus:                         what the local store holds, per key
*/
package stock

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidewater/stock-ledger/ledger"
)

// emptyWeight is the weight at or below which a summary row with no units
// counts as empty. It absorbs rounding noise left by decimal weights.
var emptyWeight = decimal.New(1, -2)

func isEmptyRow(q ledger.Quantity) bool {
	return q.Weight.LessThanOrEqual(emptyWeight) && q.Count <= 0
}

func balanceAt[K ledger.Kind](ms []ledger.Movement[K], asOf *ledger.Date) ledger.Quantity {
	if asOf == nil {
		return ledger.Balance(ms)
	}
	return ledger.BalanceAsOf(ms, *asOf)
}

// =============================================================================
// ON-SITE
// =============================================================================

// SiteBalance is the balance of one pair, optionally as of a day.
func (s *Service) SiteBalance(scope ledger.Scope, asOf *ledger.Date) ledger.Quantity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balanceAt(s.state.site.Movements(scope), asOf)
}

// SiteHistory returns the pair's movements with running balances.
func (s *Service) SiteHistory(scope ledger.Scope, opts ledger.HistoryOptions) []SiteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.History(s.state.site.Movements(scope), opts)
}

type SummaryFilter struct {
	SiteID         ledger.SiteID
	MaterialTypeID ledger.MaterialTypeID
	AsOf           *ledger.Date
}

func (f SummaryFilter) matches(scope ledger.Scope) bool {
	return (f.SiteID == "" || f.SiteID == scope.SiteID) &&
		(f.MaterialTypeID == "" || f.MaterialTypeID == scope.MaterialTypeID)
}

type SummaryRow struct {
	Scope   ledger.Scope
	Balance ledger.Quantity
}

// SiteSummary returns one row per (site, material) pair with stock,
// sorted by site then material.
func (s *Service) SiteSummary(f SummaryFilter) []SummaryRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.state.site.All()
	groups := ledger.GroupByScope(all)
	var rows []SummaryRow
	for _, scope := range ledger.Scopes(all) {
		if !f.matches(scope) {
			continue
		}
		bal := balanceAt(groups[scope], f.AsOf)
		if isEmptyRow(bal) {
			continue
		}
		rows = append(rows, SummaryRow{Scope: scope, Balance: bal})
	}
	return rows
}

// ScopeHistory is the history of one pair, used by exports.
type ScopeHistory struct {
	Scope   ledger.Scope
	Entries []SiteEntry
}

// SiteHistories returns the history of every pair matching f, grouped by
// site and material. AsOf is ignored; opts.Range bounds each history.
func (s *Service) SiteHistories(f SummaryFilter, opts ledger.HistoryOptions) []ScopeHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.state.site.All()
	groups := ledger.GroupByScope(all)
	var out []ScopeHistory
	for _, scope := range ledger.Scopes(all) {
		if !f.matches(scope) {
			continue
		}
		entries := ledger.History(groups[scope], opts)
		if len(entries) == 0 {
			continue
		}
		out = append(out, ScopeHistory{Scope: scope, Entries: entries})
	}
	return out
}

// =============================================================================
// PRESSING WAREHOUSE
// =============================================================================

// warehouseMovements returns the movements of one grade, restricted to a
// material unless material is empty.
func (s *Service) warehouseMovements(material ledger.MaterialTypeID, grade Grade) []WarehouseMovement {
	return ledger.FilterFunc(s.state.warehouse.All(), func(m WarehouseMovement) bool {
		return m.Kind.Grade() == grade && (material == "" || m.MaterialTypeID == material)
	})
}

// WarehouseBalance is the balance of one grade. An empty material sums
// every material.
func (s *Service) WarehouseBalance(material ledger.MaterialTypeID, grade Grade, asOf *ledger.Date) ledger.Quantity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balanceAt(s.warehouseMovements(material, grade), asOf)
}

// WarehouseHistory returns the grade's movements with running balances.
func (s *Service) WarehouseHistory(material ledger.MaterialTypeID, grade Grade, opts ledger.HistoryOptions) []WarehouseEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.History(s.warehouseMovements(material, grade), opts)
}

type WarehouseRow struct {
	MaterialTypeID ledger.MaterialTypeID
	Grade          Grade
	Balance        ledger.Quantity
}

// WarehouseSummary returns one row per (material, grade) with stock.
func (s *Service) WarehouseSummary(asOf *ledger.Date) []WarehouseRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.state.warehouse.All()
	var materials []ledger.MaterialTypeID
	for _, m := range all {
		if !slices.Contains(materials, m.MaterialTypeID) {
			materials = append(materials, m.MaterialTypeID)
		}
	}
	slices.Sort(materials)

	var rows []WarehouseRow
	for _, material := range materials {
		for _, grade := range []Grade{GradeBulk, GradePressed} {
			bal := balanceAt(s.warehouseMovements(material, grade), asOf)
			if isEmptyRow(bal) {
				continue
			}
			rows = append(rows, WarehouseRow{MaterialTypeID: material, Grade: grade, Balance: bal})
		}
	}
	return rows
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (s *Service) Delivery(id string) (FarmerDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.deliveryIndex(id); i >= 0 {
		return s.state.deliveries[i], nil
	}
	return FarmerDelivery{}, &NotFoundError{Collection: KeyDeliveries, ID: id}
}

func (s *Service) Deliveries() []FarmerDelivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.deliveries)
}

func (s *Service) Transfer(id string) (SiteTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.transferIndex(id); i >= 0 {
		return s.state.transfers[i].clone(), nil
	}
	return SiteTransfer{}, &NotFoundError{Collection: KeyTransfers, ID: id}
}

func (s *Service) Transfers() []SiteTransfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SiteTransfer, len(s.state.transfers))
	for i, t := range s.state.transfers {
		out[i] = t.clone()
	}
	return out
}

func (s *Service) PressingSlip(id string) (PressingSlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.slipIndex(id); i >= 0 {
		return s.state.slips[i], nil
	}
	return PressingSlip{}, &NotFoundError{Collection: KeyPressingSlips, ID: id}
}

func (s *Service) PressingSlips() []PressingSlip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.slips)
}

func (s *Service) ExportDocument(id string) (ExportDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.exportIndex(id); i >= 0 {
		return s.state.exports[i].clone(), nil
	}
	return ExportDocument{}, &NotFoundError{Collection: KeyExportDocuments, ID: id}
}

func (s *Service) ExportDocuments() []ExportDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExportDocument, len(s.state.exports))
	for i, d := range s.state.exports {
		out[i] = d.clone()
	}
	return out
}

// SiteMovements and WarehouseMovements return the full logs in canonical
// order.
func (s *Service) SiteMovements() []SiteMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.site.All()
}

func (s *Service) WarehouseMovements() []WarehouseMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.warehouse.All()
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// CollectionStatus compares one stored key with what the service holds.
type CollectionStatus struct {
	Key       string
	Bytes     int
	Records   int
	UpdatedAt time.Time
	Written   bool
}

// StoreStatus reports every ledger key plus any other key found in the
// store. Records is the in-memory count, Bytes the stored payload size.
func (s *Service) StoreStatus(ctx context.Context) ([]CollectionStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	keys := slices.Clone(AllKeys)
	for _, k := range stored {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}

	out := make([]CollectionStatus, 0, len(keys))
	for _, key := range keys {
		raw, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		at, written, err := s.store.UpdatedAt(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", key, err)
		}
		out = append(out, CollectionStatus{
			Key:       key,
			Bytes:     len(raw),
			Records:   s.state.count(key),
			UpdatedAt: at,
			Written:   written,
		})
	}
	return out, nil
}
