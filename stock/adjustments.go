package stock

import (
	"context"

	"github.com/tidewater/stock-ledger/ledger"
)

// ManualEntry is an operator-entered quantity: opening stock, an
// inventory correction or a bagging transfer.
type ManualEntry struct {
	Date           ledger.Date
	SiteID         ledger.SiteID
	MaterialTypeID ledger.MaterialTypeID
	Weight         ledger.Weight
	Count          ledger.Count
	Designation    string
}

func (e ManualEntry) quantity() ledger.Quantity { return ledger.QuantityOf(e.Weight, e.Count) }

// manualSite builds an on-site movement for e. Manual movements have no
// business document, so RelatedID stays empty and no cascade reaches them.
func manualSite(tx *txn, e ManualEntry, kind OnSiteKind, dir Direction) SiteMovement {
	m := SiteMovement{
		ID:             ledger.MovementID(tx.id(prefixSiteMovement)),
		Date:           e.Date,
		SiteID:         e.SiteID,
		MaterialTypeID: e.MaterialTypeID,
		Kind:           kind,
		In:             ledger.ZeroQuantity(),
		Out:            ledger.ZeroQuantity(),
		Designation:    e.Designation,
	}
	if dir == DirectionOut {
		m.Out = e.quantity()
	} else {
		m.In = e.quantity()
	}
	return m
}

func manualWarehouse(tx *txn, e ManualEntry, kind WarehouseKind, dir Direction) WarehouseMovement {
	m := WarehouseMovement{
		ID:             ledger.MovementID(tx.id(prefixWarehouseMovement)),
		Date:           e.Date,
		SiteID:         PressingWarehouseID,
		MaterialTypeID: e.MaterialTypeID,
		Kind:           kind,
		In:             ledger.ZeroQuantity(),
		Out:            ledger.ZeroQuantity(),
		Designation:    e.Designation,
	}
	if dir == DirectionOut {
		m.Out = e.quantity()
	} else {
		m.In = e.quantity()
	}
	return m
}

func (e ManualEntry) validateSite() error {
	if err := requireScope(e.SiteID, e.MaterialTypeID); err != nil {
		return err
	}
	return requireDate(e.Date, "date")
}

func (e ManualEntry) validateWarehouse() error {
	if e.MaterialTypeID == "" {
		return invalid("material type is required")
	}
	return requireDate(e.Date, "date")
}

// recordSite commits one manual on-site movement and returns it as stored.
func (s *Service) recordSite(ctx context.Context, op string, e ManualEntry, kind OnSiteKind, dir Direction) (SiteMovement, error) {
	var m SiteMovement
	ids, err := s.commit(ctx, op, func(tx *txn) error {
		m = manualSite(tx, e, kind, dir)
		return tx.addSite(m)
	})
	if err != nil {
		return SiteMovement{}, err
	}
	m.ID = ledger.MovementID(ids.resolve(string(m.ID)))
	return m, nil
}

func (s *Service) recordWarehouse(ctx context.Context, op string, e ManualEntry, kind WarehouseKind, dir Direction) (WarehouseMovement, error) {
	var m WarehouseMovement
	ids, err := s.commit(ctx, op, func(tx *txn) error {
		m = manualWarehouse(tx, e, kind, dir)
		return tx.addWarehouse(m)
	})
	if err != nil {
		return WarehouseMovement{}, err
	}
	m.ID = ledger.MovementID(ids.resolve(string(m.ID)))
	return m, nil
}

// =============================================================================
// ON-SITE
// =============================================================================

// RecordInitialStock sets opening stock for a (site, material) pair.
func (s *Service) RecordInitialStock(ctx context.Context, e ManualEntry) (SiteMovement, error) {
	if err := e.validateSite(); err != nil {
		return SiteMovement{}, err
	}
	if e.Designation == "" {
		e.Designation = "Initial stock"
	}
	return s.recordSite(ctx, "record_initial_stock", e, OnSiteInitialStock, DirectionIn)
}

// RecordAdjustment corrects on-site stock after a physical count.
func (s *Service) RecordAdjustment(ctx context.Context, e ManualEntry, dir Direction) (SiteMovement, error) {
	if !dir.Valid() {
		return SiteMovement{}, invalid("unknown direction %q", dir)
	}
	if err := e.validateSite(); err != nil {
		return SiteMovement{}, err
	}
	kind := OnSiteAdjustmentIn
	if dir == DirectionOut {
		kind = OnSiteAdjustmentOut
	}
	if e.Designation == "" {
		e.Designation = "Stock adjustment"
	}
	return s.recordSite(ctx, "record_adjustment", e, kind, dir)
}

// BaggingTransfer moves dried, bagged seaweed of one cultivation cycle into
// site stock.
type BaggingTransfer struct {
	ManualEntry
	CycleID string
}

// RecordBaggingTransfer adds bagged stock to its site, related to the
// cultivation cycle. Date defaults to today; a transfer with no weight or
// no bags is rejected.
func (s *Service) RecordBaggingTransfer(ctx context.Context, b BaggingTransfer) (SiteMovement, error) {
	if b.Date.IsZero() {
		b.Date = s.Today()
	}
	if err := b.validateSite(); err != nil {
		return SiteMovement{}, err
	}
	if b.CycleID == "" {
		return SiteMovement{}, invalid("cultivation cycle is required")
	}
	if b.Weight.IsZero() || b.Count == 0 {
		return SiteMovement{}, invalid("bagged weight and bag count are required")
	}
	if b.Designation == "" {
		b.Designation = "From bagging (cycle " + b.CycleID + ")"
	}

	var m SiteMovement
	ids, err := s.commit(ctx, "record_bagging_transfer", func(tx *txn) error {
		m = manualSite(tx, b.ManualEntry, OnSiteBaggingTransfer, DirectionIn)
		m.RelatedID = b.CycleID
		return tx.addSite(m)
	})
	if err != nil {
		return SiteMovement{}, err
	}
	m.ID = ledger.MovementID(ids.resolve(string(m.ID)))
	return m, nil
}

// =============================================================================
// PRESSING WAREHOUSE
// =============================================================================

// RecordInitialPressedStock sets opening pressed stock in the warehouse.
func (s *Service) RecordInitialPressedStock(ctx context.Context, e ManualEntry) (WarehouseMovement, error) {
	if err := e.validateWarehouse(); err != nil {
		return WarehouseMovement{}, err
	}
	if e.Designation == "" {
		e.Designation = "Initial pressed stock"
	}
	return s.recordWarehouse(ctx, "record_initial_pressed_stock", e, WarehouseInitialStock, DirectionIn)
}

// RecordPressedAdjustment corrects pressed stock in the warehouse.
func (s *Service) RecordPressedAdjustment(ctx context.Context, e ManualEntry, dir Direction) (WarehouseMovement, error) {
	if !dir.Valid() {
		return WarehouseMovement{}, invalid("unknown direction %q", dir)
	}
	if err := e.validateWarehouse(); err != nil {
		return WarehouseMovement{}, err
	}
	kind := WarehouseAdjustmentIn
	if dir == DirectionOut {
		kind = WarehouseAdjustmentOut
	}
	if e.Designation == "" {
		e.Designation = "Pressed stock adjustment"
	}
	return s.recordWarehouse(ctx, "record_pressed_adjustment", e, kind, dir)
}
