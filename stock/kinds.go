/*
kinds.go - Movement causes for the two stock ledgers

PURPOSE:
  The business keeps two ledgers that never share movements:

  ON-SITE LEDGER (stockMovements):
    Dried seaweed stored at farm sites, per (site, seaweed type).

  PRESSING WAREHOUSE LEDGER (pressedStockMovements):
    Everything at the pressing warehouse, per seaweed type. Its kinds fall
    into two grades with independent balances:
      BULK:    raw material waiting to be pressed (bags)
      PRESSED: bales produced by pressing, ready for export

  Each ledger has its own closed Kind type, so the compiler keeps a
  warehouse kind out of the on-site log and vice versa.

SEE ALSO:
  - ledger/types.go: Kind constraint
  - views.go: grade-aware warehouse views
*/
package stock

import "github.com/tidewater/stock-ledger/ledger"

// PressingWarehouseID is the pseudo-site holding the warehouse ledger.
// Transfers and deliveries addressed to it land in the bulk grade.
const PressingWarehouseID ledger.SiteID = "pressing-warehouse"

// =============================================================================
// ON-SITE KINDS
// =============================================================================

type OnSiteKind string

const (
	OnSiteInitialStock    OnSiteKind = "INITIAL_STOCK"
	OnSiteBaggingTransfer OnSiteKind = "BAGGING_TRANSFER"
	OnSiteExportOut       OnSiteKind = "EXPORT_OUT"
	OnSiteFarmerDelivery  OnSiteKind = "FARMER_DELIVERY"
	OnSitePressingOut     OnSiteKind = "PRESSING_OUT"
	OnSitePressingIn      OnSiteKind = "PRESSING_IN"
	OnSiteTransferIn      OnSiteKind = "SITE_TRANSFER_IN"
	OnSiteTransferOut     OnSiteKind = "SITE_TRANSFER_OUT"
	OnSiteAdjustmentIn    OnSiteKind = "ADJUSTMENT_IN"
	OnSiteAdjustmentOut   OnSiteKind = "ADJUSTMENT_OUT"
)

func (k OnSiteKind) Valid() bool {
	switch k {
	case OnSiteInitialStock, OnSiteBaggingTransfer, OnSiteExportOut, OnSiteFarmerDelivery,
		OnSitePressingOut, OnSitePressingIn, OnSiteTransferIn, OnSiteTransferOut,
		OnSiteAdjustmentIn, OnSiteAdjustmentOut:
		return true
	}
	return false
}

// =============================================================================
// WAREHOUSE KINDS
// =============================================================================

type WarehouseKind string

const (
	WarehouseInitialStock        WarehouseKind = "INITIAL_STOCK"
	WarehousePressingIn          WarehouseKind = "PRESSING_IN"
	WarehouseExportOut           WarehouseKind = "EXPORT_OUT"
	WarehouseReturnToSite        WarehouseKind = "RETURN_TO_SITE"
	WarehouseBulkInFromSite      WarehouseKind = "BULK_IN_FROM_SITE"
	WarehousePressingConsumption WarehouseKind = "PRESSING_CONSUMPTION"
	WarehouseFarmerDelivery      WarehouseKind = "FARMER_DELIVERY"
	WarehouseAdjustmentIn        WarehouseKind = "ADJUSTMENT_IN"
	WarehouseAdjustmentOut       WarehouseKind = "ADJUSTMENT_OUT"
)

func (k WarehouseKind) Valid() bool {
	switch k {
	case WarehouseInitialStock, WarehousePressingIn, WarehouseExportOut, WarehouseReturnToSite,
		WarehouseBulkInFromSite, WarehousePressingConsumption, WarehouseFarmerDelivery,
		WarehouseAdjustmentIn, WarehouseAdjustmentOut:
		return true
	}
	return false
}

// Grade tells which warehouse balance a kind moves.
func (k WarehouseKind) Grade() Grade {
	switch k {
	case WarehouseBulkInFromSite, WarehouseFarmerDelivery, WarehousePressingConsumption:
		return GradeBulk
	}
	return GradePressed
}

type Grade string

const (
	GradeBulk    Grade = "bulk"
	GradePressed Grade = "pressed"
)

func (g Grade) Valid() bool { return g == GradeBulk || g == GradePressed }

// Direction selects the side of a manual adjustment.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) Valid() bool { return d == DirectionIn || d == DirectionOut }

// Movement aliases for readability at call sites.
type (
	SiteMovement      = ledger.Movement[OnSiteKind]
	WarehouseMovement = ledger.Movement[WarehouseKind]
	SiteEntry         = ledger.Entry[OnSiteKind]
	WarehouseEntry    = ledger.Entry[WarehouseKind]
)
