package stock

import (
	"context"
	"fmt"

	"github.com/tidewater/stock-ledger/ledger"
)

// pressingMovements are the paired warehouse entries of one slip: bulk
// consumed and pressed bales produced, on the slip date.
func pressingMovements(tx *txn, p PressingSlip) []WarehouseMovement {
	return []WarehouseMovement{
		{
			ID:             ledger.MovementID(tx.id(prefixWarehouseMovement)),
			Date:           p.Date,
			SiteID:         PressingWarehouseID,
			MaterialTypeID: p.MaterialTypeID,
			Kind:           WarehousePressingConsumption,
			In:             ledger.ZeroQuantity(),
			Out:            p.Consumed(),
			RelatedID:      p.ID,
			Designation:    fmt.Sprintf("Consumed for pressing slip %s", p.SlipNo),
		},
		{
			ID:             ledger.MovementID(tx.id(prefixWarehouseMovement)),
			Date:           p.Date,
			SiteID:         PressingWarehouseID,
			MaterialTypeID: p.MaterialTypeID,
			Kind:           WarehousePressingIn,
			In:             p.Produced(),
			Out:            ledger.ZeroQuantity(),
			RelatedID:      p.ID,
			Designation:    fmt.Sprintf("Produced from pressing slip %s", p.SlipNo),
		},
	}
}

func validateSlip(p PressingSlip) error {
	if p.MaterialTypeID == "" {
		return invalid("material type is required")
	}
	return requireDate(p.Date, "date")
}

// CreatePressingSlip records a pressing run: bulk consumption and pressed
// production are emitted together.
func (s *Service) CreatePressingSlip(ctx context.Context, p PressingSlip) (PressingSlip, error) {
	if err := validateSlip(p); err != nil {
		return PressingSlip{}, err
	}

	ids, err := s.commit(ctx, "create_pressing_slip", func(tx *txn) error {
		existing := make([]string, len(tx.state.slips))
		for i, x := range tx.state.slips {
			existing[i] = x.SlipNo
		}
		p.ID = tx.id(prefixSlip)
		p.SlipNo = nextNumber(PrefixPressing, tx.now.Year(), existing)
		p.ExportDocID = ""

		tx.state.slips = append(tx.state.slips, p)
		tx.created(KeyPressingSlips, p.ID)
		return tx.addWarehouse(pressingMovements(tx, p)...)
	})
	if err != nil {
		return PressingSlip{}, err
	}
	return s.PressingSlip(ids.resolve(p.ID))
}

// UpdatePressingSlip replaces a slip. Its consumption and production
// movements are retracted and re-emitted with the new figures; when the
// slip is already exported, the export outbound is re-derived too. SlipNo
// and the export link cannot be changed here.
func (s *Service) UpdatePressingSlip(ctx context.Context, p PressingSlip) (PressingSlip, error) {
	if err := validateSlip(p); err != nil {
		return PressingSlip{}, err
	}

	ids, err := s.commit(ctx, "update_pressing_slip", func(tx *txn) error {
		i := tx.state.slipIndex(p.ID)
		if i < 0 {
			return &NotFoundError{Collection: KeyPressingSlips, ID: p.ID}
		}
		old := tx.state.slips[i]
		p.SlipNo = old.SlipNo
		p.ExportDocID = old.ExportDocID

		tx.state.slips[i] = p
		tx.updated(KeyPressingSlips, p.ID)

		tx.retractWarehouse(p.ID, WarehousePressingConsumption, WarehousePressingIn)
		if err := tx.addWarehouse(pressingMovements(tx, p)...); err != nil {
			return err
		}
		if p.ExportDocID != "" {
			if j := tx.state.exportIndex(p.ExportDocID); j >= 0 {
				return tx.emitExportOutbound(tx.state.exports[j])
			}
		}
		return nil
	})
	if err != nil {
		return PressingSlip{}, err
	}
	return s.PressingSlip(ids.resolve(p.ID))
}

// DeletePressingSlip removes a slip together with every movement it
// produced, including returns to site. Exported slips must first be
// removed from their export document.
func (s *Service) DeletePressingSlip(ctx context.Context, id string) error {
	_, err := s.commit(ctx, "delete_pressing_slip", func(tx *txn) error {
		i := tx.state.slipIndex(id)
		if i < 0 {
			return &NotFoundError{Collection: KeyPressingSlips, ID: id}
		}
		if doc := tx.state.slips[i].ExportDocID; doc != "" {
			return fmt.Errorf("%w: slip %s is on export document %s", ErrSlipAlreadyExported, id, doc)
		}
		tx.state.slips = append(tx.state.slips[:i:i], tx.state.slips[i+1:]...)
		tx.deleted(KeyPressingSlips, id)

		tx.retractWarehouse(id, WarehousePressingConsumption, WarehousePressingIn, WarehouseReturnToSite)
		tx.retractSite(id, OnSitePressingIn)
		return nil
	})
	return err
}

// ReturnFromPressing sends stock from the pressing warehouse back to a site.
type ReturnFromPressing struct {
	Date           ledger.Date
	SiteID         ledger.SiteID
	MaterialTypeID ledger.MaterialTypeID
	Weight         ledger.Weight
	Bags           ledger.Count
	PressingSlipID string
	Designation    string
}

// RecordReturnFromPressing emits the paired PRESSING_IN on site and
// RETURN_TO_SITE in the warehouse, both related to the pressing slip. The
// material defaults to the slip's.
func (s *Service) RecordReturnFromPressing(ctx context.Context, r ReturnFromPressing) error {
	if r.SiteID == "" {
		return invalid("site is required")
	}
	if err := requireDate(r.Date, "date"); err != nil {
		return err
	}

	_, err := s.commit(ctx, "record_return_from_pressing", func(tx *txn) error {
		i := tx.state.slipIndex(r.PressingSlipID)
		if i < 0 {
			return &NotFoundError{Collection: KeyPressingSlips, ID: r.PressingSlipID}
		}
		slip := tx.state.slips[i]
		if r.MaterialTypeID == "" {
			r.MaterialTypeID = slip.MaterialTypeID
		}
		if r.Designation == "" {
			r.Designation = fmt.Sprintf("Return from pressing slip %s", slip.SlipNo)
		}
		qty := ledger.QuantityOf(r.Weight, r.Bags)

		if err := tx.addSite(SiteMovement{
			ID:             ledger.MovementID(tx.id(prefixSiteMovement)),
			Date:           r.Date,
			SiteID:         r.SiteID,
			MaterialTypeID: r.MaterialTypeID,
			Kind:           OnSitePressingIn,
			In:             qty,
			Out:            ledger.ZeroQuantity(),
			RelatedID:      slip.ID,
			Designation:    r.Designation,
		}); err != nil {
			return err
		}
		return tx.addWarehouse(WarehouseMovement{
			ID:             ledger.MovementID(tx.id(prefixWarehouseMovement)),
			Date:           r.Date,
			SiteID:         PressingWarehouseID,
			MaterialTypeID: r.MaterialTypeID,
			Kind:           WarehouseReturnToSite,
			In:             ledger.ZeroQuantity(),
			Out:            qty,
			RelatedID:      slip.ID,
			Designation:    fmt.Sprintf("Return to site: %s", r.SiteID),
		})
	})
	return err
}
