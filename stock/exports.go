package stock

import (
	"context"
	"fmt"
	"slices"

	"github.com/tidewater/stock-ledger/ledger"
)

// exportTotals sums what the linked slips produced.
func (s *State) exportTotals(slipIDs []string) ledger.Quantity {
	total := ledger.ZeroQuantity()
	for _, p := range s.slips {
		if slices.Contains(slipIDs, p.ID) {
			total = total.Add(p.Produced())
		}
	}
	return total
}

// emitExportOutbound replaces the document's EXPORT_OUT with one derived
// from its current slips. Nothing is emitted when the slips hold no bales.
func (tx *txn) emitExportOutbound(d ExportDocument) error {
	tx.retractWarehouse(d.ID, WarehouseExportOut)
	total := tx.state.exportTotals(d.PressingSlipIDs)
	if total.Count <= 0 {
		return nil
	}
	return tx.addWarehouse(WarehouseMovement{
		ID:             ledger.MovementID(tx.id(prefixWarehouseMovement)),
		Date:           d.Date,
		SiteID:         PressingWarehouseID,
		MaterialTypeID: d.MaterialTypeID,
		Kind:           WarehouseExportOut,
		In:             ledger.ZeroQuantity(),
		Out:            total,
		RelatedID:      d.ID,
		Designation:    fmt.Sprintf("Export shipment %s", d.DocNo),
	})
}

// link points every slip in d at d and clears slips that d no longer lists.
func (tx *txn) link(d ExportDocument) error {
	for _, id := range d.PressingSlipIDs {
		i := tx.state.slipIndex(id)
		if i < 0 {
			return &NotFoundError{Collection: KeyPressingSlips, ID: id}
		}
		if other := tx.state.slips[i].ExportDocID; other != "" && other != d.ID {
			return fmt.Errorf("%w: slip %s is on export document %s", ErrSlipAlreadyExported, id, other)
		}
	}
	for i := range tx.state.slips {
		p := &tx.state.slips[i]
		listed := slices.Contains(d.PressingSlipIDs, p.ID)
		switch {
		case listed && p.ExportDocID != d.ID:
			p.ExportDocID = d.ID
			tx.updated(KeyPressingSlips, p.ID)
		case !listed && p.ExportDocID == d.ID:
			p.ExportDocID = ""
			tx.updated(KeyPressingSlips, p.ID)
		}
	}
	return nil
}

func validateExport(d ExportDocument) error {
	if d.MaterialTypeID == "" {
		return invalid("material type is required")
	}
	return requireDate(d.Date, "date")
}

// CreateExport stores an export document, links its pressing slips and
// takes their produced bales out of the pressed grade.
func (s *Service) CreateExport(ctx context.Context, d ExportDocument) (ExportDocument, error) {
	if err := validateExport(d); err != nil {
		return ExportDocument{}, err
	}

	ids, err := s.commit(ctx, "create_export", func(tx *txn) error {
		existing := make([]string, len(tx.state.exports))
		for i, x := range tx.state.exports {
			existing[i] = x.DocNo
		}
		d = d.clone()
		d.ID = tx.id(prefixExport)
		d.DocNo = nextNumber(PrefixExport, tx.now.Year(), existing)
		d.PressingSlipIDs = uniqueIDs(d.PressingSlipIDs)
		for i := range d.Containers {
			d.Containers[i].ID = tx.id(prefixContainer)
		}

		tx.state.exports = append(tx.state.exports, d)
		tx.created(KeyExportDocuments, d.ID)
		if err := tx.link(d); err != nil {
			return err
		}
		return tx.emitExportOutbound(d)
	})
	if err != nil {
		return ExportDocument{}, err
	}
	return s.ExportDocument(ids.resolve(d.ID))
}

// UpdateExport replaces an export document, re-links slips and re-derives
// its outbound movement. DocNo is kept.
func (s *Service) UpdateExport(ctx context.Context, d ExportDocument) (ExportDocument, error) {
	if err := validateExport(d); err != nil {
		return ExportDocument{}, err
	}

	ids, err := s.commit(ctx, "update_export", func(tx *txn) error {
		i := tx.state.exportIndex(d.ID)
		if i < 0 {
			return &NotFoundError{Collection: KeyExportDocuments, ID: d.ID}
		}
		d = d.clone()
		d.DocNo = tx.state.exports[i].DocNo
		d.PressingSlipIDs = uniqueIDs(d.PressingSlipIDs)
		for j := range d.Containers {
			if d.Containers[j].ID == "" {
				d.Containers[j].ID = tx.id(prefixContainer)
			}
		}

		tx.state.exports[i] = d
		tx.updated(KeyExportDocuments, d.ID)
		if err := tx.link(d); err != nil {
			return err
		}
		return tx.emitExportOutbound(d)
	})
	if err != nil {
		return ExportDocument{}, err
	}
	return s.ExportDocument(ids.resolve(d.ID))
}

// DeleteExport unlinks the document's slips and removes it together with
// its outbound movement.
func (s *Service) DeleteExport(ctx context.Context, id string) error {
	_, err := s.commit(ctx, "delete_export", func(tx *txn) error {
		i := tx.state.exportIndex(id)
		if i < 0 {
			return &NotFoundError{Collection: KeyExportDocuments, ID: id}
		}
		d := tx.state.exports[i]
		d.PressingSlipIDs = nil
		if err := tx.link(d); err != nil {
			return err
		}
		tx.state.exports = append(tx.state.exports[:i:i], tx.state.exports[i+1:]...)
		tx.deleted(KeyExportDocuments, id)
		tx.retractWarehouse(id, WarehouseExportOut)
		return nil
	})
	return err
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
