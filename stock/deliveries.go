package stock

import (
	"context"
	"fmt"

	"github.com/tidewater/stock-ledger/ledger"
)

// RecordDelivery stores a farmer delivery and its inbound movement. The
// movement lands in the on-site ledger for SITE_STORAGE deliveries and in
// the warehouse bulk grade for PRESSING_WAREHOUSE_BULK ones. ID and SlipNo
// are assigned here; an empty Destination means SITE_STORAGE.
func (s *Service) RecordDelivery(ctx context.Context, d FarmerDelivery) (FarmerDelivery, error) {
	if d.Destination == "" {
		d.Destination = DestinationSiteStorage
	}
	if !d.Destination.Valid() {
		return FarmerDelivery{}, invalid("unknown destination %q", d.Destination)
	}
	if d.Destination == DestinationSiteStorage {
		if err := requireScope(d.SiteID, d.MaterialTypeID); err != nil {
			return FarmerDelivery{}, err
		}
	} else if d.MaterialTypeID == "" {
		return FarmerDelivery{}, invalid("material type is required")
	}
	if err := requireDate(d.Date, "date"); err != nil {
		return FarmerDelivery{}, err
	}

	ids, err := s.commit(ctx, "record_delivery", func(tx *txn) error {
		existing := make([]string, len(tx.state.deliveries))
		for i, x := range tx.state.deliveries {
			existing[i] = x.SlipNo
		}
		d.ID = tx.id(prefixDelivery)
		d.SlipNo = nextNumber(PrefixDelivery, tx.now.Year(), existing)

		tx.state.deliveries = append(tx.state.deliveries, d)
		tx.created(KeyDeliveries, d.ID)

		designation := fmt.Sprintf("Delivery from farmer %s (%s)", d.FarmerID, d.SlipNo)
		if d.Destination == DestinationWarehouseBulk {
			return tx.addWarehouse(WarehouseMovement{
				ID:             ledger.MovementID(tx.id(prefixWarehouseMovement)),
				Date:           d.Date,
				SiteID:         PressingWarehouseID,
				MaterialTypeID: d.MaterialTypeID,
				Kind:           WarehouseFarmerDelivery,
				In:             d.Quantity(),
				Out:            ledger.ZeroQuantity(),
				RelatedID:      d.ID,
				Designation:    designation,
			})
		}
		return tx.addSite(SiteMovement{
			ID:             ledger.MovementID(tx.id(prefixSiteMovement)),
			Date:           d.Date,
			SiteID:         d.SiteID,
			MaterialTypeID: d.MaterialTypeID,
			Kind:           OnSiteFarmerDelivery,
			In:             d.Quantity(),
			Out:            ledger.ZeroQuantity(),
			RelatedID:      d.ID,
			Designation:    designation,
		})
	})
	if err != nil {
		return FarmerDelivery{}, err
	}
	return s.Delivery(ids.resolve(d.ID))
}

// DeleteDelivery removes a delivery and the FARMER_DELIVERY movements it
// produced in either ledger. Other movements referring to it stay.
func (s *Service) DeleteDelivery(ctx context.Context, id string) error {
	_, err := s.commit(ctx, "delete_delivery", func(tx *txn) error {
		i := tx.state.deliveryIndex(id)
		if i < 0 {
			return &NotFoundError{Collection: KeyDeliveries, ID: id}
		}
		tx.state.deliveries = append(tx.state.deliveries[:i:i], tx.state.deliveries[i+1:]...)
		tx.deleted(KeyDeliveries, id)

		tx.retractSite(id, OnSiteFarmerDelivery)
		tx.retractWarehouse(id, WarehouseFarmerDelivery)
		return nil
	})
	return err
}
