/*
transfer.go - Site transfer lifecycle

PURPOSE:
  A site transfer moves stock from one site to another (or to the pressing
  warehouse). Stock leaves the source the day the transfer is created and
  only arrives at the destination when the transfer is completed.

STATE MACHINE:
  ┌───────────────────┐    ┌────────────┐    ┌───────────────────┐    ┌───────────┐
  │ AWAITING_OUTBOUND │──▶ │ IN_TRANSIT │──▶ │ PENDING_RECEPTION │──▶ │ COMPLETED │
  └───────────────────┘    └────────────┘    └───────────────────┘    └───────────┘
            │                    │                     │
            └────────────────────┴─────────────────────┴──────────▶ CANCELLED

  Forward moves may skip intermediate statuses. COMPLETED and CANCELLED are
  terminal. Every accepted transition appends one history entry.

LEDGER EFFECTS:
  create     -> SITE_TRANSFER_OUT at source (shipped quantities)
  COMPLETED  -> SITE_TRANSFER_IN at destination (received quantities), or
                BULK_IN_FROM_SITE in the warehouse when the destination is
                the pressing warehouse
  CANCELLED  -> SITE_TRANSFER_IN at source (shipped quantities)

  The receiving site may record less than what was shipped. The difference
  is a real loss and stays visible; nothing reconciles it.
*/
package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidewater/stock-ledger/ledger"
)

type TransferStatus string

const (
	TransferAwaitingOutbound TransferStatus = "AWAITING_OUTBOUND"
	TransferInTransit        TransferStatus = "IN_TRANSIT"
	TransferPendingReception TransferStatus = "PENDING_RECEPTION"
	TransferCompleted        TransferStatus = "COMPLETED"
	TransferCancelled        TransferStatus = "CANCELLED"
)

var transferRank = map[TransferStatus]int{
	TransferAwaitingOutbound: 0,
	TransferInTransit:        1,
	TransferPendingReception: 2,
	TransferCompleted:        3,
}

func (s TransferStatus) Valid() bool {
	_, ok := transferRank[s]
	return ok || s == TransferCancelled
}

func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// CanTransitionTo reports whether a transfer in status s may move to next.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	if s.Terminal() || !next.Valid() || s == next {
		return false
	}
	if next == TransferCancelled {
		return true
	}
	return transferRank[next] > transferRank[s]
}

// TransitionInput carries what the operator enters when moving a transfer
// along. CompletionDate defaults to the service clock's today.
type TransitionInput struct {
	Status         TransferStatus
	CompletionDate *ledger.Date
	ReceivedWeight *ledger.Weight
	ReceivedBags   *ledger.Count
	Notes          string
}

// transitionNote is the history text recorded for a status change.
func transitionNote(t SiteTransfer) string {
	switch t.Status {
	case TransferInTransit:
		return "Marked as in transit."
	case TransferPendingReception:
		return "Marked as arrived at destination, pending checks."
	case TransferCompleted:
		rcv := t.Received()
		return fmt.Sprintf("Completed. Received %skg in %d bags.", rcv.Weight.String(), rcv.Count)
	case TransferCancelled:
		return "Cancelled. Reason: " + t.Notes
	}
	return ""
}

// outboundMovement is the SITE_TRANSFER_OUT recorded at creation.
func outboundMovement(id ledger.MovementID, t SiteTransfer) SiteMovement {
	return SiteMovement{
		ID:             id,
		Date:           t.Date,
		SiteID:         t.SourceSiteID,
		MaterialTypeID: t.MaterialTypeID,
		Kind:           OnSiteTransferOut,
		Out:            t.Shipped(),
		In:             ledger.ZeroQuantity(),
		RelatedID:      t.ID,
		Designation:    fmt.Sprintf("Transfer to %s", t.DestinationSiteID),
	}
}

// completionMovements returns the inbound movement for a completed
// transfer: exactly one of the two results is non-nil.
func completionMovements(id ledger.MovementID, t SiteTransfer, on ledger.Date) (*SiteMovement, *WarehouseMovement) {
	designation := fmt.Sprintf("Transfer from %s", t.SourceSiteID)
	if t.DestinationSiteID == PressingWarehouseID {
		return nil, &WarehouseMovement{
			ID:             id,
			Date:           on,
			SiteID:         PressingWarehouseID,
			MaterialTypeID: t.MaterialTypeID,
			Kind:           WarehouseBulkInFromSite,
			In:             t.Received(),
			Out:            ledger.ZeroQuantity(),
			RelatedID:      t.ID,
			Designation:    designation,
		}
	}
	return &SiteMovement{
		ID:             id,
		Date:           on,
		SiteID:         t.DestinationSiteID,
		MaterialTypeID: t.MaterialTypeID,
		Kind:           OnSiteTransferIn,
		In:             t.Received(),
		Out:            ledger.ZeroQuantity(),
		RelatedID:      t.ID,
		Designation:    designation,
	}, nil
}

// cancellationMovement restores the shipped quantities at the source.
func cancellationMovement(id ledger.MovementID, t SiteTransfer, on ledger.Date) SiteMovement {
	return SiteMovement{
		ID:             id,
		Date:           on,
		SiteID:         t.SourceSiteID,
		MaterialTypeID: t.MaterialTypeID,
		Kind:           OnSiteTransferIn,
		In:             t.Shipped(),
		Out:            ledger.ZeroQuantity(),
		RelatedID:      t.ID,
		Designation:    strings.TrimSpace("Cancelled transfer: " + t.Notes),
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateTransfer registers a transfer in AWAITING_OUTBOUND and takes the
// shipped quantities out of the source site on the transfer date.
func (s *Service) CreateTransfer(ctx context.Context, t SiteTransfer) (SiteTransfer, error) {
	if err := requireScope(t.SourceSiteID, t.MaterialTypeID); err != nil {
		return SiteTransfer{}, err
	}
	if t.DestinationSiteID == "" {
		return SiteTransfer{}, invalid("destination site is required")
	}
	if t.DestinationSiteID == t.SourceSiteID {
		return SiteTransfer{}, invalid("destination must differ from source")
	}
	if err := requireDate(t.Date, "date"); err != nil {
		return SiteTransfer{}, err
	}

	ids, err := s.commit(ctx, "create_transfer", func(tx *txn) error {
		t.ID = tx.id(prefixTransfer)
		t.Status = TransferAwaitingOutbound
		t.CompletionDate = nil
		t.ReceivedWeight = nil
		t.ReceivedBags = nil
		t.History = []TransferHistoryEntry{{
			Status: TransferAwaitingOutbound,
			At:     tx.now.UTC().Format(time.RFC3339),
			Notes:  "Transfer initiated.",
		}}

		tx.state.transfers = append(tx.state.transfers, t)
		tx.created(KeyTransfers, t.ID)
		return tx.addSite(outboundMovement(ledger.MovementID(tx.id(prefixSiteMovement)), t))
	})
	if err != nil {
		return SiteTransfer{}, err
	}
	return s.Transfer(ids.resolve(t.ID))
}

// AdvanceTransfer moves a transfer to in.Status, appends a history entry
// and emits the movements of the terminal statuses.
func (s *Service) AdvanceTransfer(ctx context.Context, id string, in TransitionInput) (SiteTransfer, error) {
	if !in.Status.Valid() {
		return SiteTransfer{}, invalid("unknown transfer status %q", in.Status)
	}
	ids, err := s.commit(ctx, "advance_transfer", func(tx *txn) error {
		i := tx.state.transferIndex(id)
		if i < 0 {
			return &NotFoundError{Collection: KeyTransfers, ID: id}
		}
		t := tx.state.transfers[i].clone()
		if !t.Status.CanTransitionTo(in.Status) {
			return &TransitionError{TransferID: id, From: t.Status, To: in.Status}
		}

		t.Status = in.Status
		if in.Notes != "" {
			t.Notes = in.Notes
		}
		on := tx.today
		if in.Status.Terminal() {
			if in.CompletionDate != nil && !in.CompletionDate.IsZero() {
				on = *in.CompletionDate
			}
			t.CompletionDate = &on
		}
		if in.Status == TransferCompleted {
			t.ReceivedWeight = in.ReceivedWeight
			t.ReceivedBags = in.ReceivedBags
		}
		t.History = append(t.History, TransferHistoryEntry{
			Status: t.Status,
			At:     tx.now.UTC().Format(time.RFC3339),
			Notes:  transitionNote(t),
		})

		tx.state.transfers[i] = t
		tx.updated(KeyTransfers, t.ID)

		switch t.Status {
		case TransferCompleted:
			mid := ledger.MovementID(tx.id(prefixSiteMovement))
			if t.DestinationSiteID == PressingWarehouseID {
				mid = ledger.MovementID(tx.id(prefixWarehouseMovement))
			}
			site, warehouse := completionMovements(mid, t, on)
			if warehouse != nil {
				return tx.addWarehouse(*warehouse)
			}
			return tx.addSite(*site)
		case TransferCancelled:
			return tx.addSite(cancellationMovement(ledger.MovementID(tx.id(prefixSiteMovement)), t, on))
		}
		return nil
	})
	if err != nil {
		return SiteTransfer{}, err
	}
	return s.Transfer(ids.resolve(id))
}
