/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Business documents (deliveries, transfers, pressing slips, export
  documents) travel in their stored JSON shape and decode straight into
  package stock types. The types here cover what has no document of its
  own: manual entries, status transitions, balances and annotated
  histories.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done by package stock, not in DTOs. DTOs are pure data
  carriers; numbers are decoded leniently by ledger.Weight/ledger.Count.

SEE ALSO:
  - handlers.go: Uses these types
  - stock/documents.go: document JSON shapes
*/
package api

import (
	"time"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/stock"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ManualEntryRequest opens or corrects stock. Direction is only read by
// the adjustment endpoints.
type ManualEntryRequest struct {
	Date           ledger.Date           `json:"date"`
	SiteID         ledger.SiteID         `json:"siteId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	Weight         ledger.Weight         `json:"weightKg"`
	Count          ledger.Count          `json:"count"`
	Designation    string                `json:"designation"`
	Direction      stock.Direction       `json:"direction,omitempty"`
}

func (r ManualEntryRequest) entry() stock.ManualEntry {
	return stock.ManualEntry{
		Date:           r.Date,
		SiteID:         r.SiteID,
		MaterialTypeID: r.MaterialTypeID,
		Weight:         r.Weight,
		Count:          r.Count,
		Designation:    r.Designation,
	}
}

type BaggingTransferRequest struct {
	ManualEntryRequest
	CycleID string `json:"cycleId"`
}

// TransitionRequest moves a site transfer to its next status.
type TransitionRequest struct {
	Status         stock.TransferStatus `json:"status"`
	CompletionDate *ledger.Date         `json:"completionDate,omitempty"`
	ReceivedWeight *ledger.Weight       `json:"receivedWeightKg,omitempty"`
	ReceivedBags   *ledger.Count        `json:"receivedBags,omitempty"`
	Notes          string               `json:"notes,omitempty"`
}

type ReturnRequest struct {
	Date           ledger.Date           `json:"date"`
	SiteID         ledger.SiteID         `json:"siteId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId,omitempty"`
	Weight         ledger.Weight         `json:"weightKg"`
	Bags           ledger.Count          `json:"bags"`
	Designation    string                `json:"designation,omitempty"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type QuantityDTO struct {
	Weight ledger.Weight `json:"weightKg"`
	Count  int64         `json:"count"`
}

func toQuantityDTO(q ledger.Quantity) QuantityDTO {
	return QuantityDTO{Weight: ledger.Weight{Decimal: q.Weight}, Count: q.Count}
}

// BalanceDTO is the balance of one (site, material) pair.
type BalanceDTO struct {
	SiteID         ledger.SiteID         `json:"siteId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	Grade          stock.Grade           `json:"grade,omitempty"`
	AsOf           string                `json:"asOf,omitempty"`
	Balance        QuantityDTO           `json:"balance"`
}

// HistoryEntryDTO is a movement with the balance it left behind.
type HistoryEntryDTO struct {
	ID             ledger.MovementID     `json:"id"`
	Date           ledger.Date           `json:"date"`
	SiteID         ledger.SiteID         `json:"siteId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	Kind           string                `json:"kind"`
	Designation    string                `json:"designation"`
	RelatedID      string                `json:"relatedId,omitempty"`
	In             QuantityDTO           `json:"in"`
	Out            QuantityDTO           `json:"out"`
	Balance        QuantityDTO           `json:"balance"`
}

func toHistoryDTOs[K ledger.Kind](entries []ledger.Entry[K]) []HistoryEntryDTO {
	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = HistoryEntryDTO{
			ID:             e.ID,
			Date:           e.Date,
			SiteID:         e.SiteID,
			MaterialTypeID: e.MaterialTypeID,
			Kind:           string(e.Kind),
			Designation:    e.Designation,
			RelatedID:      e.RelatedID,
			In:             toQuantityDTO(e.In),
			Out:            toQuantityDTO(e.Out),
			Balance:        toQuantityDTO(e.Balance),
		}
	}
	return dtos
}

type SummaryRowDTO struct {
	SiteID         ledger.SiteID         `json:"siteId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	Balance        QuantityDTO           `json:"balance"`
}

type WarehouseRowDTO struct {
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	Grade          stock.Grade           `json:"grade"`
	Balance        QuantityDTO           `json:"balance"`
}

// StoreCollectionDTO is one row of the store diagnostics.
type StoreCollectionDTO struct {
	Key       string     `json:"key"`
	Bytes     int        `json:"bytes"`
	Records   int        `json:"records"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func toStoreCollectionDTOs(rows []stock.CollectionStatus) []StoreCollectionDTO {
	dtos := make([]StoreCollectionDTO, len(rows))
	for i, row := range rows {
		dtos[i] = StoreCollectionDTO{Key: row.Key, Bytes: row.Bytes, Records: row.Records}
		if row.Written {
			at := row.UpdatedAt
			dtos[i].UpdatedAt = &at
		}
	}
	return dtos
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
