package stock

import (
	"slices"

	"github.com/tidewater/stock-ledger/ledger"
)

// =============================================================================
// FARMER DELIVERY
// =============================================================================

// DeliveryDestination says which ledger a delivery lands in.
type DeliveryDestination string

const (
	DestinationSiteStorage   DeliveryDestination = "SITE_STORAGE"
	DestinationWarehouseBulk DeliveryDestination = "PRESSING_WAREHOUSE_BULK"
)

func (d DeliveryDestination) Valid() bool {
	return d == DestinationSiteStorage || d == DestinationWarehouseBulk
}

type FarmerDelivery struct {
	ID             string                `json:"id"`
	SlipNo         string                `json:"slipNo"`
	Date           ledger.Date           `json:"date"`
	SiteID         ledger.SiteID         `json:"siteId"`
	FarmerID       string                `json:"farmerId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	TotalWeight    ledger.Weight         `json:"totalWeightKg"`
	TotalBags      ledger.Count          `json:"totalBags"`
	BagWeights     []ledger.Weight       `json:"bagWeights"`
	Destination    DeliveryDestination   `json:"destination"`
	PaymentRunID   string                `json:"paymentRunId,omitempty"`
}

func (d FarmerDelivery) Quantity() ledger.Quantity {
	return ledger.QuantityOf(d.TotalWeight, d.TotalBags)
}

// =============================================================================
// SITE TRANSFER
// =============================================================================

type TransportMode string

const (
	TransportBoat  TransportMode = "Boat"
	TransportTruck TransportMode = "Truck"
)

type TransferHistoryEntry struct {
	Status TransferStatus `json:"status"`
	At     string         `json:"date"`
	Notes  string         `json:"notes,omitempty"`
}

type SiteTransfer struct {
	ID                string                 `json:"id"`
	Date              ledger.Date            `json:"date"`
	SourceSiteID      ledger.SiteID          `json:"sourceSiteId"`
	DestinationSiteID ledger.SiteID          `json:"destinationSiteId"`
	MaterialTypeID    ledger.MaterialTypeID  `json:"materialTypeId"`
	ManagerID         string                 `json:"managerId,omitempty"`
	Transporter       string                 `json:"transporter"`
	Transport         TransportMode          `json:"transport,omitempty"`
	Representative    string                 `json:"representative,omitempty"`
	Weight            ledger.Weight          `json:"weightKg"`
	Bags              ledger.Count           `json:"bags"`
	BagWeights        []ledger.Weight        `json:"bagWeights"`
	Status            TransferStatus         `json:"status"`
	CompletionDate    *ledger.Date           `json:"completionDate,omitempty"`
	ReceivedWeight    *ledger.Weight         `json:"receivedWeightKg,omitempty"`
	ReceivedBags      *ledger.Count          `json:"receivedBags,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	History           []TransferHistoryEntry `json:"history"`
}

// Shipped is the quantity that left the source site.
func (t SiteTransfer) Shipped() ledger.Quantity {
	return ledger.QuantityOf(t.Weight, t.Bags)
}

// Received is the quantity recorded at reception. Missing values count as
// zero.
func (t SiteTransfer) Received() ledger.Quantity {
	q := ledger.ZeroQuantity()
	if t.ReceivedWeight != nil {
		q.Weight = t.ReceivedWeight.Decimal
	}
	if t.ReceivedBags != nil {
		q.Count = int64(*t.ReceivedBags)
	}
	return q
}

func (t SiteTransfer) clone() SiteTransfer {
	t.BagWeights = slices.Clone(t.BagWeights)
	t.History = slices.Clone(t.History)
	return t
}

// =============================================================================
// PRESSING SLIP
// =============================================================================

type PressingSlip struct {
	ID             string                `json:"id"`
	SlipNo         string                `json:"slipNo"`
	Date           ledger.Date           `json:"date"`
	SourceSiteID   ledger.SiteID         `json:"sourceSiteId"`
	MaterialTypeID ledger.MaterialTypeID `json:"materialTypeId"`
	ConsumedWeight ledger.Weight         `json:"consumedWeightKg"`
	ConsumedBags   ledger.Count          `json:"consumedBags"`
	ProducedWeight ledger.Weight         `json:"producedWeightKg"`
	ProducedBales  ledger.Count          `json:"producedBalesCount"`
	ExportDocID    string                `json:"exportDocId,omitempty"`
}

func (p PressingSlip) Consumed() ledger.Quantity {
	return ledger.QuantityOf(p.ConsumedWeight, p.ConsumedBags)
}

func (p PressingSlip) Produced() ledger.Quantity {
	return ledger.QuantityOf(p.ProducedWeight, p.ProducedBales)
}

// =============================================================================
// EXPORT DOCUMENT
// =============================================================================

type ExportDocType string

const (
	DocCommercialInvoice   ExportDocType = "COMMERCIAL_INVOICE"
	DocPackingList         ExportDocType = "PACKING_LIST"
	DocCertificateOfOrigin ExportDocType = "CERTIFICATE_OF_ORIGIN"
)

type ContainerType string

const (
	Container20GP ContainerType = "20' GP"
	Container40GP ContainerType = "40' GP"
	Container40HC ContainerType = "40' HC"
)

type ExportContainer struct {
	ID            string         `json:"id"`
	ContainerNo   string         `json:"containerNo"`
	SealNo        string         `json:"sealNo"`
	Type          ContainerType  `json:"containerType"`
	VolumeM3      ledger.Weight  `json:"volumeM3"`
	Tare          ledger.Weight  `json:"tareKg"`
	PackageWeight *ledger.Weight `json:"packageWeightKg,omitempty"`
	SeaweedWeight ledger.Weight  `json:"seaweedWeightKg"`
	Packages      ledger.Count   `json:"packagesCount"`
	GrossWeight   ledger.Weight  `json:"grossWeightKg"`
	UnitPrice     ledger.Weight  `json:"unitPrice"`
	Value         ledger.Weight  `json:"value"`
}

// ExportDocument is a shipment of pressed bales. Its outbound movement is
// derived from the pressing slips it links, not from its containers.
type ExportDocument struct {
	ID                  string                `json:"id"`
	DocNo               string                `json:"docNo"`
	DocType             ExportDocType         `json:"docType"`
	InvoiceNo           string                `json:"invoiceNo"`
	Date                ledger.Date           `json:"date"`
	MaterialTypeID      ledger.MaterialTypeID `json:"materialTypeId"`
	Nature              string                `json:"nature"`
	PONo                string                `json:"poNo"`
	DomiciliationNo     string                `json:"domiciliationNo"`
	DestinationCountry  string                `json:"destinationCountry"`
	City                string                `json:"city"`
	NotifyParty         string                `json:"notifyParty"`
	Debtor              string                `json:"debtor"`
	Vessel              string                `json:"vessel"`
	SeaWaybill          string                `json:"seaWaybill"`
	VoyageNo            string                `json:"voyageNo"`
	Currency            string                `json:"currency"`
	LocalExchangeRate   ledger.Weight         `json:"localExchangeRate"`
	PressingSlipIDs     []string              `json:"pressingSlipIds"`
	Containers          []ExportContainer     `json:"containers"`
	CustomsNomenclature string                `json:"customsNomenclature"`
	CountryOfOrigin     string                `json:"countryOfOrigin"`
	Incoterms           string                `json:"incoterms"`
	PaymentTerms        string                `json:"paymentTerms"`
	SwiftBank           string                `json:"swiftBank"`
	RexReference        string                `json:"rexReference,omitempty"`
}

func (d ExportDocument) clone() ExportDocument {
	d.PressingSlipIDs = slices.Clone(d.PressingSlipIDs)
	d.Containers = slices.Clone(d.Containers)
	return d
}
