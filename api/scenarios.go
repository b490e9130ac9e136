/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the ledger with realistic
	data for demos. Each scenario goes through the stock service, so the
	documents and movements it creates are exactly what the API would
	create.

AVAILABLE SCENARIOS:

	harvest-season:   Opening stock, farmer deliveries, bagging, a count correction
	site-transfers:   One transfer per status: in transit, completed with loss, cancelled
	pressing-export:  Bulk into the warehouse, pressing runs, an export, a return to site

HOW SCENARIOS WORK:
 1. Reset the local store (the remote backend is not touched)
 2. Record documents through the stock service, dated relative to today
 3. Remember the loaded scenario

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "pressing-export"}

NOTE:

	Scenarios reset the local store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler context
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/stock"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "harvest-season",
		Name:        "Harvest Season",
		Description: "Opening stock at two sites, farmer deliveries, bagging and a stock count correction",
	},
	{
		ID:          "site-transfers",
		Name:        "Site Transfers",
		Description: "Transfers in transit, completed with a weight loss, and cancelled",
	},
	{
		ID:          "pressing-export",
		Name:        "Pressing & Export",
		Description: "Bulk stock pressed into bales, exported in a container, and a return to site",
	},
}

const (
	demoMaterial = ledger.MaterialTypeID("cottonii")
	demoNorth    = ledger.SiteID("site-ambaro")
	demoSouth    = ledger.SiteID("site-sarodrano")
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "harvest-season":
		load = h.loadHarvestSeasonScenario
	case "site-transfers":
		load = h.loadSiteTransfersScenario
	case "pressing-export":
		load = h.loadPressingExportScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Stock.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	if err := load(ctx); err != nil {
		h.writeServiceError(w, r, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err))
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all local data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Stock.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// daysAgo dates demo data relative to the service clock.
func (h *Handler) daysAgo(n int) ledger.Date { return h.Stock.Today().AddDays(-n) }

func (h *Handler) openSites(ctx context.Context, day ledger.Date) error {
	for _, o := range []struct {
		site ledger.SiteID
		kg   float64
		bags int64
	}{
		{demoNorth, 2400, 48},
		{demoSouth, 1150, 23},
	} {
		if _, err := h.Stock.RecordInitialStock(ctx, stock.ManualEntry{
			Date: day, SiteID: o.site, MaterialTypeID: demoMaterial,
			Weight: ledger.WeightOf(o.kg), Count: ledger.Count(o.bags),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadHarvestSeasonScenario(ctx context.Context) error {
	if err := h.openSites(ctx, h.daysAgo(45)); err != nil {
		return err
	}

	deliveries := []stock.FarmerDelivery{
		{Date: h.daysAgo(30), SiteID: demoNorth, FarmerID: "farmer-rasoa", TotalWeight: ledger.WeightOf(312.5), TotalBags: 7},
		{Date: h.daysAgo(21), SiteID: demoNorth, FarmerID: "farmer-jean", TotalWeight: ledger.WeightOf(188), TotalBags: 4},
		{Date: h.daysAgo(14), SiteID: demoSouth, FarmerID: "farmer-hery", TotalWeight: ledger.WeightOf(540.25), TotalBags: 12},
	}
	for _, d := range deliveries {
		d.MaterialTypeID = demoMaterial
		if _, err := h.Stock.RecordDelivery(ctx, d); err != nil {
			return err
		}
	}

	if _, err := h.Stock.RecordBaggingTransfer(ctx, stock.BaggingTransfer{
		ManualEntry: stock.ManualEntry{
			Date: h.daysAgo(10), SiteID: demoNorth, MaterialTypeID: demoMaterial,
			Weight: ledger.WeightOf(96), Count: 2,
		},
		CycleID: "cycle-2024-07",
	}); err != nil {
		return err
	}

	// Physical count found two damp bags written off.
	_, err := h.Stock.RecordAdjustment(ctx, stock.ManualEntry{
		Date: h.daysAgo(3), SiteID: demoNorth, MaterialTypeID: demoMaterial,
		Weight: ledger.WeightOf(61.5), Count: 2, Designation: "Inventory count: damp bags",
	}, stock.DirectionOut)
	return err
}

func (h *Handler) loadSiteTransfersScenario(ctx context.Context) error {
	if err := h.openSites(ctx, h.daysAgo(40)); err != nil {
		return err
	}

	newTransfer := func(day int, kg float64, bags int64, transporter string) (stock.SiteTransfer, error) {
		return h.Stock.CreateTransfer(ctx, stock.SiteTransfer{
			Date: h.daysAgo(day), SourceSiteID: demoNorth, DestinationSiteID: demoSouth,
			MaterialTypeID: demoMaterial, Transporter: transporter, Transport: stock.TransportBoat,
			Weight: ledger.WeightOf(kg), Bags: ledger.Count(bags),
		})
	}

	// Completed with 8kg lost to drying on the way.
	done, err := newTransfer(20, 500, 10, "Lakana Mahasoa")
	if err != nil {
		return err
	}
	if _, err := h.Stock.AdvanceTransfer(ctx, done.ID, stock.TransitionInput{Status: stock.TransferInTransit}); err != nil {
		return err
	}
	received, bags := ledger.WeightOf(492), ledger.Count(10)
	completed := h.daysAgo(18)
	if _, err := h.Stock.AdvanceTransfer(ctx, done.ID, stock.TransitionInput{
		Status: stock.TransferCompleted, CompletionDate: &completed,
		ReceivedWeight: &received, ReceivedBags: &bags,
	}); err != nil {
		return err
	}

	cancelled, err := newTransfer(12, 250, 5, "Lakana Mahasoa")
	if err != nil {
		return err
	}
	if _, err := h.Stock.AdvanceTransfer(ctx, cancelled.ID, stock.TransitionInput{
		Status: stock.TransferCancelled, Notes: "Boat engine failure",
	}); err != nil {
		return err
	}

	moving, err := newTransfer(2, 300, 6, "Transports Vezo")
	if err != nil {
		return err
	}
	_, err = h.Stock.AdvanceTransfer(ctx, moving.ID, stock.TransitionInput{Status: stock.TransferInTransit})
	return err
}

func (h *Handler) loadPressingExportScenario(ctx context.Context) error {
	if err := h.openSites(ctx, h.daysAgo(60)); err != nil {
		return err
	}

	// Bulk reaches the warehouse two ways: a site transfer and a direct delivery.
	tr, err := h.Stock.CreateTransfer(ctx, stock.SiteTransfer{
		Date: h.daysAgo(50), SourceSiteID: demoNorth, DestinationSiteID: stock.PressingWarehouseID,
		MaterialTypeID: demoMaterial, Transporter: "Transports Vezo", Transport: stock.TransportTruck,
		Weight: ledger.WeightOf(1800), Bags: 36,
	})
	if err != nil {
		return err
	}
	received, bags := ledger.WeightOf(1785), ledger.Count(36)
	if _, err := h.Stock.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{
		Status: stock.TransferCompleted, ReceivedWeight: &received, ReceivedBags: &bags,
	}); err != nil {
		return err
	}
	if _, err := h.Stock.RecordDelivery(ctx, stock.FarmerDelivery{
		Date: h.daysAgo(45), SiteID: demoSouth, FarmerID: "farmer-hery", MaterialTypeID: demoMaterial,
		TotalWeight: ledger.WeightOf(620), TotalBags: 13, Destination: stock.DestinationWarehouseBulk,
	}); err != nil {
		return err
	}

	var slipIDs []string
	for _, run := range []struct {
		day           int
		consumed      float64
		consumedBags  int64
		produced      float64
		producedBales int64
		sourceSite    ledger.SiteID
	}{
		{40, 1200, 24, 1150, 23, demoNorth},
		{35, 900, 19, 870, 17, demoSouth},
	} {
		slip, err := h.Stock.CreatePressingSlip(ctx, stock.PressingSlip{
			Date: h.daysAgo(run.day), SourceSiteID: run.sourceSite, MaterialTypeID: demoMaterial,
			ConsumedWeight: ledger.WeightOf(run.consumed), ConsumedBags: ledger.Count(run.consumedBags),
			ProducedWeight: ledger.WeightOf(run.produced), ProducedBales: ledger.Count(run.producedBales),
		})
		if err != nil {
			return err
		}
		slipIDs = append(slipIDs, slip.ID)
	}

	if _, err := h.Stock.CreateExport(ctx, stock.ExportDocument{
		DocType: stock.DocCommercialInvoice, InvoiceNo: "INV-0042", Date: h.daysAgo(20),
		MaterialTypeID: demoMaterial, DestinationCountry: "France", City: "Marseille",
		Vessel: "CMA CGM Tanya", Currency: "EUR", Incoterms: "FOB",
		PressingSlipIDs: slipIDs[:1],
		Containers: []stock.ExportContainer{{
			ContainerNo: "CMAU1234567", SealNo: "SL-88121", Type: stock.Container20GP,
			SeaweedWeight: ledger.WeightOf(1150), Packages: 23,
		}},
	}); err != nil {
		return err
	}

	return h.Stock.RecordReturnFromPressing(ctx, stock.ReturnFromPressing{
		Date: h.daysAgo(15), SiteID: demoSouth, PressingSlipID: slipIDs[1],
		Weight: ledger.WeightOf(87), Bags: 2,
	})
}
