package stock_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/remote"
	"github.com/tidewater/stock-ledger/stock"
	"github.com/tidewater/stock-ledger/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	ctx      = context.Background()
	now      = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	north    = ledger.Scope{SiteID: "site-north", MaterialTypeID: "cottonii"}
	south    = ledger.Scope{SiteID: "site-south", MaterialTypeID: "cottonii"}
	material = ledger.MaterialTypeID("cottonii")
)

type fixture struct {
	svc    *stock.Service
	store  *memory.Memory
	remote *remote.Memory
}

func sequentialIDs() func(string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%04d", prefix, n)
	}
}

func newFixture(t *testing.T, withRemote bool) *fixture {
	t.Helper()
	f := &fixture{store: memory.New()}
	opts := stock.Options{Store: f.store, Clock: func() time.Time { return now }, NewID: sequentialIDs()}
	if withRemote {
		f.remote = remote.NewMemory()
		opts.Remote = f.remote
	}
	svc, err := stock.NewService(ctx, opts)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func date(s string) ledger.Date { return ledger.MustParseDate(s) }

func datePtr(s string) *ledger.Date {
	d := date(s)
	return &d
}

func kg(v float64) ledger.Weight { return ledger.WeightOf(v) }

func kgPtr(v float64) *ledger.Weight {
	w := kg(v)
	return &w
}

func bagsPtr(n int64) *ledger.Count {
	c := ledger.Count(n)
	return &c
}

func qty(w float64, n int64) ledger.Quantity { return ledger.NewQuantity(w, n) }

func assertQty(t *testing.T, want, got ledger.Quantity, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, want.Weight.Equal(got.Weight), "weight: want %s got %s %v", want.Weight, got.Weight, msgAndArgs)
	assert.Equal(t, want.Count, got.Count, msgAndArgs...)
}

func initial(t *testing.T, f *fixture, scope ledger.Scope, day string, w float64, n int64) {
	t.Helper()
	_, err := f.svc.RecordInitialStock(ctx, stock.ManualEntry{
		Date: date(day), SiteID: scope.SiteID, MaterialTypeID: scope.MaterialTypeID,
		Weight: kg(w), Count: ledger.Count(n),
	})
	require.NoError(t, err)
}

func newTransfer(t *testing.T, f *fixture, to ledger.SiteID, day string, w float64, n int64) stock.SiteTransfer {
	t.Helper()
	tr, err := f.svc.CreateTransfer(ctx, stock.SiteTransfer{
		Date: date(day), SourceSiteID: north.SiteID, DestinationSiteID: to,
		MaterialTypeID: material, Transporter: "Rakoto", Weight: kg(w), Bags: ledger.Count(n),
	})
	require.NoError(t, err)
	return tr
}

// =============================================================================
// BACK-DATED MOVEMENTS
// =============================================================================

func TestService_BackDatedAdjustment_ReplaysChronologically(t *testing.T) {
	// GIVEN: 01-01 +1000/20 and a transfer out on 01-05 of 300/6
	f := newFixture(t, false)
	initial(t, f, north, "2024-01-01", 1000, 20)
	newTransfer(t, f, south.SiteID, "2024-01-05", 300, 6)
	assertQty(t, qty(700, 14), f.svc.SiteBalance(north, nil))

	// WHEN: a back-dated adjustment on 01-03 is recorded
	_, err := f.svc.RecordAdjustment(ctx, stock.ManualEntry{
		Date: date("2024-01-03"), SiteID: north.SiteID, MaterialTypeID: material, Weight: kg(50), Count: 1,
	}, stock.DirectionIn)
	require.NoError(t, err)

	// THEN: history replays as 1000/20, 1050/21, 750/15
	history := f.svc.SiteHistory(north, ledger.HistoryOptions{})
	require.Len(t, history, 3)
	assert.Equal(t, stock.OnSiteAdjustmentIn, history[1].Kind)
	assertQty(t, qty(1000, 20), history[0].Balance)
	assertQty(t, qty(1050, 21), history[1].Balance)
	assertQty(t, qty(750, 15), history[2].Balance)
	assertQty(t, qty(1050, 21), f.svc.SiteBalance(north, datePtr("2024-01-04")))
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransfer_CompletedWithLoss_LossStaysVisible(t *testing.T) {
	// GIVEN: north holds 1000/20 and ships 500/10 to south
	f := newFixture(t, false)
	initial(t, f, north, "2024-02-01", 1000, 20)
	tr := newTransfer(t, f, south.SiteID, "2024-02-10", 500, 10)

	assert.Equal(t, stock.TransferAwaitingOutbound, tr.Status)
	assertQty(t, qty(500, 10), f.svc.SiteBalance(north, nil))
	assertQty(t, qty(0, 0), f.svc.SiteBalance(south, nil))

	// WHEN: it completes with 480/10 received
	done, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{
		Status: stock.TransferCompleted, CompletionDate: datePtr("2024-02-12"),
		ReceivedWeight: kgPtr(480), ReceivedBags: bagsPtr(10),
	})
	require.NoError(t, err)

	// THEN: source keeps its reduction, destination gains what was received
	assertQty(t, qty(500, 10), f.svc.SiteBalance(north, nil))
	assertQty(t, qty(480, 10), f.svc.SiteBalance(south, nil))
	assert.Equal(t, stock.TransferCompleted, done.Status)
	require.Len(t, done.History, 2)
	assert.Equal(t, "Completed. Received 480kg in 10 bags.", done.History[1].Notes)
	assert.Equal(t, "2024-02-12", done.CompletionDate.String())

	in := f.svc.SiteHistory(south, ledger.HistoryOptions{})
	require.Len(t, in, 1)
	assert.Equal(t, "2024-02-12", in[0].Date.String())
	assert.Equal(t, tr.ID, in[0].RelatedID)
}

func TestTransfer_Cancelled_RestoresSource(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-02-01", 1000, 20)
	tr := newTransfer(t, f, south.SiteID, "2024-02-10", 500, 10)

	_, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{Status: stock.TransferInTransit})
	require.NoError(t, err)
	got, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{
		Status: stock.TransferCancelled, Notes: "boat broke down",
	})
	require.NoError(t, err)

	assertQty(t, qty(1000, 20), f.svc.SiteBalance(north, nil))
	assertQty(t, qty(0, 0), f.svc.SiteBalance(south, nil))
	require.Len(t, got.History, 3)
	assert.Equal(t, "Marked as in transit.", got.History[1].Notes)
	assert.Equal(t, "Cancelled. Reason: boat broke down", got.History[2].Notes)
	assert.Equal(t, now.Format(time.RFC3339), got.History[2].At)
	assert.Equal(t, "2024-03-15", got.CompletionDate.String(), "completion date defaults to today")
}

func TestTransfer_TerminalStatusesAreFinal(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-02-01", 1000, 20)
	tr := newTransfer(t, f, south.SiteID, "2024-02-10", 500, 10)
	_, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{
		Status: stock.TransferCompleted, ReceivedWeight: kgPtr(500), ReceivedBags: bagsPtr(10),
	})
	require.NoError(t, err)

	_, err = f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{Status: stock.TransferCancelled})

	var te *stock.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, stock.TransferCompleted, te.From)
	assert.True(t, stock.IsConflict(err))
	assertQty(t, qty(500, 10), f.svc.SiteBalance(north, nil), "no movement from a rejected transition")
}

func TestTransfer_BackwardsAndUnknownStatus(t *testing.T) {
	f := newFixture(t, false)
	tr := newTransfer(t, f, south.SiteID, "2024-02-10", 5, 1)
	_, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{Status: stock.TransferPendingReception})
	require.NoError(t, err)

	_, err = f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{Status: stock.TransferInTransit})
	assert.ErrorIs(t, err, stock.ErrInvalidTransition)

	_, err = f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{Status: "LOST"})
	assert.True(t, stock.IsClientError(err))

	_, err = f.svc.AdvanceTransfer(ctx, "st-missing", stock.TransitionInput{Status: stock.TransferInTransit})
	assert.ErrorIs(t, err, stock.ErrNotFound)
}

func TestTransfer_ToPressingWarehouse_LandsInBulk(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-02-01", 1000, 20)
	tr := newTransfer(t, f, stock.PressingWarehouseID, "2024-02-10", 400, 8)

	_, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{
		Status: stock.TransferCompleted, ReceivedWeight: kgPtr(390), ReceivedBags: bagsPtr(8),
	})
	require.NoError(t, err)

	assertQty(t, qty(390, 8), f.svc.WarehouseBalance(material, stock.GradeBulk, nil))
	assertQty(t, qty(0, 0), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	assertQty(t, qty(0, 0), f.svc.SiteBalance(ledger.Scope{SiteID: stock.PressingWarehouseID, MaterialTypeID: material}, nil))
}

func TestTransfer_CreateValidation(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.CreateTransfer(ctx, stock.SiteTransfer{
		Date: date("2024-02-10"), SourceSiteID: "a", DestinationSiteID: "a", MaterialTypeID: material,
	})
	assert.ErrorIs(t, err, stock.ErrInvalidInput)

	_, err = f.svc.CreateTransfer(ctx, stock.SiteTransfer{SourceSiteID: "a", DestinationSiteID: "b", MaterialTypeID: material})
	assert.ErrorIs(t, err, stock.ErrInvalidInput)
	assert.Empty(t, f.svc.Transfers())
}

// =============================================================================
// DELIVERIES
// =============================================================================

func TestDelivery_NumberingAndCascade(t *testing.T) {
	f := newFixture(t, false)

	d1, err := f.svc.RecordDelivery(ctx, stock.FarmerDelivery{
		Date: date("2024-03-01"), SiteID: north.SiteID, FarmerID: "farmer-1", MaterialTypeID: material,
		TotalWeight: kg(120.5), TotalBags: 3,
	})
	require.NoError(t, err)
	d2, err := f.svc.RecordDelivery(ctx, stock.FarmerDelivery{
		Date: date("2024-03-02"), FarmerID: "farmer-2", MaterialTypeID: material,
		TotalWeight: kg(80), TotalBags: 2, Destination: stock.DestinationWarehouseBulk,
	})
	require.NoError(t, err)

	assert.Equal(t, "DEL-2024-001", d1.SlipNo)
	assert.Equal(t, "DEL-2024-002", d2.SlipNo)
	assert.Equal(t, stock.DestinationSiteStorage, d1.Destination)
	assertQty(t, qty(120.5, 3), f.svc.SiteBalance(north, nil))
	assertQty(t, qty(80, 2), f.svc.WarehouseBalance(material, stock.GradeBulk, nil))

	require.NoError(t, f.svc.DeleteDelivery(ctx, d1.ID))
	require.NoError(t, f.svc.DeleteDelivery(ctx, d2.ID))

	assert.Empty(t, f.svc.SiteMovements())
	assert.Empty(t, f.svc.WarehouseMovements())
	assert.ErrorIs(t, f.svc.DeleteDelivery(ctx, d1.ID), stock.ErrNotFound)

	d3, err := f.svc.RecordDelivery(ctx, stock.FarmerDelivery{
		Date: date("2024-03-03"), SiteID: north.SiteID, MaterialTypeID: material, TotalWeight: kg(1), TotalBags: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "DEL-2024-001", d3.SlipNo)
}

// =============================================================================
// PRESSING AND EXPORT
// =============================================================================

func pressed(t *testing.T, f *fixture, day string, consumedKg float64, consumedBags int64, producedKg float64, bales int64) stock.PressingSlip {
	t.Helper()
	p, err := f.svc.CreatePressingSlip(ctx, stock.PressingSlip{
		Date: date(day), SourceSiteID: north.SiteID, MaterialTypeID: material,
		ConsumedWeight: kg(consumedKg), ConsumedBags: ledger.Count(consumedBags),
		ProducedWeight: kg(producedKg), ProducedBales: ledger.Count(bales),
	})
	require.NoError(t, err)
	return p
}

func TestPressingSlip_ConsumesBulkProducesPressed(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.RecordDelivery(ctx, stock.FarmerDelivery{
		Date: date("2024-03-01"), MaterialTypeID: material, TotalWeight: kg(1000), TotalBags: 20,
		Destination: stock.DestinationWarehouseBulk,
	})
	require.NoError(t, err)

	p := pressed(t, f, "2024-03-05", 600, 12, 580, 6)

	assert.Equal(t, "PRESS-2024-001", p.SlipNo)
	assertQty(t, qty(400, 8), f.svc.WarehouseBalance(material, stock.GradeBulk, nil))
	assertQty(t, qty(580, 6), f.svc.WarehouseBalance(material, stock.GradePressed, nil))

	// WHEN: the slip is corrected
	p.ProducedBales = 7
	p.ProducedWeight = kg(590)
	p.SlipNo = "ignored"
	updated, err := f.svc.UpdatePressingSlip(ctx, p)
	require.NoError(t, err)

	// THEN: both movements are re-emitted, never duplicated
	assert.Equal(t, "PRESS-2024-001", updated.SlipNo)
	assertQty(t, qty(590, 7), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	assert.Len(t, f.svc.WarehouseMovements(), 3)

	require.NoError(t, f.svc.DeletePressingSlip(ctx, p.ID))
	assertQty(t, qty(1000, 20), f.svc.WarehouseBalance(material, stock.GradeBulk, nil))
	assertQty(t, qty(0, 0), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
}

func TestExport_LinksSlipsAndTakesBalesOut(t *testing.T) {
	f := newFixture(t, false)
	p1 := pressed(t, f, "2024-03-05", 600, 12, 580, 6)
	p2 := pressed(t, f, "2024-03-06", 300, 6, 290, 3)

	doc, err := f.svc.CreateExport(ctx, stock.ExportDocument{
		Date: date("2024-03-10"), MaterialTypeID: material, PressingSlipIDs: []string{p1.ID, p2.ID, p1.ID},
		Containers: []stock.ExportContainer{{ContainerNo: "MSCU1234567", Type: stock.Container20GP}},
	})
	require.NoError(t, err)

	assert.Equal(t, "EXP-2024-001", doc.DocNo)
	assert.Equal(t, []string{p1.ID, p2.ID}, doc.PressingSlipIDs)
	assert.NotEmpty(t, doc.Containers[0].ID)
	assertQty(t, qty(0, 0), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	slip, _ := f.svc.PressingSlip(p1.ID)
	assert.Equal(t, doc.ID, slip.ExportDocID)

	// A linked slip cannot join a second export or be deleted.
	_, err = f.svc.CreateExport(ctx, stock.ExportDocument{
		Date: date("2024-03-11"), MaterialTypeID: material, PressingSlipIDs: []string{p2.ID},
	})
	assert.ErrorIs(t, err, stock.ErrSlipAlreadyExported)
	assert.ErrorIs(t, f.svc.DeletePressingSlip(ctx, p2.ID), stock.ErrSlipAlreadyExported)
	assert.Len(t, f.svc.ExportDocuments(), 1)

	// WHEN: p2 is dropped from the document
	doc.PressingSlipIDs = []string{p1.ID}
	_, err = f.svc.UpdateExport(ctx, doc)
	require.NoError(t, err)

	// THEN: p2's bales are back in pressed stock and p2 is unlinked
	assertQty(t, qty(290, 3), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	slip, _ = f.svc.PressingSlip(p2.ID)
	assert.Empty(t, slip.ExportDocID)

	require.NoError(t, f.svc.DeleteExport(ctx, doc.ID))
	assertQty(t, qty(870, 9), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	slip, _ = f.svc.PressingSlip(p1.ID)
	assert.Empty(t, slip.ExportDocID)
}

func TestExport_NoBales_NoMovement(t *testing.T) {
	f := newFixture(t, false)
	p := pressed(t, f, "2024-03-05", 10, 1, 0, 0)

	_, err := f.svc.CreateExport(ctx, stock.ExportDocument{
		Date: date("2024-03-10"), MaterialTypeID: material, PressingSlipIDs: []string{p.ID},
	})
	require.NoError(t, err)

	for _, m := range f.svc.WarehouseMovements() {
		assert.NotEqual(t, stock.WarehouseExportOut, m.Kind)
	}
}

func TestExport_UnknownSlip(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.CreateExport(ctx, stock.ExportDocument{
		Date: date("2024-03-10"), MaterialTypeID: material, PressingSlipIDs: []string{"ps-nope"},
	})

	assert.ErrorIs(t, err, stock.ErrNotFound)
	assert.Empty(t, f.svc.ExportDocuments())
}

func TestUpdatePressingSlip_ReDerivesExportOutbound(t *testing.T) {
	f := newFixture(t, false)
	p := pressed(t, f, "2024-03-05", 600, 12, 580, 6)
	_, err := f.svc.CreateExport(ctx, stock.ExportDocument{
		Date: date("2024-03-10"), MaterialTypeID: material, PressingSlipIDs: []string{p.ID},
	})
	require.NoError(t, err)

	p.ProducedBales = 8
	p.ProducedWeight = kg(600)
	_, err = f.svc.UpdatePressingSlip(ctx, p)
	require.NoError(t, err)

	assertQty(t, qty(0, 0), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
}

func TestReturnFromPressing_PairsBothLedgers(t *testing.T) {
	f := newFixture(t, false)
	p := pressed(t, f, "2024-03-05", 600, 12, 580, 6)

	err := f.svc.RecordReturnFromPressing(ctx, stock.ReturnFromPressing{
		Date: date("2024-03-07"), SiteID: north.SiteID, Weight: kg(100), Bags: 1, PressingSlipID: p.ID,
	})
	require.NoError(t, err)

	assertQty(t, qty(100, 1), f.svc.SiteBalance(north, nil))
	assertQty(t, qty(480, 5), f.svc.WarehouseBalance(material, stock.GradePressed, nil))

	// Deleting the slip takes the return with it on both sides.
	require.NoError(t, f.svc.DeletePressingSlip(ctx, p.ID))
	assertQty(t, qty(0, 0), f.svc.SiteBalance(north, nil))
	assert.Empty(t, f.svc.WarehouseMovements())
}

func TestBaggingTransfer_RelatedToCycle(t *testing.T) {
	f := newFixture(t, false)

	m, err := f.svc.RecordBaggingTransfer(ctx, stock.BaggingTransfer{
		ManualEntry: stock.ManualEntry{SiteID: north.SiteID, MaterialTypeID: material, Weight: kg(250), Count: 5},
		CycleID:     "cyc-7",
	})
	require.NoError(t, err)

	assert.Equal(t, "cyc-7", m.RelatedID)
	assert.Equal(t, "2024-03-15", m.Date.String())
	assertQty(t, qty(250, 5), f.svc.SiteBalance(north, nil))

	_, err = f.svc.RecordBaggingTransfer(ctx, stock.BaggingTransfer{
		ManualEntry: stock.ManualEntry{SiteID: north.SiteID, MaterialTypeID: material, Weight: kg(250)},
		CycleID:     "cyc-8",
	})
	assert.ErrorIs(t, err, stock.ErrInvalidInput)
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestSiteSummary_HidesEmptyRows(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-01-01", 100, 2)
	initial(t, f, south, "2024-01-01", 0.005, 0)
	_, err := f.svc.RecordAdjustment(ctx, stock.ManualEntry{
		Date: date("2024-01-02"), SiteID: north.SiteID, MaterialTypeID: "spinosum", Weight: kg(5), Count: 1,
	}, stock.DirectionIn)
	require.NoError(t, err)

	rows := f.svc.SiteSummary(stock.SummaryFilter{})
	require.Len(t, rows, 2)
	assert.Equal(t, north, rows[0].Scope)
	assert.Equal(t, ledger.MaterialTypeID("spinosum"), rows[1].Scope.MaterialTypeID)

	rows = f.svc.SiteSummary(stock.SummaryFilter{MaterialTypeID: "spinosum"})
	require.Len(t, rows, 1)

	rows = f.svc.SiteSummary(stock.SummaryFilter{AsOf: datePtr("2024-01-01")})
	require.Len(t, rows, 1)
}

func TestWarehouseSummary_PerGrade(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.RecordInitialPressedStock(ctx, stock.ManualEntry{Date: date("2024-01-01"), MaterialTypeID: material, Weight: kg(900), Count: 9})
	require.NoError(t, err)
	_, err = f.svc.RecordPressedAdjustment(ctx, stock.ManualEntry{Date: date("2024-01-02"), MaterialTypeID: material, Weight: kg(100), Count: 1}, stock.DirectionOut)
	require.NoError(t, err)

	rows := f.svc.WarehouseSummary(nil)

	require.Len(t, rows, 1)
	assert.Equal(t, stock.GradePressed, rows[0].Grade)
	assertQty(t, qty(800, 8), rows[0].Balance)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestService_ReloadFromStore_SameBalances(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-01-01", 1000, 20)
	tr := newTransfer(t, f, south.SiteID, "2024-01-05", 300, 6)
	_, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{
		Status: stock.TransferCompleted, ReceivedWeight: kgPtr(290), ReceivedBags: bagsPtr(6),
	})
	require.NoError(t, err)

	reloaded, err := stock.NewService(ctx, stock.Options{Store: f.store})
	require.NoError(t, err)

	assertQty(t, f.svc.SiteBalance(north, nil), reloaded.SiteBalance(north, nil))
	assertQty(t, qty(290, 6), reloaded.SiteBalance(south, nil))
	got, err := reloaded.Transfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.TransferCompleted, got.Status)
	assert.Len(t, got.History, 2)
}

func TestService_Load_SkipsUnknownKinds(t *testing.T) {
	// GIVEN: a stored pressed-stock collection with one unknown kind
	st := memory.New()
	require.NoError(t, st.Put(ctx, stock.KeyWarehouseMovements, []byte(`[
		{"id":"psm-1","date":"2024-01-01","siteId":"pressing-warehouse","materialTypeId":"cottonii",
		 "kind":"INITIAL_STOCK","inWeight":40,"inCount":2},
		{"id":"psm-2","date":"2024-01-02","siteId":"pressing-warehouse","materialTypeId":"cottonii",
		 "kind":"TOTALLY_BOGUS","inWeight":100,"inCount":3}
	]`)))

	// WHEN: the service loads it
	svc, err := stock.NewService(ctx, stock.Options{Store: st})

	// THEN: the unknown movement takes no part in any balance
	require.NoError(t, err)
	assert.Len(t, svc.WarehouseMovements(), 1)
	assertQty(t, qty(40, 2), svc.WarehouseBalance(material, stock.GradePressed, nil))
	assertQty(t, qty(0, 0), svc.WarehouseBalance(material, stock.GradeBulk, nil))
}

func TestService_Reset_EmptiesStore(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-01-01", 1000, 20)
	newTransfer(t, f, south.SiteID, "2024-01-05", 300, 6)

	require.NoError(t, f.svc.Reset(ctx))

	assert.Empty(t, f.svc.SiteMovements())
	assert.Empty(t, f.svc.Transfers())
	keys, err := f.store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	reloaded, err := stock.NewService(ctx, stock.Options{Store: f.store})
	require.NoError(t, err)
	assert.Empty(t, reloaded.SiteMovements())
}

func TestService_PersistFailure_DiscardsMutation(t *testing.T) {
	f := newFixture(t, false)
	initial(t, f, north, "2024-01-01", 1000, 20)
	f.store.FailPut = func(string) error { return errors.New("disk full") }

	_, err := f.svc.CreateTransfer(ctx, stock.SiteTransfer{
		Date: date("2024-01-05"), SourceSiteID: north.SiteID, DestinationSiteID: south.SiteID,
		MaterialTypeID: material, Weight: kg(300), Bags: 6,
	})

	assert.ErrorIs(t, err, stock.ErrPersistence)
	assert.Empty(t, f.svc.Transfers())
	assertQty(t, qty(1000, 20), f.svc.SiteBalance(north, nil))
}

// =============================================================================
// REMOTE SYNC
// =============================================================================

func TestRemote_CreateRemapsProvisionalIDs(t *testing.T) {
	f := newFixture(t, true)
	initial(t, f, north, "2024-01-01", 1000, 20)

	tr := newTransfer(t, f, south.SiteID, "2024-01-05", 300, 6)

	assert.Regexp(t, `^rm-\d{4}$`, tr.ID)
	history := f.svc.SiteHistory(north, ledger.HistoryOptions{})
	require.Len(t, history, 2)
	assert.Equal(t, tr.ID, history[1].RelatedID, "movement points at the backend id")
	assert.Regexp(t, `^rm-\d{4}$`, string(history[1].ID))

	// The persisted copy carries the backend ids as well.
	reloaded, err := stock.NewService(ctx, stock.Options{Store: f.store})
	require.NoError(t, err)
	_, err = reloaded.Transfer(tr.ID)
	assert.NoError(t, err)
}

func TestRemote_Failure_RollsBackEverything(t *testing.T) {
	// GIVEN: a backend that accepts the transfer but refuses its movement
	f := newFixture(t, true)
	initial(t, f, north, "2024-01-01", 1000, 20)
	before, err := f.store.Get(ctx, stock.KeySiteMovements)
	require.NoError(t, err)

	f.remote.Fail = func(op, collection, _ string) error {
		if op == "create" && collection == stock.KeySiteMovements {
			return errors.New("backend unavailable")
		}
		return nil
	}

	// WHEN: creating a transfer
	_, err = f.svc.CreateTransfer(ctx, stock.SiteTransfer{
		Date: date("2024-01-05"), SourceSiteID: north.SiteID, DestinationSiteID: south.SiteID,
		MaterialTypeID: material, Weight: kg(300), Bags: 6,
	})

	// THEN: the caller sees a sync error and nothing survives anywhere
	var se *stock.SyncError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, stock.ErrRemoteSync)
	assert.Equal(t, stock.KeySiteMovements, se.Collection)

	assert.Empty(t, f.svc.Transfers())
	assertQty(t, qty(1000, 20), f.svc.SiteBalance(north, nil))
	assert.Zero(t, f.remote.Count(stock.KeyTransfers), "created transfer deleted on the backend")

	after, err := f.store.Get(ctx, stock.KeySiteMovements)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	transfers, err := f.store.Get(ctx, stock.KeyTransfers)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(transfers))
}

func TestRemote_UpdateFailure_RestoresDocument(t *testing.T) {
	f := newFixture(t, true)
	initial(t, f, north, "2024-01-01", 1000, 20)
	tr := newTransfer(t, f, south.SiteID, "2024-01-05", 300, 6)

	f.remote.Fail = func(op, _, _ string) error {
		if op == "update" {
			return errors.New("conflict")
		}
		return nil
	}

	_, err := f.svc.AdvanceTransfer(ctx, tr.ID, stock.TransitionInput{Status: stock.TransferInTransit})

	assert.ErrorIs(t, err, stock.ErrRemoteSync)
	got, err := f.svc.Transfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.TransferAwaitingOutbound, got.Status)
	assert.Len(t, got.History, 1)
}

// =============================================================================
// CASCADES WITH PER-COLLECTION BACKEND IDS
// =============================================================================

func newPerCollectionFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), remote: remote.NewMemory()}
	f.remote.PerCollection = true
	svc, err := stock.NewService(ctx, stock.Options{
		Store: f.store, Remote: f.remote, Clock: func() time.Time { return now }, NewID: sequentialIDs(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func initialPressed(t *testing.T, f *fixture, day string, w float64, n int64) stock.WarehouseMovement {
	t.Helper()
	m, err := f.svc.RecordInitialPressedStock(ctx, stock.ManualEntry{
		Date: date(day), MaterialTypeID: material, Weight: kg(w), Count: ledger.Count(n),
	})
	require.NoError(t, err)
	return m
}

func TestDeletePressingSlip_SharedBackendID_KeepsManualStock(t *testing.T) {
	// GIVEN: opening pressed stock and a slip that both get backend id "1"
	f := newPerCollectionFixture(t)
	opening := initialPressed(t, f, "2024-03-01", 500, 10)
	p := pressed(t, f, "2024-03-05", 100, 2, 90, 1)
	require.Equal(t, "1", string(opening.ID))
	require.Equal(t, "1", p.ID)
	assert.Empty(t, opening.RelatedID, "manual movements have no business document")
	assertQty(t, qty(590, 11), f.svc.WarehouseBalance(material, stock.GradePressed, nil))

	// WHEN: the slip is deleted
	require.NoError(t, f.svc.DeletePressingSlip(ctx, p.ID))

	// THEN: only the slip's own movements are gone
	assertQty(t, qty(500, 10), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	require.Len(t, f.svc.WarehouseMovements(), 1)
	assert.Equal(t, stock.WarehouseInitialStock, f.svc.WarehouseMovements()[0].Kind)
	assert.Equal(t, 1, f.remote.Count(stock.KeyWarehouseMovements))
}

func TestDeleteExport_SharedBackendID_KeepsSlipMovements(t *testing.T) {
	// GIVEN: slip "1" and export "1" live in different backend collections
	f := newPerCollectionFixture(t)
	initialPressed(t, f, "2024-03-01", 500, 10)
	p := pressed(t, f, "2024-03-05", 100, 2, 90, 1)
	doc, err := f.svc.CreateExport(ctx, stock.ExportDocument{
		Date: date("2024-03-10"), MaterialTypeID: material, PressingSlipIDs: []string{p.ID},
	})
	require.NoError(t, err)
	require.Equal(t, p.ID, doc.ID)
	assertQty(t, qty(500, 10), f.svc.WarehouseBalance(material, stock.GradePressed, nil))

	// WHEN: the export is deleted
	require.NoError(t, f.svc.DeleteExport(ctx, doc.ID))

	// THEN: the bales come back and the slip's pressing movements survive
	assertQty(t, qty(590, 11), f.svc.WarehouseBalance(material, stock.GradePressed, nil))
	for _, m := range f.svc.WarehouseMovements() {
		assert.NotEqual(t, stock.WarehouseExportOut, m.Kind)
	}
	assert.Len(t, f.svc.WarehouseMovements(), 3)
}
