/*
handlers.go - HTTP API handlers for the stock ledger

PURPOSE:
  Exposes the stock service via REST API. Handles HTTP request/response and
  JSON serialization; every rule lives in package stock.

ENDPOINTS:
  Views:
    GET    /api/sites/{site}/materials/{material}/balance   ?as_of=
    GET    /api/sites/{site}/materials/{material}/history   ?from=&to=&sort=&dir=
    GET    /api/stock/summary                               ?site=&material=&as_of=
    GET    /api/warehouse/summary                           ?as_of=
    GET    /api/warehouse/{material}/{grade}/history        ?from=&to=&sort=&dir=
    GET    /api/exports/history.{csv|xlsx}                  ?site=&material=&from=&to=&lang=

  Manual movements:
    POST   /api/movements/initial, /api/movements/adjustments
    POST   /api/warehouse/initial, /api/warehouse/adjustments
    POST   /api/bagging-transfers

  Documents:
    /api/deliveries, /api/transfers, /api/pressing-slips, /api/export-documents

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the stock service
  3. Serialize response
  4. Map errors to a status

ERROR HANDLING:
  Errors are returned as JSON {error, details}:
  - 400: Validation errors, invalid input
  - 404: Document not found
  - 409: Invalid status transition, slip already exported
  - 502: Remote backend rejected the change; local state was reverted
  - 500: Internal errors (persistence)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/report"
	"github.com/tidewater/stock-ledger/stock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Stock  *stock.Service
	Logger *zap.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *stock.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Stock: svc, Logger: logger.Named("api")}
}

// =============================================================================
// VIEW HANDLERS
// =============================================================================

// GetSiteBalance returns the balance of one (site, material) pair.
func (h *Handler) GetSiteBalance(w http.ResponseWriter, r *http.Request) {
	scope := scopeParam(r)
	asOf, err := dateQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	dto := BalanceDTO{
		SiteID:         scope.SiteID,
		MaterialTypeID: scope.MaterialTypeID,
		Balance:        toQuantityDTO(h.Stock.SiteBalance(scope, asOf)),
	}
	if asOf != nil {
		dto.AsOf = asOf.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetSiteHistory returns the pair's movements with running balances.
func (h *Handler) GetSiteHistory(w http.ResponseWriter, r *http.Request) {
	opts, err := historyOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid history options", err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryDTOs(h.Stock.SiteHistory(scopeParam(r), opts)))
}

// GetStockSummary returns every pair with stock.
func (h *Handler) GetStockSummary(w http.ResponseWriter, r *http.Request) {
	f, err := summaryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	rows := h.Stock.SiteSummary(f)
	dtos := make([]SummaryRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = SummaryRowDTO{
			SiteID:         row.Scope.SiteID,
			MaterialTypeID: row.Scope.MaterialTypeID,
			Balance:        toQuantityDTO(row.Balance),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStoreStatus lists what the local store holds, key by key.
func (h *Handler) GetStoreStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Stock.StoreStatus(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreCollectionDTOs(rows))
}

// GetWarehouseSummary returns one row per (material, grade) with stock.
func (h *Handler) GetWarehouseSummary(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	rows := h.Stock.WarehouseSummary(asOf)
	dtos := make([]WarehouseRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = WarehouseRowDTO{
			MaterialTypeID: row.MaterialTypeID,
			Grade:          row.Grade,
			Balance:        toQuantityDTO(row.Balance),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWarehouseHistory returns one grade's movements. The material "all"
// covers every material.
func (h *Handler) GetWarehouseHistory(w http.ResponseWriter, r *http.Request) {
	grade := stock.Grade(chi.URLParam(r, "grade"))
	if !grade.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown grade", fmt.Errorf("grade %q", grade))
		return
	}
	opts, err := historyOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid history options", err)
		return
	}
	material := ledger.MaterialTypeID(chi.URLParam(r, "material"))
	if material == "all" {
		material = ""
	}
	writeJSON(w, http.StatusOK, toHistoryDTOs(h.Stock.WarehouseHistory(material, grade, opts)))
}

// ExportHistory streams histories as CSV or as an XLSX workbook.
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	f, err := summaryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	opts, err := historyOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid history options", err)
		return
	}
	formatter, err := report.ParseFormatter(r.URL.Query().Get("lang"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lang", err)
		return
	}

	histories := h.Stock.SiteHistories(f, opts)
	filename := "stock_movements_" + h.Stock.Today().String()

	switch format := chi.URLParam(r, "format"); format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
		if err := report.WriteHistoryCSV(w, histories, formatter); err != nil {
			h.Logger.Error("write csv", zap.Error(err))
		}
	case "xlsx":
		book := report.Book{Site: histories, Warehouse: h.gradeHistories(f.MaterialTypeID, opts)}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
		if err := report.WriteHistoryXLSX(w, book, formatter); err != nil {
			h.Logger.Error("write xlsx", zap.Error(err))
		}
	default:
		writeError(w, http.StatusBadRequest, "Unknown export format", fmt.Errorf("format %q", format))
	}
}

func (h *Handler) gradeHistories(material ledger.MaterialTypeID, opts ledger.HistoryOptions) []report.GradeHistory {
	var materials []ledger.MaterialTypeID
	for _, m := range h.Stock.WarehouseMovements() {
		if (material == "" || m.MaterialTypeID == material) && !slices.Contains(materials, m.MaterialTypeID) {
			materials = append(materials, m.MaterialTypeID)
		}
	}
	slices.Sort(materials)

	var out []report.GradeHistory
	for _, m := range materials {
		for _, g := range []stock.Grade{stock.GradeBulk, stock.GradePressed} {
			entries := h.Stock.WarehouseHistory(m, g, opts)
			if len(entries) > 0 {
				out = append(out, report.GradeHistory{MaterialTypeID: m, Grade: g, Entries: entries})
			}
		}
	}
	return out
}

// =============================================================================
// MANUAL MOVEMENT HANDLERS
// =============================================================================

func (h *Handler) RecordInitialStock(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Stock.RecordInitialStock(r.Context(), req.entry())
	h.respond(w, r, http.StatusCreated, m, err)
}

func (h *Handler) RecordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Stock.RecordAdjustment(r.Context(), req.entry(), req.Direction)
	h.respond(w, r, http.StatusCreated, m, err)
}

func (h *Handler) RecordInitialPressedStock(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Stock.RecordInitialPressedStock(r.Context(), req.entry())
	h.respond(w, r, http.StatusCreated, m, err)
}

func (h *Handler) RecordPressedAdjustment(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Stock.RecordPressedAdjustment(r.Context(), req.entry(), req.Direction)
	h.respond(w, r, http.StatusCreated, m, err)
}

func (h *Handler) RecordBaggingTransfer(w http.ResponseWriter, r *http.Request) {
	var req BaggingTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Stock.RecordBaggingTransfer(r.Context(), stock.BaggingTransfer{
		ManualEntry: req.entry(),
		CycleID:     req.CycleID,
	})
	h.respond(w, r, http.StatusCreated, m, err)
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Stock.Deliveries())
}

func (h *Handler) RecordDelivery(w http.ResponseWriter, r *http.Request) {
	var d stock.FarmerDelivery
	if !decodeJSON(w, r, &d) {
		return
	}
	saved, err := h.Stock.RecordDelivery(r.Context(), d)
	h.respond(w, r, http.StatusCreated, saved, err)
}

func (h *Handler) DeleteDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.respondDeleted(w, r, id, h.Stock.DeleteDelivery(r.Context(), id))
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Stock.Transfers())
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Stock.Transfer(chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var t stock.SiteTransfer
	if !decodeJSON(w, r, &t) {
		return
	}
	saved, err := h.Stock.CreateTransfer(r.Context(), t)
	h.respond(w, r, http.StatusCreated, saved, err)
}

// AdvanceTransfer applies a status transition.
func (h *Handler) AdvanceTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.Stock.AdvanceTransfer(r.Context(), chi.URLParam(r, "id"), stock.TransitionInput{
		Status:         req.Status,
		CompletionDate: req.CompletionDate,
		ReceivedWeight: req.ReceivedWeight,
		ReceivedBags:   req.ReceivedBags,
		Notes:          req.Notes,
	})
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *Handler) ListPressingSlips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Stock.PressingSlips())
}

func (h *Handler) CreatePressingSlip(w http.ResponseWriter, r *http.Request) {
	var p stock.PressingSlip
	if !decodeJSON(w, r, &p) {
		return
	}
	saved, err := h.Stock.CreatePressingSlip(r.Context(), p)
	h.respond(w, r, http.StatusCreated, saved, err)
}

func (h *Handler) UpdatePressingSlip(w http.ResponseWriter, r *http.Request) {
	var p stock.PressingSlip
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	saved, err := h.Stock.UpdatePressingSlip(r.Context(), p)
	h.respond(w, r, http.StatusOK, saved, err)
}

func (h *Handler) DeletePressingSlip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.respondDeleted(w, r, id, h.Stock.DeletePressingSlip(r.Context(), id))
}

// RecordReturn sends stock from the pressing warehouse back to a site.
func (h *Handler) RecordReturn(w http.ResponseWriter, r *http.Request) {
	var req ReturnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.Stock.RecordReturnFromPressing(r.Context(), stock.ReturnFromPressing{
		Date:           req.Date,
		SiteID:         req.SiteID,
		MaterialTypeID: req.MaterialTypeID,
		Weight:         req.Weight,
		Bags:           req.Bags,
		PressingSlipID: chi.URLParam(r, "id"),
		Designation:    req.Designation,
	})
	h.respond(w, r, http.StatusCreated, map[string]string{"status": "recorded"}, err)
}

func (h *Handler) ListExportDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Stock.ExportDocuments())
}

func (h *Handler) CreateExportDocument(w http.ResponseWriter, r *http.Request) {
	var d stock.ExportDocument
	if !decodeJSON(w, r, &d) {
		return
	}
	saved, err := h.Stock.CreateExport(r.Context(), d)
	h.respond(w, r, http.StatusCreated, saved, err)
}

func (h *Handler) UpdateExportDocument(w http.ResponseWriter, r *http.Request) {
	var d stock.ExportDocument
	if !decodeJSON(w, r, &d) {
		return
	}
	d.ID = chi.URLParam(r, "id")
	saved, err := h.Stock.UpdateExport(r.Context(), d)
	h.respond(w, r, http.StatusOK, saved, err)
}

func (h *Handler) DeleteExportDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.respondDeleted(w, r, id, h.Stock.DeleteExport(r.Context(), id))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, stock.ErrNotFound):
		return http.StatusNotFound
	case stock.IsConflict(err):
		return http.StatusConflict
	case stock.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, stock.ErrRemoteSync):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var statusMessages = map[int]string{
	http.StatusNotFound:            "Not found",
	http.StatusConflict:            "Conflict",
	http.StatusBadRequest:          "Invalid request",
	http.StatusBadGateway:          "Remote sync failed, change reverted",
	http.StatusInternalServerError: "Internal error",
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, statusMessages[status], err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, data)
}

func (h *Handler) respondDeleted(w http.ResponseWriter, r *http.Request, id string, err error) {
	h.respond(w, r, http.StatusOK, map[string]string{"status": "deleted", "id": id}, err)
}

// decodeJSON writes a 400 and returns false when the body is not valid.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func scopeParam(r *http.Request) ledger.Scope {
	return ledger.Scope{
		SiteID:         ledger.SiteID(chi.URLParam(r, "site")),
		MaterialTypeID: ledger.MaterialTypeID(chi.URLParam(r, "material")),
	}
}

// dateQuery reads an optional date from the query string.
func dateQuery(r *http.Request, key string) (*ledger.Date, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d, nil
}

func summaryFilter(r *http.Request) (stock.SummaryFilter, error) {
	asOf, err := dateQuery(r, "as_of")
	if err != nil {
		return stock.SummaryFilter{}, err
	}
	q := r.URL.Query()
	return stock.SummaryFilter{
		SiteID:         ledger.SiteID(q.Get("site")),
		MaterialTypeID: ledger.MaterialTypeID(q.Get("material")),
		AsOf:           asOf,
	}, nil
}

func historyOptions(r *http.Request) (ledger.HistoryOptions, error) {
	var opts ledger.HistoryOptions
	var err error
	if opts.Range.From, err = dateQuery(r, "from"); err != nil {
		return opts, err
	}
	if opts.Range.To, err = dateQuery(r, "to"); err != nil {
		return opts, err
	}

	q := r.URL.Query()
	if sort := ledger.SortKey(q.Get("sort")); sort != "" {
		if !sort.Valid() {
			return opts, fmt.Errorf("unknown sort key %q", sort)
		}
		opts.SortBy = sort
	}
	switch dir := strings.ToLower(q.Get("dir")); dir {
	case "", "asc":
	case "desc":
		opts.Descending = true
	default:
		return opts, fmt.Errorf("unknown sort direction %q", dir)
	}
	if opts.Descending && opts.SortBy == "" {
		opts.SortBy = ledger.SortByDate
	}
	return opts, nil
}
