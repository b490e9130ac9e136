/*
service.go - Mutation entry points and the commit protocol

PURPOSE:
  Service is the only way to change stock. Every entry point (record a
  delivery, complete a transfer, edit a pressing slip...) runs inside
  commit(), which makes the change visible locally at once and then
  confirms it with the remote backend.

COMMIT PROTOCOL:
  ┌──────────┐   ┌───────┐   ┌─────────┐   ┌──────────────┐   ┌───────┐
  │ snapshot │──▶│ apply │──▶│ persist │──▶│ push changes │──▶│ remap │
  └──────────┘   └───────┘   └─────────┘   └──────────────┘   └───────┘
                     │            │               │
                     ▼            ▼               ▼
                  restore      restore     undo pushed creates,
                                           restore, persist,
                                           return *SyncError

  1. The whole protocol runs under one write lock: mutations are applied
     and confirmed one at a time.
  2. A document and the movements it emits are applied in the same
     commit, so no reader ever sees one without the other.
  3. Records get provisional ids (prefix + UUIDv7). When the backend
     answers a create with its own id, every reference is rewritten.

ID PREFIXES:
  sm-  on-site movement       psm- warehouse movement
  fd-  farmer delivery        st-  site transfer
  ps-  pressing slip          ed-  export document
  ec-  export container

SEE ALSO:
  - state.go: collections, snapshot, remap
  - views.go: read side
*/
package stock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/remote"
	"github.com/tidewater/stock-ledger/store"
)

const (
	prefixSiteMovement      = "sm"
	prefixWarehouseMovement = "psm"
	prefixDelivery          = "fd"
	prefixTransfer          = "st"
	prefixSlip              = "ps"
	prefixExport            = "ed"
	prefixContainer         = "ec"
)

// NewUUIDv7 returns prefix-<uuidv7>. UUIDv7 is time-ordered, so ids issued
// later sort later.
func NewUUIDv7(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}

// Options wires a Service. Store is required; a nil Remote keeps the
// service local-only.
type Options struct {
	Store  store.Collections
	Remote remote.Remote
	Logger *zap.Logger
	Clock  func() time.Time
	NewID  func(prefix string) string
}

type Service struct {
	mu     sync.RWMutex
	state  *State
	store  store.Collections
	remote remote.Remote
	logger *zap.Logger
	clock  func() time.Time
	newID  func(prefix string) string
}

// NewService loads the persisted state and returns a ready service.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("stock: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewUUIDv7
	}

	state, err := LoadState(ctx, opts.Store)
	if err != nil {
		return nil, err
	}

	s := &Service{
		state:  state,
		store:  opts.Store,
		remote: opts.Remote,
		logger: opts.Logger.Named("stock"),
		clock:  opts.Clock,
		newID:  opts.NewID,
	}
	s.logger.Info("state loaded",
		zap.Int("site_movements", state.site.Len()),
		zap.Int("warehouse_movements", state.warehouse.Len()),
		zap.Int("deliveries", len(state.deliveries)),
		zap.Int("transfers", len(state.transfers)),
		zap.Int("pressing_slips", len(state.slips)),
		zap.Int("export_documents", len(state.exports)),
		zap.Bool("remote", opts.Remote != nil),
	)
	for _, key := range AllKeys {
		if skipped := state.skipped[key]; len(skipped) > 0 {
			s.logger.Warn("movements with unknown kinds skipped",
				zap.String("collection", key),
				zap.Strings("movements", skipped),
			)
		}
	}
	return s, nil
}

// Today is the service clock's calendar day.
func (s *Service) Today() ledger.Date { return ledger.DateOf(s.clock()) }

// =============================================================================
// TRANSACTION - Changes collected while a mutation is applied
// =============================================================================

type changeOp string

const (
	opCreate changeOp = "create"
	opUpdate changeOp = "update"
	opDelete changeOp = "delete"
)

type change struct {
	op         changeOp
	collection string
	id         string
}

type txn struct {
	state   *State
	svc     *Service
	now     time.Time
	today   ledger.Date
	touched map[string]bool
	changes []change
}

func (tx *txn) id(prefix string) string { return tx.svc.newID(prefix) }

// pending matches on collection too: backend ids only identify a record
// within its own collection.
func (tx *txn) pending(op changeOp, collection, id string) int {
	return slices.IndexFunc(tx.changes, func(c change) bool {
		return c.op == op && c.collection == collection && c.id == id
	})
}

func (tx *txn) created(collection, id string) {
	tx.touched[collection] = true
	tx.changes = append(tx.changes, change{opCreate, collection, id})
}

// updated records an update unless the record is already being created or
// updated in this transaction; the push always sends the latest version.
func (tx *txn) updated(collection, id string) {
	tx.touched[collection] = true
	if tx.pending(opCreate, collection, id) >= 0 || tx.pending(opUpdate, collection, id) >= 0 {
		return
	}
	tx.changes = append(tx.changes, change{opUpdate, collection, id})
}

func (tx *txn) deleted(collection, id string) {
	tx.touched[collection] = true
	if i := tx.pending(opCreate, collection, id); i >= 0 {
		tx.changes = slices.Delete(tx.changes, i, i+1)
		return
	}
	if i := tx.pending(opUpdate, collection, id); i >= 0 {
		tx.changes = slices.Delete(tx.changes, i, i+1)
	}
	tx.changes = append(tx.changes, change{opDelete, collection, id})
}

func (tx *txn) addSite(ms ...SiteMovement) error {
	if err := tx.state.site.AppendBatch(ms); err != nil {
		return err
	}
	for _, m := range ms {
		tx.created(KeySiteMovements, string(m.ID))
	}
	return nil
}

func (tx *txn) addWarehouse(ms ...WarehouseMovement) error {
	if err := tx.state.warehouse.AppendBatch(ms); err != nil {
		return err
	}
	for _, m := range ms {
		tx.created(KeyWarehouseMovements, string(m.ID))
	}
	return nil
}

func (tx *txn) retractSite(relatedID string, kinds ...OnSiteKind) {
	for _, m := range tx.state.site.RemoveRelated(relatedID, kinds...) {
		tx.deleted(KeySiteMovements, string(m.ID))
	}
}

func (tx *txn) retractWarehouse(relatedID string, kinds ...WarehouseKind) {
	for _, m := range tx.state.warehouse.RemoveRelated(relatedID, kinds...) {
		tx.deleted(KeyWarehouseMovements, string(m.ID))
	}
}

func (tx *txn) keys() []string {
	keys := make([]string, 0, len(tx.touched))
	for _, k := range AllKeys {
		if tx.touched[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// =============================================================================
// COMMIT
// =============================================================================

// remaps maps provisional ids to backend ids for one commit.
type remaps map[string]string

func (r remaps) resolve(id string) string {
	if to, ok := r[id]; ok {
		return to
	}
	return id
}

// commit runs fn under the write lock and drives the protocol described at
// the top of this file. fn must leave the state untouched when it returns
// an error; commit restores the snapshot anyway.
func (s *Service) commit(ctx context.Context, op string, fn func(tx *txn) error) (remaps, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	snap := s.state.snapshot()
	tx := &txn{
		state:   s.state,
		svc:     s,
		now:     now,
		today:   ledger.DateOf(now),
		touched: make(map[string]bool),
	}

	if err := fn(tx); err != nil {
		s.state.restore(snap)
		return nil, err
	}
	if len(tx.touched) == 0 {
		return nil, nil
	}

	keys := tx.keys()
	if err := s.state.Persist(ctx, s.store, keys...); err != nil {
		s.state.restore(snap)
		s.logger.Error("persist failed, mutation discarded", zap.String("op", op), zap.Error(err))
		return nil, err
	}

	ids, err := s.push(ctx, op, tx.changes, snap)
	if err != nil {
		s.state.restore(snap)
		if perr := s.state.Persist(context.WithoutCancel(ctx), s.store, keys...); perr != nil {
			s.logger.Error("persist after rollback failed", zap.String("op", op), zap.Error(perr))
		}
		s.logger.Warn("remote sync failed, local changes reverted", zap.String("op", op), zap.Error(err))
		return nil, err
	}

	if len(ids) > 0 {
		// The backend already holds the records: a failure here only delays
		// the local copy until the next write of these keys.
		if err := s.state.Persist(ctx, s.store, keys...); err != nil {
			s.logger.Error("persist after remap failed", zap.String("op", op), zap.Error(err))
		}
	}

	s.logger.Debug("committed",
		zap.String("op", op),
		zap.Strings("collections", keys),
		zap.Int("changes", len(tx.changes)),
		zap.Int("remapped", len(ids)),
	)
	return ids, nil
}

// push sends changes in order. On the first failure it undoes what was
// already pushed and returns a *SyncError.
func (s *Service) push(ctx context.Context, op string, changes []change, snap *State) (remaps, error) {
	if s.remote == nil || len(changes) == 0 {
		return nil, nil
	}

	ids := make(remaps)
	var done []change
	for _, ch := range changes {
		id := ids.resolve(ch.id)
		var err error
		switch ch.op {
		case opCreate:
			rec, ok := s.state.record(ch.collection, id)
			if !ok {
				continue
			}
			var remoteID string
			if remoteID, err = s.remote.Create(ctx, ch.collection, rec); err == nil {
				if remoteID != id {
					s.state.remap(id, remoteID)
					ids[ch.id] = remoteID
				}
				done = append(done, change{opCreate, ch.collection, remoteID})
			}
		case opUpdate:
			rec, ok := s.state.record(ch.collection, id)
			if !ok {
				continue
			}
			if err = s.remote.Update(ctx, ch.collection, id, rec); err == nil {
				done = append(done, change{opUpdate, ch.collection, id})
			}
		case opDelete:
			if err = s.remote.Delete(ctx, ch.collection, id); err == nil {
				done = append(done, change{opDelete, ch.collection, id})
			}
		}
		if err != nil {
			s.compensate(context.WithoutCancel(ctx), op, done, snap)
			return nil, &SyncError{Op: op, Collection: ch.collection, RecordID: id, Err: err}
		}
	}
	return ids, nil
}

// compensate is best effort: created records are deleted and updated ones
// are put back to their snapshot version. Deleted records cannot be
// recreated under the same id and are only logged.
func (s *Service) compensate(ctx context.Context, op string, done []change, snap *State) {
	for i := len(done) - 1; i >= 0; i-- {
		ch := done[i]
		var err error
		switch ch.op {
		case opCreate:
			err = s.remote.Delete(ctx, ch.collection, ch.id)
		case opUpdate:
			if rec, ok := snap.record(ch.collection, ch.id); ok {
				err = s.remote.Update(ctx, ch.collection, ch.id, rec)
			}
		case opDelete:
			err = errors.New("remote delete cannot be undone")
		}
		if err != nil {
			s.logger.Error("remote compensation failed",
				zap.String("op", op),
				zap.String("action", string(ch.op)),
				zap.String("collection", ch.collection),
				zap.String("id", ch.id),
				zap.Error(err),
			)
		}
	}
}

// Reset empties every collection in the local store. The remote backend
// is left as it is.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.state.restore(NewState())
	s.logger.Info("state reset")
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func requireScope(site ledger.SiteID, material ledger.MaterialTypeID) error {
	if site == "" {
		return invalid("site is required")
	}
	if material == "" {
		return invalid("material type is required")
	}
	return nil
}

func requireDate(d ledger.Date, field string) error {
	if d.IsZero() {
		return invalid("%s is required", field)
	}
	return nil
}
