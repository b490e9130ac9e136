/*
log.go - In-memory movement log

PURPOSE:
  The Log is the source of truth for one ledger's movements during a
  session. Balances are always computed by replaying it; there is no
  separate "balance" field that can go stale.

WRITE OPERATIONS:
  1. Append / AppendBatch: the normal path. Batches are all-or-nothing,
     and a movement whose kind is not in the ledger's enumeration is
     rejected with ErrInvalidKind.
  2. RemoveRelated: cascading delete. When a business object (delivery,
     pressing slip, export document) is deleted or re-emitted, every
     movement it produced goes with it, so the log never holds half of a
     paired entry.
  3. Remap: a provisional id was replaced by the id the remote backend
     assigned. Updates movement ids and RelatedID back-references.

  Movements are never edited in place.

ORDERING:
  Movements are kept in canonical (date, id) order using a binary search
  insertion point, so Movements() and All() return replay-ready slices.

CONCURRENCY:
  Log is not safe for concurrent use. The owner (stock.State) serializes
  access.
*/
package ledger

import (
	"fmt"
	"slices"
)

type Log[K Kind] struct {
	movements []Movement[K]
	ids       map[MovementID]bool
}

// NewLog builds a log from loaded movements. Movements of unknown kinds are
// left out; callers that need to report them filter first.
func NewLog[K Kind](ms ...Movement[K]) *Log[K] {
	l := &Log[K]{ids: make(map[MovementID]bool)}
	for _, m := range ms {
		// Loaded data may carry duplicates from older versions; keep the first.
		if l.ids[m.ID] || !m.Kind.Valid() {
			continue
		}
		l.insert(m)
	}
	return l
}

func (l *Log[K]) Len() int { return len(l.movements) }

// Append adds one movement. Fails if the id already exists.
func (l *Log[K]) Append(m Movement[K]) error {
	return l.AppendBatch([]Movement[K]{m})
}

// AppendBatch adds movements atomically: all ids are checked before any
// movement is written.
func (l *Log[K]) AppendBatch(ms []Movement[K]) error {
	batch := make(map[MovementID]bool, len(ms))
	for _, m := range ms {
		if m.ID == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidMovement)
		}
		if !m.Kind.Valid() {
			return fmt.Errorf("%w: %q on %s", ErrInvalidKind, string(m.Kind), m.ID)
		}
		if l.ids[m.ID] || batch[m.ID] {
			return &DuplicateMovementError{ID: m.ID}
		}
		batch[m.ID] = true
	}
	for _, m := range ms {
		l.insert(m)
	}
	return nil
}

func (l *Log[K]) insert(m Movement[K]) {
	i, _ := slices.BinarySearchFunc(l.movements, m, CompareCanonical[K])
	l.movements = slices.Insert(l.movements, i, m)
	l.ids[m.ID] = true
}

// All returns a copy of every movement, in canonical order.
func (l *Log[K]) All() []Movement[K] {
	return slices.Clone(l.movements)
}

// Movements returns the scope's movements in canonical order.
func (l *Log[K]) Movements(scope Scope) []Movement[K] {
	return Filter(l.movements, scope)
}

// RemoveRelated deletes the movements produced by relatedID. When kinds is
// non-empty only movements of those kinds are removed. Returns what was
// removed.
func (l *Log[K]) RemoveRelated(relatedID string, kinds ...K) []Movement[K] {
	if relatedID == "" {
		return nil
	}
	var removed []Movement[K]
	kept := l.movements[:0:0]
	for _, m := range l.movements {
		if m.RelatedID == relatedID && (len(kinds) == 0 || slices.Contains(kinds, m.Kind)) {
			removed = append(removed, m)
			delete(l.ids, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	l.movements = kept
	return removed
}

// Remap replaces oldID wherever it appears as a movement id or a related id.
func (l *Log[K]) Remap(oldID, newID string) {
	if oldID == newID {
		return
	}
	changed := false
	for i := range l.movements {
		m := &l.movements[i]
		if string(m.ID) == oldID {
			delete(l.ids, m.ID)
			m.ID = MovementID(newID)
			l.ids[m.ID] = true
			changed = true
		}
		if m.RelatedID == oldID {
			m.RelatedID = newID
		}
	}
	if changed {
		slices.SortStableFunc(l.movements, CompareCanonical[K])
	}
}

// Clone returns an independent copy, used for snapshots.
func (l *Log[K]) Clone() *Log[K] {
	ids := make(map[MovementID]bool, len(l.ids))
	for k, v := range l.ids {
		ids[k] = v
	}
	return &Log[K]{movements: slices.Clone(l.movements), ids: ids}
}
