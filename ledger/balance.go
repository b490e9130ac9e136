/*
balance.go - Balance reducer and stock views

PURPOSE:
  Computes running balances from movements. This is the single place that
  answers "how much is in stock here?", for the current day, for any past
  day, and movement by movement.

CANONICAL ORDER:
  Movements are replayed by (date ascending, id ascending). The id only
  breaks ties between same-day movements; ids are time-ordered, so ties
  fall back to insertion order.

  Insertion order is NOT chronological order. A back-dated adjustment is
  replayed between the movements around its date:

    append 2024-01-01 +1000kg/20   -> 1000/20
    append 2024-01-05  -300kg/6    ->  700/14
    append 2024-01-03   +50kg/1    -> replay: 1000/20, 1050/21, 750/15

DISPLAY ORDER:
  History computes balances once in canonical order, THEN filters and
  re-sorts the annotated entries for presentation. A balance column sorted
  by designation still shows the balance each movement produced in
  canonical order.

SEE ALSO:
  - log.go: where movements live
  - stock/views.go: site and warehouse projections built on these
*/
package ledger

import (
	"cmp"
	"slices"
	"strings"
)

// =============================================================================
// REDUCER
// =============================================================================

// CompareCanonical orders movements by (date, id).
func CompareCanonical[K Kind](a, b Movement[K]) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortCanonical returns a sorted copy; the input is left untouched.
func SortCanonical[K Kind](ms []Movement[K]) []Movement[K] {
	sorted := slices.Clone(ms)
	slices.SortStableFunc(sorted, CompareCanonical[K])
	return sorted
}

// Replay annotates every movement with the balance right after it.
// The input may be in any order and should belong to a single Scope.
func Replay[K Kind](ms []Movement[K]) []Entry[K] {
	sorted := SortCanonical(ms)
	entries := make([]Entry[K], len(sorted))
	balance := ZeroQuantity()
	for i, m := range sorted {
		balance = balance.Add(m.Net())
		entries[i] = Entry[K]{Movement: m, Balance: balance}
	}
	return entries
}

// Balance is the balance after the last movement, or zero for an empty log.
// Summation is order-independent, so no sort is needed.
func Balance[K Kind](ms []Movement[K]) Quantity {
	balance := ZeroQuantity()
	for _, m := range ms {
		balance = balance.Add(m.Net())
	}
	return balance
}

// BalanceAsOf only counts movements dated on or before asOf.
func BalanceAsOf[K Kind](ms []Movement[K], asOf Date) Quantity {
	balance := ZeroQuantity()
	for _, m := range ms {
		if m.Date.After(asOf) {
			continue
		}
		balance = balance.Add(m.Net())
	}
	return balance
}

// =============================================================================
// HISTORY - Annotated entries in display order
// =============================================================================

type SortKey string

const (
	SortByDate          SortKey = "date"
	SortByKind          SortKey = "kind"
	SortByDesignation   SortKey = "designation"
	SortByInWeight      SortKey = "inWeight"
	SortByInCount       SortKey = "inCount"
	SortByOutWeight     SortKey = "outWeight"
	SortByOutCount      SortKey = "outCount"
	SortByBalanceWeight SortKey = "balanceWeight"
	SortByBalanceCount  SortKey = "balanceCount"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByDate, SortByKind, SortByDesignation, SortByInWeight, SortByInCount,
		SortByOutWeight, SortByOutCount, SortByBalanceWeight, SortByBalanceCount:
		return true
	}
	return false
}

type HistoryOptions struct {
	Range      DateRange
	SortBy     SortKey // empty means canonical order
	Descending bool
}

// History replays all of ms, keeps the entries inside opts.Range and
// orders them for display. Movements before the range still contribute to
// the balances shown inside it.
func History[K Kind](ms []Movement[K], opts HistoryOptions) []Entry[K] {
	all := Replay(ms)
	entries := make([]Entry[K], 0, len(all))
	for _, e := range all {
		if opts.Range.Contains(e.Date) {
			entries = append(entries, e)
		}
	}
	if opts.SortBy != "" {
		SortEntries(entries, opts.SortBy, opts.Descending)
	}
	return entries
}

// SortEntries re-orders annotated entries in place. Ties on the chosen key
// fall back to date, then to canonical (date, id) order. Descending
// reverses the whole comparison, tie-breaks included, so a descending list
// is the exact mirror of the ascending one.
func SortEntries[K Kind](entries []Entry[K], key SortKey, descending bool) {
	slices.SortStableFunc(entries, func(a, b Entry[K]) int {
		c := compareByKey(a, b, key)
		if c == 0 {
			c = CompareCanonical(a.Movement, b.Movement)
		}
		if descending {
			return -c
		}
		return c
	})
}

func compareByKey[K Kind](a, b Entry[K], key SortKey) int {
	switch key {
	case SortByDate:
		return a.Date.Compare(b.Date)
	case SortByKind:
		return strings.Compare(string(a.Kind), string(b.Kind))
	case SortByDesignation:
		return strings.Compare(strings.ToLower(a.Designation), strings.ToLower(b.Designation))
	case SortByInWeight:
		return a.In.Weight.Cmp(b.In.Weight)
	case SortByInCount:
		return cmp.Compare(a.In.Count, b.In.Count)
	case SortByOutWeight:
		return a.Out.Weight.Cmp(b.Out.Weight)
	case SortByOutCount:
		return cmp.Compare(a.Out.Count, b.Out.Count)
	case SortByBalanceWeight:
		return a.Balance.Weight.Cmp(b.Balance.Weight)
	case SortByBalanceCount:
		return cmp.Compare(a.Balance.Count, b.Balance.Count)
	}
	return 0
}

// =============================================================================
// SCOPING
// =============================================================================

func Filter[K Kind](ms []Movement[K], scope Scope) []Movement[K] {
	var out []Movement[K]
	for _, m := range ms {
		if m.SiteID == scope.SiteID && m.MaterialTypeID == scope.MaterialTypeID {
			out = append(out, m)
		}
	}
	return out
}

// FilterFunc keeps the movements keep returns true for.
func FilterFunc[K Kind](ms []Movement[K], keep func(Movement[K]) bool) []Movement[K] {
	var out []Movement[K]
	for _, m := range ms {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func GroupByScope[K Kind](ms []Movement[K]) map[Scope][]Movement[K] {
	groups := make(map[Scope][]Movement[K])
	for _, m := range ms {
		groups[m.Scope()] = append(groups[m.Scope()], m)
	}
	return groups
}

// Scopes lists every scope present in ms, sorted by site then material.
func Scopes[K Kind](ms []Movement[K]) []Scope {
	seen := make(map[Scope]bool)
	var scopes []Scope
	for _, m := range ms {
		if !seen[m.Scope()] {
			seen[m.Scope()] = true
			scopes = append(scopes, m.Scope())
		}
	}
	slices.SortFunc(scopes, func(a, b Scope) int {
		if c := cmp.Compare(a.SiteID, b.SiteID); c != 0 {
			return c
		}
		return cmp.Compare(a.MaterialTypeID, b.MaterialTypeID)
	})
	return scopes
}
