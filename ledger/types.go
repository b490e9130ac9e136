/*
Package ledger provides the stock movement model and the balance reducer.

PURPOSE:
  This package contains domain-agnostic types and algorithms for stock that
  is counted twice: by weight (kilograms) and by discrete units (bags or
  bales). Whether the stock sits on a farm site or in the pressing
  warehouse, the same reducer replays movements into running balances.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity: a (weight, count) pair
  - Movement: one dated, signed change of stock at a site for a material
  - Kind: the closed enumeration of movement causes, supplied per ledger
  - Scope: the (site, material) pair a running balance is defined over

DESIGN PRINCIPLES:
  1. Balances are never stored. They are replayed from movements.
  2. Precision: weights use decimal.Decimal, counts are integers.
  3. Leniency lives at the boundary: sanitize.go coerces bad numerics to
     zero when movements are built or decoded, the reducer trusts its input.
  4. Kinds are closed per ledger: on-site and warehouse ledgers use
     distinct Go types, so a warehouse kind cannot end up in a site log.

USAGE:
  m := ledger.Movement[stock.OnSiteKind]{
      ID:             "sm-01",
      Date:           ledger.MustParseDate("2024-01-01"),
      SiteID:         "site-north",
      MaterialTypeID: "cottonii",
      Kind:           stock.OnSiteInitialStock,
      In:             ledger.NewQuantity(1000, 20),
  }
  balance := ledger.Balance([]ledger.Movement[stock.OnSiteKind]{m})

SEE ALSO:
  - balance.go: reducer and views
  - log.go: in-memory movement log
  - sanitize.go: numeric coercion
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY - Weight and unit count moved together
// =============================================================================

type Quantity struct {
	Weight decimal.Decimal `json:"weight"`
	Count  int64           `json:"count"`
}

func NewQuantity(weightKg float64, count int64) Quantity {
	return Quantity{Weight: decimal.NewFromFloat(weightKg), Count: count}
}

func ZeroQuantity() Quantity { return Quantity{Weight: decimal.Zero} }

func (q Quantity) Add(o Quantity) Quantity { return Quantity{Weight: q.Weight.Add(o.Weight), Count: q.Count + o.Count} }
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{Weight: q.Weight.Sub(o.Weight), Count: q.Count - o.Count} }
func (q Quantity) Neg() Quantity { return Quantity{Weight: q.Weight.Neg(), Count: -q.Count} }
func (q Quantity) IsZero() bool { return q.Weight.IsZero() && q.Count == 0 }

// Equal compares numerically, so 5 and 5.0 are equal.
func (q Quantity) Equal(o Quantity) bool {
	return q.Weight.Equal(o.Weight) && q.Count == o.Count
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MovementID string
type SiteID string
type MaterialTypeID string

// Scope is the pair a running balance is defined over.
type Scope struct {
	SiteID         SiteID
	MaterialTypeID MaterialTypeID
}

func (s Scope) String() string { return string(s.SiteID) + "|" + string(s.MaterialTypeID) }

// Kind is the constraint every movement-cause enumeration satisfies.
//
// Each ledger declares its own string type:
//
//	type OnSiteKind string
//	func (k OnSiteKind) Valid() bool { ... }
type Kind interface {
	~string
	Valid() bool
}

// =============================================================================
// MOVEMENT - One signed change of stock
// =============================================================================

// Movement is immutable once appended. It is created by a mutation entry
// point and only ever removed together with the business object named by
// RelatedID.
type Movement[K Kind] struct {
	ID             MovementID     `json:"id"`
	Date           Date           `json:"date"`
	SiteID         SiteID         `json:"siteId"`
	MaterialTypeID MaterialTypeID `json:"materialTypeId"`
	Kind           K              `json:"kind"`
	In             Quantity       `json:"-"`
	Out            Quantity       `json:"-"`
	RelatedID      string         `json:"relatedId,omitempty"`
	Designation    string         `json:"designation"`
}

// Net is the signed contribution of the movement to its scope's balance.
func (m Movement[K]) Net() Quantity { return m.In.Sub(m.Out) }

func (m Movement[K]) Scope() Scope {
	return Scope{SiteID: m.SiteID, MaterialTypeID: m.MaterialTypeID}
}

// Entry is a movement annotated with the balance right after it was applied.
type Entry[K Kind] struct {
	Movement[K]
	Balance Quantity
}
