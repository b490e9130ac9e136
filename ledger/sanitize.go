/*
sanitize.go - Lenient numeric coercion at the movement boundary

PURPOSE:
  Movement quantities come from forms, from the remote backend and from
  collections persisted long before the current schema. Missing or
  malformed numbers must never make a movement unreadable: they count as
  zero. This file is the ONLY place where that coercion happens, so the
  reducer in balance.go can assume well-formed input.

COERCION RULES:
  nil, bool, "", non-numeric strings   -> 0
  NaN, +Inf, -Inf                      -> 0
  negative values                      -> 0 (quantities are one-sided)
  numeric strings ("12.5")             -> parsed
  fractional counts                    -> truncated toward zero
  counts beyond int64                  -> 0

WIRE FORMAT:
  Movements are stored flat, one JSON object per movement:

  {"id":"sm-...","date":"2024-01-05","siteId":"s1","materialTypeId":"m1",
   "kind":"SITE_TRANSFER_OUT","designation":"...","relatedId":"st-...",
   "inWeight":0,"inCount":0,"outWeight":300,"outCount":6}
*/
package ledger

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// SanitizeWeight coerces any decoded JSON value to a non-negative weight.
func SanitizeWeight(v any) decimal.Decimal {
	d, ok := toDecimal(v)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

var maxCount = decimal.NewFromInt(math.MaxInt64)

// SanitizeCount coerces any decoded JSON value to a non-negative count.
func SanitizeCount(v any) int64 {
	d, ok := toDecimal(v)
	if !ok || d.IsNegative() || d.GreaterThan(maxCount) {
		return 0
	}
	return d.IntPart()
}

// SanitizeQuantity builds a Quantity from two untrusted values.
func SanitizeQuantity(weight, count any) Quantity {
	return Quantity{Weight: SanitizeWeight(weight), Count: SanitizeCount(count)}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	default:
		return decimal.Zero, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// =============================================================================
// JSON - Flat wire format with lenient decoding
// =============================================================================

type movementWire[K Kind] struct {
	ID             MovementID     `json:"id"`
	Date           string         `json:"date"`
	SiteID         SiteID         `json:"siteId"`
	MaterialTypeID MaterialTypeID `json:"materialTypeId"`
	Kind           K              `json:"kind"`
	Designation    string         `json:"designation"`
	RelatedID      string         `json:"relatedId,omitempty"`
	InWeight       any            `json:"inWeight"`
	InCount        any            `json:"inCount"`
	OutWeight      any            `json:"outWeight"`
	OutCount       any            `json:"outCount"`
}

func (m Movement[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.wire())
}

func (m Movement[K]) wire() movementWire[K] {
	return movementWire[K]{
		ID:             m.ID,
		Date:           m.Date.String(),
		SiteID:         m.SiteID,
		MaterialTypeID: m.MaterialTypeID,
		Kind:           m.Kind,
		Designation:    m.Designation,
		RelatedID:      m.RelatedID,
		InWeight:       json.Number(m.In.Weight.String()),
		InCount:        m.In.Count,
		OutWeight:      json.Number(m.Out.Weight.String()),
		OutCount:       m.Out.Count,
	}
}

// UnmarshalJSON never fails on quantities; an unparseable date decodes as
// the zero Date, which sorts before every real date.
func (m *Movement[K]) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var w movementWire[K]
	if err := dec.Decode(&w); err != nil {
		return err
	}
	var date Date
	if w.Date != "" {
		if parsed, err := ParseDate(w.Date); err == nil {
			date = parsed
		}
	}
	*m = Movement[K]{
		ID:             w.ID,
		Date:           date,
		SiteID:         w.SiteID,
		MaterialTypeID: w.MaterialTypeID,
		Kind:           w.Kind,
		Designation:    w.Designation,
		RelatedID:      w.RelatedID,
		In:             SanitizeQuantity(w.InWeight, w.InCount),
		Out:            SanitizeQuantity(w.OutWeight, w.OutCount),
	}
	return nil
}

// An Entry travels as its movement's flat record plus the running balance.
// Without these methods Movement's codec would be promoted and the balance
// silently dropped.
type entryWire[K Kind] struct {
	movementWire[K]
	BalanceWeight json.Number `json:"balanceWeight"`
	BalanceCount  int64       `json:"balanceCount"`
}

func (e Entry[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryWire[K]{
		movementWire:  e.Movement.wire(),
		BalanceWeight: json.Number(e.Balance.Weight.String()),
		BalanceCount:  e.Balance.Count,
	})
}

// UnmarshalJSON decodes the balance leniently. Unlike quantities a balance
// may be negative, so only unusable values fall back to zero.
func (e *Entry[K]) UnmarshalJSON(b []byte) error {
	if err := e.Movement.UnmarshalJSON(b); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var w struct {
		BalanceWeight any `json:"balanceWeight"`
		BalanceCount  any `json:"balanceCount"`
	}
	if err := dec.Decode(&w); err != nil {
		return err
	}
	weight, _ := toDecimal(w.BalanceWeight)
	count, _ := toDecimal(w.BalanceCount)
	if count.Abs().GreaterThan(maxCount) {
		count = decimal.Zero
	}
	e.Balance = Quantity{Weight: weight, Count: count.IntPart()}
	return nil
}

// =============================================================================
// DOCUMENT FIELDS - Lenient scalar types for business documents
// =============================================================================

// Weight is a kilogram amount on a business document. It decodes with the
// same rules as movement weights and encodes as a bare JSON number.
type Weight struct {
	decimal.Decimal
}

func WeightOf(kg float64) Weight { return Weight{SanitizeWeight(kg)} }

func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.Decimal.String()), nil
}

func (w *Weight) UnmarshalJSON(b []byte) error {
	w.Decimal = SanitizeWeight(decodeLenient(b))
	return nil
}

// Count is a bag or bale count on a business document.
type Count int64

func (c *Count) UnmarshalJSON(b []byte) error {
	*c = Count(SanitizeCount(decodeLenient(b)))
	return nil
}

// Quantity pairs a document weight with its count.
func QuantityOf(w Weight, c Count) Quantity {
	return Quantity{Weight: w.Decimal, Count: int64(c)}
}

func decodeLenient(b []byte) any {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
