// Package amount implements multi-asset amounts: maps from asset id to a
// signed quantity, with component-wise arithmetic and a partial order.
//
// A Map never stores zero entries. Every operation of this package returns a
// normalized map, so two maps holding the same quantities compare equal
// regardless of how they were built.
package amount

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// MaxMoney is the largest quantity of a single asset that MoneyRange
// accepts.
const MaxMoney = int64(btcutil.MaxSatoshi)

// ErrOverflow is returned by the checked operations when a component
// overflows int64.
var ErrOverflow = errors.New("amount overflow")

// AssetID identifies an asset.
type AssetID = chainhash.Hash

// Map holds a quantity per asset. Absent assets have quantity zero.
type Map map[AssetID]int64

// Ordering is the result of Compare.
type Ordering int

const (
	Incomparable Ordering = iota
	Less
	Equal
	Greater
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// New returns a map holding value of asset, or an empty map if value is
// zero.
func New(asset AssetID, value int64) Map {
	m := Map{}
	if value != 0 {
		m[asset] = value
	}
	return m
}

// Get returns the quantity of asset.
func (m Map) Get(asset AssetID) int64 {
	return m[asset]
}

// Clone returns a normalized copy of m.
func (m Map) Clone() Map {
	c := make(Map, len(m))
	for k, v := range m {
		if v != 0 {
			c[k] = v
		}
	}
	return c
}

// Normalize removes zero entries in place and returns m.
func (m Map) Normalize() Map {
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
	return m
}

// Add returns a + b. Components wrap around on overflow, use CheckedAdd to
// detect it.
func Add(a, b Map) Map {
	sum := a.Clone()
	for k, v := range b {
		sum[k] += v
	}
	return sum.Normalize()
}

// Sub returns a - b. Components wrap around on overflow, use CheckedSub to
// detect it.
func Sub(a, b Map) Map {
	diff := a.Clone()
	for k, v := range b {
		diff[k] -= v
	}
	return diff.Normalize()
}

// CheckedAdd returns a + b, or ErrOverflow if any component overflows.
func CheckedAdd(a, b Map) (Map, error) {
	sum := a.Clone()
	for k, v := range b {
		s, ok := addInt64(sum[k], v)
		if !ok {
			return nil, errors.Wrapf(ErrOverflow, "asset %s", k)
		}
		sum[k] = s
	}
	return sum.Normalize(), nil
}

// CheckedSub returns a - b, or ErrOverflow if any component overflows.
func CheckedSub(a, b Map) (Map, error) {
	diff := a.Clone()
	for k, v := range b {
		d, ok := subInt64(diff[k], v)
		if !ok {
			return nil, errors.Wrapf(ErrOverflow, "asset %s", k)
		}
		diff[k] = d
	}
	return diff.Normalize(), nil
}

// Compare returns the relation between a and b over the union of their
// assets. Maps where some asset is greater in a and another is greater in b
// are Incomparable.
func Compare(a, b Map) Ordering {
	less, greater := false, false
	visit := func(k AssetID) {
		av, bv := a[k], b[k]
		if av < bv {
			less = true
		} else if av > bv {
			greater = true
		}
	}
	for k := range a {
		visit(k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			visit(k)
		}
	}

	switch {
	case less && greater:
		return Incomparable
	case less:
		return Less
	case greater:
		return Greater
	default:
		return Equal
	}
}

// IsLess returns true if every component of a is at most the one of b and
// at least one is strictly smaller.
func IsLess(a, b Map) bool {
	return Compare(a, b) == Less
}

// IsLessEqual returns true if every component of a is at most the one of b.
func IsLessEqual(a, b Map) bool {
	o := Compare(a, b)
	return o == Less || o == Equal
}

// IsGreater returns true if every component of a is at least the one of b
// and at least one is strictly greater.
func IsGreater(a, b Map) bool {
	return Compare(a, b) == Greater
}

// IsGreaterEqual returns true if every component of a is at least the one of
// b.
func IsGreaterEqual(a, b Map) bool {
	o := Compare(a, b)
	return o == Greater || o == Equal
}

// IsEqual returns true if a and b hold the same quantity of every asset.
func IsEqual(a, b Map) bool {
	return Compare(a, b) == Equal
}

// IsNotEqual is the negation of IsEqual. Incomparable maps are not equal.
func IsNotEqual(a, b Map) bool {
	return !IsEqual(a, b)
}

// HasNegativeValue returns true if any asset has a negative quantity.
func (m Map) HasNegativeValue() bool {
	for _, v := range m {
		if v < 0 {
			return true
		}
	}
	return false
}

// HasNonPositiveValue returns true if any stored asset has a quantity that
// is zero or negative.
func (m Map) HasNonPositiveValue() bool {
	for _, v := range m {
		if v <= 0 {
			return true
		}
	}
	return false
}

// MoneyRange returns true if every quantity is within [0, MaxMoney].
func (m Map) MoneyRange() bool {
	for _, v := range m {
		if v < 0 || v > MaxMoney {
			return false
		}
	}
	return true
}

// String returns the entries sorted by asset id.
func (m Map) String() string {
	keys := make([]AssetID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return "{" + strings.Join(entries, ", ") + "}"
}

func addInt64(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) ||
		(b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func subInt64(a, b int64) (int64, bool) {
	if (b > 0 && a < math.MinInt64+b) ||
		(b < 0 && a > math.MaxInt64+b) {
		return 0, false
	}
	return a - b, true
}
