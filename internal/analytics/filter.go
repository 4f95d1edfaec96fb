package analytics

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/dcompulse/internal/models"
)

// AllBrands is the filter value that selects every row.
const AllBrands = "all"

// RowFilter selects snapshot rows. A nil RowFilter selects everything.
type RowFilter func(models.SnapshotRow) bool

// BrandFilter matches rows whose brand equals brand, ignoring case.
// User-supplied filter values are case-insensitive; internal grouping is not.
func BrandFilter(brand string) RowFilter {
	if brand == "" || strings.EqualFold(brand, AllBrands) {
		return nil
	}
	return func(r models.SnapshotRow) bool {
		return strings.EqualFold(r.Brand, brand)
	}
}

// ChannelEquals matches rows whose channel is exactly channel.
func ChannelEquals(channel string) RowFilter {
	return func(r models.SnapshotRow) bool {
		return r.Channel == channel
	}
}

func (f RowFilter) match(r models.SnapshotRow) bool {
	return f == nil || f(r)
}

// GroupField names the row attribute used as a grouping key.
type GroupField int

const (
	FieldBrand GroupField = iota
	FieldRetailer
	FieldChannel
)

func (f GroupField) String() string {
	switch f {
	case FieldBrand:
		return "brand"
	case FieldRetailer:
		return "retailer"
	case FieldChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Key extracts the grouping key from r.
func (f GroupField) Key(r models.SnapshotRow) string {
	switch f {
	case FieldRetailer:
		return r.Retailer
	case FieldChannel:
		return r.Channel
	default:
		return r.Brand
	}
}

// sumRows adds the NSV of every row matched by f.
func sumRows(rows []models.SnapshotRow, f RowFilter) float64 {
	total := decimal.Zero
	for _, r := range rows {
		if f.match(r) {
			total = total.Add(nsv(r))
		}
	}
	return total.InexactFloat64()
}

// groupSums totals NSV per key, preserving first-seen key order.
func groupSums(rows []models.SnapshotRow, field GroupField) ([]string, map[string]decimal.Decimal) {
	var order []string
	sums := make(map[string]decimal.Decimal)
	for _, r := range rows {
		key := field.Key(r)
		cur, seen := sums[key]
		if !seen {
			order = append(order, key)
		}
		sums[key] = cur.Add(nsv(r))
	}
	return order, sums
}

// nsv converts a row's value for exact summation. Non-finite values count as
// zero; decimal cannot represent them.
func nsv(r models.SnapshotRow) decimal.Decimal {
	if math.IsNaN(r.NSV) || math.IsInf(r.NSV, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(r.NSV)
}
