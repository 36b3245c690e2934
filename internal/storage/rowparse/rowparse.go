// Package rowparse converts persisted NAV, benchmark and cash-flow columns
// into the canonical model types. It is the only place that knows how the
// stores encode values, so the analytics layer never guesses at field shapes.
package rowparse

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/navboard/internal/models"
)

// Date parses a stored calendar date. Accepts "2006-01-02" and RFC 3339
// timestamps; the result is the UTC calendar date.
func Date(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// Decimal parses a stored numeric column of any supported encoding.
func Decimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("missing value")
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(v)))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("non-finite value")
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return Decimal(float64(v))
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		return decimal.NewFromString(strings.TrimSpace(fmt.Sprint(v)))
	}
}

// Value parses a NAV or benchmark column. Values that cannot be parsed come
// back as NaN with the parse error, so callers can keep the row as malformed.
func Value(raw any) (float64, error) {
	d, err := Decimal(raw)
	if err != nil {
		return math.NaN(), err
	}
	return d.InexactFloat64(), nil
}
