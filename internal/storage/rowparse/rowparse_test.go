package rowparse

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	d, err := Date("2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), d)

	d, err = Date("2024-03-31T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = Date("31/03/2024")
	assert.Error(t, err)
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"string", " 1234.5600 ", "1234.56"},
		{"bytes", []byte("-42.1"), "-42.1"},
		{"float", 10.25, "10.25"},
		{"int64", int64(7), "7"},
		{"uint64", uint64(9), "9"},
		{"json number", json.Number("3.5"), "3.5"},
		{"decimal", decimal.RequireFromString("0.01"), "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decimal(tt.raw)
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.want)), "got %s", d)
		})
	}

	_, err := Decimal(nil)
	assert.Error(t, err)
	_, err = Decimal("n/a")
	assert.Error(t, err)
	_, err = Decimal(math.Inf(1))
	assert.Error(t, err)
}

func TestValue_MalformedIsNaN(t *testing.T) {
	v, err := Value("12.5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = Value("#REF!")
	assert.Error(t, err)
	assert.True(t, math.IsNaN(v))
}
