package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNaira(t *testing.T) {
	tests := []struct {
		name  string
		major string
		kobo  int64
	}{
		{"whole amount", "5000", 500000},
		{"two decimals", "12.34", 1234},
		{"rounds half up", "0.125", 13},
		{"rounds down", "0.124", 12},
		{"zero", "0", 0},
		{"negative", "-12.34", -1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.major)
			require.NoError(t, err)
			assert.Equal(t, tt.kobo, FromNaira(d).Kobo())
		})
	}
}

func TestParse(t *testing.T) {
	m, err := Parse("5000.50")
	require.NoError(t, err)
	assert.Equal(t, int64(500050), m.Kobo())

	_, err = Parse("not-a-number")
	assert.Error(t, err)
}

func TestNairaRoundTrip(t *testing.T) {
	m := FromKobo(500000)
	assert.True(t, m.Naira().Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "5000.00", m.String())
}

func TestArithmetic(t *testing.T) {
	a := FromKobo(100)
	b := FromKobo(250)

	assert.Equal(t, int64(350), a.Add(b).Kobo())
	assert.Equal(t, int64(-150), a.Sub(b).Kobo())
	assert.Equal(t, int64(-100), a.Neg().Kobo())
	assert.True(t, a.LessThan(b))
	assert.False(t, b.LessThan(a))
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
	assert.True(t, FromKobo(0).IsZero())
}
