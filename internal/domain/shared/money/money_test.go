package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := New(1250, " eur ")
	require.NoError(t, err)
	require.Equal(t, "EUR", m.Currency)

	_, err = New(1, "EURO")
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddRequiresSameCurrency(t *testing.T) {
	sum, err := Must(100, "EUR").Add(Must(250, "EUR"))
	require.NoError(t, err)
	require.Equal(t, int64(350), sum.Amount)

	_, err = Must(100, "EUR").Add(Must(100, "USD"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Money{Amount: 1}.Add(Must(1, "EUR"))
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount, pct, want int64
	}{
		{10000, 50, 5000},
		{999, 50, 500},
		{101, 10, 10},
		{105, 10, 11},
		{-105, 10, -11},
		{7350, 0, 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Must(tc.amount, "EUR").Percent(tc.pct).Amount, "amount=%d pct=%d", tc.amount, tc.pct)
	}
}

func TestDecimal(t *testing.T) {
	require.Equal(t, "718.00", Must(71800, "EUR").Decimal())
	require.Equal(t, "-0.05", Must(-5, "EUR").Decimal())
	require.Equal(t, "12.30 CZK", Must(1230, "czk").String())
}
