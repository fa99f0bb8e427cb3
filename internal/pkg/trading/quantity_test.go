package trading

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lot(step, minQty string) LotSize {
	return LotSize{StepSize: d(step), MinQty: d(minQty)}
}

func TestComputeQuantityScenarios(t *testing.T) {
	cases := []struct {
		name     string
		notional string
		price    string
		lot      LotSize
		want     string
	}{
		{"exact multiple", "100", "50000", lot("0.000001", "0.0001"), "0.002"},
		{"exactly min qty", "5", "50000", lot("0.0001", "0.0001"), "0.0001"},
		{"below min qty", "1", "50000", lot("0.0001", "0.001"), "0"},
		{"floors partial step", "100", "30000", lot("0.001", "0.001"), "0.003"},
		{"zero price", "100", "0", lot("0.001", "0.001"), "0"},
		{"negative price", "100", "-1", lot("0.001", "0.001"), "0"},
		{"zero notional", "0", "100", lot("0.001", "0.001"), "0"},
		{"high precision asset", "10", "0.00001234", lot("1", "1"), "810372"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeQuantity(d(tc.notional), d(tc.price), tc.lot)
			assert.Truef(t, d(tc.want).Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestComputeQuantityNeverExceedsNotional(t *testing.T) {
	lots := []LotSize{lot("0.000001", "0.000001"), lot("0.001", "0.001"), lot("0.1", "0.1"), lot("1", "1")}
	notionals := []string{"0.5", "1", "7.77", "10", "123.456789", "99999.99"}
	prices := []string{"0.0001", "0.37", "3", "1999.99", "64321.5"}
	for _, l := range lots {
		for _, n := range notionals {
			for _, p := range prices {
				qty := ComputeQuantity(d(n), d(p), l)
				if qty.IsZero() {
					continue
				}
				assert.True(t, qty.Mul(d(p)).LessThanOrEqual(d(n)), "cost exceeds notional: %s*%s > %s", qty, p, n)
				assert.True(t, qty.Mod(l.StepSize).IsZero(), "%s not a multiple of %s", qty, l.StepSize)
				assert.True(t, qty.GreaterThanOrEqual(l.MinQty))
			}
		}
	}
}

func TestComputeQuantityMinimumIsExactZero(t *testing.T) {
	got := ComputeQuantity(d("9.99"), d("1000"), lot("0.001", "0.01"))
	assert.True(t, got.IsZero())
}

func TestFloorToStep(t *testing.T) {
	assert.True(t, d("0.00012").Equal(FloorToStep(d("0.000129"), d("0.00001"))))
	assert.True(t, FloorToStep(d("0.5"), d("1")).IsZero())
	assert.True(t, FloorToStep(d("-1"), d("1")).IsZero())
}

func TestApplyReserve(t *testing.T) {
	assert.True(t, d("99.95").Equal(ApplyReserve(d("100"), d("0.9995"))))
	assert.True(t, ApplyReserve(d("0"), d("0.9995")).IsZero())
}

func TestLotSizeValidate(t *testing.T) {
	require.NoError(t, lot("0.001", "0.001").Validate())
	assert.ErrorIs(t, lot("0", "0.001").Validate(), ErrInvalidLotSize)
	assert.ErrorIs(t, lot("0.01", "0.001").Validate(), ErrInvalidLotSize)

	normalized := lot("0.01", "0").Normalize()
	require.NoError(t, normalized.Validate())
	assert.True(t, d("0.01").Equal(normalized.MinQty))
}
