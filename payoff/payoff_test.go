package payoff

import (
	"testing"

	"github.com/banachtech/quant-toolkit/pricing"
	"github.com/stretchr/testify/require"
)

func TestVanillaPayout(t *testing.T) {
	type testCases struct {
		name   string
		payoff Payoff
		path   []float64
		want   float64
	}

	for _, test := range []testCases{
		{name: "CALL_ITM", payoff: Vanilla{Strike: 100, Style: pricing.Call}, path: []float64{100, 95, 112}, want: 12},
		{name: "CALL_OTM", payoff: Vanilla{Strike: 100, Style: pricing.Call}, path: []float64{100, 120, 90}, want: 0},
		{name: "PUT_ITM", payoff: Vanilla{Strike: 100, Style: pricing.Put}, path: []float64{100, 120, 90}, want: 10},
		{name: "PUT_OTM", payoff: Vanilla{Strike: 100, Style: pricing.Put}, path: []float64{100, 101}, want: 0},
		{name: "EMPTY_PATH", payoff: Vanilla{Strike: 100, Style: pricing.Put}, path: nil, want: 0},
		{name: "TERMINAL", payoff: Terminal{}, path: []float64{100, 120, 90}, want: 90},
	} {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, test.payoff.Payout(test.path))
		})
	}
}

func TestFromContract(t *testing.T) {
	c := pricing.Contract{Spot: 100, Strike: 95, Style: pricing.Put}
	v := FromContract(c)
	require.Equal(t, 95.0, v.Strike)
	require.Equal(t, 5.0, v.Payout([]float64{90}))
}
