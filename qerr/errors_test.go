package qerr

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	v := fmt.Errorf("compute returns: %w", Validation("prices", "need at least 2 points"))
	d := Domain("sigma", "volatility must be positive")
	o := &OptimizationError{Objective: "min_variance", Iterations: 10, Reason: "step did not shrink"}

	require.True(t, IsValidation(v))
	require.False(t, IsDomain(v))
	require.True(t, IsDomain(d))
	require.True(t, IsOptimization(fmt.Errorf("optimize: %w", o)))
	require.Contains(t, v.Error(), "prices")
	require.Contains(t, o.Error(), "min_variance")
}

func TestChecks(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		ok   bool
	}{
		{name: "PROB_OK", err: Probability("c", 0.99), ok: true},
		{name: "PROB_ONE", err: Probability("c", 1), ok: false},
		{name: "PROB_ZERO", err: Probability("c", 0), ok: false},
		{name: "PROB_NAN", err: Probability("c", math.NaN()), ok: false},
		{name: "POS_OK", err: Positive("x", 1e-9), ok: true},
		{name: "POS_ZERO", err: Positive("x", 0), ok: false},
		{name: "POS_INF", err: Positive("x", math.Inf(1)), ok: false},
		{name: "POS_NAN", err: Positive("x", math.NaN()), ok: false},
		{name: "COUNT_OK", err: Count("n", 2, 2), ok: true},
		{name: "COUNT_LOW", err: Count("n", 1, 2), ok: false},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if test.ok {
				require.NoError(t, test.err)
				return
			}
			require.Error(t, test.err)
			require.True(t, IsValidation(test.err))
		})
	}
}
