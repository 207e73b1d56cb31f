package audit_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/audit"
)

func TestTally(t *testing.T) {
	tl := audit.NewTally()
	for _, v := range []string{"b", "a", "b", "c", "b"} {
		tl.Add(v)
	}
	require.Equal(t, 5, tl.Total())
	require.Equal(t, 3, tl.Count("b"))
	require.InDelta(t, 0.6, tl.Share("b"), 1e-12)
	require.Equal(t, []string{"b", "a", "c"}, tl.Values(), "first-seen order")
	require.Zero(t, audit.NewTally().Share("x"))
}

func TestShares(t *testing.T) {
	got := audit.Shares(map[string]uint64{"a": 1000, "b": 3000, "z": 0})
	require.InDelta(t, 0.25, got["a"], 1e-12)
	require.InDelta(t, 0.75, got["b"], 1e-12)
	require.Zero(t, got["z"])
}

func TestGoodnessOfFitExact(t *testing.T) {
	tl := audit.NewTally()
	for i := 0; i < 250; i++ {
		tl.Add("a")
	}
	for i := 0; i < 750; i++ {
		tl.Add("b")
	}
	res, err := audit.GoodnessOfFit(tl, map[string]float64{"a": 0.25, "b": 0.75})
	require.NoError(t, err)
	require.Equal(t, 1, res.DF)
	require.InDelta(t, 0, res.Stat, 1e-9)
	require.False(t, res.Exceeds(0.05))
	require.Zero(t, audit.MaxDeviation(tl, map[string]float64{"a": 0.25, "b": 0.75}))
}

func TestGoodnessOfFitSkewed(t *testing.T) {
	tl := audit.NewTally()
	for i := 0; i < 900; i++ {
		tl.Add("a")
	}
	for i := 0; i < 100; i++ {
		tl.Add("b")
	}
	// (900-500)^2/500 + (100-500)^2/500 = 640
	res, err := audit.GoodnessOfFit(tl, map[string]float64{"a": 0.5, "b": 0.5})
	require.NoError(t, err)
	require.InDelta(t, 640, res.Stat, 1e-9)
	require.True(t, res.Exceeds(0.001))
	require.InDelta(t, 0.4, audit.MaxDeviation(tl, map[string]float64{"a": 0.5, "b": 0.5}), 1e-12)
}

func TestGoodnessOfFitImpossibleValue(t *testing.T) {
	tl := audit.NewTally()
	tl.Add("a")
	tl.Add("vetoed")

	res, err := audit.GoodnessOfFit(tl, map[string]float64{"a": 1, "vetoed": 0})
	require.NoError(t, err)
	require.True(t, math.IsInf(res.Stat, 1))

	res, err = audit.GoodnessOfFit(tl, map[string]float64{"a": 1})
	require.NoError(t, err)
	require.True(t, math.IsInf(res.Stat, 1), "unexpected value must fail the fit")
}

func TestGoodnessOfFitEmpty(t *testing.T) {
	_, err := audit.GoodnessOfFit(audit.NewTally(), map[string]float64{"a": 1})
	require.ErrorIs(t, err, audit.ErrTooFewObservations)
}

func TestIndependence(t *testing.T) {
	c := audit.NewContingency()
	// Perfectly balanced 2x2 table: no association.
	for i := 0; i < 100; i++ {
		c.Add("x", "p")
		c.Add("x", "q")
		c.Add("y", "p")
		c.Add("y", "q")
	}
	res, err := c.Independence()
	require.NoError(t, err)
	require.Equal(t, 1, res.DF)
	require.InDelta(t, 0, res.Stat, 1e-9)

	// Fully dependent table.
	d := audit.NewContingency()
	for i := 0; i < 100; i++ {
		d.Add("x", "p")
		d.Add("y", "q")
	}
	res, err = d.Independence()
	require.NoError(t, err)
	require.InDelta(t, 200, res.Stat, 1e-9)
	require.True(t, res.Exceeds(0.001))
}

func TestIndependenceDegenerate(t *testing.T) {
	c := audit.NewContingency()
	c.Add("x", "p")
	c.Add("x", "q")
	_, err := c.Independence()
	require.ErrorIs(t, err, audit.ErrTooFewObservations)
}

func TestCritical(t *testing.T) {
	// Reference values from chi-square tables.
	require.InDelta(t, 16.919, audit.Critical(9, 0.05), 0.2)
	require.InDelta(t, 27.877, audit.Critical(9, 0.001), 0.3)
	require.InDelta(t, 11.345, audit.Critical(3, 0.01), 0.2)
	require.Zero(t, audit.Critical(0, 0.05))
}
