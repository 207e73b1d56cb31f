// Package audit measures how a sweep of compositions is distributed: variant
// frequencies, goodness of fit against the weights that produced them, and
// independence between two axes.
package audit

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrTooFewObservations is returned when a statistic has nothing to measure.
var ErrTooFewObservations = errors.New("audit: too few observations")

// #region tally

// Tally counts how often each value of one axis was observed.
type Tally struct {
	counts map[string]int
	order  []string
	total  int
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add records one observation of value.
func (t *Tally) Add(value string) {
	if _, ok := t.counts[value]; !ok {
		t.order = append(t.order, value)
	}
	t.counts[value]++
	t.total++
}

// Count returns how often value was seen.
func (t *Tally) Count(value string) int { return t.counts[value] }

// Total returns the number of observations.
func (t *Tally) Total() int { return t.total }

// Share returns the observed fraction of value, or 0 for an empty tally.
func (t *Tally) Share(value string) float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.counts[value]) / float64(t.total)
}

// Values returns the observed values in first-seen order.
func (t *Tally) Values() []string {
	return append([]string(nil), t.order...)
}

// #endregion tally

// #region shares

// Shares normalises weights into expected fractions. Zero weights stay at 0.
func Shares(weights map[string]uint64) map[string]float64 {
	var total uint64
	for _, w := range weights {
		total += w
	}
	out := make(map[string]float64, len(weights))
	for id, w := range weights {
		if total > 0 {
			out[id] = float64(w) / float64(total)
		}
	}
	return out
}

// MaxDeviation returns the largest |observed - expected| share over every
// value in expected or in the tally.
func MaxDeviation(t *Tally, expected map[string]float64) float64 {
	worst := 0.0
	for id, want := range expected {
		worst = math.Max(worst, math.Abs(t.Share(id)-want))
	}
	for _, id := range t.order {
		if _, ok := expected[id]; !ok {
			worst = math.Max(worst, t.Share(id))
		}
	}
	return worst
}

// #endregion shares

// #region chi-square

// Result is a chi-square statistic with its degrees of freedom.
type Result struct {
	Stat float64
	DF   int
}

// Exceeds reports whether the statistic is above the critical value for
// the given tail probability (0.05, 0.01 or 0.001).
func (r Result) Exceeds(alpha float64) bool {
	return r.Stat > Critical(r.DF, alpha)
}

func (r Result) String() string {
	return fmt.Sprintf("chi2=%.2f df=%d", r.Stat, r.DF)
}

// GoodnessOfFit compares observed counts with expected shares. Values with
// an expected share of 0 must not be observed at all; one that was makes the
// statistic infinite.
func GoodnessOfFit(t *Tally, expected map[string]float64) (Result, error) {
	if t.total == 0 {
		return Result{}, ErrTooFewObservations
	}
	ids := make([]string, 0, len(expected))
	for id := range expected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var stat float64
	df := -1
	for _, id := range ids {
		e := expected[id] * float64(t.total)
		o := float64(t.counts[id])
		if e == 0 {
			if o > 0 {
				return Result{Stat: math.Inf(1), DF: len(ids) - 1}, nil
			}
			continue
		}
		stat += (o - e) * (o - e) / e
		df++
	}
	for _, id := range t.order {
		if _, ok := expected[id]; !ok {
			return Result{Stat: math.Inf(1), DF: df}, nil
		}
	}
	if df < 1 {
		return Result{Stat: stat, DF: 0}, nil
	}
	return Result{Stat: stat, DF: df}, nil
}

// Contingency cross-tabulates paired observations of two axes.
type Contingency struct {
	cells map[[2]string]int
	rows  *Tally
	cols  *Tally
}

// NewContingency creates an empty table.
func NewContingency() *Contingency {
	return &Contingency{cells: make(map[[2]string]int), rows: NewTally(), cols: NewTally()}
}

// Add records one paired observation.
func (c *Contingency) Add(row, col string) {
	c.cells[[2]string{row, col}]++
	c.rows.Add(row)
	c.cols.Add(col)
}

// Independence is Pearson's chi-square test of independence over the table.
func (c *Contingency) Independence() (Result, error) {
	n := float64(c.rows.total)
	if n == 0 || len(c.rows.order) < 2 || len(c.cols.order) < 2 {
		return Result{}, ErrTooFewObservations
	}
	var stat float64
	for _, r := range c.rows.order {
		for _, col := range c.cols.order {
			e := float64(c.rows.counts[r]) * float64(c.cols.counts[col]) / n
			o := float64(c.cells[[2]string{r, col}])
			stat += (o - e) * (o - e) / e
		}
	}
	return Result{Stat: stat, DF: (len(c.rows.order) - 1) * (len(c.cols.order) - 1)}, nil
}

// #endregion chi-square

// #region critical

// Critical approximates the upper-tail chi-square critical value with the
// Wilson-Hilferty transform. It is within about 1% for df >= 3.
func Critical(df int, alpha float64) float64 {
	if df < 1 {
		return 0
	}
	z := zScore(alpha)
	k := float64(df)
	h := 2 / (9 * k)
	return k * math.Pow(1-h+z*math.Sqrt(h), 3)
}

func zScore(alpha float64) float64 {
	switch {
	case alpha <= 0.001:
		return 3.0902
	case alpha <= 0.01:
		return 2.3263
	default:
		return 1.6449
	}
}

// #endregion critical
