package replay

import (
	"errors"
	"strings"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region types
// Composer is what a replay runs cases against: a Composer or an Engine.
type Composer interface {
	Compose(ctx specimen.Context) (composer.CompositionResult, error)
}

// Actions a replayed case can end in.
const (
	ActionMatch = "match"
	ActionDrift = "drift"
	ActionError = "error"
)

// ReplayResult captures the outcome of replaying one case.
type ReplayResult struct {
	Name    string
	Context specimen.Context
	Action  string // "match" | "drift" | "error"
	Reason  string
	Diffs   []string

	// Got is nil when composing failed.
	Got *composer.CompositionResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalCases int
	Matches    int
	Drifts     int
	Errors     int
}

// Clean reports whether every case matched.
func (s ReplaySummary) Clean() bool {
	return s.Matches == s.TotalCases
}

// #endregion types

// #region replay
// Replay re-composes every case and compares the outcome with what the case
// pins. Cases are independent; order only affects the order of results.
func Replay(c Composer, cases []FixtureCase) []ReplayResult {
	results := make([]ReplayResult, 0, len(cases))
	for _, fc := range cases {
		results = append(results, replayCase(c, fc))
	}
	return results
}

func replayCase(c Composer, fc FixtureCase) ReplayResult {
	r := ReplayResult{Name: fc.Name, Context: fc.Context}
	got, err := c.Compose(fc.Context)

	// 1. Expected failure
	if fc.ExpectedError != "" {
		switch {
		case err == nil:
			r.Action, r.Reason = ActionDrift, "expected failure, composed "+got.Fingerprint()
			r.Got = &got
		case sameFailure(fc.ExpectedError, err):
			r.Action, r.Reason = ActionMatch, err.Error()
		default:
			r.Action, r.Reason = ActionDrift, "failure changed: "+err.Error()
		}
		return r
	}

	// 2. Unexpected failure
	if err != nil {
		r.Action, r.Reason = ActionError, err.Error()
		return r
	}
	r.Got = &got

	// 3. Compare
	if fc.Expected != nil {
		r.Diffs = fc.Expected.Diff(got)
	}
	if fc.ExpectedFingerprint != "" && fc.ExpectedFingerprint != got.Fingerprint() && len(r.Diffs) == 0 {
		r.Diffs = append(r.Diffs, "fingerprint: expected "+fc.ExpectedFingerprint+", got "+got.Fingerprint())
	}
	if len(r.Diffs) > 0 {
		r.Action, r.Reason = ActionDrift, r.Diffs[0]
		return r
	}
	r.Action, r.Reason = ActionMatch, got.Fingerprint()
	return r
}

// sameFailure matches an exhausted composition against the recorded text:
// either the full error text or just the rule id.
func sameFailure(expected string, err error) bool {
	var re *composer.RetryExhaustedError
	if errors.As(err, &re) && re.RuleID == expected {
		return true
	}
	return strings.TrimSpace(err.Error()) == strings.TrimSpace(expected)
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalCases: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionMatch:
			s.Matches++
		case ActionDrift:
			s.Drifts++
		case ActionError:
			s.Errors++
		}
	}
	return s
}

// #endregion replay
