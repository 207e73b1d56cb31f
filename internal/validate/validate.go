package validate

import (
	"fmt"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
)

// #region validator
// Validator checks drafts against the registry's combination rules. It holds
// no state beyond the rule list and is safe for concurrent use.
type Validator struct {
	rules []registry.Rule
}

// NewValidator creates a validator over reg's rules.
func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{rules: reg.Rules()}
}

// Violations returns every rule the draft breaks, in rule declaration order.
func (v *Validator) Violations(d Draft) []Violation {
	var out []Violation
	for _, r := range v.rules {
		if Fires(r, d) {
			out = append(out, Violation{RuleID: r.ID, Redraw: r.Redraw})
		}
	}
	return out
}

// Run validates d and summarizes the outcome.
func (v *Validator) Run(d Draft) Report {
	violations := v.Violations(d)
	if len(violations) == 0 {
		return Report{Passed: true, Reason: "all rules passed"}
	}
	reason := fmt.Sprintf("rule %s violated", violations[0].RuleID)
	if len(violations) > 1 {
		reason = fmt.Sprintf("%d rules violated: %s", len(violations), violations[0].RuleID)
	}
	return Report{Passed: false, Violations: violations, Reason: reason}
}

// #endregion validator

// #region helpers
// Fires reports whether every When and Forbid clause of r matches d. An axis
// missing from d matches nothing.
func Fires(r registry.Rule, d Draft) bool {
	for _, group := range [][]registry.Clause{r.When, r.Forbid} {
		for _, c := range group {
			value, ok := d[c.Axis]
			if !ok || !c.Matches(value) {
				return false
			}
		}
	}
	return true
}

// #endregion helpers
