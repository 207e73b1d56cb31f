package validate

import "github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"

// #region draft
// Draft is the value chosen on every axis of a composition, keyed by library
// id and by the mechanic, heat and receipt pseudo-libraries.
type Draft map[registry.LibraryID]string

// #endregion draft

// #region violation
// Violation is one fired rule and the axis it implicates.
type Violation struct {
	RuleID string
	Redraw registry.LibraryID
}

// #endregion violation

// #region report
// Report is the outcome of validating one draft.
type Report struct {
	Passed     bool
	Violations []Violation
	Reason     string
}

// #endregion report
