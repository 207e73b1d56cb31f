package ledger

import (
	"time"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region run
// Run is one recorded sweep: a batch of compositions against one registry.
type Run struct {
	RunID           string
	RegistryVersion string
	Note            string
	CreatedAt       time.Time
}
// #endregion run

// #region composition-record
// CompositionRecord is one stored composition. Result is nil when the
// composition failed; Error then holds the failure.
type CompositionRecord struct {
	ID          int64
	RunID       string
	Context     specimen.Context
	Result      *composer.CompositionResult
	Fingerprint string
	Error       string
	CreatedAt   time.Time
}

// Failed reports whether the record holds an error instead of a result.
func (r CompositionRecord) Failed() bool {
	return r.Result == nil
}
// #endregion composition-record

// #region run-summary
// RunSummary counts a run's outcomes.
type RunSummary struct {
	Run          Run
	Compositions int
	Failures     int
	Redraws      int
	Fallbacks    int
}
// #endregion run-summary
