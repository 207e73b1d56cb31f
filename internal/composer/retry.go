package composer

import (
	"errors"
	"fmt"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/seedstream"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region constants

// MaxRetries is the number of redraw rounds one composition may use: one per
// stream in the retry block.
const MaxRetries = seedstream.RetryStreams

// #endregion

// #region errors

// ErrRetryExhausted marks a rule that stayed violated through every redraw
// round. It points at a defect in the static data, not a transient fault.
var ErrRetryExhausted = errors.New("composer: retry budget exhausted")

// RetryExhaustedError identifies the context and the rule that could not be
// satisfied.
type RetryExhaustedError struct {
	Context  specimen.Context
	RuleID   string
	Axis     registry.LibraryID
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%v: rule %s on axis %s after %d attempts (%s)",
		ErrRetryExhausted, e.RuleID, e.Axis, e.Attempts, e.Context)
}

func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// #endregion

// #region draw-index

// redrawIndex is the draw index used inside a retry stream for axis. Each
// axis reuses its primary stream index so two axes redrawn in the same round
// never share a value.
func redrawIndex(reg *registry.Registry, axis registry.LibraryID) (uint32, bool) {
	if axis == registry.LibReceipt {
		return seedstream.StreamReceipt, true
	}
	lib, ok := reg.Library(axis)
	if !ok {
		return 0, false
	}
	return lib.Stream, true
}

// #endregion
