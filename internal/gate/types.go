package gate

import "github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"

// #region draws
// Draw indices within the gate's reserved stream.
const (
	DrawMechanic uint32 = 0
	DrawBand     uint32 = 1
)

// #endregion draws

// #region resolution
// Resolution is the gate's output: the mechanic that drives the specimen and
// the heat band it runs in. Band is always legal for Mechanic.
type Resolution struct {
	Mechanic registry.MechanicProfile
	Band     registry.BandID

	// Fallbacks lists the axes (mechanic, heat) whose sample fell back to
	// uniform weights because every weight was zero.
	Fallbacks []registry.LibraryID
}

// #endregion resolution
