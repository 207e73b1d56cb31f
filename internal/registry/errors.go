package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIntegrity marks a static-data defect found at load time.
var ErrIntegrity = errors.New("registry integrity")

// DefectKind classifies a static-data defect.
type DefectKind string

const (
	DefectEmpty         DefectKind = "empty"
	DefectDuplicate     DefectKind = "duplicate"
	DefectUnknown       DefectKind = "unknown_reference"
	DefectWeight        DefectKind = "invalid_weight"
	DefectStream        DefectKind = "invalid_stream"
	DefectMissing       DefectKind = "missing_required"
	DefectNoLegalSet    DefectKind = "empty_legal_set"
	DefectUnreachable   DefectKind = "unreachable"
	DefectInvalidRedraw DefectKind = "invalid_redraw"
)

// Defect is one integrity violation in the source data.
type Defect struct {
	Kind    DefectKind
	Subject string
	Detail  string
}

func (d Defect) String() string {
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Subject, d.Detail)
}

// IntegrityError carries every defect found by Load.
type IntegrityError struct {
	Version string
	Defects []Defect
}

func (e *IntegrityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registry %q: %d integrity defect(s)", e.Version, len(e.Defects))
	for i, d := range e.Defects {
		if i == 5 {
			fmt.Fprintf(&b, "; ... %d more", len(e.Defects)-i)
			break
		}
		b.WriteString("; ")
		b.WriteString(d.String())
	}
	return b.String()
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// Has reports whether a defect of kind was recorded for subject.
func (e *IntegrityError) Has(kind DefectKind, subject string) bool {
	for _, d := range e.Defects {
		if d.Kind == kind && d.Subject == subject {
			return true
		}
	}
	return false
}
