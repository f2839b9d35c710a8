package pipeline

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/plansync/internal/validate"
)

// ErrSourceMissing is returned (wrapped) when the outline file does not exist.
var ErrSourceMissing = errors.New("plan source missing")

// ErrUnknownCode is returned when a status override names a code that is
// not in the outline.
var ErrUnknownCode = errors.New("unknown code")

// StructuralError aborts a run: the outline has validation errors and
// nothing was written.
type StructuralError struct {
	Report *validate.Report
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("plan has %d structural error(s); nothing was written", len(e.Report.Errors()))
}

// IOError wraps a filesystem failure with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
