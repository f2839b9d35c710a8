package main

import (
	"errors"

	"github.com/HendryAvila/plansync/internal/drift"
	"github.com/HendryAvila/plansync/internal/pipeline"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1 // generic failure, or validation warnings only
	exitStructural = 2 // structural errors, strict warnings, drift
	exitIO         = 3 // missing or unreadable input
)

// exitError carries an exit code for an outcome that has already been
// reported to the user. It prints nothing itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "exit status"
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var serr *pipeline.StructuralError
	if errors.As(err, &serr) {
		return max(serr.Report.ExitCode(), exitStructural)
	}
	var derr *drift.Error
	if errors.As(err, &derr) {
		return exitStructural
	}
	var ioErr *pipeline.IOError
	if errors.Is(err, pipeline.ErrSourceMissing) || errors.As(err, &ioErr) {
		return exitIO
	}
	return exitFailure
}

// silent reports whether err was already shown to the user.
func silent(err error) bool {
	var ee *exitError
	return errors.As(err, &ee)
}
