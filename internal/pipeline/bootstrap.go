package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/render"
)

// Bootstrap recreates a missing source outline from the generated plan.
// It does nothing when the source already exists, so it can never
// overwrite hand-authored text. It reports whether a file was written.
func Bootstrap(paths config.Paths) (bool, error) {
	if _, err := os.Stat(paths.Source); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, &IOError{Op: "stat source", Path: paths.Source, Err: err}
	}

	plan, err := os.ReadFile(paths.Plan)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, &IOError{Op: "bootstrap", Path: paths.Plan,
				Err: fmt.Errorf("%w: no generated plan to recover from", ErrSourceMissing)}
		}
		return false, &IOError{Op: "read plan", Path: paths.Plan, Err: err}
	}

	if _, err := Write([]File{{Path: paths.Source, Data: []byte(render.Bootstrap(string(plan)))}}); err != nil {
		return false, err
	}
	return true, nil
}
