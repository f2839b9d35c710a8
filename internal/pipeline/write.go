package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File is one artifact to write.
type File struct {
	Path string
	Data []byte
}

// Write stages every changed file as a temp sibling, then renames them
// into place. If staging fails, all temps are removed and no target is
// touched. Files whose content is already current are skipped so watchers
// do not see spurious events. It returns the paths actually written.
func Write(files []File) ([]string, error) {
	type staged struct {
		tmp, target string
	}
	var pending []staged

	cleanup := func() {
		for _, s := range pending {
			_ = os.Remove(s.tmp)
		}
	}

	for _, f := range files {
		current, err := os.ReadFile(f.Path)
		if err == nil && bytes.Equal(current, f.Data) {
			continue
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			cleanup()
			return nil, &IOError{Op: "read", Path: f.Path, Err: err}
		}

		tmp, err := stage(f)
		if err != nil {
			cleanup()
			return nil, err
		}
		pending = append(pending, staged{tmp: tmp, target: f.Path})
	}

	var written []string
	for i, s := range pending {
		if err := os.Rename(s.tmp, s.target); err != nil {
			for _, rest := range pending[i:] {
				_ = os.Remove(rest.tmp)
			}
			return written, &IOError{Op: "rename", Path: s.target, Err: err}
		}
		written = append(written, s.target)
	}
	return written, nil
}

func stage(f File) (string, error) {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &IOError{Op: "create directory", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return "", &IOError{Op: "stage", Path: f.Path, Err: err}
	}
	name := tmp.Name()

	if _, err := tmp.Write(f.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", &IOError{Op: "stage", Path: f.Path, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", &IOError{Op: "stage", Path: f.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", &IOError{Op: "stage", Path: f.Path, Err: fmt.Errorf("close: %w", err)}
	}
	return name, nil
}
