package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HendryAvila/plansync/internal/config"
)

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}
