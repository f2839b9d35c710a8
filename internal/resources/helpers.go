package resources

import (
	"fmt"
	"os"

	"github.com/HendryAvila/plansync/internal/config"
)

// findRoot walks up from cwd looking for plansync.yaml or the default
// outline. Shared utility for resource handlers.
func findRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindProjectRoot(dir), nil
}
