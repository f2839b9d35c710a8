// Package resources implements MCP resource handlers for plansync.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (plan://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages plan resource endpoints.
type Handler struct {
	root string
}

// NewHandler creates a resource Handler. An empty root is resolved from
// the working directory on every read.
func NewHandler(root string) *Handler {
	return &Handler{root: root}
}

func (h *Handler) config() (*config.Config, string, error) {
	root := h.root
	if root == "" {
		var err error
		if root, err = findRoot(); err != nil {
			return nil, "", fmt.Errorf("finding project root: %w", err)
		}
	}
	cfg, err := config.Load(root)
	return cfg, root, err
}

// ManifestResource returns the MCP resource definition for the manifest.
func (h *Handler) ManifestResource() mcp.Resource {
	return mcp.NewResource(
		"plan://manifest",
		"Plan Manifest",
		mcp.WithResourceDescription("Flattened list of every outline node with its status and marker, as last synced"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleManifest returns the committed manifest file verbatim.
func (h *Handler) HandleManifest(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg, root, err := h.config()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	path := cfg.Paths(root).Manifest
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return errorResource(req.Params.URI, "manifest not generated yet; run plan_sync first"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ProgressResource returns the MCP resource definition for plan progress.
func (h *Handler) ProgressResource() mcp.Resource {
	return mcp.NewResource(
		"plan://progress",
		"Plan Progress",
		mcp.WithResourceDescription("Per-Step leaf completion counts and the next open items, computed from the outline and state"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProgress computes progress in memory and returns it as JSON.
func (h *Handler) HandleProgress(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg, root, err := h.config()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	a, err := pipeline.Generate(ctx, pipeline.OptionsFromConfig(cfg, root))
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(pipeline.Summarize(a.Tree, 10), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling progress: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
