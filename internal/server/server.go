// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources. No business logic
// lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/journal"
	"github.com/HendryAvila/plansync/internal/prompts"
	"github.com/HendryAvila/plansync/internal/resources"
	"github.com/HendryAvila/plansync/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options configures the server.
type Options struct {
	Root   string // project root, already resolved
	Logger *slog.Logger
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the journal database and must be
// called on shutdown. It is always non-nil and safe to call even if the
// journal is disabled or failed to open.
func New(opts Options) (*server.MCPServer, func(), error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	cfg, err := config.Load(opts.Root)
	if err != nil {
		return nil, noop, fmt.Errorf("loading config: %w", err)
	}

	s := server.NewMCPServer(
		"plansync",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Journal ---
	//
	// The journal is optional: if it fails to open, the sync tools keep
	// working and only history and search report it as unavailable.

	ws := &tools.Workspace{Root: opts.Root, Logger: log}
	cleanup := noop
	if cfg.Journal.Enabled {
		j, err := journal.New(journal.Config{Path: cfg.Paths(opts.Root).Journal})
		if err != nil {
			log.Warn("journal disabled", "error", err)
		} else {
			ws.Journal = j
			cleanup = func() {
				if err := j.Close(); err != nil {
					log.Warn("journal close", "error", err)
				}
			}
		}
	}

	// --- Tools ---

	syncTool := tools.NewSyncTool(ws)
	s.AddTool(syncTool.Definition(), syncTool.Handle)

	validateTool := tools.NewValidateTool(ws)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	driftTool := tools.NewDriftTool(ws)
	s.AddTool(driftTool.Definition(), driftTool.Handle)

	setStatusTool := tools.NewSetStatusTool(ws)
	s.AddTool(setStatusTool.Definition(), setStatusTool.Handle)

	statusTool := tools.NewStatusTool(ws)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	historyTool := tools.NewHistoryTool(ws)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	searchTool := tools.NewSearchTool(ws)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	// --- Prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	nextPrompt := prompts.NewNextPrompt()
	s.AddPrompt(nextPrompt.Definition(), nextPrompt.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler(opts.Root)
	s.AddResource(resourceHandler.ManifestResource(), resourceHandler.HandleManifest)
	s.AddResource(resourceHandler.ProgressResource(), resourceHandler.HandleProgress)

	return s, cleanup, nil
}

// noop is the default cleanup when the journal is not open.
func noop() {}

// serverInstructions tells the AI how to use plansync.
func serverInstructions() string {
	return `You have access to plansync, which keeps a hand-written plan outline and its
generated progress files in sync.

## The outline
The outline (plan/plan_source.md by default) is written by people. It has Steps
("# Step 1 — Title"), Topics ("## 1.1 Title") and Items ("1.1.1 Title", at any
depth). Never edit the generated files (plan_sync.md, plan_sync_todo.md,
plan_todos.json, plan_state.json) by hand: they are rebuilt on every sync and
hand edits are reported as drift.

## Tools
- plan_status: read-only progress summary and the next open items
- plan_set_status: mark one code pending, in-progress or completed; parents are
  recomputed and every file is regenerated
- plan_sync: regenerate after the outline itself changed
- plan_validate: find duplicate, malformed or orphaned codes and numbering gaps;
  fix_missing previews placeholder lines but never edits the outline
- plan_check_drift: prove the committed generated files match the outline
- plan_history, plan_search: query the sync journal

## Workflow
1. Call plan_status to see where things stand
2. Use plan_search to find the code of the item the user talks about
3. Call plan_set_status with "start" when work begins and "done" when it ends
4. If a sync reports structural errors, show them to the user with their line
   numbers; the outline must be fixed by hand`
}
