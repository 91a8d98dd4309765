package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/runner"
	"github.com/mark3labs/latch/internal/store"
)

// registerTools registers the run_hooks, list_hooks and validate_config
// tools with the MCP server.
func (s *Server) registerTools() error {
	s.mcpServer.AddTool(
		mcp.NewTool("run_hooks",
			mcp.WithDescription("Run the repository's configured hooks and report per-hook results"),
			mcp.WithString("hook",
				mcp.Description("Run only the hook with this id"),
			),
			mcp.WithString("stage",
				mcp.Description("Hook stage to run (default: pre-commit)"),
			),
			mcp.WithBoolean("all_files",
				mcp.Description("Run against every tracked file instead of staged changes"),
			),
			mcp.WithArray("files",
				mcp.Description("Run against exactly these paths, relative to the repository root"),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		s.handleRunHooks,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_hooks",
			mcp.WithDescription("List the hooks configured for this repository"),
		),
		s.handleListHooks,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("validate_config",
			mcp.WithDescription("Parse and schema-validate the hook pipeline document"),
			mcp.WithString("config",
				mcp.Description("Path to the document (default: discovered in the repository)"),
			),
		),
		s.handleValidateConfig,
	)

	return nil
}

// loadConfig locates and strictly parses the pipeline document. An
// empty path means discover it in the repository root.
func (s *Server) loadConfig(path string) (string, *config.Config, error) {
	if path == "" {
		var err error
		path, err = config.Find(s.root)
		if err != nil {
			return "", nil, err
		}
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}

// hookReport is the per-hook slice of the run_hooks response.
type hookReport struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	ExitCode int    `json:"exit_code,omitempty"`
	Files    int    `json:"files"`
	Duration string `json:"duration"`
	Output   string `json:"output,omitempty"`
}

type runReport struct {
	Passed   bool         `json:"passed"`
	Stage    string       `json:"stage"`
	Files    int          `json:"files"`
	Duration string       `json:"duration"`
	Hooks    []hookReport `json:"hooks"`
}

// handleRunHooks executes the pipeline and returns the aggregate result
// as JSON. Agent-triggered runs never stash the working tree: the agent
// may be mid-edit, and silently shuffling its files around is worse
// than checking slightly stale content.
func (s *Server) handleRunHooks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := runner.Options{NoStash: true}

	if args := request.GetArguments(); args != nil {
		if hook, ok := args["hook"].(string); ok {
			opts.HookID = hook
		}
		if stage, ok := args["stage"].(string); ok && stage != "" {
			if !config.KnownStage(stage) {
				return mcp.NewToolResultError(fmt.Sprintf("unknown stage %q", stage)), nil
			}
			opts.Stage = stage
		}
		if all, ok := args["all_files"].(bool); ok {
			opts.AllFiles = all
		}
		if filesRaw, ok := args["files"].([]any); ok {
			for i, f := range filesRaw {
				path, ok := f.(string)
				if !ok {
					return mcp.NewToolResultError(fmt.Sprintf("files[%d] is not a string", i)), nil
				}
				opts.Files = append(opts.Files, filepath.Join(s.root, path))
			}
		}
	}

	cfgPath, cfg, err := s.loadConfig("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st, err := store.New(s.cacheDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer st.Close()
	_ = st.MarkConfigUsed(ctx, cfgPath)

	run := &runner.Runner{
		Root:       s.root,
		ConfigPath: cfgPath,
		Config:     cfg,
		Store:      st,
		Jobs:       s.jobs,
	}
	res, err := run.Run(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := runReport{
		Passed:   !res.Failed(),
		Stage:    res.Stage,
		Files:    res.Files,
		Duration: res.Duration.Round(time.Millisecond).String(),
	}
	for _, hr := range res.Hooks {
		report.Hooks = append(report.Hooks, hookReport{
			ID:       hr.ID,
			Name:     hr.Name,
			Status:   string(hr.Status),
			ExitCode: hr.ExitCode,
			Files:    hr.Files,
			Duration: hr.Duration.Round(time.Millisecond).String(),
			Output:   hr.Output,
		})
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleListHooks returns the configured hooks as JSON, one entry per
// hook in document order.
func (s *Server) handleListHooks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, cfg, err := s.loadConfig("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type hookInfo struct {
		ID       string   `json:"id"`
		Name     string   `json:"name,omitempty"`
		Repo     string   `json:"repo"`
		Rev      string   `json:"rev,omitempty"`
		Language string   `json:"language,omitempty"`
		Stages   []string `json:"stages"`
	}

	infos := make([]hookInfo, 0, len(cfg.AllHooks()))
	for _, ch := range cfg.AllHooks() {
		infos = append(infos, hookInfo{
			ID:       ch.Hook.ID,
			Name:     ch.Hook.Name,
			Repo:     ch.Repo.Repo,
			Rev:      ch.Repo.Rev,
			Language: ch.Hook.Language,
			Stages:   cfg.EffectiveStages(*ch.Hook),
		})
	}

	out, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal hooks: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleValidateConfig parses and schema-validates the document.
// Findings are the tool's answer, not a protocol error, so they come
// back as text.
func (s *Server) handleValidateConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := ""
	if args := request.GetArguments(); args != nil {
		if p, ok := args["config"].(string); ok {
			path = p
		}
	}

	cfgPath, cfg, err := s.loadConfig(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("%s is not valid:\n%v", cfgPath, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is valid: %d repos, %d hooks", cfgPath, len(cfg.Repos), len(cfg.AllHooks()))), nil
}
