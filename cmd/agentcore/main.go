// Command agentcore is a minimal demo binary wiring the library end to
// end (config -> permission -> sandbox -> session -> one prompt), in
// the same thin-CLI spirit as the grounding repo's cmd/hector: the CLI
// is an external collaborator per spec §1, not a goal of the core.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/fluxgraph/agentcore/internal/obslog"
	"github.com/fluxgraph/agentcore/pkg/config"
	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/notebook"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/session"
	"github.com/fluxgraph/agentcore/pkg/session/sqlstore"
	"github.com/fluxgraph/agentcore/pkg/skills"
	"github.com/fluxgraph/agentcore/pkg/subagent"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// CLI mirrors the grounding repo's kong-based command layout
// (cmd/hector/main.go): one top-level flag group plus per-command args.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run a single prompt through a session."`
	Validate ValidateCmd `cmd:"" help:"Validate a declarative config file."`

	Config   string `short:"c" help:"Path to the agent config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// RunCmd loads config, builds a session wired with the permission and
// sandbox policy it names, registers its sub-agent and skill rosters,
// and runs one prompt to completion.
type RunCmd struct {
	Prompt string `arg:"" help:"The prompt text to send."`
}

func (c *RunCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("agentcore run: --config is required")
	}
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	permCfg := permission.Default()
	if cfg.PermissionFile != "" {
		loaded, err := permission.LoadFile(cfg.PermissionFile)
		if err != nil {
			return fmt.Errorf("agentcore run: %w", err)
		}
		permCfg = loaded
	}

	subRegistry := subagent.NewRegistry()
	if err := cfg.RegisterSubagents(subRegistry); err != nil {
		return err
	}
	skillRegistry := skills.NewRegistry()
	if err := cfg.RegisterSkills(skillRegistry); err != nil {
		return err
	}

	var store session.Store
	if cfg.Session.StorePath != "" {
		sqlStore, err := sqlstore.Open(cfg.Session.StorePath)
		if err != nil {
			return fmt.Errorf("agentcore run: opening session store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	instructions := llm.NewBuilder().
		Text("You are agentcore, a tool-using assistant.").
		If(len(cfg.Skills) > 0, skillRegistry.AvailableSkillsBlock()).
		BuildInstructions()

	subCfg := subagent.Config{
		Registry:   subRegistry,
		Provider:   echoProvider{},
		Permission: permCfg,
		Handler:    denyOnAsk{},
		Sandbox:    cfg.Sandbox.ToSandboxConfig(),
	}
	facade := skills.NewFacade(skillRegistry)
	tools := append(subagent.Tools(subCfg),
		notebook.NewTool(notebook.NewMemory()),
		skills.NewActivateTool(facade),
	)

	sess, err := session.Create(session.Config{
		Provider:          echoProvider{},
		Instructions:      instructions,
		Tools:             tools,
		ToolFilter:        tool.FilterAll(),
		Subagents:         subagent.NewDelegator(subCfg),
		DynamicAllowRules: facade.ActiveAllowPatterns,
		Permission:        permCfg,
		Handler:           denyOnAsk{},
		Sandbox:           cfg.Sandbox.ToSandboxConfig(),
		Store:             store,
		AutoSave:          cfg.Session.AutoSave,
		MaxToolTurns:      cfg.Session.MaxToolTurns,
	})
	if err != nil {
		return fmt.Errorf("agentcore run: %w", err)
	}

	resp, err := sess.Prompt(context.Background(), c.Prompt)
	if err != nil {
		return fmt.Errorf("agentcore run: %w", err)
	}
	fmt.Println(resp.Content)
	return nil
}

// ValidateCmd loads and validates a config file without running anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("agentcore validate: --config is required")
	}
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("config OK: %d subagent(s), %d skill(s)\n", len(cfg.Subagents), len(cfg.Skills))
	return nil
}

// echoProvider is a placeholder llm.Provider so `agentcore run` is
// exercisable without a real vendor SDK linked into core (§1 "specific
// model vendors" is an external collaborator). It never calls a tool;
// it simply echoes the last user message back.
type echoProvider struct{}

func (echoProvider) Generate(_ context.Context, messages []llm.Message, _ []llm.ToolDefinition, _ llm.Options) (llm.Response, error) {
	var last string
	for _, m := range messages {
		if m.Role == llm.RoleUser {
			last = m.Content
		}
	}
	return llm.Response{Text: "echo: " + last}, nil
}

func (echoProvider) GenerateStreaming(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, opts llm.Options) (<-chan llm.StreamChunk, error) {
	resp, err := echoProvider{}.Generate(ctx, messages, tools, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Content: resp.Text}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (echoProvider) ModelName() string { return "echo" }
func (echoProvider) MaxTokens() int    { return 4096 }

// denyOnAsk is the non-interactive permission.Handler used by the demo
// CLI: §7 "non-interactive transports surface them as
// PermissionDenied{reason: "no handler"}" — denying every ask outcome
// achieves the same observable behavior without a real transport.
type denyOnAsk struct{}

func (denyOnAsk) RequestDecision(context.Context, permission.Request) (permission.Decision, error) {
	return permission.DecisionDenyOnce, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentcore"),
		kong.Description("Demo CLI for the agentcore library."),
	)

	level, err := obslog.ParseLevel(cli.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(obslog.New(level, os.Stderr))

	ctx.FatalIfErrorf(ctx.Run(&cli))
}
