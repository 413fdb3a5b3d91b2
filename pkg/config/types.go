// Package config provides the declarative YAML document that wires an
// AgentSession together: the permission document path, sandbox policy,
// sub-agent roster, and skill roster. It follows the grounding repo's
// SetDefaults/Validate idiom (pkg/config/types.go) rather than failing
// fast on every missing field.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/fluxgraph/agentcore/pkg/sandbox"
)

// SandboxConfig is the YAML-facing mirror of sandbox.Config (§3
// SandboxConfiguration); it decodes into the concrete type via
// mapstructure so loose `custom` read/write lists stay declarative.
type SandboxConfig struct {
	NetworkPolicy     string         `yaml:"network_policy,omitempty"`
	FilePolicy        string         `yaml:"file_policy,omitempty"`
	CustomRead        []string       `yaml:"custom_read,omitempty"`
	CustomWrite       []string       `yaml:"custom_write,omitempty"`
	AllowSubprocesses bool           `yaml:"allow_subprocesses,omitempty"`
	TimeoutSec        int            `yaml:"timeout_sec,omitempty"`
	Disabled          bool           `yaml:"disabled,omitempty"`
	Extra             map[string]any `yaml:"extra,omitempty"`
}

// SetDefaults fills in the documented defaults (§3): a 30s timeout and
// the workingDirOnly file policy, matching the grounding repo's
// SetDefaults pattern of only touching zero-value fields.
func (c *SandboxConfig) SetDefaults() {
	if c.NetworkPolicy == "" {
		c.NetworkPolicy = string(sandbox.NetworkLocal)
	}
	if c.FilePolicy == "" {
		c.FilePolicy = string(sandbox.FileWorkingDirOnly)
	}
	if c.TimeoutSec == 0 {
		c.TimeoutSec = 30
	}
}

// Validate rejects sandbox configurations the spec forbids: a timeout
// outside (0, 86400] (§3 SandboxConfiguration), or an unknown policy
// name.
func (c *SandboxConfig) Validate() error {
	if c.TimeoutSec <= 0 || c.TimeoutSec > 86400 {
		return fmt.Errorf("sandbox.timeout_sec must be in (0, 86400], got %d", c.TimeoutSec)
	}
	switch sandbox.NetworkPolicy(c.NetworkPolicy) {
	case sandbox.NetworkNone, sandbox.NetworkLocal, sandbox.NetworkFull:
	default:
		return fmt.Errorf("sandbox.network_policy invalid: %q", c.NetworkPolicy)
	}
	switch sandbox.FilePolicyKind(c.FilePolicy) {
	case sandbox.FileReadOnly, sandbox.FileWorkingDirOnly, sandbox.FileCustom:
	default:
		return fmt.Errorf("sandbox.file_policy invalid: %q", c.FilePolicy)
	}
	return nil
}

// ToSandboxConfig converts the YAML-facing struct to the concrete
// sandbox.Config the executor/middleware consume.
func (c SandboxConfig) ToSandboxConfig() sandbox.Config {
	return sandbox.Config{
		NetworkPolicy: sandbox.NetworkPolicy(c.NetworkPolicy),
		FilePolicy: sandbox.FilePolicy{
			Kind:  sandbox.FilePolicyKind(c.FilePolicy),
			Read:  c.CustomRead,
			Write: c.CustomWrite,
		},
		AllowSubprocesses: c.AllowSubprocesses,
		TimeoutSec:        c.TimeoutSec,
		Disabled:          c.Disabled,
	}
}

// SubagentConfig is one roster entry for pkg/subagent.Registry: a name,
// system instructions, a tool filter, and an optional depth override
// (§3 SubagentDefinition).
type SubagentConfig struct {
	Name         string   `yaml:"name"`
	Instructions string   `yaml:"instructions"`
	ToolFilter   string   `yaml:"tool_filter,omitempty"` // "all" | "only" | "except"
	Tools        []string `yaml:"tools,omitempty"`
	MaxDepth     int      `yaml:"max_depth,omitempty"`
	Tags         []string `yaml:"tags,omitempty"`
}

// SetDefaults fills ToolFilter with "all" when unset, matching the
// grounding repo's convention of defaulting permissive fields.
func (c *SubagentConfig) SetDefaults() {
	if c.ToolFilter == "" {
		c.ToolFilter = "all"
	}
}

// Validate rejects a roster entry missing its name or instructions, or
// naming an unknown tool-filter kind.
func (c *SubagentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("subagent entry missing name")
	}
	if c.Instructions == "" {
		return fmt.Errorf("subagent %q missing instructions", c.Name)
	}
	switch c.ToolFilter {
	case "all", "only", "except":
	default:
		return fmt.Errorf("subagent %q has invalid tool_filter %q", c.Name, c.ToolFilter)
	}
	if c.ToolFilter != "all" && len(c.Tools) == 0 {
		return fmt.Errorf("subagent %q tool_filter %q requires a non-empty tools list", c.Name, c.ToolFilter)
	}
	return nil
}

// SkillConfig is one roster entry for pkg/skills.Registry (§4.10).
type SkillConfig struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Location     string   `yaml:"location,omitempty"`
	AllowedTools []string `yaml:"allowed_tools,omitempty"`
	// InstructionsFile, if set, is read at load time to populate the
	// skill's full instructions (the "activation phase" payload); Inline
	// is used verbatim when InstructionsFile is empty.
	InstructionsFile string `yaml:"instructions_file,omitempty"`
	Inline           string `yaml:"instructions,omitempty"`
}

// Validate rejects a skill entry missing its name.
func (c *SkillConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("skill entry missing name")
	}
	return nil
}

// LoggingConfig configures internal/obslog.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// SetDefaults fills Level with "info" when unset.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// SessionConfig configures the persistence layer: autosave and, when
// StorePath is set, a SQLite-backed session.Store (pkg/session/sqlstore).
// With no StorePath, no store is configured.
type SessionConfig struct {
	AutoSave     bool   `yaml:"autosave,omitempty"`
	StorePath    string `yaml:"store_path,omitempty"`
	MaxToolTurns int    `yaml:"max_tool_turns,omitempty"`
}

// SetDefaults fills MaxToolTurns with the documented bound (§4.8).
func (c *SessionConfig) SetDefaults() {
	if c.MaxToolTurns == 0 {
		c.MaxToolTurns = 8
	}
}

// Config is the top-level declarative document: permission policy
// location, sandbox policy, the sub-agent and skill rosters, logging,
// and session persistence. It deliberately excludes provider
// credentials/model selection, which §1 scopes to an external
// collaborator; GetProviderAPIKey (env.go) reads those from the
// environment instead.
type Config struct {
	PermissionFile string           `yaml:"permission_file,omitempty"`
	Sandbox        SandboxConfig    `yaml:"sandbox,omitempty"`
	Subagents      []SubagentConfig `yaml:"subagents,omitempty"`
	Skills         []SkillConfig    `yaml:"skills,omitempty"`
	Logging        LoggingConfig    `yaml:"logging,omitempty"`
	Session        SessionConfig    `yaml:"session,omitempty"`

	// ToolConfig holds tool-specific metadata blocks too loosely shaped
	// to warrant their own YAML schema (e.g. per-tool rate limits);
	// decoded on demand via DecodeToolConfig/mapstructure, matching the
	// grounding repo's handling of plugin-specific config blocks.
	ToolConfig map[string]map[string]any `yaml:"tool_config,omitempty"`
}

// SetDefaults recursively fills every zero-valued field with its
// documented default.
func (c *Config) SetDefaults() {
	c.Sandbox.SetDefaults()
	c.Logging.SetDefaults()
	c.Session.SetDefaults()
	for i := range c.Subagents {
		c.Subagents[i].SetDefaults()
	}
}

// Validate checks every sub-document and rejects duplicate subagent or
// skill names up front, matching §3's "Duplicate names are rejected"
// invariant at config-load time rather than at registry-register time.
func (c *Config) Validate() error {
	if err := c.Sandbox.Validate(); err != nil {
		return err
	}
	seenSub := make(map[string]bool, len(c.Subagents))
	for i := range c.Subagents {
		if err := c.Subagents[i].Validate(); err != nil {
			return err
		}
		if seenSub[c.Subagents[i].Name] {
			return fmt.Errorf("duplicate subagent name %q", c.Subagents[i].Name)
		}
		seenSub[c.Subagents[i].Name] = true
	}
	seenSkill := make(map[string]bool, len(c.Skills))
	for i := range c.Skills {
		if err := c.Skills[i].Validate(); err != nil {
			return err
		}
		if seenSkill[c.Skills[i].Name] {
			return fmt.Errorf("duplicate skill name %q", c.Skills[i].Name)
		}
		seenSkill[c.Skills[i].Name] = true
	}
	return nil
}

// Load reads path as YAML, expands ${VAR} / $VAR references against the
// environment (env.go), applies defaults, and validates the result —
// the grounding repo's load/expand/default/validate pipeline
// (pkg/config/loader.go), minus the remote providers (consul/zookeeper)
// §1 scopes out of the core.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	expanded := ExpandEnvVarsInData(generic)

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return Config{}, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeToolConfig decodes the loose tool_config block named by
// toolName into dst via mapstructure, matching the grounding repo's use
// of mapstructure for plugin-specific configuration (§"Configuration").
func (c Config) DecodeToolConfig(toolName string, dst any) error {
	block, ok := c.ToolConfig[toolName]
	if !ok {
		return nil
	}
	return mapstructure.Decode(block, dst)
}
