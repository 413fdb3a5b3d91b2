package config

import (
	"fmt"
	"os"

	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/skills"
	"github.com/fluxgraph/agentcore/pkg/subagent"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// ToToolFilter converts the declarative tool_filter/tools pair into a
// tool.Filter (§3 SubagentDefinition.toolFilter).
func (c SubagentConfig) ToToolFilter() tool.Filter {
	switch c.ToolFilter {
	case "only":
		return tool.FilterOnly(c.Tools...)
	case "except":
		return tool.FilterExcept(c.Tools...)
	default:
		return tool.FilterAll()
	}
}

// ToDefinition converts one roster entry into a subagent.SubagentDefinition,
// ready to Register into a subagent.Registry.
func (c SubagentConfig) ToDefinition() subagent.SubagentDefinition {
	instr := llm.NewBuilder().Text(c.Instructions).BuildInstructions()
	return subagent.SubagentDefinition{
		Name:         c.Name,
		Instructions: instr,
		ToolFilter:   c.ToToolFilter(),
		MaxDepth:     c.MaxDepth,
		Tags:         c.Tags,
	}
}

// RegisterSubagents builds every roster entry's definition and registers
// it into reg, stopping at the first duplicate-name or decode error.
func (c Config) RegisterSubagents(reg *subagent.Registry) error {
	for _, entry := range c.Subagents {
		if err := reg.Register(entry.ToDefinition()); err != nil {
			return fmt.Errorf("config: registering subagent %q: %w", entry.Name, err)
		}
	}
	return nil
}

// ToSkill loads InstructionsFile (if set) and converts one roster entry
// into a skills.Skill, ready to Register into a skills.Registry (§4.10).
func (c SkillConfig) ToSkill() (skills.Skill, error) {
	instructions := c.Inline
	if c.InstructionsFile != "" {
		data, err := os.ReadFile(c.InstructionsFile)
		if err != nil {
			return skills.Skill{}, fmt.Errorf("config: reading skill %q instructions: %w", c.Name, err)
		}
		instructions = string(data)
	}
	return skills.Skill{
		Metadata: skills.Metadata{
			Name:         c.Name,
			Description:  c.Description,
			Location:     c.Location,
			AllowedTools: c.AllowedTools,
		},
		Instructions: instructions,
	}, nil
}

// RegisterSkills converts and registers every roster entry into reg.
func (c Config) RegisterSkills(reg *skills.Registry) error {
	for _, entry := range c.Skills {
		skill, err := entry.ToSkill()
		if err != nil {
			return err
		}
		reg.Register(skill)
	}
	return nil
}
