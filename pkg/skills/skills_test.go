package skills

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(Skill{
		Metadata: Metadata{
			Name:         "git-helper",
			Description:  "Helps with git operations",
			Location:     "skills/git-helper",
			AllowedTools: []string{"Bash(git:*)"},
		},
		Instructions: "Use git commands carefully.",
	})
	reg.Register(Skill{
		Metadata: Metadata{
			Name:         "file-reader",
			Description:  "Reads files",
			Location:     "skills/file-reader",
			AllowedTools: []string{"Read(*)"},
		},
		Instructions: "Read files as needed.",
	})
	return reg
}

func TestDiscoverIsSortedAndMetadataOnly(t *testing.T) {
	reg := newTestRegistry()
	metas := reg.Discover()
	require.Len(t, metas, 2)
	require.Equal(t, "file-reader", metas[0].Name)
	require.Equal(t, "git-helper", metas[1].Name)
}

func TestAvailableSkillsBlockRendersEachEntry(t *testing.T) {
	reg := newTestRegistry()
	block := reg.AvailableSkillsBlock()
	require.Contains(t, block, "<available_skills>")
	require.Contains(t, block, "git-helper: Helps with git operations (skills/git-helper)")
	require.Contains(t, block, "</available_skills>")
}

func TestAvailableSkillsBlockEmptyWhenNoneRegistered(t *testing.T) {
	reg := NewRegistry()
	require.Equal(t, "", reg.AvailableSkillsBlock())
}

func TestFacadeActivateReturnsInstructionsAndGrantsRules(t *testing.T) {
	reg := newTestRegistry()
	f := NewFacade(reg)

	instr, err := f.Activate("git-helper")
	require.NoError(t, err)
	require.Equal(t, "Use git commands carefully.", instr)
	require.True(t, f.IsActive("git-helper"))
	require.Equal(t, []string{"Bash(git:*)"}, f.ActiveAllowPatterns())
}

func TestFacadeActivateUnknownSkillFails(t *testing.T) {
	f := NewFacade(NewRegistry())
	_, err := f.Activate("does-not-exist")
	require.Error(t, err)
}

func TestFacadeRefcountsSharedPatternAcrossSkills(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Skill{Metadata: Metadata{Name: "a", AllowedTools: []string{"Write(/tmp/*)"}}, Instructions: "a"})
	reg.Register(Skill{Metadata: Metadata{Name: "b", AllowedTools: []string{"Write(/tmp/*)"}}, Instructions: "b"})
	f := NewFacade(reg)

	_, err := f.Activate("a")
	require.NoError(t, err)
	_, err = f.Activate("b")
	require.NoError(t, err)
	require.Equal(t, []string{"Write(/tmp/*)"}, f.ActiveAllowPatterns())

	f.Deactivate("a")
	require.Equal(t, []string{"Write(/tmp/*)"}, f.ActiveAllowPatterns(), "pattern survives while b is still active")

	f.Deactivate("b")
	require.Empty(t, f.ActiveAllowPatterns())
}

func TestFacadeActivateIsIdempotentPerSkill(t *testing.T) {
	reg := newTestRegistry()
	f := NewFacade(reg)

	_, err := f.Activate("git-helper")
	require.NoError(t, err)
	_, err = f.Activate("git-helper")
	require.NoError(t, err)
	require.Equal(t, []string{"Bash(git:*)"}, f.ActiveAllowPatterns())

	f.Deactivate("git-helper")
	require.Empty(t, f.ActiveAllowPatterns())
}

func TestFacadeDeactivateUnknownSkillIsNoop(t *testing.T) {
	f := NewFacade(NewRegistry())
	require.NotPanics(t, func() { f.Deactivate("never-activated") })
}

func TestActivateToolLoadsInstructionsAndGrantsRules(t *testing.T) {
	reg := newTestRegistry()
	f := NewFacade(reg)
	at := NewActivateTool(f)

	res, err := at.Call(context.Background(), map[string]any{"skill": "git-helper"})
	require.NoError(t, err)
	require.Equal(t, "Use git commands carefully.", res.Content)
	require.Equal(t, []string{"Bash(git:*)"}, f.ActiveAllowPatterns())

	_, err = at.Call(context.Background(), map[string]any{"skill": "no-such-skill"})
	require.Error(t, err)

	_, err = at.Call(context.Background(), map[string]any{})
	require.Error(t, err)
}
