// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package skills implements progressive-disclosure skill activation
// (§4.10): a name -> Skill catalog whose discovery phase only loads
// lightweight metadata, and an activation phase that loads full
// instructions and grants a session's tool pipeline dynamic permission
// rules for the skill's duration, reference-counted per allow pattern
// so the last activating skill to deactivate is the one that drops it.
package skills

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Metadata is the lightweight record loaded at discovery time, before a
// skill has been activated.
type Metadata struct {
	Name         string
	Description  string
	Location     string
	AllowedTools []string
}

// Skill is a catalog entry: metadata plus the full instructions, which
// only matter once the skill is activated.
type Skill struct {
	Metadata     Metadata
	Instructions string
}

// Registry is the in-memory name -> Skill catalog.
type Registry struct {
	mu   sync.RWMutex
	byName map[string]Skill
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Skill)}
}

// Register adds or replaces the entry for skill.Metadata.Name.
func (r *Registry) Register(skill Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[skill.Metadata.Name] = skill
}

// Lookup returns the skill registered under name, if any.
func (r *Registry) Lookup(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Discover returns every registered skill's metadata, sorted by name —
// the "discovery phase only loads metadata" view (§4.10).
func (r *Registry) Discover() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.byName))
	for _, s := range r.byName {
		out = append(out, s.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AvailableSkillsBlock renders the <available_skills> prompt-injection
// block described in §4.10: one line per registered skill naming its
// name, description, and location.
func (r *Registry) AvailableSkillsBlock() string {
	metas := r.Discover()
	if len(metas) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, m := range metas {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", m.Name, m.Description, m.Location)
	}
	b.WriteString("</available_skills>")
	return b.String()
}

// Facade is the session-scoped activation tracker: it holds the set of
// currently active skills and the reference count of every allow
// pattern those skills have contributed, so two skills naming the same
// pattern don't fight over who owns removing it.
type Facade struct {
	registry *Registry

	mu       sync.Mutex
	active   map[string]bool   // skill name -> activated
	refcount map[string]int    // allow pattern -> activation count
}

// NewFacade builds a Facade backed by registry, with nothing activated.
func NewFacade(registry *Registry) *Facade {
	return &Facade{
		registry: registry,
		active:   make(map[string]bool),
		refcount: make(map[string]int),
	}
}

// Activate loads name's full instructions and, if its metadata declares
// AllowedTools, increments the reference count of each corresponding
// allow pattern. Returns the instructions text to fold into the
// transcript (§4.10 "activate_skill tool").
func (f *Facade) Activate(name string) (string, error) {
	skill, ok := f.registry.Lookup(name)
	if !ok {
		return "", corerr.New("skills.Facade.Activate", corerr.KindInvalidInput, fmt.Sprintf("skill %q not registered", name))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[name] {
		return skill.Instructions, nil
	}
	f.active[name] = true
	for _, pattern := range skill.Metadata.AllowedTools {
		f.refcount[pattern]++
	}
	return skill.Instructions, nil
}

// Deactivate decrements the reference count of name's allow patterns,
// dropping any that reach zero. A no-op if name was never activated.
func (f *Facade) Deactivate(name string) {
	skill, ok := f.registry.Lookup(name)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active[name] {
		return
	}
	delete(f.active, name)
	for _, pattern := range skill.Metadata.AllowedTools {
		if f.refcount[pattern] > 0 {
			f.refcount[pattern]--
		}
		if f.refcount[pattern] == 0 {
			delete(f.refcount, pattern)
		}
	}
}

// ActiveAllowPatterns returns the current set of allow patterns
// contributed by every activated skill — the value installed under
// toolpipeline.SkillRulesKey for PermissionMiddleware to fold in.
func (f *Facade) ActiveAllowPatterns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.refcount))
	for pattern := range f.refcount {
		out = append(out, pattern)
	}
	sort.Strings(out)
	return out
}

// IsActive reports whether name is currently activated.
func (f *Facade) IsActive(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[name]
}
