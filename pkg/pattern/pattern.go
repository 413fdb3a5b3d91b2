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

// Package pattern implements the permission-rule grammar: tool-name
// matching with trailing-wildcard prefixes, and argument matching by
// exact string, delimiter-aware prefix, or file-path glob.
package pattern

import (
	"fmt"
	"path"
	"strings"
)

// delimiters are the characters that may follow a "prefix:*" match's
// prefix for it to still count as a boundary-respecting match.
var delimiters = map[byte]bool{
	' ':  true,
	'-':  true,
	'\t': true,
	';':  true,
	'|':  true,
	'&':  true,
	'\n': true,
	'/':  true,
}

// Pattern is a parsed permission pattern: "ToolName" or
// "ToolName(argPattern)" or "*" or "prefix*".
type Pattern struct {
	raw      string
	toolGlob string // tool-name portion, may end in "*"
	hasArg   bool
	argKind  argKind
	argLit   string // exact or prefix literal, or the glob string
}

type argKind int

const (
	argNone argKind = iota
	argExact
	argPrefix
	argGlob
)

// Parse parses a pattern string per the grammar:
//
//	pattern  := toolPart [ "(" argPart ")" ]
//	toolPart := IDENT [ "*" ] | "*"
//	argPart  := EXACT | PREFIX ":" "*" | GLOB
func Parse(raw string) (Pattern, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Pattern{}, fmt.Errorf("pattern: empty pattern")
	}

	toolPart := s
	argPart := ""
	hasArg := false
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Pattern{}, fmt.Errorf("pattern: %q: unterminated argument group", raw)
		}
		toolPart = s[:idx]
		argPart = s[idx+1 : len(s)-1]
		hasArg = true
	}
	if toolPart == "" {
		return Pattern{}, fmt.Errorf("pattern: %q: missing tool name", raw)
	}

	p := Pattern{raw: raw, toolGlob: toolPart, hasArg: hasArg}
	if !hasArg {
		return p, nil
	}

	switch {
	case strings.HasSuffix(argPart, ":*"):
		p.argKind = argPrefix
		p.argLit = strings.TrimSuffix(argPart, ":*")
	case strings.ContainsRune(argPart, '*'):
		p.argKind = argGlob
		p.argLit = argPart
	default:
		p.argKind = argExact
		p.argLit = argPart
	}
	return p, nil
}

// MustParse parses a pattern, panicking on error. Intended for literal
// patterns embedded in code (e.g. defaults), never for user input.
func MustParse(raw string) Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.raw }

// MatchTool reports whether toolName matches the pattern's tool portion.
// "*" matches everything; "prefix*" matches any tool name beginning with
// prefix; otherwise an exact, case-sensitive match is required.
func MatchTool(toolGlob, toolName string) bool {
	if toolGlob == "*" {
		return true
	}
	if strings.HasSuffix(toolGlob, "*") {
		return strings.HasPrefix(toolName, strings.TrimSuffix(toolGlob, "*"))
	}
	// MCP wildcard form mcp__server__* is handled by the trailing-"*" case
	// above; an exact tool name otherwise.
	return toolGlob == toolName
}

// Match reports whether (toolName, arg) is matched by the pattern. arg is
// ignored when the pattern carries no argument clause — any argument
// value matches a bare tool pattern. Glob clauses are file-path patterns,
// so the argument is canonicalized (resolving "." and "..") before
// matching: "/tmp/../etc/passwd" is evaluated as "/etc/passwd".
func (p Pattern) Match(toolName, arg string) bool {
	if !MatchTool(p.toolGlob, toolName) {
		return false
	}
	if !p.hasArg {
		return true
	}
	switch p.argKind {
	case argExact:
		return arg == p.argLit
	case argPrefix:
		return matchPrefix(p.argLit, arg)
	case argGlob:
		ok, _ := path.Match(p.argLit, Canonicalize(arg))
		return ok
	default:
		return true
	}
}

// matchPrefix implements the "prefix:*" rule: prefix matches prefix
// exactly, or prefix followed immediately by a delimiter and anything.
func matchPrefix(prefix, arg string) bool {
	if arg == prefix {
		return true
	}
	if !strings.HasPrefix(arg, prefix) {
		return false
	}
	rest := arg[len(prefix):]
	if rest == "" {
		return true
	}
	return delimiters[rest[0]]
}

// Covers reports whether every (toolName, arg) pair matched by target is
// also matched by p — used by guardrail merge to decide whether an
// override rule suppresses a particular inherited deny rule (§4.6).
// Coverage on the tool portion requires p's glob to be at least as broad
// as target's; coverage on the argument portion requires p to carry no
// argument clause (a blanket override) or an identical clause.
func (p Pattern) Covers(target Pattern) bool {
	if !toolGlobCovers(p.toolGlob, target.toolGlob) {
		return false
	}
	if !p.hasArg {
		return true
	}
	if !target.hasArg {
		return false
	}
	return p.argKind == target.argKind && p.argLit == target.argLit
}

func toolGlobCovers(p, target string) bool {
	if p == "*" {
		return true
	}
	if target == p {
		return true
	}
	if strings.HasSuffix(p, "*") {
		prefix := strings.TrimSuffix(p, "*")
		if strings.HasSuffix(target, "*") {
			return strings.HasPrefix(strings.TrimSuffix(target, "*"), prefix)
		}
		return strings.HasPrefix(target, prefix)
	}
	return false
}

// Canonicalize resolves "." and ".." segments in a file path the way the
// permission engine must before evaluating a file-path pattern, so that
// "Write(/tmp/../etc/passwd)" is evaluated as "/etc/passwd".
func Canonicalize(p string) string {
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	return cleaned
}
