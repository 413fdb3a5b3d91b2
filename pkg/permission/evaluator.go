package permission

import (
	"context"
	"sync"
)

// Evaluator holds a compiled Config plus session memory and runs the
// six-phase decision documented in §4.2:
//
//  1. finalDeny  2. session memory  3. overrides  4. deny  5. allow  6. default
type Evaluator struct {
	mu     sync.RWMutex
	config Config

	finalDeny []Rule
	deny      []Rule
	allow     []Rule
	overrides []Rule

	memoryMu sync.RWMutex
	memory   map[string]bool // key -> true (allowAlways) / false (denyAlways)

	handler Handler
}

// NewEvaluator compiles cfg's patterns and attaches an optional
// interactive handler (nil is valid: "ask" degrades to PermissionDenied
// with reason "no handler", per §7).
func NewEvaluator(cfg Config, handler Handler) (*Evaluator, error) {
	e := &Evaluator{handler: handler, memory: make(map[string]bool)}
	if err := e.SetConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// SetConfig recompiles the evaluator's rule sets, e.g. after a hot
// reload from disk (see Watcher). Session memory is preserved.
func (e *Evaluator) SetConfig(cfg Config) error {
	finalDeny, err := compileRules(cfg.FinalDeny)
	if err != nil {
		return err
	}
	deny, err := compileRules(cfg.Deny)
	if err != nil {
		return err
	}
	allow, err := compileRules(cfg.Allow)
	if err != nil {
		return err
	}
	overrides, err := compileRules(cfg.Overrides)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg
	e.finalDeny = finalDeny
	e.deny = deny
	e.allow = allow
	e.overrides = overrides
	return nil
}

// Config returns the evaluator's current configuration.
func (e *Evaluator) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

func memoryKey(req Request) string {
	return req.ToolName + "\x00" + req.ArgKey
}

// Evaluate runs the phases against req and, if the result is "ask",
// invokes the handler (if any). A handler's "always" decisions are
// recorded in session memory when the config enables it.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Outcome, error) {
	e.mu.RLock()
	finalDeny, deny, allow, overrides := e.finalDeny, e.deny, e.allow, e.overrides
	cfg := e.config
	e.mu.RUnlock()

	// Phase 1: finalDeny, never bypassable (I4).
	if rule, ok := matchAny(finalDeny, req.ToolName, req.ArgKey); ok {
		return Outcome{Action: ActionDeny, Rule: rule.Raw, Reason: "finalDeny"}, nil
	}

	// Phase 2: session memory.
	if cfg.SessionMemory {
		e.memoryMu.RLock()
		remembered, ok := e.memory[memoryKey(req)]
		e.memoryMu.RUnlock()
		if ok {
			if remembered {
				return Outcome{Action: ActionAllow, Reason: "sessionMemory"}, nil
			}
			return Outcome{Action: ActionDeny, Reason: "sessionMemory"}, nil
		}
	}

	// Phase 3: overrides suppress a matching deny.
	_, overrideMatched := matchAny(overrides, req.ToolName, req.ArgKey)

	// Phase 4: deny.
	if !overrideMatched {
		if rule, ok := matchAny(deny, req.ToolName, req.ArgKey); ok {
			return Outcome{Action: ActionDeny, Rule: rule.Raw, Reason: "deny"}, nil
		}
	}

	// Phase 5: allow.
	if rule, ok := matchAny(allow, req.ToolName, req.ArgKey); ok {
		return Outcome{Action: ActionAllow, Rule: rule.Raw, Reason: "allow"}, nil
	}

	// Phase 6: default action.
	switch cfg.DefaultAction {
	case ActionAllow:
		return Outcome{Action: ActionAllow, Reason: "default"}, nil
	case ActionDeny:
		return Outcome{Action: ActionDeny, Reason: "default"}, nil
	default:
		return e.ask(ctx, req, cfg.SessionMemory)
	}
}

func (e *Evaluator) ask(ctx context.Context, req Request, sessionMemory bool) (Outcome, error) {
	if e.handler == nil {
		return Outcome{Action: ActionDeny, Reason: "no handler"}, nil
	}

	decision, err := e.handler.RequestDecision(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation during a prompt yields denial without
			// recording a decision (§5 "Cancellation").
			return Outcome{Action: ActionDeny, Reason: "cancelled"}, ctx.Err()
		}
		return Outcome{}, err
	}

	switch decision {
	case DecisionAllowOnce:
		return Outcome{Action: ActionAllow, Reason: "user allowed once"}, nil
	case DecisionAllowAlways:
		if sessionMemory {
			e.remember(req, true)
		}
		return Outcome{Action: ActionAllow, Reason: "user allowed always"}, nil
	case DecisionDenyOnce:
		return Outcome{Action: ActionDeny, Reason: "user denied once"}, nil
	case DecisionDenyAlways:
		if sessionMemory {
			e.remember(req, false)
		}
		return Outcome{Action: ActionDeny, Reason: "user denied always"}, nil
	case DecisionCancel:
		return Outcome{Action: ActionDeny, Reason: "user cancelled"}, nil
	default:
		return Outcome{Action: ActionDeny, Reason: "unknown decision"}, nil
	}
}

func (e *Evaluator) remember(req Request, allow bool) {
	e.memoryMu.Lock()
	defer e.memoryMu.Unlock()
	e.memory[memoryKey(req)] = allow
}

// ClearSessionMemory drops all remembered always-decisions.
func (e *Evaluator) ClearSessionMemory() {
	e.memoryMu.Lock()
	defer e.memoryMu.Unlock()
	e.memory = make(map[string]bool)
}

// EvaluateWithExtraAllow runs Evaluate as usual, but phase 5 ("allow")
// also matches against extraAllow — dynamic rules contributed by an
// activated skill (§4.10) that are not part of the static Config and so
// are recompiled per call rather than cached.
func (e *Evaluator) EvaluateWithExtraAllow(ctx context.Context, req Request, extraAllow []string) (Outcome, error) {
	return e.EvaluateWithExtra(ctx, req, Config{Allow: extraAllow})
}

// EvaluateWithExtra runs the six phases against the static config with
// extra's rule lists concatenated per phase — the mechanism behind both
// skill-granted allow rules (§4.10) and guardrail policies installed by
// an enclosing guarded step (§4.6). extra's DefaultAction and
// SessionMemory are ignored; those remain session-level concerns.
func (e *Evaluator) EvaluateWithExtra(ctx context.Context, req Request, extra Config) (Outcome, error) {
	if len(extra.Allow) == 0 && len(extra.Deny) == 0 && len(extra.FinalDeny) == 0 && len(extra.Overrides) == 0 {
		return e.Evaluate(ctx, req)
	}

	extraFinalDeny, err := compileRules(extra.FinalDeny)
	if err != nil {
		return Outcome{}, err
	}
	extraDeny, err := compileRules(extra.Deny)
	if err != nil {
		return Outcome{}, err
	}
	extraAllow, err := compileRules(extra.Allow)
	if err != nil {
		return Outcome{}, err
	}
	extraOverrides, err := compileRules(extra.Overrides)
	if err != nil {
		return Outcome{}, err
	}

	e.mu.RLock()
	finalDeny := concatRules(e.finalDeny, extraFinalDeny)
	deny := concatRules(e.deny, extraDeny)
	allow := concatRules(e.allow, extraAllow)
	overrides := concatRules(e.overrides, extraOverrides)
	cfg := e.config
	e.mu.RUnlock()

	if rule, ok := matchAny(finalDeny, req.ToolName, req.ArgKey); ok {
		return Outcome{Action: ActionDeny, Rule: rule.Raw, Reason: "finalDeny"}, nil
	}
	if cfg.SessionMemory {
		e.memoryMu.RLock()
		remembered, ok := e.memory[memoryKey(req)]
		e.memoryMu.RUnlock()
		if ok {
			if remembered {
				return Outcome{Action: ActionAllow, Reason: "sessionMemory"}, nil
			}
			return Outcome{Action: ActionDeny, Reason: "sessionMemory"}, nil
		}
	}
	_, overrideMatched := matchAny(overrides, req.ToolName, req.ArgKey)
	if !overrideMatched {
		if rule, ok := matchAny(deny, req.ToolName, req.ArgKey); ok {
			return Outcome{Action: ActionDeny, Rule: rule.Raw, Reason: "deny"}, nil
		}
	}
	if rule, ok := matchAny(allow, req.ToolName, req.ArgKey); ok {
		return Outcome{Action: ActionAllow, Rule: rule.Raw, Reason: "allow"}, nil
	}

	switch cfg.DefaultAction {
	case ActionAllow:
		return Outcome{Action: ActionAllow, Reason: "default"}, nil
	case ActionDeny:
		return Outcome{Action: ActionDeny, Reason: "default"}, nil
	default:
		return e.ask(ctx, req, cfg.SessionMemory)
	}
}

func concatRules(a, b []Rule) []Rule {
	if len(b) == 0 {
		return a
	}
	out := make([]Rule, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
