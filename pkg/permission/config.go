package permission

import (
	"encoding/json"
	"fmt"
)

// Config is the value-semantics, mergeable permission configuration.
// Handlers are never part of it — they are supplied separately to an
// Evaluator so a Config remains pure data (§4.2, §6).
type Config struct {
	Allow         []string
	Deny          []string
	FinalDeny     []string
	Overrides     []string
	DefaultAction Action
	SessionMemory bool
}

// Default returns the zero-value-safe configuration: empty lists,
// defaultAction "ask", session memory enabled — matching the JSON
// schema's documented defaults (§6).
func Default() Config {
	return Config{DefaultAction: ActionAsk, SessionMemory: true}
}

type document struct {
	Version     int             `json:"version"`
	Permissions permissionsBody `json:"permissions"`
}

type permissionsBody struct {
	Allow                []string `json:"allow,omitempty"`
	Deny                 []string `json:"deny,omitempty"`
	FinalDeny            []string `json:"finalDeny,omitempty"`
	Overrides            []string `json:"overrides,omitempty"`
	DefaultAction        string   `json:"defaultAction,omitempty"`
	EnableSessionMemory  *bool    `json:"enableSessionMemory,omitempty"`
}

// MarshalJSON renders the v1.1 schema documented in §6.
func (c Config) MarshalJSON() ([]byte, error) {
	memory := c.SessionMemory
	doc := document{
		Version: 1,
		Permissions: permissionsBody{
			Allow:               nonNil(c.Allow),
			Deny:                nonNil(c.Deny),
			FinalDeny:           nonNil(c.FinalDeny),
			Overrides:           nonNil(c.Overrides),
			DefaultAction:       string(c.DefaultAction),
			EnableSessionMemory: &memory,
		},
	}
	return json.Marshal(doc)
}

// UnmarshalJSON parses the v1.1 schema, applying the documented defaults:
// missing lists -> [], missing defaultAction -> "ask", missing
// enableSessionMemory -> true. Unknown top-level keys are ignored.
func (c *Config) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("permission: invalid config json: %w", err)
	}

	action := Action(doc.Permissions.DefaultAction)
	if action == "" {
		action = ActionAsk
	}
	if action != ActionAllow && action != ActionDeny && action != ActionAsk {
		return fmt.Errorf("permission: invalid defaultAction %q", doc.Permissions.DefaultAction)
	}

	memory := true
	if doc.Permissions.EnableSessionMemory != nil {
		memory = *doc.Permissions.EnableSessionMemory
	}

	c.Allow = nonNil(doc.Permissions.Allow)
	c.Deny = nonNil(doc.Permissions.Deny)
	c.FinalDeny = nonNil(doc.Permissions.FinalDeny)
	c.Overrides = nonNil(doc.Permissions.Overrides)
	c.DefaultAction = action
	c.SessionMemory = memory
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Merged returns a new config that is the receiver merged with other:
// list fields concatenate with first-occurrence-wins deduplication;
// other's DefaultAction and SessionMemory win (later-wins on scalars).
func (c Config) Merged(other Config) Config {
	return Config{
		Allow:         dedupConcat(c.Allow, other.Allow),
		Deny:          dedupConcat(c.Deny, other.Deny),
		FinalDeny:     dedupConcat(c.FinalDeny, other.FinalDeny),
		Overrides:     dedupConcat(c.Overrides, other.Overrides),
		DefaultAction: other.DefaultAction,
		SessionMemory: other.SessionMemory,
	}
}

func dedupConcat(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [2][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
