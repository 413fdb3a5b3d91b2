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

package guardrail

import (
	"context"

	"github.com/fluxgraph/agentcore/pkg/actx"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/step"
	"github.com/fluxgraph/agentcore/pkg/toolpipeline"
)

// Guard attaches g to s — the step modifier form of `.guardrail { … }`
// (§4.6). Running the guarded step merges g under whatever guardrail
// governs the enclosing scope, installs the merged policy where the
// tool pipeline's permission middleware reads it, and installs the
// merged sandbox (if any) as the sandbox middleware's override. The
// original context is untouched, so the inherited configuration is
// restored the moment the guarded step returns.
func Guard[I, O any](g Guardrail, s step.Step[I, O]) step.Step[I, O] {
	return step.Func[I, O](func(ctx context.Context, input I) (O, error) {
		ctx = Enter(ctx, g)
		merged := FromContext(ctx)
		ctx = actx.With(ctx, toolpipeline.GuardrailConfigKey, permission.Config{
			Allow:     merged.Allow,
			Deny:      merged.Deny,
			FinalDeny: merged.FinalDeny,
			Overrides: merged.Override,
		})
		if merged.Sandbox != nil {
			ctx = actx.With(ctx, toolpipeline.SandboxOverrideKey, *merged.Sandbox)
		}
		return s.Run(ctx, input)
	})
}
