package llm

import "strings"

// segment is one piece of a Prompt or Instructions document: either a
// static string or the result of a conditional/loop builder step
// evaluated at build time.
type segment struct {
	text string
}

// Prompt is an ordered, immutable sequence of text segments (§3). Built
// with a PromptBuilder closure; value semantics once returned from
// Build.
type Prompt struct {
	segments []segment
}

// Instructions is the system-level counterpart to Prompt, assembled the
// same way and attached to a LanguageModelSession at construction.
type Instructions struct {
	segments []segment
}

// String renders the segments concatenated in order, each on its own
// line when more than one segment is present.
func (p Prompt) String() string { return render(p.segments) }

// String renders Instructions the same way as Prompt.
func (ins Instructions) String() string { return render(ins.segments) }

func render(segments []segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.text == "" {
			continue
		}
		parts = append(parts, s.text)
	}
	return strings.Join(parts, "\n")
}

// Builder accumulates segments for a Prompt or Instructions document —
// the "segment builder" named in §3: static strings, conditionals, and
// loops over values all reduce to appending text.
type Builder struct {
	segments []segment
}

// NewBuilder starts an empty segment builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Text appends a static string segment.
func (b *Builder) Text(s string) *Builder {
	b.segments = append(b.segments, segment{text: s})
	return b
}

// If appends a segment only when cond holds — the conditional case of
// the segment builder.
func (b *Builder) If(cond bool, s string) *Builder {
	if cond {
		b.segments = append(b.segments, segment{text: s})
	}
	return b
}

// ForEach appends one segment per item via render, in order — the loop
// case of the segment builder.
func ForEach[T any](b *Builder, items []T, render func(T) string) *Builder {
	for _, item := range items {
		b.segments = append(b.segments, segment{text: render(item)})
	}
	return b
}

// BuildPrompt finalizes the builder into an immutable Prompt.
func (b *Builder) BuildPrompt() Prompt {
	return Prompt{segments: append([]segment(nil), b.segments...)}
}

// BuildInstructions finalizes the builder into immutable Instructions.
func (b *Builder) BuildInstructions() Instructions {
	return Instructions{segments: append([]segment(nil), b.segments...)}
}

// PromptRepresentable is implemented by an input type I that can derive
// its own Prompt, letting GenerateText<I> skip an explicit
// PromptBuilder closure (§4.7).
type PromptRepresentable interface {
	ToPrompt() Prompt
}

// PromptBuilder derives a Prompt from an arbitrary input value.
type PromptBuilder[I any] func(I) Prompt
