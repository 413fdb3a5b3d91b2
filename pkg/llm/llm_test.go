package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply string
}

func (f *fakeProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition, opts Options) (Response, error) {
	return Response{Text: f.reply}, nil
}

func (f *fakeProvider) GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition, opts Options) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{Content: f.reply[:len(f.reply)/2]}
	ch <- StreamChunk{Content: f.reply[len(f.reply)/2:], Done: true}
	close(ch)
	return ch, nil
}

func (f *fakeProvider) ModelName() string { return "fake-model" }
func (f *fakeProvider) MaxTokens() int    { return 4096 }

func TestBuilderAssemblesSegments(t *testing.T) {
	b := NewBuilder().Text("line one").If(false, "skipped").If(true, "line two")
	ForEach(b, []string{"a", "b"}, func(s string) string { return "item: " + s })
	p := b.BuildPrompt()
	require.Equal(t, "line one\nline two\nitem: a\nitem: b", p.String())
}

func TestGenerateTextAppendsTranscript(t *testing.T) {
	sess := NewSession(&fakeProvider{reply: "hello there"}, Instructions{}, nil, Options{})
	out, err := sess.GenerateText(context.Background(), NewBuilder().Text("hi").BuildPrompt())
	require.NoError(t, err)
	require.Equal(t, "hello there", out)

	transcript := sess.Transcript()
	require.Len(t, transcript, 2)
	require.Equal(t, RoleUser, transcript[0].Role)
	require.Equal(t, RoleAssistant, transcript[1].Role)
}

func TestGenerateStructuredRequiresStructuredProvider(t *testing.T) {
	sess := NewSession(&fakeProvider{reply: "x"}, Instructions{}, nil, Options{})
	_, err := sess.GenerateStructured(context.Background(), Prompt{}, map[string]any{"type": "object"})
	require.Error(t, err)
}

func TestStreamAccumulatesAndRecordsFinalContent(t *testing.T) {
	sess := NewSession(&fakeProvider{reply: "streamed reply"}, Instructions{}, nil, Options{})
	chunks, err := sess.Stream(context.Background(), NewBuilder().Text("go").BuildPrompt())
	require.NoError(t, err)

	var got string
	for c := range chunks {
		got += c.Content
	}
	require.Equal(t, "streamed reply", got)

	transcript := sess.Transcript()
	require.Equal(t, "streamed reply", transcript[len(transcript)-1].Content)
}

func TestSessionContextRoundTrip(t *testing.T) {
	sess := NewSession(&fakeProvider{reply: "x"}, Instructions{}, nil, Options{})
	ctx := WithSession(context.Background(), sess)

	got, err := SessionFromContext(ctx)
	require.NoError(t, err)
	require.Same(t, sess, got)

	_, err = SessionFromContext(context.Background())
	require.Error(t, err)
}
