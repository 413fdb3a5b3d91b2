package actx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

var testKey = NewKey[string]("test")

func TestWithGet(t *testing.T) {
	ctx := With(context.Background(), testKey, "value")
	v, ok := Get(ctx, testKey)
	require.True(t, ok)
	require.Equal(t, "value", v)
}

func TestRequireMissingErrors(t *testing.T) {
	_, err := Require(context.Background(), testKey)
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindContextMissing))
}

func TestOptionalMissingYieldsZero(t *testing.T) {
	require.Equal(t, "", Optional(context.Background(), testKey))
}

func TestNestedShadowing(t *testing.T) {
	outer := With(context.Background(), testKey, "outer")
	inner := With(outer, testKey, "inner")

	v, _ := Get(inner, testKey)
	require.Equal(t, "inner", v)

	v, _ = Get(outer, testKey)
	require.Equal(t, "outer", v)
}
