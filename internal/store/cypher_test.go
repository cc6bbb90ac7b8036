package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/ontograph/internal/core/errs"
)

func TestBuilder_QuotesDeclaredNames(t *testing.T) {
	b := NewBuilder(testSchema(t))

	l, err := b.Label("Person")
	assert.NoError(t, err)
	assert.Equal(t, "`Person`", l)

	r, err := b.RelType("SAME_AS")
	assert.NoError(t, err)
	assert.Equal(t, "`SAME_AS`", r)

	f, err := b.Field("_hash")
	assert.NoError(t, err)
	assert.Equal(t, "`_hash`", f)
}

func TestBuilder_RejectsUndeclaredAndUnsafeNames(t *testing.T) {
	b := NewBuilder(testSchema(t))

	for _, name := range []string{"Person`) DETACH DELETE n //", "Vehicle", "", "1Person"} {
		_, err := b.Label(name)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, name)
	}
	_, err := b.RelType("KNOWS")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = b.Field("password")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestBuilder_Depth(t *testing.T) {
	b := NewBuilder(testSchema(t))
	for _, d := range []int{1, 2, 3} {
		got, err := b.Depth(d)
		assert.NoError(t, err)
		assert.Equal(t, d, got)
	}
	for _, d := range []int{0, -1, 4} {
		_, err := b.Depth(d)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	}
}
