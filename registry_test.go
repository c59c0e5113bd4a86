package loopkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/loopkit"
)

type testEvent interface{ kind() string }

type added struct {
	Amount int    `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func (added) kind() string { return "added" }

type cleared struct{}

func (cleared) kind() string { return "cleared" }

func newTestRegistry() *loopkit.Registry[testEvent] {
	reg := loopkit.NewRegistry(func(e testEvent) string { return e.kind() })
	loopkit.Register(reg, "added", func(e added) testEvent { return e })
	loopkit.Register(reg, "cleared", func(e cleared) testEvent { return e })
	return reg
}

func TestRegistry_DecodeMap(t *testing.T) {
	reg := newTestRegistry()

	e, err := reg.DecodeMap("added", map[string]any{"amount": 3, "note": "hi"})
	require.NoError(t, err)
	assert.Equal(t, added{Amount: 3, Note: "hi"}, e)
}

func TestRegistry_DecodeMapUnknownKind(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.DecodeMap("nope", nil)
	assert.ErrorContains(t, err, `unknown event kind "nope"`)
}

func TestRegistry_DecodeMapBadPayload(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.DecodeMap("added", map[string]any{"amount": "not a number"})
	assert.Error(t, err)
}

func TestRegistry_EncodeDecodeRoundTrip(t *testing.T) {
	reg := newTestRegistry()

	kind, payload, err := reg.Encode(added{Amount: 7})
	require.NoError(t, err)
	assert.Equal(t, "added", kind)

	e, err := reg.Decode(kind, payload)
	require.NoError(t, err)
	assert.Equal(t, added{Amount: 7}, e)
}

func TestRegistry_DecodeEmptyPayload(t *testing.T) {
	reg := newTestRegistry()

	e, err := reg.Decode("cleared", nil)
	require.NoError(t, err)
	assert.Equal(t, cleared{}, e)
}

func TestRegistry_KindsSorted(t *testing.T) {
	reg := newTestRegistry()
	assert.Equal(t, []string{"added", "cleared"}, reg.Kinds())
}
