package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArgsMissingRequired(t *testing.T) {
	c := DefaultCatalog()
	d, _ := c.Get(ToolMove)
	err := ValidateArgs(d, map[string]interface{}{"actor": "pc.arin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to")
}

func TestValidateArgsEnum(t *testing.T) {
	c := DefaultCatalog()
	d, _ := c.Get(ToolMove)
	err := ValidateArgs(d, map[string]interface{}{
		"actor": "pc.arin", "to": "hall", "method": "teleport",
	})
	require.Error(t, err)

	err = ValidateArgs(d, map[string]interface{}{
		"actor": "pc.arin", "to": "hall", "method": "sneak",
	})
	require.NoError(t, err)
}

func TestValidateArgsTypeMismatch(t *testing.T) {
	c := DefaultCatalog()
	d, _ := c.Get(ToolMove)
	err := ValidateArgs(d, map[string]interface{}{"actor": 42, "to": "hall"})
	require.Error(t, err)
}

func TestSanitizeArgsDefaultsAndClamps(t *testing.T) {
	c := DefaultCatalog()
	d, _ := c.Get(ToolAskRoll)
	out := SanitizeArgs(d, map[string]interface{}{
		"actor":   "  pc.arin  ",
		"action":  "sneak",
		"domain":  "D8",
		"style":   7,
		"dc_hint": 99,
	})
	assert.Equal(t, "pc.arin", out["actor"])
	assert.Equal(t, "d8", out["domain"])
	assert.Equal(t, 3, out["style"], "style clamps to [0,3]")
	assert.Equal(t, 25, out["dc_hint"], "dc_hint clamps to [5,25]")
	assert.Equal(t, 0, out["adv_style_delta"], "default applied")
}

func TestSanitizeArgsDoesNotMutateInput(t *testing.T) {
	c := DefaultCatalog()
	d, _ := c.Get(ToolAskRoll)
	in := map[string]interface{}{"actor": " pc.arin ", "action": "sneak"}
	_ = SanitizeArgs(d, in)
	assert.Equal(t, " pc.arin ", in["actor"])
}

func TestStringListArg(t *testing.T) {
	args := map[string]interface{}{
		"single": "npc.guard",
		"many":   []interface{}{"npc.a", "npc.b"},
		"typed":  []string{"npc.c"},
	}
	assert.Equal(t, []string{"npc.guard"}, StringListArg(args, "single"))
	assert.Equal(t, []string{"npc.a", "npc.b"}, StringListArg(args, "many"))
	assert.Equal(t, []string{"npc.c"}, StringListArg(args, "typed"))
	assert.Nil(t, StringListArg(args, "absent"))
}

func TestScalarArgHelpers(t *testing.T) {
	args := map[string]interface{}{"n": 5, "f": 2.0, "s": "x", "b": true}
	assert.Equal(t, 5, IntArg(args, "n", 0))
	assert.Equal(t, 2, IntArg(args, "f", 0))
	assert.Equal(t, 9, IntArg(args, "missing", 9))
	assert.Equal(t, "x", StringArg(args, "s", "d"))
	assert.Equal(t, "d", StringArg(args, "missing", "d"))
	assert.True(t, BoolArg(args, "b", false))
	assert.False(t, BoolArg(args, "missing", false))
}
