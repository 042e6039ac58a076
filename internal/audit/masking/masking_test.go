package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "sub_****7890", MaskSecret("sub_1234567890"))
	assert.Equal(t, "****7890", MaskSecret("1234567890"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "o****@acme.test", MaskEmail("owner@acme.test"))
	assert.Equal(t, "****", MaskEmail("@x"))
}

func TestMaskJSONNested(t *testing.T) {
	out := MaskJSON(map[string]any{
		"subscription_id": "sub_1234567890",
		"email":           "owner@acme.test",
		"count":           3,
		"nested":          map[string]any{"token": "tok_abcdefgh"},
		"":                "dropped",
	})
	assert.Equal(t, "sub_****7890", out["subscription_id"])
	assert.Equal(t, "o****@acme.test", out["email"])
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, map[string]any{"token": "tok_****efgh"}, out["nested"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskJSON(nil))
}
