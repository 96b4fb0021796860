package gguf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevels(t *testing.T) {
	levels, err := ParseLevels("q4_0,q5_k_m,iq2_xs")
	require.NoError(t, err)
	assert.Equal(t, []Level{"q4_0", "q5_k_m", "iq2_xs"}, levels)
}

func TestParseLevels_PreservesRequestOrder(t *testing.T) {
	levels, err := ParseLevels("q8_0,q2_k,q6_k")
	require.NoError(t, err)
	assert.Equal(t, []Level{"q8_0", "q2_k", "q6_k"}, levels)
}

func TestParseLevels_NormalizesCaseAndSpace(t *testing.T) {
	levels, err := ParseLevels(" Q4_K_M , iq3_S ")
	require.NoError(t, err)
	assert.Equal(t, []Level{"q4_k_m", "iq3_s"}, levels)
}

func TestParseLevels_UnknownLevel(t *testing.T) {
	_, err := ParseLevels("q4_0,q9_z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q9_z")
}

func TestParseLevels_EmptyUsesDefaults(t *testing.T) {
	levels, err := ParseLevels("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLevels(), levels)
}

func TestDefaultLevels(t *testing.T) {
	levels := DefaultLevels()

	assert.Equal(t, []Level{
		"q2_k", "q3_k_s", "q3_k_m", "q3_k_l",
		"q4_0", "q4_1", "q4_k_s", "q4_k_m",
		"q5_0", "q5_1", "q5_k_s", "q5_k_m",
		"q6_k", "q8_0",
	}, levels)

	for _, l := range levels {
		assert.False(t, l.RequiresImatrix(), "default level %s must not need an imatrix", l)
	}
}

func TestLevel_RequiresImatrix(t *testing.T) {
	imatrixLevels := []Level{
		"iq1_s", "iq1_m", "iq2_xxs", "iq2_xs", "iq2_s", "iq2_m",
		"q2_k_s", "iq3_xxs", "iq3_xs", "iq3_s", "iq3_m", "iq4_xs", "iq4_nl",
	}
	for _, l := range imatrixLevels {
		assert.True(t, l.RequiresImatrix(), "%s should need an imatrix", l)
	}
	for _, l := range []Level{"q4_0", "q2_k", "q8_0", "bf16"} {
		assert.False(t, l.RequiresImatrix(), "%s should not need an imatrix", l)
	}
}

func TestRequiresImatrix_AnyLevel(t *testing.T) {
	assert.False(t, RequiresImatrix([]Level{"q4_0", "q8_0"}))
	assert.True(t, RequiresImatrix([]Level{"q4_0", "iq2_xs"}))
	assert.False(t, RequiresImatrix(nil))
}

func TestLevels_CatalogComplete(t *testing.T) {
	assert.Len(t, Levels(), 28)
}

func TestLevel_Tag(t *testing.T) {
	assert.Equal(t, "Q4_K_M", Level("q4_k_m").Tag())
	assert.Equal(t, "IQ2_XXS", Level("iq2_xxs").Tag())
}

func TestParsePrecision(t *testing.T) {
	for _, s := range []string{"f16", "bf16", "f32"} {
		p, err := ParsePrecision(s)
		require.NoError(t, err)
		assert.Equal(t, s, p.String())
	}

	p, err := ParsePrecision("")
	require.NoError(t, err)
	assert.Equal(t, F16, p)

	_, err = ParsePrecision("f64")
	assert.Error(t, err)
}
