package checkin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGenerator_Generate(t *testing.T) {
	gen := NewCodeGenerator()

	for i := 0; i < 100; i++ {
		code := gen.Generate()
		require.Len(t, code, codeLength)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
	}
}

func TestCodeGenerator_NoAmbiguousGlyphs(t *testing.T) {
	for _, glyph := range []string{"0", "O", "1", "I", "L"} {
		assert.False(t, strings.Contains(codeAlphabet, glyph),
			"alphabet must not contain %s", glyph)
	}
}

func TestCodeGenerator_Varies(t *testing.T) {
	gen := NewCodeGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[gen.Generate()] = true
	}
	// 31^4 codes; 50 draws collapsing to a handful would mean a broken source.
	assert.Greater(t, len(seen), 40)
}
