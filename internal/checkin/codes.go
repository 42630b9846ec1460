package checkin

import (
	"crypto/rand"
)

// codeAlphabet omits glyphs parents and leaders misread on the panel
// (0/O, 1/I/L). 31 symbols at length 4 gives ~920k codes against rooms of at
// most a few hundred live records.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 4

// CodeGenerator mints security codes. Uniqueness among live records is the
// store's job; the generator only supplies candidates.
type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator { return &CodeGenerator{} }

func (g *CodeGenerator) Generate() string {
	buf := make([]byte, codeLength)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
