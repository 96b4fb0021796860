package gguf

import "fmt"

// Precision is the floating-point format of the full-precision GGUF file
// produced by the conversion step, in the lowercase form the convert script
// accepts for --outtype.
type Precision string

const (
	F16  Precision = "f16"
	BF16 Precision = "bf16"
	F32  Precision = "f32"
)

func (p Precision) String() string { return string(p) }

// ParsePrecision parses a --full-precision value. An empty string yields F16.
func ParsePrecision(s string) (Precision, error) {
	switch Precision(s) {
	case "":
		return F16, nil
	case F16, BF16, F32:
		return Precision(s), nil
	default:
		return "", fmt.Errorf("unknown precision %q (expected f16, bf16 or f32)", s)
	}
}
