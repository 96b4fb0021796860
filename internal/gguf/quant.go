package gguf

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// Level is a quantization level tag in the lowercase form llama-quantize
// accepts on its command line, e.g. "q4_k_m" or "iq2_xs".
type Level string

func (l Level) String() string { return string(l) }

// Tag returns the uppercased form used in artifact file names, e.g. "Q4_K_M".
func (l Level) Tag() string { return strings.ToUpper(string(l)) }

// RequiresImatrix reports whether quantizing to this level needs an
// importance matrix file.
func (l Level) RequiresImatrix() bool { return catalog[l].Imatrix }

// RequiresImatrix reports whether any of the given levels needs an
// importance matrix.
func RequiresImatrix(levels []Level) bool {
	for _, l := range levels {
		if l.RequiresImatrix() {
			return true
		}
	}
	return false
}

//go:embed quants.yaml
var quantsYAML []byte

type levelSpec struct {
	Tag     string `yaml:"tag"`
	Default bool   `yaml:"default"`
	Imatrix bool   `yaml:"imatrix"`
}

var (
	catalog      map[Level]levelSpec
	catalogOrder []Level
)

func init() {
	raw := struct {
		Levels []levelSpec `yaml:"levels"`
	}{}
	if err := yaml.Unmarshal(quantsYAML, &raw); err != nil {
		panic(fmt.Sprintf("parsing embedded quant catalog: %v", err))
	}
	catalog = make(map[Level]levelSpec, len(raw.Levels))
	for _, spec := range raw.Levels {
		catalog[Level(spec.Tag)] = spec
		catalogOrder = append(catalogOrder, Level(spec.Tag))
	}
}

// Levels returns every known quantization level in catalog order.
func Levels() []Level {
	out := make([]Level, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// DefaultLevels returns the levels used when no explicit quant list is
// requested: every non-imatrix k-quant and legacy quant, in catalog order.
func DefaultLevels() []Level {
	var out []Level
	for _, l := range catalogOrder {
		if catalog[l].Default {
			out = append(out, l)
		}
	}
	return out
}

// ParseLevels parses a comma-separated quant list such as "q4_0,q5_k_m",
// preserving request order. Tags are matched case-insensitively. An empty
// string yields the default level set.
func ParseLevels(s string) ([]Level, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultLevels(), nil
	}
	var out []Level
	for _, part := range strings.Split(s, ",") {
		tag := Level(strings.ToLower(strings.TrimSpace(part)))
		if tag == "" {
			continue
		}
		if _, ok := catalog[tag]; !ok {
			return nil, fmt.Errorf("unknown quant level %q", part)
		}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("quant list %q contains no levels", s)
	}
	return out, nil
}
