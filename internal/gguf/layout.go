package gguf

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout resolves where a model's artifacts live on disk. All artifacts for
// one model share a directory named after the model's short name, and file
// names use the lowercased short name. The layout is fixed at startup and
// read-only afterwards.
type Layout struct {
	ModelID   string
	Name      string
	Precision Precision

	fpOverride      string
	imatrixOverride string
}

// NewLayout derives the artifact layout for a model. The short name is the
// segment after the owner prefix in ids like "mistralai/Mistral-7B-v0.1";
// an id without an owner prefix is used as-is. Non-empty fp and imatrix
// paths override the derived locations.
func NewLayout(modelID string, precision Precision, fpOverride, imatrixOverride string) Layout {
	name := modelID
	if parts := strings.Split(modelID, "/"); len(parts) >= 2 && parts[1] != "" {
		name = parts[1]
	}
	return Layout{
		ModelID:         modelID,
		Name:            name,
		Precision:       precision,
		fpOverride:      fpOverride,
		imatrixOverride: imatrixOverride,
	}
}

// Dir is the directory all derived artifacts are written to.
func (l Layout) Dir() string { return l.Name }

func (l Layout) lowerName() string { return strings.ToLower(l.Name) }

// FullPrecisionPath is the location of the full-precision GGUF file, either
// derived as <name>/<name>.<precision>.gguf or the explicit override.
func (l Layout) FullPrecisionPath() string {
	if l.fpOverride != "" {
		return l.fpOverride
	}
	return filepath.Join(l.Name, fmt.Sprintf("%s.%s.gguf", l.lowerName(), l.Precision))
}

// FullPrecisionOverridden reports whether an existing full-precision file was
// supplied, which skips the download and conversion stages.
func (l Layout) FullPrecisionOverridden() bool { return l.fpOverride != "" }

// ImatrixPath is the location of the importance matrix, either derived as
// <name>/<name>.imatrix or the explicit override.
func (l Layout) ImatrixPath() string {
	if l.imatrixOverride != "" {
		return l.imatrixOverride
	}
	return filepath.Join(l.Name, l.lowerName()+".imatrix")
}

// ImatrixOverridden reports whether an existing importance matrix was
// supplied, which skips the generation stage.
func (l Layout) ImatrixOverridden() bool { return l.imatrixOverride != "" }

// QuantPath is the final location of a quantized artifact,
// <name>/<name>.<TAG>.gguf.
func (l Layout) QuantPath(q Level) string {
	return filepath.Join(l.Name, fmt.Sprintf("%s.%s.gguf", l.lowerName(), q.Tag()))
}

// PendingPath is the in-progress location a quantized artifact is written to
// before its atomic rename into QuantPath.
func (l Layout) PendingPath(q Level) string { return l.QuantPath(q) + ".pending" }

// HubRepo is the target repository id for publication, <user>/<name>-GGUF.
func (l Layout) HubRepo(user string) string {
	return fmt.Sprintf("%s/%s-GGUF", user, l.Name)
}
