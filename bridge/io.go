package bridge

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wahpkg/wah/api"
)

// IOBinding is one of stdin/stdout/stderr's three shapes: `{file: path}`,
// `{pipe: bool}`, `{null: true}`. Exactly one field may be populated.
type IOBinding struct {
	File *string `json:"file,omitempty"`
	Pipe *bool   `json:"pipe,omitempty"`
	Null *bool   `json:"null,omitempty"`
}

// Resolve validates b and returns the filesystem path it binds to,
// synthesizing an anonymous pipe path ("io-<uuid>") when b is a pipe
// binding.
func (b IOBinding) Resolve() (string, error) {
	set := 0
	if b.File != nil {
		set++
	}
	if b.Pipe != nil {
		set++
	}
	if b.Null != nil {
		set++
	}
	if set != 1 {
		return "", fmt.Errorf("bridge: io binding must set exactly one of file/pipe/null, got %d: %w", set, api.ErrBadIoBinding)
	}

	switch {
	case b.File != nil:
		return *b.File, nil
	case b.Pipe != nil && *b.Pipe:
		return "io-" + uuid.NewString(), nil
	case b.Null != nil && *b.Null:
		return "/dev/null", nil
	default:
		return "", fmt.Errorf("bridge: io binding disabled its only populated field: %w", api.ErrBadIoBinding)
	}
}
