package wasiconfig

import (
	"fmt"

	"github.com/wahpkg/wah/api"
)

// Config is the realized configuration object the evaluator builds:
// `{ args, env, fds, WASI, wasm_module }`. Bytecode programs build it
// incrementally via Get/Set against ops[0]; each Set writes straight into
// these typed fields, so there is no separate realize step.
type Config struct {
	Args       []string
	Env        map[string]string
	Fds        [4]Handle
	WASIShim   string // opaque shim handle name; the model doesn't run a shim
	WASMModule []byte
}

// NewConfig returns a zero-value Config ready to be populated by a
// bytecode program.
func NewConfig() *Config {
	return &Config{Env: map[string]string{}}
}

// field implements the "get" side of ops[0]'s indexable contract.
func (c *Config) field(key string) (any, error) {
	switch key {
	case "args":
		out := make([]any, len(c.Args))
		for i, a := range c.Args {
			out[i] = a
		}
		return out, nil
	case "env":
		return c.Env, nil
	case "fds":
		out := make([]any, len(c.Fds))
		for i, h := range c.Fds {
			out[i] = h
		}
		return out, nil
	case "WASI":
		return c.WASIShim, nil
	case "wasm_module":
		return c.WASMModule, nil
	default:
		return nil, fmt.Errorf("wasiconfig: unknown configuration field %q: %w", key, api.ErrBadOperand)
	}
}

// setField implements the "set" side of ops[0]'s indexable contract.
func (c *Config) setField(key string, what any) error {
	switch key {
	case "args":
		args, err := toStringList(what)
		if err != nil {
			return err
		}
		c.Args = args
		return nil
	case "env":
		env, ok := what.(map[string]string)
		if !ok {
			return fmt.Errorf("wasiconfig: configuration.env must be a string map: %w", api.ErrBadOperand)
		}
		c.Env = env
		return nil
	case "fds":
		handles, err := toHandleList(what)
		if err != nil {
			return err
		}
		copy(c.Fds[:], handles)
		return nil
	case "WASI":
		s, ok := what.(string)
		if !ok {
			return fmt.Errorf("wasiconfig: configuration.WASI must be a string: %w", api.ErrBadOperand)
		}
		c.WASIShim = s
		return nil
	case "wasm_module":
		b, ok := what.([]byte)
		if !ok {
			return fmt.Errorf("wasiconfig: configuration.wasm_module must be bytes: %w", api.ErrBadOperand)
		}
		c.WASMModule = b
		return nil
	default:
		return fmt.Errorf("wasiconfig: unknown configuration field %q: %w", key, api.ErrBadOperand)
	}
}

func toStringList(v any) ([]string, error) {
	switch l := v.(type) {
	case *[]any:
		return stringsFromAny(*l)
	case []any:
		return stringsFromAny(l)
	case string:
		return []string{l}, nil
	default:
		return nil, fmt.Errorf("wasiconfig: expected a list value: %w", api.ErrBadOperand)
	}
}

func stringsFromAny(l []any) ([]string, error) {
	out := make([]string, len(l))
	for i, v := range l {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("wasiconfig: list element %d is not a string: %w", i, api.ErrBadOperand)
		}
		out[i] = s
	}
	return out, nil
}

func toHandleList(v any) ([]Handle, error) {
	var src []any
	switch l := v.(type) {
	case *[]any:
		src = *l
	case []any:
		src = l
	default:
		return nil, fmt.Errorf("wasiconfig: expected a list value: %w", api.ErrBadOperand)
	}
	out := make([]Handle, len(src))
	for i, v := range src {
		if v == nil {
			continue
		}
		h, ok := v.(Handle)
		if !ok {
			return nil, fmt.Errorf("wasiconfig: fds element %d is not a handle: %w", i, api.ErrBadOperand)
		}
		out[i] = h
	}
	return out, nil
}
