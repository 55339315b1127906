// Package bridge models a kernel/firmware message-passing protocol: a
// tagged-union command set exchanged over a single ordered channel
// between the WASI-running sandbox ("kernel") and the DOM-owning host
// ("firmware"), plus the element-descriptor allocator and process state
// machine the protocol depends on.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/wahpkg/wah/api"
)

// ElementDescriptor aliases api.ElementDescriptor for brevity within this
// package.
type ElementDescriptor = api.ElementDescriptor

// Selector is one entry of an element-select command's selector list.
type Selector struct {
	ByID        *string `json:"by-id,omitempty"`
	ByClassName *string `json:"by-class-name,omitempty"`
	ByTagName   *string `json:"by-tag-name,omitempty"`
	Multi       bool    `json:"multi,omitempty"`
}

// ElementSelect is the kernel->firmware "element-select" command.
type ElementSelect struct {
	ED        ElementDescriptor `json:"ed"`
	Selectors []Selector        `json:"selectors"`
}

// ElementInsert is the kernel->firmware "element-insert" command.
type ElementInsert struct {
	ED        ElementDescriptor `json:"ed"`
	InnerHTML string            `json:"innerHTML"`
}

// ElementReplace is the kernel->firmware "element-replace" command. It
// implicitly releases ED once applied.
type ElementReplace struct {
	ED        ElementDescriptor `json:"ed"`
	OuterHTML string            `json:"outerHTML"`
}

// ElementExec is the kernel->firmware "element-exec" command. RetED, if
// set, names the descriptor a "completed" reply should be posted to.
type ElementExec struct {
	ED    ElementDescriptor  `json:"ed"`
	Fn    string             `json:"fn"`
	Args  []any              `json:"args"`
	RetED *ElementDescriptor `json:"ret_ed,omitempty"`
}

// CreateProc is the kernel->firmware "create-proc" command.
type CreateProc struct {
	Executable *string   `json:"executable,omitempty"`
	Args       []string  `json:"args"`
	Env        []string  `json:"env"`
	Stdin      IOBinding `json:"stdin"`
	Stdout     IOBinding `json:"stdout"`
	Stderr     IOBinding `json:"stderr"`
	FID        string    `json:"fid"`
}

// Reap is the firmware->kernel "reap" command: the one-shot resolution
// of a pending process handle.
type Reap struct {
	FID    string `json:"fid"`
	Status *int   `json:"status"`
	Stdout []byte `json:"stdout,omitempty"`
	Stderr []byte `json:"stderr,omitempty"`
}

// ModuleLoad is the firmware->kernel "module" command.
type ModuleLoad struct {
	Module  []byte            `json:"module"`
	Type    string            `json:"type"`
	Options map[string]any    `json:"options,omitempty"`
	ED      ElementDescriptor `json:"ed"`
}

// RunLevel is the kernel->firmware capability-readiness announcement.
type RunLevel struct {
	Boot       *int `json:"boot,omitempty"`
	Filesystem *int `json:"filesystem,omitempty"`
	CreateProc *int `json:"create-proc,omitempty"`
}

// ErrorSignal is the out-of-band fault message either side may post.
type ErrorSignal struct {
	Message string `json:"message"`
}

// Completed is the firmware->kernel reply to an element-exec bearing a
// ret_ed, or to a module load.
type Completed struct {
	ED     ElementDescriptor `json:"ed"`
	Result any               `json:"result,omitempty"`
	Error  *string           `json:"error,omitempty"`
}

// Message is a decoded bridge message: exactly one of the typed fields
// below is non-nil, since every message is an object with exactly one
// known key.
type Message struct {
	Key string

	ElementSelect  *ElementSelect
	ElementInsert  *ElementInsert
	ElementReplace *ElementReplace
	ElementExec    *ElementExec
	CreateProc     *CreateProc
	Reap           *Reap
	Module         *ModuleLoad
	RunLevel       *RunLevel
	Error          *ErrorSignal
	Completed      *Completed
}

// messageKeys lists every recognized wire key name. DecodeMessage counts
// how many of them a message carries, then dispatches on the single one
// found.
var messageKeys = []string{
	"element-select", "element-insert", "element-replace", "element-exec",
	"create-proc", "reap", "module", "run-level", "error", "completed",
}

// DecodeMessage parses data as a tagged-union Message, failing with
// ErrMultiKeyMessage when the top-level object doesn't carry exactly one
// recognized key.
func DecodeMessage(data []byte) (*Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("bridge: invalid message envelope: %w", err)
	}

	var key string
	count := 0
	for _, k := range messageKeys {
		if _, ok := raw[k]; ok {
			key = k
			count++
		}
	}
	if count != 1 {
		return nil, api.ErrMultiKeyMessage
	}

	m := &Message{Key: key}
	var err error
	switch key {
	case "element-select":
		m.ElementSelect = &ElementSelect{}
		err = json.Unmarshal(raw[key], m.ElementSelect)
	case "element-insert":
		m.ElementInsert = &ElementInsert{}
		err = json.Unmarshal(raw[key], m.ElementInsert)
	case "element-replace":
		m.ElementReplace = &ElementReplace{}
		err = json.Unmarshal(raw[key], m.ElementReplace)
	case "element-exec":
		m.ElementExec = &ElementExec{}
		err = json.Unmarshal(raw[key], m.ElementExec)
	case "create-proc":
		m.CreateProc = &CreateProc{}
		err = json.Unmarshal(raw[key], m.CreateProc)
	case "reap":
		m.Reap = &Reap{}
		err = json.Unmarshal(raw[key], m.Reap)
	case "module":
		m.Module = &ModuleLoad{}
		err = json.Unmarshal(raw[key], m.Module)
	case "run-level":
		m.RunLevel = &RunLevel{}
		err = json.Unmarshal(raw[key], m.RunLevel)
	case "error":
		m.Error = &ErrorSignal{}
		err = json.Unmarshal(raw[key], m.Error)
	case "completed":
		m.Completed = &Completed{}
		err = json.Unmarshal(raw[key], m.Completed)
	}
	if err != nil {
		return nil, fmt.Errorf("bridge: decoding %q payload: %w", key, err)
	}
	return m, nil
}

// Encode serializes m back to its single-key wire form.
func (m *Message) Encode() ([]byte, error) {
	var payload any
	switch m.Key {
	case "element-select":
		payload = m.ElementSelect
	case "element-insert":
		payload = m.ElementInsert
	case "element-replace":
		payload = m.ElementReplace
	case "element-exec":
		payload = m.ElementExec
	case "create-proc":
		payload = m.CreateProc
	case "reap":
		payload = m.Reap
	case "module":
		payload = m.Module
	case "run-level":
		payload = m.RunLevel
	case "error":
		payload = m.Error
	case "completed":
		payload = m.Completed
	default:
		return nil, fmt.Errorf("bridge: message has no key set")
	}
	return json.Marshal(map[string]any{m.Key: payload})
}
