package bridge

import (
	"context"
	"fmt"
	"sync"
)

// Element is the firmware-side record of a DOM element bound to an
// element descriptor.
type Element struct {
	ED        ElementDescriptor
	Bound     bool
	InnerHTML string
	OuterHTML string
	Released  bool
}

// Observer is an optional hook invoked with every message a Simulator
// applies, the way experimental/logging.Listener observes every host
// function call without altering behavior.
type Observer func(m *Message)

// Simulator is an in-memory firmware stand-in: it applies kernel
// messages to a DOM-shaped model without a real browser, so message
// ordering is testable headlessly. A create-proc only records a pending
// Process; the Simulator never settles it.
type Simulator struct {
	mu          sync.Mutex
	elements    map[ElementDescriptor]*Element
	procs       map[string]*Process
	applied     []string
	completions chan Message

	Observer Observer
}

// NewSimulator returns an empty Simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		elements:    map[ElementDescriptor]*Element{},
		procs:       map[string]*Process{},
		completions: make(chan Message, 64),
	}
}

// Apply applies a single kernel->firmware message to the model.
func (s *Simulator) Apply(m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Observer != nil {
		s.Observer(m)
	}

	switch m.Key {
	case "element-select":
		s.elements[m.ElementSelect.ED] = &Element{ED: m.ElementSelect.ED, Bound: true}
		s.applied = append(s.applied, fmt.Sprintf("select:%d", m.ElementSelect.ED))

	case "element-insert":
		el := s.elementFor(m.ElementInsert.ED)
		el.InnerHTML = m.ElementInsert.InnerHTML
		s.applied = append(s.applied, fmt.Sprintf("insert:%d", m.ElementInsert.ED))

	case "element-replace":
		el := s.elementFor(m.ElementReplace.ED)
		el.OuterHTML = m.ElementReplace.OuterHTML
		el.Released = true
		s.applied = append(s.applied, fmt.Sprintf("replace:%d", m.ElementReplace.ED))

	case "element-exec":
		s.applied = append(s.applied, fmt.Sprintf("exec:%d", m.ElementExec.ED))
		if m.ElementExec.RetED != nil {
			s.completions <- Message{Key: "completed", Completed: &Completed{ED: *m.ElementExec.RetED}}
		}

	case "create-proc":
		s.procs[m.CreateProc.FID] = NewProcess(m.CreateProc.FID)
		s.applied = append(s.applied, "create-proc:"+m.CreateProc.FID)

	case "run-level":
		s.applied = append(s.applied, "run-level")

	case "error":
		s.applied = append(s.applied, "error:"+m.Error.Message)

	default:
		return fmt.Errorf("bridge: firmware cannot apply message key %q", m.Key)
	}
	return nil
}

func (s *Simulator) elementFor(ed ElementDescriptor) *Element {
	el, ok := s.elements[ed]
	if !ok {
		el = &Element{ED: ed}
		s.elements[ed] = el
	}
	return el
}

// Run consumes in, applying each message strictly in channel order on a
// single goroutine (the ordered-message-port model), until ctx is
// cancelled or in is closed.
func (s *Simulator) Run(ctx context.Context, in <-chan *Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-in:
			if !ok {
				return nil
			}
			if err := s.Apply(m); err != nil {
				return err
			}
		}
	}
}

// Completions returns the firmware->kernel channel of "completed"
// replies posted by element-exec calls bearing a ret_ed.
func (s *Simulator) Completions() <-chan Message {
	return s.completions
}

// Applied returns a snapshot of the order log, for asserting that
// same-ed messages apply in send order.
func (s *Simulator) Applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.applied))
	copy(out, s.applied)
	return out
}

// Element returns the current bound state of ed.
func (s *Simulator) Element(ed ElementDescriptor) (Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[ed]
	if !ok {
		return Element{}, false
	}
	return *el, true
}
