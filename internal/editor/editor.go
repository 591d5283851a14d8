package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is the coarse editor state
type State string

const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// Box is the rendered vertical extent of a component on the canvas
type Box struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DropIndex returns the insertion index for a drop at vertical position y:
// the first component whose bottom edge lies below y, else the end.
func DropIndex(y float64, boxes []Box) int {
	for i, b := range boxes {
		if b.Bottom > y {
			return i
		}
	}
	return len(boxes)
}

// Editor holds the ordered components of one email and the current selection
type Editor struct {
	mu         sync.RWMutex
	components []Component
	selected   string
	newID      func() string
}

// New creates an editor holding components
func New(components ...Component) *Editor {
	e := &Editor{newID: uuid.NewString}
	e.components = cloneComponents(components)
	return e
}

// State reports whether the editor has any components
func (e *Editor) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.components) == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// Len returns the number of components
func (e *Editor) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.components)
}

// Components returns a copy of the components in order
func (e *Editor) Components() []Component {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneComponents(e.components)
}

// Get returns the component with the given id
func (e *Editor) Get(id string) (Component, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if i := e.index(id); i >= 0 {
		return cloneComponent(e.components[i]), true
	}
	return Component{}, false
}

// Insert adds a component with a fresh id at position at, clamped to
// [0, len]. Any id already present on props is ignored.
func (e *Editor) Insert(props Props, at int) (Component, error) {
	if props == nil {
		return Component{}, fmt.Errorf("%w: nil props", ErrUnknownKind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if at < 0 {
		at = 0
	}
	if at > len(e.components) {
		at = len(e.components)
	}

	c := Component{ID: e.newID(), Props: cloneProps(props)}
	e.components = append(e.components, Component{})
	copy(e.components[at+1:], e.components[at:])
	e.components[at] = c

	return cloneComponent(c), nil
}

// Update merges fields into the props of component id. Unknown ids are a
// no-op. A field the component type does not have fails with
// ErrInvalidField and leaves the component unchanged.
func (e *Editor) Update(id string, fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return nil
	}

	props := cloneProps(e.components[i].Props)
	if err := props.apply(fields); err != nil {
		return err
	}
	e.components[i].Props = props
	return nil
}

// Delete removes component id and clears the selection if it pointed at it
func (e *Editor) Delete(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return
	}
	e.components = append(e.components[:i], e.components[i+1:]...)
	if e.selected == id {
		e.selected = ""
	}
}

// Select makes id the only selected component. An empty or unknown id
// clears the selection.
func (e *Editor) Select(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == "" || e.index(id) < 0 {
		e.selected = ""
		return
	}
	e.selected = id
}

// Selected returns the selected component id, or ""
func (e *Editor) Selected() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selected
}

// Replace swaps the whole component list and clears the selection
func (e *Editor) Replace(components []Component) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.components = cloneComponents(components)
	e.selected = ""
}

// Serialize renders the components into a complete HTML document
func (e *Editor) Serialize(chrome Chrome) (string, error) {
	return Serialize(e.Components(), chrome)
}

func (e *Editor) index(id string) int {
	for i, c := range e.components {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func cloneComponent(c Component) Component {
	return Component{ID: c.ID, Props: cloneProps(c.Props)}
}

func cloneComponents(src []Component) []Component {
	out := make([]Component, len(src))
	for i, c := range src {
		out[i] = cloneComponent(c)
	}
	return out
}
