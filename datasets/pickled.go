package datasets

import (
	"fmt"

	"github.com/nlpodyssey/gopickle/types"
)

// PickledObject is a Python object rebuilt from a state blob without
// knowing its class. Simulator states (named tuples holding numpy arrays)
// decode into trees of these; the reader keeps them opaque.
type PickledObject struct {
	Module string
	Name   string
	// Args passed to the class on REDUCE or NEWOBJ.
	Args []any
	// State set by BUILD, nil if none.
	State any
}

func (o *PickledObject) String() string {
	return fmt.Sprintf("%s.%s%v", o.Module, o.Name, o.Args)
}

// PySetState records the BUILD state. It makes the object settable by the
// unpickler's BUILD opcode.
func (o *PickledObject) PySetState(state any) error {
	o.State = state
	return nil
}

// pickledClass stands in for every global the unpickler cannot resolve.
// Calling or instantiating it yields a *PickledObject.
type pickledClass struct {
	module, name string
}

var (
	_ types.Callable  = (*pickledClass)(nil)
	_ types.PyNewable = (*pickledClass)(nil)
)

func findPickledClass(module, name string) (any, error) {
	return &pickledClass{module: module, name: name}, nil
}

func (c *pickledClass) Call(args ...any) (any, error) {
	return c.newObject(args), nil
}

func (c *pickledClass) PyNew(args ...any) (any, error) {
	return c.newObject(args), nil
}

func (c *pickledClass) newObject(args []any) *PickledObject {
	return &PickledObject{Module: c.module, Name: c.name, Args: append([]any(nil), args...)}
}
