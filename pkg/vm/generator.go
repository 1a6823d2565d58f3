package vm

import (
	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// ResumeGenerator implements §4.5/§4.7's send(v): push v onto the paused
// frame's evaluation stack (so the last YIELD_VALUE resumes with v as its
// produced expression's context) and continue running until the next
// YIELD_VALUE or RETURN_VALUE. done reports exhaustion.
func (vm *VM) ResumeGenerator(gen *object.Generator, sendValue object.Value) (value object.Value, done bool, err error) {
	switch gen.State {
	case object.GenFinished:
		return nil, true, nil
	case object.GenRunning:
		return nil, false, errors.New("ValueError: generator already executing")
	case object.GenSuspended:
		gen.Frame.Push(sendValue)
	}

	gen.State = object.GenRunning
	result, yielded, err := vm.runFrame(gen.Frame)
	if err != nil {
		gen.State = object.GenFinished
		return nil, true, err
	}
	if yielded {
		gen.State = object.GenSuspended
		return result, false, nil
	}
	gen.State = object.GenFinished
	return result, true, nil
}
