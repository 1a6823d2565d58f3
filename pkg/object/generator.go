package object

// GeneratorState mirrors a coroutine's lifecycle (§4.7): created but not
// yet started, suspended at a YIELD_VALUE, running (re-entrancy guard), and
// finished (either by RETURN_VALUE or falling off the end of the code).
type GeneratorState int

const (
	GenCreated GeneratorState = iota
	GenSuspended
	GenRunning
	GenFinished
)

// Generator is the suspended-frame value produced by calling a function
// whose Code.IsGenerator is set. send()/next() resume it from where
// YIELD_VALUE parked the frame; pkg/vm owns the resumption logic, this
// type just carries the state.
type Generator struct {
	Header

	Name  string
	Frame *Frame
	State GeneratorState
	// SendValue is not read by pkg/vm: ResumeGenerator pushes the sent
	// value straight onto Frame's stack, where it becomes the result of the
	// YIELD_VALUE being resumed.
	SendValue Value
}

func NewGenerator(name string, frame *Frame) *Generator {
	g := &Generator{Name: name, Frame: frame, State: GenCreated}
	g.setClass(GeneratorClass)
	return g
}

func init() {
	GeneratorClass.Slots.Iter = func(self Value) (Value, error) { return self, nil }
}
