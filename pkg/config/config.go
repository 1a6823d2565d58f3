// Package config implements corvid's host embedding surface (spec §6.1):
// the small set of entry points a host program calls to drive the
// compiler/runtime without linking against pkg/vm directly. Grounded on
// the teacher's cmd/smog/main.go run/compile/disassemble flow, lifted out
// of main() into a reusable library the way a C-style embedding API
// would need, since main() itself cannot be called back into by a host.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/builtins"
	"github.com/kristofer/corvid/pkg/compiler"
	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/object"
	"github.com/kristofer/corvid/pkg/parser"
	"github.com/kristofer/corvid/pkg/serialize"
	"github.com/kristofer/corvid/pkg/vm"
)

// Config mirrors §6.1's recognized JSON keys exactly.
type Config struct {
	File       string `json:"file"`
	Source     string `json:"source"`
	ShowTokens bool   `json:"show_tokens"`
	ShowAST    bool   `json:"show_ast"`
	ShowIR     bool   `json:"show_ir"`
	ShowBC     bool   `json:"show_bc"`
	Verbose    bool   `json:"verbose"`
}

// Host is one embedding session: a config, the VM it drives, and the last
// compiled code object (so compile() and interpret() can share the same
// compiled-but-not-yet-run artifact).
type Host struct {
	Config Config
	VM     *vm.VM
	code   *object.Code
}

// InitConfig parses jsonConfig per §6.1 and returns a fresh Host wired to
// a new VM and its own event bus/event loop.
func InitConfig(jsonConfig string) (*Host, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonConfig), &cfg); err != nil {
		return nil, errors.Wrap(err, "init_config")
	}
	v := vm.New()
	builtins.Install(v.Builtins, v.Bus)
	return &Host{Config: cfg, VM: v}, nil
}

// EventbusSubscribe/Unsubscribe/Publish pass through to the host's bus
// verbatim — null callbacks and id 0 are handled by pkg/eventbus itself.
func (h *Host) EventbusSubscribe(kind eventbus.Kind, fn eventbus.Subscriber) uint64 {
	return h.VM.Bus.Subscribe(kind, fn)
}

func (h *Host) EventbusUnsubscribe(id uint64) { h.VM.Bus.Unsubscribe(id) }

func (h *Host) EventbusPublish(kind eventbus.Kind, data string) { h.VM.Bus.Publish(kind, data) }

func (h *Host) source() (string, error) {
	if h.Config.Source != "" {
		return h.Config.Source, nil
	}
	if h.Config.File == "" {
		return "", errors.New("config: neither file nor source is set")
	}
	data, err := os.ReadFile(h.Config.File)
	if err != nil {
		return "", errors.Wrap(err, "config: reading file")
	}
	return string(data), nil
}

func (h *Host) outputPath() string {
	if h.Config.File == "" {
		return "out.crb"
	}
	if i := strings.LastIndexByte(h.Config.File, '.'); i >= 0 {
		return h.Config.File[:i] + ".crb"
	}
	return h.Config.File + ".crb"
}

// compileCurrent runs the front end (lexer is driven internally by
// parser.New) over the configured input, caching the result on h.code.
func (h *Host) compileCurrent() (*object.Code, error) {
	src, err := h.source()
	if err != nil {
		return nil, err
	}
	p, err := parser.New(src)
	if err != nil {
		return nil, errors.Wrap(err, "compile: lex")
	}
	prog, err := p.Parse()
	if err != nil {
		return nil, errors.Wrap(err, "compile: parse")
	}
	code, err := compiler.CompileModule(prog)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}
	h.code = code
	return code, nil
}

// Compile implements §6.1's `compile()`: compiles the current input and
// writes a .crb file alongside the source.
func (h *Host) Compile() error {
	code, err := h.compileCurrent()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := serialize.NewWriter(&buf)
	if err := w.WriteValue(code); err != nil {
		return errors.Wrap(err, "compile: serialize")
	}
	if err := os.WriteFile(h.outputPath(), buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "compile: write")
	}
	return nil
}

// Interpret implements §6.1's `interpret()`: compiles and executes.
func (h *Host) Interpret() (object.Value, error) {
	code, err := h.compileCurrent()
	if err != nil {
		return nil, err
	}
	return h.VM.RunModule(code)
}

// InterpretBytecode implements §6.1's `interpret_bytecode()`: reads a .crb
// file and executes it directly, skipping the front end entirely.
func (h *Host) InterpretBytecode() (object.Value, error) {
	data, err := os.ReadFile(h.Config.File)
	if err != nil {
		return nil, errors.Wrap(err, "interpret_bytecode: read")
	}
	r := serialize.NewReader(bytes.NewReader(data))
	v, err := r.ReadValue()
	if err != nil {
		return nil, errors.Wrap(err, "interpret_bytecode: deserialize")
	}
	code, ok := v.(*object.Code)
	if !ok {
		return nil, errors.New("interpret_bytecode: file does not contain a code object")
	}
	h.code = code
	return h.VM.RunModule(code)
}
