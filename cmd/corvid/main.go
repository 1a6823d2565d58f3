// Command corvid is the reference CLI front end, grounded on the
// teacher's cmd/smog/main.go run/compile/disassemble/repl dispatch but
// retargeted at corvid's own file extensions (.cr source, .crb
// bytecode) and extended with the §6.1 diagnostic toggles.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"

	"github.com/kristofer/corvid/pkg/builtins"
	"github.com/kristofer/corvid/pkg/compiler"
	"github.com/kristofer/corvid/pkg/config"
	"github.com/kristofer/corvid/pkg/disasm"
	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/lexer"
	"github.com/kristofer/corvid/pkg/object"
	"github.com/kristofer/corvid/pkg/parser"
	"github.com/kristofer/corvid/pkg/serialize"
	"github.com/kristofer/corvid/pkg/vm"
)

const version = "0.1.0"

// flags holds the diagnostic toggles shared by run/compile. They carry the
// same names as pkg/config's show_*/verbose keys, but only the CLI acts on
// them: pkg/config parses those keys and never reads them afterwards, and a
// .crb run honors only -verbose.
type flags struct {
	showTokens bool
	showAST    bool
	showIR     bool
	showBC     bool
	verbose    bool
}

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("corvid version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		args := os.Args[2:]
		fl, rest := parseFlags(args)
		if len(rest) < 1 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(1)
		}
		runFile(rest[0], fl)
	case "compile":
		args := os.Args[2:]
		fl, rest := parseFlags(args)
		if len(rest) < 1 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: corvid compile <input.cr> [output.crb]")
			os.Exit(1)
		}
		out := ""
		if len(rest) >= 2 {
			out = rest[1]
		}
		compileFile(rest[0], out, fl)
	case "disassemble", "disasm":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: corvid disassemble <file.crb>")
			os.Exit(1)
		}
		disassembleFile(os.Args[2])
	default:
		fl, rest := parseFlags(os.Args[1:])
		if len(rest) < 1 {
			printUsage()
			os.Exit(1)
		}
		runFile(rest[0], fl)
	}
}

// parseFlags pulls §6.1's diagnostic switches out of a raw argument list
// by hand, since the teacher never reaches for the flag package either.
func parseFlags(args []string) (flags, []string) {
	var fl flags
	var rest []string
	for _, a := range args {
		switch a {
		case "-show-tokens":
			fl.showTokens = true
		case "-show-ast":
			fl.showAST = true
		case "-show-ir":
			fl.showIR = true
		case "-show-bc":
			fl.showBC = true
		case "-verbose", "-v":
			fl.verbose = true
		default:
			rest = append(rest, a)
		}
	}
	return fl, rest
}

func printUsage() {
	fmt.Println("corvid - a dynamically-typed scripting language runtime")
	fmt.Println("\nUsage:")
	fmt.Println("  corvid                        Start interactive REPL")
	fmt.Println("  corvid [file]                 Run a .cr or .crb file")
	fmt.Println("  corvid run [file]             Run a .cr or .crb file")
	fmt.Println("  corvid compile <in> [out]     Compile .cr to .crb bytecode")
	fmt.Println("  corvid disassemble <file>     Disassemble a .crb bytecode file")
	fmt.Println("  corvid repl                   Start interactive REPL")
	fmt.Println("  corvid version                Show version")
	fmt.Println("  corvid help                   Show this help")
	fmt.Println("\nDiagnostic flags (run/compile):")
	fmt.Println("  -show-tokens   Print the token stream before parsing")
	fmt.Println("  -show-ast      Print the parsed AST before compiling")
	fmt.Println("  -show-ir       Print the lowered form before bytecode emission")
	fmt.Println("  -show-bc       Print the disassembled bytecode before running")
	fmt.Println("  -verbose       Also echo LOG_INFO output to stderr")
	fmt.Println("\nFile Extensions:")
	fmt.Println("  .cr   Source code files (text)")
	fmt.Println("  .crb   Compiled bytecode files (binary)")
}

// installLogSubscribers wires stdout/stderr per §6.3's "the host installs
// subscribers": LOG_INFO goes to stdout, everything else to stderr, and
// -verbose additionally echoes the raw event kind.
func installLogSubscribers(bus *eventbus.Bus, verbose bool) {
	bus.Subscribe(eventbus.LogInfo, func(data string) {
		fmt.Println(data)
		if verbose {
			fmt.Fprintf(os.Stderr, "[LOG_INFO] %s\n", data)
		}
	})
	for _, kind := range []eventbus.Kind{eventbus.LogWarning, eventbus.LogError, eventbus.LogDebug} {
		k := kind
		bus.Subscribe(k, func(data string) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", k, data)
		})
	}
	bus.Subscribe(eventbus.ExitProgram, func(data string) {
		fmt.Fprintf(os.Stderr, "exit: %s\n", data)
	})
}

func runFile(filename string, fl flags) {
	ext := filepath.Ext(filename)
	if ext == ".crb" {
		runBytecodeFile(filename, fl)
		return
	}
	runSourceFile(filename, fl)
}

func runSourceFile(filename string, fl flags) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	code, ok := frontEnd(string(data), fl)
	if !ok {
		os.Exit(1)
	}

	v := vm.New()
	builtins.Install(v.Builtins, v.Bus)
	installLogSubscribers(v.Bus, fl.verbose)
	if _, err := v.RunModule(code); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

// frontEnd drives lex → parse → compile, printing any diagnostics the
// caller requested along the way. Returns ok=false once an error has
// already been reported to stderr.
func frontEnd(src string, fl flags) (*object.Code, bool) {
	if fl.showTokens {
		l := lexer.New(src)
		toks, err := l.Tokenize()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lex error: %v\n", err)
			return nil, false
		}
		fmt.Println("=== Tokens ===")
		for _, t := range toks {
			fmt.Printf("  %-10s %q (line %d)\n", t.Type, t.Literal, t.Line)
		}
	}

	p, err := parser.New(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lex error: %v\n", err)
		return nil, false
	}
	prog, err := p.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		for _, e := range p.Errors() {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		return nil, false
	}
	if fl.showAST {
		fmt.Println("=== AST ===")
		fmt.Printf("%# v\n", pretty.Formatter(prog))
	}
	if fl.showIR {
		// The compiler folds AST→IR lowering and IR→bytecode emission into
		// a single pass (see DESIGN.md), so the lowered form is the same
		// tree shown under -show-ast.
		fmt.Println("=== IR (lowered AST) ===")
		fmt.Printf("%# v\n", pretty.Formatter(prog))
	}

	code, err := compiler.CompileModule(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		return nil, false
	}
	if fl.showBC {
		fmt.Println("=== Bytecode ===")
		fmt.Print(disasm.Disassemble(code))
	}
	return code, true
}

func runBytecodeFile(filename string, fl flags) {
	h, err := config.InitConfig(fmt.Sprintf(`{"file":%q}`, filename))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	installLogSubscribers(h.VM.Bus, fl.verbose)
	if _, err := h.InterpretBytecode(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

func compileFile(inputFile, outputFile string, fl flags) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	code, ok := frontEnd(string(data), fl)
	if !ok {
		os.Exit(1)
	}

	if outputFile == "" {
		if filepath.Ext(inputFile) == ".cr" {
			outputFile = inputFile[:len(inputFile)-3] + ".crb"
		} else {
			outputFile = inputFile + ".crb"
		}
	}

	var buf bytes.Buffer
	w := serialize.NewWriter(&buf)
	if err := w.WriteValue(code); err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing bytecode: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outputFile, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing bytecode: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Compiled %s -> %s\n", inputFile, outputFile)
	fmt.Println(disasm.SizeReport(outputFile, buf.Len()))
}

func disassembleFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	r := serialize.NewReader(bytes.NewReader(data))
	v, err := r.ReadValue()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}
	code, ok := v.(*object.Code)
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: file does not contain a code object")
		os.Exit(1)
	}
	fmt.Printf("=== Bytecode Disassembly: %s ===\n\n", filename)
	fmt.Print(disasm.Disassemble(code))
}

// runREPL starts an interactive read-compile-run loop. Grounded on the
// teacher's runREPL/evalREPL pair, with go-isatty gating whether the
// prompt is worth decorating (a pipe fed REPL shouldn't print one at all
// in a way that confuses a script consuming its output).
func runREPL() {
	interactive := isatty.IsTerminal(os.Stdout.Fd())
	if interactive {
		fmt.Printf("corvid REPL v%s\n", version)
		fmt.Println("Type 'exit' or Ctrl-D to quit")
	}

	v := vm.New()
	builtins.Install(v.Builtins, v.Bus)
	installLogSubscribers(v.Bus, false)
	globals := make(map[string]object.Value)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print(">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		evalREPL(v, globals, line)
	}
	if interactive {
		fmt.Println()
	}
}

func evalREPL(v *vm.VM, globals map[string]object.Value, input string) {
	p, err := parser.New(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lex error: %v\n", err)
		return
	}
	prog, err := p.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		return
	}
	code, err := compiler.CompileModule(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		return
	}
	result, err := v.RunModuleIn(code, globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		return
	}
	if result != nil && result != object.None {
		fmt.Println(displayValue(result))
	}
}

func displayValue(v object.Value) string {
	class := v.Class()
	if class.Native && class.Slots.Repr != nil {
		if s, err := class.Slots.Repr(v); err == nil {
			return s
		}
	}
	if class.Native && class.Slots.Str != nil {
		if s, err := class.Slots.Str(v); err == nil {
			return s
		}
	}
	return fmt.Sprintf("<%s object>", class.Name)
}
