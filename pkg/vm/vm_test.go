package vm

import (
	"strings"
	"testing"

	"github.com/kristofer/corvid/pkg/builtins"
	"github.com/kristofer/corvid/pkg/compiler"
	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/object"
	"github.com/kristofer/corvid/pkg/parser"
)

// run compiles src as a module and executes it against a fresh globals
// map, returning that map for inspection. A module's own bytecode always
// ends with an implicit `return None` (see compiler.CompileModule), so
// tests observe results by reading bindings out of globals rather than
// from RunModuleIn's return value.
func run(t *testing.T, src string) map[string]object.Value {
	t.Helper()
	p, err := parser.New(src)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	code, err := compiler.CompileModule(prog)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	v := New()
	builtins.Install(v.Builtins, v.Bus)
	globals := make(map[string]object.Value)
	if _, err := v.RunModuleIn(code, globals); err != nil {
		t.Fatalf("RunModuleIn: %v", err)
	}
	return globals
}

// runCapturingLogs is like run but also collects every LOG_INFO line
// (what corvid's `print` publishes), in order, for tests that assert on
// observable program output rather than on a globals binding.
func runCapturingLogs(t *testing.T, src string) []string {
	t.Helper()
	p, err := parser.New(src)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	code, err := compiler.CompileModule(prog)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	v := New()
	builtins.Install(v.Builtins, v.Bus)
	var logs []string
	v.Bus.Subscribe(eventbus.LogInfo, func(data string) {
		logs = append(logs, data)
	})
	if _, err := v.RunModuleIn(code, make(map[string]object.Value)); err != nil {
		t.Fatalf("RunModuleIn: %v", err)
	}
	return logs
}

// TestGeneratorRange exercises spec §8's generator scenario: a function
// containing `yield` compiles to a generator (ast.FunctionDef.IsGenerator),
// and driving it with `for` resumes it through FOR_ITER/vm.next's
// *object.Generator special case until it's exhausted.
func TestGeneratorRange(t *testing.T) {
	src := `
def count_up(n):
    i = 0
    while i < n:
        yield i
        i = i + 1

total = 0
for v in count_up(5):
    total = total + v
`
	globals := run(t, src)
	total, ok := globals["total"]
	if !ok {
		t.Fatalf("total not bound")
	}
	got := total.(*object.Int).V.Int64()
	if got != 10 { // 0+1+2+3+4
		t.Errorf("total = %d, want 10", got)
	}
}

// TestGeneratorEarlyNext checks that a generator resumes with the locals
// it left behind rather than restarting, by taking its first two values on
// successive iterations of one for loop and breaking out after the second.
func TestGeneratorEarlyNext(t *testing.T) {
	src := `
def evens():
    i = 0
    while True:
        yield i
        i = i + 2

g = evens()
first = 0
second = 0
n = 0
for v in g:
    if n == 0:
        first = v
    if n == 1:
        second = v
        break
    n = n + 1
`
	globals := run(t, src)
	if got := globals["first"].(*object.Int).V.Int64(); got != 0 {
		t.Errorf("first = %d, want 0", got)
	}
	if got := globals["second"].(*object.Int).V.Int64(); got != 2 {
		t.Errorf("second = %d, want 2", got)
	}
}

// TestLEGBLocalShadowsGlobal checks that assigning a name inside a
// function makes every read of that name within the function resolve to
// the local (LOAD_FAST), never falling through to the module global of
// the same name, per §4.4.
func TestLEGBLocalShadowsGlobal(t *testing.T) {
	src := `
x = "global"

def shadow():
    x = "local"
    return x

result = shadow()
`
	globals := run(t, src)
	if got := globals["result"].(*object.Str).Val; got != "local" {
		t.Errorf("result = %q, want %q", got, "local")
	}
	if got := globals["x"].(*object.Str).Val; got != "global" {
		t.Errorf("module x = %q, want %q (must be untouched)", got, "global")
	}
}

// TestLEGBReadsEnclosingGlobal checks the other half: a function that
// never assigns a name falls through LOAD_NAME's LEGB search to the
// module global.
func TestLEGBReadsEnclosingGlobal(t *testing.T) {
	src := `
x = "global"

def read_only():
    return x

result = read_only()
`
	globals := run(t, src)
	if got := globals["result"].(*object.Str).Val; got != "global" {
		t.Errorf("result = %q, want %q", got, "global")
	}
}

// TestLEGBGlobalDeclarationWrites checks that `global x` inside a
// function routes STORE_NAME/LOAD_NAME through STORE_GLOBAL/LOAD_GLOBAL
// instead of a local Fast slot, so the module binding is actually
// mutated rather than shadowed.
func TestLEGBGlobalDeclarationWrites(t *testing.T) {
	src := `
counter = 0

def increment():
    global counter
    counter = counter + 1

increment()
increment()
increment()
`
	globals := run(t, src)
	if got := globals["counter"].(*object.Int).V.Int64(); got != 3 {
		t.Errorf("counter = %d, want 3", got)
	}
}

// TestPromiseOrderingEndToEnd reproduces spec §8 scenario 4 verbatim,
// driven through real corvid source (not a Go-level fake callable): each
// link in the chain logs the value it receives before transforming it, so
// the observed log sequence proves both the then/catch attribute-dispatch
// wiring (pkg/object/promise.go's PromiseClass members) and the
// microtask-ordering guarantee pkg/eventloop enforces.
func TestPromiseOrderingEndToEnd(t *testing.T) {
	src := `
def step1(x):
    print(x)
    return x * 2

def step2(x):
    print(x)
    return x + 5

def step3(x):
    print(x)
    return x / 0

def on_error(err):
    print(err)

p = Promise.resolve(100)
p.then(step1).then(step2).then(step3).catch(on_error)
`
	logs := runCapturingLogs(t, src)
	if len(logs) != 4 {
		t.Fatalf("logs = %v, want 4 entries", logs)
	}
	want := []string{"100", "200", "205"}
	for i, w := range want {
		if logs[i] != w {
			t.Errorf("logs[%d] = %q, want %q (full: %v)", i, logs[i], w, logs)
		}
	}
	if !strings.Contains(logs[3], "division by zero") {
		t.Errorf("logs[3] = %q, want it to mention division by zero", logs[3])
	}
}

// TestPromiseResolvePassesThroughExistingPromise checks
// Promise.resolve(x)'s "x unchanged if already a promise" rule, and that
// resolving with a plain value produces an already-fulfilled promise
// reachable via .then without a loop-driven settlement first.
func TestPromiseResolvePassesThroughExistingPromise(t *testing.T) {
	src := `
already = Promise.resolve(42)
passthrough = Promise.resolve(already)
`
	globals := run(t, src)
	already := globals["already"].(*object.Promise)
	passthrough := globals["passthrough"].(*object.Promise)
	if passthrough != already {
		t.Errorf("Promise.resolve(already-settled promise) returned a new promise instead of the same one")
	}
	if already.State != object.Fulfilled {
		t.Errorf("already.State = %v, want Fulfilled", already.State)
	}
}
