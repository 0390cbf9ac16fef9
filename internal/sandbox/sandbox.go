// internal/sandbox/sandbox.go
// Package sandbox executes candidate cleaning functions in an isolated yaegi
// interpreter and reports a verdict. Interpreting the code instead of
// shelling out to the Go toolchain keeps validation fast and removes any
// dependency on the host build environment. Each call gets a fresh
// interpreter with stdlib symbols only, so generated code can never reach
// pipeline internals.
package sandbox

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"reflect"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/scourlabs/scour/internal/response"
)

// allowedImports is the stdlib whitelist for generated code. Packages with
// filesystem, network, process, or unsafe access are deliberately absent.
var allowedImports = map[string]bool{
	"bytes":           true,
	"encoding/base64": true,
	"encoding/csv":    true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
	"unicode/utf8":    true,
}

// Result is the validation verdict. Message is empty when OK.
type Result struct {
	OK      bool
	Message string
}

func failf(format string, args ...any) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...)}
}

// Runner validates generated functions. The timeout bounds every single
// sample invocation; interpreted code has no other resource ceiling, so the
// deadline is what keeps a runaway function from stalling the pipeline.
type Runner struct {
	timeout time.Duration
}

// New returns a Runner whose per-invocation deadline is timeout. A
// non-positive timeout falls back to 10 seconds.
func New(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{timeout: timeout}
}

// ValidateRecords loads code into a fresh interpreter and invokes funcName
// once per sample record. The first sample that panics or trips the
// deadline fails validation with a diagnostic naming the sample. An empty
// sample set is vacuously valid.
func (r *Runner) ValidateRecords(ctx context.Context, code, funcName string, samples []map[string]interface{}) Result {
	if len(samples) == 0 {
		return Result{OK: true}
	}
	fn, res := r.compile(code, funcName)
	if !res.OK {
		return res
	}
	if res := checkSignature(fn, reflect.TypeOf(map[string]interface{}{}), funcName); !res.OK {
		return res
	}
	for i, sample := range samples {
		out, res := r.invoke(ctx, fn, reflect.ValueOf(sample), i)
		if !res.OK {
			return res
		}
		if _, ok := out.Interface().(map[string]interface{}); !ok {
			return failf("function %q returned %T on sample %d, want map[string]interface{}", funcName, out.Interface(), i)
		}
	}
	return Result{OK: true}
}

// ValidateText loads code into a fresh interpreter and invokes funcName once
// with the chunk's raw text. The return value must be a string.
func (r *Runner) ValidateText(ctx context.Context, code, funcName, sample string) Result {
	fn, res := r.compile(code, funcName)
	if !res.OK {
		return res
	}
	if res := checkSignature(fn, reflect.TypeOf(""), funcName); !res.OK {
		return res
	}
	out, res := r.invoke(ctx, fn, reflect.ValueOf(sample), 0)
	if !res.OK {
		return res
	}
	if _, ok := out.Interface().(string); !ok {
		return failf("function %q returned %T, want string", funcName, out.Interface())
	}
	return Result{OK: true}
}

// compile checks the import whitelist, evaluates the code in a fresh
// interpreter, and resolves funcName from it.
func (r *Runner) compile(code, funcName string) (reflect.Value, Result) {
	src := response.WrapInPackage(code)

	if res := checkImports(src); !res.OK {
		return reflect.Value{}, res
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return reflect.Value{}, failf("could not load interpreter stdlib: %v", err)
	}
	if _, err := i.Eval(src); err != nil {
		return reflect.Value{}, failf("code compilation failed: %v", err)
	}

	fn, err := i.Eval("main." + funcName)
	if err != nil {
		return reflect.Value{}, failf("function %q not found in generated code", funcName)
	}
	return fn, Result{OK: true}
}

// checkImports parses src and rejects any import outside the whitelist.
func checkImports(src string) Result {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "generated.go", src, parser.ImportsOnly)
	if err != nil {
		return failf("code compilation failed: %v", err)
	}
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if !allowedImports[path] {
			return failf("import %q is not permitted in generated code (allowed: safe stdlib only)", path)
		}
	}
	return Result{OK: true}
}

// checkSignature verifies fn is a one-in one-out func taking in.
func checkSignature(fn reflect.Value, in reflect.Type, funcName string) Result {
	t := fn.Type()
	if t.Kind() != reflect.Func {
		return failf("%q is not a function", funcName)
	}
	if t.NumIn() != 1 || t.NumOut() != 1 {
		return failf("function %q has wrong shape: want exactly one parameter and one return value", funcName)
	}
	if !in.AssignableTo(t.In(0)) {
		return failf("function %q takes %s, want %s", funcName, t.In(0), in)
	}
	return Result{OK: true}
}

// invoke calls fn with arg in its own goroutine, recovering panics and
// enforcing the per-invocation deadline.
func (r *Runner) invoke(ctx context.Context, fn, arg reflect.Value, sampleIdx int) (reflect.Value, Result) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		out reflect.Value
		res Result
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{res: failf("runtime error on sample %d: %v", sampleIdx, rec)}
			}
		}()
		outs := fn.Call([]reflect.Value{arg})
		done <- outcome{out: outs[0], res: Result{OK: true}}
	}()

	select {
	case o := <-done:
		return o.out, o.res
	case <-ctx.Done():
		return reflect.Value{}, failf("validation timed out after %s on sample %d", r.timeout, sampleIdx)
	}
}
