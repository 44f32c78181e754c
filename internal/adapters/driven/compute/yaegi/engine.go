// Package yaegi provides the compute engine that runs oracle-generated
// calculation snippets in an embedded Go interpreter. No compilation,
// no subprocess; the snippet's stdout becomes the result.
package yaegi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.ComputeEngine = (*Engine)(nil)

// Packages a snippet may import. Anything touching the filesystem,
// network, or processes is rejected before evaluation.
var allowedImports = map[string]bool{
	"fmt":     true,
	"math":    true,
	"sort":    true,
	"strconv": true,
	"strings": true,
}

// Engine interprets calculation snippets and captures their output.
// Failures of any kind, including panics inside the interpreter, come
// back as values in ComputeResult.
type Engine struct{}

// NewEngine creates a new interpreter-backed compute engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Run evaluates the snippet to completion and returns its stdout.
// The context deadline bounds the wait; a snippet that overruns keeps
// its goroutine but the caller gets a timeout result.
func (e *Engine) Run(ctx context.Context, code string) domain.ComputeResult {
	if strings.TrimSpace(code) == "" {
		return domain.ComputeResult{Err: "empty code"}
	}
	if err := validateImports(code); err != nil {
		return domain.ComputeResult{Err: err.Error()}
	}

	var stdout, stderr bytes.Buffer
	done := make(chan domain.ComputeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.ComputeResult{Err: fmt.Sprintf("panic during evaluation: %v", r)}
			}
		}()

		i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stderr})
		if err := i.Use(stdlib.Symbols); err != nil {
			done <- domain.ComputeResult{Err: fmt.Sprintf("loading stdlib: %v", err)}
			return
		}
		if _, err := i.Eval(wrapCode(code)); err != nil {
			done <- domain.ComputeResult{Output: stdout.String(), Err: err.Error()}
			return
		}
		done <- domain.ComputeResult{Output: strings.TrimRight(stdout.String(), "\n")}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return domain.ComputeResult{Err: "calculation timed out: " + ctx.Err().Error()}
	}
}

// validateImports rejects snippets importing anything outside the
// arithmetic whitelist.
func validateImports(code string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if pkg := importPath(trimmed); pkg != "" && !allowedImports[pkg] {
				forbidden = append(forbidden, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			if pkg := importPath(strings.TrimPrefix(trimmed, "import ")); pkg != "" && !allowedImports[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

func importPath(s string) string {
	s = strings.TrimSpace(s)
	// Drop an import alias if present.
	if i := strings.IndexByte(s, '"'); i > 0 {
		s = s[i:]
	}
	return strings.Trim(s, `"`)
}

// wrapCode turns a bare snippet into a runnable program. Snippets that
// already declare a package or a main function pass through mostly
// unchanged.
func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	if strings.Contains(code, "func main(") {
		return "package main\n\n" + code
	}
	return fmt.Sprintf("package main\n\nimport \"fmt\"\n\nvar _ = fmt.Sprint\n\nfunc main() {\n%s\n}\n", code)
}
