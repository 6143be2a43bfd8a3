// Package compiler exposes WorkPipe's public API: compiling one source
// file, with its import closure resolved and cached, into GitHub Actions
// YAML plus a flat diagnostic list.
package compiler

import (
	"fmt"
	"io"

	"github.com/rhysd/actionlint"

	"github.com/workpipe/workpipe/pkg/cycle"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/emit"
	"github.com/workpipe/workpipe/pkg/fragment"
	"github.com/workpipe/workpipe/pkg/ir"
	"github.com/workpipe/workpipe/pkg/logger"
	"github.com/workpipe/workpipe/pkg/resolve"
	"github.com/workpipe/workpipe/pkg/source"
	"github.com/workpipe/workpipe/pkg/types"
	"github.com/workpipe/workpipe/pkg/validate"
)

var log = logger.New("compiler")

// Options configures a compile.
type Options struct {
	// SkipActionlint disables the post-emit sanity pass, for callers that
	// already trust the emitted document (e.g. golden-file tests that
	// compare text, not lint cleanliness).
	SkipActionlint bool
}

// Result is one file's compile output.
type Result struct {
	Path        string
	YAML        string // "" if any diagnostic has SeverityError
	Diagnostics []diag.Diagnostic
}

// CreateImportContext builds a fresh, empty import cache over resolver.
// Callers compiling many files in one process should create it once and
// reuse it across CompileFile calls so shared imports are parsed once.
func CreateImportContext(resolver resolve.FileResolver) *resolve.ImportContext {
	return resolve.NewImportContext(resolver)
}

// Compile is the single-file convenience entry point: it creates a
// throwaway ImportContext, builds path's import closure, and compiles it.
func Compile(resolver resolve.FileResolver, path string, opts Options) (result *Result) {
	ctx := CreateImportContext(resolver)
	return CompileFile(ctx, path, opts)
}

// CompileFile compiles path using ctx's cache, loading path (and whatever
// it imports) into ctx if not already present. A panic anywhere in the
// pipeline is recovered and reported as a single internal diagnostic
// rather than crashing the caller.
func CompileFile(ctx *resolve.ImportContext, path string, opts Options) (result *Result) {
	log.Printf("compile start path=%s", path)
	collector := diag.NewCollector()
	defer func() {
		if r := recover(); r != nil {
			collector.Errorf(diag.CodeInternal, path, source.Span{}, fmt.Sprintf("internal error: %v", r))
			result = &Result{Path: path, Diagnostics: collector.All()}
		}
		log.LazyPrintf(func() string {
			if result.YAML == "" {
				return fmt.Sprintf("compile failed path=%s diagnostics=%d", path, len(result.Diagnostics))
			}
			return fmt.Sprintf("compile ok path=%s bytes=%d", path, len(result.YAML))
		})
	}()

	collector.Merge(ctx.Build([]string{path}))

	fs, ok := ctx.Get(path)
	if !ok || fs.File == nil {
		return &Result{Path: path, Diagnostics: collector.All()}
	}

	reg, regDiags := types.BuildRegistry(ctx, path)
	collector.Merge(regDiags)
	collector.Merge(types.CheckTypeRefs(reg, fs.File))

	if fs.File.Workflow == nil {
		return &Result{Path: path, Diagnostics: collector.All()}
	}

	collector.Merge(fragment.Expand(reg, path, fs.File.Workflow))
	collector.Merge(types.CheckPropertyAccess(reg, path, fs.File.Workflow))
	collector.Merge(validate.Validate(path, fs.File.Workflow))

	if collector.HasErrors() {
		return &Result{Path: path, Diagnostics: collector.All()}
	}

	wfIR, irDiags := ir.Build(path, fs.File.Workflow)
	collector.Merge(irDiags)

	for _, c := range fs.File.Workflow.Cycles {
		jobs, cDiags := cycle.Lower(path, wfIR.Name, c)
		collector.Merge(cDiags)
		wfIR.Jobs = append(wfIR.Jobs, jobs...)
		wfIR.On.WorkflowDispatch = true
		wfIR.On.DispatchIterInput = "iteration"
	}

	if collector.HasErrors() {
		return &Result{Path: path, Diagnostics: collector.All()}
	}

	yamlText := emit.Workflow(wfIR)
	if !opts.SkipActionlint {
		runActionlintSanityPass(path, yamlText, collector)
	}

	return &Result{Path: path, YAML: yamlText, Diagnostics: collector.All()}
}

// runActionlintSanityPass lints the emitted document as a last-mile check
// for shapes the earlier passes cannot see (GitHub Actions' own schema
// quirks), surfacing anything it finds as warnings: a compile that
// reaches this point has already passed every WorkPipe-level check, so an
// actionlint finding here is advisory, not a reason to withhold output.
func runActionlintSanityPass(path, yamlText string, collector *diag.Collector) {
	linter, err := actionlint.NewLinter(io.Discard, &actionlint.LinterOptions{})
	if err != nil {
		return
	}
	errs, err := linter.Lint(path, []byte(yamlText), nil)
	if err != nil {
		return
	}
	for _, e := range errs {
		collector.Warnf(diag.CodeInternal, path, source.Span{}, "actionlint: "+e.Message)
	}
}
