// Command workpipe compiles WorkPipe source files into GitHub Actions
// workflow YAML.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/workpipe/workpipe/pkg/compiler"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/resolve"
	"github.com/workpipe/workpipe/pkg/source"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "workpipe",
		Short:   "Compile WorkPipe pipeline sources into GitHub Actions workflows",
		Version: version,
	}
	root.AddCommand(newCompileCommand())
	return root
}

func newCompileCommand() *cobra.Command {
	var root string
	var color bool
	var outDir string

	cmd := &cobra.Command{
		Use:   "compile <file.workpipe>...",
		Short: "Compile one or more .workpipe files to workflow YAML",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, root, outDir, color)
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "directory WorkPipe source paths are resolved relative to")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write compiled YAML into (default: stdout)")
	cmd.Flags().BoolVar(&color, "color", diag.ColorEnabled(os.Stdout.Fd()), "colorize diagnostic output")
	return cmd
}

func runCompile(cmd *cobra.Command, paths []string, root, outDir string, color bool) error {
	if !color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	resolver := resolve.OSResolver{Root: root}
	ctx := compiler.CreateImportContext(resolver)

	failed := false
	sources := map[string]*source.Map{}

	for _, path := range paths {
		result := compiler.CompileFile(ctx, path, compiler.Options{})

		for _, d := range result.Diagnostics {
			if fs, ok := ctx.Get(d.Path); ok {
				sources[d.Path] = fs.Map
			}
			if d.Severity == diag.SeverityError {
				failed = true
			}
		}

		if len(result.Diagnostics) > 0 {
			rendered := diag.Render(result.Diagnostics, sources, diag.TerminalWidth(int(os.Stdout.Fd())))
			fmt.Fprint(cmd.ErrOrStderr(), rendered)
		}

		if result.YAML == "" {
			continue
		}
		if outDir == "" {
			fmt.Fprint(cmd.OutOrStdout(), result.YAML)
			continue
		}
		if err := writeYAML(outDir, path, result.YAML); err != nil {
			return err
		}
	}

	if failed {
		return fmt.Errorf("compilation failed")
	}
	return nil
}
