package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/workpipe/workpipe/pkg/stringutil"
)

// writeYAML writes a compiled workflow's YAML to outDir, named after the
// source path with its .workpipe extension replaced by .yml.
func writeYAML(outDir, sourcePath, yamlText string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	base := stringutil.StripSourceExtension(filepath.Base(sourcePath))
	target := filepath.Join(outDir, base+".yml")
	if !strings.HasSuffix(yamlText, "\n") {
		yamlText += "\n"
	}
	return os.WriteFile(target, []byte(yamlText), 0o644)
}
