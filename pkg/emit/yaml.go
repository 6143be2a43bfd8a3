// Package emit renders compiled workflow IR as GitHub Actions YAML. The
// emitter is hand-written rather than built on a generic marshaller: field
// order, quoting, and block-literal formatting all need to match exactly
// so that re-emitting an unchanged IR byte-for-byte reproduces the same
// document, which a generic struct marshaller does not guarantee.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/workpipe/workpipe/pkg/ir"
)

// Workflow renders w as a complete GitHub Actions workflow document.
func Workflow(w *ir.WorkflowIR) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", quote(w.Name))
	writeTrigger(&b, w.On)
	b.WriteString("jobs:\n")
	for _, j := range w.Jobs {
		writeJob(&b, j, "  ")
	}
	return b.String()
}

func writeTrigger(b *strings.Builder, t ir.TriggerIR) {
	switch {
	case t.Raw != "":
		fmt.Fprintf(b, "on: %s\n", t.Raw)
	case t.WorkflowDispatch && t.Simple != "":
		b.WriteString("on:\n")
		fmt.Fprintf(b, "  %s: {}\n", t.Simple)
		writeDispatchInput(b, t)
	case t.WorkflowDispatch:
		b.WriteString("on:\n")
		writeDispatchInput(b, t)
	default:
		fmt.Fprintf(b, "on: %s\n", t.Simple)
	}
}

func writeDispatchInput(b *strings.Builder, t ir.TriggerIR) {
	b.WriteString("  workflow_dispatch:\n")
	if t.DispatchIterInput == "" {
		return
	}
	b.WriteString("    inputs:\n")
	fmt.Fprintf(b, "      %s:\n", t.DispatchIterInput)
	b.WriteString("        required: false\n")
	b.WriteString("        type: string\n")
}

func writeJob(b *strings.Builder, j *ir.JobIR, indent string) {
	fmt.Fprintf(b, "%s%s:\n", indent, j.ID)
	fi := indent + "  "
	if j.Name != "" && j.Name != j.ID {
		fmt.Fprintf(b, "%sname: %s\n", fi, quote(j.Name))
	}
	fmt.Fprintf(b, "%sruns-on: %s\n", fi, quote(j.RunsOn))
	if len(j.Needs) > 0 {
		writeStringList(b, fi, "needs", j.Needs)
	}
	if j.If != "" {
		fmt.Fprintf(b, "%sif: %s\n", fi, quote(j.If))
	}
	if j.Environment != "" {
		fmt.Fprintf(b, "%senvironment: %s\n", fi, quote(j.Environment))
	}
	if len(j.Strategy) > 0 {
		writeStrategy(b, fi, j.Strategy)
	}
	if len(j.Outputs) > 0 {
		writeStringMap(b, fi, "outputs", j.Outputs)
	}
	if len(j.Steps) > 0 {
		fmt.Fprintf(b, "%ssteps:\n", fi)
		for _, s := range j.Steps {
			writeStep(b, s, fi)
		}
	}
}

func writeStrategy(b *strings.Builder, indent string, strategy map[string]any) {
	fmt.Fprintf(b, "%sstrategy:\n", indent)
	fmt.Fprintf(b, "%s  matrix:\n", indent)
	keys := sortedKeys(strategy)
	for _, k := range keys {
		switch v := strategy[k].(type) {
		case []any:
			writeAnyList(b, indent+"    ", k, v)
		case []map[string]any:
			fmt.Fprintf(b, "%s    %s:\n", indent, k)
			for _, entry := range v {
				writeStrategyEntry(b, indent+"      ", entry)
			}
		}
	}
}

func writeStrategyEntry(b *strings.Builder, indent string, entry map[string]any) {
	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		prefix := indent + "  "
		if i == 0 {
			prefix = indent + "- "
		}
		fmt.Fprintf(b, "%s%s: %s\n", prefix, k, quote(fmt.Sprint(entry[k])))
	}
}

func writeAnyList(b *strings.Builder, indent, key string, vals []any) {
	fmt.Fprintf(b, "%s%s:\n", indent, key)
	for _, v := range vals {
		fmt.Fprintf(b, "%s  - %s\n", indent, quote(fmt.Sprint(v)))
	}
}

func writeStep(b *strings.Builder, s ir.StepIR, indent string) {
	first := true
	writeField := func(format string, args ...any) {
		prefix := indent + "  "
		if first {
			prefix = indent + "- "
			first = false
		}
		fmt.Fprintf(b, prefix+format+"\n", args...)
	}
	if s.Name != "" {
		writeField("name: %s", quote(s.Name))
	}
	if s.ID != "" {
		writeField("id: %s", s.ID)
	}
	if s.If != "" {
		writeField("if: %s", quote(s.If))
	}
	if s.Uses != "" {
		writeField("uses: %s", quote(s.Uses))
	}
	if len(s.Env) > 0 {
		writeField("env:")
		for _, k := range sortedKeys(anyMap(s.Env)) {
			fmt.Fprintf(b, "%s    %s: %s\n", indent, k, quote(s.Env[k]))
		}
	}
	if len(s.With) > 0 {
		writeField("with:")
		for _, k := range sortedKeys(anyMap(s.With)) {
			writeWithValue(b, indent, k, s.With[k])
		}
	}
	if s.Shell != "" {
		writeField("shell: %s", s.Shell)
	}
	if s.Run != "" {
		writeField("run: |")
		for _, line := range strings.Split(strings.TrimRight(s.Run, "\n"), "\n") {
			fmt.Fprintf(b, "%s    %s\n", indent, line)
		}
	}
	if first {
		// A step with no recognized fields still needs to appear as a
		// list item so the job's steps array stays well-formed.
		fmt.Fprintf(b, "%s- {}\n", indent)
	}
}

func writeWithValue(b *strings.Builder, indent, key, value string) {
	if strings.Contains(value, "\n") {
		fmt.Fprintf(b, "%s    %s: |\n", indent, key)
		for _, line := range strings.Split(strings.TrimRight(value, "\n"), "\n") {
			fmt.Fprintf(b, "%s      %s\n", indent, line)
		}
		return
	}
	fmt.Fprintf(b, "%s    %s: %s\n", indent, key, quote(value))
}

func writeStringList(b *strings.Builder, indent, key string, items []string) {
	fmt.Fprintf(b, "%s%s:\n", indent, key)
	for _, it := range items {
		fmt.Fprintf(b, "%s  - %s\n", indent, quote(it))
	}
}

func writeStringMap(b *strings.Builder, indent, key string, m map[string]string) {
	fmt.Fprintf(b, "%s%s:\n", indent, key)
	for _, k := range sortedKeys(anyMap(m)) {
		fmt.Fprintf(b, "%s  %s: %s\n", indent, k, quote(m[k]))
	}
}

func anyMap[V any](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// quote renders s as a YAML scalar, quoting whenever its bare form would
// be ambiguous: leading/trailing whitespace, GitHub Actions expressions
// (`${{ ... }}`), YAML's own reserved punctuation, or values that would
// otherwise parse as a different scalar type (true/false/null/numbers).
func quote(s string) string {
	if s == "" {
		return `""`
	}
	if needsQuote(s) {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return s
}

func needsQuote(s string) bool {
	switch s {
	case "true", "false", "null", "yes", "no", "~":
		return true
	}
	if strings.ContainsAny(s, ":#{}[]&*!|>'\"%@`") {
		return true
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	if isNumericLiteral(s) {
		return true
	}
	switch s[0] {
	case '-', '?', ',':
		return true
	}
	return false
}

func isNumericLiteral(s string) bool {
	sawDigit := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			sawDigit = true
		case r == '.' || r == '-' || r == '+':
			// allowed anywhere a sign/decimal point could legally appear
		case i == 0:
			return false
		default:
			return false
		}
	}
	return sawDigit
}
