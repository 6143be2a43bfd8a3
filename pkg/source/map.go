package source

import "sort"

// Map lazily computes line/column positions from byte offsets via binary
// search over newline positions. One Map is built per file and shared by
// every pass that needs to render a Span as `line:column`.
type Map struct {
	path  string
	text  string
	lines []int // byte offset of the start of each line; lines[0] == 0
	built bool
}

// NewMap creates a Map for the given file path and source text. Newline
// positions are computed on first use (LineCol/LineText/LineCount), not here, so
// constructing a Map for a file that never needs position lookups is free.
func NewMap(path, text string) *Map {
	return &Map{path: path, text: text}
}

func (m *Map) ensureBuilt() {
	if m.built {
		return
	}
	m.lines = []int{0}
	for i := 0; i < len(m.text); i++ {
		if m.text[i] == '\n' {
			m.lines = append(m.lines, i+1)
		}
	}
	m.built = true
}

// Path returns the file path this map was built for.
func (m *Map) Path() string { return m.path }

// Text returns the full source text.
func (m *Map) Text() string { return m.text }

// Len returns the number of bytes in the source text.
func (m *Map) Len() int { return len(m.text) }

// LineCol converts a byte offset into a 1-based line and column. Column is
// counted in bytes, not runes (matching the concrete-tree lexer, which
// itself spans bytes, not code points).
func (m *Map) LineCol(offset int) (line, col int) {
	m.ensureBuilt()
	if offset < 0 {
		offset = 0
	}
	if offset > len(m.text) {
		offset = len(m.text)
	}
	// Find the last line start <= offset.
	idx := sort.Search(len(m.lines), func(i int) bool { return m.lines[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	line = idx + 1
	col = offset - m.lines[idx] + 1
	return line, col
}

// LineText returns the full text of the given 1-based line number, without
// its trailing newline. Returns "" for an out-of-range line.
func (m *Map) LineText(line int) string {
	m.ensureBuilt()
	if line < 1 || line > len(m.lines) {
		return ""
	}
	start := m.lines[line-1]
	end := len(m.text)
	if line < len(m.lines) {
		end = m.lines[line] - 1 // exclude the newline
	}
	if end < start {
		end = start
	}
	for end > start && (m.text[end-1] == '\r') {
		end--
	}
	return m.text[start:end]
}

// LineCount returns the total number of lines in the source text.
func (m *Map) LineCount() int {
	m.ensureBuilt()
	return len(m.lines)
}
