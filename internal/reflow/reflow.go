package reflow

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"fortio.org/safecast"
)

// DefaultIndentWidth is the number of spaces emitted per depth level.
const DefaultIndentWidth = 2

// Options configures the transform.
type Options struct {
	// IndentWidth is the number of spaces per depth level. Zero or negative
	// values fall back to DefaultIndentWidth.
	IndentWidth int
}

func (o Options) withDefaults() Options {
	if o.IndentWidth <= 0 {
		o.IndentWidth = DefaultIndentWidth
	}
	return o
}

// state is the accumulator threaded through the pass.
type state struct {
	depth         int
	suppressSpace bool
}

// Line re-indents line using two-space indent units.
func Line(line string) string {
	return Transform(line, Options{})
}

// Transform re-indents line according to opts. It never fails: unbalanced
// brackets and empty input simply produce whatever the per-character rules
// emit.
func Transform(line string, opts Options) string {
	opts = opts.withDefaults()

	var out strings.Builder
	out.Grow(len(line) + len(line)/2)

	var st state
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case ',':
			out.WriteByte(c)
			breakLine(&out, st.depth, opts.IndentWidth)
			st.suppressSpace = true
		case '{', '[':
			st.depth++
			out.WriteByte(c)
			breakLine(&out, st.depth, opts.IndentWidth)
			st.suppressSpace = true
		case '}', ']':
			st.depth--
			out.WriteByte(c)
		default:
			if st.suppressSpace && c == ' ' {
				st.suppressSpace = false
				continue
			}
			// The flag survives non-space characters until a space consumes it.
			out.WriteByte(c)
		}
	}
	return out.String()
}

// breakLine writes a newline followed by depth*width spaces. A negative
// count, reachable after more closing than opening brackets, writes none.
func breakLine(out *strings.Builder, depth, width int) {
	out.WriteByte('\n')
	n, err := safecast.Conv[uint](depth * width)
	if err != nil {
		return
	}
	for range n {
		out.WriteByte(' ')
	}
}

// FirstLine returns the first line of r including its '\n' terminator, if
// any. Everything after the first line is left unread.
func FirstLine(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

// Reader reads the first line of r and transforms it.
func Reader(r io.Reader, opts Options) (string, error) {
	line, err := FirstLine(r)
	if err != nil {
		return "", err
	}
	return Transform(line, opts), nil
}
