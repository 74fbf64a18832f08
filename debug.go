package nodel

import (
	"fmt"
	"io"
)

// SetSink installs w as the destination for the print opcode and for
// DebugPrint. A nil w discards all debug output (the default).
func (g *Graph) SetSink(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	g.debugSink = w
}

func (g *Graph) sink() io.Writer {
	if g.debugSink == nil {
		return io.Discard
	}
	return g.debugSink
}

// DebugPrint lists node's key/value pairs by index and its
// back-reference list by index, matching the shape test.c's
// testgraphprintnode demonstrates for the host API's print entry
// point.
func (g *Graph) DebugPrint(w io.Writer, node Ref) {
	size := g.Size(node)
	fmt.Fprintf(w, "Pairs: %d.\n", size)

	for i := 0; i < size; i++ {
		key := g.Index(node, i)
		val := g.Get(node, key)
		fmt.Fprintf(w, "(%s:%s)\n", key.String(), val.String())
	}

	count := g.BackrefSize(node)
	fmt.Fprintf(w, "Backrefs: %d\n", count)

	for i := 0; i < count; i++ {
		back := g.BackrefIndex(node, i)
		fmt.Fprintf(w, "'%s'.\n", RefVal(back).String())
	}
}
