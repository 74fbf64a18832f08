package nodel

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseAdditionProgram(t *testing.T) {
	src := `
load instpntr,const,a | const=2
load instpntr,const,b | const=3
add a,b,c
print c
exit
`
	result := Parse(src, nil)
	if result.Err != nil {
		t.Fatalf("Parse failed: %v", result.Err)
	}
	defer result.Graph.Kill()

	var out bytes.Buffer
	result.Graph.SetSink(&out)

	rt := NewRuntime(result.Graph)
	rt.Spawn(result.Head)
	rt.Step(100)

	if rt.Running() {
		t.Fatal("program should have run to completion")
	}
	if !strings.Contains(out.String(), "int:5") {
		t.Fatalf("output = %q, want it to contain the printed sum", out.String())
	}
}

func TestParseForwardLabelResolution(t *testing.T) {
	src := `
branch count,zero | lt = :loop eq = :done gt = :done
loop:
exit
done:
exit
`
	result := Parse(src, nil)
	if result.Err != nil {
		t.Fatalf("Parse failed: %v", result.Err)
	}
	defer result.Graph.Kill()

	g := result.Graph
	lt, ok := g.Get(result.Head, symLt).Ref()
	if !ok {
		t.Fatal("branch.lt should have been resolved")
	}
	eq, ok := g.Get(result.Head, symEq).Ref()
	if !ok {
		t.Fatal("branch.eq should have been resolved")
	}
	gt, ok := g.Get(result.Head, symGt).Ref()
	if !ok {
		t.Fatal("branch.gt should have been resolved")
	}

	exitSym := NewSym("exit")
	for name, r := range map[string]Ref{"lt": lt, "eq": eq, "gt": gt} {
		op, ok := g.Get(r, symOpcode).Sym()
		if !ok || op != exitSym {
			t.Errorf("%s target opcode = (%v, %v), want exit", name, op, ok)
		}
	}
	if lt == eq {
		t.Fatal("lt (loop:) and eq (done:) should resolve to distinct instructions")
	}
	if eq != gt {
		t.Fatal("eq and gt both name done: and should resolve to the same instruction")
	}
}

func TestParseMissingLabelIsError(t *testing.T) {
	src := `
branch count,zero | lt = :nope eq = :done gt = :done
done:
exit
`
	result := Parse(src, nil)
	if result.Err == nil {
		t.Fatal("Parse should fail on an unresolved label")
	}
	if !strings.Contains(result.Err.Msg, "nope") {
		t.Fatalf("error message = %q, want it to name the missing label", result.Err.Msg)
	}
	if result.Err.Line != 1 {
		t.Fatalf("error line = %d, want 1", result.Err.Line)
	}
}

func TestParseUsesCallerSuppliedGraph(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	other := g.Alloc()

	result := Parse("exit\n", g)
	if result.Err != nil {
		t.Fatalf("Parse failed: %v", result.Err)
	}
	if result.Graph != g {
		t.Fatal("Parse should reuse the caller's graph when one is supplied")
	}
	if !g.Live(other) {
		t.Fatal("Parse must not disturb unrelated nodes already in the caller's graph")
	}
}

func TestFormatErrorRendersCaret(t *testing.T) {
	result := Parse(" @@@\n", nil)
	if result.Err == nil {
		t.Fatal("expected a parse error")
	}
	var out bytes.Buffer
	result.FormatError(&out)
	if !strings.Contains(out.String(), "^") {
		t.Fatalf("FormatError output = %q, want a caret line", out.String())
	}
}
