package object

import "testing"

// buildSpecHierarchy constructs spec §8 scenario 1's literal class graph:
// O (root), A(O), B(O), C(O), E(A,B), F(B,C), G(E,F) — the seven
// user-defined classes whose expected MRO for G is
// [G, E, A, F, B, C, O, object]. Mirrors how pkg/vm's buildClass
// registers a user class (native=false, an implicit ObjectClass parent
// when none is given in source).
func buildSpecHierarchy(t *testing.T) (o, a, b, c, e, f, g *Class) {
	t.Helper()
	reg := func(cl *Class) *Class {
		if err := cl.Register(); err != nil {
			t.Fatalf("%s.Register: %v", cl.Name, err)
		}
		return cl
	}
	o = reg(NewClass("O", []*Class{ObjectClass}, false))
	a = reg(NewClass("A", []*Class{o}, false))
	b = reg(NewClass("B", []*Class{o}, false))
	c = reg(NewClass("C", []*Class{o}, false))
	e = reg(NewClass("E", []*Class{a, b}, false))
	f = reg(NewClass("F", []*Class{b, c}, false))
	g = reg(NewClass("G", []*Class{e, f}, false))
	return
}

// TestMRODiamond exercises spec §8 scenario 1 verbatim: the seven-class
// diamond-of-diamonds graph, and the exact linearization the spec states
// for G.
func TestMRODiamond(t *testing.T) {
	_, _, _, _, _, _, g := buildSpecHierarchy(t)

	want := []string{"G", "E", "A", "F", "B", "C", "O", "object"}
	if len(g.MRO) != len(want) {
		t.Fatalf("MRO length = %d, want %d (%v)", len(g.MRO), len(want), mroNames(g.MRO))
	}
	for i, name := range want {
		if g.MRO[i].Name != name {
			t.Errorf("MRO[%d] = %s, want %s (full: %v)", i, g.MRO[i].Name, name, mroNames(g.MRO))
		}
	}
}

// TestMRODiamondMethodResolution checks that a method defined on F (and
// not on E) is still found through G, and that a method defined on both E
// and F resolves to E's because E precedes F in G's linearization.
func TestMRODiamondMethodResolution(t *testing.T) {
	_, _, _, _, e, f, g := buildSpecHierarchy(t)
	e.DefineMember("greet", NewStr("from E"))
	f.DefineMember("greet", NewStr("from F"))
	f.DefineMember("only_on_f", NewStr("f-only"))

	v, ok := findInMRO(g, "greet")
	if !ok || v.(*Str).Val != "from E" {
		t.Errorf("greet resolved to %v, want \"from E\"", v)
	}

	v, ok = findInMRO(g, "only_on_f")
	if !ok || v.(*Str).Val != "f-only" {
		t.Errorf("only_on_f resolved to %v, want \"f-only\"", v)
	}
}

func mroNames(mro []*Class) []string {
	out := make([]string, len(mro))
	for i, c := range mro {
		out[i] = c.Name
	}
	return out
}
