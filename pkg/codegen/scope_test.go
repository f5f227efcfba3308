package codegen

import (
	"testing"

	"github.com/anthony-63/Ignis/pkg/ir"
	"github.com/google/go-cmp/cmp"
)

func intValue(name string) *Value {
	return newValue(ValueStorage, &ir.Global{Name: name}, newTypeMap()["i32"], true, false)
}

func TestScopeShadowing(t *testing.T) {
	parent := NewScope(nil)
	outer := intValue("outer")
	parent.Define("x", outer)

	child := NewScope(parent)
	if child.Parent() != parent || parent.Parent() != nil {
		t.Fatalf("parent links not recorded")
	}
	inner := intValue("inner")
	child.Define("x", inner)

	if got, _ := child.Lookup("x"); got != inner {
		t.Errorf("child lookup returned the parent binding")
	}
	if got, _ := parent.Lookup("x"); got != outer {
		t.Errorf("defining in the child changed the parent")
	}
	if _, ok := child.LookupLocal("x"); !ok {
		t.Errorf("LookupLocal missed a binding in the same scope")
	}
}

func TestScopeSnapshot(t *testing.T) {
	parent := NewScope(nil)
	parent.Define("a", intValue("a"))
	child := NewScope(parent)

	// Definitions made after the child was created stay invisible to it.
	parent.Define("b", intValue("b"))
	later := intValue("a2")
	parent.Define("a", later)

	if _, ok := child.Lookup("b"); ok {
		t.Errorf("child sees a parent definition made after it was created")
	}
	if got, _ := child.Lookup("a"); got == later {
		t.Errorf("child sees a redefinition made after it was created")
	}
	if got, _ := parent.Lookup("a"); got != later {
		t.Errorf("parent lost its own latest binding")
	}
	if _, ok := child.LookupLocal("a"); ok {
		t.Errorf("LookupLocal must not search ancestors")
	}

	grandchild := NewScope(child)
	if _, ok := grandchild.Lookup("b"); ok {
		t.Errorf("snapshot limit not carried through the chain")
	}
	if _, ok := grandchild.Lookup("a"); !ok {
		t.Errorf("grandchild cannot see an ancestor binding")
	}
}

func TestScopeFields(t *testing.T) {
	root := NewScope(nil)
	root.DefineField("Point.x", 0)
	root.DefineField("Point.y", 1)
	child := NewScope(root)
	root.DefineField("Point.z", 2)

	if idx, ok := child.Field("Point.y"); !ok || idx != 1 {
		t.Errorf("Field(Point.y) = %d, %v; want 1, true", idx, ok)
	}
	if _, ok := child.Field("Point.z"); ok {
		t.Errorf("child sees a field defined after it was created")
	}
	if _, ok := root.Field("Other.x"); ok {
		t.Errorf("unknown field resolved")
	}
	if diff := cmp.Diff([]string{"Point.x", "Point.y", "Point.z"}, root.Fields()); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestScopeSymbolOrder(t *testing.T) {
	s := NewScope(nil)
	for _, name := range []string{"c", "a", "b", "a"} {
		s.Define(name, intValue(name))
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, s.Symbols()); diff != "" {
		t.Errorf("symbol order mismatch (-want +got):\n%s", diff)
	}
}

func TestStructLayout(t *testing.T) {
	types := newTypeMap()
	typ := &Type{
		Kind:   KindStruct,
		Name:   "Mixed",
		Fields: []*Type{types["i8"], types["i32"], types["i64"], types["bool"]},
	}
	var offsets []int64
	for i := range typ.Fields {
		offsets = append(offsets, typ.FieldOffset(i, 8))
	}
	if diff := cmp.Diff([]int64{0, 4, 8, 16}, offsets); diff != "" {
		t.Errorf("offsets mismatch (-want +got):\n%s", diff)
	}
	if got := typ.Size(8); got != 24 {
		t.Errorf("Size = %d, want 24", got)
	}
	if got := typ.Align(8); got != 8 {
		t.Errorf("Align = %d, want 8", got)
	}
}
