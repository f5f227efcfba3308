package codegen

import "math"

type binding[T any] struct {
	version int
	val     T
}

// Scope is one level of the symbol and field tables. A child sees its parent
// as it was when the child was created: later definitions in the parent are
// hidden from it, without copying anything.
type Scope struct {
	parent     *Scope
	limit      int // parent version visible from this scope
	version    int
	symbols    map[string][]binding[*Value]
	fields     map[string][]binding[int]
	order      []string
	fieldOrder []string
}

func NewScope(parent *Scope) *Scope {
	s := &Scope{
		parent:  parent,
		symbols: make(map[string][]binding[*Value]),
		fields:  make(map[string][]binding[int]),
	}
	if parent != nil {
		s.limit = parent.version
	}
	return s
}

func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) Define(name string, v *Value) {
	s.version++
	if _, seen := s.symbols[name]; !seen {
		s.order = append(s.order, name)
	}
	s.symbols[name] = append(s.symbols[name], binding[*Value]{s.version, v})
}

// DefineField records the index of a field under its "Struct.field" name.
func (s *Scope) DefineField(qualified string, index int) {
	s.version++
	if _, seen := s.fields[qualified]; !seen {
		s.fieldOrder = append(s.fieldOrder, qualified)
	}
	s.fields[qualified] = append(s.fields[qualified], binding[int]{s.version, index})
}

// Lookup resolves name through this scope and its ancestors.
func (s *Scope) Lookup(name string) (*Value, bool) {
	limit := math.MaxInt
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := visible(sc.symbols[name], limit); ok {
			return v, true
		}
		limit = sc.limit
	}
	return nil, false
}

// LookupLocal resolves name in this scope only.
func (s *Scope) LookupLocal(name string) (*Value, bool) {
	return visible(s.symbols[name], math.MaxInt)
}

func (s *Scope) Field(qualified string) (int, bool) {
	limit := math.MaxInt
	for sc := s; sc != nil; sc = sc.parent {
		if idx, ok := visible(sc.fields[qualified], limit); ok {
			return idx, true
		}
		limit = sc.limit
	}
	return 0, false
}

// Symbols lists this scope's own names in first-definition order.
func (s *Scope) Symbols() []string { return s.order }

// Fields lists this scope's own qualified field names in definition order.
func (s *Scope) Fields() []string { return s.fieldOrder }

func visible[T any](history []binding[T], limit int) (T, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].version <= limit {
			return history[i].val, true
		}
	}
	var zero T
	return zero, false
}
