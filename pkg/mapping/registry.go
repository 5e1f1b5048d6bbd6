package mapping

import (
	"fmt"

	"github.com/Gobusters/ectolinq"
)

// Registry is an ordered, copy-on-write list of fields.
type Registry struct {
	fields []Field
}

func NewRegistry(fields ...Field) *Registry {
	r := &Registry{}
	for _, f := range fields {
		r.fields = append(r.fields, f.clone())
	}
	return r
}

func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *Registry) Len() int { return len(r.fields) }

func (r *Registry) Names() []string {
	return ectolinq.Map(r.fields, func(f Field) string { return f.Name })
}

func (r *Registry) Get(name string) (Field, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clone returns a registry that can be extended without touching r.
func (r *Registry) Clone() *Registry {
	return NewRegistry(r.fields...)
}

// Append returns a new registry with fields added at the end.
func (r *Registry) Append(fields ...Field) *Registry {
	next := r.Clone()
	for _, f := range fields {
		next.fields = append(next.fields, f.clone())
	}
	return next
}

// Remove returns a new registry without any field called name.
func (r *Registry) Remove(name string) *Registry {
	return &Registry{fields: ectolinq.Filter(r.Fields(), func(f Field) bool { return f.Name != name })}
}

// Replace returns a new registry with the field called f.Name swapped in
// place. It fails when no such field exists.
func (r *Registry) Replace(f Field) (*Registry, error) {
	next := r.Clone()
	for i, existing := range next.fields {
		if existing.Name == f.Name {
			next.fields[i] = f.clone()
			return next, nil
		}
	}
	return nil, fmt.Errorf("cannot replace unknown field '%s'", f.Name)
}
