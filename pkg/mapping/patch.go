package mapping

import "fmt"

type PatchOp string

const (
	PatchRemove  PatchOp = "remove"
	PatchReplace PatchOp = "replace"
	PatchAppend  PatchOp = "append"
)

// Patch is one declarative change to a registry. Remove only needs the field
// name.
type Patch struct {
	Op    PatchOp
	Field Field
}

func Remove(name string) Patch {
	return Patch{Op: PatchRemove, Field: Field{Name: name}}
}

func Replace(f Field) Patch {
	return Patch{Op: PatchReplace, Field: f}
}

func Append(f Field) Patch {
	return Patch{Op: PatchAppend, Field: f}
}

// Apply runs patches in order and returns the resulting registry. r is not
// modified. Replacing a field that is not present, for example because an
// earlier patch removed it, leaves the registry unchanged.
func Apply(r *Registry, patches ...Patch) (*Registry, error) {
	next := r.Clone()
	for i, p := range patches {
		switch p.Op {
		case PatchRemove:
			next = next.Remove(p.Field.Name)
		case PatchReplace:
			if _, ok := next.Get(p.Field.Name); !ok {
				continue
			}
			replaced, err := next.Replace(p.Field)
			if err != nil {
				return nil, fmt.Errorf("patch %d: %w", i, err)
			}
			next = replaced
		case PatchAppend:
			next = next.Append(p.Field)
		default:
			return nil, fmt.Errorf("patch %d: unknown op '%s'", i, p.Op)
		}
	}
	return next, nil
}
