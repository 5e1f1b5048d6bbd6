package mapping

import "github.com/Kentzo-Omakse/hexim/pkg/value"

// Coerce converts a resolved tree node into the Go value of kind k. Null and
// absent nodes become nil, as do scalars that do not convert.
func Coerce(v value.Value, k Kind) any {
	if v.IsNil() {
		return nil
	}

	switch k {
	case KindString, KindDatetime:
		if s, ok := v.AsString(); ok {
			return s
		}
		return v.Native()
	case KindInt:
		if i, ok := v.AsInt(); ok {
			return i
		}
		return nil
	case KindFloat:
		if f, ok := v.AsFloat(); ok {
			return f
		}
		return nil
	case KindBool:
		if b, ok := v.AsBool(); ok {
			return b
		}
		return nil
	}
	return v.Native()
}
