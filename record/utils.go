package record

// IsEmpty reports whether v is null. Only null/absent counts as empty;
// falsy values such as "" or 0 are not empty.
func IsEmpty(v Value) bool {
	return v.kind == KindNull
}

// NotEmpty is the negation of IsEmpty.
func NotEmpty(v Value) bool {
	return !IsEmpty(v)
}

// WrapArray returns the elements of an array value, a single-element slice
// for scalars, and nil for null.
func WrapArray(v Value) []Value {
	switch v.kind {
	case KindNull:
		return nil
	case KindArray:
		return v.a
	default:
		return []Value{v}
	}
}

// Truthy reports whether v is truthy: null, "", 0, NaN and false are not.
func Truthy(v Value) bool {
	switch v.kind {
	case KindNull:
		return false
	case KindString:
		return v.s != ""
	case KindNumber:
		return v.n != 0 && v.n == v.n
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Difference returns the elements of WrapArray(old) whose canonical text is
// not present in WrapArray(new).
func Difference(old, new Value) []Value {
	present := make(map[string]struct{})
	for _, v := range WrapArray(new) {
		present[v.String()] = struct{}{}
	}
	var out []Value
	for _, v := range WrapArray(old) {
		if _, ok := present[v.String()]; !ok {
			out = append(out, v)
		}
	}
	return out
}
