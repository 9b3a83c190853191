package activity

// Optional is a request value that is absent, explicitly null, or set.
type Optional[T any] struct {
	present bool
	null    bool
	value   T
}

// Absent returns an Optional for a key the request did not carry.
func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// Null returns an Optional for a key that was sent with a null value.
func Null[T any]() Optional[T] {
	return Optional[T]{present: true, null: true}
}

// Value returns an Optional holding v.
func Value[T any](v T) Optional[T] {
	return Optional[T]{present: true, value: v}
}

// Present reports whether the key was in the request, null or not.
func (o Optional[T]) Present() bool {
	return o.present
}

// IsNull reports whether the key was sent as null.
func (o Optional[T]) IsNull() bool {
	return o.present && o.null
}

// Get returns the value and whether one was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present && !o.null
}
