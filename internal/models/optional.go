package models

import "encoding/json"

// Optional is a JSON field that distinguishes an omitted key from an
// explicit null. Partial updates rely on this: an omitted key keeps the
// stored value, an explicit null clears an optional field, and required
// fields reject null at the store boundary.
type Optional[T any] struct {
	// Set is true when the key appeared in the JSON document.
	Set bool
	// Null is true when the key was present with a null value.
	Null bool
	// Value holds the decoded value when Set && !Null.
	Value T
}

// Some returns a present, non-null Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// NullOptional returns a present, explicitly-null Optional.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked by encoding/json for keys that are
// present in the document, which is what makes presence detection work.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// MarshalJSON emits null for unset or null fields and the value otherwise.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
