package models

// Optional is an explicit partial-update marker distinguishing "field not
// mentioned" (Set false) from "field cleared" (Set true, Null true) from
// "field assigned" (Set true, Null false). Update inputs use it for every
// mutable field so omission and clearing cannot be confused.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Assign returns an Optional carrying a concrete value.
func Assign[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Clear returns an Optional that explicitly clears the field.
func Clear[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UpdateUserInput lists every mutable user field.
type UpdateUserInput struct {
	FullName    Optional[string]
	Email       Optional[string]
	StudentID   Optional[string]
	Belt        Optional[string]
	PhoneNumber Optional[string]
	JoinDate    Optional[string] // ISO date, cleared when Null
	Status      Optional[UserStatus]
	Role        Optional[UserRole]
}

// UpdatePostInput lists every mutable post field.
type UpdatePostInput struct {
	Title      Optional[string]
	Content    Optional[string]
	CategoryID Optional[uint]
	TagIDs     Optional[[]uint] // full replace-list when set
}
