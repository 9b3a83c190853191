package activity

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindMissingField       Kind = "missing_field"
	KindEmptyField         Kind = "empty_field"
	KindInvalidCategory    Kind = "invalid_category"
	KindInvalidID          Kind = "invalid_id"
	KindIDNotFound         Kind = "id_not_found"
	KindNoMatch            Kind = "no_match"
	KindNothingMatched     Kind = "nothing_matched"
	KindQueryNotResolved   Kind = "query_not_resolved"
	KindMissingID          Kind = "missing_id"
	KindMissingCategory    Kind = "missing_category"
	KindIncompleteFields   Kind = "incomplete_fields"
	KindIDCategoryMismatch Kind = "id_category_mismatch"
	KindDeleteNotResolved  Kind = "delete_not_resolved"
)

// Error is returned by every Store operation that rejects its input.
// Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind so callers can test against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingField = &Error{KindMissingField, "title, description or category not found"}
	ErrEmptyField   = &Error{KindEmptyField, "title, description and category must not be empty"}
	// ErrEmptyCategory is the category-only update flavour of ErrEmptyField.
	ErrEmptyCategory = &Error{KindEmptyField, "category must not be empty"}

	ErrInvalidCategory = &Error{KindInvalidCategory, "invalid category value"}
	// ErrCategoryNotNumeric rejects a category query parameter that is not all digits.
	ErrCategoryNotNumeric = &Error{KindInvalidCategory, "category must be numeric"}
	// ErrCategoryOutOfRange rejects a numeric category query parameter outside 1-3.
	ErrCategoryOutOfRange = &Error{KindInvalidCategory, "category must be 1, 2 or 3"}

	ErrInvalidID          = &Error{KindInvalidID, "id must be numeric"}
	ErrIDNotFound         = &Error{KindIDNotFound, "id not found"}
	ErrNoMatch            = &Error{KindNoMatch, "no activity matches both id and category"}
	ErrNothingMatched     = &Error{KindNothingMatched, "no activity found for the given id or category"}
	ErrQueryNotResolved   = &Error{KindQueryNotResolved, "query could not be resolved"}
	ErrMissingID          = &Error{KindMissingID, "id is required"}
	ErrMissingCategory    = &Error{KindMissingCategory, "category not found"}
	ErrIncompleteFields   = &Error{KindIncompleteFields, "title or description not found"}
	ErrIDCategoryMismatch = &Error{KindIDCategoryMismatch, "id and category do not match"}
	ErrDeleteNotResolved  = &Error{KindDeleteNotResolved, "delete could not be resolved"}
)
