package activity

import (
	"slices"
	"sync"
)

// Input carries the body fields of a create or update request.
type Input struct {
	Title       Optional[string]
	Description Optional[string]
	// Category holds the decoded JSON value untouched so that a string or a
	// fractional number can be rejected as an invalid category.
	Category Optional[any]
	// Rejected, when set, is returned once the key and emptiness checks
	// pass. Decoders use it for a field sent with the wrong JSON type.
	Rejected error
}

// CheckCreateKeys returns ErrMissingField unless title, description and
// category are all present.
func (in Input) CheckCreateKeys() error {
	if !in.Title.Present() || !in.Description.Present() || !in.Category.Present() {
		return ErrMissingField
	}
	return nil
}

// CheckUpdateKeys rejects key sets that are neither a full update nor a
// category-only update.
func (in Input) CheckUpdateKeys() error {
	if in.Title.Present() || in.Description.Present() {
		if !in.Category.Present() {
			return ErrMissingCategory
		}
		if !in.Title.Present() || !in.Description.Present() {
			return ErrIncompleteFields
		}
	}
	return nil
}

// Query carries the raw id and category query parameters.
type Query struct {
	ID       Optional[string]
	Category Optional[string]
}

// ReadStatus names the path a Read resolved through.
type ReadStatus string

const (
	ReadAll                  ReadStatus = "all"
	ReadFoundByID            ReadStatus = "foundById"
	ReadFoundByIDAndCategory ReadStatus = "foundByIdAndCategory"
	ReadFoundByCategory      ReadStatus = "foundByCategory"
)

// ReadResult is the outcome of a successful Read.
type ReadResult struct {
	Status     ReadStatus
	Activities []Activity
}

// Single reports whether the result addresses exactly one record by id.
func (r ReadResult) Single() bool {
	return r.Status == ReadFoundByID || r.Status == ReadFoundByIDAndCategory
}

// DeleteStatus names the path a Delete resolved through.
type DeleteStatus string

const (
	DeletedAll      DeleteStatus = "allDeleted"
	Deleted         DeleteStatus = "deleted"
	NothingToDelete DeleteStatus = "nothingToDelete"
)

// DeleteResult is the outcome of a successful Delete.
type DeleteResult struct {
	Status  DeleteStatus
	Removed int
}

// Store holds activities in insertion order plus the id counter.
type Store struct {
	mu      sync.Mutex
	records []Activity
	nextID  int
}

// NewStore creates an empty store whose first id is 0.
func NewStore() *Store {
	return &Store{
		records: make([]Activity, 0),
	}
}

// Create validates in and appends a new activity, returning its id.
func (s *Store) Create(in Input) (int, error) {
	if err := in.CheckCreateKeys(); err != nil {
		return 0, err
	}
	if isEmpty(in.Title) || isEmpty(in.Description) || isEmpty(in.Category) {
		return 0, ErrEmptyField
	}
	if in.Rejected != nil {
		return 0, in.Rejected
	}
	raw, _ := in.Category.Get()
	category, ok := bodyCategory(raw)
	if !ok {
		return 0, ErrInvalidCategory
	}
	title, _ := in.Title.Get()
	description, _ := in.Description.Get()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.records = append(s.records, Activity{
		ID:          id,
		Title:       title,
		Description: description,
		Category:    category,
	})
	s.nextID++
	return id, nil
}

// filter is a validated id/category query.
type filter struct {
	id          int
	hasID       bool
	idOverflow  bool
	category    Category
	hasCategory bool
}

func (f filter) matches(a Activity) bool {
	return !f.hasCategory || a.Category == f.category
}

// parseQuery applies the shared id/category validation of Read and Delete.
func parseQuery(q Query) (filter, error) {
	var f filter
	rawID, hasID := q.ID.Get()
	rawCategory, hasCategory := q.Category.Get()

	if hasID && !IsNumericString(rawID) {
		return f, ErrInvalidID
	}
	if hasCategory && !IsNumericString(rawCategory) {
		return f, ErrCategoryNotNumeric
	}
	if hasCategory {
		n, ok := parseParam(rawCategory)
		if !ok || !IsValidCategory(n) {
			return f, ErrCategoryOutOfRange
		}
		f.category = Category(n)
		f.hasCategory = true
	}
	if hasID {
		// All digits but too large for an int: no record can carry it.
		n, ok := parseParam(rawID)
		f.id, f.hasID, f.idOverflow = n, true, !ok
	}
	return f, nil
}

// indexOf returns the position of the first record with the given id.
// Callers hold s.mu.
func (s *Store) indexOf(f filter) int {
	if f.idOverflow {
		return -1
	}
	return slices.IndexFunc(s.records, func(a Activity) bool { return a.ID == f.id })
}

// Read returns every activity, one activity by id, or the activities of a
// category, depending on which query parameters are present.
func (s *Store) Read(q Query) (ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !q.ID.Present() && !q.Category.Present() {
		return ReadResult{Status: ReadAll, Activities: slices.Clone(s.records)}, nil
	}

	f, err := parseQuery(q)
	if err != nil {
		return ReadResult{}, err
	}

	if f.hasID {
		i := s.indexOf(f)
		if i < 0 {
			return ReadResult{}, ErrIDNotFound
		}
		found := s.records[i]
		if !f.hasCategory {
			return ReadResult{Status: ReadFoundByID, Activities: []Activity{found}}, nil
		}
		if f.matches(found) {
			return ReadResult{Status: ReadFoundByIDAndCategory, Activities: []Activity{found}}, nil
		}
		return ReadResult{}, ErrNoMatch
	}

	if f.hasCategory {
		var matched []Activity
		for _, a := range s.records {
			if f.matches(a) {
				matched = append(matched, a)
			}
		}
		if len(matched) > 0 {
			return ReadResult{Status: ReadFoundByCategory, Activities: matched}, nil
		}
		return ReadResult{}, ErrNothingMatched
	}

	return ReadResult{}, ErrQueryNotResolved
}

// Update overwrites the activity with the given id. A body with title,
// description and category replaces all three; a body with only category
// replaces the category and leaves the text fields alone.
func (s *Store) Update(id Optional[string], in Input) error {
	rawID, ok := id.Get()
	if !ok {
		return ErrMissingID
	}

	if err := in.CheckUpdateKeys(); err != nil {
		return err
	}
	hasTitle := in.Title.Present()
	hasDescription := in.Description.Present()
	hasCategory := in.Category.Present()
	full := hasTitle || hasDescription || !hasCategory

	// A body with none of the three fields is treated as a full update whose
	// fields are all unset, so it fails the emptiness check.
	blank := func(present, empty bool) bool { return !present || empty }
	if full {
		if blank(hasTitle, isEmpty(in.Title)) ||
			blank(hasDescription, isEmpty(in.Description)) ||
			blank(hasCategory, isEmpty(in.Category)) {
			return ErrEmptyField
		}
	} else if isEmpty(in.Category) {
		return ErrEmptyCategory
	}
	if in.Rejected != nil {
		return in.Rejected
	}

	raw, _ := in.Category.Get()
	category, ok := bodyCategory(raw)
	if !ok {
		return ErrInvalidCategory
	}

	if !IsNumericString(rawID) {
		return ErrInvalidID
	}
	n, inRange := parseParam(rawID)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(filter{id: n, hasID: true, idOverflow: !inRange})
	if i < 0 {
		return ErrIDNotFound
	}
	record := &s.records[i]
	if full {
		record.Title, _ = in.Title.Get()
		record.Description, _ = in.Description.Get()
	}
	record.Category = category
	return nil
}

// Delete clears the store, removes one activity by id, or removes every
// activity of a category. The id counter is never reset.
func (s *Store) Delete(q Query) (DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !q.ID.Present() && !q.Category.Present() {
		removed := len(s.records)
		s.records = make([]Activity, 0)
		return DeleteResult{Status: DeletedAll, Removed: removed}, nil
	}

	f, err := parseQuery(q)
	if err != nil {
		return DeleteResult{}, err
	}

	if f.hasID {
		i := s.indexOf(f)
		if i < 0 {
			return DeleteResult{}, ErrIDNotFound
		}
		if !f.matches(s.records[i]) {
			return DeleteResult{}, ErrIDCategoryMismatch
		}
		s.records = slices.Delete(s.records, i, i+1)
		return DeleteResult{Status: Deleted, Removed: 1}, nil
	}

	if f.hasCategory {
		// Scan a snapshot and remove from the live collection so that
		// adjacent matches are not skipped.
		snapshot := slices.Clone(s.records)
		removed := 0
		for _, a := range snapshot {
			if !f.matches(a) {
				continue
			}
			at := slices.IndexFunc(s.records, func(r Activity) bool { return r.ID == a.ID })
			s.records = slices.Delete(s.records, at, at+1)
			removed++
		}
		if removed == 0 {
			return DeleteResult{Status: NothingToDelete}, nil
		}
		return DeleteResult{Status: Deleted, Removed: removed}, nil
	}

	return DeleteResult{}, ErrDeleteNotResolved
}

// Len returns the number of stored activities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Stats returns record counts per category and the next id to be assigned.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		byCategory[c] = 0
	}
	for _, a := range s.records {
		byCategory[a.Category]++
	}
	return Stats{
		Total:      len(s.records),
		ByCategory: byCategory,
		NextID:     s.nextID,
	}
}
