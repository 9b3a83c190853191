package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nomis52/goactivity/activity"
)

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCategory    = "category"

	paramID       = "id"
	paramCategory = "category"

	kindInvalidBody = "invalid_body"

	maxBodyBytes = 1 << 20
)

// bodyError reports a request body that is not a JSON object of the
// expected field types.
type bodyError struct {
	msg string
}

func (e *bodyError) Error() string {
	return e.msg
}

// decodeInput parses a JSON object body, keeping the distinction between an
// absent key, a null value and a set value for each field.
func decodeInput(r *http.Request) (activity.Input, error) {
	var in activity.Input

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return in, &bodyError{msg: "unable to read body"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return in, &bodyError{msg: "body must be a JSON object"}
	}

	// A field of the wrong type stays present so the store's key and
	// emptiness checks run first; the store then returns in.Rejected.
	var typeErr error
	in.Title, typeErr = stringField(fields, fieldTitle)
	in.Rejected = typeErr
	in.Description, typeErr = stringField(fields, fieldDescription)
	if in.Rejected == nil {
		in.Rejected = typeErr
	}
	if in.Category, err = anyField(fields, fieldCategory); err != nil {
		return in, err
	}
	return in, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(fields map[string]json.RawMessage, name string) (activity.Optional[string], error) {
	raw, ok := fields[name]
	if !ok {
		return activity.Absent[string](), nil
	}
	if isNull(raw) {
		return activity.Null[string](), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// The raw JSON text is never empty, so the value does not read as
		// an empty field.
		return activity.Value(string(raw)), &bodyError{msg: fmt.Sprintf("%s must be a string", name)}
	}
	return activity.Value(s), nil
}

// anyField keeps the decoded value as is; numbers stay json.Number so that
// 2 and 2.5 can be told apart.
func anyField(fields map[string]json.RawMessage, name string) (activity.Optional[any], error) {
	raw, ok := fields[name]
	if !ok {
		return activity.Absent[any](), nil
	}
	if isNull(raw) {
		return activity.Null[any](), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return activity.Absent[any](), &bodyError{msg: fmt.Sprintf("%s is not valid JSON", name)}
	}
	return activity.Value(v), nil
}

// queryParam reports a query parameter as absent when the key is missing.
// A key given without a value ("?id=") is present and empty.
func queryParam(r *http.Request, name string) activity.Optional[string] {
	values, ok := r.URL.Query()[name]
	if !ok || len(values) == 0 {
		return activity.Absent[string]()
	}
	return activity.Value(values[0])
}

func parseQuery(r *http.Request) activity.Query {
	return activity.Query{
		ID:       queryParam(r, paramID),
		Category: queryParam(r, paramCategory),
	}
}
