// Package activity implements the in-memory activity store.
//
// An Activity is a tracked task with a title, a description and a status
// Category. The Store owns the ordered collection of activities and the
// identifier counter; every exported operation takes the raw values an HTTP
// adapter parsed from a request and either returns a result or an *Error
// describing which validation step rejected the input.
//
// # Identifiers
//
// Identifiers start at 0 and grow by one on every successful Create. They are
// never reused: deleting records, or clearing the whole store, does not reset
// the counter.
//
// # Request values
//
// Query parameters and body fields arrive as Optional values so the store can
// tell an absent key apart from an explicit null and from a real value:
//
//	in := activity.Input{
//	    Title:       activity.Value("write report"),
//	    Description: activity.Value("quarterly numbers"),
//	    Category:    activity.Value[any](1),
//	}
//	id, err := store.Create(in)
//
// # Thread Safety
//
// All Store methods serialize on a single mutex. Category deletes scan a
// snapshot of the collection taken under that lock, so every matching record
// is removed in one call.
package activity
