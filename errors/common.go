package errors

import "fmt"

// InvalidBodyErr wraps a payload decode failure at the ingress boundary.
func InvalidBodyErr(err error) error {
	return E(Invalid, "invalid message body", err)
}

func ValidationFailedErr(err error) error {
	return E(Invalid, "validation failed", err)
}

func EmptyParamErr(field string) error {
	ve := ValidationErrs()
	ve.Add(field, "cannot be empty")
	return E(Invalid, "validation failed", ve.Err())
}

// ConflictErr returns a formatted error for a correlation id that already
// points at a different record.
func ConflictErr(entity, correlationID string, err error) error {
	return E(Conflict, fmt.Sprintf("conflict check for %s, correlation id %s failed", entity, correlationID), err)
}
